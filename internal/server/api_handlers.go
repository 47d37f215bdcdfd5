package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"storydesk/internal/core"
	"storydesk/internal/selection"
)

const (
	maxBodyBytes = 10 << 20
	maxBatchSize = 500
)

// SelectionRequest asks for representative articles. Categories take precedence over
// subcategories when both are present; the subcategories then narrow each category.
type SelectionRequest struct {
	Subcategories      []string `json:"subcategories"`
	Categories         []string `json:"categories"`
	TotalArticles      *int     `json:"total_articles"`
	MinImportanceScore *int     `json:"min_importance_score"`
}

// BatchRequest wraps a batch of intake records
type BatchRequest struct {
	Articles []core.IncomingArticle `json:"articles"`
}

// handleIngestArticle handles POST /api/articles
func (s *Server) handleIngestArticle(w http.ResponseWriter, r *http.Request) {
	var article core.IncomingArticle
	if err := s.decodeBody(w, r, &article); err != nil {
		s.respondError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if strings.TrimSpace(article.URL) == "" || strings.TrimSpace(article.Title) == "" {
		s.respondError(w, http.StatusBadRequest, "url and title are required")
		return
	}

	result := s.services.Ingestor.Process(r.Context(), article)
	s.respondJSON(w, statusCodeFor(result.Status), result)
}

// handleIngestBatch handles POST /api/articles/batch. It accepts either a bare JSON
// array or {"articles": [...]}.
func (s *Server) handleIngestBatch(w http.ResponseWriter, r *http.Request) {
	var raw json.RawMessage
	if err := s.decodeBody(w, r, &raw); err != nil {
		s.respondError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	var articles []core.IncomingArticle
	if trimmed := strings.TrimSpace(string(raw)); strings.HasPrefix(trimmed, "[") {
		if err := json.Unmarshal(raw, &articles); err != nil {
			s.respondError(w, http.StatusBadRequest, "Invalid article array")
			return
		}
	} else {
		var req BatchRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			s.respondError(w, http.StatusBadRequest, "Invalid batch body")
			return
		}
		articles = req.Articles
	}

	if len(articles) == 0 {
		s.respondError(w, http.StatusBadRequest, "Batch is empty")
		return
	}
	if len(articles) > maxBatchSize {
		s.respondError(w, http.StatusRequestEntityTooLarge, "Batch exceeds "+strconv.Itoa(maxBatchSize)+" articles")
		return
	}

	summary := s.services.Ingestor.ProcessBatch(r.Context(), articles)
	s.respondJSON(w, http.StatusOK, summary)
}

// handleSelection handles POST /api/selection
func (s *Server) handleSelection(w http.ResponseWriter, r *http.Request) {
	var req SelectionRequest
	if err := s.decodeBody(w, r, &req); err != nil {
		s.respondError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	minImportance := selection.DefaultMinImportance
	if req.MinImportanceScore != nil {
		minImportance = *req.MinImportanceScore
	}

	var (
		articles []core.SelectedArticle
		err      error
	)
	switch {
	case len(req.Categories) > 0:
		target := selection.DefaultCategoryTarget
		if req.TotalArticles != nil {
			target = *req.TotalArticles
		}
		articles, err = s.services.Selector.SelectByCategories(r.Context(), req.Categories, req.Subcategories, target, minImportance)
	case len(req.Subcategories) > 0:
		target := selection.DefaultSubcategoryTarget
		if req.TotalArticles != nil {
			target = *req.TotalArticles
		}
		articles, err = s.services.Selector.SelectBySubcategories(r.Context(), req.Subcategories, target, minImportance)
	default:
		articles = []core.SelectedArticle{}
	}
	if err != nil {
		s.log.Error("Selection failed", "error", err)
		s.respondError(w, http.StatusInternalServerError, "Failed to select articles")
		return
	}

	s.respondJSON(w, http.StatusOK, articles)
}

// handleTopStories handles GET /api/top-stories?limit=10&min_importance=7&hours=24
func (s *Server) handleTopStories(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, err1 := queryInt(q.Get("limit"))
	minImportance, err2 := queryInt(q.Get("min_importance"))
	hours, err3 := queryInt(q.Get("hours"))
	if err := errors.Join(err1, err2, err3); err != nil {
		s.respondError(w, http.StatusBadRequest, "limit, min_importance and hours must be integers")
		return
	}

	articles, err := s.services.Selector.TopStories(r.Context(), limit, minImportance, time.Duration(hours)*time.Hour)
	if err != nil {
		s.log.Error("Top stories failed", "error", err)
		s.respondError(w, http.StatusInternalServerError, "Failed to load top stories")
		return
	}
	s.respondJSON(w, http.StatusOK, articles)
}

// handleCategories handles GET /api/categories?days=7
func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	days, err := queryInt(r.URL.Query().Get("days"))
	if err != nil || days < 0 {
		s.respondError(w, http.StatusBadRequest, "days must be a non-negative integer")
		return
	}

	categories, err := s.services.Catalog.Categories(r.Context(), time.Duration(days)*24*time.Hour)
	if err != nil {
		s.log.Error("Category catalog failed", "error", err)
		s.respondError(w, http.StatusInternalServerError, "Failed to load categories")
		return
	}
	s.respondJSON(w, http.StatusOK, categories)
}

// handleStats handles GET /api/stats
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.services.Catalog.Stats(r.Context())
	if err != nil {
		s.log.Error("Stats failed", "error", err)
		s.respondError(w, http.StatusInternalServerError, "Failed to load stats")
		return
	}
	s.respondJSON(w, http.StatusOK, stats)
}

func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	return json.NewDecoder(r.Body).Decode(dst)
}

// queryInt parses an optional integer query parameter; empty means zero
func queryInt(v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	return strconv.Atoi(v)
}

func statusCodeFor(status core.IngestStatus) int {
	switch status {
	case core.StatusNew:
		return http.StatusCreated
	case core.StatusError:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusOK
	}
}
