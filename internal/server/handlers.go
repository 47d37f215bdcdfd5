package server

import (
	"encoding/json"
	"net/http"
	"time"
)

// Health check response
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// Status response
type StatusResponse struct {
	Uptime     string           `json:"uptime"`
	Database   DatabaseStatus   `json:"database"`
	Embeddings *EmbeddingStatus `json:"embeddings,omitempty"`
}

// DatabaseStatus summarizes the store
type DatabaseStatus struct {
	Connected bool `json:"connected"`
	Articles  int  `json:"articles"`
	Stories   int  `json:"stories"`
}

// EmbeddingStatus describes the vector index
type EmbeddingStatus struct {
	Total      int64  `json:"total"`
	Dimensions int    `json:"dimensions"`
	IndexType  string `json:"index_type"`
}

var serverStartTime = time.Now()

// handleHealth handles the /health endpoint
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]string)

	if err := s.services.DB.Ping(r.Context()); err != nil {
		checks["database"] = "error"
		s.respondJSON(w, http.StatusServiceUnavailable, HealthResponse{
			Status: "unhealthy",
			Checks: checks,
		})
		return
	}

	checks["database"] = "ok"
	s.respondJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
		Checks: checks,
	})
}

// handleStatus handles the /api/status endpoint
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := StatusResponse{Uptime: time.Since(serverStartTime).Round(time.Second).String()}

	stats, err := s.services.Catalog.Stats(r.Context())
	if err != nil {
		s.log.Warn("Failed to load store stats", "error", err)
	} else {
		status.Database = DatabaseStatus{
			Connected: true,
			Articles:  stats.TotalArticles,
			Stories:   stats.UniqueStories,
		}
	}

	if s.services.Vectors != nil {
		vs, err := s.services.Vectors.GetStats(r.Context())
		if err != nil {
			s.log.Warn("Failed to load embedding stats", "error", err)
		} else {
			status.Embeddings = &EmbeddingStatus{
				Total:      vs.TotalEmbeddings,
				Dimensions: vs.EmbeddingDimensions,
				IndexType:  vs.IndexType,
			}
		}
	}

	s.respondJSON(w, http.StatusOK, status)
}

// respondJSON writes a JSON response
func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error("Failed to encode JSON response", "error", err)
	}
}

// respondError writes a JSON error envelope
func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]interface{}{
		"error": map[string]interface{}{
			"status":  status,
			"message": message,
		},
	})
}
