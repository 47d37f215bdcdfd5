package handlers

import (
	"bytes"
	"strings"
	"testing"

	"storydesk/internal/core"
	"storydesk/internal/persistence"
)

func TestParseArticles(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    int
		wantErr bool
	}{
		{"array", `[{"title": "A", "url": "https://a"}, {"title": "B", "url": "https://b"}]`, 2, false},
		{"wrapped", `{"articles": [{"title": "A", "url": "https://a"}]}`, 1, false},
		{"json lines", "{\"title\": \"A\", \"url\": \"https://a\"}\n\n{\"title\": \"B\", \"url\": \"https://b\"}\n", 2, false},
		{"single object", `{"title": "A", "url": "https://a"}`, 1, false},
		{"empty", "   ", 0, false},
		{"broken line", "{\"title\": \"A\"}\nnot json", 0, true},
		{"broken array", `[{"title": }]`, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseArticles([]byte(tt.input))
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseArticles() error = %v, wantErr %v", err, tt.wantErr)
			}
			if len(got) != tt.want {
				t.Errorf("got %d articles, want %d", len(got), tt.want)
			}
		})
	}
}

func TestRootCommandTree(t *testing.T) {
	root := NewRootCmd()
	for _, path := range [][]string{
		{"ingest"}, {"worker"}, {"poll"}, {"select"}, {"select", "top"},
		{"catalog"}, {"catalog", "stats"}, {"migrate", "up"}, {"migrate", "status"},
		{"migrate", "down"}, {"serve"},
	} {
		cmd, _, err := root.Find(path)
		if err != nil || cmd.Name() != path[len(path)-1] {
			t.Errorf("command %v not found: %v", path, err)
		}
	}
}

func TestWriteSelectionTable(t *testing.T) {
	var buf bytes.Buffer
	articles := []core.SelectedArticle{
		{Title: "Fed holds rates", Category: "Business", Subcategory: "Markets", SourceName: "Wire", ImportanceScore: 8},
	}
	if err := writeSelection(&buf, articles, "table"); err != nil {
		t.Fatalf("writeSelection() error = %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "Fed holds rates") || !strings.Contains(out, "Markets") {
		t.Errorf("unexpected table output:\n%s", out)
	}

	buf.Reset()
	if err := writeSelection(&buf, nil, "json"); err != nil {
		t.Fatalf("writeSelection(json) error = %v", err)
	}
	if strings.TrimSpace(buf.String()) != "null" {
		t.Errorf("json output = %q", buf.String())
	}
}

func TestWriteMigrationStatus(t *testing.T) {
	var buf bytes.Buffer
	writeMigrationStatus(&buf, []persistence.MigrationStatus{
		{Version: 1, Description: "initial schema", Applied: true},
		{Version: 2, Description: "add index"},
	})
	out := buf.String()
	if !strings.Contains(out, "Applied: 1 | Pending: 1 | Total: 2") {
		t.Errorf("unexpected status output:\n%s", out)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("truncate(short) = %q", got)
	}
	if got := truncate("héllo wörld", 5); got != "héll…" {
		t.Errorf("truncate() = %q", got)
	}
}
