package core

import (
	"errors"
	"reflect"
	"testing"
)

func TestClampImportance(t *testing.T) {
	tests := []struct {
		in   int
		want int
	}{
		{0, DefaultImportance},
		{-3, MinImportance},
		{1, 1},
		{7, 7},
		{10, 10},
		{42, MaxImportance},
	}
	for _, tt := range tests {
		if got := ClampImportance(tt.in); got != tt.want {
			t.Errorf("ClampImportance(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestActionValid(t *testing.T) {
	if !ActionJoinExisting.Valid() || !ActionCreateNew.Valid() {
		t.Fatal("expected known actions to be valid")
	}
	if Action("merge").Valid() {
		t.Error("expected unknown action to be invalid")
	}
}

func TestBatchSummaryAdd(t *testing.T) {
	var s BatchSummary
	s.Add(IngestResult{Status: StatusNew})
	s.Add(IngestResult{Status: StatusAppended})
	s.Add(IngestResult{Status: StatusDuplicate})
	s.Add(IngestResult{Status: StatusError, Err: errors.New("boom")})
	s.Add(IngestResult{Status: StatusNew})

	if s.Processed != 5 {
		t.Errorf("Processed = %d, want 5", s.Processed)
	}
	if s.New != 2 || s.Appended != 1 || s.Duplicates != 1 || s.Errors != 1 {
		t.Errorf("unexpected counts: %+v", s)
	}
	if s.New+s.Appended+s.Duplicates+s.Errors != s.Processed {
		t.Error("counts do not add up to processed")
	}
}

func TestNormalizeTags(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		max  int
		want []string
	}{
		{"trims and drops empties", []string{" Apple ", "", "  "}, 4, []string{"Apple"}},
		{"case-insensitive repeats", []string{"AI", "ai", "Ai model"}, 4, []string{"AI", "Ai model"}},
		{"caps length", []string{"a", "b", "c", "d", "e"}, 4, []string{"a", "b", "c", "d"}},
		{"nil input", nil, 4, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeTags(tt.in, tt.max)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("NormalizeTags(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}
