package domain

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestSplitName(t *testing.T) {
	tests := []struct {
		name string
		stem string
		ext  string
	}{
		{"paper.pdf", "paper", "pdf"},
		{"Paper.Final.PDF", "Paper.Final", "pdf"},
		{"README", "README", ""},
		{".bashrc", ".bashrc", ""},
	}

	for _, tt := range tests {
		stem, ext := SplitName(tt.name)
		if stem != tt.stem || ext != tt.ext {
			t.Errorf("SplitName(%q) = (%q, %q), want (%q, %q)", tt.name, stem, ext, tt.stem, tt.ext)
		}
	}
}

func TestNewFileRecord(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "EDSP505_Plan.PDF")
	if err := os.WriteFile(path, []byte("content"), 0644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	rec, err := NewFileRecord(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if rec.Stem != "EDSP505_Plan" {
		t.Errorf("expected stem EDSP505_Plan, got %s", rec.Stem)
	}
	if rec.Ext != "pdf" {
		t.Errorf("expected ext pdf, got %s", rec.Ext)
	}
	if rec.Size != 7 {
		t.Errorf("expected size 7, got %d", rec.Size)
	}

	if _, err := NewFileRecord(dir); !errors.Is(err, ErrNotRegular) {
		t.Errorf("expected ErrNotRegular for a directory, got %v", err)
	}
}

func TestIsHidden(t *testing.T) {
	if !IsHidden(".DS_Store") || !IsHidden("~$report.docx") {
		t.Error("expected dotfiles and office lock files to be hidden")
	}
	if IsHidden("report.docx") {
		t.Error("expected report.docx to be visible")
	}
}

func TestSplitAuthors(t *testing.T) {
	got := SplitAuthors("Jane Doe and John Smith; A. Person")
	if len(got) != 3 || got[0] != "Jane Doe" || got[2] != "A. Person" {
		t.Errorf("unexpected authors: %v", got)
	}
	if SplitAuthors("  ") != nil {
		t.Error("expected nil for blank input")
	}
}
