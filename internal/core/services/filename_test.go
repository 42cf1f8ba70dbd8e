package services

import (
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/kamal-hamza/rfm-cli/internal/core/domain"
	"github.com/kamal-hamza/rfm-cli/pkg/config"
)

func newDefaultGenerator() *FilenameGenerator {
	n := config.DefaultConfig().FileNaming
	return NewFilenameGenerator(FilenameOptions{
		NoiseWords:      n.NoiseWords,
		GenericNames:    n.GenericNames,
		AddCoursePrefix: n.AddCoursePrefix,
		UseAuthorYear:   n.UseAuthorYear,
		AddTimestamp:    n.AddTimestamp,
		MaxLength:       n.MaxLength,
	})
}

func courseClass(code string) domain.Classification {
	return domain.Classification{Category: "papers", Course: code, Confidence: domain.ConfidenceHigh}
}

func TestFilenameGenerator_Generate(t *testing.T) {
	g := newDefaultGenerator()
	general := domain.General("papers", StrategyScored)

	tests := []struct {
		name string
		file string
		cls  domain.Classification
		want string
	}{
		{"course prefix replaces embedded code", "EDSP505_behavior_plan.pdf", courseClass("EDSP 505"), "EDSP_505_behavior_plan.pdf"},
		{"spaced code anywhere", "notes EDSP 505 week1.pdf", courseClass("EDSP 505"), "EDSP_505_notes_week1.pdf"},
		{"noise prefixes and copy marker", "download_Paper_Final (1).PDF", general, "Final.pdf"},
		{"noise suffix", "thesis draft - download.pdf", general, "thesis_draft.pdf"},
		{"copy word", "report - Copy 2.docx", general, "report.docx"},
		{"diacritics folded", "Café  Über—Notes.docx", general, "Cafe_Uber_Notes.docx"},
		{"separators collapsed", "a..b--c  d.txt", general, "a_b_c_d.txt"},
		{"no extension", "README", general, "README"},
		{"already canonical", "EDSP_505_behavior_plan.pdf", courseClass("EDSP 505"), "EDSP_505_behavior_plan.pdf"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := g.Generate(record(tt.file), domain.EmptyMetadata(), tt.cls)
			if got != tt.want {
				t.Errorf("Generate(%q) = %q, want %q", tt.file, got, tt.want)
			}
		})
	}
}

func TestFilenameGenerator_GenericNames(t *testing.T) {
	g := newDefaultGenerator()
	mod := time.Date(2024, 3, 5, 14, 7, 9, 0, time.Local)

	for _, file := range []string{"document.pdf", "Untitled.pdf", "download (3).pdf", "paper_research.pdf"} {
		rec := record(file)
		rec.ModTime = mod

		got := g.Generate(rec, domain.EmptyMetadata(), domain.General("papers", StrategyScored))
		if got != "unnamed_20240305_140709.pdf" {
			t.Errorf("Generate(%q) = %q, want unnamed_20240305_140709.pdf", file, got)
		}
	}

	rec := record("scan.pdf")
	rec.ModTime = mod
	if got := g.Generate(rec, domain.EmptyMetadata(), courseClass("EDSP 554")); got != "EDSP_554_unnamed_20240305_140709.pdf" {
		t.Errorf("generic course file = %q", got)
	}
}

func TestFilenameGenerator_NoCoursePrefix(t *testing.T) {
	g := NewFilenameGenerator(FilenameOptions{MaxLength: 120})

	got := g.Generate(record("EDSP505 plan.pdf"), domain.EmptyMetadata(), courseClass("EDSP 505"))
	if got != "EDSP505_plan.pdf" {
		t.Errorf("expected name left alone without prefixing, got %q", got)
	}
}

func TestFilenameGenerator_AuthorYear(t *testing.T) {
	g := NewFilenameGenerator(FilenameOptions{UseAuthorYear: true, MaxLength: 120})

	meta := domain.NewMetadata(domain.BibTeXDetails{EntryType: "article"})
	meta.Title = "Positive Behavior Support in Schools"
	meta.Authors = []string{"Jane Q. Doe", "John Smith"}
	meta.Year = 2023

	got := g.Generate(record("x9f8a7.pdf"), meta, domain.General("papers", StrategyScored))
	if got != "Doe_JQ_2023_Positive_Behavior_Support.pdf" {
		t.Errorf("author-year name = %q", got)
	}

	meta.Authors = []string{"Doe, Jane"}
	got = g.Generate(record("x9f8a7.pdf"), meta, domain.General("papers", StrategyScored))
	if got != "Doe_J_2023_Positive_Behavior_Support.pdf" {
		t.Errorf("comma author name = %q", got)
	}

	meta.Year = 0
	got = g.Generate(record("x9f8a7.pdf"), meta, domain.General("papers", StrategyScored))
	if got != "x9f8a7.pdf" {
		t.Errorf("missing year should keep the stem, got %q", got)
	}
}

func TestFilenameGenerator_MaxLength(t *testing.T) {
	g := NewFilenameGenerator(FilenameOptions{AddCoursePrefix: true, MaxLength: 20})

	got := g.Generate(record(strings.Repeat("abc_", 20)+".pdf"), domain.EmptyMetadata(), courseClass("EDSP 505"))
	stem := strings.TrimSuffix(got, ".pdf")
	if n := len([]rune(stem)); n > 20 {
		t.Errorf("stem %q has %d runes, want <= 20", stem, n)
	}
	if !strings.HasPrefix(got, "EDSP_505_") {
		t.Errorf("truncation dropped the course tag: %q", got)
	}
	if strings.HasSuffix(stem, "_") {
		t.Errorf("stem ends with a separator: %q", stem)
	}
}

func TestFilenameGenerator_Idempotent(t *testing.T) {
	g := newDefaultGenerator()
	rng := rand.New(rand.NewSource(11))
	pieces := []string{
		"download", "Paper", "EDSP505", "edsp 554", "notes", "Café", "(1)", " - Copy",
		"week 3", "research", "Final", "--", "..", "  ", "résumé", "data", "file", "v2", "_",
		"Copy", "oe.EDSP_505l", "copy 2",
	}
	classes := []domain.Classification{
		domain.General("papers", StrategyScored),
		courseClass("EDSP 505"),
		courseClass("EDSP 554"),
	}

	for i := 0; i < 500; i++ {
		var b strings.Builder
		for n := 1 + rng.Intn(6); n > 0; n-- {
			b.WriteString(pieces[rng.Intn(len(pieces))])
			if rng.Intn(2) == 0 {
				b.WriteString(" ")
			}
		}
		cls := classes[rng.Intn(len(classes))]
		rec := record(b.String() + ".PDF")
		rec.ModTime = time.Date(2024, 1, 2, 3, 4, 5, 0, time.Local)

		once := g.Generate(rec, domain.EmptyMetadata(), cls)
		again := record(once)
		again.ModTime = rec.ModTime
		twice := g.Generate(again, domain.EmptyMetadata(), cls)

		if once != twice {
			t.Fatalf("not idempotent for %q: %q -> %q", rec.Name, once, twice)
		}
		if strings.ContainsAny(once, " /\\") {
			t.Fatalf("unsafe characters in %q", once)
		}
	}
}

func TestFilenameGenerator_IdempotentEdgeCases(t *testing.T) {
	n := config.DefaultConfig().FileNaming
	short := NewFilenameGenerator(FilenameOptions{
		NoiseWords:      n.NoiseWords,
		GenericNames:    n.GenericNames,
		AddCoursePrefix: true,
		MaxLength:       20,
	})
	stamped := NewFilenameGenerator(FilenameOptions{
		NoiseWords:      n.NoiseWords,
		GenericNames:    n.GenericNames,
		AddCoursePrefix: true,
		AddTimestamp:    true,
		MaxLength:       n.MaxLength,
	})
	modTime := time.Date(2024, 1, 2, 3, 4, 5, 0, time.Local)

	tests := []struct {
		name string
		gen  *FilenameGenerator
		file string
		cls  domain.Classification
		want string
	}{
		{"bare copy", newDefaultGenerator(), "Copy.pdf", courseClass("EDSP 505"), "EDSP_505_unnamed_20240102_030405.pdf"},
		{"numbered copy", newDefaultGenerator(), "copy 2.pdf", domain.General("papers", StrategyScored), "unnamed_20240102_030405.pdf"},
		{"truncation exposes course", short, "oe.EDSP_505l.pdf", courseClass("EDSP 505"), "EDSP_505_oe.pdf"},
		{"timestamp", stamped, "behavior plan.pdf", courseClass("EDSP 505"), "EDSP_505_behavior_plan_20240102_030405.pdf"},
		{"timestamp on generic", stamped, "untitled.pdf", domain.General("papers", StrategyScored), "unnamed_20240102_030405.pdf"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := record(tt.file)
			rec.ModTime = modTime
			once := tt.gen.Generate(rec, domain.EmptyMetadata(), tt.cls)
			if once != tt.want {
				t.Errorf("Generate(%q) = %q, want %q", tt.file, once, tt.want)
			}

			again := record(once)
			again.ModTime = modTime
			if twice := tt.gen.Generate(again, domain.EmptyMetadata(), tt.cls); twice != once {
				t.Errorf("not idempotent: %q -> %q", once, twice)
			}
		})
	}
}
