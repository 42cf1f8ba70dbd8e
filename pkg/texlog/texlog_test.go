package texlog

import (
	"strings"
	"testing"
)

func TestParse_Success(t *testing.T) {
	output := `
This is pdfTeX, Version 3.14159265-2.6-1.40.20
Output written on Behavior_Study_Article.pdf (3 pages, 12345 bytes).
Transcript written on Behavior_Study_Article.log.
`
	log := Parse(output)

	if !log.HasPDF {
		t.Error("expected HasPDF to be true")
	}
	if len(log.Errors) != 0 {
		t.Errorf("expected 0 errors, got %d", len(log.Errors))
	}
	if log.Summary() != "compilation successful" {
		t.Errorf("unexpected summary %q", log.Summary())
	}
}

func TestParse_FileLineError(t *testing.T) {
	log := Parse("./paper.tex:42: Undefined control sequence.\nl.42 \\invalidcommand\n")

	if len(log.Errors) != 1 {
		t.Fatalf("expected 1 error, got %d", len(log.Errors))
	}
	issue := log.Errors[0]
	if issue.File != "./paper.tex" || issue.Line != 42 {
		t.Errorf("unexpected location %s:%d", issue.File, issue.Line)
	}
	if got := log.ErrorMessages()[0]; got != "./paper.tex:42: Undefined control sequence." {
		t.Errorf("unexpected message %q", got)
	}
}

func TestParse_Classification(t *testing.T) {
	tests := []struct {
		name     string
		output   string
		errors   int
		warnings int
	}{
		{"bang error", "! LaTeX Error: File `missing.sty' not found.", 1, 0},
		{"citation warning", "LaTeX Warning: Citation `key' on page 1 undefined on input line 10.", 0, 1},
		{"package warning", "Package hyperref Warning: Token not allowed in a PDF string (Unicode):", 0, 1},
		{"class warning", "Class report Warning: Unused option.", 0, 1},
		{"undefined reference", "LaTeX Warning: Reference `sec:x' on page 1 undefined on input line 20.", 0, 0},
		{"rerun", "LaTeX Warning: Label(s) may have changed. Rerun to get cross-references right.", 0, 0},
		{"overfull box", `Overfull \hbox (2.34pt too wide) in paragraph at lines 15--16`, 0, 0},
		{"file line warning", "./paper.tex:3: Package natbib Warning: citation undefined", 0, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log := Parse(tt.output)
			if len(log.Errors) != tt.errors || len(log.Warnings) != tt.warnings {
				t.Errorf("got %d errors / %d warnings, want %d / %d",
					len(log.Errors), len(log.Warnings), tt.errors, tt.warnings)
			}
		})
	}
}

func TestSummary(t *testing.T) {
	warn := []Issue{{Severity: SeverityWarning, Message: "w"}}
	fail := []Issue{{Severity: SeverityError, Message: "e"}}

	tests := []struct {
		log  Log
		want string
	}{
		{Log{HasPDF: true, Warnings: warn}, "warning"},
		{Log{HasPDF: true, Errors: fail}, "PDF generated but"},
		{Log{Errors: fail}, "failed"},
	}

	for _, tt := range tests {
		if got := tt.log.Summary(); !strings.Contains(got, tt.want) {
			t.Errorf("Summary() = %q, want it to contain %q", got, tt.want)
		}
	}
}

func TestIssueString(t *testing.T) {
	if got := (Issue{Message: "plain"}).String(); got != "plain" {
		t.Errorf("got %q", got)
	}
	if got := (Issue{File: "a.tex", Message: "m"}).String(); got != "a.tex: m" {
		t.Errorf("got %q", got)
	}
}
