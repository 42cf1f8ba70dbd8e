package texlog

import (
	"bufio"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Severity of a log entry
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
)

// Issue is one error or warning found in compiler output
type Issue struct {
	Severity Severity
	File     string
	Line     int
	Message  string
}

// String renders "file:line: message" when a location is known
func (i Issue) String() string {
	if i.File == "" {
		return i.Message
	}
	if i.Line > 0 {
		return fmt.Sprintf("%s:%d: %s", i.File, i.Line, i.Message)
	}
	return fmt.Sprintf("%s: %s", i.File, i.Message)
}

// Log is the digested output of one LaTeX run
type Log struct {
	Errors   []Issue
	Warnings []Issue
	HasPDF   bool
}

var (
	// ! LaTeX Error: File `missing.sty' not found.
	bangPattern = regexp.MustCompile(`^!\s+(.+)$`)

	// ./paper.tex:42: Undefined control sequence. (-file-line-error)
	fileLinePattern = regexp.MustCompile(`^([^:]+\.tex):(\d+):\s*(.+)$`)

	warningPattern = regexp.MustCompile(`^(?:LaTeX|Package\s+\w+|Class\s+\w+)\s+Warning:\s*(.+)$`)

	boxPattern = regexp.MustCompile(`^(?:Overfull|Underfull)\s+\\[hv]box`)

	pdfWrittenPattern = regexp.MustCompile(`Output written on .*\.pdf`)
)

// Parse scans latexmk or tectonic output
func Parse(output string) *Log {
	log := &Log{}

	scanner := bufio.NewScanner(strings.NewReader(output))
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")

		if pdfWrittenPattern.MatchString(line) {
			log.HasPDF = true
		}
		if boxPattern.MatchString(line) {
			continue
		}

		if m := fileLinePattern.FindStringSubmatch(line); m != nil {
			n, _ := strconv.Atoi(m[2])
			issue := Issue{Severity: SeverityError, File: m[1], Line: n, Message: m[3]}
			if strings.Contains(strings.ToLower(m[3]), "warning") {
				issue.Severity = SeverityWarning
				log.Warnings = append(log.Warnings, issue)
			} else {
				log.Errors = append(log.Errors, issue)
			}
			continue
		}

		if m := bangPattern.FindStringSubmatch(line); m != nil {
			log.Errors = append(log.Errors, Issue{Severity: SeverityError, Message: m[1]})
			continue
		}

		if m := warningPattern.FindStringSubmatch(line); m != nil {
			if benign(m[1]) {
				continue
			}
			log.Warnings = append(log.Warnings, Issue{Severity: SeverityWarning, Message: m[1]})
		}
	}

	return log
}

// latexmk reruns until these settle
func benign(msg string) bool {
	if strings.Contains(msg, "Reference") && strings.Contains(msg, "undefined") {
		return true
	}
	return strings.Contains(msg, "Label(s) may have changed")
}

// ErrorMessages flattens the errors for display
func (l *Log) ErrorMessages() []string {
	return messages(l.Errors)
}

// WarningMessages flattens the warnings for display
func (l *Log) WarningMessages() []string {
	return messages(l.Warnings)
}

func messages(issues []Issue) []string {
	out := make([]string, 0, len(issues))
	for _, i := range issues {
		out = append(out, i.String())
	}
	return out
}

// Summary is a one-line description of the run
func (l *Log) Summary() string {
	switch {
	case l.HasPDF && len(l.Errors) == 0 && len(l.Warnings) == 0:
		return "compilation successful"
	case l.HasPDF && len(l.Errors) == 0:
		return fmt.Sprintf("PDF generated with %d warning(s)", len(l.Warnings))
	case l.HasPDF:
		return fmt.Sprintf("PDF generated but with %d error(s)", len(l.Errors))
	default:
		return fmt.Sprintf("compilation failed: %d error(s)", len(l.Errors))
	}
}
