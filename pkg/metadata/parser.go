package metadata

import (
	"bufio"
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Header is the metadata a text source declares about itself, either as
// LaTeX comment lines or as YAML front matter
type Header struct {
	Title   string
	Authors []string
	Date    string
	Tags    []string
}

// IsZero reports whether nothing was declared
func (h Header) IsZero() bool {
	return h.Title == "" && len(h.Authors) == 0 && h.Date == "" && len(h.Tags) == 0
}

var commentField = regexp.MustCompile(`(?i)^%\s*(title|author|authors|date|tags|keywords)\s*:\s*(.*)$`)

// Parse reads the header of a .tex, .md or .txt file
func Parse(content string) Header {
	content = strings.TrimPrefix(content, "\ufeff")
	if body, ok := frontMatter(content); ok {
		if h, err := parseYAML(body); err == nil {
			return h
		}
	}
	return parseComments(content)
}

// frontMatter returns the text between a leading "---" line and the next one
func frontMatter(content string) (string, bool) {
	if !strings.HasPrefix(content, "---\n") && !strings.HasPrefix(content, "---\r\n") {
		return "", false
	}
	rest := content[strings.IndexByte(content, '\n')+1:]
	for offset := 0; offset < len(rest); {
		end := strings.IndexByte(rest[offset:], '\n')
		line := rest[offset:]
		if end >= 0 {
			line = rest[offset : offset+end]
		}
		if strings.TrimRight(line, "\r") == "---" {
			return rest[:offset], true
		}
		if end < 0 {
			break
		}
		offset += end + 1
	}
	return "", false
}

// stringList accepts both `tags: a, b` and `tags: [a, b]`
type stringList []string

func (l *stringList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		*l = splitList(node.Value, false)
		return nil
	case yaml.SequenceNode:
		var items []string
		if err := node.Decode(&items); err != nil {
			return err
		}
		*l = items
		return nil
	default:
		return fmt.Errorf("line %d: expected a string or a list", node.Line)
	}
}

type yamlHeader struct {
	Title    string     `yaml:"title"`
	Author   stringList `yaml:"author"`
	Authors  stringList `yaml:"authors"`
	Date     string     `yaml:"date"`
	Tags     stringList `yaml:"tags"`
	Keywords stringList `yaml:"keywords"`
}

func parseYAML(body string) (Header, error) {
	var y yamlHeader
	if err := yaml.Unmarshal([]byte(body), &y); err != nil {
		return Header{}, err
	}
	h := Header{
		Title:   strings.TrimSpace(y.Title),
		Authors: append(y.Author, y.Authors...),
		Date:    strings.TrimSpace(y.Date),
		Tags:    append(y.Tags, y.Keywords...),
	}
	return h, nil
}

// parseComments scans leading "% Key: value" lines, stopping at \documentclass
func parseComments(content string) Header {
	var h Header
	scanner := bufio.NewScanner(strings.NewReader(content))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if strings.HasPrefix(line, `\documentclass`) {
			break
		}

		m := commentField.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		value := strings.TrimSpace(m[2])
		switch strings.ToLower(m[1]) {
		case "title":
			h.Title = value
		case "author", "authors":
			h.Authors = append(h.Authors, splitList(value, true)...)
		case "date":
			h.Date = value
		case "tags", "keywords":
			h.Tags = append(h.Tags, splitList(value, false)...)
		}
	}
	return h
}

// splitList splits on commas, and on " and " for author lists
func splitList(s string, authors bool) []string {
	if authors {
		s = strings.ReplaceAll(s, " and ", ",")
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Format renders h as the LaTeX comment block Parse understands
func Format(h Header) string {
	var b strings.Builder
	b.WriteString("% ---\n")
	fmt.Fprintf(&b, "%% title: %s\n", h.Title)
	if len(h.Authors) > 0 {
		fmt.Fprintf(&b, "%% author: %s\n", strings.Join(h.Authors, " and "))
	}
	if h.Date != "" {
		fmt.Fprintf(&b, "%% date: %s\n", h.Date)
	}
	if len(h.Tags) > 0 {
		fmt.Fprintf(&b, "%% tags: %s\n", strings.Join(h.Tags, ", "))
	}
	b.WriteString("% ---\n")
	return b.String()
}
