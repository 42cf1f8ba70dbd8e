package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Kind identifies which extractor produced a Metadata value
type Kind string

const (
	KindNone     Kind = "none"
	KindPDF      Kind = "pdf"
	KindDocument Kind = "document"
	KindBibTeX   Kind = "bibtex"
	KindEbook    Kind = "ebook"
	KindMedia    Kind = "media"
	KindImage    Kind = "image"
	KindHTML     Kind = "html"
	KindText     Kind = "text"
)

// Metadata is the tagged result of metadata extraction.
// Common bibliographic fields are optional: the zero value means absent.
// Extractor specific fields live in Details, whose concrete type matches Kind.
type Metadata struct {
	Kind     Kind      `json:"kind"`
	Title    string    `json:"title,omitempty"`
	Authors  []string  `json:"authors,omitempty"`
	Year     int       `json:"year,omitempty"`
	Subject  string    `json:"subject,omitempty"`
	Keywords []string  `json:"keywords,omitempty"`
	Created  time.Time `json:"created,omitzero"`
	Text     string    `json:"-"`
	Details  Details   `json:"details,omitempty"`
}

// Details is implemented only by the extractor specific detail types
type Details interface {
	detailsKind() Kind
}

type PDFDetails struct {
	Pages    int    `json:"pages,omitempty"`
	Producer string `json:"producer,omitempty"`
	Creator  string `json:"creator,omitempty"`
}

type DocumentDetails struct {
	Revision   string `json:"revision,omitempty"`
	Paragraphs int    `json:"paragraphs,omitempty"`
}

type BibTeXDetails struct {
	EntryType   string `json:"entry_type"`
	CitationKey string `json:"citation_key"`
	Journal     string `json:"journal,omitempty"`
	Publisher   string `json:"publisher,omitempty"`
	DOI         string `json:"doi,omitempty"`
	URL         string `json:"url,omitempty"`
}

type EbookDetails struct {
	Publisher string   `json:"publisher,omitempty"`
	Language  string   `json:"language,omitempty"`
	Series    string   `json:"series,omitempty"`
	Tags      []string `json:"tags,omitempty"`
}

type MediaDetails struct {
	Duration   time.Duration `json:"duration,omitempty"`
	FormatName string        `json:"format_name,omitempty"`
	VideoCodec string        `json:"video_codec,omitempty"`
	AudioCodec string        `json:"audio_codec,omitempty"`
	Width      int           `json:"width,omitempty"`
	Height     int           `json:"height,omitempty"`
}

type ImageDetails struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Format string `json:"format"`
}

type HTMLDetails struct {
	Description  string `json:"description,omitempty"`
	SiteName     string `json:"site_name,omitempty"`
	CanonicalURL string `json:"canonical_url,omitempty"`
}

func (PDFDetails) detailsKind() Kind      { return KindPDF }
func (DocumentDetails) detailsKind() Kind { return KindDocument }
func (BibTeXDetails) detailsKind() Kind   { return KindBibTeX }
func (EbookDetails) detailsKind() Kind    { return KindEbook }
func (MediaDetails) detailsKind() Kind    { return KindMedia }
func (ImageDetails) detailsKind() Kind    { return KindImage }
func (HTMLDetails) detailsKind() Kind     { return KindHTML }

// UnmarshalJSON restores Details from the concrete type named by Kind
func (m *Metadata) UnmarshalJSON(data []byte) error {
	type plain Metadata
	var raw struct {
		plain
		Details json.RawMessage `json:"details,omitempty"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*m = Metadata(raw.plain)
	m.Details = nil
	if len(raw.Details) == 0 || string(raw.Details) == "null" {
		return nil
	}

	var d Details
	switch m.Kind {
	case KindPDF:
		d = &PDFDetails{}
	case KindDocument:
		d = &DocumentDetails{}
	case KindBibTeX:
		d = &BibTeXDetails{}
	case KindEbook:
		d = &EbookDetails{}
	case KindMedia:
		d = &MediaDetails{}
	case KindImage:
		d = &ImageDetails{}
	case KindHTML:
		d = &HTMLDetails{}
	default:
		return nil
	}
	if err := json.Unmarshal(raw.Details, d); err != nil {
		return fmt.Errorf("metadata details (%s): %w", m.Kind, err)
	}
	m.Details = deref(d)
	return nil
}

func deref(d Details) Details {
	switch v := d.(type) {
	case *PDFDetails:
		return *v
	case *DocumentDetails:
		return *v
	case *BibTeXDetails:
		return *v
	case *EbookDetails:
		return *v
	case *MediaDetails:
		return *v
	case *ImageDetails:
		return *v
	case *HTMLDetails:
		return *v
	}
	return d
}

// EmptyMetadata is returned when nothing could be extracted
func EmptyMetadata() Metadata {
	return Metadata{Kind: KindNone}
}

// NewMetadata starts a metadata value for the given details
func NewMetadata(d Details) Metadata {
	if d == nil {
		return Metadata{Kind: KindText}
	}
	return Metadata{Kind: d.detailsKind(), Details: d}
}

func (m Metadata) HasTitle() bool {
	return strings.TrimSpace(m.Title) != ""
}

func (m Metadata) HasAuthor() bool {
	return len(m.Authors) > 0 && strings.TrimSpace(m.Authors[0]) != ""
}

func (m Metadata) HasYear() bool {
	return m.Year > 0
}

// PrimaryAuthor returns the first listed author or ""
func (m Metadata) PrimaryAuthor() string {
	if !m.HasAuthor() {
		return ""
	}
	return strings.TrimSpace(m.Authors[0])
}

// SearchText returns the first n characters of extracted text
func (m Metadata) SearchText(n int) string {
	if n <= 0 || m.Text == "" {
		return ""
	}
	runes := []rune(m.Text)
	if len(runes) <= n {
		return m.Text
	}
	return string(runes[:n])
}

// SplitAuthors splits "A and B", "A; B" or "A & B" author lists
func SplitAuthors(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	replacer := strings.NewReplacer(" and ", ";", " AND ", ";", "&", ";")
	var authors []string
	for _, part := range strings.Split(replacer.Replace(raw), ";") {
		if a := strings.TrimSpace(part); a != "" {
			authors = append(authors, a)
		}
	}
	return authors
}
