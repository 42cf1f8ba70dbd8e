package extractor

import (
	"archive/zip"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/kamal-hamza/rfm-cli/internal/core/domain"
)

// maxParagraphs is how many non-empty paragraphs feed the text sample
const maxParagraphs = 10

// DocxExtractor reads OOXML core properties and body text
type DocxExtractor struct{}

type coreProperties struct {
	Title    string `xml:"title"`
	Creator  string `xml:"creator"`
	Subject  string `xml:"subject"`
	Keywords string `xml:"keywords"`
	Revision string `xml:"revision"`
	Created  string `xml:"created"`
}

func (DocxExtractor) Extract(ctx context.Context, rec domain.FileRecord) (domain.Metadata, error) {
	zr, err := zip.OpenReader(rec.Path)
	if err != nil {
		return domain.Metadata{}, fmt.Errorf("open docx: %w", err)
	}
	defer zr.Close()

	var props coreProperties
	if f := findEntry(&zr.Reader, "docProps/core.xml"); f != nil {
		if err := decodeEntry(f, &props); err != nil {
			return domain.Metadata{}, fmt.Errorf("core properties: %w", err)
		}
	}

	var paragraphs []string
	if f := findEntry(&zr.Reader, "word/document.xml"); f != nil {
		if paragraphs, err = readParagraphs(f); err != nil {
			return domain.Metadata{}, fmt.Errorf("document body: %w", err)
		}
	}

	meta := domain.NewMetadata(domain.DocumentDetails{
		Revision:   strings.TrimSpace(props.Revision),
		Paragraphs: len(paragraphs),
	})
	meta.Title = strings.TrimSpace(props.Title)
	meta.Authors = domain.SplitAuthors(props.Creator)
	meta.Subject = strings.TrimSpace(props.Subject)
	meta.Keywords = splitKeywords(props.Keywords)
	if created, err := time.Parse(time.RFC3339, strings.TrimSpace(props.Created)); err == nil {
		meta.Created = created
		meta.Year = created.Year()
	}

	if len(paragraphs) > maxParagraphs {
		paragraphs = paragraphs[:maxParagraphs]
	}
	meta.Text = strings.Join(paragraphs, "\n")

	return meta, nil
}

func findEntry(zr *zip.Reader, name string) *zip.File {
	for _, f := range zr.File {
		if f.Name == name {
			return f
		}
	}
	return nil
}

func decodeEntry(f *zip.File, v any) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()
	return xml.NewDecoder(rc).Decode(v)
}

// readParagraphs collects the text runs (<w:t>) of each <w:p>
func readParagraphs(f *zip.File) ([]string, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	var (
		paragraphs []string
		current    strings.Builder
		inText     bool
	)
	dec := xml.NewDecoder(rc)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return paragraphs, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				current.WriteByte(' ')
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				if p := strings.TrimSpace(current.String()); p != "" {
					paragraphs = append(paragraphs, p)
				}
				current.Reset()
			}
		case xml.CharData:
			if inText {
				current.Write(t)
			}
		}
	}
	return paragraphs, nil
}
