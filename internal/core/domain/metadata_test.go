package domain

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestMetadata_UnmarshalRestoresDetails(t *testing.T) {
	tests := []struct {
		name string
		in   Metadata
	}{
		{"pdf", Metadata{Kind: KindPDF, Title: "Plan", Details: PDFDetails{Pages: 4, Producer: "Word"}}},
		{"bibtex", Metadata{Kind: KindBibTeX, Authors: []string{"Doe, J."}, Details: BibTeXDetails{EntryType: "article", CitationKey: "doe2024", DOI: "10.1/x"}}},
		{"none", EmptyMetadata()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.in)
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			var got Metadata
			if err := json.Unmarshal(data, &got); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if !reflect.DeepEqual(got, tt.in) {
				t.Errorf("got %+v, want %+v", got, tt.in)
			}
		})
	}
}

func TestMetadata_UnmarshalUnknownKindDropsDetails(t *testing.T) {
	var m Metadata
	if err := json.Unmarshal([]byte(`{"kind":"text","title":"x","details":{"pages":3}}`), &m); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Details != nil || m.Title != "x" {
		t.Errorf("unexpected metadata %+v", m)
	}
}
