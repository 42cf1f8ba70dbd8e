package domain

import "time"

// Summary is the JSON side output written for every processed item
type Summary struct {
	ID             string            `json:"id"`
	Timestamp      time.Time         `json:"timestamp"`
	OriginalFile   string            `json:"original_file"`
	OrganizedFile  string            `json:"organized_file,omitempty"`
	Status         Status            `json:"processing_status"`
	Classification Classification    `json:"classification"`
	Metadata       Metadata          `json:"metadata"`
	ExternalIDs    map[string]string `json:"external_ids,omitempty"`
	Error          string            `json:"error,omitempty"`
}

// LedgerEntry is one row of the processing ledger
type LedgerEntry struct {
	ID          int64
	SourcePath  string
	DestPath    string
	SHA256      string
	Size        int64
	Category    string
	Course      string
	Confidence  Confidence
	Status      Status
	ZoteroKey   string
	CalibreID   string
	SummaryPath string
	ProcessedAt time.Time
}

// BucketCount is an aggregate used by the stats command
type BucketCount struct {
	Bucket string
	Year   int
	Count  int
	Bytes  int64
}
