package models

import "time"

// Document categories. CategoryOther is the default when none is supplied.
const (
	CategoryInsurance    = "Insurance"
	CategoryTestResults  = "Test Results"
	CategoryPrescription = "Prescription"
	CategoryImaging      = "Imaging"
	CategoryLegal        = "Legal"
	CategoryOther        = "Other"
)

// DocumentCategories lists every accepted category value.
var DocumentCategories = []string{
	CategoryInsurance,
	CategoryTestResults,
	CategoryPrescription,
	CategoryImaging,
	CategoryLegal,
	CategoryOther,
}

// Document describes one uploaded, encrypted-at-rest file. Immutable after
// creation except for hard deletion.
//
// Exactly one of Envelope / StorageKey is set: Envelope holds the sealed
// blob inline in the row, StorageKey points at the object-storage copy.
// Neither ever leaves the server: list and upload responses carry metadata
// only, download responses carry the opened plaintext.
type Document struct {
	ID           string
	UserID       string
	OriginalName string
	MimeType     string
	SizeBytes    int64
	Envelope     string
	StorageKey   string
	Category     string
	Notes        string
	Tags         []string
	CreatedAt    time.Time
}

// DocumentMeta is the caller-facing projection of a Document.
type DocumentMeta struct {
	ID           string    `json:"id"`
	OriginalName string    `json:"originalName"`
	MimeType     string    `json:"mimeType"`
	SizeBytes    int64     `json:"sizeBytes"`
	Category     string    `json:"category"`
	Notes        string    `json:"notes"`
	Tags         []string  `json:"tags"`
	CreatedAt    time.Time `json:"createdAt"`
}

func (d *Document) Meta() DocumentMeta {
	tags := d.Tags
	if tags == nil {
		tags = []string{}
	}
	return DocumentMeta{
		ID:           d.ID,
		OriginalName: d.OriginalName,
		MimeType:     d.MimeType,
		SizeBytes:    d.SizeBytes,
		Category:     d.Category,
		Notes:        d.Notes,
		Tags:         tags,
		CreatedAt:    d.CreatedAt,
	}
}
