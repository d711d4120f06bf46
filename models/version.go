// models/version.go
package models

import "time"

// ProductVersion tracks the most recent committed file for a product.
type ProductVersion struct {
	Product         string     `db:"product" json:"product"` // e.g. "orbit", "ionex", "bulletin-A"
	SourceURL       string     `db:"source_url" json:"source_url"`
	CanonicalName   string     `db:"canonical_name" json:"canonical_name"`
	StoredPath      string     `db:"stored_path" json:"stored_path"`
	CoverageStart   *time.Time `db:"coverage_start" json:"coverage_start,omitempty"`
	CoverageEnd     *time.Time `db:"coverage_end" json:"coverage_end,omitempty"`
	LastCommittedAt time.Time  `db:"last_committed_at" json:"last_committed_at"`
}
