// models/metadata.go
package models

import "time"

// ParsedMetadata is what a product header says about itself.
type ParsedMetadata struct {
	SourceFile    string
	ProductID     string
	CoverageStart time.Time
	CoverageEnd   time.Time
}

// Outcome of a single candidate.
type Outcome string

const (
	OutcomeAccepted Outcome = "accepted"
	OutcomeRejected Outcome = "rejected"
)

// RejectReason explains a rejected candidate.
type RejectReason string

const (
	ReasonNone         RejectReason = ""
	ReasonNotFound     RejectReason = "not_found"
	ReasonParseFailure RejectReason = "parse_failure"
	ReasonOutOfRange   RejectReason = "out_of_range"
	ReasonIO           RejectReason = "io_error" // local filesystem failure
)

// ValidationResult is produced once per attempted candidate.
type ValidationResult struct {
	Candidate     CandidateFile
	Outcome       Outcome
	Reason        RejectReason
	Metadata      *ParsedMetadata // nil unless the header parsed
	CanonicalName string
	StoredPath    string
	CommittedAt   time.Time
	Detail        string
}

// Accepted reports whether the candidate reached permanent storage.
func (r ValidationResult) Accepted() bool {
	return r.Outcome == OutcomeAccepted
}

// Rejected builds a rejection result.
func Rejected(c CandidateFile, reason RejectReason, meta *ParsedMetadata, detail string) ValidationResult {
	return ValidationResult{
		Candidate: c,
		Outcome:   OutcomeRejected,
		Reason:    reason,
		Metadata:  meta,
		Detail:    detail,
	}
}
