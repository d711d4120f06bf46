// models/epoch.go
package models

import "time"

// TargetEpoch is the requested calendar day expressed in the naming systems the archives use.
type TargetEpoch struct {
	TargetDate   time.Time // UTC midnight
	Year         int
	DayOfYear    string // zero-padded, "001".."366"
	GPSWeek      int
	GPSDayOfWeek int // 0 = Sunday
}

// DateString formats the target date as YYYY-MM-DD.
func (e TargetEpoch) DateString() string {
	return e.TargetDate.Format("2006-01-02")
}

// CandidateFile is one remote file to try for a product and synoptic hour.
type CandidateFile struct {
	Product      ProductKind
	SynopticHour string // "0000", "0600", "1200" or "1800"
	RemoteDir    string // path below the archive base, e.g. the GPS week
	RemoteName   string
	LocalName    string
}
