// models/bulletin.go
package models

import "time"

// Bulletin is the latest published version of an IERS bulletin series.
type Bulletin struct {
	Class       BulletinClass
	VersionText string    // date text as shown on the listing page
	VersionDate time.Time // zero when VersionText is not a recognised date
	URL         string
	FileName    string
}

// SolarReport is one NOAA report fetched over FTP.
type SolarReport struct {
	Name    string
	Content []byte
}
