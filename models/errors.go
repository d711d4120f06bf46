// models/errors.go
package models

import "errors"

var (
	// ErrConnectivity means the archive root could not be reached; the whole batch is abandoned.
	ErrConnectivity = errors.New("archive unreachable")
	// ErrNotFound covers missing files, non-success statuses and fetch timeouts.
	ErrNotFound = errors.New("file not found on archive")
	// ErrParseFailure means the content carried no recognizable header fields.
	ErrParseFailure = errors.New("unparseable product header")
	// ErrOutOfRange means the file parsed but does not cover the requested day.
	ErrOutOfRange = errors.New("coverage does not include target date")
	// ErrBulletinLookup means a structural lookup on a bulletin listing page came back empty.
	ErrBulletinLookup = errors.New("bulletin listing lookup failed")
)
