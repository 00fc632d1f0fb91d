// Package domain holds the plain record types the stores exchange with the
// edge layer. Identities are normalized int64 values; the edge layer decides
// the wire format.
package domain

import "time"

// Reference is a hydrated pointer to another entity, carrying enough for
// display without a second lookup.
type Reference struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
	Type  string `json:"type,omitempty"`
	Code  string `json:"code,omitempty"`
	Note  string `json:"note,omitempty"`
}

// DocumentRef names a document by identity together with the caller's
// free-text annotation.
type DocumentRef struct {
	ID   int64  `json:"id"`
	Note string `json:"note,omitempty"`
}

// VersionSummary is one line of an item's version history.
type VersionSummary struct {
	VersionID int64     `json:"versionId"`
	Version   int       `json:"version"`
	CreatedAt time.Time `json:"createdAt"`
	CreatedBy string    `json:"createdBy"`
}
