// Package state provides file-based persistence for storefront state.
//
// The state file holds every persisted key (the cart, the signed-in user and
// the account registry) as one JSON document. This package provides atomic
// writes, file locking, and backup functionality.
package state

import "time"

// DocumentVersion is the current schema version of the state file.
const DocumentVersion = "1"

// Document is the top-level structure persisted in the state file.
type Document struct {
	// Version is the schema version for forward compatibility. Currently "1".
	Version string `json:"version"`

	// Entries maps storage keys to their stored text. Values are kept
	// verbatim so a malformed entry never prevents reading the others.
	Entries map[string]string `json:"entries"`

	// CreatedAt is when the file was first written.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is when the file was last written.
	UpdatedAt time.Time `json:"updated_at"`
}

// NewDocument returns an empty document stamped with the current time.
func NewDocument() *Document {
	now := time.Now().UTC()
	return &Document{
		Version:   DocumentVersion,
		Entries:   map[string]string{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}
