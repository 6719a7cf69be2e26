// Package model contains the unlock-request entity shared across packages.
package model

import (
	"time"
)

// RequestStatus enumerates the committed lifecycle of an unlock request.
// Transient client-side presentation states are intentionally not modeled;
// only these four values are ever persisted.
type RequestStatus string

const (
	// StatusRequested means the user submitted the request and an admin has
	// not acted on it yet.
	StatusRequested RequestStatus = "REQUESTED"
	// StatusPaymentRequired means a deliverable is attached and the user
	// still needs to pay.
	StatusPaymentRequired RequestStatus = "PAYMENT_REQUIRED"
	// StatusReady means the request is paid and downloadable. Terminal.
	StatusReady RequestStatus = "READY"
	// StatusFailed marks an administratively cancelled request. Terminal.
	StatusFailed RequestStatus = "FAILED"
)

// Valid reports whether s is one of the persisted statuses.
func (s RequestStatus) Valid() bool {
	switch s {
	case StatusRequested, StatusPaymentRequired, StatusReady, StatusFailed:
		return true
	}
	return false
}

// Terminal reports whether no further transition may leave s.
func (s RequestStatus) Terminal() bool {
	return s == StatusReady || s == StatusFailed
}

// UnlockType tags a paid request with the purchased access tier.
type UnlockType string

const (
	UnlockSingle   UnlockType = "SINGLE"
	UnlockLifetime UnlockType = "LIFETIME"
)

// Valid reports whether t is a known tier.
func (t UnlockType) Valid() bool {
	return t == UnlockSingle || t == UnlockLifetime
}

// DocumentMetadata is the analyzer's description of the document behind a
// URL. Immutable once attached to a request.
type DocumentMetadata struct {
	Title    string `json:"title"`
	Platform string `json:"platform"`
	Subject  string `json:"subject"`
	Summary  string `json:"summary"`
}

// UnlockRequest represents one submission in the store.
//
// Invariants maintained by the lifecycle package:
//   - UnlockedURL is set iff Status is PAYMENT_REQUIRED or READY.
//   - UnlockType is set iff Status is READY.
type UnlockRequest struct {
	ID          string            `json:"id"`
	URL         string            `json:"url"`
	Email       string            `json:"email,omitempty"`
	Status      RequestStatus     `json:"status"`
	Metadata    *DocumentMetadata `json:"metadata,omitempty"`
	UnlockedURL *string           `json:"unlockedUrl,omitempty"`
	UnlockType  *UnlockType       `json:"unlockType,omitempty"`
	CreatedAt   time.Time         `json:"createdAt"`
}

// Title returns the metadata title falling back to the source URL, the
// display name used in search and notifications.
func (r *UnlockRequest) Title() string {
	if r.Metadata != nil && r.Metadata.Title != "" {
		return r.Metadata.Title
	}
	return r.URL
}
