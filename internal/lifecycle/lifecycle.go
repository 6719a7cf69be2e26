// Package lifecycle owns the unlock-request state machine. All status
// transitions go through the Controller so the invariants hold at every
// mutation site:
//
//	REQUESTED ──fulfill──▶ PAYMENT_REQUIRED ──confirmPayment──▶ READY
//	    │                         │
//	    └──────────cancel─────────┴──────────▶ FAILED
//
// READY and FAILED are terminal.
package lifecycle

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dharsanguruparan/unlockmate/internal/model"
	"github.com/dharsanguruparan/unlockmate/internal/store"
)

// EventKind names a side effect emitted by a transition.
type EventKind string

// EventNotifyReady asks the notification collaborator to tell the requester
// that their document is fulfilled and awaiting payment.
const EventNotifyReady EventKind = "notify_ready"

// Event is an outbox entry produced by a transition. Events are returned to
// the caller, which hands them to a dispatcher; their delivery never affects
// the committed transition.
type Event struct {
	Kind      EventKind
	RequestID string
	Email     string
	Title     string
}

// Controller applies lifecycle operations against a Store.
type Controller struct {
	store store.Store
}

// New constructs a Controller.
func New(s store.Store) *Controller {
	return &Controller{store: s}
}

// NormalizeURL trims raw, prefixes https:// when no scheme is present and
// validates the result is an absolute http(s) URL with a host.
func NormalizeURL(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", fmt.Errorf("%w: url is empty", model.ErrValidation)
	}
	lower := strings.ToLower(trimmed)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		trimmed = "https://" + trimmed
	}
	parsed, err := url.Parse(trimmed)
	if err != nil || parsed.Host == "" || strings.ContainsAny(parsed.Host, " ") {
		return "", fmt.Errorf("%w: %q is not a valid url", model.ErrValidation, raw)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", fmt.Errorf("%w: unsupported scheme %q", model.ErrValidation, parsed.Scheme)
	}
	// Hosts like "not a url" parse but carry no dot and no port; require at
	// least one dot or an explicit port so obvious garbage is rejected.
	if !strings.Contains(parsed.Host, ".") && parsed.Port() == "" && parsed.Hostname() != "localhost" {
		return "", fmt.Errorf("%w: %q is not a valid url", model.ErrValidation, raw)
	}
	return parsed.String(), nil
}

// Create inserts a fresh request in REQUESTED state.
func (c *Controller) Create(ctx context.Context, rawURL string, metadata *model.DocumentMetadata, email string) (*model.UnlockRequest, error) {
	normalized, err := NormalizeURL(rawURL)
	if err != nil {
		return nil, err
	}
	req := &model.UnlockRequest{
		ID:        uuid.NewString(),
		URL:       normalized,
		Email:     strings.TrimSpace(email),
		Status:    model.StatusRequested,
		Metadata:  metadata,
		CreatedAt: time.Now().UTC(),
	}
	if err := c.store.Insert(ctx, req); err != nil {
		return nil, err
	}
	return req, nil
}

// Fulfill attaches the deliverable URL to a REQUESTED request and moves it
// to PAYMENT_REQUIRED. The returned events carry the notify-ready effect.
func (c *Controller) Fulfill(ctx context.Context, id, unlockedURL string) (*model.UnlockRequest, []Event, error) {
	if strings.TrimSpace(unlockedURL) == "" {
		return nil, nil, fmt.Errorf("%w: deliverable url is empty", model.ErrValidation)
	}
	updated, err := c.store.Update(ctx, id, func(req *model.UnlockRequest) error {
		if req.Status != model.StatusRequested {
			return fmt.Errorf("%w: cannot fulfill request in status %s", model.ErrInvalidTransition, req.Status)
		}
		u := unlockedURL
		req.UnlockedURL = &u
		req.Status = model.StatusPaymentRequired
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	events := []Event{{
		Kind:      EventNotifyReady,
		RequestID: updated.ID,
		Email:     updated.Email,
		Title:     updated.Title(),
	}}
	return updated, events, nil
}

// ConfirmPayment moves a PAYMENT_REQUIRED request to READY and records the
// purchased tier. Repeat confirmations are rejected rather than ignored so
// revenue is never counted twice.
func (c *Controller) ConfirmPayment(ctx context.Context, id string, unlockType model.UnlockType) (*model.UnlockRequest, error) {
	if !unlockType.Valid() {
		return nil, fmt.Errorf("%w: unknown unlock type %q", model.ErrValidation, unlockType)
	}
	return c.store.Update(ctx, id, func(req *model.UnlockRequest) error {
		if req.Status != model.StatusPaymentRequired {
			return fmt.Errorf("%w: cannot confirm payment in status %s", model.ErrInvalidTransition, req.Status)
		}
		t := unlockType
		req.UnlockType = &t
		req.Status = model.StatusReady
		return nil
	})
}

// Cancel forces a non-terminal request to FAILED. Cancelling an already
// FAILED request is a no-op; cancelling a READY request is rejected because
// READY is terminal.
func (c *Controller) Cancel(ctx context.Context, id string) (*model.UnlockRequest, error) {
	return c.store.Update(ctx, id, func(req *model.UnlockRequest) error {
		switch req.Status {
		case model.StatusFailed:
			return nil
		case model.StatusReady:
			return fmt.Errorf("%w: cannot cancel a completed request", model.ErrInvalidTransition)
		}
		req.Status = model.StatusFailed
		// A failed request has no deliverable; dropping the URL keeps the
		// unlockedUrl/status invariant intact.
		req.UnlockedURL = nil
		return nil
	})
}
