package lifecycle

import (
	"context"
	"errors"
	"testing"

	"github.com/dharsanguruparan/unlockmate/internal/model"
	"github.com/dharsanguruparan/unlockmate/internal/store"
)

func newController() (*Controller, *store.MemoryStore) {
	s := store.NewMemoryStore()
	return New(s), s
}

func mustCreate(t *testing.T, c *Controller, url string) *model.UnlockRequest {
	t.Helper()
	req, err := c.Create(context.Background(), url, &model.DocumentMetadata{Title: "Calculus Notes"}, "student@example.com")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	return req
}

func TestNormalizeURL(t *testing.T) {
	got, err := NormalizeURL("coursehero.com/doc/1")
	if err != nil {
		t.Fatalf("normalize bare domain: %v", err)
	}
	if got != "https://coursehero.com/doc/1" {
		t.Fatalf("normalized to %q", got)
	}
	if _, err := NormalizeURL("http://studocu.com/x"); err != nil {
		t.Fatalf("existing scheme rejected: %v", err)
	}
	for _, bad := range []string{"", "   ", "not a url", "ftp://host.com/doc"} {
		if _, err := NormalizeURL(bad); !errors.Is(err, model.ErrValidation) {
			t.Fatalf("NormalizeURL(%q) = %v, want ErrValidation", bad, err)
		}
	}
}

func TestCreateSetsInitialState(t *testing.T) {
	c, _ := newController()
	req := mustCreate(t, c, "coursehero.com/doc/1")
	if req.Status != model.StatusRequested {
		t.Fatalf("status = %s, want REQUESTED", req.Status)
	}
	if req.ID == "" || req.CreatedAt.IsZero() {
		t.Fatalf("id/createdAt not assigned: %+v", req)
	}
	if req.UnlockedURL != nil || req.UnlockType != nil {
		t.Fatalf("fresh request carries deliverable fields: %+v", req)
	}
}

func TestCreateRejectsInvalidURL(t *testing.T) {
	c, _ := newController()
	if _, err := c.Create(context.Background(), "not a url", nil, ""); !errors.Is(err, model.ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
}

func TestFulfillTransition(t *testing.T) {
	c, _ := newController()
	req := mustCreate(t, c, "coursehero.com/doc/1")

	updated, events, err := c.Fulfill(context.Background(), req.ID, "https://files.example.com/doc.pdf")
	if err != nil {
		t.Fatalf("fulfill: %v", err)
	}
	if updated.Status != model.StatusPaymentRequired {
		t.Fatalf("status = %s, want PAYMENT_REQUIRED", updated.Status)
	}
	if updated.UnlockedURL == nil || *updated.UnlockedURL != "https://files.example.com/doc.pdf" {
		t.Fatalf("unlockedUrl = %v", updated.UnlockedURL)
	}
	if len(events) != 1 || events[0].Kind != EventNotifyReady {
		t.Fatalf("events = %+v, want one notify_ready", events)
	}
	if events[0].Email != "student@example.com" || events[0].Title != "Calculus Notes" {
		t.Fatalf("event payload = %+v", events[0])
	}
}

func TestFulfillGuards(t *testing.T) {
	c, _ := newController()
	req := mustCreate(t, c, "coursehero.com/doc/1")

	if _, _, err := c.Fulfill(context.Background(), req.ID, "  "); !errors.Is(err, model.ErrValidation) {
		t.Fatalf("empty deliverable: err = %v, want ErrValidation", err)
	}
	if _, _, err := c.Fulfill(context.Background(), "missing", "https://x.example.com"); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("unknown id: err = %v, want ErrNotFound", err)
	}

	// Second fulfillment is rejected and the record keeps the first URL.
	if _, _, err := c.Fulfill(context.Background(), req.ID, "https://a.example.com"); err != nil {
		t.Fatalf("first fulfill: %v", err)
	}
	_, _, err := c.Fulfill(context.Background(), req.ID, "https://b.example.com")
	if !errors.Is(err, model.ErrInvalidTransition) {
		t.Fatalf("refulfill: err = %v, want ErrInvalidTransition", err)
	}
	got, _ := c.store.GetByID(context.Background(), req.ID)
	if *got.UnlockedURL != "https://a.example.com" {
		t.Fatalf("unlockedUrl overwritten: %s", *got.UnlockedURL)
	}
}

func TestConfirmPayment(t *testing.T) {
	c, _ := newController()
	req := mustCreate(t, c, "coursehero.com/doc/1")

	// Not yet fulfilled: reject without mutating.
	if _, err := c.ConfirmPayment(context.Background(), req.ID, model.UnlockSingle); !errors.Is(err, model.ErrInvalidTransition) {
		t.Fatalf("confirm before fulfill: err = %v, want ErrInvalidTransition", err)
	}
	got, _ := c.store.GetByID(context.Background(), req.ID)
	if got.Status != model.StatusRequested || got.UnlockType != nil {
		t.Fatalf("record mutated by rejected confirm: %+v", got)
	}

	if _, _, err := c.Fulfill(context.Background(), req.ID, "https://x.example.com"); err != nil {
		t.Fatalf("fulfill: %v", err)
	}
	updated, err := c.ConfirmPayment(context.Background(), req.ID, model.UnlockLifetime)
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if updated.Status != model.StatusReady || updated.UnlockType == nil || *updated.UnlockType != model.UnlockLifetime {
		t.Fatalf("confirmed request = %+v", updated)
	}

	// Strict: confirming again fails, protecting the revenue count.
	if _, err := c.ConfirmPayment(context.Background(), req.ID, model.UnlockSingle); !errors.Is(err, model.ErrInvalidTransition) {
		t.Fatalf("double confirm: err = %v, want ErrInvalidTransition", err)
	}
	if _, err := c.ConfirmPayment(context.Background(), req.ID, model.UnlockType("WEEKLY")); !errors.Is(err, model.ErrValidation) {
		t.Fatalf("bad type: err = %v, want ErrValidation", err)
	}
}

func TestCancelSemantics(t *testing.T) {
	c, _ := newController()
	ctx := context.Background()

	req := mustCreate(t, c, "coursehero.com/doc/1")
	if _, _, err := c.Fulfill(ctx, req.ID, "https://x.example.com"); err != nil {
		t.Fatalf("fulfill: %v", err)
	}
	cancelled, err := c.Cancel(ctx, req.ID)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancelled.Status != model.StatusFailed {
		t.Fatalf("status = %s, want FAILED", cancelled.Status)
	}
	if cancelled.UnlockedURL != nil {
		t.Fatalf("failed request still carries a deliverable: %+v", cancelled)
	}

	// Cancelling twice is a harmless no-op.
	again, err := c.Cancel(ctx, req.ID)
	if err != nil {
		t.Fatalf("second cancel: %v", err)
	}
	if again.Status != model.StatusFailed {
		t.Fatalf("second cancel status = %s", again.Status)
	}
}

func TestTerminalStatesAreFinal(t *testing.T) {
	c, _ := newController()
	ctx := context.Background()

	req := mustCreate(t, c, "coursehero.com/doc/1")
	if _, _, err := c.Fulfill(ctx, req.ID, "https://x.example.com"); err != nil {
		t.Fatalf("fulfill: %v", err)
	}
	if _, err := c.ConfirmPayment(ctx, req.ID, model.UnlockSingle); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	// READY admits no further transitions, cancel included.
	if _, err := c.Cancel(ctx, req.ID); !errors.Is(err, model.ErrInvalidTransition) {
		t.Fatalf("cancel READY: err = %v, want ErrInvalidTransition", err)
	}
	if _, _, err := c.Fulfill(ctx, req.ID, "https://y.example.com"); !errors.Is(err, model.ErrInvalidTransition) {
		t.Fatalf("fulfill READY: err = %v, want ErrInvalidTransition", err)
	}

	// FAILED admits nothing but the no-op cancel.
	failed := mustCreate(t, c, "studocu.com/doc/2")
	if _, err := c.Cancel(ctx, failed.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if _, _, err := c.Fulfill(ctx, failed.ID, "https://y.example.com"); !errors.Is(err, model.ErrInvalidTransition) {
		t.Fatalf("fulfill FAILED: err = %v, want ErrInvalidTransition", err)
	}
	if _, err := c.ConfirmPayment(ctx, failed.ID, model.UnlockSingle); !errors.Is(err, model.ErrInvalidTransition) {
		t.Fatalf("confirm FAILED: err = %v, want ErrInvalidTransition", err)
	}
}

func TestInvariantsAcrossLifecycle(t *testing.T) {
	c, s := newController()
	ctx := context.Background()

	a := mustCreate(t, c, "coursehero.com/doc/a")
	b := mustCreate(t, c, "coursehero.com/doc/b")
	if _, _, err := c.Fulfill(ctx, a.ID, "https://x.example.com"); err != nil {
		t.Fatalf("fulfill: %v", err)
	}
	if _, _, err := c.Fulfill(ctx, b.ID, "https://y.example.com"); err != nil {
		t.Fatalf("fulfill: %v", err)
	}
	if _, err := c.ConfirmPayment(ctx, a.ID, model.UnlockSingle); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if _, err := c.Cancel(ctx, b.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	all, err := s.GetAll(ctx)
	if err != nil {
		t.Fatalf("getall: %v", err)
	}
	for _, req := range all {
		hasURL := req.UnlockedURL != nil
		wantURL := req.Status == model.StatusPaymentRequired || req.Status == model.StatusReady
		if hasURL != wantURL {
			t.Errorf("request %s: unlockedUrl presence %v in status %s", req.ID, hasURL, req.Status)
		}
		hasType := req.UnlockType != nil
		if hasType != (req.Status == model.StatusReady) {
			t.Errorf("request %s: unlockType presence %v in status %s", req.ID, hasType, req.Status)
		}
	}
}
