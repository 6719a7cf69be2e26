// Package fulfill implements the admin fulfillment workflow: resolving the
// deliverable into a retrievable URL, advancing the request through the
// lifecycle and dispatching the ready notification.
package fulfill

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/dharsanguruparan/unlockmate/internal/lifecycle"
	"github.com/dharsanguruparan/unlockmate/internal/model"
	pdfutil "github.com/dharsanguruparan/unlockmate/internal/pdf"
	"github.com/dharsanguruparan/unlockmate/internal/queue"
)

// BlobStore stores uploaded deliverables and yields stable URLs for them.
type BlobStore interface {
	Upload(ctx context.Context, objectKey string, reader io.Reader, size int64, contentType string) error
	ObjectURL(objectKey string) string
}

// Notifier hands notify-ready events to the outbox dispatcher.
type Notifier interface {
	NotifyReady(ctx context.Context, payload queue.NotifyReadyPayload) error
}

// FileUpload is a raw uploaded deliverable.
type FileUpload struct {
	Name        string
	Content     []byte
	ContentType string
}

// Deliverable carries exactly one of an uploaded file or an external link.
// When both are present the uploaded file takes precedence.
type Deliverable struct {
	File         *FileUpload
	ExternalLink string
}

// Service wires deliverable resolution and notification around the
// lifecycle controller.
type Service struct {
	controller *lifecycle.Controller
	blobs      BlobStore
	notifier   Notifier
}

// New constructs a Service. notifier may be nil in local deployments, in
// which case fulfillment succeeds silently without dispatching mail.
func New(controller *lifecycle.Controller, blobs BlobStore, notifier Notifier) *Service {
	return &Service{controller: controller, blobs: blobs, notifier: notifier}
}

// Fulfill resolves the deliverable, transitions the request to
// PAYMENT_REQUIRED and enqueues the notification. Notification failures are
// logged and never roll back the committed transition.
func (s *Service) Fulfill(ctx context.Context, id string, d Deliverable) (*model.UnlockRequest, error) {
	unlockedURL, err := s.resolve(ctx, d)
	if err != nil {
		return nil, err
	}
	updated, events, err := s.controller.Fulfill(ctx, id, unlockedURL)
	if err != nil {
		return nil, err
	}
	s.dispatch(ctx, events)
	return updated, nil
}

func (s *Service) resolve(ctx context.Context, d Deliverable) (string, error) {
	link := strings.TrimSpace(d.ExternalLink)
	if d.File == nil {
		if link == "" {
			return "", fmt.Errorf("%w: provide a file or an external link", model.ErrValidation)
		}
		return lifecycle.NormalizeURL(link)
	}
	if len(d.File.Content) == 0 {
		return "", fmt.Errorf("%w: uploaded file is empty", model.ErrValidation)
	}
	contentType := d.File.ContentType
	if contentType == "" {
		contentType = http.DetectContentType(d.File.Content)
	}
	if contentType == "application/pdf" {
		pages, err := pdfutil.PageCount(d.File.Content)
		if err != nil || pages == 0 {
			return "", fmt.Errorf("%w: uploaded PDF is unreadable", model.ErrValidation)
		}
	}
	objectKey := fmt.Sprintf("uploads/%s/%s", uuid.NewString(), SanitizeFilename(d.File.Name))
	reader := bytes.NewReader(d.File.Content)
	if err := s.blobs.Upload(ctx, objectKey, reader, int64(len(d.File.Content)), contentType); err != nil {
		return "", err
	}
	return s.blobs.ObjectURL(objectKey), nil
}

func (s *Service) dispatch(ctx context.Context, events []lifecycle.Event) {
	if s.notifier == nil {
		return
	}
	for _, ev := range events {
		if ev.Kind != lifecycle.EventNotifyReady {
			continue
		}
		payload := queue.NotifyReadyPayload{RequestID: ev.RequestID, Email: ev.Email, Title: ev.Title}
		if err := s.notifier.NotifyReady(ctx, payload); err != nil {
			log.Printf("enqueue notification for %s failed: %v", ev.RequestID, err)
		}
	}
}

// SanitizeFilename replaces every character outside [a-zA-Z0-9.] with '-'
// so object keys stay portable. Uniqueness comes from the per-upload key
// prefix, not from the name itself.
func SanitizeFilename(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		name = "document"
	}
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}
	return b.String()
}
