// Package worker drains the notification outbox. It runs as its own binary
// so mail delivery never sits on the request path.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/hibiken/asynq"

	"github.com/dharsanguruparan/unlockmate/internal/mailer"
	"github.com/dharsanguruparan/unlockmate/internal/queue"
)

// Processor is plugged into the asynq worker loop.
type Processor struct {
	mail mailer.Mailer
}

// NewProcessor constructs a worker processor.
func NewProcessor(mail mailer.Mailer) *Processor {
	return &Processor{mail: mail}
}

// Handler registers the notification job handler.
func (p *Processor) Handler() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.NotifyReadyTask, p.handleNotifyReady)
	return mux
}

func (p *Processor) handleNotifyReady(ctx context.Context, task *asynq.Task) error {
	var payload queue.NotifyReadyPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	if payload.Email == "" {
		// Requests without a contact address have nothing to deliver.
		log.Printf("request %s fulfilled without email, skipping notification", payload.RequestID)
		return nil
	}
	subject, body := NotifyReadyMessage(payload.Title)
	if err := p.mail.Send(payload.Email, subject, body); err != nil {
		// Returning the error lets asynq retry with backoff.
		return fmt.Errorf("notify %s: %w", payload.RequestID, err)
	}
	log.Printf("notified %s for request %s", payload.Email, payload.RequestID)
	return nil
}

// NotifyReadyMessage renders the fulfillment mail for a document title.
func NotifyReadyMessage(title string) (subject, body string) {
	if title == "" {
		title = "UnlockMate Request"
	}
	subject = fmt.Sprintf("Document Ready: %s", title)
	body = fmt.Sprintf(
		"Hello,\n\nYour document %q has been unlocked and is ready for download.\n\n"+
			"Please return to UnlockMate to complete your payment and access the file.\n\nThank you!",
		title,
	)
	return subject, body
}
