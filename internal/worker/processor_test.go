package worker

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/hibiken/asynq"

	"github.com/dharsanguruparan/unlockmate/internal/queue"
)

type fakeMailer struct {
	sent []string
	err  error
}

func (f *fakeMailer) Send(to, subject, body string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, to+"|"+subject)
	return nil
}

func notifyTask(t *testing.T, payload queue.NotifyReadyPayload) *asynq.Task {
	t.Helper()
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return asynq.NewTask(queue.NotifyReadyTask, data)
}

func TestHandleNotifyReady(t *testing.T) {
	mail := &fakeMailer{}
	p := NewProcessor(mail)

	task := notifyTask(t, queue.NotifyReadyPayload{RequestID: "r1", Email: "u@example.com", Title: "History Essay"})
	if err := p.handleNotifyReady(context.Background(), task); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(mail.sent) != 1 || !strings.Contains(mail.sent[0], "Document Ready: History Essay") {
		t.Fatalf("sent = %v", mail.sent)
	}
}

func TestHandleNotifyReadySkipsWithoutEmail(t *testing.T) {
	mail := &fakeMailer{err: errors.New("should not be called")}
	p := NewProcessor(mail)

	task := notifyTask(t, queue.NotifyReadyPayload{RequestID: "r1"})
	if err := p.handleNotifyReady(context.Background(), task); err != nil {
		t.Fatalf("handle without email: %v", err)
	}
}

func TestHandleNotifyReadyPropagatesSendFailure(t *testing.T) {
	mail := &fakeMailer{err: errors.New("smtp down")}
	p := NewProcessor(mail)

	task := notifyTask(t, queue.NotifyReadyPayload{RequestID: "r1", Email: "u@example.com"})
	if err := p.handleNotifyReady(context.Background(), task); err == nil {
		t.Fatal("expected error so asynq retries")
	}
}

func TestNotifyReadyMessageFallbackTitle(t *testing.T) {
	subject, body := NotifyReadyMessage("")
	if subject != "Document Ready: UnlockMate Request" {
		t.Fatalf("subject = %q", subject)
	}
	if !strings.Contains(body, "complete your payment") {
		t.Fatalf("body = %q", body)
	}
}
