// Package queue defines the outbox task types shared by the API and worker.
package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

// NotifyReadyTask is enqueued each time a request is fulfilled so the worker
// can email the requester.
const NotifyReadyTask = "request:notify_ready"

// NotifyReadyPayload tells the worker who to notify and about what.
type NotifyReadyPayload struct {
	RequestID string `json:"request_id"`
	Email     string `json:"email"`
	Title     string `json:"title"`
}

// EnqueueNotifyReady enqueues a notification job. Delivery failures are the
// worker's problem; the fulfillment transition has already committed.
func EnqueueNotifyReady(ctx context.Context, client *asynq.Client, payload NotifyReadyPayload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	task := asynq.NewTask(NotifyReadyTask, data)
	if _, err := client.EnqueueContext(ctx, task, asynq.MaxRetry(5)); err != nil {
		return fmt.Errorf("enqueue notify task: %w", err)
	}
	return nil
}

// ClientNotifier adapts an asynq client to the fulfillment service's
// Notifier interface.
type ClientNotifier struct {
	client *asynq.Client
}

// NewClientNotifier constructs a ClientNotifier.
func NewClientNotifier(client *asynq.Client) *ClientNotifier {
	return &ClientNotifier{client: client}
}

// NotifyReady enqueues the notify-ready task.
func (n *ClientNotifier) NotifyReady(ctx context.Context, payload NotifyReadyPayload) error {
	return EnqueueNotifyReady(ctx, n.client, payload)
}
