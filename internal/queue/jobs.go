// Package queue defines the background tasks shared by the API and worker.
package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

const (
	// ListingCopyTask generates listing copy for a property.
	ListingCopyTask = "listing:copy"
)

// ListingCopyPayload is serialized into the task payload.
type ListingCopyPayload struct {
	PropertyID string   `json:"property_id"`
	Versions   []string `json:"versions"`
}

// NewListingCopyTask builds the task for payload.
func NewListingCopyTask(payload ListingCopyPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	return asynq.NewTask(ListingCopyTask, data), nil
}

// Client enqueues tasks on Redis.
type Client struct {
	client *asynq.Client
}

// NewClient wraps an asynq client.
func NewClient(client *asynq.Client) *Client {
	return &Client{client: client}
}

// EnqueueListingCopy enqueues listing copy generation.
func (c *Client) EnqueueListingCopy(ctx context.Context, propertyID string, versions []string) error {
	_, err := c.Enqueue(ctx, ListingCopyPayload{PropertyID: propertyID, Versions: versions})
	return err
}

// Enqueue submits payload and returns the asynq task id.
func (c *Client) Enqueue(ctx context.Context, payload ListingCopyPayload) (string, error) {
	task, err := NewListingCopyTask(payload)
	if err != nil {
		return "", err
	}
	info, err := c.client.EnqueueContext(ctx, task, asynq.MaxRetry(5))
	if err != nil {
		return "", fmt.Errorf("enqueue listing copy task: %w", err)
	}
	return info.ID, nil
}
