package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"app/internal/model"

	"cloud.google.com/go/pubsub"
)

// Publisher defines an interface for publishing messages.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload []byte) (string, error)
}

// PubSubPublisher is an implementation of Publisher using Google Pub/Sub.
type PubSubPublisher struct {
	client *pubsub.Client
}

// NewPublisher creates a new PubSubPublisher for the given GCP project.
func NewPublisher(ctx context.Context, projectID string) (*PubSubPublisher, error) {
	client, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create Pub/Sub client: %w", err)
	}
	return &PubSubPublisher{client: client}, nil
}

// Publish sends the payload to the given Pub/Sub topic and returns the message ID.
func (p *PubSubPublisher) Publish(ctx context.Context, topic string, payload []byte) (string, error) {
	t := p.client.Topic(topic)
	result := t.Publish(ctx, &pubsub.Message{Data: payload})
	id, err := result.Get(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to publish message to topic %s: %w", topic, err)
	}
	return id, nil
}

// CourseEvent is the payload emitted on course lifecycle transitions.
type CourseEvent struct {
	Type       string    `json:"type"`
	CourseID   string    `json:"course_id,omitempty"`
	Slug       string    `json:"slug,omitempty"`
	Published  bool      `json:"published"`
	OccurredAt time.Time `json:"occurred_at"`
}

// PublishCourseEvent marshals and sends a course lifecycle event.
func PublishCourseEvent(ctx context.Context, p Publisher, topic, eventType string, course model.Course) (string, error) {
	event := CourseEvent{
		Type:       eventType,
		CourseID:   course.ID,
		Slug:       course.Slug,
		Published:  course.Published,
		OccurredAt: time.Now().UTC(),
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return "", fmt.Errorf("failed to marshal course event: %w", err)
	}
	return p.Publish(ctx, topic, payload)
}
