// Package events publishes domain events to Kafka.
package events

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"glimpse/internal/featureflags"
	"glimpse/internal/middleware"
	"glimpse/internal/observability"
)

// Event types.
const (
	PostCreated    = "post.created"
	PostDeleted    = "post.deleted"
	UserFollowed   = "user.followed"
	UserUnfollowed = "user.unfollowed"
	MessageSent    = "message.sent"
)

// Event is the JSON payload written to the events topic.
type Event struct {
	Type       string         `json:"type"`
	ActorID    uint           `json:"actor_id"`
	SubjectID  uint           `json:"subject_id"`
	OccurredAt time.Time      `json:"occurred_at"`
	Data       map[string]any `json:"data,omitempty"`
}

// New stamps an event with the current time.
func New(eventType string, actorID, subjectID uint) Event {
	return Event{Type: eventType, ActorID: actorID, SubjectID: subjectID, OccurredAt: time.Now().UTC()}
}

// Key partitions events by actor so one user's events stay ordered.
func (e Event) Key() []byte {
	return []byte(strconv.FormatUint(uint64(e.ActorID), 10))
}

func (e Event) encode() ([]byte, error) {
	return json.Marshal(e)
}

// Publisher emits events. Publishing is best effort and never fails the
// request that produced the event.
type Publisher interface {
	Publish(ctx context.Context, e Event)
	Close() error
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) {}
func (NopPublisher) Close() error                   { return nil }

type gated struct {
	next  Publisher
	flags *featureflags.Set
}

// Gate forwards events only for actors inside the domain_events rollout.
func Gate(next Publisher, flags *featureflags.Set) Publisher {
	return &gated{next: next, flags: flags}
}

func (g *gated) Publish(ctx context.Context, e Event) {
	if !g.flags.Enabled(featureflags.DomainEvents, e.ActorID) {
		observability.EventsPublished.WithLabelValues(e.Type, "skipped").Inc()
		return
	}
	g.next.Publish(ctx, e)
}

func (g *gated) Close() error { return g.next.Close() }

func logPublishError(ctx context.Context, e Event, err error) {
	middleware.Logger.ErrorContext(ctx, "failed to publish event",
		"event_type", e.Type,
		"actor_id", e.ActorID,
		"error", err,
	)
}
