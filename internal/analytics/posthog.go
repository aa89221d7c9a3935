package analytics

import (
	"context"
	"fmt"
	"strings"

	"github.com/posthog/posthog-go"
)

// PostHogConfig holds PostHog client settings.
type PostHogConfig struct {
	APIKey string
	Host   string
}

// PostHogCapturer forwards events to PostHog. The underlying client batches
// and flushes on its own; Close flushes what is left.
type PostHogCapturer struct {
	client posthog.Client
}

// NewPostHogCapturer returns nil when no API key is configured.
func NewPostHogCapturer(cfg PostHogConfig) (*PostHogCapturer, error) {
	key := strings.TrimSpace(cfg.APIKey)
	if key == "" {
		return nil, nil
	}
	client, err := posthog.NewWithConfig(key, posthog.Config{
		Endpoint: strings.TrimSpace(cfg.Host),
	})
	if err != nil {
		return nil, fmt.Errorf("analytics: create posthog client: %w", err)
	}
	return &PostHogCapturer{client: client}, nil
}

// Capture enqueues the event with the PostHog client.
func (p *PostHogCapturer) Capture(ctx context.Context, e Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	props := posthog.NewProperties()
	for k, v := range e.Properties {
		props.Set(k, v)
	}
	err := p.client.Enqueue(posthog.Capture{
		DistinctId: e.DistinctID,
		Event:      e.Name,
		Timestamp:  e.Timestamp,
		Properties: props,
	})
	if err != nil {
		return fmt.Errorf("analytics: posthog enqueue %s: %w", e.Name, err)
	}
	return nil
}

// Close flushes pending events.
func (p *PostHogCapturer) Close() error {
	return p.client.Close()
}

var _ Capturer = (*PostHogCapturer)(nil)
