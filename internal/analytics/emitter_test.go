package analytics

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TrollHead15/AstroLiana/pkg/logging"
)

type mockCapturer struct {
	mu     sync.Mutex
	events []Event
	err    error
	block  chan struct{}
	closed bool
}

func (m *mockCapturer) Capture(ctx context.Context, e Event) error {
	if m.block != nil {
		select {
		case <-m.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, e)
	return m.err
}

func (m *mockCapturer) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *mockCapturer) snapshot() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Event(nil), m.events...)
}

func TestDistinctID(t *testing.T) {
	assert.Equal(t, "a@test.com", DistinctID(Properties{PropEmail: " a@test.com ", PropName: "Anna"}))
	assert.Equal(t, "Anna", DistinctID(Properties{PropEmail: "", PropName: "Anna"}))

	id := DistinctID(Properties{PropLeadType: "guide"})
	_, err := uuid.Parse(id)
	assert.NoError(t, err)
	assert.NotEqual(t, id, DistinctID(nil))
}

func TestEmitter_DeliversInOrderAndCloses(t *testing.T) {
	capt := &mockCapturer{}
	fixed := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	e := NewEmitter(capt, EmitterConfig{Clock: func() time.Time { return fixed }, Logger: logging.New("error")})

	e.Track(EventTelegramMessageSent, Properties{PropEmail: "a@test.com", PropLeadType: "guide"})
	e.Track(EventFormSubmitted, Properties{PropEmail: "a@test.com", PropLeadType: "guide"})

	require.NoError(t, e.Close(context.Background()))
	events := capt.snapshot()
	require.Len(t, events, 2)
	assert.Equal(t, EventTelegramMessageSent, events[0].Name)
	assert.Equal(t, EventFormSubmitted, events[1].Name)
	assert.Equal(t, "a@test.com", events[0].DistinctID)
	assert.Equal(t, fixed, events[0].Timestamp)
	assert.True(t, capt.closed)

	// Tracking after Close is silently discarded.
	e.Track(EventEmailSent, nil)
	assert.Len(t, capt.snapshot(), 2)
}

func TestEmitter_TrackNeverBlocksWhenFull(t *testing.T) {
	capt := &mockCapturer{block: make(chan struct{})}
	e := NewEmitter(capt, EmitterConfig{QueueSize: 1, Timeout: time.Second, Logger: logging.New("error")})

	done := make(chan struct{})
	go func() {
		for i := 0; i < 50; i++ {
			e.Track(EventFormSubmitted, nil)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Track blocked")
	}
	assert.Greater(t, e.Dropped(), int64(0))

	close(capt.block)
	require.NoError(t, e.Close(context.Background()))
}

func TestEmitter_CaptureErrorsAreCounted(t *testing.T) {
	capt := &mockCapturer{err: errors.New("posthog down")}
	e := NewEmitter(capt, EmitterConfig{Logger: logging.New("error")})

	e.Track(EventEmailSent, Properties{PropName: "Anna"})
	require.NoError(t, e.Close(context.Background()))
	assert.Equal(t, int64(1), e.Failed())
}

func TestEmitter_CloseRespectsContext(t *testing.T) {
	capt := &mockCapturer{block: make(chan struct{})}
	e := NewEmitter(capt, EmitterConfig{Timeout: time.Minute, Logger: logging.New("error")})
	e.Track(EventFormSubmitted, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, e.Close(ctx), context.DeadlineExceeded)

	close(capt.block)
}

func TestEmitter_NilCapturerIsNoop(t *testing.T) {
	e := NewEmitter(nil, EmitterConfig{})
	assert.False(t, e.Enabled())
	e.Track(EventFormSubmitted, Properties{PropEmail: "a@test.com"})
	assert.NoError(t, e.Close(context.Background()))
}

func TestNewPostHogCapturer_NoKey(t *testing.T) {
	c, err := NewPostHogCapturer(PostHogConfig{})
	require.NoError(t, err)
	assert.Nil(t, c)
}
