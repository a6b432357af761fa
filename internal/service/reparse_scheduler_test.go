package service

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/recite-app/recite-api/internal/config"
	"github.com/recite-app/recite-api/internal/events"
	"github.com/recite-app/recite-api/internal/task"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captureEmitter records emitted events for assertions.
type captureEmitter struct {
	mu     sync.Mutex
	events []*events.TaskRequestEvent
}

var _ events.EventEmitter = (*captureEmitter)(nil)

func (c *captureEmitter) EmitEvent(ctx context.Context, event *events.TaskRequestEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
	return nil
}

func (c *captureEmitter) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.events)
}

func (c *captureEmitter) last() *events.TaskRequestEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.events) == 0 {
		return nil
	}
	return c.events[len(c.events)-1]
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestScheduler(emitter events.EventEmitter) *ReparseScheduler {
	return NewReparseScheduler(config.ParserConfig{
		DebounceMs:        20,
		SaveSuppressionMs: 200,
	}, emitter, testLogger())
}

func TestSchedulerFiresAfterDebounce(t *testing.T) {
	t.Parallel()

	emitter := &captureEmitter{}
	s := newTestScheduler(emitter)
	defer s.Stop()

	noteID := uuid.New()
	s.NoteEdited(noteID)

	require.Eventually(t, func() bool { return emitter.count() == 1 },
		2*time.Second, 5*time.Millisecond)

	event := emitter.last()
	assert.Equal(t, task.TaskTypeNoteReparse, event.Type)

	var payload struct {
		NoteID uuid.UUID `json:"note_id"`
	}
	require.NoError(t, event.UnmarshalPayload(&payload))
	assert.Equal(t, noteID, payload.NoteID)
}

func TestSchedulerCoalescesRapidEdits(t *testing.T) {
	t.Parallel()

	emitter := &captureEmitter{}
	s := newTestScheduler(emitter)
	defer s.Stop()

	noteID := uuid.New()
	for i := 0; i < 10; i++ {
		s.NoteEdited(noteID)
		time.Sleep(2 * time.Millisecond)
	}

	require.Eventually(t, func() bool { return emitter.count() >= 1 },
		2*time.Second, 5*time.Millisecond)

	// Give a stray second timer time to fire if one survived.
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 1, emitter.count())
}

func TestSchedulerSaveCancelsPendingReparse(t *testing.T) {
	t.Parallel()

	emitter := &captureEmitter{}
	s := newTestScheduler(emitter)
	defer s.Stop()

	noteID := uuid.New()
	s.NoteEdited(noteID)
	s.NoteSaved(noteID)

	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, 0, emitter.count())
}

func TestSchedulerSuppressesEditsAfterSave(t *testing.T) {
	t.Parallel()

	emitter := &captureEmitter{}
	s := newTestScheduler(emitter)
	defer s.Stop()

	noteID := uuid.New()
	s.NoteSaved(noteID)
	s.NoteEdited(noteID) // inside the suppression window

	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, 0, emitter.count())

	// Other notes are unaffected by this note's suppression window.
	other := uuid.New()
	s.NoteEdited(other)
	require.Eventually(t, func() bool { return emitter.count() == 1 },
		2*time.Second, 5*time.Millisecond)
}

func TestSchedulerNoteRemovedCancelsTimer(t *testing.T) {
	t.Parallel()

	emitter := &captureEmitter{}
	s := newTestScheduler(emitter)
	defer s.Stop()

	noteID := uuid.New()
	s.NoteEdited(noteID)
	s.NoteRemoved(noteID)

	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, 0, emitter.count())
}
