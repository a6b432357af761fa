package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/recite-app/recite-api/internal/config"
	"github.com/recite-app/recite-api/internal/events"
	"github.com/recite-app/recite-api/internal/task"
)

// ReparseScheduler coalesces note edits into background reparse requests.
//
// Every edit arms (or re-arms) a per-note debounce timer; only when the
// timer expires with no further edits does a reparse event fire. Saves
// reparse synchronously on their own path, so a save cancels the pending
// timer and opens a suppression window during which trailing edit
// notifications (already covered by the save's parse) schedule nothing.
type ReparseScheduler struct {
	mu       sync.Mutex
	timers   map[uuid.UUID]*time.Timer
	lastSave map[uuid.UUID]time.Time

	debounce    time.Duration
	suppression time.Duration

	emitter  events.EventEmitter
	logger   *slog.Logger
	timeFunc func() time.Time
}

// NewReparseScheduler creates a scheduler with the configured debounce and
// save-suppression windows.
func NewReparseScheduler(
	cfg config.ParserConfig,
	emitter events.EventEmitter,
	logger *slog.Logger,
) *ReparseScheduler {
	if emitter == nil {
		panic("emitter cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &ReparseScheduler{
		timers:      make(map[uuid.UUID]*time.Timer),
		lastSave:    make(map[uuid.UUID]time.Time),
		debounce:    time.Duration(cfg.DebounceMs) * time.Millisecond,
		suppression: time.Duration(cfg.SaveSuppressionMs) * time.Millisecond,
		emitter:     emitter,
		logger:      logger.With(slog.String("component", "reparse_scheduler")),
		timeFunc:    time.Now,
	}
}

// NoteEdited registers an edit to the note, arming the debounce timer. Edits
// inside the save-suppression window are ignored; the save's own parse
// already reflects them.
func (s *ReparseScheduler) NoteEdited(noteID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if saved, ok := s.lastSave[noteID]; ok && s.timeFunc().Sub(saved) < s.suppression {
		return
	}

	if timer, ok := s.timers[noteID]; ok {
		timer.Stop()
	}
	s.timers[noteID] = time.AfterFunc(s.debounce, func() {
		s.fire(noteID)
	})
}

// NoteSaved records a save, cancelling any pending debounce and opening the
// suppression window.
func (s *ReparseScheduler) NoteSaved(noteID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastSave[noteID] = s.timeFunc()
	if timer, ok := s.timers[noteID]; ok {
		timer.Stop()
		delete(s.timers, noteID)
	}
}

// NoteRemoved drops all scheduler state for the note.
func (s *ReparseScheduler) NoteRemoved(noteID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if timer, ok := s.timers[noteID]; ok {
		timer.Stop()
		delete(s.timers, noteID)
	}
	delete(s.lastSave, noteID)
}

// Stop cancels every pending timer. Pending reparses are dropped, not
// flushed; notes are reconciled again on their next edit or save.
func (s *ReparseScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for noteID, timer := range s.timers {
		timer.Stop()
		delete(s.timers, noteID)
	}
}

// fire emits the reparse request once the debounce window has elapsed.
func (s *ReparseScheduler) fire(noteID uuid.UUID) {
	s.mu.Lock()
	delete(s.timers, noteID)
	s.mu.Unlock()

	payload := struct {
		NoteID uuid.UUID `json:"note_id"`
	}{
		NoteID: noteID,
	}

	event, err := events.NewTaskRequestEvent(task.TaskTypeNoteReparse, payload)
	if err != nil {
		s.logger.Error("failed to create reparse event",
			"error", err,
			"note_id", noteID)
		return
	}

	// Timer goroutine; there is no request context to inherit.
	if err := s.emitter.EmitEvent(context.Background(), event); err != nil {
		s.logger.Error("failed to emit reparse event",
			"error", err,
			"note_id", noteID,
			"event_id", event.ID)
		return
	}

	s.logger.Debug("reparse event emitted",
		"note_id", noteID,
		"event_id", event.ID)
}
