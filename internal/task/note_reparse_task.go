package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

// Common errors
var (
	ErrNilReparser = errors.New("reparse service cannot be nil")
	ErrNilLogger   = errors.New("logger cannot be nil")
	ErrEmptyNoteID = errors.New("note ID cannot be empty")
)

// NoteReparser defines the service operation the task delegates to. The
// note service implements it: parse the note's markdown, rebuild the card
// projection, and reconcile review state, all in one transaction.
type NoteReparser interface {
	ReparseNote(ctx context.Context, noteID uuid.UUID) error
}

// noteReparsePayload represents the serialized data stored in the task
type noteReparsePayload struct {
	NoteID uuid.UUID `json:"note_id"`
}

// NoteReparseTask implements the Task interface for reparsing a note's
// markdown into cards after an edit settles.
type NoteReparseTask struct {
	id       uuid.UUID
	noteID   uuid.UUID
	reparser NoteReparser
	logger   *slog.Logger
	status   TaskStatus
}

// NewNoteReparseTask creates a new note reparse task
func NewNoteReparseTask(
	noteID uuid.UUID,
	reparser NoteReparser,
	logger *slog.Logger,
) (*NoteReparseTask, error) {
	if reparser == nil {
		return nil, ErrNilReparser
	}
	if logger == nil {
		return nil, ErrNilLogger
	}
	if noteID == uuid.Nil {
		return nil, ErrEmptyNoteID
	}

	return &NoteReparseTask{
		id:       uuid.New(),
		noteID:   noteID,
		reparser: reparser,
		logger:   logger.With("task_type", TaskTypeNoteReparse, "note_id", noteID),
		status:   TaskStatusPending,
	}, nil
}

// ID returns the task's unique identifier
func (t *NoteReparseTask) ID() uuid.UUID {
	return t.id
}

// Type returns the task type identifier
func (t *NoteReparseTask) Type() string {
	return TaskTypeNoteReparse
}

// Payload returns the task data as a byte slice
func (t *NoteReparseTask) Payload() []byte {
	data, err := json.Marshal(noteReparsePayload{NoteID: t.noteID})
	if err != nil {
		// If marshal fails, return an empty payload with error logged
		t.logger.Error("failed to marshal task payload", "error", err)
		return []byte{}
	}
	return data
}

// Status returns the current task status
func (t *NoteReparseTask) Status() TaskStatus {
	return t.status
}

// Execute runs the reparse. The heavy lifting lives in the note service;
// the task only tracks lifecycle and reports errors.
func (t *NoteReparseTask) Execute(ctx context.Context) error {
	t.status = TaskStatusProcessing
	t.logger.Info("starting note reparse task")

	if err := ctx.Err(); err != nil {
		t.status = TaskStatusFailed
		t.logger.Error("task cancelled by context", "error", err)
		return fmt.Errorf("task cancelled by context: %w", err)
	}

	if err := t.reparser.ReparseNote(ctx, t.noteID); err != nil {
		t.status = TaskStatusFailed
		t.logger.Error("failed to reparse note", "error", err)
		return fmt.Errorf("failed to reparse note: %w", err)
	}

	t.status = TaskStatusCompleted
	t.logger.Info("note reparse task completed successfully")
	return nil
}

// NoteReparseTaskFactory creates NoteReparseTask instances
type NoteReparseTaskFactory struct {
	reparser NoteReparser
	logger   *slog.Logger
}

// NewNoteReparseTaskFactory creates a new factory for NoteReparseTasks
func NewNoteReparseTaskFactory(reparser NoteReparser, logger *slog.Logger) *NoteReparseTaskFactory {
	return &NoteReparseTaskFactory{
		reparser: reparser,
		logger:   logger.With("component", "note_reparse_task_factory"),
	}
}

// CreateTask creates a new NoteReparseTask for the specified note
func (f *NoteReparseTaskFactory) CreateTask(noteID uuid.UUID) (Task, error) {
	return NewNoteReparseTask(noteID, f.reparser, f.logger)
}

// ReconstructTask rebuilds an executable NoteReparseTask from its persisted
// form, preserving the original task ID. Used by the runner during recovery.
func (f *NoteReparseTaskFactory) ReconstructTask(
	taskType string,
	id uuid.UUID,
	payload []byte,
) (Task, error) {
	if taskType != TaskTypeNoteReparse {
		return nil, fmt.Errorf("unsupported task type: %s", taskType)
	}

	var p noteReparsePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	t, err := NewNoteReparseTask(p.NoteID, f.reparser, f.logger)
	if err != nil {
		return nil, err
	}
	t.id = id
	return t, nil
}
