package task

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/recite-app/recite-api/internal/events"
)

// TaskSubmitter accepts tasks for background execution. Implemented by
// TaskRunner; narrowed to an interface so handlers can be tested without a
// running worker pool.
type TaskSubmitter interface {
	Submit(ctx context.Context, task Task) error
}

// TaskFactoryEventHandler implements the events.EventHandler interface.
// It turns note-reparse request events into tasks and hands them to the
// runner. Services emit events instead of touching the task package
// directly, which keeps the dependency arrows pointing one way.
type TaskFactoryEventHandler struct {
	factory   *NoteReparseTaskFactory
	submitter TaskSubmitter
	logger    *slog.Logger
}

// NewTaskFactoryEventHandler creates a new event handler that uses the given
// task factory to create tasks, and submits them to the provided submitter.
func NewTaskFactoryEventHandler(
	factory *NoteReparseTaskFactory,
	submitter TaskSubmitter,
	logger *slog.Logger,
) *TaskFactoryEventHandler {
	return &TaskFactoryEventHandler{
		factory:   factory,
		submitter: submitter,
		logger:    logger.With("component", "task_factory_event_handler"),
	}
}

// HandleEvent processes events by creating and submitting tasks.
func (h *TaskFactoryEventHandler) HandleEvent(
	ctx context.Context,
	event *events.TaskRequestEvent,
) error {
	if event.Type != TaskTypeNoteReparse {
		h.logger.Debug("ignoring event with unsupported type",
			"event_type", event.Type,
			"event_id", event.ID)
		return nil
	}

	var payload struct {
		NoteID string `json:"note_id"`
	}
	if err := event.UnmarshalPayload(&payload); err != nil {
		h.logger.Error("failed to unmarshal payload", "error", err, "event_id", event.ID)
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	noteID, err := uuid.Parse(payload.NoteID)
	if err != nil {
		h.logger.Error("invalid note ID",
			"error", err,
			"note_id", payload.NoteID,
			"event_id", event.ID)
		return fmt.Errorf("invalid note ID: %w", err)
	}

	t, err := h.factory.CreateTask(noteID)
	if err != nil {
		h.logger.Error("failed to create task",
			"error", err,
			"note_id", noteID,
			"event_id", event.ID)
		return fmt.Errorf("failed to create task: %w", err)
	}

	if err := h.submitter.Submit(ctx, t); err != nil {
		h.logger.Error("failed to submit task",
			"error", err,
			"task_id", t.ID(),
			"note_id", noteID,
			"event_id", event.ID)
		return fmt.Errorf("failed to submit task: %w", err)
	}

	h.logger.Info("task created and submitted successfully",
		"task_id", t.ID(),
		"note_id", noteID,
		"event_id", event.ID)
	return nil
}

// Ensure TaskFactoryEventHandler implements events.EventHandler
var _ events.EventHandler = (*TaskFactoryEventHandler)(nil)
