package task

import (
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestTaskQueueEnqueueAndConsume(t *testing.T) {
	t.Parallel()

	queue := NewTaskQueue(2, discardLogger())
	task := NewMockTask(uuid.New(), "mock_task", nil)

	require.NoError(t, queue.Enqueue(task))

	got := <-queue.GetChannel()
	assert.Equal(t, task.ID(), got.ID())
}

func TestTaskQueueFull(t *testing.T) {
	t.Parallel()

	queue := NewTaskQueue(1, discardLogger())
	require.NoError(t, queue.Enqueue(NewMockTask(uuid.New(), "mock_task", nil)))

	err := queue.Enqueue(NewMockTask(uuid.New(), "mock_task", nil))
	assert.ErrorIs(t, err, ErrQueueFull)
}

func TestTaskQueueClosed(t *testing.T) {
	t.Parallel()

	queue := NewTaskQueue(1, discardLogger())
	queue.Close()
	// Double close must be safe.
	queue.Close()

	err := queue.Enqueue(NewMockTask(uuid.New(), "mock_task", nil))
	assert.ErrorIs(t, err, ErrQueueClosed)

	_, open := <-queue.GetChannel()
	assert.False(t, open)
}
