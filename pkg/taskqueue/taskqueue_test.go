package taskqueue

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adarshkasliwal/Adobe-Hackathon-Round2/internal/services"
)

// setupQueue 基于miniredis创建一个队列实例
func setupQueue(t *testing.T) Queue {
	t.Helper()
	srv := miniredis.RunT(t)

	queue, err := NewRedisQueue(&Config{
		RedisAddr:   srv.Addr(),
		Concurrency: 2,
		RetryLimit:  2,
		RetryDelay:  time.Second,
		Queues:      map[string]int{"default": 1},
	})
	require.NoError(t, err)
	t.Cleanup(func() { queue.Close() })

	return queue
}

func TestRedisQueueEnqueue(t *testing.T) {
	queue := setupQueue(t)
	ctx := context.Background()

	payload := &OutlineExtractPayload{
		FilePath: "/data/docs/report.pdf",
		FileName: "report.pdf",
	}

	taskID, err := queue.Enqueue(ctx, TaskOutlineExtract, "run-1", payload)
	require.NoError(t, err)
	require.NotEmpty(t, taskID)

	task, err := queue.GetTask(ctx, taskID)
	require.NoError(t, err)
	assert.Equal(t, taskID, task.ID)
	assert.Equal(t, TaskOutlineExtract, task.Type)
	assert.Equal(t, "run-1", task.RunID)
	assert.Equal(t, StatusPending, task.Status)
	assert.Equal(t, 2, task.MaxRetries)

	var got OutlineExtractPayload
	require.NoError(t, UnmarshalPayload(task.Payload, &got))
	assert.Equal(t, payload.FilePath, got.FilePath)
}

func TestRedisQueueGetTasksByRun(t *testing.T) {
	queue := setupQueue(t)
	ctx := context.Background()

	id1, err := queue.Enqueue(ctx, TaskOutlineExtract, "run-7", &OutlineExtractPayload{FilePath: "/a.pdf"})
	require.NoError(t, err)
	id2, err := queue.Enqueue(ctx, TaskRelevanceRank, "run-7", nil)
	require.NoError(t, err)
	_, err = queue.Enqueue(ctx, TaskOutlineExtract, "run-8", &OutlineExtractPayload{FilePath: "/b.pdf"})
	require.NoError(t, err)

	tasks, err := queue.GetTasksByRun(ctx, "run-7")
	require.NoError(t, err)
	require.Len(t, tasks, 2)

	ids := []string{tasks[0].ID, tasks[1].ID}
	assert.Contains(t, ids, id1)
	assert.Contains(t, ids, id2)

	tasks, err = queue.GetTasksByRun(ctx, "run-none")
	require.NoError(t, err)
	assert.Empty(t, tasks)
}

func TestRedisQueueUpdateTaskStatus(t *testing.T) {
	queue := setupQueue(t)
	ctx := context.Background()

	taskID, err := queue.Enqueue(ctx, TaskRelevanceRank, "run-2", nil)
	require.NoError(t, err)

	t.Run("Processing", func(t *testing.T) {
		require.NoError(t, queue.UpdateTaskStatus(ctx, taskID, StatusProcessing, nil, ""))

		task, err := queue.GetTask(ctx, taskID)
		require.NoError(t, err)
		assert.Equal(t, StatusProcessing, task.Status)
		require.NotNil(t, task.StartedAt)
		assert.Nil(t, task.CompletedAt)
		assert.Equal(t, 1, task.Attempts)
	})

	t.Run("CompletedWithResult", func(t *testing.T) {
		result := &RelevanceRankResult{RunID: "run-2", SectionCount: 5}
		require.NoError(t, queue.UpdateTaskStatus(ctx, taskID, StatusCompleted, result, ""))

		task, err := queue.GetTask(ctx, taskID)
		require.NoError(t, err)
		assert.Equal(t, StatusCompleted, task.Status)
		require.NotNil(t, task.CompletedAt)

		var got RelevanceRankResult
		require.NoError(t, json.Unmarshal(task.Result, &got))
		assert.Equal(t, 5, got.SectionCount)
	})

	t.Run("Failed", func(t *testing.T) {
		failedID, err := queue.Enqueue(ctx, TaskOutlineExtract, "run-2", nil)
		require.NoError(t, err)

		require.NoError(t, queue.UpdateTaskStatus(ctx, failedID, StatusFailed, nil, "file unreadable"))

		task, err := queue.GetTask(ctx, failedID)
		require.NoError(t, err)
		assert.Equal(t, StatusFailed, task.Status)
		assert.Equal(t, "file unreadable", task.Error)
	})

	t.Run("MissingTask", func(t *testing.T) {
		err := queue.UpdateTaskStatus(ctx, "no-such-task", StatusCompleted, nil, "")
		assert.ErrorIs(t, err, ErrTaskNotFound)
	})
}

func TestRedisQueueWaitForTask(t *testing.T) {
	queue := setupQueue(t)
	ctx := context.Background()

	t.Run("AlreadyCompleted", func(t *testing.T) {
		taskID, err := queue.Enqueue(ctx, TaskOutlineExtract, "run-3", nil)
		require.NoError(t, err)
		require.NoError(t, queue.UpdateTaskStatus(ctx, taskID, StatusCompleted, nil, ""))

		task, err := queue.WaitForTask(ctx, taskID, time.Second)
		require.NoError(t, err)
		assert.Equal(t, StatusCompleted, task.Status)
	})

	t.Run("CompletesWhileWaiting", func(t *testing.T) {
		taskID, err := queue.Enqueue(ctx, TaskOutlineExtract, "run-3", nil)
		require.NoError(t, err)

		go func() {
			time.Sleep(300 * time.Millisecond)
			queue.UpdateTaskStatus(context.Background(), taskID, StatusFailed, nil, "boom")
		}()

		task, err := queue.WaitForTask(ctx, taskID, 5*time.Second)
		require.NoError(t, err)
		assert.Equal(t, StatusFailed, task.Status)
	})

	t.Run("Timeout", func(t *testing.T) {
		taskID, err := queue.Enqueue(ctx, TaskOutlineExtract, "run-3", nil)
		require.NoError(t, err)

		_, err = queue.WaitForTask(ctx, taskID, 300*time.Millisecond)
		assert.ErrorIs(t, err, ErrTaskTimeout)
	})
}

func TestRedisQueueDeleteTask(t *testing.T) {
	queue := setupQueue(t)
	ctx := context.Background()

	taskID, err := queue.Enqueue(ctx, TaskOutlineExtract, "run-4", nil)
	require.NoError(t, err)

	require.NoError(t, queue.DeleteTask(ctx, taskID))

	_, err = queue.GetTask(ctx, taskID)
	assert.ErrorIs(t, err, ErrTaskNotFound)

	tasks, err := queue.GetTasksByRun(ctx, "run-4")
	require.NoError(t, err)
	assert.Empty(t, tasks)
}

func TestQueueFactory(t *testing.T) {
	srv := miniredis.RunT(t)

	queue, err := NewQueue("redis", &Config{
		RedisAddr: srv.Addr(),
		Queues:    map[string]int{"default": 1},
	})
	require.NoError(t, err)
	require.NoError(t, queue.Close())

	_, err = NewQueue("kafka", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown queue implementation")
}

func TestOutlineTaskHandler(t *testing.T) {
	handler := NewOutlineTaskHandler(services.NewOutlineService(), nil)
	ctx := context.Background()

	assert.Equal(t, []TaskType{TaskOutlineExtract}, handler.TaskTypes())

	t.Run("ProcessFile", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "notes.md")
		content := "# Quarterly Review\n\n## Revenue\n\nRevenue grew strongly this quarter.\n\n## Expenses\n\nExpenses stayed flat.\n"
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))

		payload, err := MarshalPayload(&OutlineExtractPayload{FilePath: path, FileName: "notes.md"})
		require.NoError(t, err)

		result, err := handler.ProcessTask(ctx, &Task{ID: "t1", Type: TaskOutlineExtract, Payload: payload})
		require.NoError(t, err)

		outlineResult, ok := result.(*OutlineExtractResult)
		require.True(t, ok)
		assert.Greater(t, outlineResult.BlockCount, 0)
	})

	t.Run("InvalidPayload", func(t *testing.T) {
		payload, err := MarshalPayload(&OutlineExtractPayload{})
		require.NoError(t, err)

		_, err = handler.ProcessTask(ctx, &Task{ID: "t2", Payload: payload})
		assert.ErrorIs(t, err, ErrInvalidPayload)
	})
}

func TestRelevanceTaskHandler(t *testing.T) {
	outlineSvc := services.NewOutlineService()
	relevanceSvc := services.NewRelevanceService(outlineSvc, nil)
	handler := NewRelevanceTaskHandler(relevanceSvc, nil)
	ctx := context.Background()

	assert.Equal(t, []TaskType{TaskRelevanceRank}, handler.TaskTypes())

	t.Run("ProcessBatch", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "finance.txt")
		content := "Revenue Analysis\n\nQuarterly revenue grew 18 percent driven by subscriptions.\nOperating margin improved across all regions.\n"
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))

		payload, err := MarshalPayload(&RelevanceRankPayload{
			Persona:     "Financial analyst",
			JobToBeDone: "Summarize revenue trends",
			Documents:   []DocumentRef{{ID: "doc-1", Name: "finance.txt", Path: path}},
		})
		require.NoError(t, err)

		result, err := handler.ProcessTask(ctx, &Task{ID: "t3", RunID: "run-9", Payload: payload})
		require.NoError(t, err)

		rankResult, ok := result.(*RelevanceRankResult)
		require.True(t, ok)
		assert.Equal(t, "run-9", rankResult.RunID)
		assert.Equal(t, 1, rankResult.DocumentCount)
		assert.Greater(t, rankResult.SectionCount, 0)
	})

	t.Run("InvalidPayload", func(t *testing.T) {
		payload, err := MarshalPayload(&RelevanceRankPayload{Persona: "Analyst"})
		require.NoError(t, err)

		_, err = handler.ProcessTask(ctx, &Task{ID: "t4", Payload: payload})
		assert.ErrorIs(t, err, ErrInvalidPayload)
	})
}
