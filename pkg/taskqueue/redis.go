package taskqueue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const (
	// 任务键前缀
	taskKeyPrefix = "task:"
	// 分析运行任务集合键前缀
	runTasksKeyPrefix = "run_tasks:"
	// 任务记录过期时间（7天）
	defaultTaskExpiry = 7 * 24 * time.Hour
	// WaitForTask轮询间隔
	pollInterval = 200 * time.Millisecond
)

// RedisQueue Redis任务队列实现
// asynq负责投递与重试，任务记录本身存在Redis键值中供查询
type RedisQueue struct {
	client      *asynq.Client
	inspector   *asynq.Inspector
	redisClient *redis.Client
	cfg         *Config
	logger      *logrus.Logger
}

// NewRedisQueue 创建Redis任务队列实例
func NewRedisQueue(cfg *Config) (Queue, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	return &RedisQueue{
		client:      asynq.NewClient(redisOpt),
		inspector:   asynq.NewInspector(redisOpt),
		redisClient: redisClient,
		cfg:         cfg,
		logger:      logger,
	}, nil
}

// Enqueue 将任务加入队列
func (q *RedisQueue) Enqueue(ctx context.Context, taskType TaskType, runID string, payload interface{}) (string, error) {
	return q.enqueue(ctx, taskType, runID, payload)
}

// EnqueueIn 在指定延迟后将任务加入队列
func (q *RedisQueue) EnqueueIn(ctx context.Context, taskType TaskType, runID string, payload interface{}, delay time.Duration) (string, error) {
	return q.enqueue(ctx, taskType, runID, payload, asynq.ProcessIn(delay))
}

// enqueue 保存任务记录并投递asynq任务
// asynq任务的载荷只携带taskID，完整记录从Redis读取
func (q *RedisQueue) enqueue(ctx context.Context, taskType TaskType, runID string, payload interface{}, opts ...asynq.Option) (string, error) {
	taskID := uuid.New().String()

	payloadBytes, err := MarshalPayload(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal payload: %w", err)
	}

	now := time.Now()
	task := &Task{
		ID:         taskID,
		Type:       taskType,
		RunID:      runID,
		Status:     StatusPending,
		Payload:    payloadBytes,
		CreatedAt:  now,
		UpdatedAt:  now,
		MaxRetries: q.cfg.RetryLimit,
	}

	if err := q.saveTask(ctx, task); err != nil {
		return "", fmt.Errorf("failed to save task to redis: %w", err)
	}

	opts = append(opts, asynq.MaxRetry(q.cfg.RetryLimit))
	if _, err := q.client.EnqueueContext(ctx, asynq.NewTask(string(taskType), []byte(taskID)), opts...); err != nil {
		return "", fmt.Errorf("failed to enqueue task: %w", err)
	}

	q.logger.WithFields(logrus.Fields{
		"task_id":   taskID,
		"task_type": taskType,
		"run_id":    runID,
	}).Info("Task enqueued")

	return taskID, nil
}

// GetTask 获取任务信息
func (q *RedisQueue) GetTask(ctx context.Context, taskID string) (*Task, error) {
	data, err := q.redisClient.Get(ctx, taskKeyPrefix+taskID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to get task from redis: %w", err)
	}

	var task Task
	if err := json.Unmarshal(data, &task); err != nil {
		return nil, fmt.Errorf("failed to unmarshal task data: %w", err)
	}
	return &task, nil
}

// GetTasksByRun 获取分析运行相关的所有任务
func (q *RedisQueue) GetTasksByRun(ctx context.Context, runID string) ([]*Task, error) {
	taskIDs, err := q.redisClient.SMembers(ctx, runTasksKeyPrefix+runID).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get run tasks: %w", err)
	}

	tasks := make([]*Task, 0, len(taskIDs))
	for _, taskID := range taskIDs {
		task, err := q.GetTask(ctx, taskID)
		if err != nil {
			if errors.Is(err, ErrTaskNotFound) {
				// 任务记录可能已过期，跳过
				continue
			}
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}

// WaitForTask 轮询等待任务进入终态
func (q *RedisQueue) WaitForTask(ctx context.Context, taskID string, timeout time.Duration) (*Task, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		task, err := q.GetTask(ctx, taskID)
		if err != nil {
			return nil, err
		}
		if task.Status == StatusCompleted || task.Status == StatusFailed {
			return task, nil
		}

		select {
		case <-ctx.Done():
			return nil, ErrTaskTimeout
		case <-ticker.C:
		}
	}
}

// DeleteTask 删除任务
func (q *RedisQueue) DeleteTask(ctx context.Context, taskID string) error {
	task, err := q.GetTask(ctx, taskID)
	if err != nil {
		return err
	}

	if task.RunID != "" {
		if err := q.redisClient.SRem(ctx, runTasksKeyPrefix+task.RunID, taskID).Err(); err != nil {
			return fmt.Errorf("failed to remove task from run tasks: %w", err)
		}
	}

	if err := q.redisClient.Del(ctx, taskKeyPrefix+taskID).Err(); err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}

	// 尚未被处理的任务同时从asynq队列移除，处理中的任务无法删除
	if err := q.inspector.DeleteTask("default", taskID); err != nil {
		q.logger.WithError(err).WithField("task_id", taskID).Debug("Task not found in asynq queue")
	}

	return nil
}

// UpdateTaskStatus 更新任务状态和结果
func (q *RedisQueue) UpdateTaskStatus(ctx context.Context, taskID string, status TaskStatus, result interface{}, errMsg string) error {
	task, err := q.GetTask(ctx, taskID)
	if err != nil {
		return err
	}

	now := time.Now()
	task.Status = status
	task.UpdatedAt = now

	if status == StatusProcessing && task.StartedAt == nil {
		task.StartedAt = &now
		task.Attempts++
	}
	if status == StatusCompleted || status == StatusFailed {
		task.CompletedAt = &now
	}

	if result != nil {
		resultBytes, err := MarshalPayload(result)
		if err != nil {
			return fmt.Errorf("failed to marshal result: %w", err)
		}
		task.Result = resultBytes
	}
	if errMsg != "" {
		task.Error = errMsg
	}

	return q.saveTask(ctx, task)
}

// Close 关闭队列连接
func (q *RedisQueue) Close() error {
	if err := q.client.Close(); err != nil {
		return err
	}
	return q.redisClient.Close()
}

// saveTask 将任务记录保存到Redis
func (q *RedisQueue) saveTask(ctx context.Context, task *Task) error {
	taskData, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to marshal task: %w", err)
	}

	if err := q.redisClient.Set(ctx, taskKeyPrefix+task.ID, taskData, defaultTaskExpiry).Err(); err != nil {
		return fmt.Errorf("failed to save task data: %w", err)
	}

	if task.RunID != "" {
		runKey := runTasksKeyPrefix + task.RunID
		if err := q.redisClient.SAdd(ctx, runKey, task.ID).Err(); err != nil {
			return fmt.Errorf("failed to add task to run tasks: %w", err)
		}
		q.redisClient.Expire(ctx, runKey, defaultTaskExpiry)
	}

	return nil
}

// RedisWorker asynq工作者实现
type RedisWorker struct {
	server   *asynq.Server
	queue    *RedisQueue
	handlers map[TaskType]Handler
	logger   *logrus.Logger
}

// NewRedisWorker 创建Redis工作者
func NewRedisWorker(queue Queue, cfg *Config) (Worker, error) {
	rq, ok := queue.(*RedisQueue)
	if !ok {
		return nil, fmt.Errorf("redis worker requires a redis queue")
	}
	if cfg == nil {
		cfg = rq.cfg
	}

	server := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		},
		asynq.Config{
			Concurrency: cfg.Concurrency,
			Queues:      cfg.Queues,
			RetryDelayFunc: func(n int, err error, task *asynq.Task) time.Duration {
				return cfg.RetryDelay
			},
			Logger: rq.logger,
		},
	)

	return &RedisWorker{
		server:   server,
		queue:    rq,
		handlers: make(map[TaskType]Handler),
		logger:   rq.logger,
	}, nil
}

// RegisterHandler 注册任务处理器
func (w *RedisWorker) RegisterHandler(handler Handler) {
	for _, taskType := range handler.TaskTypes() {
		w.handlers[taskType] = handler
		w.logger.WithField("task_type", taskType).Info("Registered task handler")
	}
}

// Start 启动工作者
func (w *RedisWorker) Start() error {
	mux := asynq.NewServeMux()

	for taskType, handler := range w.handlers {
		h := handler
		mux.HandleFunc(string(taskType), func(ctx context.Context, asynqTask *asynq.Task) error {
			taskID := string(asynqTask.Payload())

			task, err := w.queue.GetTask(ctx, taskID)
			if err != nil {
				w.logger.WithError(err).WithField("task_id", taskID).Error("Failed to load task record")
				return err
			}

			if err := w.queue.UpdateTaskStatus(ctx, taskID, StatusProcessing, nil, ""); err != nil {
				w.logger.WithError(err).WithField("task_id", taskID).Warn("Failed to mark task processing")
			}

			result, err := h.ProcessTask(ctx, task)
			if err != nil {
				if updateErr := w.queue.UpdateTaskStatus(ctx, taskID, StatusFailed, nil, err.Error()); updateErr != nil {
					w.logger.WithError(updateErr).WithField("task_id", taskID).Error("Failed to mark task failed")
				}
				return err
			}

			if err := w.queue.UpdateTaskStatus(ctx, taskID, StatusCompleted, result, ""); err != nil {
				w.logger.WithError(err).WithField("task_id", taskID).Error("Failed to mark task completed")
			}
			return nil
		})
	}

	return w.server.Start(mux)
}

// Stop 停止工作者
func (w *RedisWorker) Stop() {
	w.server.Shutdown()
}

// 在包初始化时注册Redis队列
func init() {
	RegisterQueueFactory("redis", NewRedisQueue)
}
