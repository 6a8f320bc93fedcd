package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/adarshkasliwal/Adobe-Hackathon-Round2/api/middleware"
	"github.com/adarshkasliwal/Adobe-Hackathon-Round2/api/model"
	"github.com/adarshkasliwal/Adobe-Hackathon-Round2/pkg/taskqueue"
)

// TaskHandler 处理后台任务相关的API请求
type TaskHandler struct {
	queue  taskqueue.Queue // 任务队列
	logger *logrus.Logger  // 日志记录器
}

// NewTaskHandler 创建新的任务处理器
func NewTaskHandler(queue taskqueue.Queue) *TaskHandler {
	return &TaskHandler{
		queue:  queue,
		logger: middleware.GetLogger(),
	}
}

// GetTask 查询任务状态
// GET /api/tasks/:id
func (h *TaskHandler) GetTask(c *gin.Context) {
	var req model.TaskIDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		middleware.HandleError(c, middleware.NewValidationError("missing task id"))
		return
	}

	task, err := h.queue.GetTask(c.Request.Context(), req.ID)
	if err != nil {
		if errors.Is(err, taskqueue.ErrTaskNotFound) {
			middleware.HandleError(c, middleware.NewNotFoundError("task not found"))
			return
		}
		middleware.HandleError(c, middleware.NewInternalError("failed to load task", err.Error()))
		return
	}

	c.JSON(http.StatusOK, model.NewSuccessResponse(taskqueue.NewTaskInfo(task)))
}

// WaitTask 等待任务完成
// GET /api/tasks/:id/wait?timeout=30
func (h *TaskHandler) WaitTask(c *gin.Context) {
	var req model.TaskIDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		middleware.HandleError(c, middleware.NewValidationError("missing task id"))
		return
	}

	var waitReq model.TaskWaitRequest
	if err := c.ShouldBindQuery(&waitReq); err != nil {
		middleware.HandleError(c, middleware.NewValidationError("invalid timeout parameter"))
		return
	}

	timeout := 30 * time.Second
	if waitReq.TimeoutSeconds > 0 {
		timeout = time.Duration(waitReq.TimeoutSeconds) * time.Second
	}

	task, err := h.queue.WaitForTask(c.Request.Context(), req.ID, timeout)
	if err != nil {
		switch {
		case errors.Is(err, taskqueue.ErrTaskNotFound):
			middleware.HandleError(c, middleware.NewNotFoundError("task not found"))
		case errors.Is(err, taskqueue.ErrTaskTimeout):
			c.JSON(http.StatusRequestTimeout, model.NewErrorResponse(
				http.StatusRequestTimeout, "task did not complete within the timeout"))
		default:
			middleware.HandleError(c, middleware.NewInternalError("failed to wait for task", err.Error()))
		}
		return
	}

	// 终态任务带回完整结果载荷
	resp := struct {
		*taskqueue.TaskInfo
		Result interface{} `json:"result,omitempty"`
	}{TaskInfo: taskqueue.NewTaskInfo(task)}
	if len(task.Result) > 0 {
		resp.Result = task.Result
	}

	c.JSON(http.StatusOK, model.NewSuccessResponse(resp))
}

// DeleteTask 删除任务
// DELETE /api/tasks/:id
func (h *TaskHandler) DeleteTask(c *gin.Context) {
	var req model.TaskIDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		middleware.HandleError(c, middleware.NewValidationError("missing task id"))
		return
	}

	if err := h.queue.DeleteTask(c.Request.Context(), req.ID); err != nil {
		if errors.Is(err, taskqueue.ErrTaskNotFound) {
			middleware.HandleError(c, middleware.NewNotFoundError("task not found"))
			return
		}
		middleware.HandleError(c, middleware.NewInternalError("failed to delete task", err.Error()))
		return
	}

	h.logger.WithField("task_id", req.ID).Info("Task deleted")
	c.JSON(http.StatusOK, model.NewSuccessResponse(gin.H{"task_id": req.ID}))
}

// ListRunTasks 列出运行关联的任务
// GET /api/runs/:id/tasks
func (h *TaskHandler) ListRunTasks(c *gin.Context) {
	var req model.RunIDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		middleware.HandleError(c, middleware.NewValidationError("missing run id"))
		return
	}

	tasks, err := h.queue.GetTasksByRun(c.Request.Context(), req.ID)
	if err != nil {
		middleware.HandleError(c, middleware.NewInternalError("failed to list run tasks", err.Error()))
		return
	}

	infos := make([]*taskqueue.TaskInfo, len(tasks))
	for i, task := range tasks {
		infos[i] = taskqueue.NewTaskInfo(task)
	}

	c.JSON(http.StatusOK, model.NewSuccessResponse(infos))
}
