package handler

import (
	"errors"
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/adarshkasliwal/Adobe-Hackathon-Round2/api/middleware"
	"github.com/adarshkasliwal/Adobe-Hackathon-Round2/api/model"
	"github.com/adarshkasliwal/Adobe-Hackathon-Round2/internal/repository"
	"github.com/adarshkasliwal/Adobe-Hackathon-Round2/internal/services"
	"github.com/adarshkasliwal/Adobe-Hackathon-Round2/pkg/storage"
	"github.com/adarshkasliwal/Adobe-Hackathon-Round2/pkg/taskqueue"
)

// RelevanceHandler 处理相关性分析相关的API请求
type RelevanceHandler struct {
	relevanceSvc *services.RelevanceService // 相关性服务
	fileStorage  storage.Storage            // 文件存储服务
	runRepo      repository.RunRepository   // 运行记录仓储
	queue        taskqueue.Queue            // 任务队列，可为空
	logger       *logrus.Logger             // 日志记录器
}

// NewRelevanceHandler 创建新的相关性处理器
func NewRelevanceHandler(
	relevanceSvc *services.RelevanceService,
	fileStorage storage.Storage,
	runRepo repository.RunRepository,
	queue taskqueue.Queue,
) *RelevanceHandler {
	return &RelevanceHandler{
		relevanceSvc: relevanceSvc,
		fileStorage:  fileStorage,
		runRepo:      runRepo,
		queue:        queue,
		logger:       middleware.GetLogger(),
	}
}

// Analyze 同步执行相关性分析
// POST /api/relevance
func (h *RelevanceHandler) Analyze(c *gin.Context) {
	var req model.RelevanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleError(c, middleware.NewValidationError("invalid relevance request", err.Error()))
		return
	}

	docs, cleanup, err := h.resolveDocuments(c, req.Documents)
	if err != nil {
		middleware.HandleError(c, err)
		return
	}
	defer cleanup()

	result, failures, err := h.relevanceSvc.AnalyzeBatch(c.Request.Context(), docs, req.Persona, req.JobToBeDone)
	if err != nil {
		middleware.HandleError(c, middleware.NewBusinessError("relevance analysis failed", err.Error()))
		return
	}

	h.logger.WithFields(logrus.Fields{
		"documents": len(docs),
		"sections":  len(result.ExtractedSections),
		"failures":  len(failures),
		"degraded":  result.Metadata.Degraded,
	}).Info("Relevance analysis completed")

	c.JSON(http.StatusOK, model.NewSuccessResponse(model.RelevanceResponse{
		Result:   result,
		Failures: model.NewFailureInfos(failures),
	}))
}

// AnalyzeAsync 将相关性分析作为后台任务入队
// POST /api/relevance/async
func (h *RelevanceHandler) AnalyzeAsync(c *gin.Context) {
	if h.queue == nil {
		middleware.HandleError(c, middleware.NewBusinessError("task queue is not configured"))
		return
	}

	var req model.RelevanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleError(c, middleware.NewValidationError("invalid relevance request", err.Error()))
		return
	}

	refs := make([]taskqueue.DocumentRef, 0, len(req.Documents))
	for _, doc := range req.Documents {
		// 后台worker可能运行在独立进程里，临时物化的文件对它不可见
		if doc.Path == "" {
			middleware.HandleError(c, middleware.NewValidationError(
				"async analysis requires path-based document references"))
			return
		}
		name := doc.Name
		if name == "" {
			name = filepath.Base(doc.Path)
		}
		id := doc.FileID
		if id == "" {
			id = name
		}
		refs = append(refs, taskqueue.DocumentRef{ID: id, Name: name, Path: doc.Path})
	}

	runID := uuid.New().String()
	taskID, err := h.queue.Enqueue(c.Request.Context(), taskqueue.TaskRelevanceRank, runID, &taskqueue.RelevanceRankPayload{
		Persona:     req.Persona,
		JobToBeDone: req.JobToBeDone,
		Documents:   refs,
	})
	if err != nil {
		middleware.HandleError(c, middleware.NewInternalError("failed to enqueue analysis task", err.Error()))
		return
	}

	c.JSON(http.StatusAccepted, model.NewSuccessResponse(model.EnqueueResponse{
		TaskID: taskID,
		RunID:  runID,
	}))
}

// Search 在已索引的章节中按语义检索
// POST /api/search
func (h *RelevanceHandler) Search(c *gin.Context) {
	var req model.SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleError(c, middleware.NewValidationError("invalid search request", err.Error()))
		return
	}

	results, err := h.relevanceSvc.SearchSections(c.Request.Context(), req.Query, req.MaxResults)
	if err != nil {
		middleware.HandleError(c, middleware.NewBusinessError("section search failed", err.Error()))
		return
	}

	c.JSON(http.StatusOK, model.NewSuccessResponse(model.SearchResponse{
		Query:   req.Query,
		Results: model.NewSearchResults(results),
	}))
}

// GetRun 查询运行记录详情
// GET /api/runs/:id
func (h *RelevanceHandler) GetRun(c *gin.Context) {
	if h.runRepo == nil {
		middleware.HandleError(c, middleware.NewBusinessError("run repository is not configured"))
		return
	}

	var req model.RunIDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		middleware.HandleError(c, middleware.NewValidationError("missing run id"))
		return
	}

	run, err := h.runRepo.GetByID(req.ID)
	if err != nil {
		if errors.Is(err, repository.ErrRunNotFound) {
			middleware.HandleError(c, middleware.NewNotFoundError("run not found"))
			return
		}
		middleware.HandleError(c, middleware.NewInternalError("failed to load run", err.Error()))
		return
	}

	resp := model.RunStatusResponse{
		RunInfo: model.NewRunInfo(run),
	}
	if len(run.Result) > 0 {
		resp.Result = []byte(run.Result)
	}

	if records, err := h.runRepo.GetDocumentRecords(run.ID); err == nil {
		for _, rec := range records {
			resp.Documents = append(resp.Documents, model.DocumentRecordInfo{
				Document:     rec.Document,
				Status:       string(rec.Status),
				SectionCount: rec.SectionCount,
				Error:        rec.Error,
			})
		}
	}

	c.JSON(http.StatusOK, model.NewSuccessResponse(resp))
}

// ListRuns 列出运行记录
// GET /api/runs
func (h *RelevanceHandler) ListRuns(c *gin.Context) {
	if h.runRepo == nil {
		middleware.HandleError(c, middleware.NewBusinessError("run repository is not configured"))
		return
	}

	var req model.RunListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		middleware.HandleError(c, middleware.NewValidationError("invalid list request", err.Error()))
		return
	}

	filters := make(map[string]interface{})
	if req.Status != "" {
		filters["status"] = req.Status
	}
	if req.Persona != "" {
		filters["persona"] = req.Persona
	}

	page := req.GetPage()
	pageSize := req.GetPageSize()

	runs, total, err := h.runRepo.List((page-1)*pageSize, pageSize, filters)
	if err != nil {
		middleware.HandleError(c, middleware.NewInternalError("failed to list runs", err.Error()))
		return
	}

	infos := make([]model.RunInfo, len(runs))
	for i, run := range runs {
		infos[i] = model.NewRunInfo(run)
	}

	c.JSON(http.StatusOK, model.NewSuccessResponse(model.RunListResponse{
		Total:    total,
		Page:     page,
		PageSize: pageSize,
		Runs:     infos,
	}))
}

// resolveDocuments 把请求中的文档引用解析为服务层输入
// 存储文件ID会被物化为临时文件，cleanup统一清理
func (h *RelevanceHandler) resolveDocuments(c *gin.Context, refs []model.RelevanceDocumentRef) ([]services.DocumentInput, func(), error) {
	var cleanups []func()
	cleanup := func() {
		for _, fn := range cleanups {
			fn()
		}
	}

	docs := make([]services.DocumentInput, 0, len(refs))
	for _, ref := range refs {
		switch {
		case ref.Path != "":
			name := ref.Name
			if name == "" {
				name = filepath.Base(ref.Path)
			}
			docs = append(docs, services.DocumentInput{ID: ref.FileID, Name: name, Path: ref.Path})

		case ref.FileID != "":
			path, storedName, fileCleanup, err := materializeStoredFile(c.Request.Context(), h.fileStorage, ref.FileID)
			if err != nil {
				cleanup()
				if err == storage.ErrNotFound {
					return nil, nil, middleware.NewNotFoundError("document not found: " + ref.FileID)
				}
				return nil, nil, middleware.NewInternalError("failed to read document", err.Error())
			}
			cleanups = append(cleanups, fileCleanup)

			name := ref.Name
			if name == "" {
				name = storedName
			}
			docs = append(docs, services.DocumentInput{ID: ref.FileID, Name: name, Path: path})

		default:
			cleanup()
			return nil, nil, middleware.NewValidationError("document reference needs a file_id or path")
		}
	}

	return docs, cleanup, nil
}
