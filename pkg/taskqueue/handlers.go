package taskqueue

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/adarshkasliwal/Adobe-Hackathon-Round2/internal/services"
)

// OutlineTaskHandler 大纲提取任务处理器
// 包装大纲服务，把单文档解析放到后台执行
type OutlineTaskHandler struct {
	outlineSvc *services.OutlineService
	logger     *logrus.Logger
}

// NewOutlineTaskHandler 创建大纲提取任务处理器
func NewOutlineTaskHandler(outlineSvc *services.OutlineService, logger *logrus.Logger) *OutlineTaskHandler {
	if logger == nil {
		logger = logrus.New()
	}
	return &OutlineTaskHandler{
		outlineSvc: outlineSvc,
		logger:     logger,
	}
}

// TaskTypes 返回支持的任务类型
func (h *OutlineTaskHandler) TaskTypes() []TaskType {
	return []TaskType{TaskOutlineExtract}
}

// ProcessTask 处理大纲提取任务
func (h *OutlineTaskHandler) ProcessTask(ctx context.Context, task *Task) (interface{}, error) {
	var payload OutlineExtractPayload
	if err := UnmarshalPayload(task.Payload, &payload); err != nil {
		return nil, ErrInvalidPayload
	}
	if payload.FilePath == "" {
		return nil, ErrInvalidPayload
	}

	outline, blocks, err := h.outlineSvc.AnalyzeFile(payload.FilePath)
	if err != nil {
		return nil, fmt.Errorf("outline extraction failed: %w", err)
	}

	h.logger.WithFields(logrus.Fields{
		"task_id":  task.ID,
		"file":     payload.FileName,
		"headings": len(outline.Outline),
	}).Info("Outline task completed")

	return &OutlineExtractResult{
		Title:      outline.Title,
		Outline:    outline.Outline,
		BlockCount: len(blocks),
	}, nil
}

// RelevanceTaskHandler 相关性排序任务处理器
// 包装相关性服务，把整批文档的分析放到后台执行；
// 完整结果由服务层持久化，任务记录里只存运行摘要
type RelevanceTaskHandler struct {
	relevanceSvc *services.RelevanceService
	logger       *logrus.Logger
}

// NewRelevanceTaskHandler 创建相关性排序任务处理器
func NewRelevanceTaskHandler(relevanceSvc *services.RelevanceService, logger *logrus.Logger) *RelevanceTaskHandler {
	if logger == nil {
		logger = logrus.New()
	}
	return &RelevanceTaskHandler{
		relevanceSvc: relevanceSvc,
		logger:       logger,
	}
}

// TaskTypes 返回支持的任务类型
func (h *RelevanceTaskHandler) TaskTypes() []TaskType {
	return []TaskType{TaskRelevanceRank}
}

// ProcessTask 处理相关性排序任务
func (h *RelevanceTaskHandler) ProcessTask(ctx context.Context, task *Task) (interface{}, error) {
	var payload RelevanceRankPayload
	if err := UnmarshalPayload(task.Payload, &payload); err != nil {
		return nil, ErrInvalidPayload
	}
	if payload.Persona == "" || payload.JobToBeDone == "" || len(payload.Documents) == 0 {
		return nil, ErrInvalidPayload
	}

	docs := make([]services.DocumentInput, 0, len(payload.Documents))
	for _, ref := range payload.Documents {
		docs = append(docs, services.DocumentInput{
			ID:   ref.ID,
			Name: ref.Name,
			Path: ref.Path,
		})
	}

	result, failures, err := h.relevanceSvc.AnalyzeBatch(ctx, docs, payload.Persona, payload.JobToBeDone)
	if err != nil {
		return nil, fmt.Errorf("relevance analysis failed: %w", err)
	}

	topSections := make([]string, 0, len(result.ExtractedSections))
	for _, sec := range result.ExtractedSections {
		topSections = append(topSections, sec.SectionTitle)
	}

	h.logger.WithFields(logrus.Fields{
		"task_id":  task.ID,
		"run_id":   task.RunID,
		"sections": len(result.ExtractedSections),
		"failed":   len(failures),
		"degraded": result.Metadata.Degraded,
	}).Info("Relevance task completed")

	return &RelevanceRankResult{
		RunID:         task.RunID,
		Degraded:      result.Metadata.Degraded,
		SectionCount:  len(result.ExtractedSections),
		SummaryCount:  len(result.SubSectionAnalysis),
		SkippedCount:  len(result.Metadata.Skipped),
		FailedCount:   len(failures),
		DocumentCount: len(payload.Documents),
		TopSections:   topSections,
	}, nil
}
