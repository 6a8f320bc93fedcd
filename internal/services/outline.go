// Package services 组合提取、分类、切分、打分和摘要组件，提供对外的业务服务。
package services

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/adarshkasliwal/Adobe-Hackathon-Round2/internal/cache"
	"github.com/adarshkasliwal/Adobe-Hackathon-Round2/internal/classifier"
	"github.com/adarshkasliwal/Adobe-Hackathon-Round2/internal/extractor"
	"github.com/adarshkasliwal/Adobe-Hackathon-Round2/internal/models"
	"github.com/adarshkasliwal/Adobe-Hackathon-Round2/internal/outline"
	"github.com/adarshkasliwal/Adobe-Hackathon-Round2/internal/segmenter"
	"github.com/sirupsen/logrus"
)

// OutlineService 文档结构分析服务
// 负责协调文本块提取、标题分类和大纲构建
type OutlineService struct {
	classifier *classifier.Classifier // 标题分类器
	builder    *outline.Builder       // 大纲构建器
	segmenter  *segmenter.Segmenter   // 章节切分器
	cache      cache.Cache            // 结果缓存，可为nil
	logger     *logrus.Logger         // 日志记录器
}

// OutlineOption 大纲服务配置选项
type OutlineOption func(*OutlineService)

// NewOutlineService 创建一个新的大纲服务
func NewOutlineService(opts ...OutlineOption) *OutlineService {
	srv := &OutlineService{
		classifier: classifier.NewDefault(),
		builder:    outline.NewBuilder(),
		segmenter:  segmenter.New(),
		logger:     logrus.New(),
	}

	for _, opt := range opts {
		opt(srv)
	}

	return srv
}

// WithClassifier 设置自定义标题分类器
func WithClassifier(c *classifier.Classifier) OutlineOption {
	return func(s *OutlineService) {
		if c != nil {
			s.classifier = c
		}
	}
}

// WithOutlineCache 设置结果缓存
func WithOutlineCache(c cache.Cache) OutlineOption {
	return func(s *OutlineService) {
		s.cache = c
	}
}

// WithOutlineLogger 设置日志记录器
func WithOutlineLogger(logger *logrus.Logger) OutlineOption {
	return func(s *OutlineService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Analyze 从文本块序列推断文档标题和大纲
// 空输入产出空标题和空大纲，不报错
func (s *OutlineService) Analyze(docName string, blocks []models.TextBlock) models.OutlineResult {
	if len(blocks) == 0 {
		return models.OutlineResult{Title: "", Outline: []models.OutlineNode{}}
	}

	if cached, ok := s.cachedResult(docName, blocks); ok {
		return cached
	}

	candidates := s.classifier.Classify(blocks)
	title := s.classifier.DetectTitle(blocks, candidates)
	nodes := s.builder.Build(candidates)

	result := models.OutlineResult{
		Title:   title,
		Outline: nodes,
	}

	s.logger.WithFields(logrus.Fields{
		"document": docName,
		"blocks":   len(blocks),
		"headings": len(nodes),
	}).Debug("document outline analyzed")

	s.storeResult(docName, blocks, result)
	return result
}

// AnalyzeFile 解析文档文件并推断大纲
// 返回大纲结果和提取出的文本块，供后续章节切分复用
func (s *OutlineService) AnalyzeFile(filePath string) (models.OutlineResult, []models.TextBlock, error) {
	ext, err := extractor.Factory(filePath)
	if err != nil {
		return models.OutlineResult{}, nil, err
	}

	blocks, err := ext.Extract(filePath)
	if err != nil {
		return models.OutlineResult{}, nil, fmt.Errorf("failed to extract text blocks: %w", err)
	}

	return s.Analyze(filePath, blocks), blocks, nil
}

// Sections 按大纲将文本块切分为章节
// 大纲为空时退化为按页切分
func (s *OutlineService) Sections(docID, docName string, blocks []models.TextBlock, nodes []models.OutlineNode) []models.Section {
	if len(nodes) == 0 {
		return s.segmenter.SegmentPages(docID, docName, blocks)
	}
	return s.segmenter.Segment(docID, docName, blocks, nodes)
}

// cachedResult 尝试从缓存读取大纲结果
func (s *OutlineService) cachedResult(docName string, blocks []models.TextBlock) (models.OutlineResult, bool) {
	if s.cache == nil {
		return models.OutlineResult{}, false
	}

	value, found, err := s.cache.Get(s.cacheKey(docName, blocks))
	if err != nil || !found {
		return models.OutlineResult{}, false
	}

	var result models.OutlineResult
	if err := json.Unmarshal([]byte(value), &result); err != nil {
		return models.OutlineResult{}, false
	}
	return result, true
}

// storeResult 将大纲结果写入缓存
func (s *OutlineService) storeResult(docName string, blocks []models.TextBlock, result models.OutlineResult) {
	if s.cache == nil {
		return
	}

	data, err := json.Marshal(result)
	if err != nil {
		return
	}
	if err := s.cache.Set(s.cacheKey(docName, blocks), string(data), 0); err != nil {
		s.logger.WithError(err).Debug("failed to cache outline result")
	}
}

// cacheKey 基于文档名和全部块文本生成缓存键
func (s *OutlineService) cacheKey(docName string, blocks []models.TextBlock) string {
	var sb strings.Builder
	sb.WriteString(docName)
	for _, b := range blocks {
		sb.WriteString(b.Text)
		sb.WriteByte('\x1f')
	}
	return cache.GenerateCacheKey("outline", cache.HashPart(sb.String()))
}
