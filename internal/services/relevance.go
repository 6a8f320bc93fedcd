package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/adarshkasliwal/Adobe-Hackathon-Round2/internal/embedding"
	"github.com/adarshkasliwal/Adobe-Hackathon-Round2/internal/extractor"
	"github.com/adarshkasliwal/Adobe-Hackathon-Round2/internal/models"
	"github.com/adarshkasliwal/Adobe-Hackathon-Round2/internal/relevance"
	"github.com/adarshkasliwal/Adobe-Hackathon-Round2/internal/repository"
	"github.com/adarshkasliwal/Adobe-Hackathon-Round2/internal/summary"
	"github.com/adarshkasliwal/Adobe-Hackathon-Round2/internal/vectordb"
	"github.com/gammazero/workerpool"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// DocumentInput 批处理的单个输入文档
// Blocks为空且Path非空时从文件提取文本块
type DocumentInput struct {
	ID     string             // 文档ID，为空时自动生成
	Name   string             // 文档名称（文件名）
	Path   string             // 文档文件路径
	Blocks []models.TextBlock // 预提取的文本块
}

// RelevanceService 跨文档相关性分析服务
// 以每文档一个工作协程的方式处理批次，在汇合点合并排名
type RelevanceService struct {
	outline      *OutlineService          // 大纲服务
	engine       embedding.Client         // 共享只读嵌入引擎
	scorer       *relevance.Scorer        // 章节打分器
	summarizer   *summary.Generator       // 摘要生成器
	vectorDB     vectordb.Repository      // 章节向量索引，可为nil
	repo         repository.RunRepository // 批次运行记录存储，可为nil
	maxWorkers   int                      // 并发工作协程数
	batchBudget  time.Duration            // 批次墙钟时间预算，0表示不限制
	topSections  int                      // 输出的章节排名数量
	topSummaries int                      // 生成摘要的章节数量
	logger       *logrus.Logger           // 日志记录器
}

// RelevanceOption 相关性服务配置选项
type RelevanceOption func(*RelevanceService)

// NewRelevanceService 创建一个新的相关性分析服务
// engine可为nil，此时整个批次以关键词模式运行
func NewRelevanceService(outlineSvc *OutlineService, engine embedding.Client, opts ...RelevanceOption) *RelevanceService {
	srv := &RelevanceService{
		outline:      outlineSvc,
		engine:       engine,
		maxWorkers:   4,
		batchBudget:  time.Minute,
		topSections:  20,
		topSummaries: 10,
		logger:       logrus.New(),
	}

	for _, opt := range opts {
		opt(srv)
	}

	if srv.outline == nil {
		srv.outline = NewOutlineService(WithOutlineLogger(srv.logger))
	}
	if srv.scorer == nil {
		srv.scorer = relevance.NewScorer(engine, relevance.DefaultScorerConfig())
	}
	if srv.summarizer == nil {
		srv.summarizer = summary.NewGenerator(engine, summary.DefaultConfig())
	}

	return srv
}

// WithVectorDB 设置章节向量索引
func WithVectorDB(repo vectordb.Repository) RelevanceOption {
	return func(s *RelevanceService) {
		s.vectorDB = repo
	}
}

// WithRunRepository 设置批次运行记录存储
func WithRunRepository(repo repository.RunRepository) RelevanceOption {
	return func(s *RelevanceService) {
		s.repo = repo
	}
}

// WithMaxWorkers 设置并发工作协程数
func WithMaxWorkers(n int) RelevanceOption {
	return func(s *RelevanceService) {
		if n > 0 {
			s.maxWorkers = n
		}
	}
}

// WithBatchBudget 设置批次墙钟时间预算
func WithBatchBudget(budget time.Duration) RelevanceOption {
	return func(s *RelevanceService) {
		s.batchBudget = budget
	}
}

// WithTopSections 设置输出的章节排名数量
func WithTopSections(n int) RelevanceOption {
	return func(s *RelevanceService) {
		if n > 0 {
			s.topSections = n
		}
	}
}

// WithTopSummaries 设置生成摘要的章节数量
func WithTopSummaries(n int) RelevanceOption {
	return func(s *RelevanceService) {
		if n > 0 {
			s.topSummaries = n
		}
	}
}

// WithScorer 设置自定义打分器
func WithScorer(scorer *relevance.Scorer) RelevanceOption {
	return func(s *RelevanceService) {
		s.scorer = scorer
	}
}

// WithSummarizer 设置自定义摘要生成器
func WithSummarizer(gen *summary.Generator) RelevanceOption {
	return func(s *RelevanceService) {
		s.summarizer = gen
	}
}

// WithRelevanceLogger 设置日志记录器
func WithRelevanceLogger(logger *logrus.Logger) RelevanceOption {
	return func(s *RelevanceService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// docResult 单文档的处理结果
type docResult struct {
	outline      models.OutlineResult
	scored       []models.ScoredSection
	sectionCount int
	err          error
	skipped      bool
}

// batchState 批次的共享收集状态
// 预算耗尽后finalized置位，迟到的结果被丢弃
type batchState struct {
	mu        sync.Mutex
	finalized bool
	results   map[int]*docResult
}

func (b *batchState) deliver(index int, res *docResult) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.finalized {
		return
	}
	b.results[index] = res
}

func (b *batchState) finalize() map[int]*docResult {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.finalized = true

	snapshot := make(map[int]*docResult, len(b.results))
	for k, v := range b.results {
		snapshot[k] = v
	}
	return snapshot
}

// AnalyzeBatch 对一批文档执行人物角色与任务驱动的相关性分析
// 单文档失败被隔离记录；超出时间预算时返回已完成文档的降级部分结果
func (s *RelevanceService) AnalyzeBatch(ctx context.Context, docs []DocumentInput, persona, job string) (*models.RelevanceResult, []models.DocumentFailure, error) {
	runID := uuid.New().String()
	start := time.Now()

	for i := range docs {
		if docs[i].ID == "" {
			docs[i].ID = uuid.New().String()
		}
		if docs[i].Name == "" {
			docs[i].Name = docs[i].Path
		}
	}

	s.createRunRecord(runID, persona, job, len(docs))

	query, err := relevance.BuildQuery(ctx, persona, job, s.engine)
	if err != nil {
		s.failRunRecord(runID, err)
		return nil, nil, fmt.Errorf("failed to build relevance query: %w", err)
	}

	degraded := false
	degradedReason := ""
	if s.engine != nil && !query.HasVector() {
		degraded = true
		degradedReason = "embedding engine unavailable, keyword-only scoring"
	}

	budgetCtx := ctx
	cancel := context.CancelFunc(func() {})
	if s.batchBudget > 0 {
		budgetCtx, cancel = context.WithTimeout(ctx, s.batchBudget)
	}
	defer cancel()

	state := &batchState{results: make(map[int]*docResult, len(docs))}
	pool := workerpool.New(s.maxWorkers)

	for i := range docs {
		index := i
		doc := docs[i]
		pool.Submit(func() {
			if budgetCtx.Err() != nil {
				state.deliver(index, &docResult{skipped: true})
				return
			}
			state.deliver(index, s.processDocument(budgetCtx, doc, query))
		})
	}

	// 汇合点：等待全部工作协程结束或预算耗尽
	done := make(chan struct{})
	go func() {
		pool.StopWait()
		close(done)
	}()

	select {
	case <-done:
	case <-budgetCtx.Done():
		if ctx.Err() != nil {
			s.failRunRecord(runID, ctx.Err())
			return nil, nil, ctx.Err()
		}
	}
	if errors.Is(budgetCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		degraded = true
		degradedReason = "batch wall-clock budget exceeded"
		s.logger.WithField("budget", s.batchBudget).Warn("batch budget exceeded, returning partial results")
	}

	results := state.finalize()

	// 按输入顺序收集结果，失败和跳过的文档单独记录
	var failures []models.DocumentFailure
	var skipped []string
	var allScored []models.ScoredSection
	docIDs := make([]string, len(docs))
	documents := make([]string, len(docs))

	for i, doc := range docs {
		docIDs[i] = doc.ID
		documents[i] = doc.Name

		res, ok := results[i]
		if !ok || res.skipped {
			skipped = append(skipped, doc.Name)
			continue
		}
		if res.err != nil {
			failures = append(failures, models.DocumentFailure{
				Document: doc.Name,
				Reason:   res.err.Error(),
			})
			continue
		}
		allScored = append(allScored, res.scored...)
	}

	ranker := relevance.NewRanker(docIDs)
	ranked := ranker.Rank(allScored)
	top := relevance.TopK(ranked, s.topSections)

	result := &models.RelevanceResult{
		Metadata: models.BatchMetadata{
			Documents:      documents,
			Persona:        persona,
			JobToBeDone:    job,
			Timestamp:      time.Now().UTC().Format(time.RFC3339),
			Degraded:       degraded,
			DegradedReason: degradedReason,
			Skipped:        skipped,
		},
		ExtractedSections:  make([]models.ExtractedSection, 0, len(top)),
		SubSectionAnalysis: make([]models.SubSection, 0, s.topSummaries),
	}

	for _, ss := range top {
		result.ExtractedSections = append(result.ExtractedSections, models.ExtractedSection{
			Document:       ss.Document,
			Page:           ss.StartPage,
			SectionTitle:   ss.Title,
			ImportanceRank: ss.ImportanceRank,
		})
	}

	for i, ss := range top {
		if i >= s.topSummaries {
			break
		}
		refined, err := s.summarizer.Generate(ctx, ss.Section, query)
		if err != nil {
			s.logger.WithError(err).WithField("section", ss.Title).Warn("failed to summarize section")
			continue
		}
		if refined == "" {
			continue
		}
		result.SubSectionAnalysis = append(result.SubSectionAnalysis, models.SubSection{
			Document:    ss.Document,
			Page:        ss.StartPage,
			RefinedText: refined,
		})
	}

	s.indexSections(ctx, runID, top)
	s.persistRun(runID, docs, results, result, degraded, degradedReason)

	s.logger.WithFields(logrus.Fields{
		"run_id":    runID,
		"documents": len(docs),
		"sections":  len(ranked),
		"degraded":  degraded,
		"elapsed":   time.Since(start),
	}).Info("relevance batch completed")

	return result, failures, nil
}

// processDocument 处理单个文档：提取、推断大纲、切分章节并打分
func (s *RelevanceService) processDocument(ctx context.Context, doc DocumentInput, query models.RelevanceQuery) *docResult {
	blocks := doc.Blocks
	if len(blocks) == 0 && doc.Path != "" {
		ext, err := extractor.Factory(doc.Path)
		if err != nil {
			return &docResult{err: err}
		}
		blocks, err = ext.Extract(doc.Path)
		if err != nil && !errors.Is(err, extractor.ErrNoTextContent) {
			return &docResult{err: err}
		}
	}

	outlineRes := s.outline.Analyze(doc.Name, blocks)
	sections := s.outline.Sections(doc.ID, doc.Name, blocks, outlineRes.Outline)

	scored, err := s.scorer.ScoreDocument(ctx, sections, query)
	if err != nil {
		return &docResult{outline: outlineRes, err: err}
	}

	return &docResult{
		outline:      outlineRes,
		scored:       scored,
		sectionCount: len(sections),
	}
}

// indexSections 将排名靠前的章节写入向量索引，供后续检索
func (s *RelevanceService) indexSections(ctx context.Context, runID string, top []models.ScoredSection) {
	if s.vectorDB == nil || s.engine == nil || len(top) == 0 {
		return
	}

	secs := make([]vectordb.SectionVector, 0, len(top))
	for _, ss := range top {
		text := ss.Title + " " + ss.Body
		if max := s.engine.MaxInputChars(); max > 0 && len([]rune(text)) > max {
			text = string([]rune(text)[:max])
		}

		vec, err := s.engine.Embed(ctx, text)
		if err != nil {
			s.logger.WithError(err).Debug("failed to embed section for indexing")
			return
		}

		secs = append(secs, vectordb.SectionVector{
			ID:         fmt.Sprintf("%s:%s:%d", runID, ss.DocumentID, ss.Index),
			DocumentID: ss.DocumentID,
			Document:   ss.Document,
			Title:      ss.Title,
			Page:       ss.StartPage,
			Position:   ss.Index,
			Text:       ss.Body,
			Vector:     vec,
		})
	}

	if err := s.vectorDB.AddBatch(secs); err != nil {
		s.logger.WithError(err).Warn("failed to index sections into vector store")
	}
}

// SearchSections 在已索引的章节中做语义检索
func (s *RelevanceService) SearchSections(ctx context.Context, queryText string, maxResults int) ([]vectordb.SearchResult, error) {
	if s.vectorDB == nil {
		return nil, errors.New("vector store is not configured")
	}
	if s.engine == nil {
		return nil, errors.New("embedding engine is not configured")
	}

	vec, err := s.engine.Embed(ctx, queryText)
	if err != nil {
		return nil, fmt.Errorf("failed to embed search query: %w", err)
	}

	filter := vectordb.DefaultSearchFilter()
	if maxResults > 0 {
		filter.MaxResults = maxResults
	}
	return s.vectorDB.Search(vec, filter)
}

// createRunRecord 创建批次运行记录
func (s *RelevanceService) createRunRecord(runID, persona, job string, documentCount int) {
	if s.repo == nil {
		return
	}

	err := s.repo.Create(&models.AnalysisRun{
		ID:            runID,
		Persona:       persona,
		JobToBeDone:   job,
		Status:        models.RunStatusProcessing,
		DocumentCount: documentCount,
	})
	if err != nil {
		s.logger.WithError(err).Warn("failed to create run record")
	}
}

// failRunRecord 将批次标记为失败
func (s *RelevanceService) failRunRecord(runID string, cause error) {
	if s.repo == nil {
		return
	}
	if err := s.repo.UpdateStatus(runID, models.RunStatusFailed, cause.Error()); err != nil {
		s.logger.WithError(err).Warn("failed to update run record status")
	}
}

// persistRun 保存批次结果和各文档的处理记录
func (s *RelevanceService) persistRun(runID string, docs []DocumentInput, results map[int]*docResult, result *models.RelevanceResult, degraded bool, degradedReason string) {
	if s.repo == nil {
		return
	}

	payload, err := json.Marshal(result)
	if err != nil {
		s.logger.WithError(err).Warn("failed to marshal batch result")
		return
	}
	if err := s.repo.SaveResult(runID, payload, degraded, degradedReason); err != nil {
		s.logger.WithError(err).Warn("failed to save batch result")
	}

	recs := make([]*models.DocumentRecord, 0, len(docs))
	for i, doc := range docs {
		rec := &models.DocumentRecord{
			RunID:    runID,
			Document: doc.Name,
		}

		res, ok := results[i]
		switch {
		case !ok || res.skipped:
			rec.Status = models.DocStatusSkipped
		case res.err != nil:
			rec.Status = models.DocStatusFailed
			rec.Error = res.err.Error()
		default:
			rec.Status = models.DocStatusCompleted
			rec.SectionCount = res.sectionCount
			if data, err := json.Marshal(res.outline); err == nil {
				rec.Outline = data
			}
		}
		recs = append(recs, rec)
	}

	if err := s.repo.SaveDocumentRecords(recs); err != nil {
		s.logger.WithError(err).Warn("failed to save document records")
	}
}
