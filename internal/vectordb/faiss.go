package vectordb

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/DataIntelligenceCrew/go-faiss"
)

// FaissRepository 基于Faiss平面索引的章节向量仓库
// 适合跨文档集长期积累的大规模章节库
type FaissRepository struct {
	mu             sync.RWMutex
	index          faiss.Index
	sections       map[string]SectionVector
	docToSecIDs    map[string][]string
	idToPosition   map[string]int
	positionToID   map[int]string
	indexPath      string
	metaPath       string
	dimension      int
	distanceType   DistanceType
	saveOnClose    bool
	autoSave       bool
	autoSaveCount  int
	operationCount int
}

// NewFaissRepository 创建新的Faiss向量仓库
func NewFaissRepository(config Config) (Repository, error) {
	if config.Dimension <= 0 {
		return nil, fmt.Errorf("vector dimension must be positive")
	}

	if config.Path != "" && !config.InMemory {
		if err := os.MkdirAll(filepath.Dir(config.Path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	distType := config.DistanceType
	if distType == "" {
		distType = Cosine
	}

	indexPath := config.Path
	metaPath := ""
	if indexPath != "" {
		metaPath = indexPath + ".meta.json"
	}

	repo := &FaissRepository{
		sections:      make(map[string]SectionVector),
		docToSecIDs:   make(map[string][]string),
		idToPosition:  make(map[string]int),
		positionToID:  make(map[int]string),
		indexPath:     indexPath,
		metaPath:      metaPath,
		dimension:     config.Dimension,
		distanceType:  distType,
		saveOnClose:   true,
		autoSave:      true,
		autoSaveCount: 100,
	}

	var index faiss.Index
	var err error

	// 优先从已有索引文件加载
	if indexPath != "" && !config.InMemory && fileExists(indexPath) {
		index, err = faiss.ReadIndex(indexPath, 0)
		if err != nil {
			if config.CreateIfNotExists {
				index, err = createFaissIndex(config.Dimension, distType)
				if err != nil {
					return nil, fmt.Errorf("failed to create faiss index: %w", err)
				}
			} else {
				return nil, fmt.Errorf("failed to read index file: %w", err)
			}
		} else {
			if err := repo.loadMetadata(metaPath); err != nil {
				return nil, fmt.Errorf("failed to load section metadata: %w", err)
			}
		}
	} else {
		index, err = createFaissIndex(config.Dimension, distType)
		if err != nil {
			return nil, fmt.Errorf("failed to create faiss index: %w", err)
		}
	}

	repo.index = index
	return repo, nil
}

// createFaissIndex 创建Faiss平面索引
func createFaissIndex(dimension int, distType DistanceType) (faiss.Index, error) {
	var metric int
	switch distType {
	case Cosine, DotProduct:
		metric = faiss.MetricInnerProduct
	case Euclidean:
		metric = faiss.MetricL2
	default:
		metric = faiss.MetricL2
	}
	return faiss.NewIndexFlat(dimension, metric)
}

// Add 添加单个章节
func (r *FaissRepository) Add(sec SectionVector) error {
	if sec.ID == "" {
		return ErrInvalidID
	}
	if err := ValidateVector(sec.Vector, r.dimension); err != nil {
		return err
	}
	if r.distanceType == Cosine {
		sec.Vector = normalizeVector(sec.Vector)
	}
	if sec.CreatedAt.IsZero() {
		sec.CreatedAt = time.Now()
	}
	if sec.Metadata == nil {
		sec.Metadata = make(map[string]interface{})
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	nextPos := int(r.index.Ntotal())
	if err := r.index.Add(sec.Vector); err != nil {
		return fmt.Errorf("failed to add vector to index: %w", err)
	}

	r.sections[sec.ID] = sec
	r.idToPosition[sec.ID] = nextPos
	r.positionToID[nextPos] = sec.ID
	r.docToSecIDs[sec.DocumentID] = append(r.docToSecIDs[sec.DocumentID], sec.ID)
	r.operationCount++

	return r.autoSaveIfNeeded()
}

// AddBatch 批量添加章节
func (r *FaissRepository) AddBatch(secs []SectionVector) error {
	if len(secs) == 0 {
		return nil
	}

	for i := range secs {
		if secs[i].ID == "" {
			return ErrInvalidID
		}
		if err := ValidateVector(secs[i].Vector, r.dimension); err != nil {
			return fmt.Errorf("invalid vector for section %s: %w", secs[i].ID, err)
		}
		if r.distanceType == Cosine {
			secs[i].Vector = normalizeVector(secs[i].Vector)
		}
		if secs[i].CreatedAt.IsZero() {
			secs[i].CreatedAt = time.Now()
		}
		if secs[i].Metadata == nil {
			secs[i].Metadata = make(map[string]interface{})
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	startPos := int(r.index.Ntotal())
	for _, sec := range secs {
		if err := r.index.Add(sec.Vector); err != nil {
			return fmt.Errorf("failed to add vector to index: %w", err)
		}
	}

	for i, sec := range secs {
		position := startPos + i
		r.sections[sec.ID] = sec
		r.idToPosition[sec.ID] = position
		r.positionToID[position] = sec.ID
		r.docToSecIDs[sec.DocumentID] = append(r.docToSecIDs[sec.DocumentID], sec.ID)
	}
	r.operationCount += len(secs)

	return r.autoSaveIfNeeded()
}

// autoSaveIfNeeded 达到操作阈值时持久化索引
// 调用者需持有写锁
func (r *FaissRepository) autoSaveIfNeeded() error {
	if !r.autoSave || r.operationCount < r.autoSaveCount {
		return nil
	}
	if err := r.saveIndex(); err != nil {
		return fmt.Errorf("auto-save failed: %w", err)
	}
	r.operationCount = 0
	return nil
}

// Get 获取单个章节
func (r *FaissRepository) Get(id string) (SectionVector, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sec, exists := r.sections[id]
	if !exists {
		return SectionVector{}, ErrSectionNotFound
	}
	return sec, nil
}

// Delete 删除单个章节
// Faiss平面索引不支持原地删除，仅从元数据中移除，搜索时跳过
func (r *FaissRepository) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	sec, exists := r.sections[id]
	if !exists {
		return ErrSectionNotFound
	}

	delete(r.sections, id)
	if pos, ok := r.idToPosition[id]; ok {
		delete(r.positionToID, pos)
	}
	delete(r.idToPosition, id)

	if secIDs, ok := r.docToSecIDs[sec.DocumentID]; ok {
		updated := make([]string, 0, len(secIDs)-1)
		for _, secID := range secIDs {
			if secID != id {
				updated = append(updated, secID)
			}
		}
		if len(updated) == 0 {
			delete(r.docToSecIDs, sec.DocumentID)
		} else {
			r.docToSecIDs[sec.DocumentID] = updated
		}
	}
	r.operationCount++

	return nil
}

// DeleteByDocumentID 删除指定文档的所有章节
func (r *FaissRepository) DeleteByDocumentID(documentID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	secIDs, exists := r.docToSecIDs[documentID]
	if !exists {
		return nil
	}

	for _, id := range secIDs {
		delete(r.sections, id)
		if pos, ok := r.idToPosition[id]; ok {
			delete(r.positionToID, pos)
		}
		delete(r.idToPosition, id)
	}
	delete(r.docToSecIDs, documentID)
	r.operationCount += len(secIDs)

	return nil
}

// Search 相似度搜索
func (r *FaissRepository) Search(vector []float32, filter SearchFilter) ([]SearchResult, error) {
	if err := ValidateVector(vector, r.dimension); err != nil {
		return nil, err
	}
	if r.distanceType == Cosine {
		vector = normalizeVector(vector)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.sections) == 0 {
		return []SearchResult{}, nil
	}

	k := filter.MaxResults
	if k <= 0 {
		k = 20
	}

	// 超额查询以补偿过滤和已删除条目
	queryLimit := k * 2
	total := int(r.index.Ntotal())
	if queryLimit > total {
		queryLimit = total
	}
	if queryLimit == 0 {
		return []SearchResult{}, nil
	}

	distances, indices, err := r.index.Search(vector, int64(queryLimit))
	if err != nil {
		return nil, fmt.Errorf("failed to search index: %w", err)
	}

	var results []SearchResult
	for i := 0; i < len(indices); i++ {
		idx := indices[i]
		if idx < 0 {
			continue
		}

		secID, found := r.positionToID[int(idx)]
		if !found {
			continue
		}
		sec, exists := r.sections[secID]
		if !exists {
			continue
		}

		if len(filter.DocumentIDs) > 0 {
			match := false
			for _, id := range filter.DocumentIDs {
				if sec.DocumentID == id {
					match = true
					break
				}
			}
			if !match {
				continue
			}
		}
		if !matchMetadata(sec.Metadata, filter.Metadata) {
			continue
		}

		dist := distances[i]
		score := DistanceToScore(dist, r.distanceType)
		if score < filter.MinScore {
			continue
		}

		results = append(results, SearchResult{
			Section:  sec,
			Score:    score,
			Distance: dist,
		})
		if len(results) >= k {
			break
		}
	}

	SortSearchResults(results)
	return results, nil
}

// Count 获取章节总数
func (r *FaissRepository) Count() (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sections), nil
}

// GetDimension 返回向量维数
func (r *FaissRepository) GetDimension() int {
	return r.dimension
}

// Close 关闭仓库并按需持久化
func (r *FaissRepository) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.saveOnClose && r.indexPath != "" {
		if err := r.saveIndex(); err != nil {
			return fmt.Errorf("failed to save index on close: %w", err)
		}
	}
	return nil
}

// saveIndex 保存索引和章节元数据到文件
func (r *FaissRepository) saveIndex() error {
	if r.indexPath == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(r.indexPath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := faiss.WriteIndex(r.index, r.indexPath); err != nil {
		return fmt.Errorf("failed to write index to file: %w", err)
	}
	return r.saveMetadata()
}

// faissMetadata 持久化的章节元数据
type faissMetadata struct {
	Sections       map[string]SectionVector `json:"sections"`
	DocToSecIDs    map[string][]string      `json:"doc_to_sec_ids"`
	IDToPosition   map[string]int           `json:"id_to_position"`
	OperationCount int                      `json:"operation_count"`
}

// saveMetadata 保存章节元数据到文件
func (r *FaissRepository) saveMetadata() error {
	if r.metaPath == "" {
		return nil
	}

	meta := faissMetadata{
		Sections:       r.sections,
		DocToSecIDs:    r.docToSecIDs,
		IDToPosition:   r.idToPosition,
		OperationCount: r.operationCount,
	}
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}
	if err := os.WriteFile(r.metaPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write metadata file: %w", err)
	}
	return nil
}

// loadMetadata 从文件加载章节元数据
func (r *FaissRepository) loadMetadata(path string) error {
	if path == "" || !fileExists(path) {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read metadata file: %w", err)
	}

	var meta faissMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return fmt.Errorf("failed to unmarshal metadata: %w", err)
	}

	r.sections = meta.Sections
	r.docToSecIDs = meta.DocToSecIDs
	r.idToPosition = meta.IDToPosition
	r.operationCount = meta.OperationCount

	r.positionToID = make(map[int]string, len(r.idToPosition))
	for id, pos := range r.idToPosition {
		r.positionToID[pos] = id
	}
	return nil
}

// fileExists 检查文件是否存在
func fileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}

func init() {
	RegisterRepository("faiss", NewFaissRepository)
}
