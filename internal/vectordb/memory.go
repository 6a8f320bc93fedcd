package vectordb

import (
	"fmt"
	"sync"
	"time"
)

// MemoryRepository 内存章节向量仓库实现
// 单批分析的章节规模不大，线性扫描加读写锁即可满足需求
type MemoryRepository struct {
	mu          sync.RWMutex
	dimension   int
	distType    DistanceType
	sections    map[string]SectionVector
	docToSecIDs map[string][]string
}

// NewMemoryRepository 创建内存向量仓库
func NewMemoryRepository(config Config) (Repository, error) {
	if config.Dimension <= 0 {
		return nil, fmt.Errorf("vector dimension must be positive")
	}

	distType := config.DistanceType
	if distType != Cosine && distType != DotProduct && distType != Euclidean {
		distType = Cosine // 默认使用余弦距离
	}

	return &MemoryRepository{
		dimension:   config.Dimension,
		distType:    distType,
		sections:    make(map[string]SectionVector),
		docToSecIDs: make(map[string][]string),
	}, nil
}

// Add 添加单个章节
func (r *MemoryRepository) Add(sec SectionVector) error {
	if sec.ID == "" {
		return ErrInvalidID
	}
	if err := ValidateVector(sec.Vector, r.dimension); err != nil {
		return err
	}

	if sec.CreatedAt.IsZero() {
		sec.CreatedAt = time.Now()
	}
	if sec.Metadata == nil {
		sec.Metadata = make(map[string]interface{})
	}

	// 余弦距离下先归一化，搜索时只需算点积
	if r.distType == Cosine {
		sec.Vector = normalizeVector(sec.Vector)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sections[sec.ID]; !exists {
		r.docToSecIDs[sec.DocumentID] = append(r.docToSecIDs[sec.DocumentID], sec.ID)
	}
	r.sections[sec.ID] = sec

	return nil
}

// AddBatch 批量添加章节
func (r *MemoryRepository) AddBatch(secs []SectionVector) error {
	if len(secs) == 0 {
		return nil
	}

	// 单次加锁完成批处理
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range secs {
		sec := &secs[i]

		if sec.ID == "" {
			return ErrInvalidID
		}
		if err := ValidateVector(sec.Vector, r.dimension); err != nil {
			return fmt.Errorf("invalid vector for section %s: %w", sec.ID, err)
		}

		if sec.CreatedAt.IsZero() {
			sec.CreatedAt = time.Now()
		}
		if sec.Metadata == nil {
			sec.Metadata = make(map[string]interface{})
		}
		if r.distType == Cosine {
			sec.Vector = normalizeVector(sec.Vector)
		}

		if _, exists := r.sections[sec.ID]; !exists {
			r.docToSecIDs[sec.DocumentID] = append(r.docToSecIDs[sec.DocumentID], sec.ID)
		}
		r.sections[sec.ID] = *sec
	}

	return nil
}

// Get 获取单个章节
func (r *MemoryRepository) Get(id string) (SectionVector, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sec, exists := r.sections[id]
	if !exists {
		return SectionVector{}, ErrSectionNotFound
	}

	return sec, nil
}

// Delete 删除单个章节
func (r *MemoryRepository) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	sec, exists := r.sections[id]
	if !exists {
		return ErrSectionNotFound
	}

	delete(r.sections, id)
	r.removeDocMapping(sec.DocumentID, id)

	return nil
}

// DeleteByDocumentID 删除指定文档的所有章节
func (r *MemoryRepository) DeleteByDocumentID(documentID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	secIDs, exists := r.docToSecIDs[documentID]
	if !exists {
		return nil
	}

	for _, id := range secIDs {
		delete(r.sections, id)
	}
	delete(r.docToSecIDs, documentID)

	return nil
}

// removeDocMapping 从文档到章节的映射中移除单个章节ID
// 调用者需持有写锁
func (r *MemoryRepository) removeDocMapping(documentID, secID string) {
	secIDs, ok := r.docToSecIDs[documentID]
	if !ok {
		return
	}

	updated := make([]string, 0, len(secIDs)-1)
	for _, id := range secIDs {
		if id != secID {
			updated = append(updated, id)
		}
	}

	if len(updated) == 0 {
		delete(r.docToSecIDs, documentID)
	} else {
		r.docToSecIDs[documentID] = updated
	}
}

// Search 相似度搜索
func (r *MemoryRepository) Search(vector []float32, filter SearchFilter) ([]SearchResult, error) {
	if err := ValidateVector(vector, r.dimension); err != nil {
		return nil, err
	}

	if r.distType == Cosine {
		vector = normalizeVector(vector)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	// 指定了文档ID时只扫描这些文档的章节
	var candidates []SectionVector
	if len(filter.DocumentIDs) > 0 {
		for _, documentID := range filter.DocumentIDs {
			for _, secID := range r.docToSecIDs[documentID] {
				if sec, exists := r.sections[secID]; exists && matchMetadata(sec.Metadata, filter.Metadata) {
					candidates = append(candidates, sec)
				}
			}
		}
	} else {
		candidates = make([]SectionVector, 0, len(r.sections))
		for _, sec := range r.sections {
			if matchMetadata(sec.Metadata, filter.Metadata) {
				candidates = append(candidates, sec)
			}
		}
	}

	if len(candidates) == 0 {
		return []SearchResult{}, nil
	}

	results := make([]SearchResult, 0, len(candidates))
	for _, sec := range candidates {
		dist, err := ComputeDistance(vector, sec.Vector, r.distType)
		if err != nil {
			return nil, fmt.Errorf("error computing distance: %w", err)
		}

		score := DistanceToScore(dist, r.distType)
		if score < filter.MinScore {
			continue
		}

		results = append(results, SearchResult{
			Section:  sec,
			Score:    score,
			Distance: dist,
		})
	}

	SortSearchResults(results)

	if filter.MaxResults > 0 && len(results) > filter.MaxResults {
		results = results[:filter.MaxResults]
	}

	return results, nil
}

// Count 获取章节总数
func (r *MemoryRepository) Count() (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.sections), nil
}

// GetDimension 返回向量维数
func (r *MemoryRepository) GetDimension() int {
	return r.dimension
}

// Close 对于内存实现是一个空操作
func (r *MemoryRepository) Close() error {
	return nil
}

// 在包初始化时注册内存仓库
func init() {
	RegisterRepository("memory", NewMemoryRepository)
}
