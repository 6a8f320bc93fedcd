package vectordb

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestRepository 创建用于测试的内存仓库
func newTestRepository(t *testing.T, dim int) Repository {
	repo, err := NewMemoryRepository(Config{
		Type:         "memory",
		Dimension:    dim,
		DistanceType: Cosine,
	})
	require.NoError(t, err)
	return repo
}

// testSection 构造测试章节
func testSection(id, documentID string, position int, vector []float32) SectionVector {
	return SectionVector{
		ID:         id,
		DocumentID: documentID,
		Document:   documentID + ".pdf",
		Title:      "Section " + id,
		Page:       position + 1,
		Position:   position,
		Text:       "section body " + id,
		Vector:     vector,
	}
}

// TestMemoryRepositoryCRUD 测试内存仓库的基本增删查操作
func TestMemoryRepositoryCRUD(t *testing.T) {
	repo := newTestRepository(t, 3)

	sec := testSection("s1", "doc1", 0, []float32{1, 0, 0})
	require.NoError(t, repo.Add(sec))

	got, err := repo.Get("s1")
	assert.NoError(t, err)
	assert.Equal(t, "doc1", got.DocumentID)
	assert.Equal(t, "Section s1", got.Title)

	count, err := repo.Count()
	assert.NoError(t, err)
	assert.Equal(t, 1, count)

	// 不存在的章节
	_, err = repo.Get("missing")
	assert.ErrorIs(t, err, ErrSectionNotFound)

	// 删除
	require.NoError(t, repo.Delete("s1"))
	_, err = repo.Get("s1")
	assert.ErrorIs(t, err, ErrSectionNotFound)

	// 维度不匹配
	err = repo.Add(testSection("bad", "doc1", 0, []float32{1, 0}))
	assert.Error(t, err)

	// 空向量
	err = repo.Add(testSection("empty", "doc1", 0, nil))
	assert.ErrorIs(t, err, ErrEmptyVector)

	// 空ID
	err = repo.Add(testSection("", "doc1", 0, []float32{1, 0, 0}))
	assert.ErrorIs(t, err, ErrInvalidID)
}

// TestMemoryRepositoryBatchAndDeleteByDocument 测试批量添加和按文档删除
func TestMemoryRepositoryBatchAndDeleteByDocument(t *testing.T) {
	repo := newTestRepository(t, 3)

	secs := []SectionVector{
		testSection("a1", "docA", 0, []float32{1, 0, 0}),
		testSection("a2", "docA", 1, []float32{0, 1, 0}),
		testSection("b1", "docB", 0, []float32{0, 0, 1}),
	}
	require.NoError(t, repo.AddBatch(secs))

	count, err := repo.Count()
	assert.NoError(t, err)
	assert.Equal(t, 3, count)

	require.NoError(t, repo.DeleteByDocumentID("docA"))

	count, err = repo.Count()
	assert.NoError(t, err)
	assert.Equal(t, 1, count)

	_, err = repo.Get("a1")
	assert.ErrorIs(t, err, ErrSectionNotFound)
	_, err = repo.Get("b1")
	assert.NoError(t, err)

	// 删除不存在的文档不报错
	assert.NoError(t, repo.DeleteByDocumentID("docA"))
}

// TestMemoryRepositorySearch 测试相似度搜索及过滤
func TestMemoryRepositorySearch(t *testing.T) {
	repo := newTestRepository(t, 3)

	secs := []SectionVector{
		testSection("a1", "docA", 0, []float32{1, 0, 0}),
		testSection("a2", "docA", 1, []float32{0.9, 0.1, 0}),
		testSection("b1", "docB", 0, []float32{0, 1, 0}),
		testSection("b2", "docB", 1, []float32{0, 0, 1}),
	}
	require.NoError(t, repo.AddBatch(secs))

	t.Run("basic search", func(t *testing.T) {
		results, err := repo.Search([]float32{1, 0, 0}, SearchFilter{MaxResults: 2})
		require.NoError(t, err)
		require.Len(t, results, 2)

		// 最相似的排在最前
		assert.Equal(t, "a1", results[0].Section.ID)
		assert.Equal(t, "a2", results[1].Section.ID)
		assert.Greater(t, results[0].Score, results[1].Score)
	})

	t.Run("document filter", func(t *testing.T) {
		results, err := repo.Search([]float32{1, 0, 0}, SearchFilter{
			DocumentIDs: []string{"docB"},
			MaxResults:  10,
		})
		require.NoError(t, err)
		require.Len(t, results, 2)
		for _, res := range results {
			assert.Equal(t, "docB", res.Section.DocumentID)
		}
	})

	t.Run("min score filter", func(t *testing.T) {
		results, err := repo.Search([]float32{1, 0, 0}, SearchFilter{
			MinScore:   0.5,
			MaxResults: 10,
		})
		require.NoError(t, err)
		for _, res := range results {
			assert.GreaterOrEqual(t, res.Score, float32(0.5))
		}
	})

	t.Run("empty repository", func(t *testing.T) {
		empty := newTestRepository(t, 3)
		results, err := empty.Search([]float32{1, 0, 0}, DefaultSearchFilter())
		require.NoError(t, err)
		assert.Empty(t, results)
	})
}

// TestComputeDistance 测试距离计算
func TestComputeDistance(t *testing.T) {
	v1 := []float32{1, 0, 0}
	v2 := []float32{0, 1, 0}

	t.Run("cosine", func(t *testing.T) {
		// 相同方向距离为0
		dist, err := ComputeDistance(v1, v1, Cosine)
		assert.NoError(t, err)
		assert.InDelta(t, 0.0, dist, 1e-6)

		// 正交向量距离为1
		dist, err = ComputeDistance(v1, v2, Cosine)
		assert.NoError(t, err)
		assert.InDelta(t, 1.0, dist, 1e-6)
	})

	t.Run("euclidean", func(t *testing.T) {
		dist, err := ComputeDistance(v1, v2, Euclidean)
		assert.NoError(t, err)
		assert.InDelta(t, 1.4142, dist, 1e-3)
	})

	t.Run("dot product", func(t *testing.T) {
		dist, err := ComputeDistance(v1, v1, DotProduct)
		assert.NoError(t, err)
		assert.InDelta(t, 1.0, dist, 1e-6)
	})

	t.Run("dimension mismatch", func(t *testing.T) {
		_, err := ComputeDistance(v1, []float32{1, 0}, Cosine)
		assert.Error(t, err)
	})
}

// TestDistanceToScore 测试距离到评分的转换
func TestDistanceToScore(t *testing.T) {
	assert.InDelta(t, 1.0, DistanceToScore(0, Cosine), 1e-6)
	assert.InDelta(t, 0.0, DistanceToScore(1, Cosine), 1e-6)
	assert.InDelta(t, 1.0, DistanceToScore(1, DotProduct), 1e-6)
	assert.InDelta(t, 1.0, DistanceToScore(0, Euclidean), 1e-6)
	assert.Less(t, DistanceToScore(2, Euclidean), DistanceToScore(1, Euclidean))
}

// TestRepositoryFactory 测试仓库工厂
func TestRepositoryFactory(t *testing.T) {
	// 未注册类型回退到内存实现
	repo, err := NewRepository(Config{Type: "unknown", Dimension: 4})
	require.NoError(t, err)
	assert.Equal(t, 4, repo.GetDimension())

	// 内存实现必须指定正维度
	_, err = NewRepository(Config{Type: "memory", Dimension: 0})
	assert.Error(t, err)
}

// TestSortSearchResultsStable 测试同分结果的稳定排序
func TestSortSearchResultsStable(t *testing.T) {
	results := []SearchResult{
		{Section: SectionVector{ID: "x", DocumentID: "doc2", Page: 1}, Score: 0.5},
		{Section: SectionVector{ID: "y", DocumentID: "doc1", Page: 3}, Score: 0.5},
		{Section: SectionVector{ID: "z", DocumentID: "doc1", Page: 1}, Score: 0.9},
	}
	SortSearchResults(results)

	assert.Equal(t, "z", results[0].Section.ID)
	// 同分时按文档ID再按页码
	assert.Equal(t, "y", results[1].Section.ID)
	assert.Equal(t, "x", results[2].Section.ID)
}

// BenchmarkMemorySearch 内存搜索基准
func BenchmarkMemorySearch(b *testing.B) {
	repo, err := NewMemoryRepository(Config{Dimension: 64, DistanceType: Cosine})
	if err != nil {
		b.Fatal(err)
	}

	secs := make([]SectionVector, 500)
	for i := range secs {
		vec := make([]float32, 64)
		vec[i%64] = 1
		secs[i] = testSection(fmt.Sprintf("s%d", i), fmt.Sprintf("doc%d", i%10), i, vec)
	}
	if err := repo.AddBatch(secs); err != nil {
		b.Fatal(err)
	}

	query := make([]float32, 64)
	query[0] = 1

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := repo.Search(query, SearchFilter{MaxResults: 20}); err != nil {
			b.Fatal(err)
		}
	}
}
