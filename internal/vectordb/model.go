package vectordb

import (
	"errors"
	"time"
)

// 常用错误定义
var (
	ErrSectionNotFound  = errors.New("section not found")
	ErrEmptyVector      = errors.New("empty vector")
	ErrInvalidID        = errors.New("invalid section ID")
	ErrInvalidDimension = errors.New("vector dimension mismatch")
)

// SectionVector 章节向量模型
// 表示一篇文档中的一个章节及其嵌入向量
type SectionVector struct {
	ID         string                 // 唯一标识符
	DocumentID string                 // 所属文档ID
	Document   string                 // 文档文件名
	Title      string                 // 章节标题
	Page       int                    // 章节起始页码
	Position   int                    // 章节在文档中的顺序
	Text       string                 // 章节正文
	Vector     []float32              // 向量表示
	CreatedAt  time.Time              // 创建时间
	Metadata   map[string]interface{} // 附加元数据
}

// DistanceType 向量距离计算方法
type DistanceType string

const (
	// Cosine 余弦相似度
	Cosine DistanceType = "cosine"
	// DotProduct 点积
	DotProduct DistanceType = "dot"
	// Euclidean 欧几里得距离
	Euclidean DistanceType = "l2"
)

// SearchResult 搜索结果
type SearchResult struct {
	Section  SectionVector // 章节对象
	Score    float32       // 相似度得分
	Distance float32       // 计算的距离
}

// SearchFilter 搜索过滤条件
type SearchFilter struct {
	DocumentIDs []string               // 按文档ID过滤
	Metadata    map[string]interface{} // 按元数据过滤
	MinScore    float32                // 最小相似度分数
	MaxResults  int                    // 最大返回结果数
}

// DefaultSearchFilter 返回默认的搜索过滤器
func DefaultSearchFilter() SearchFilter {
	return SearchFilter{
		MinScore:   0.0,
		MaxResults: 20,
	}
}

// Repository 章节向量仓库接口
type Repository interface {
	// Add 添加单个章节
	Add(sec SectionVector) error

	// AddBatch 批量添加章节
	AddBatch(secs []SectionVector) error

	// Get 获取单个章节
	Get(id string) (SectionVector, error)

	// Delete 删除单个章节
	Delete(id string) error

	// DeleteByDocumentID 删除指定文档的所有章节
	DeleteByDocumentID(documentID string) error

	// Search 相似度搜索
	Search(vector []float32, filter SearchFilter) ([]SearchResult, error)

	// Count 获取章节总数
	Count() (int, error)

	// GetDimension 返回向量维数
	GetDimension() int

	// Close 关闭仓库
	Close() error
}

// Config 向量仓库配置
type Config struct {
	Type              string       // 仓库类型，如 "memory", "faiss"
	Path              string       // 索引文件路径
	Dimension         int          // 向量维度
	DistanceType      DistanceType // 距离计算类型
	CreateIfNotExists bool         // 如果不存在是否创建
	InMemory          bool         // 是否仅在内存中运行
}

// Factory 向量仓库工厂函数类型
type Factory func(config Config) (Repository, error)

// RepositoryRegistry 注册可用的向量仓库实现
var RepositoryRegistry = map[string]Factory{}

// RegisterRepository 注册向量仓库工厂函数
func RegisterRepository(name string, factory Factory) {
	RepositoryRegistry[name] = factory
}

// NewRepository 根据配置创建向量仓库实例
func NewRepository(config Config) (Repository, error) {
	factory, ok := RepositoryRegistry[config.Type]
	if !ok {
		// 默认使用内存实现
		factory = NewMemoryRepository
	}
	return factory(config)
}
