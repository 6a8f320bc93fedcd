package storage

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
)

// ErrNotFound 文件不存在
var ErrNotFound = errors.New("storage: file not found")

// FileInfo 文件元数据结构
type FileInfo struct {
	ID       string // 文件唯一标识符
	Name     string // 原始文件名
	Size     int64  // 文件大小(字节)
	MimeType string // 文件MIME类型
	Path     string // 内部存储路径(实现相关)
}

// Storage 文档存储接口
// 批量分析的输入文档先落入存储，再由提取层按ID读取；
// 可以有不同实现(本地文件系统、MinIO等)
type Storage interface {
	// Save 保存文件并返回文件信息
	Save(ctx context.Context, reader io.Reader, filename string) (FileInfo, error)

	// Get 获取文件内容
	Get(ctx context.Context, id string) (io.ReadCloser, error)

	// Delete 删除文件
	Delete(ctx context.Context, id string) error

	// List 列出所有文件
	List(ctx context.Context) ([]FileInfo, error)

	// Exists 检查文件是否存在
	Exists(ctx context.Context, id string) (bool, error)
}

// Config 存储配置
type Config struct {
	Type      string // 存储类型: local, minio
	Path      string // 本地存储路径
	Endpoint  string // MinIO服务端点
	AccessKey string // 访问密钥ID
	SecretKey string // 秘密访问密钥
	UseSSL    bool   // 是否使用SSL
	Bucket    string // 存储桶名称
}

// Factory 存储实现的工厂函数
type Factory func(cfg Config) (Storage, error)

// 全局注册的存储工厂函数
var storageFactories = make(map[string]Factory)

// RegisterStorage 注册存储工厂函数
func RegisterStorage(name string, factory Factory) {
	storageFactories[name] = factory
}

// NewStorage 根据配置创建存储实例
// 未指定类型时默认使用本地存储
func NewStorage(cfg Config) (Storage, error) {
	name := cfg.Type
	if name == "" {
		name = "local"
	}
	factory, exists := storageFactories[name]
	if !exists {
		return nil, errors.New("storage type not registered: " + name)
	}
	return factory(cfg)
}

// MimeType 根据文件扩展名判断MIME类型
func MimeType(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return "application/pdf"
	case ".md", ".markdown":
		return "text/markdown"
	case ".txt":
		return "text/plain"
	case ".json":
		return "application/json"
	default:
		return "application/octet-stream"
	}
}
