package extractor

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/adarshkasliwal/Adobe-Hackathon-Round2/internal/models"
)

// 常用错误定义
var (
	// ErrUnsupportedFormat 不支持的文档格式
	ErrUnsupportedFormat = errors.New("unsupported document format")
	// ErrNoTextContent 文档中没有可提取的文本
	ErrNoTextContent = errors.New("no text content found in document")
	// ErrMalformedInput 输入数据格式错误
	ErrMalformedInput = errors.New("malformed input data")
)

// Extractor 文本块提取器接口
// 负责将不同格式的文档解析为带格式信息的文本块序列
type Extractor interface {
	// Extract 解析文档文件，按阅读顺序返回文本块
	Extract(filePath string) ([]models.TextBlock, error)

	// ExtractReader 从Reader解析文档，filename用于确定文档类型
	ExtractReader(r io.Reader, filename string) ([]models.TextBlock, error)
}

// ContentType 表示文档的内容类型
type ContentType string

const (
	// PDF 文档类型
	PDF ContentType = "pdf"
	// Markdown 文档类型
	Markdown ContentType = "markdown"
	// PlainText 纯文本类型
	PlainText ContentType = "plaintext"
	// JSONBlocks 预提取的文本块记录（外部提取层的输入契约）
	JSONBlocks ContentType = "jsonblocks"
	// Unknown 未知类型
	Unknown ContentType = "unknown"
)

// Factory 提取器工厂函数，根据文件类型创建对应的提取器
func Factory(filePath string) (Extractor, error) {
	contentType := DetectContentType(filePath)

	switch contentType {
	case PDF:
		return NewPDFExtractor(), nil
	case Markdown:
		return NewMarkdownExtractor(), nil
	case PlainText:
		return NewPlainTextExtractor(), nil
	case JSONBlocks:
		return NewJSONBlocksExtractor(), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(filePath))
	}
}

// DetectContentType 根据文件扩展名检测内容类型
func DetectContentType(filePath string) ContentType {
	ext := strings.ToLower(filepath.Ext(filePath))

	switch ext {
	case ".pdf":
		return PDF
	case ".md", ".markdown":
		return Markdown
	case ".txt":
		return PlainText
	case ".json":
		return JSONBlocks
	default:
		return Unknown
	}
}

// Chain 有序的提取器回退链
// 依次尝试每个后端，首个成功者即返回，对应提取方法的"先A后B"回退策略
type Chain struct {
	backends []Extractor
}

// NewChain 创建提取器回退链
func NewChain(backends ...Extractor) *Chain {
	return &Chain{backends: backends}
}

// Extract 依次尝试各后端提取文件
func (c *Chain) Extract(filePath string) ([]models.TextBlock, error) {
	if len(c.backends) == 0 {
		return nil, errors.New("extractor chain is empty")
	}

	var lastErr error
	for _, backend := range c.backends {
		blocks, err := backend.Extract(filePath)
		if err == nil && len(blocks) > 0 {
			return blocks, nil
		}
		if err != nil {
			lastErr = err
		} else {
			lastErr = ErrNoTextContent
		}
	}

	return nil, fmt.Errorf("all extractor backends failed: %w", lastErr)
}

// ExtractReader 依次尝试各后端从Reader提取
// 为支持多次尝试，会先读入全部内容
func (c *Chain) ExtractReader(r io.Reader, filename string) ([]models.TextBlock, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}

	var lastErr error
	for _, backend := range c.backends {
		blocks, err := backend.ExtractReader(strings.NewReader(string(data)), filename)
		if err == nil && len(blocks) > 0 {
			return blocks, nil
		}
		if err != nil {
			lastErr = err
		} else {
			lastErr = ErrNoTextContent
		}
	}

	return nil, fmt.Errorf("all extractor backends failed: %w", lastErr)
}

// 合成边界框使用的页面几何参数
// 没有真实字形度量的后端（纯文本、Markdown）按行排布合成边界框
const (
	pageWidth    = 612.0 // Letter页宽，单位点
	pageHeight   = 792.0 // Letter页高，单位点
	pageMarginX  = 72.0  // 水平页边距
	pageMarginY  = 72.0  // 垂直页边距
	lineAdvance  = 16.0  // 行间距
	linesPerPage = 40    // 合成分页时每页行数
)

// synthesizeBBox 为第lineOnPage行的文本合成边界框
func synthesizeBBox(lineOnPage int, fontSize float64) models.BBox {
	top := pageMarginY + float64(lineOnPage)*lineAdvance
	return models.BBox{pageMarginX, top, pageWidth - pageMarginX, top + fontSize}
}
