package extractor

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/adarshkasliwal/Adobe-Hackathon-Round2/internal/models"
)

// blockRecord 外部提取层输出的块记录
// 与PyMuPDF风格的span导出格式兼容
type blockRecord struct {
	Text     string     `json:"text"`
	FontSize float64    `json:"font_size"`
	FontName string     `json:"font_name"`
	Bold     bool       `json:"bold"`
	Italic   bool       `json:"italic"`
	BBox     [4]float64 `json:"bbox"`
	Page     int        `json:"page"`
}

// JSONBlocksExtractor 预提取文本块的提取器
// 消费外部提取层（输入契约）导出的JSON块记录
type JSONBlocksExtractor struct{}

// NewJSONBlocksExtractor 创建新的JSON块提取器
func NewJSONBlocksExtractor() Extractor {
	return &JSONBlocksExtractor{}
}

// Extract 读取JSON块文件
func (e *JSONBlocksExtractor) Extract(filePath string) ([]models.TextBlock, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open blocks file: %w", err)
	}
	defer file.Close()

	return e.ExtractReader(file, filePath)
}

// ExtractReader 从Reader解码JSON块记录
func (e *JSONBlocksExtractor) ExtractReader(r io.Reader, filename string) ([]models.TextBlock, error) {
	var records []blockRecord
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedInput, err)
	}

	blocks := make([]models.TextBlock, 0, len(records))
	for _, rec := range records {
		if rec.Text == "" {
			continue
		}
		// 页码缺失视为格式错误，调用方会回退到按页切分
		if rec.Page < 1 {
			return nil, fmt.Errorf("%w: block without page number", ErrMalformedInput)
		}
		blocks = append(blocks, models.TextBlock{
			Page:     rec.Page,
			Text:     rec.Text,
			FontSize: rec.FontSize,
			FontName: rec.FontName,
			Bold:     rec.Bold,
			Italic:   rec.Italic,
			BBox:     models.BBox(rec.BBox),
		})
	}

	if len(blocks) == 0 {
		return nil, ErrNoTextContent
	}
	return blocks, nil
}
