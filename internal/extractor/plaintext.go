package extractor

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/adarshkasliwal/Adobe-Hackathon-Round2/internal/models"
)

// PlainTextExtractor 纯文本提取器
// 每个非空行一个文本块，换页符或固定行数触发分页
type PlainTextExtractor struct{}

// NewPlainTextExtractor 创建新的纯文本提取器
func NewPlainTextExtractor() Extractor {
	return &PlainTextExtractor{}
}

// Extract 读取纯文本文件并提取文本块
func (e *PlainTextExtractor) Extract(filePath string) ([]models.TextBlock, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open text file: %w", err)
	}
	defer file.Close()

	return e.ExtractReader(file, filePath)
}

// ExtractReader 从Reader提取文本块
func (e *PlainTextExtractor) ExtractReader(r io.Reader, filename string) ([]models.TextBlock, error) {
	var blocks []models.TextBlock

	page := 1
	lineOnPage := 0

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()

		// 换页符开启新页
		if strings.Contains(line, "\f") {
			page++
			lineOnPage = 0
			line = strings.ReplaceAll(line, "\f", " ")
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		blocks = append(blocks, models.TextBlock{
			Page:     page,
			Text:     line,
			FontSize: 12,
			FontName: "plain",
			BBox:     synthesizeBBox(lineOnPage, 12),
		})
		lineOnPage++

		// 超过每页行数限制时合成分页
		if lineOnPage >= linesPerPage {
			page++
			lineOnPage = 0
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read text content: %w", err)
	}

	if len(blocks) == 0 {
		return nil, ErrNoTextContent
	}
	return blocks, nil
}
