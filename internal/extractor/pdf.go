package extractor

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/adarshkasliwal/Adobe-Hackathon-Round2/internal/models"
)

// PDFExtractor 基于pdfcpu的PDF文本块提取器
// pdfcpu不提供字形级的字体度量，块的格式信息按行合成；
// 需要真实字体信息时应使用JSONBlocks输入契约对接外部提取层
type PDFExtractor struct{}

// NewPDFExtractor 创建一个新的PDF提取器
func NewPDFExtractor() Extractor {
	return &PDFExtractor{}
}

// Extract 解析PDF文件并按页提取文本块
func (e *PDFExtractor) Extract(filePath string) ([]models.TextBlock, error) {
	// 创建临时目录用于存放提取的文本
	tmpDir, err := os.MkdirTemp("", "pdfcpu_extract_")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	// 使用默认配置
	conf := model.NewDefaultConfiguration()

	// 提取文本到临时目录，每页一个文件
	if err := api.ExtractContentFile(filePath, tmpDir, nil, conf); err != nil {
		return nil, fmt.Errorf("failed to extract text from PDF: %w", err)
	}

	// 读取所有提取出来的txt文件
	entries, err := os.ReadDir(tmpDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read extracted text dir: %w", err)
	}

	// 按文件名尾部的页码数值排序，字典序会把page_10排到page_2之前
	sort.Slice(entries, func(i, j int) bool {
		pi, pj := pageFileNumber(entries[i].Name()), pageFileNumber(entries[j].Name())
		if pi != pj {
			return pi < pj
		}
		return entries[i].Name() < entries[j].Name()
	})

	var blocks []models.TextBlock
	page := 0
	for _, entry := range entries {
		if !strings.HasSuffix(entry.Name(), ".txt") {
			continue
		}
		page++
		if n := pageFileNumber(entry.Name()); n > 0 {
			page = n
		}

		data, err := os.ReadFile(filepath.Join(tmpDir, entry.Name()))
		if err != nil {
			continue
		}

		blocks = append(blocks, pageTextToBlocks(string(data), page)...)
	}

	if len(blocks) == 0 {
		return nil, ErrNoTextContent
	}
	return blocks, nil
}

// ExtractReader 从Reader解析PDF内容
// pdfcpu的内容提取API基于文件路径，这里先落盘到临时文件
func (e *PDFExtractor) ExtractReader(r io.Reader, filename string) ([]models.TextBlock, error) {
	tmpFile, err := os.CreateTemp("", "pdf_input_*.pdf")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmpFile.Name())

	if _, err := io.Copy(tmpFile, r); err != nil {
		tmpFile.Close()
		return nil, fmt.Errorf("failed to write temp file: %w", err)
	}
	tmpFile.Close()

	return e.Extract(tmpFile.Name())
}

var pageFileRe = regexp.MustCompile(`(\d+)\.txt$`)

// pageFileNumber 解析pdfcpu每页输出文件名尾部的页码，无页码时返回0
func pageFileNumber(name string) int {
	m := pageFileRe.FindStringSubmatch(name)
	if m == nil {
		return 0
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return n
}

// pageTextToBlocks 将单页纯文本转为文本块序列
// 每个非空行一个块，字体信息取正文默认值
func pageTextToBlocks(text string, page int) []models.TextBlock {
	var blocks []models.TextBlock

	lineOnPage := 0
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		blocks = append(blocks, models.TextBlock{
			Page:     page,
			Text:     line,
			FontSize: 12,
			FontName: "unknown",
			BBox:     synthesizeBBox(lineOnPage, 12),
		})
		lineOnPage++
	}

	return blocks
}
