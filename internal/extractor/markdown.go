package extractor

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/gomarkdown/markdown/ast"
	"github.com/gomarkdown/markdown/parser"

	"github.com/adarshkasliwal/Adobe-Hackathon-Round2/internal/models"
)

// 标题深度到合成字体大小的映射
// 让基于字体统计的分类器能在Markdown输入上工作
var headingFontSizes = map[int]float64{
	1: 24,
	2: 18,
	3: 14,
	4: 13,
	5: 13,
	6: 13,
}

// markdownBodyFontSize Markdown正文的合成字体大小
const markdownBodyFontSize = 12

// MarkdownExtractor Markdown文本块提取器
// 遍历语法树，将标题深度映射为合成字体大小
type MarkdownExtractor struct{}

// NewMarkdownExtractor 创建新的Markdown提取器
func NewMarkdownExtractor() Extractor {
	return &MarkdownExtractor{}
}

// Extract 解析Markdown文件并提取文本块
func (e *MarkdownExtractor) Extract(filePath string) ([]models.TextBlock, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open markdown file: %w", err)
	}
	defer file.Close()

	return e.ExtractReader(file, filePath)
}

// ExtractReader 从Reader解析Markdown内容
func (e *MarkdownExtractor) ExtractReader(r io.Reader, filename string) ([]models.TextBlock, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read markdown content: %w", err)
	}

	// 创建Markdown解析器
	extensions := parser.CommonExtensions | parser.AutoHeadingIDs
	mdParser := parser.NewWithExtensions(extensions)

	// 解析为语法树
	doc := mdParser.Parse(content)

	var blocks []models.TextBlock
	lineOnPage := 0

	// 遍历顶层块节点，标题和段落各成文本块
	ast.WalkFunc(doc, func(node ast.Node, entering bool) ast.WalkStatus {
		if !entering {
			return ast.GoToNext
		}

		switch n := node.(type) {
		case *ast.Heading:
			text := collectText(n)
			if text == "" {
				return ast.SkipChildren
			}
			size, ok := headingFontSizes[n.Level]
			if !ok {
				size = markdownBodyFontSize
			}
			blocks = append(blocks, models.TextBlock{
				Page:     1,
				Text:     text,
				FontSize: size,
				FontName: "markdown",
				Bold:     true,
				BBox:     synthesizeBBox(lineOnPage, size),
			})
			lineOnPage++
			return ast.SkipChildren

		case *ast.Paragraph:
			text := collectText(n)
			if text == "" {
				return ast.SkipChildren
			}
			blocks = append(blocks, models.TextBlock{
				Page:     1,
				Text:     text,
				FontSize: markdownBodyFontSize,
				FontName: "markdown",
				Bold:     isAllStrong(n),
				BBox:     synthesizeBBox(lineOnPage, markdownBodyFontSize),
			})
			lineOnPage++
			return ast.SkipChildren
		}

		return ast.GoToNext
	})

	if len(blocks) == 0 {
		return nil, ErrNoTextContent
	}
	return blocks, nil
}

// collectText 收集节点下所有叶子文本
func collectText(node ast.Node) string {
	var sb strings.Builder

	ast.WalkFunc(node, func(n ast.Node, entering bool) ast.WalkStatus {
		if !entering {
			return ast.GoToNext
		}
		if leaf := n.AsLeaf(); leaf != nil {
			sb.Write(leaf.Literal)
		}
		return ast.GoToNext
	})

	return strings.TrimSpace(strings.Join(strings.Fields(sb.String()), " "))
}

// isAllStrong 段落内容是否整体加粗
func isAllStrong(node ast.Node) bool {
	children := node.GetChildren()
	if len(children) != 1 {
		return false
	}
	_, ok := children[0].(*ast.Strong)
	return ok
}
