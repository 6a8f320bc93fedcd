// Package segmenter 依据大纲将文档切分为章节，大纲为空时退化为按页切分。
package segmenter

import (
	"fmt"
	"strings"

	"github.com/adarshkasliwal/Adobe-Hackathon-Round2/internal/classifier"
	"github.com/adarshkasliwal/Adobe-Hackathon-Round2/internal/models"
)

// Segmenter 章节切分器
// 每个文本块恰好归属一个章节，章节按起始页排序
type Segmenter struct{}

// New 创建章节切分器
func New() *Segmenter {
	return &Segmenter{}
}

// Segment 将文档切分为章节
// 大纲非空时以标题出现处为边界：章节正文为一个标题（含）到下一个标题（不含）
// 之间的全部文本，可跨页；大纲为空时回退为每页一个章节。
// 已知限制：段落中被误判的标题会导致过度切分，属于可接受的启发式取舍。
func (s *Segmenter) Segment(docID, docName string, blocks []models.TextBlock, nodes []models.OutlineNode) []models.Section {
	if len(blocks) == 0 {
		return nil
	}
	if len(nodes) == 0 {
		return s.SegmentPages(docID, docName, blocks)
	}

	var sections []models.Section
	var current *models.Section
	var body strings.Builder

	flush := func() {
		if current == nil {
			return
		}
		current.Body = strings.TrimSpace(body.String())
		current.Index = len(sections)
		sections = append(sections, *current)
		current = nil
		body.Reset()
	}

	next := 0 // 下一个待匹配的大纲节点
	for _, b := range blocks {
		if next < len(nodes) &&
			b.Page == nodes[next].Page &&
			classifier.CleanText(b.Text) == nodes[next].Text {
			// 标题出现，开启新章节
			flush()
			current = &models.Section{
				DocumentID: docID,
				Document:   docName,
				Title:      nodes[next].Text,
				StartPage:  b.Page,
				EndPage:    b.Page,
			}
			next++
		}

		if current == nil {
			// 首个标题之前的导言文本归入按页命名的前置章节
			current = &models.Section{
				DocumentID: docID,
				Document:   docName,
				Title:      fmt.Sprintf("Page %d", b.Page),
				StartPage:  b.Page,
				EndPage:    b.Page,
			}
		}

		if body.Len() > 0 {
			body.WriteString("\n")
		}
		body.WriteString(b.Text)
		if b.Page > current.EndPage {
			current.EndPage = b.Page
		}
	}
	flush()

	return sections
}

// SegmentPages 按页切分的回退路径
// 提取失败或大纲为空时使用，每页一个章节，标题为"Page N"
func (s *Segmenter) SegmentPages(docID, docName string, blocks []models.TextBlock) []models.Section {
	var sections []models.Section
	var current *models.Section
	var body strings.Builder

	flush := func() {
		if current == nil {
			return
		}
		current.Body = strings.TrimSpace(body.String())
		current.Index = len(sections)
		sections = append(sections, *current)
		current = nil
		body.Reset()
	}

	for _, b := range blocks {
		if current != nil && b.Page != current.StartPage {
			flush()
		}
		if current == nil {
			current = &models.Section{
				DocumentID: docID,
				Document:   docName,
				Title:      fmt.Sprintf("Page %d", b.Page),
				StartPage:  b.Page,
				EndPage:    b.Page,
			}
		}
		if body.Len() > 0 {
			body.WriteString("\n")
		}
		body.WriteString(b.Text)
	}
	flush()

	return sections
}
