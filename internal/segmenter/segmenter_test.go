package segmenter

import (
	"testing"

	"github.com/adarshkasliwal/Adobe-Hackathon-Round2/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func textBlock(page int, text string) models.TextBlock {
	return models.TextBlock{Page: page, Text: text, FontSize: 12}
}

func node(level models.HeadingLevel, text string, page int) models.OutlineNode {
	return models.OutlineNode{Level: level, Text: text, Page: page}
}

// TestSegmentByOutline 标题出现处作为章节边界
func TestSegmentByOutline(t *testing.T) {
	s := New()

	blocks := []models.TextBlock{
		textBlock(1, "Introduction"),
		textBlock(1, "This report covers the fiscal year."),
		textBlock(2, "It also includes projections."),
		textBlock(2, "Results"),
		textBlock(2, "Revenue grew substantially."),
		textBlock(3, "Margins improved as well."),
	}
	nodes := []models.OutlineNode{
		node(models.LevelH1, "Introduction", 1),
		node(models.LevelH1, "Results", 2),
	}

	sections := s.Segment("doc1", "report.pdf", blocks, nodes)
	require.Len(t, sections, 2)

	first := sections[0]
	assert.Equal(t, "Introduction", first.Title)
	assert.Equal(t, 1, first.StartPage)
	// 章节可以跨页
	assert.Equal(t, 2, first.EndPage)
	assert.Contains(t, first.Body, "fiscal year")
	assert.Contains(t, first.Body, "projections")
	assert.NotContains(t, first.Body, "Revenue grew")
	assert.Equal(t, 0, first.Index)

	second := sections[1]
	assert.Equal(t, "Results", second.Title)
	assert.Equal(t, 2, second.StartPage)
	assert.Equal(t, 3, second.EndPage)
	assert.Contains(t, second.Body, "Margins improved")
	assert.Equal(t, 1, second.Index)
}

// TestSegmentPreamble 首个标题之前的文本归入按页命名的前置章节
func TestSegmentPreamble(t *testing.T) {
	s := New()

	blocks := []models.TextBlock{
		textBlock(1, "Cover page material before any heading."),
		textBlock(1, "Introduction"),
		textBlock(1, "Actual content starts here."),
	}
	nodes := []models.OutlineNode{
		node(models.LevelH1, "Introduction", 1),
	}

	sections := s.Segment("doc1", "report.pdf", blocks, nodes)
	require.Len(t, sections, 2)

	assert.Equal(t, "Page 1", sections[0].Title)
	assert.Contains(t, sections[0].Body, "Cover page material")
	assert.Equal(t, "Introduction", sections[1].Title)
}

// TestSegmentBlockGranularity 每个文本块恰好归属一个章节
func TestSegmentBlockGranularity(t *testing.T) {
	s := New()

	blocks := []models.TextBlock{
		textBlock(1, "First Heading"),
		textBlock(1, "Shared page content."),
		textBlock(1, "Second Heading"),
		textBlock(1, "More content on the same page."),
	}
	nodes := []models.OutlineNode{
		node(models.LevelH2, "First Heading", 1),
		node(models.LevelH2, "Second Heading", 1),
	}

	sections := s.Segment("doc1", "report.pdf", blocks, nodes)
	require.Len(t, sections, 2)

	assert.Contains(t, sections[0].Body, "Shared page content.")
	assert.NotContains(t, sections[0].Body, "More content")
	assert.Contains(t, sections[1].Body, "More content")
	// 同页的两个章节页码范围可以相接
	assert.Equal(t, sections[0].EndPage, sections[1].StartPage)
}

// TestSegmentEmptyOutlineFallsBack 大纲为空时退化为按页切分
func TestSegmentEmptyOutlineFallsBack(t *testing.T) {
	s := New()

	blocks := []models.TextBlock{
		textBlock(1, "page one text"),
		textBlock(1, "more page one text"),
		textBlock(2, "page two text"),
		textBlock(3, "page three text"),
	}

	sections := s.Segment("doc1", "plain.txt", blocks, nil)
	require.Len(t, sections, 3)

	assert.Equal(t, "Page 1", sections[0].Title)
	assert.Contains(t, sections[0].Body, "more page one text")
	assert.Equal(t, "Page 2", sections[1].Title)
	assert.Equal(t, "Page 3", sections[2].Title)

	for i, sec := range sections {
		assert.Equal(t, i, sec.Index)
		assert.Equal(t, sec.StartPage, sec.EndPage)
	}
}

// TestSegmentEmptyBlocks 空块序列产出空结果
func TestSegmentEmptyBlocks(t *testing.T) {
	s := New()

	assert.Empty(t, s.Segment("doc1", "empty.pdf", nil, nil))
	assert.Empty(t, s.SegmentPages("doc1", "empty.pdf", nil))
}
