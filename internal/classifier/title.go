package classifier

import (
	"github.com/adarshkasliwal/Adobe-Hackathon-Round2/internal/models"
)

// DetectTitle 选取文档标题
// 在首页顶部区域内选择字号最大的块，平局时加粗优先、长度次之；
// 无满足约束的块时回退为首个H1候选的文本，再无则为空标题。
func (c *Classifier) DetectTitle(blocks []models.TextBlock, candidates []models.HeadingCandidate) string {
	topLimit := c.cfg.TitleTopFraction * c.cfg.PageHeight

	var best *models.TextBlock
	var bestText string
	for i := range blocks {
		b := &blocks[i]
		if b.Page != 1 {
			continue
		}
		if b.BBox.Top() > topLimit {
			continue
		}
		text := CleanText(b.Text)
		n := len([]rune(text))
		if n < c.cfg.TitleMinLen || n > c.cfg.TitleMaxLen {
			continue
		}

		if best == nil || titleBetter(b, text, best, bestText) {
			best = b
			bestText = text
		}
	}

	if best != nil {
		return bestText
	}

	// 回退：首个H1候选
	for _, cand := range candidates {
		if cand.Level == models.LevelH1 {
			return cand.Text
		}
	}
	return ""
}

// titleBetter 候选块是否优于当前最佳标题块
func titleBetter(b *models.TextBlock, text string, best *models.TextBlock, bestText string) bool {
	if b.FontSize != best.FontSize {
		return b.FontSize > best.FontSize
	}
	if b.Bold != best.Bold {
		return b.Bold
	}
	return len([]rune(text)) > len([]rune(bestText))
}
