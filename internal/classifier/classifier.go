package classifier

import (
	"sort"

	"github.com/adarshkasliwal/Adobe-Hackathon-Round2/internal/models"
)

// Config 标题分类器配置
type Config struct {
	MinTextLen          int     // 噪声块过滤阈值（字符数）
	MaxHeadingLen       int     // 标题候选的最大长度
	ZThreshold          float64 // 字号z分数的显著性阈值
	SizeRatio           float64 // 字号与正文比例的候选阈值
	ConfidenceThreshold float64 // 候选置信度过滤阈值
	TitleTopFraction    float64 // 标题必须位于首页顶部的比例
	TitleMinLen         int     // 标题最小长度
	TitleMaxLen         int     // 标题最大长度
	PageHeight          float64 // 页面高度，用于顶部位置判断
}

// DefaultConfig 返回默认分类器配置
func DefaultConfig() Config {
	return Config{
		MinTextLen:          3,
		MaxHeadingLen:       200,
		ZThreshold:          1.0,
		SizeRatio:           1.1,
		ConfidenceThreshold: 0.2,
		TitleTopFraction:    0.3,
		TitleMinLen:         3,
		TitleMaxLen:         120,
		PageHeight:          792,
	}
}

// Classifier 标题分类器
// 基于字体统计和文本模式将文本块分类为标题候选，无隐藏可变状态
type Classifier struct {
	cfg Config
}

// New 创建标题分类器
func New(cfg Config) *Classifier {
	return &Classifier{cfg: cfg}
}

// NewDefault 使用默认配置创建分类器
func NewDefault() *Classifier {
	return New(DefaultConfig())
}

// Classify 将文本块分类为标题候选列表
// 输出按原始阅读顺序排列，页码单调不减
func (c *Classifier) Classify(blocks []models.TextBlock) []models.HeadingCandidate {
	stats := ComputeFontStats(blocks)
	if stats.TotalChars == 0 {
		return nil
	}

	// 第一遍：按显式特征收集候选
	var candidates []models.HeadingCandidate
	for i, b := range blocks {
		text := CleanText(b.Text)
		n := len([]rune(text))
		if n < c.cfg.MinTextLen || n > c.cfg.MaxHeadingLen {
			continue
		}

		z := stats.ZScore(b.FontSize)
		sizeHit := z >= c.cfg.ZThreshold ||
			(stats.StdDev > 0 && stats.BodySize > 0 && b.FontSize/stats.BodySize > c.cfg.SizeRatio)
		pattern := MatchesHeadingPattern(text)
		// 加粗显著高于正文的典型字重才算特征
		boldHit := b.Bold && stats.BoldRatio < 0.5

		if !sizeHit && !pattern && !boldHit {
			continue
		}

		candidates = append(candidates, models.HeadingCandidate{
			Text:       text,
			Page:       b.Page,
			Position:   i,
			FontSize:   b.FontSize,
			Bold:       b.Bold,
			Pattern:    pattern,
			Confidence: confidence(z, pattern, boldHit),
		})
	}

	// 置信度过滤
	filtered := candidates[:0]
	for _, cand := range candidates {
		if cand.Confidence >= c.cfg.ConfidenceThreshold {
			filtered = append(filtered, cand)
		}
	}
	candidates = filtered

	c.assignLevels(candidates, stats)
	return candidates
}

// assignLevels 将候选字号映射到H1/H2/H3层级
// 字号层级由字号显著的候选建立；仅模式命中的候选并入最近的未占用层级
func (c *Classifier) assignLevels(candidates []models.HeadingCandidate, stats FontStats) {
	levels := []models.HeadingLevel{models.LevelH1, models.LevelH2, models.LevelH3}

	// 收集字号显著候选的去重字号，排序时以加粗和首次出现位置保证确定性
	var ordered []models.HeadingCandidate
	for _, cand := range candidates {
		z := stats.ZScore(cand.FontSize)
		if z >= c.cfg.ZThreshold ||
			(stats.StdDev > 0 && stats.BodySize > 0 && cand.FontSize/stats.BodySize > c.cfg.SizeRatio) {
			ordered = append(ordered, cand)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if a.FontSize != b.FontSize {
			return a.FontSize > b.FontSize
		}
		// 字号相同：加粗优先，再按首次出现（页码、位置）
		if a.Bold != b.Bold {
			return a.Bold
		}
		if a.Page != b.Page {
			return a.Page < b.Page
		}
		return a.Position < b.Position
	})

	sizeToLevel := make(map[float64]models.HeadingLevel)
	for _, cand := range ordered {
		if _, seen := sizeToLevel[cand.FontSize]; seen {
			continue
		}
		if len(sizeToLevel) >= len(levels) {
			break
		}
		sizeToLevel[cand.FontSize] = levels[len(sizeToLevel)]
	}

	// 层级占用表，供模式候选并入未占用的最高层级
	used := make(map[models.HeadingLevel]bool)
	for _, lvl := range sizeToLevel {
		used[lvl] = true
	}
	foldLevel := models.LevelH3
	for _, lvl := range levels {
		if !used[lvl] {
			foldLevel = lvl
			break
		}
	}

	for i := range candidates {
		if lvl, ok := sizeToLevel[candidates[i].FontSize]; ok {
			candidates[i].Level = lvl
		} else if candidates[i].Pattern {
			candidates[i].Level = foldLevel
		} else {
			candidates[i].Level = models.LevelH3
		}
	}
}

// confidence 计算候选置信度
// z分数幅度归一化后加上模式与加粗的固定加成，截断到[0,1]
func confidence(z float64, pattern, bold bool) float64 {
	conf := z / 3.0
	if conf < 0 {
		conf = 0
	}
	if pattern {
		conf += 0.3
	}
	if bold {
		conf += 0.1
	}
	if conf > 1 {
		conf = 1
	}
	return conf
}
