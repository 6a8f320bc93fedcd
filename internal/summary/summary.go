// Package summary 为排名靠前的章节生成面向查询的抽取式摘要。
package summary

import (
	"context"
	"sort"
	"strings"
	"unicode"

	"github.com/adarshkasliwal/Adobe-Hackathon-Round2/internal/embedding"
	"github.com/adarshkasliwal/Adobe-Hackathon-Round2/internal/models"
	"github.com/adarshkasliwal/Adobe-Hackathon-Round2/internal/vectordb"
	"github.com/sirupsen/logrus"
)

// Config 摘要生成配置
type Config struct {
	MinLength int // 目标长度窗口下限（字符）
	MaxLength int // 目标长度窗口上限（字符）
}

// DefaultConfig 返回默认摘要配置
func DefaultConfig() Config {
	return Config{
		MinLength: 200,
		MaxLength: 300,
	}
}

// Generator 抽取式摘要生成器
// 对相同的(章节, 查询)输入产出确定性的结果
type Generator struct {
	engine embedding.Client
	cfg    Config
}

// NewGenerator 创建摘要生成器
// engine可以为nil，此时句子按关键词重合度打分
func NewGenerator(engine embedding.Client, cfg Config) *Generator {
	if cfg.MaxLength <= 0 {
		cfg.MaxLength = 300
	}
	if cfg.MinLength <= 0 || cfg.MinLength > cfg.MaxLength {
		cfg.MinLength = cfg.MaxLength * 2 / 3
	}

	return &Generator{
		engine: engine,
		cfg:    cfg,
	}
}

// Generate 生成章节摘要
// 按与查询的相似度贪心选取句子，按原文顺序拼接，
// 只在句子边界截断，绝不截断单词
func (g *Generator) Generate(ctx context.Context, sec models.Section, query models.RelevanceQuery) (string, error) {
	sentences := SplitSentences(sec.Body)
	if len(sentences) == 0 {
		return "", nil
	}

	scores, err := g.scoreSentences(ctx, sentences, query)
	if err != nil {
		return "", err
	}

	selected := g.selectSentences(sentences, scores)
	if len(selected) == 0 {
		// 所有句子都超出窗口，取最高分句子在词边界截断
		best := bestSentence(sentences, scores)
		return truncateAtWord(best, g.cfg.MaxLength), nil
	}

	return strings.Join(selected, " "), nil
}

// scoreSentences 计算每个句子与查询的相关度
func (g *Generator) scoreSentences(ctx context.Context, sentences []string, query models.RelevanceQuery) ([]float64, error) {
	if query.HasVector() && g.engine != nil {
		scores, err := g.semanticScores(ctx, sentences, query.Vector)
		if err == nil {
			return scores, nil
		}
		if !embedding.IsUnavailable(err) {
			return nil, err
		}
		logrus.WithError(err).Warn("embedding failed for sentences, using keyword scoring")
	}

	scores := make([]float64, len(sentences))
	for i, sent := range sentences {
		scores[i] = keywordOverlap(sent, query.Keywords)
	}
	return scores, nil
}

// semanticScores 批量嵌入句子并与查询向量求余弦相似度
func (g *Generator) semanticScores(ctx context.Context, sentences []string, queryVec []float32) ([]float64, error) {
	inputs := make([]string, len(sentences))
	window := g.engine.MaxInputChars()
	for i, sent := range sentences {
		if window > 0 && len([]rune(sent)) > window {
			sent = string([]rune(sent)[:window])
		}
		inputs[i] = sent
	}

	vectors, err := g.engine.EmbedBatch(ctx, inputs)
	if err != nil {
		return nil, err
	}

	scores := make([]float64, len(sentences))
	for i, vec := range vectors {
		dist, err := vectordb.ComputeDistance(queryVec, vec, vectordb.Cosine)
		if err != nil {
			return nil, err
		}
		score := float64(vectordb.DistanceToScore(dist, vectordb.Cosine))
		if score < 0 {
			score = 0
		}
		scores[i] = score
	}
	return scores, nil
}

// selectSentences 按得分从高到低贪心选句，按原文顺序返回
// 达到长度下限即停止，加入后超出上限的句子被跳过
func (g *Generator) selectSentences(sentences []string, scores []float64) []string {
	order := make([]int, len(sentences))
	for i := range order {
		order[i] = i
	}
	// 同分句子保持原文顺序，保证确定性
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})

	chosen := make(map[int]bool, len(sentences))
	total := 0
	for _, idx := range order {
		length := len([]rune(sentences[idx]))
		joined := length
		if total > 0 {
			joined++ // 拼接时的空格
		}
		if total+joined > g.cfg.MaxLength {
			continue
		}
		chosen[idx] = true
		total += joined
		if total >= g.cfg.MinLength {
			break
		}
	}

	if len(chosen) == 0 {
		return nil
	}

	selected := make([]string, 0, len(chosen))
	for i, sent := range sentences {
		if chosen[i] {
			selected = append(selected, sent)
		}
	}
	return selected
}

// bestSentence 返回得分最高的句子，同分取最靠前的
func bestSentence(sentences []string, scores []float64) string {
	best := 0
	for i := 1; i < len(sentences); i++ {
		if scores[i] > scores[best] {
			best = i
		}
	}
	return sentences[best]
}

// keywordOverlap 计算句子与查询关键词的重合度
func keywordOverlap(sentence string, keywords []string) float64 {
	if len(keywords) == 0 {
		return 0
	}

	tokens := embedding.Tokenize(sentence)
	if len(tokens) == 0 {
		return 0
	}

	present := make(map[string]bool, len(tokens))
	for _, tok := range tokens {
		present[tok] = true
	}

	matched := 0
	for _, kw := range keywords {
		if present[kw] {
			matched++
		}
	}
	return float64(matched) / float64(len(keywords))
}

// SplitSentences 将文本拆分为句子
// 以.!?后跟空白作为句子边界，保留结尾标点
func SplitSentences(text string) []string {
	var sentences []string
	var current strings.Builder

	runes := []rune(text)
	for i, r := range runes {
		current.WriteRune(r)

		if r != '.' && r != '!' && r != '?' {
			continue
		}
		// 标点后跟空白或到达文本末尾时断句
		if i+1 < len(runes) && !unicode.IsSpace(runes[i+1]) {
			continue
		}

		if sent := strings.TrimSpace(current.String()); sent != "" {
			sentences = append(sentences, sent)
		}
		current.Reset()
	}

	if sent := strings.TrimSpace(current.String()); sent != "" {
		sentences = append(sentences, sent)
	}
	return sentences
}

// truncateAtWord 在不超过maxLen的最后一个词边界处截断
func truncateAtWord(text string, maxLen int) string {
	runes := []rune(text)
	if len(runes) <= maxLen {
		return text
	}

	cut := maxLen
	for cut > 0 && !unicode.IsSpace(runes[cut]) {
		cut--
	}
	if cut == 0 {
		// 没有词边界，整句放弃截断为空
		return ""
	}
	return strings.TrimSpace(string(runes[:cut]))
}
