package relevance

import (
	"context"
	"fmt"

	"github.com/adarshkasliwal/Adobe-Hackathon-Round2/internal/embedding"
	"github.com/adarshkasliwal/Adobe-Hackathon-Round2/internal/models"
	"github.com/adarshkasliwal/Adobe-Hackathon-Round2/internal/vectordb"
	"github.com/sirupsen/logrus"
)

// Weights 综合分数的加权系数
type Weights struct {
	Semantic  float64 // 语义相似度权重
	Keyword   float64 // 关键词重合权重
	Proximity float64 // 邻近章节加成权重
}

// DefaultWeights 返回默认加权系数
func DefaultWeights() Weights {
	return Weights{
		Semantic:  0.6,
		Keyword:   0.3,
		Proximity: 0.1,
	}
}

// ScorerConfig 打分器配置
type ScorerConfig struct {
	Weights      Weights // 加权系数
	ChunkSize    int     // 长文本切块的字符窗口
	ChunkOverlap int     // 相邻块之间的重叠字符数
	DensityScale float64 // 关键词密度的放大系数
}

// DefaultScorerConfig 返回默认打分器配置
func DefaultScorerConfig() ScorerConfig {
	return ScorerConfig{
		Weights:      DefaultWeights(),
		ChunkSize:    1000,
		ChunkOverlap: 200,
		DensityScale: 25,
	}
}

// Scorer 章节相关性打分器
// 除共享的只读嵌入引擎外不携带任何跨调用状态
type Scorer struct {
	engine embedding.Client
	cfg    ScorerConfig
}

// NewScorer 创建打分器
// engine可以为nil，此时只使用关键词信号
func NewScorer(engine embedding.Client, cfg ScorerConfig) *Scorer {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 1000
	}
	if cfg.ChunkOverlap < 0 || cfg.ChunkOverlap >= cfg.ChunkSize {
		cfg.ChunkOverlap = cfg.ChunkSize / 5
	}
	if cfg.DensityScale <= 0 {
		cfg.DensityScale = 25
	}
	if cfg.Weights.Semantic+cfg.Weights.Keyword+cfg.Weights.Proximity == 0 {
		cfg.Weights = DefaultWeights()
	}

	return &Scorer{
		engine: engine,
		cfg:    cfg,
	}
}

// Score 对单个章节打分
// 邻近加成需要完整文档上下文，由ScoreDocument填充，这里为0
func (s *Scorer) Score(ctx context.Context, sec models.Section, query models.RelevanceQuery) (models.ScoredSection, error) {
	scored := models.ScoredSection{Section: sec}

	scored.KeywordScore = s.keywordScore(sec, query.Keywords)

	if query.HasVector() && s.engine != nil {
		semantic, err := s.semanticScore(ctx, sec, query.Vector)
		if err != nil {
			if !embedding.IsUnavailable(err) {
				return models.ScoredSection{}, err
			}
			// 嵌入引擎中途不可用，该章节退化为关键词打分
			logrus.WithError(err).WithField("section", sec.Title).
				Warn("embedding failed for section, using keyword-only score")
		} else {
			scored.SemanticScore = semantic
		}
	}

	scored.CompositeScore = s.composite(scored, query)
	return scored, nil
}

// ScoreDocument 对文档内的全部章节打分并计算邻近加成
// 章节顺序即文档内的阅读顺序
func (s *Scorer) ScoreDocument(ctx context.Context, secs []models.Section, query models.RelevanceQuery) ([]models.ScoredSection, error) {
	if len(secs) == 0 {
		return []models.ScoredSection{}, nil
	}

	scored := make([]models.ScoredSection, len(secs))
	for i, sec := range secs {
		ss, err := s.Score(ctx, sec, query)
		if err != nil {
			return nil, fmt.Errorf("failed to score section %q: %w", sec.Title, err)
		}
		scored[i] = ss
	}

	// 邻近加成：同文档相邻章节的基础分越高，当前章节得到的加成越大
	base := make([]float64, len(scored))
	for i := range scored {
		base[i] = s.baseScore(scored[i], query)
	}
	for i := range scored {
		var neighbor float64
		if i > 0 && base[i-1] > neighbor {
			neighbor = base[i-1]
		}
		if i < len(scored)-1 && base[i+1] > neighbor {
			neighbor = base[i+1]
		}
		scored[i].ProximityScore = neighbor
		scored[i].CompositeScore = s.composite(scored[i], query)
	}

	return scored, nil
}

// baseScore 不含邻近加成的归一化基础分
func (s *Scorer) baseScore(ss models.ScoredSection, query models.RelevanceQuery) float64 {
	w := s.cfg.Weights
	if !query.HasVector() {
		return ss.KeywordScore
	}
	total := w.Semantic + w.Keyword
	if total == 0 {
		return 0
	}
	return (w.Semantic*ss.SemanticScore + w.Keyword*ss.KeywordScore) / total
}

// composite 计算加权综合分数
// 查询不带向量时语义权重全部转移到关键词信号上
func (s *Scorer) composite(ss models.ScoredSection, query models.RelevanceQuery) float64 {
	w := s.cfg.Weights
	if !query.HasVector() {
		return (w.Semantic+w.Keyword)*ss.KeywordScore + w.Proximity*ss.ProximityScore
	}
	return w.Semantic*ss.SemanticScore + w.Keyword*ss.KeywordScore + w.Proximity*ss.ProximityScore
}

// semanticScore 计算章节与查询向量的余弦相似度
// 超出嵌入窗口的正文切块后平均池化
func (s *Scorer) semanticScore(ctx context.Context, sec models.Section, queryVec []float32) (float64, error) {
	text := sec.Title + " " + sec.Body
	window := s.cfg.ChunkSize
	if max := s.engine.MaxInputChars(); max > 0 && max < window {
		window = max
	}

	chunks := chunkText(text, window, s.cfg.ChunkOverlap)
	if len(chunks) == 0 {
		return 0, nil
	}

	vectors, err := s.engine.EmbedBatch(ctx, chunks)
	if err != nil {
		return 0, err
	}

	pooled := averagePool(vectors)
	if len(pooled) == 0 {
		return 0, nil
	}

	dist, err := vectordb.ComputeDistance(queryVec, pooled, vectordb.Cosine)
	if err != nil {
		return 0, err
	}

	score := float64(vectordb.DistanceToScore(dist, vectordb.Cosine))
	if score < 0 {
		score = 0
	}
	return score, nil
}

// keywordScore 计算长度归一化的关键词重合分数
// 覆盖率衡量命中了多少查询关键词，密度项避免偏向长章节
func (s *Scorer) keywordScore(sec models.Section, keywords []string) float64 {
	if len(keywords) == 0 {
		return 0
	}

	tokens := embedding.Tokenize(sec.Title + " " + sec.Body)
	if len(tokens) == 0 {
		return 0
	}

	counts := make(map[string]int, len(tokens))
	for _, tok := range tokens {
		counts[tok]++
	}

	matched := 0
	occurrences := 0
	for _, kw := range keywords {
		if n := counts[kw]; n > 0 {
			matched++
			occurrences += n
		}
	}
	if matched == 0 {
		return 0
	}

	coverage := float64(matched) / float64(len(keywords))
	density := float64(occurrences) / float64(len(tokens)) * s.cfg.DensityScale
	if density > 1 {
		density = 1
	}

	return 0.5*coverage + 0.5*density
}

// chunkText 按字符窗口切块，相邻块保留overlap个字符的重叠
// 按rune切分以保证多字节文本安全
func chunkText(text string, size, overlap int) []string {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}
	if len(runes) <= size {
		return []string{text}
	}

	step := size - overlap
	if step <= 0 {
		step = size
	}

	var chunks []string
	for start := 0; start < len(runes); start += step {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}
	return chunks
}

// averagePool 对多个向量做平均池化
func averagePool(vectors [][]float32) []float32 {
	if len(vectors) == 0 {
		return nil
	}
	if len(vectors) == 1 {
		return vectors[0]
	}

	dim := len(vectors[0])
	pooled := make([]float32, dim)
	for _, vec := range vectors {
		for i := 0; i < dim && i < len(vec); i++ {
			pooled[i] += vec[i]
		}
	}
	for i := range pooled {
		pooled[i] /= float32(len(vectors))
	}
	return pooled
}
