package relevance

import (
	"sort"

	"github.com/adarshkasliwal/Adobe-Hackathon-Round2/internal/models"
)

// Ranker 跨文档章节排名器
// 汇总所有文档的打分结果产出全局重要性排名
type Ranker struct {
	docOrder map[string]int // 文档ID到输入顺序的映射
}

// NewRanker 创建排名器
// documentIDs为文档的输入顺序，决定同分章节的先后
func NewRanker(documentIDs []string) *Ranker {
	order := make(map[string]int, len(documentIDs))
	for i, id := range documentIDs {
		order[id] = i
	}
	return &Ranker{docOrder: order}
}

// Rank 对全部章节按综合分数降序排序并赋予稠密排名
// 同分时按文档输入顺序、页码、文档内章节序号决定先后
// 返回的排名为连续的1..N，无空缺无重复
func (r *Ranker) Rank(scored []models.ScoredSection) []models.ScoredSection {
	ranked := make([]models.ScoredSection, len(scored))
	copy(ranked, scored)

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].CompositeScore != ranked[j].CompositeScore {
			return ranked[i].CompositeScore > ranked[j].CompositeScore
		}
		oi, oj := r.orderOf(ranked[i].DocumentID), r.orderOf(ranked[j].DocumentID)
		if oi != oj {
			return oi < oj
		}
		if ranked[i].StartPage != ranked[j].StartPage {
			return ranked[i].StartPage < ranked[j].StartPage
		}
		return ranked[i].Index < ranked[j].Index
	})

	for i := range ranked {
		ranked[i].ImportanceRank = i + 1
	}
	return ranked
}

// TopK 截取排名最靠前的k个章节
// k不为正时返回全部
func TopK(ranked []models.ScoredSection, k int) []models.ScoredSection {
	if k <= 0 || len(ranked) <= k {
		return ranked
	}
	return ranked[:k]
}

// orderOf 返回文档的输入顺序，未知文档排在最后
func (r *Ranker) orderOf(documentID string) int {
	if idx, ok := r.docOrder[documentID]; ok {
		return idx
	}
	return len(r.docOrder)
}
