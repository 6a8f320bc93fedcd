// Package relevance 实现人物角色与任务驱动的章节相关性打分和跨文档排名。
package relevance

import (
	"context"
	"strings"

	"github.com/adarshkasliwal/Adobe-Hackathon-Round2/internal/embedding"
	"github.com/adarshkasliwal/Adobe-Hackathon-Round2/internal/models"
	"github.com/sirupsen/logrus"
)

// stopwords 英文常见停用词
// 关键词集合在此之外的词上构建
var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "and": {}, "or": {}, "but": {},
	"of": {}, "to": {}, "in": {}, "on": {}, "at": {}, "by": {},
	"for": {}, "with": {}, "from": {}, "as": {}, "is": {}, "are": {},
	"was": {}, "were": {}, "be": {}, "been": {}, "being": {},
	"it": {}, "its": {}, "this": {}, "that": {}, "these": {}, "those": {},
	"i": {}, "you": {}, "he": {}, "she": {}, "we": {}, "they": {},
	"my": {}, "your": {}, "his": {}, "her": {}, "our": {}, "their": {},
	"do": {}, "does": {}, "did": {}, "will": {}, "would": {}, "can": {},
	"could": {}, "should": {}, "may": {}, "might": {}, "must": {},
	"have": {}, "has": {}, "had": {}, "not": {}, "no": {}, "nor": {},
	"so": {}, "if": {}, "then": {}, "than": {}, "too": {}, "very": {},
	"about": {}, "into": {}, "over": {}, "under": {}, "all": {}, "any": {},
	"each": {}, "both": {}, "more": {}, "most": {}, "other": {}, "some": {},
	"such": {}, "only": {}, "same": {}, "what": {}, "which": {}, "who": {},
	"when": {}, "where": {}, "how": {}, "why": {}, "there": {}, "here": {},
}

// ExtractKeywords 从文本中提取停用词过滤后的去重关键词
// 保留首次出现的顺序
func ExtractKeywords(text string) []string {
	tokens := embedding.Tokenize(text)
	seen := make(map[string]struct{}, len(tokens))
	keywords := make([]string, 0, len(tokens))

	for _, tok := range tokens {
		if _, isStop := stopwords[tok]; isStop {
			continue
		}
		if _, dup := seen[tok]; dup {
			continue
		}
		seen[tok] = struct{}{}
		keywords = append(keywords, tok)
	}
	return keywords
}

// BuildQuery 从人物角色和任务描述构建相关性查询
// 嵌入引擎不可用时返回不带向量的查询，打分退化为纯关键词模式
func BuildQuery(ctx context.Context, persona, job string, engine embedding.Client) (models.RelevanceQuery, error) {
	query := models.RelevanceQuery{
		Persona:  persona,
		Job:      job,
		Keywords: ExtractKeywords(persona + " " + strings.TrimSpace(job)),
	}

	if engine == nil {
		return query, nil
	}

	vector, err := engine.Embed(ctx, query.Text())
	if err != nil {
		if embedding.IsUnavailable(err) {
			logrus.WithError(err).Warn("embedding engine unavailable, falling back to keyword-only scoring")
			return query, nil
		}
		return models.RelevanceQuery{}, err
	}

	query.Vector = vector
	return query, nil
}
