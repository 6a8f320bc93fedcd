// Package outline 将标题候选组装为有序去重的文档大纲。
package outline

import (
	"github.com/adarshkasliwal/Adobe-Hackathon-Round2/internal/models"
)

// MaxEntries 大纲条目数量上限
const MaxEntries = 50

// Builder 大纲构建器
// 保持阅读顺序和1起始页码，折叠连续重复项，不构建层级嵌套
type Builder struct {
	maxEntries int
}

// NewBuilder 创建大纲构建器
func NewBuilder() *Builder {
	return &Builder{maxEntries: MaxEntries}
}

// Build 由候选列表构建大纲节点序列
func (b *Builder) Build(candidates []models.HeadingCandidate) []models.OutlineNode {
	nodes := make([]models.OutlineNode, 0, len(candidates))

	for _, cand := range candidates {
		node := models.OutlineNode{
			Level: cand.Level,
			Text:  cand.Text,
			Page:  cand.Page,
		}

		// 折叠连续重复项（文本、层级、页码均相同）
		if n := len(nodes); n > 0 && nodes[n-1] == node {
			continue
		}

		nodes = append(nodes, node)
		if len(nodes) >= b.maxEntries {
			break
		}
	}

	return nodes
}
