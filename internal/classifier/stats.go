package classifier

import (
	"math"
	"sort"

	"github.com/adarshkasliwal/Adobe-Hackathon-Round2/internal/models"
)

// FontStats 文档级字体统计
// 按字符数加权计算一次后显式传递，分类本身保持纯函数
type FontStats struct {
	BodySize   float64 // 正文字体大小（按字符数加权的中位数）
	Mean       float64 // 加权平均字体大小
	StdDev     float64 // 加权标准差
	BoldRatio  float64 // 加粗字符占比
	TotalChars int     // 参与统计的字符总数
	Distinct   int     // 不同字体大小的数量
}

// ComputeFontStats 计算文档的字体大小分布
// 权重为每个块的字符数，使正文字号成为分布的主导值
func ComputeFontStats(blocks []models.TextBlock) FontStats {
	type sizeWeight struct {
		size   float64
		weight int
	}

	weights := make(map[float64]int)
	boldChars := 0
	total := 0

	for _, b := range blocks {
		n := len([]rune(b.Text))
		if n == 0 || b.FontSize <= 0 {
			continue
		}
		weights[b.FontSize] += n
		total += n
		if b.Bold {
			boldChars += n
		}
	}

	if total == 0 {
		return FontStats{}
	}

	sizes := make([]sizeWeight, 0, len(weights))
	for size, w := range weights {
		sizes = append(sizes, sizeWeight{size, w})
	}
	sort.Slice(sizes, func(i, j int) bool { return sizes[i].size < sizes[j].size })

	// 加权中位数：累计字符数过半处的字号即正文字号
	half := total / 2
	acc := 0
	body := sizes[len(sizes)-1].size
	for _, sw := range sizes {
		acc += sw.weight
		if acc > half {
			body = sw.size
			break
		}
	}

	// 加权均值与标准差
	var sum float64
	for _, sw := range sizes {
		sum += sw.size * float64(sw.weight)
	}
	mean := sum / float64(total)

	var varSum float64
	for _, sw := range sizes {
		d := sw.size - mean
		varSum += d * d * float64(sw.weight)
	}
	stddev := math.Sqrt(varSum / float64(total))

	return FontStats{
		BodySize:   body,
		Mean:       mean,
		StdDev:     stddev,
		BoldRatio:  float64(boldChars) / float64(total),
		TotalChars: total,
		Distinct:   len(sizes),
	}
}

// ZScore 返回字号相对分布的z分数
// 分布无方差时返回0，对应单一字号文档的退化情形
func (s FontStats) ZScore(size float64) float64 {
	if s.StdDev == 0 {
		return 0
	}
	return (size - s.Mean) / s.StdDev
}
