package embedding

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// LocalClient 本地确定性嵌入客户端
// 基于特征哈希的词袋投影：无网络调用，相同输入恒产出相同向量，
// 满足管线可复现性要求，也是嵌入服务不可用时的默认引擎
type LocalClient struct {
	dimensions int // 向量维度
	maxInput   int // 单次输入字符窗口
	model      string
}

// NewLocalClient 创建本地嵌入客户端
func NewLocalClient(opts ...Option) (Client, error) {
	cfg := NewConfig(opts...)

	dims := cfg.Dimensions
	if dims <= 0 {
		dims = 256
	}
	maxInput := cfg.MaxInput
	if maxInput <= 0 {
		maxInput = 1000
	}

	return &LocalClient{
		dimensions: dims,
		maxInput:   maxInput,
		model:      "local-hash-v1",
	}, nil
}

// Embed 生成单条文本的向量表示
func (c *LocalClient) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, NewEmbeddingError(ErrCodeEmptyInput, ErrMsgEmptyInput)
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	return c.embed(text), nil
}

// EmbedBatch 批量生成向量表示
func (c *LocalClient) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	results := make([][]float32, len(texts))
	for i, text := range texts {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		if strings.TrimSpace(text) == "" {
			results[i] = make([]float32, c.dimensions)
			continue
		}
		results[i] = c.embed(text)
	}
	return results, nil
}

// Dimensions 返回向量维度
func (c *LocalClient) Dimensions() int {
	return c.dimensions
}

// MaxInputChars 返回输入字符窗口
func (c *LocalClient) MaxInputChars() int {
	return c.maxInput
}

// Name 返回模型名称
func (c *LocalClient) Name() string {
	return c.model
}

// embed 特征哈希投影
// 单词与相邻词二元组各自哈希到维度桶，符号位由哈希决定，最后做L2归一化
func (c *LocalClient) embed(text string) []float32 {
	vec := make([]float32, c.dimensions)
	tokens := Tokenize(text)

	addFeature := func(feature string, weight float32) {
		h := fnv.New64a()
		h.Write([]byte(feature))
		sum := h.Sum64()
		idx := int(sum % uint64(c.dimensions))
		sign := float32(1)
		if sum&(1<<63) != 0 {
			sign = -1
		}
		vec[idx] += sign * weight
	}

	for i, tok := range tokens {
		addFeature(tok, 1)
		if i+1 < len(tokens) {
			addFeature(tok+"_"+tokens[i+1], 0.5)
		}
	}

	// L2归一化
	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm > 0 {
		inv := float32(1 / math.Sqrt(norm))
		for i := range vec {
			vec[i] *= inv
		}
	}
	return vec
}

// Tokenize 小写化分词
// 字母数字连续段为一个词元，其余字符为分隔符
func Tokenize(text string) []string {
	var tokens []string
	var sb strings.Builder

	flush := func() {
		if sb.Len() > 0 {
			tokens = append(tokens, sb.String())
			sb.Reset()
		}
	}

	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			sb.WriteRune(unicode.ToLower(r))
		} else {
			flush()
		}
	}
	flush()

	return tokens
}

// 在包初始化时注册本地客户端
func init() {
	RegisterClient("local", NewLocalClient)
}
