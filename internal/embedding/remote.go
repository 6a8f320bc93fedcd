package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// RemoteClient 远程嵌入客户端
// 对接OpenAI兼容的嵌入HTTP端点，供部署了真实模型服务的环境使用
type RemoteClient struct {
	httpClient *http.Client
	config     *Config
}

// embeddingRequest 嵌入API请求体
type embeddingRequest struct {
	Input []string `json:"input"`
	Model string   `json:"model"`
}

// embeddingResponse 嵌入API响应体
type embeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// NewRemoteClient 创建远程嵌入客户端
func NewRemoteClient(opts ...Option) (Client, error) {
	cfg := NewConfig(opts...)

	if cfg.BaseURL == "" {
		return nil, NewEmbeddingError(ErrCodeInvalidRequest, "base URL is required for remote embedding")
	}
	if cfg.APIKey == "" {
		return nil, NewEmbeddingError(ErrCodeInvalidAPIKey, ErrMsgInvalidAPIKey)
	}

	return &RemoteClient{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		config:     cfg,
	}, nil
}

// Embed 生成单条文本的向量表示
func (c *RemoteClient) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, NewEmbeddingError(ErrCodeEmptyInput, ErrMsgEmptyInput)
	}

	vectors, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, NewEmbeddingError(ErrCodeServerError, "empty embedding response")
	}
	return vectors[0], nil
}

// EmbedBatch 批量生成向量表示
func (c *RemoteClient) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	if c.config.BatchSize > 0 && len(texts) > c.config.BatchSize {
		return nil, NewEmbeddingError(ErrCodeInvalidRequest,
			fmt.Sprintf("batch size %d exceeds limit %d", len(texts), c.config.BatchSize))
	}

	var lastErr error
	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			// 指数退避策略
			wait := time.Duration(1<<attempt) * time.Second
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(wait):
			}
		}

		vectors, err := c.doRequest(ctx, texts)
		if err == nil {
			return vectors, nil
		}
		lastErr = err

		// 非限流错误不重试
		if e, ok := err.(EmbeddingError); !ok || e.Code != ErrCodeRateLimited {
			break
		}
	}

	return nil, lastErr
}

// doRequest 执行一次嵌入API请求
func (c *RemoteClient) doRequest(ctx context.Context, texts []string) ([][]float32, error) {
	body, err := json.Marshal(embeddingRequest{
		Input: texts,
		Model: c.config.Model,
	})
	if err != nil {
		return nil, NewEmbeddingError(ErrCodeInvalidRequest, err.Error())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL, bytes.NewReader(body))
	if err != nil {
		return nil, NewEmbeddingError(ErrCodeInvalidRequest, err.Error())
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, NewEmbeddingError(ErrCodeTimeout, ErrMsgTimeout)
		}
		return nil, NewEmbeddingError(ErrCodeNetworkError, err.Error())
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, NewEmbeddingError(ErrCodeRateLimited, ErrMsgRateLimited)
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, NewEmbeddingError(ErrCodeInvalidAPIKey, ErrMsgInvalidAPIKey)
	case resp.StatusCode >= 500:
		return nil, NewEmbeddingError(ErrCodeServerError, ErrMsgServerError)
	case resp.StatusCode != http.StatusOK:
		return nil, NewEmbeddingError(ErrCodeInvalidRequest,
			fmt.Sprintf("unexpected status: %d", resp.StatusCode))
	}

	var apiResp embeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, NewEmbeddingError(ErrCodeServerError, "failed to decode response: "+err.Error())
	}
	if apiResp.Error != nil {
		return nil, NewEmbeddingError(ErrCodeServerError, apiResp.Error.Message)
	}
	if len(apiResp.Data) != len(texts) {
		return nil, NewEmbeddingError(ErrCodeServerError,
			fmt.Sprintf("expected %d embeddings, got %d", len(texts), len(apiResp.Data)))
	}

	// 按index还原顺序
	vectors := make([][]float32, len(texts))
	for _, d := range apiResp.Data {
		if d.Index < 0 || d.Index >= len(vectors) {
			return nil, NewEmbeddingError(ErrCodeServerError, "embedding index out of range")
		}
		vectors[d.Index] = d.Embedding
	}
	return vectors, nil
}

// Dimensions 返回向量维度
func (c *RemoteClient) Dimensions() int {
	return c.config.Dimensions
}

// MaxInputChars 返回输入字符窗口
func (c *RemoteClient) MaxInputChars() int {
	return c.config.MaxInput
}

// Name 返回模型名称
func (c *RemoteClient) Name() string {
	return c.config.Model
}

// 在包初始化时注册远程客户端
func init() {
	RegisterClient("remote", NewRemoteClient)
}
