package embedding

import (
	"context"
	"fmt"
	"sync"

	"github.com/gammazero/workerpool"
)

// BatchProcessor 批处理器
// 将大量文本切成小批次并行嵌入，保持结果与输入顺序一致
type BatchProcessor struct {
	client     Client // 嵌入客户端
	batchSize  int    // 每批处理的文本数量
	maxWorkers int    // 最大并行工作线程数
}

// batchResult 单个批次的结果
type batchResult struct {
	index   int         // 批次序号
	vectors [][]float32 // 批次向量
}

// NewBatchProcessor 创建新的批处理器
func NewBatchProcessor(client Client, batchSize int, maxWorkers int) *BatchProcessor {
	if batchSize <= 0 {
		batchSize = 16
	}
	if maxWorkers <= 0 {
		maxWorkers = 4
	}

	return &BatchProcessor{
		client:     client,
		batchSize:  batchSize,
		maxWorkers: maxWorkers,
	}
}

// Process 并行嵌入一批文本
func (p *BatchProcessor) Process(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	batches := splitIntoBatches(texts, p.batchSize)

	wp := workerpool.New(p.maxWorkers)
	results := make([]batchResult, len(batches))
	var mu sync.Mutex
	var processingErr error
	var errOnce sync.Once

	for i, batch := range batches {
		i, batch := i, batch
		wp.Submit(func() {
			select {
			case <-ctx.Done():
				errOnce.Do(func() { processingErr = ctx.Err() })
				return
			default:
			}

			vectors, err := p.client.EmbedBatch(ctx, batch)
			if err != nil {
				errOnce.Do(func() { processingErr = err })
				return
			}

			mu.Lock()
			results[i] = batchResult{index: i, vectors: vectors}
			mu.Unlock()
		})
	}

	wp.StopWait()

	if processingErr != nil {
		return nil, fmt.Errorf("batch embedding failed: %w", processingErr)
	}

	// 按批次顺序拼接
	merged := make([][]float32, 0, len(texts))
	for _, r := range results {
		merged = append(merged, r.vectors...)
	}
	return merged, nil
}

// splitIntoBatches 将文本切分为固定大小的批次
func splitIntoBatches(texts []string, batchSize int) [][]string {
	var batches [][]string
	for start := 0; start < len(texts); start += batchSize {
		end := start + batchSize
		if end > len(texts) {
			end = len(texts)
		}
		batches = append(batches, texts[start:end])
	}
	return batches
}
