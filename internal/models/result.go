package models

// BatchMetadata 批处理相关性结果的元数据
type BatchMetadata struct {
	Documents      []string `json:"documents"`                 // 输入文档名称，按输入顺序
	Persona        string   `json:"persona"`                   // 人物角色
	JobToBeDone    string   `json:"job_to_be_done"`            // 待完成任务
	Timestamp      string   `json:"timestamp"`                 // 处理时间，RFC3339格式
	Degraded       bool     `json:"degraded,omitempty"`        // 是否为降级结果
	DegradedReason string   `json:"degraded_reason,omitempty"` // 降级原因
	Skipped        []string `json:"skipped,omitempty"`         // 未处理完成而被跳过的文档
}

// ExtractedSection 排名后的章节条目
type ExtractedSection struct {
	Document       string `json:"document"`
	Page           int    `json:"page"`
	SectionTitle   string `json:"section_title"`
	ImportanceRank int    `json:"importance_rank"`
}

// SubSection 精炼文本条目
type SubSection struct {
	Document    string `json:"document"`
	Page        int    `json:"page"`
	RefinedText string `json:"refined_text"`
}

// RelevanceResult 批处理相关性提取结果
type RelevanceResult struct {
	Metadata           BatchMetadata      `json:"metadata"`
	ExtractedSections  []ExtractedSection `json:"extracted_sections"`
	SubSectionAnalysis []SubSection       `json:"sub_section_analysis"`
}

// DocumentFailure 单文档处理失败信息
// 单个文档的失败被隔离记录，不终止整个批次
type DocumentFailure struct {
	Document string // 文档名称
	Reason   string // 失败原因
}
