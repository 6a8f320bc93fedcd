package models

// HeadingLevel 标题层级类型
type HeadingLevel string

const (
	// LevelTitle 文档标题
	LevelTitle HeadingLevel = "TITLE"
	// LevelH1 一级标题
	LevelH1 HeadingLevel = "H1"
	// LevelH2 二级标题
	LevelH2 HeadingLevel = "H2"
	// LevelH3 三级标题
	LevelH3 HeadingLevel = "H3"
)

// BBox 文本块的边界框，单位为PDF点
// 顺序为 [x0, y0, x1, y1]，原点在页面左上角
type BBox [4]float64

// Top 返回边界框的上边缘坐标
func (b BBox) Top() float64 {
	return b[1]
}

// TextBlock 带格式信息的文本块
// 由提取层按阅读顺序产出，创建后不再修改
type TextBlock struct {
	Page     int     `json:"page"`      // 页码，从1开始
	Text     string  `json:"text"`      // 文本内容
	FontSize float64 `json:"font_size"` // 字体大小
	FontName string  `json:"font_name"` // 字体名称
	Bold     bool    `json:"bold"`      // 是否加粗
	Italic   bool    `json:"italic"`    // 是否斜体
	BBox     BBox    `json:"bbox"`      // 边界框
}

// HeadingCandidate 标题候选项
// 由分类器产出，仅被大纲构建器消费一次
type HeadingCandidate struct {
	Level      HeadingLevel // 标题层级
	Text       string       // 清洗后的文本
	Page       int          // 页码，从1开始
	Position   int          // 在原始阅读顺序中的位置
	FontSize   float64      // 字体大小
	Bold       bool         // 是否加粗
	Pattern    bool         // 是否由结构模式匹配产生
	Confidence float64      // 置信度，0到1
}

// OutlineNode 大纲节点
// 扁平的阅读顺序序列，层级只是标签而非父指针
type OutlineNode struct {
	Level HeadingLevel `json:"level"`
	Text  string       `json:"text"`
	Page  int          `json:"page"`
}

// OutlineResult 单文档的大纲提取结果
type OutlineResult struct {
	Title   string        `json:"title"`
	Outline []OutlineNode `json:"outline"`
}

// Section 文档章节
// 同一文档内的页码区间不重叠，且按起始页排序
type Section struct {
	DocumentID string // 文档ID
	Document   string // 文档名称（文件名）
	Title      string // 章节标题
	StartPage  int    // 起始页（含）
	EndPage    int    // 结束页（含）
	Index      int    // 在文档内的章节序号
	Body       string // 章节正文（含标题行）
}

// RelevanceQuery 人物角色/任务查询
// 每次批处理构建一次，之后只读
type RelevanceQuery struct {
	Persona  string    // 人物角色描述
	Job      string    // 待完成任务描述
	Keywords []string  // 过滤停用词后的关键词集合
	Vector   []float32 // 组合文本的嵌入向量，嵌入不可用时为nil
}

// Text 返回用于嵌入的组合查询文本
func (q RelevanceQuery) Text() string {
	return q.Persona + " " + q.Job
}

// HasVector 查询是否携带语义向量
func (q RelevanceQuery) HasVector() bool {
	return len(q.Vector) > 0
}

// ScoredSection 打分后的章节
// 各分数均为(section, query)的纯函数，排名仅由跨文档排序器赋值
type ScoredSection struct {
	Section                // 章节
	SemanticScore  float64 // 语义相似度分数
	KeywordScore   float64 // 关键词重合分数
	ProximityScore float64 // 邻近章节加成分数
	CompositeScore float64 // 加权综合分数
	ImportanceRank int     // 重要性排名，1开始的稠密排名
}
