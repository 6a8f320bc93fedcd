package summary

import (
	"context"
	"strings"
	"testing"
	"unicode"

	"github.com/adarshkasliwal/Adobe-Hackathon-Round2/internal/embedding"
	"github.com/adarshkasliwal/Adobe-Hackathon-Round2/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T) embedding.Client {
	engine, err := embedding.NewLocalClient()
	require.NoError(t, err)
	return engine
}

func newTestQuery(t *testing.T, engine embedding.Client, persona, job string) models.RelevanceQuery {
	query := models.RelevanceQuery{
		Persona:  persona,
		Job:      job,
		Keywords: embedding.Tokenize(persona + " " + job),
	}
	if engine != nil {
		vec, err := engine.Embed(context.Background(), query.Text())
		require.NoError(t, err)
		query.Vector = vec
	}
	return query
}

// TestSplitSentences 测试句子拆分
func TestSplitSentences(t *testing.T) {
	sentences := SplitSentences("First sentence. Second one! Third? Last without period")
	require.Len(t, sentences, 4)
	assert.Equal(t, "First sentence.", sentences[0])
	assert.Equal(t, "Second one!", sentences[1])
	assert.Equal(t, "Third?", sentences[2])
	assert.Equal(t, "Last without period", sentences[3])

	// 小数点不断句
	sentences = SplitSentences("Revenue grew 18.5 percent. Costs fell.")
	require.Len(t, sentences, 2)
	assert.Equal(t, "Revenue grew 18.5 percent.", sentences[0])

	assert.Empty(t, SplitSentences(""))
	assert.Empty(t, SplitSentences("   "))
}

// TestGenerateLengthAndBoundary 摘要不超过300字符且在句子边界结束
func TestGenerateLengthAndBoundary(t *testing.T) {
	engine := newTestEngine(t)
	gen := NewGenerator(engine, DefaultConfig())
	query := newTestQuery(t, engine, "Investment Analyst", "Analyze revenue trends")

	body := "Revenue increased 18% in the fourth quarter. " +
		"The growth was driven by subscription services and international expansion. " +
		"Operating costs remained flat compared to the previous year. " +
		"The cafeteria introduced new menu options for employees. " +
		"Management expects continued revenue growth next year based on current trends. " +
		"The office relocated to a new building downtown last spring."

	sec := models.Section{DocumentID: "doc1", Title: "Results", Body: body}
	out, err := gen.Generate(context.Background(), sec, query)
	require.NoError(t, err)
	require.NotEmpty(t, out)

	assert.LessOrEqual(t, len([]rune(out)), 300)
	// 在句子边界结束
	last := rune(out[len(out)-1])
	assert.True(t, last == '.' || last == '!' || last == '?',
		"summary must end at a sentence boundary, got %q", out)
	// 绝不截断单词：输出由完整句子组成
	for _, sent := range SplitSentences(out) {
		assert.Contains(t, body, sent)
	}
}

// TestGenerateDeterminism 相同输入产出相同摘要
func TestGenerateDeterminism(t *testing.T) {
	engine := newTestEngine(t)
	gen := NewGenerator(engine, DefaultConfig())
	query := newTestQuery(t, engine, "Researcher", "Summarize experimental methods")

	sec := models.Section{
		DocumentID: "doc1",
		Title:      "Methods",
		Body: "We collected samples from ten sites. Each sample was analyzed twice. " +
			"The experimental methods followed standard protocols. Results were recorded daily.",
	}

	first, err := gen.Generate(context.Background(), sec, query)
	require.NoError(t, err)
	second, err := gen.Generate(context.Background(), sec, query)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

// TestGeneratePrefersRelevantSentences 摘要优先选取与查询相关的句子
func TestGeneratePrefersRelevantSentences(t *testing.T) {
	gen := NewGenerator(nil, Config{MinLength: 30, MaxLength: 80})
	query := models.RelevanceQuery{
		Persona:  "Analyst",
		Job:      "revenue",
		Keywords: []string{"revenue"},
	}

	sec := models.Section{
		Body: "The weather was pleasant all week. Revenue increased by 18% this quarter. Lunch is served at noon.",
	}

	out, err := gen.Generate(context.Background(), sec, query)
	require.NoError(t, err)
	assert.Contains(t, out, "Revenue increased by 18% this quarter.")
}

// TestGenerateOverlongSentence 唯一句子超出窗口时在词边界截断
func TestGenerateOverlongSentence(t *testing.T) {
	gen := NewGenerator(nil, Config{MinLength: 20, MaxLength: 40})
	query := models.RelevanceQuery{Keywords: []string{"word"}}

	sec := models.Section{
		Body: "This single very long sentence contains the word several times and keeps going without any boundary",
	}

	out, err := gen.Generate(context.Background(), sec, query)
	require.NoError(t, err)
	require.NotEmpty(t, out)

	assert.LessOrEqual(t, len([]rune(out)), 40)
	// 不能在单词中间截断
	assert.False(t, strings.HasSuffix(out, " "))
	words := strings.Fields(sec.Body)
	lastWord := strings.Fields(out)[len(strings.Fields(out))-1]
	assert.Contains(t, words, lastWord)
}

// TestGenerateEmptyBody 空正文产出空摘要
func TestGenerateEmptyBody(t *testing.T) {
	gen := NewGenerator(nil, DefaultConfig())

	out, err := gen.Generate(context.Background(), models.Section{Body: ""}, models.RelevanceQuery{})
	require.NoError(t, err)
	assert.Empty(t, out)
}

// TestTruncateAtWord 测试词边界截断
func TestTruncateAtWord(t *testing.T) {
	assert.Equal(t, "short", truncateAtWord("short", 10))
	assert.Equal(t, "one two", truncateAtWord("one two three", 9))
	assert.Equal(t, "", truncateAtWord("averylongsingleword", 5))

	out := truncateAtWord("alpha beta gamma delta", 15)
	assert.LessOrEqual(t, len(out), 15)
	assert.False(t, unicode.IsSpace(rune(out[len(out)-1])))
}

// TestKeywordOverlap 测试关键词重合度
func TestKeywordOverlap(t *testing.T) {
	score := keywordOverlap("Revenue increased this quarter", []string{"revenue", "quarter"})
	assert.InDelta(t, 1.0, score, 1e-9)

	score = keywordOverlap("Revenue increased this quarter", []string{"revenue", "cafeteria"})
	assert.InDelta(t, 0.5, score, 1e-9)

	assert.Zero(t, keywordOverlap("nothing relevant", []string{"revenue"}))
	assert.Zero(t, keywordOverlap("text", nil))
}
