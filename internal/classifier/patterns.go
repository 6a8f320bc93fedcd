package classifier

import (
	"regexp"
	"strings"
	"unicode"
)

// 结构化标题模式
var (
	// numberedPattern 编号章节，如 "1. " "2.3 " "4) "
	numberedPattern = regexp.MustCompile(`^\d+(\.\d+)*[\.\)]?\s+\S`)
	// chapterPattern 章节标记，如 "Chapter 1" "Section 4"
	chapterPattern = regexp.MustCompile(`(?i)^(chapter|section|part|appendix)\s+\d+`)
)

// allCapsMaxLen 全大写短行判定的最大长度
const allCapsMaxLen = 60

// MatchesHeadingPattern 文本是否符合结构化标题模式
// 编号章节、全大写短行或章节标记都视为模式命中
func MatchesHeadingPattern(text string) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return false
	}

	if numberedPattern.MatchString(text) {
		return true
	}
	if chapterPattern.MatchString(text) {
		return true
	}
	return isAllCapsShort(text)
}

// isAllCapsShort 是否为全大写短行
func isAllCapsShort(text string) bool {
	if len([]rune(text)) > allCapsMaxLen {
		return false
	}

	hasLetter := false
	for _, r := range text {
		if unicode.IsLetter(r) {
			hasLetter = true
			if !unicode.IsUpper(r) {
				return false
			}
		}
	}
	return hasLetter
}

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	specialRe    = regexp.MustCompile(`[^\p{L}\p{N}\s.,!?:;\-()]`)
)

// CleanText 清洗并规范化文本
// 折叠空白符并移除基础标点之外的特殊字符
func CleanText(text string) string {
	if text == "" {
		return ""
	}
	text = whitespaceRe.ReplaceAllString(text, " ")
	text = specialRe.ReplaceAllString(text, " ")
	text = whitespaceRe.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}
