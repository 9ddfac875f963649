package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// TextSanitizer はテスト名などの外部由来の文字列からマークアップを取り除く。
// 結果はプレーンテキストで、HTMLテンプレートやMarkdownへの埋め込み時に改めてエスケープされる前提。
type TextSanitizer struct {
	policy *bluemonday.Policy
}

// NewTextSanitizer は全タグを除去するポリシーでTextSanitizerを生成する。
func NewTextSanitizer() *TextSanitizer {
	return &TextSanitizer{policy: bluemonday.StrictPolicy()}
}

// Sanitize はタグを除去し、エンティティを元の文字に戻して返す。
// 改行は空白に置き換える。
func (s *TextSanitizer) Sanitize(raw string) string {
	cleaned := html.UnescapeString(s.policy.Sanitize(raw))
	cleaned = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ").Replace(cleaned)
	return strings.TrimSpace(cleaned)
}
