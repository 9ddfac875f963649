package security

import "testing"

func TestTextSanitizer_Sanitize(t *testing.T) {
	s := NewTextSanitizer()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "プレーンテキストはそのまま", input: "demo - todo-list", want: "demo - todo-list"},
		{name: "scriptタグは中身ごと除去", input: "demo<script>alert(1)</script>", want: "demo"},
		{name: "タグのみ除去", input: "<b>bold</b> name", want: "bold name"},
		{name: "エンティティは元の文字に戻す", input: "a & b", want: "a & b"},
		{name: "改行は空白にする", input: "line1\nline2", want: "line1 line2"},
		{name: "韓国語", input: "할 일 목록", want: "할 일 목록"},
		{name: "空文字列", input: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.Sanitize(tt.input); got != tt.want {
				t.Errorf("Sanitize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
