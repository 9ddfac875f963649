package prcomment

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata" // Asia/Seoul をタイムゾーンDBのない環境でも解決する

	"github.com/hitoshi/todoctl/internal/visualreport"
)

// Marker はこのツールが投稿したコメントを識別する見出し。
const Marker = "🎭 Visual Regression Report"

// BotLogin は更新対象とするコメントの投稿者。
const BotLogin = "github-actions[bot]"

const footer = "---\n*이 댓글은 GitHub Actions에 의해 자동으로 생성되었습니다.*"

var seoul = mustLoadLocation("Asia/Seoul")

func mustLoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(fmt.Sprintf("failed to load location %s: %v", name, err))
	}
	return loc
}

// BodyMeta はコメント本文に埋め込むCI実行の情報。
type BodyMeta struct {
	Repository Repository
	CommitSHA  string
	RunID      string
	Now        time.Time
}

// ArtifactURL はワークフロー実行ページのURLを返す。RunIDがない場合は "#"。
func (m BodyMeta) ArtifactURL() string {
	if m.RunID == "" {
		return "#"
	}
	return fmt.Sprintf("https://github.com/%s/actions/runs/%s", m.Repository, m.RunID)
}

// BuildBody は要約からMarkdownのコメント本文を生成する。
func BuildBody(s *visualreport.Summary, m BodyMeta) string {
	sha := visualreport.ShortSHA(m.CommitSHA)
	checkedAt := formatKorean(m.Now.In(seoul))
	artifact := m.ArtifactURL()

	var b strings.Builder
	fmt.Fprintf(&b, "## %s\n\n", Marker)

	if !s.HasChanges {
		b.WriteString("✅ **모든 시각적 테스트가 통과했습니다!**\n\n")
		b.WriteString("📋 **세부 정보:**\n")
		fmt.Fprintf(&b, "- 커밋: `%s`\n", sha)
		fmt.Fprintf(&b, "- 검사 시간: %s\n", checkedAt)
		fmt.Fprintf(&b, "- [전체 테스트 결과 보기](%s)\n\n", artifact)
		b.WriteString(footer)
		return b.String()
	}

	fmt.Fprintf(&b, "⚠️ **%d개의 시각적 변경사항이 발견되었습니다.**\n\n", s.ChangeCount)
	b.WriteString("📋 **세부 정보:**\n")
	fmt.Fprintf(&b, "- 커밋: `%s`\n", sha)
	fmt.Fprintf(&b, "- 검사 시간: %s\n\n", checkedAt)
	b.WriteString("## 📸 변경된 스크린샷\n\n")

	for i, r := range s.Reports {
		fmt.Fprintf(&b, "### %d. %s\n\n", i+1, r.TestName)
		fmt.Fprintf(&b, "🔗 **[2-up | Swipe | Onion Skin 비교 보기](%s)**\n\n", artifact)
	}

	b.WriteString("\n## 🔍 비교 방법\n\n")
	b.WriteString("생성된 HTML 리포트에서 다음 3가지 방식으로 이미지를 비교할 수 있습니다:\n\n")
	b.WriteString("- **2-Up**: 기존 이미지와 새 이미지를 나란히 비교\n")
	b.WriteString("- **Swipe**: 슬라이더로 드래그하며 변경사항 확인\n")
	b.WriteString("- **Onion Skin**: 두 이미지를 겹쳐서 투명도 조절로 차이점 확인\n\n")
	b.WriteString("## 📁 다운로드\n\n")
	fmt.Fprintf(&b, "[📦 전체 Visual Report 다운로드](%s)\n\n", artifact)
	b.WriteString(footer)
	return b.String()
}

// formatKorean は韓国語ロケールの日時表記（例: 2024. 3. 20. 오후 6:05:09）を返す。
func formatKorean(t time.Time) string {
	ampm := "오전"
	hour := t.Hour()
	if hour >= 12 {
		ampm = "오후"
	}
	hour %= 12
	if hour == 0 {
		hour = 12
	}
	return fmt.Sprintf("%d. %d. %d. %s %d:%02d:%02d",
		t.Year(), int(t.Month()), t.Day(), ampm, hour, t.Minute(), t.Second())
}
