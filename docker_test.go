package todoctl_test

import (
	"os"
	"strings"
	"testing"
)

func readFile(t *testing.T, name string) string {
	t.Helper()
	data, err := os.ReadFile(name)
	if err != nil {
		t.Fatalf("failed to read %s: %v", name, err)
	}
	return string(data)
}

func TestDockerfileMultiStageBuild(t *testing.T) {
	content := readFile(t, "Dockerfile")

	// マルチステージビルドの確認: ビルドステージと実行ステージが存在すること
	if !strings.Contains(content, "FROM golang:") {
		t.Error("Dockerfile should contain a Go builder stage (FROM golang:)")
	}

	// 最終ステージは軽量イメージであること
	var lastFrom string
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "FROM ") {
			lastFrom = trimmed
		}
	}
	if !strings.Contains(lastFrom, "gcr.io/distroless") && !strings.Contains(lastFrom, "alpine") && !strings.Contains(lastFrom, "scratch") {
		t.Errorf("final stage should use a minimal base image (distroless/alpine/scratch), got: %s", lastFrom)
	}
}

func TestDockerfileBuildsCLI(t *testing.T) {
	content := readFile(t, "Dockerfile")

	// cmd/todoctl をビルドし、todoctlバイナリを起動すること
	if !strings.Contains(content, "./cmd/todoctl") {
		t.Error("Dockerfile should build ./cmd/todoctl")
	}
	if !strings.Contains(content, `ENTRYPOINT ["/todoctl"]`) {
		t.Error("Dockerfile should use /todoctl as ENTRYPOINT")
	}
	// デフォルトではモックAPIを起動する
	if !strings.Contains(content, `CMD ["mockapi", "serve"]`) {
		t.Error("Dockerfile should default to 'mockapi serve'")
	}
}

func TestDockerComposeServices(t *testing.T) {
	content := readFile(t, "docker-compose.yml")

	// 3コンテナ構成: mockapi, migrate, db
	for _, svc := range []string{"mockapi:", "migrate:", "db:"} {
		if !strings.Contains(content, svc) {
			t.Errorf("docker-compose.yml should contain service %q", svc)
		}
	}
	if !strings.Contains(content, "postgres:") {
		t.Error("docker-compose.yml should use PostgreSQL image")
	}
	if !strings.Contains(content, `["migrate", "up"]`) {
		t.Error("migrate service should run 'migrate up'")
	}
}

func TestDockerComposeNetworks(t *testing.T) {
	content := readFile(t, "docker-compose.yml")

	// DBは内部ネットワークのみに接続する（internal: true）
	if !strings.Contains(content, "internal: true") {
		t.Error("docker-compose.yml should define an internal network (internal: true)")
	}
	// モックAPIのみホストから到達できるexternalネットワークに接続する
	if !strings.Contains(content, "external:") {
		t.Error("docker-compose.yml should define an external network for the mock API")
	}
}
