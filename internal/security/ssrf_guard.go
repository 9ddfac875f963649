// Package security は外部サービスへの送信とレポート出力の安全性を扱う。
package security

import (
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/doyensec/safeurl"
)

// URLGuard は外部APIの送信先を検証し、SSRF防止付きのHTTPクライアントを提供する。
// 画像ホストとGitHub APIへの送信に使用する。
type URLGuard interface {
	// NewSafeClient はプライベートIP、ループバック、リンクローカル、
	// メタデータIPへの接続をDialer段階で拒否するHTTPクライアントを生成する。
	NewSafeClient(timeout time.Duration) *http.Client

	// ValidateURL は設定で上書きされたエンドポイントURLを静的に検証する。
	ValidateURL(rawURL string) error
}

var allowedSchemes = []string{"https", "http"}

// blockedNetworks は起動時に1回だけパースする。
var blockedNetworks = mustParseCIDRs(
	"10.0.0.0/8",
	"172.16.0.0/12",
	"192.168.0.0/16",
	"127.0.0.0/8",
	"169.254.0.0/16", // メタデータIP (169.254.169.254) を含む
	"0.0.0.0/8",
	"::1/128",
	"fe80::/10",
	"fc00::/7",
)

func mustParseCIDRs(cidrs ...string) []*net.IPNet {
	out := make([]*net.IPNet, 0, len(cidrs))
	for _, cidr := range cidrs {
		_, network, err := net.ParseCIDR(cidr)
		if err != nil {
			panic(fmt.Sprintf("invalid CIDR in blockedNetworks: %s: %v", cidr, err))
		}
		out = append(out, network)
	}
	return out
}

type guard struct{}

// NewURLGuard はURLGuardを生成する。
func NewURLGuard() URLGuard {
	return guard{}
}

// NewSafeClient はsafeurlのクライアントを生成する。
// 送信先ポートは443と80のみ許可する。
func (guard) NewSafeClient(timeout time.Duration) *http.Client {
	config := safeurl.GetConfigBuilder().
		SetTimeout(timeout).
		SetAllowedSchemes(allowedSchemes...).
		SetAllowedPorts(443, 80).
		Build()

	return safeurl.Client(config).Client
}

// ValidateURL はスキーム、ホスト名、IPアドレスを検証する。DNS解決は行わない。
func (guard) ValidateURL(rawURL string) error {
	if rawURL == "" {
		return fmt.Errorf("empty URL")
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}

	scheme := strings.ToLower(parsed.Scheme)
	allowed := false
	for _, s := range allowedSchemes {
		if scheme == s {
			allowed = true
		}
	}
	if !allowed {
		return fmt.Errorf("disallowed scheme: %q", parsed.Scheme)
	}

	host := parsed.Hostname()
	if host == "" {
		return fmt.Errorf("empty host in URL: %s", rawURL)
	}
	if ip := net.ParseIP(host); ip != nil {
		for _, network := range blockedNetworks {
			if network.Contains(ip) {
				return fmt.Errorf("blocked IP address: %s", ip)
			}
		}
		return nil
	}
	if strings.EqualFold(host, "localhost") || strings.HasSuffix(strings.ToLower(host), ".localhost") {
		return fmt.Errorf("blocked host: %s", host)
	}
	return nil
}
