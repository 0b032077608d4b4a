package proxy

import (
	"fmt"
	"net/http"
	"net/url"
)

// Settings configures an optional outbound HTTP proxy for carrier
// requests. Some carriers geo-block by origin IP, so deployments route
// their traffic through a regional exit.
type Settings struct {
	Enabled  bool   `mapstructure:"PROXY_ENABLED" default:"false"`
	Hostname string `mapstructure:"PROXY_HOSTNAME"`
	Port     int    `mapstructure:"PROXY_PORT"`
	Username string `mapstructure:"PROXY_USERNAME"`
	Password string `mapstructure:"PROXY_PASSWORD"`
}

// HasProxy returns true if proxy is enabled and configured.
func (p Settings) HasProxy() bool {
	return p.Enabled && p.Hostname != "" && p.Port > 0
}

// HostPort returns the proxy host:port string (e.g., "http://geo.iproyal.com:12321").
func (p Settings) HostPort() string {
	if !p.HasProxy() {
		return ""
	}
	return fmt.Sprintf("http://%s:%d", p.Hostname, p.Port)
}

// FullURL returns the full proxy URL with credentials (for HTTP client).
func (p Settings) FullURL() string {
	if !p.HasProxy() {
		return ""
	}
	if p.Username != "" && p.Password != "" {
		return fmt.Sprintf("http://%s:%s@%s:%d", p.Username, p.Password, p.Hostname, p.Port)
	}
	return p.HostPort()
}

// ProxyFunc returns a proxy selector for http.Transport, or nil when no
// proxy is configured.
func (p Settings) ProxyFunc() func(*http.Request) (*url.URL, error) {
	if !p.HasProxy() {
		return nil
	}
	u, err := url.Parse(p.FullURL())
	if err != nil {
		return nil
	}
	return http.ProxyURL(u)
}
