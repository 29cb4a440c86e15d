// Package probe implements the optional external-link check: it fetches an
// account's external_url with a browser-shaped client and records the HTTP
// status, the page title and whether a bot-protection product blocked the
// fetch. Probing is strictly best-effort and never fails the run.
package probe

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/FranksOps/reelscout/internal/fingerprint"
	"github.com/FranksOps/reelscout/internal/metrics"
	"github.com/FranksOps/reelscout/pkg/httpclient"
	"github.com/FranksOps/reelscout/pkg/proxy"
	"github.com/FranksOps/reelscout/pkg/useragent"
	"github.com/PuerkitoBio/goquery"
)

// maxBodyBytes caps how much of a probed page is read.
const maxBodyBytes = 1 << 20

type contextKey string

const proxyKey contextKey = "proxy_url"

// Result captures the outcome of probing one external URL.
type Result struct {
	URL        string `json:"url"`
	StatusCode int    `json:"status_code,omitempty"`
	Title      string `json:"title,omitempty"`
	Blocked    bool   `json:"blocked,omitempty"`
	BlockedBy  string `json:"blocked_by,omitempty"`
	Error      string `json:"error,omitempty"`
}

// Config configures a Prober.
type Config struct {
	Timeout     time.Duration
	Fingerprint fingerprint.Profile
	UAPool      *useragent.Pool
	Proxies     *proxy.Pool
	Logger      *slog.Logger
}

// Prober fetches external URLs with a browser-shaped client. One client is
// held across probes so cookies set by challenge pages persist.
type Prober struct {
	cfg    Config
	client *httpclient.Client
	logger *slog.Logger
}

// New initializes a Prober with the given configuration.
func New(cfg Config) (*Prober, error) {
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.UAPool == nil {
		cfg.UAPool = useragent.NewPool(nil)
	}
	if string(cfg.Fingerprint) == "" {
		cfg.Fingerprint = fingerprint.ProfileChrome
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	// Per-probe proxy rotation goes through the request context so a single
	// transport can keep its connection pool.
	proxyFunc := func(req *http.Request) (*url.URL, error) {
		if val := req.Context().Value(proxyKey); val != nil {
			if u, ok := val.(*url.URL); ok {
				return u, nil
			}
		}
		return http.ProxyFromEnvironment(req)
	}

	transport, err := fingerprint.Transport(cfg.Fingerprint, proxyFunc)
	if err != nil {
		return nil, err
	}

	client, err := httpclient.New(httpclient.Config{
		Timeout:      cfg.Timeout,
		MaxRedirects: 5,
		UseCookieJar: true,
		Transport:    transport,
	})
	if err != nil {
		return nil, err
	}

	return &Prober{cfg: cfg, client: client, logger: cfg.Logger}, nil
}

// Probe fetches rawURL and returns the probe outcome. It never returns an
// error; failures are recorded in the Result.
func (p *Prober) Probe(ctx context.Context, rawURL string) *Result {
	res := &Result{URL: rawURL}

	if _, err := url.ParseRequestURI(rawURL); err != nil {
		res.Error = "invalid url: " + err.Error()
		metrics.RecordProbe("error")
		return res
	}

	var activeProxy *url.URL
	if p.cfg.Proxies != nil {
		activeProxy = p.cfg.Proxies.Next()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		res.Error = "create request: " + err.Error()
		metrics.RecordProbe("error")
		return res
	}
	if activeProxy != nil {
		req = req.WithContext(context.WithValue(req.Context(), proxyKey, activeProxy))
	}

	req.Header.Set("User-Agent", p.cfg.UAPool.GetSequential())
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := p.client.Do(req.Context(), req)
	if err != nil {
		if activeProxy != nil {
			_ = p.cfg.Proxies.MarkFailure(activeProxy)
		}
		res.Error = err.Error()
		metrics.RecordProbe("error")
		return res
	}
	defer resp.Body.Close()

	if activeProxy != nil {
		_ = p.cfg.Proxies.MarkSuccess(activeProxy)
	}

	res.StatusCode = resp.StatusCode

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		res.Error = "read body: " + err.Error()
		metrics.RecordProbe("error")
		return res
	}

	if blocked, src := detectChallenge(resp.StatusCode, resp.Header, body); blocked {
		res.Blocked = true
		res.BlockedBy = src
		p.logger.Debug("probe blocked", "url", rawURL, "by", src)
		metrics.RecordProbe("blocked")
		return res
	}

	if ct := resp.Header.Get("Content-Type"); strings.Contains(strings.ToLower(ct), "text/html") {
		res.Title = extractTitle(body)
	}

	metrics.RecordProbe("ok")
	return res
}

// extractTitle parses the page and returns the trimmed <title> text.
func extractTitle(body []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(doc.Find("title").First().Text())
}
