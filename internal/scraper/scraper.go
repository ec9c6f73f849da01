package scraper

import (
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-shiori/go-readability"
	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/time/rate"

	"github.com/spigell/prospect-matcher/internal/logger"
	"github.com/spigell/prospect-matcher/internal/utils"
)

const (
	DefaultTimeout   = 10 * time.Second
	DefaultUserAgent = "prospect-matcher/1.0 (+https://github.com/spigell/prospect-matcher)"
	defaultMaxBytes  = 4 << 20

	acceptEncoding = "gzip"
)

type Config struct {
	Timeout   time.Duration `mapstructure:"timeout"`
	UserAgent string        `mapstructure:"user-agent"`
	// RequestsPerSecond limits outgoing requests. Zero disables the limit.
	RequestsPerSecond float64 `mapstructure:"requests-per-second"`
	Burst             int     `mapstructure:"burst"`
	MaxBytes          int64   `mapstructure:"max-bytes"`
}

// Extractor fetches company pages and returns their readable text.
type Extractor struct {
	HTTPClient *http.Client
	UserAgent  string

	limiter  *rate.Limiter
	maxBytes int64
	logger   *zap.Logger
}

func New(cfg Config, log *zap.Logger) *Extractor {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if strings.TrimSpace(cfg.UserAgent) == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = defaultMaxBytes
	}
	if log == nil {
		log = zap.NewNop()
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}

	return &Extractor{
		HTTPClient: &http.Client{Timeout: cfg.Timeout},
		UserAgent:  cfg.UserAgent,
		limiter:    limiter,
		maxBytes:   cfg.MaxBytes,
		logger:     log,
	}
}

// Extract returns the page text for rawURL or an empty string when the page
// cannot be fetched or holds no text.
func (e *Extractor) Extract(ctx context.Context, rawURL string) string {
	log := e.logger.With(zap.String(logger.FieldURL, rawURL))

	pageURL, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || pageURL.Host == "" {
		log.Warn("skipping invalid url", zap.Error(err))
		return ""
	}

	body, err := e.fetch(ctx, pageURL)
	if err != nil {
		log.Warn("failed to fetch page", zap.Error(err))
		return ""
	}

	article, err := readability.FromReader(bytes.NewReader(body), pageURL)
	if err == nil {
		if text := utils.CollapseWhitespace(article.TextContent); text != "" {
			log.Debug("extracted article text", zap.Int("length", len(text)))
			return text
		}
	} else {
		log.Debug("readability failed, using page body", zap.Error(err))
	}

	text := bodyText(body)
	if text == "" {
		log.Warn("page has no text")
	}
	return text
}

func (e *Extractor) fetch(ctx context.Context, pageURL *url.URL) ([]byte, error) {
	if err := e.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", e.UserAgent)
	req.Header.Set("Accept-Encoding", acceptEncoding)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	e.logger.Debug("make request", zap.String(logger.FieldURL, pageURL.String()))
	resp, err := e.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("bad status: %s", resp.Status)
	}

	var reader io.Reader = resp.Body
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, err
		}
		defer gz.Close()
		reader = gz
	}

	return io.ReadAll(io.LimitReader(reader, e.maxBytes))
}

// bodyText returns the visible text of the <body> element.
func bodyText(page []byte) string {
	doc, err := html.Parse(bytes.NewReader(page))
	if err != nil {
		return ""
	}

	body := findElement(doc, "body")
	if body == nil {
		return ""
	}

	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "template":
				return
			}
		}
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(body)

	return utils.CollapseWhitespace(b.String())
}

func findElement(n *html.Node, name string) *html.Node {
	if n.Type == html.ElementNode && n.Data == name {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, name); found != nil {
			return found
		}
	}
	return nil
}
