// Package funpay реализует минимальный клиент сессии FunPay:
// cookie golden_key, CSRF токен и разбор HTML страниц маркетплейса.
package funpay

import (
	"context"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	perrors "github.com/athebyme/funpay-bridge/pkg/errors"
	"github.com/athebyme/funpay-bridge/pkg/interfaces"
	"github.com/go-resty/resty/v2"
)

const (
	DefaultBaseURL   = "https://funpay.com"
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"

	loginPath = "/account/login"
)

// Options настройки клиента маркетплейса
type Options struct {
	BaseURL          string
	UserAgent        string
	Locale           string
	Timeout          time.Duration
	CloudflareBypass bool
	// Transport подменяет http.RoundTripper; используется в тестах
	Transport http.RoundTripper
}

// Gateway открывает сессии маркетплейса
type Gateway struct {
	opts    Options
	baseURL *url.URL
	logger  interfaces.LoggerPort
}

// NewGateway создает Gateway и проверяет базовый URL
func NewGateway(opts Options, logger interfaces.LoggerPort) (*Gateway, error) {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}

	baseURL, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid marketplace base url: %w", err)
	}
	if baseURL.Scheme == "" || baseURL.Host == "" {
		return nil, fmt.Errorf("invalid marketplace base url %q", opts.BaseURL)
	}

	return &Gateway{opts: opts, baseURL: baseURL, logger: logger}, nil
}

// BaseURL возвращает адрес маркетплейса
func (g *Gateway) BaseURL() string {
	return g.baseURL.String()
}

// Authenticate открывает новую сессию по golden_key
// Возвращает perrors.ErrUnauthorized, если маркетплейс не признал ключ
func (g *Gateway) Authenticate(ctx context.Context, goldenKey, userAgent string) (*Session, error) {
	if strings.TrimSpace(goldenKey) == "" {
		return nil, fmt.Errorf("%w: golden_key is required", perrors.ErrInvalidInput)
	}
	if userAgent == "" {
		userAgent = g.opts.UserAgent
	}

	client, err := g.newClient(goldenKey, userAgent)
	if err != nil {
		return nil, err
	}

	s := &Session{
		http:    client,
		baseURL: g.baseURL,
		locale:  g.opts.Locale,
		logger:  g.logger,
	}

	if err := s.Refresh(ctx); err != nil {
		return nil, err
	}

	g.logger.DebugWithContext(ctx, "Сессия маркетплейса открыта",
		interfaces.LogField{Key: "account_id", Value: s.UserID()},
		interfaces.LogField{Key: "username", Value: s.Username()},
	)
	return s, nil
}

func (g *Gateway) newClient(goldenKey, userAgent string) (*resty.Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	jar.SetCookies(g.baseURL, []*http.Cookie{
		{Name: "golden_key", Value: goldenKey, Path: "/"},
		{Name: "cookie_prefs", Value: "1", Path: "/"},
	})

	client := resty.New()
	client.SetBaseURL(g.baseURL.String())
	client.SetCookieJar(jar)
	if g.opts.Transport != nil {
		client.SetTransport(g.opts.Transport)
	}
	if g.opts.CloudflareBypass {
		client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)
	}

	client.SetHeader("user-agent", userAgent)
	client.SetTimeout(g.opts.Timeout)
	client.SetRedirectPolicy(resty.RedirectPolicyFunc(func(req *http.Request, via []*http.Request) error {
		if strings.HasPrefix(req.URL.Path, loginPath) {
			return http.ErrUseLastResponse
		}
		if len(via) >= 10 {
			return fmt.Errorf("stopped after 10 redirects")
		}
		if req.URL.Hostname() != g.baseURL.Hostname() {
			return fmt.Errorf("redirect to foreign host %s", req.URL.Hostname())
		}
		return nil
	}))

	return client, nil
}
