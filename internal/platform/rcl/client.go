package rcl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sciezka-prawa/sciezka-backend/internal/platform/ctxutil"
	"github.com/sciezka-prawa/sciezka-backend/internal/platform/envutil"
	"github.com/sciezka-prawa/sciezka-backend/internal/platform/httpx"
	"github.com/sciezka-prawa/sciezka-backend/internal/platform/logger"
)

const DefaultBaseURL = "https://legislacja.gov.pl"

var ErrNotFound = errors.New("rcl: project not found")

type Client interface {
	FetchProject(ctx context.Context, id string) (*Project, error)
	SearchByNumber(ctx context.Context, number string) (*Listing, error)
}

type Config struct {
	BaseURL    string
	SearchPath string
	Timeout    time.Duration
	MaxRetries int
	UserAgent  string
	// MaxPageBytes caps how much of a page is read.
	MaxPageBytes int64
}

func ConfigFromEnv() Config {
	return Config{
		BaseURL:      envutil.String("RCL_BASE_URL", DefaultBaseURL),
		SearchPath:   envutil.String("RCL_SEARCH_PATH", "/szukaj"),
		Timeout:      time.Duration(envutil.Int("RCL_TIMEOUT_SECONDS", 30)) * time.Second,
		MaxRetries:   envutil.Int("RCL_MAX_RETRIES", 3),
		UserAgent:    envutil.String("HTTP_USER_AGENT", "sciezka-prawa-sync/1.0"),
		MaxPageBytes: int64(envutil.Int("RCL_MAX_PAGE_BYTES", 4<<20)),
	}
}

func NewFromEnv(log *logger.Logger) (Client, error) {
	return New(log, ConfigFromEnv())
}

func New(log *logger.Logger, cfg Config) (Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("rcl: invalid base url: %w", err)
	}
	if cfg.SearchPath == "" {
		cfg.SearchPath = "/szukaj"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.MaxPageBytes <= 0 {
		cfg.MaxPageBytes = 4 << 20
	}
	return &client{
		log:        log.With("client", "RCLClient"),
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		backoff:    time.Second,
	}, nil
}

type client struct {
	log        *logger.Logger
	cfg        Config
	httpClient *http.Client
	backoff    time.Duration
}

// GET /projekt/{id}
func (c *client) FetchProject(ctx context.Context, id string) (*Project, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("rcl: empty project id")
	}
	pageURL := c.cfg.BaseURL + "/projekt/" + url.PathEscape(id)
	raw, err := c.get(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	p, err := ParseProjectPage(raw, pageURL)
	if err != nil {
		return nil, fmt.Errorf("rcl project %s: %w", id, err)
	}
	if p.ID == "" {
		p.ID = id
	}
	p.Raw = raw
	return p, nil
}

// SearchByNumber looks a project up by its list number (e.g. "UD123") and returns
// the first hit.
func (c *client) SearchByNumber(ctx context.Context, number string) (*Listing, error) {
	number = strings.TrimSpace(number)
	if number == "" {
		return nil, fmt.Errorf("rcl: empty list number")
	}
	q := url.Values{}
	q.Set("numer", number)
	searchURL := c.cfg.BaseURL + c.cfg.SearchPath + "?" + q.Encode()
	raw, err := c.get(ctx, searchURL)
	if err != nil {
		return nil, err
	}
	results := ParseSearchResults(raw, searchURL)
	if len(results) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, number)
	}
	return &results[0], nil
}

type HTTPError struct {
	StatusCode int
	URL        string
}

func (e *HTTPError) Error() string {
	if e == nil {
		return "rcl: <nil error>"
	}
	return fmt.Sprintf("rcl http %d: %s", e.StatusCode, e.URL)
}

func (e *HTTPError) HTTPStatusCode() int {
	if e == nil {
		return 0
	}
	return e.StatusCode
}

func (c *client) get(ctx context.Context, target string) ([]byte, error) {
	ctx = ctxutil.Default(ctx)
	backoff := c.backoff
	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		resp, raw, err := c.doOnce(ctx, target)
		if err == nil {
			return raw, nil
		}
		var he *HTTPError
		if errors.As(err, &he) && he.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, target)
		}
		if !httpx.IsRetryableError(err) || attempt == c.cfg.MaxRetries {
			return nil, err
		}
		sleepFor := httpx.JitterSleep(httpx.RetryAfterDuration(resp, backoff, 10*time.Second))
		c.log.Warn("RCL request retrying",
			"url", target,
			"attempt", attempt+1,
			"max_retries", c.cfg.MaxRetries,
			"sleep", sleepFor.String(),
			"error", err.Error(),
		)
		if err := httpx.Sleep(ctx, sleepFor); err != nil {
			return nil, err
		}
		backoff *= 2
	}
	return nil, errors.New("unreachable retry loop")
}

func (c *client) doOnce(ctx context.Context, target string) (*http.Response, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	req.Header.Set("Accept-Language", "pl")
	if c.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", c.cfg.UserAgent)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, err
	}
	raw, readErr := io.ReadAll(io.LimitReader(resp.Body, c.cfg.MaxPageBytes))
	_ = resp.Body.Close()
	if readErr != nil {
		return resp, nil, readErr
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp, nil, &HTTPError{StatusCode: resp.StatusCode, URL: target}
	}
	return resp, raw, nil
}
