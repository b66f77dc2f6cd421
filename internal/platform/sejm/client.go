package sejm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sciezka-prawa/sciezka-backend/internal/legislation/classify"
	"github.com/sciezka-prawa/sciezka-backend/internal/platform/ctxutil"
	"github.com/sciezka-prawa/sciezka-backend/internal/platform/envutil"
	"github.com/sciezka-prawa/sciezka-backend/internal/platform/httpx"
	"github.com/sciezka-prawa/sciezka-backend/internal/platform/logger"
)

const DefaultBaseURL = "https://api.sejm.gov.pl"

type Client interface {
	ListProcesses(ctx context.Context, term int, opts ListOptions) ([]ProcessHeader, error)
	GetProcess(ctx context.Context, term int, number string) (*classify.Process, error)
}

type Config struct {
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int
	UserAgent  string
}

func ConfigFromEnv() Config {
	return Config{
		BaseURL:    envutil.String("SEJM_API_BASE_URL", DefaultBaseURL),
		Timeout:    time.Duration(envutil.Int("SEJM_TIMEOUT_SECONDS", 30)) * time.Second,
		MaxRetries: envutil.Int("SEJM_MAX_RETRIES", 3),
		UserAgent:  envutil.String("HTTP_USER_AGENT", "sciezka-prawa-sync/1.0"),
	}
}

// ListOptions maps onto the limit/offset/sort_by query parameters of the process list.
type ListOptions struct {
	Limit  int
	Offset int
	SortBy string
}

// ProcessHeader is one entry of the process list; stages are only returned by
// the detail endpoint.
type ProcessHeader struct {
	Number           string `json:"number"`
	Term             int    `json:"term"`
	Title            string `json:"title"`
	Description      string `json:"description,omitempty"`
	DocumentType     string `json:"documentType,omitempty"`
	DocumentDate     string `json:"documentDate,omitempty"`
	ProcessStartDate string `json:"processStartDate,omitempty"`
	ChangeDate       string `json:"changeDate,omitempty"`
	ELI              string `json:"ELI,omitempty"`
	Passed           bool   `json:"passed,omitempty"`
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
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	return &client{
		log:        log.With("client", "SejmClient"),
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		maxRetries: cfg.MaxRetries,
		backoff:    time.Second,
	}, nil
}

type client struct {
	log        *logger.Logger
	cfg        Config
	httpClient *http.Client
	maxRetries int
	backoff    time.Duration
}

// GET /sejm/term{N}/processes
func (c *client) ListProcesses(ctx context.Context, term int, opts ListOptions) ([]ProcessHeader, error) {
	if term <= 0 {
		return nil, fmt.Errorf("sejm: invalid term %d", term)
	}
	q := url.Values{}
	if opts.Limit > 0 {
		q.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.Offset > 0 {
		q.Set("offset", strconv.Itoa(opts.Offset))
	}
	if s := strings.TrimSpace(opts.SortBy); s != "" {
		q.Set("sort_by", s)
	}
	path := fmt.Sprintf("/sejm/term%d/processes", term)
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	raw, err := c.get(ctx, path)
	if err != nil {
		return nil, err
	}
	var out []ProcessHeader
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("sejm: decode process list: %w", err)
	}
	for i := range out {
		if out[i].Term == 0 {
			out[i].Term = term
		}
	}
	return out, nil
}

// GET /sejm/term{N}/processes/{number}
func (c *client) GetProcess(ctx context.Context, term int, number string) (*classify.Process, error) {
	number = strings.TrimSpace(number)
	if term <= 0 || number == "" {
		return nil, fmt.Errorf("sejm: invalid process reference term=%d number=%q", term, number)
	}
	raw, err := c.get(ctx, fmt.Sprintf("/sejm/term%d/processes/%s", term, url.PathEscape(number)))
	if err != nil {
		return nil, err
	}
	var p classify.Process
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("sejm: decode process %s: %w", number, err)
	}
	if p.Term == 0 {
		p.Term = term
	}
	if p.Number == "" {
		p.Number = number
	}
	return &p, nil
}

type HTTPError struct {
	StatusCode int
	Path       string
	Body       string
}

func (e *HTTPError) Error() string {
	if e == nil {
		return "sejm: <nil error>"
	}
	msg := strings.TrimSpace(e.Body)
	if msg == "" {
		msg = "<empty body>"
	}
	if len(msg) > 2000 {
		msg = msg[:2000] + "..."
	}
	return fmt.Sprintf("sejm http %d %s: %s", e.StatusCode, e.Path, msg)
}

func (e *HTTPError) HTTPStatusCode() int {
	if e == nil {
		return 0
	}
	return e.StatusCode
}

func (c *client) get(ctx context.Context, path string) ([]byte, error) {
	ctx = ctxutil.Default(ctx)
	backoff := c.backoff

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		resp, raw, err := c.doOnce(ctx, path)
		if err == nil {
			return raw, nil
		}
		if !httpx.IsRetryableError(err) || attempt == c.maxRetries {
			return nil, err
		}

		sleepFor := httpx.JitterSleep(httpx.RetryAfterDuration(resp, backoff, 10*time.Second))
		c.log.Warn("Sejm request retrying",
			"path", path,
			"attempt", attempt+1,
			"max_retries", c.maxRetries,
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

func (c *client) doOnce(ctx context.Context, path string) (*http.Response, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+path, nil)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Accept", "application/json")
	if c.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", c.cfg.UserAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, err
	}
	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return resp, nil, readErr
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp, raw, &HTTPError{StatusCode: resp.StatusCode, Path: path, Body: string(raw)}
	}
	return resp, raw, nil
}
