package resend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/sciezka-prawa/sciezka-backend/internal/platform/ctxutil"
	"github.com/sciezka-prawa/sciezka-backend/internal/platform/envutil"
	"github.com/sciezka-prawa/sciezka-backend/internal/platform/httpx"
	"github.com/sciezka-prawa/sciezka-backend/internal/platform/logger"
)

type Client interface {
	Send(ctx context.Context, req SendEmailRequest) (*SendEmailResult, error)
}

type Config struct {
	APIKey           string
	BaseURL          string
	DefaultFromEmail string
	DefaultFromName  string
	Timeout          time.Duration
	MaxRetries       int
}

func ConfigFromEnv() Config {
	return Config{
		APIKey:           envutil.String("RESEND_API_KEY", ""),
		BaseURL:          envutil.String("RESEND_BASE_URL", ""),
		DefaultFromEmail: envutil.String("RESEND_FROM_EMAIL", ""),
		DefaultFromName:  envutil.String("RESEND_FROM_NAME", "Ścieżka Prawa"),
		Timeout:          time.Duration(envutil.Int("RESEND_TIMEOUT_SECONDS", 30)) * time.Second,
		MaxRetries:       envutil.Int("RESEND_MAX_RETRIES", 3),
	}
}

func NewFromEnv(log *logger.Logger) (Client, error) {
	return New(log, ConfigFromEnv())
}

func New(log *logger.Logger, cfg Config) (Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("missing RESEND_API_KEY")
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = "https://api.resend.com"
	}
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	return &client{
		log:        log.With("client", "ResendClient"),
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

type SendEmailRequest struct {
	From    string
	To      []string
	ReplyTo string
	Subject string
	Text    string
	Tags    map[string]string
	// IdempotencyKey makes retried sends safe on the provider side.
	IdempotencyKey string
}

type SendEmailResult struct {
	StatusCode int
	MessageID  string
}

type sendWire struct {
	From    string    `json:"from"`
	To      []string  `json:"to"`
	Subject string    `json:"subject"`
	Text    string    `json:"text"`
	ReplyTo string    `json:"reply_to,omitempty"`
	Tags    []wireTag `json:"tags,omitempty"`
}

type wireTag struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// POST /emails
func (c *client) Send(ctx context.Context, req SendEmailRequest) (*SendEmailResult, error) {
	if c == nil || c.httpClient == nil {
		return nil, fmt.Errorf("resend client unavailable")
	}
	from := strings.TrimSpace(req.From)
	if from == "" {
		from = c.defaultFrom()
	}
	if from == "" {
		return nil, fmt.Errorf("resend: From required (or set RESEND_FROM_EMAIL)")
	}
	to := make([]string, 0, len(req.To))
	for _, addr := range req.To {
		if a := strings.TrimSpace(addr); a != "" {
			to = append(to, a)
		}
	}
	if len(to) == 0 {
		return nil, fmt.Errorf("resend: To required")
	}
	subject := strings.TrimSpace(req.Subject)
	if subject == "" {
		return nil, fmt.Errorf("resend: Subject required")
	}
	if strings.TrimSpace(req.Text) == "" {
		return nil, fmt.Errorf("resend: Text required")
	}

	wire := sendWire{
		From:    from,
		To:      to,
		Subject: subject,
		Text:    req.Text,
		ReplyTo: strings.TrimSpace(req.ReplyTo),
	}
	keys := make([]string, 0, len(req.Tags))
	for k := range req.Tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		wire.Tags = append(wire.Tags, wireTag{Name: k, Value: req.Tags[k]})
	}

	resp, raw, err := c.do(ctx, http.MethodPost, "/emails", wire, req.IdempotencyKey)
	if err != nil {
		return nil, err
	}
	var out struct {
		ID string `json:"id"`
	}
	_ = json.Unmarshal(raw, &out)
	return &SendEmailResult{StatusCode: resp.StatusCode, MessageID: out.ID}, nil
}

func (c *client) defaultFrom() string {
	email := strings.TrimSpace(c.cfg.DefaultFromEmail)
	if email == "" {
		return ""
	}
	if name := strings.TrimSpace(c.cfg.DefaultFromName); name != "" {
		return fmt.Sprintf("%s <%s>", name, email)
	}
	return email
}

// ---------- HTTP / retry helpers ----------

type HTTPError struct {
	StatusCode int
	Name       string
	Message    string
	Body       string
}

func (e *HTTPError) Error() string {
	if e == nil {
		return "resend: <nil error>"
	}
	if strings.TrimSpace(e.Message) != "" {
		return fmt.Sprintf("resend http %d: %s", e.StatusCode, e.Message)
	}
	msg := strings.TrimSpace(e.Body)
	if msg == "" {
		msg = "<empty body>"
	}
	if len(msg) > 4000 {
		msg = msg[:4000] + "..."
	}
	return fmt.Sprintf("resend http %d: %s", e.StatusCode, msg)
}

func (e *HTTPError) HTTPStatusCode() int {
	if e == nil {
		return 0
	}
	return e.StatusCode
}

func (c *client) do(ctx context.Context, method, path string, body any, idempotencyKey string) (*http.Response, []byte, error) {
	ctx = ctxutil.Default(ctx)
	backoff := c.backoff

	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if ctx.Err() != nil {
			return nil, nil, ctx.Err()
		}

		resp, raw, err := c.doOnce(ctx, method, path, body, idempotencyKey)
		if err == nil {
			return resp, raw, nil
		}
		if !httpx.IsRetryableError(err) || attempt == c.cfg.MaxRetries {
			return nil, nil, err
		}

		sleepFor := httpx.JitterSleep(httpx.RetryAfterDuration(resp, backoff, 10*time.Second))
		c.log.Warn("Resend request retrying",
			"path", path,
			"attempt", attempt+1,
			"max_retries", c.cfg.MaxRetries,
			"sleep", sleepFor.String(),
			"error", err.Error(),
		)
		if err := httpx.Sleep(ctx, sleepFor); err != nil {
			return nil, nil, err
		}
		backoff *= 2
	}

	return nil, nil, errors.New("unreachable retry loop")
}

func (c *client) doOnce(ctx context.Context, method, path string, body any, idempotencyKey string) (*http.Response, []byte, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, &buf)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
	if k := strings.TrimSpace(idempotencyKey); k != "" {
		req.Header.Set("Idempotency-Key", k)
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
		he := &HTTPError{StatusCode: resp.StatusCode, Body: string(raw)}
		var er struct {
			Name    string `json:"name"`
			Message string `json:"message"`
		}
		if json.Unmarshal(raw, &er) == nil {
			he.Name = er.Name
			he.Message = er.Message
		}
		return resp, raw, he
	}
	return resp, raw, nil
}
