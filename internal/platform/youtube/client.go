package youtube

import (
	"context"
	"fmt"
	"strings"
	"time"

	"google.golang.org/api/option"
	yt "google.golang.org/api/youtube/v3"

	"github.com/sciezka-prawa/sciezka-backend/internal/platform/envutil"
	"github.com/sciezka-prawa/sciezka-backend/internal/platform/logger"
)

type Config struct {
	APIKey    string
	ChannelID string
	Timeout   time.Duration
}

func ConfigFromEnv() Config {
	return Config{
		APIKey:    envutil.String("YOUTUBE_API_KEY", ""),
		ChannelID: envutil.String("YOUTUBE_CHANNEL_ID", ""),
		Timeout:   time.Duration(envutil.Int("YOUTUBE_TIMEOUT_SECONDS", 10)) * time.Second,
	}
}

// Broadcast is the live stream currently running on the channel.
type Broadcast struct {
	VideoID      string    `json:"video_id"`
	Title        string    `json:"title"`
	URL          string    `json:"url"`
	ThumbnailURL string    `json:"thumbnail_url,omitempty"`
	PublishedAt  time.Time `json:"published_at,omitempty"`
}

type Client interface {
	// CurrentBroadcast returns nil when the channel is not live.
	CurrentBroadcast(ctx context.Context) (*Broadcast, error)
}

type client struct {
	log       *logger.Logger
	svc       *yt.Service
	channelID string
	timeout   time.Duration
}

func NewFromEnv(ctx context.Context, log *logger.Logger) (Client, error) {
	cfg := ConfigFromEnv()
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("missing YOUTUBE_API_KEY")
	}
	return New(ctx, log, cfg, option.WithAPIKey(cfg.APIKey))
}

func New(ctx context.Context, log *logger.Logger, cfg Config, opts ...option.ClientOption) (Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if strings.TrimSpace(cfg.ChannelID) == "" {
		return nil, fmt.Errorf("missing YOUTUBE_CHANNEL_ID")
	}
	svc, err := yt.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("youtube service: %w", err)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &client{
		log:       log.With("client", "YouTubeClient"),
		svc:       svc,
		channelID: strings.TrimSpace(cfg.ChannelID),
		timeout:   cfg.Timeout,
	}, nil
}

func (c *client) CurrentBroadcast(ctx context.Context) (*Broadcast, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.svc.Search.List([]string{"id", "snippet"}).
		ChannelId(c.channelID).
		EventType("live").
		Type("video").
		MaxResults(1).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("youtube search: %w", err)
	}
	for _, item := range resp.Items {
		if item == nil || item.Id == nil || item.Id.VideoId == "" {
			continue
		}
		b := &Broadcast{
			VideoID: item.Id.VideoId,
			URL:     "https://www.youtube.com/watch?v=" + item.Id.VideoId,
		}
		if sn := item.Snippet; sn != nil {
			b.Title = sn.Title
			if t, err := time.Parse(time.RFC3339, sn.PublishedAt); err == nil {
				b.PublishedAt = t
			}
			if sn.Thumbnails != nil && sn.Thumbnails.High != nil {
				b.ThumbnailURL = sn.Thumbnails.High.Url
			}
		}
		return b, nil
	}
	return nil, nil
}
