package imagegen

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Failure classes for one generation attempt. Transient classes are retried
// with backoff on the same provider; client errors abandon the provider
// immediately and move to the next one in the preference order.
var (
	ErrTimeout     = errors.New("generation timeout")
	ErrServer      = errors.New("generation server error")
	ErrRateLimited = errors.New("generation rate limited")
	ErrClient      = errors.New("generation rejected")
	ErrTruncated   = errors.New("generation response too small")
)

// A response smaller than this is not a real image.
const minImageBytes = 1000

// Config holds image generation settings.
type Config struct {
	BaseURL     string
	Models      []string // provider preference order, most stable first
	MaxAttempts int      // attempts per model
	Timeout     time.Duration

	// Backoff bases. Rate limits get their own, slower schedule because they
	// are calendar-based rather than load-based.
	NetBackoff  time.Duration
	RateBackoff time.Duration
}

// Client generates images via a pollinations-style GET API, walking the model
// preference order with bounded retries per model.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	models      []string
	maxAttempts int
	netBackoff  time.Duration
	rateBackoff time.Duration
	logger      *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = 3
	}
	if len(cfg.Models) == 0 {
		cfg.Models = []string{"turbo", "flux", "seedream"}
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 3 * time.Minute
	}
	if cfg.NetBackoff == 0 {
		cfg.NetBackoff = 2 * time.Second
	}
	if cfg.RateBackoff == 0 {
		cfg.RateBackoff = 10 * time.Second
	}
	return &Client{
		httpClient:  &http.Client{Timeout: cfg.Timeout},
		baseURL:     cfg.BaseURL,
		models:      cfg.Models,
		maxAttempts: cfg.MaxAttempts,
		netBackoff:  cfg.NetBackoff,
		rateBackoff: cfg.RateBackoff,
		logger:      logger.With("component", "imagegen"),
	}
}

// Generate produces one image and writes it to outputPath. It tries each
// model up to maxAttempts times, backing off exponentially on transient
// failures and skipping straight to the next model on client errors. The seed
// is varied per attempt so a retry does not reproduce a failed generation.
func (c *Client) Generate(ctx context.Context, prompt string, width, height int, seed int64, outputPath string) error {
	var lastErr error

	for _, model := range c.models {
		for attempt := 0; attempt < c.maxAttempts; attempt++ {
			err := c.tryOnce(ctx, prompt, width, height, seed+int64(attempt), model, outputPath)
			if err == nil {
				c.logger.Info("image generated", "model", model, "path", outputPath)
				return nil
			}
			lastErr = err

			if ctx.Err() != nil {
				return ctx.Err()
			}

			if errors.Is(err, ErrClient) {
				// Hard rejection, this model won't start working on retry.
				c.logger.Warn("model rejected prompt, trying next", "model", model, "error", err)
				break
			}

			backoff := c.backoffFor(err, attempt)
			c.logger.Warn("image attempt failed, retrying",
				"model", model,
				"attempt", attempt+1,
				"backoff", backoff,
				"error", err,
			)
			if attempt < c.maxAttempts-1 {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(backoff):
				}
			}
		}
	}

	return fmt.Errorf("all models exhausted: %w", lastErr)
}

func (c *Client) tryOnce(ctx context.Context, prompt string, width, height int, seed int64, model, outputPath string) error {
	params := url.Values{}
	params.Set("width", strconv.Itoa(width))
	params.Set("height", strconv.Itoa(height))
	params.Set("nologo", "true")
	params.Set("model", model)
	params.Set("seed", strconv.FormatInt(seed, 10))

	reqURL := c.baseURL + "/" + url.PathEscape(prompt) + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrClient, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		var urlErr *url.Error
		if errors.As(err, &urlErr) && urlErr.Timeout() {
			return fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return fmt.Errorf("%w: %v", ErrServer, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%w: HTTP %d", ErrRateLimited, resp.StatusCode)
	case resp.StatusCode == http.StatusBadGateway,
		resp.StatusCode == http.StatusServiceUnavailable,
		resp.StatusCode == http.StatusGatewayTimeout:
		return fmt.Errorf("%w: HTTP %d", ErrServer, resp.StatusCode)
	default:
		return fmt.Errorf("%w: HTTP %d", ErrClient, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrServer, err)
	}
	if len(data) < minImageBytes {
		return fmt.Errorf("%w: %d bytes", ErrTruncated, len(data))
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	if err := os.WriteFile(outputPath, data, 0o644); err != nil {
		return fmt.Errorf("write image: %w", err)
	}
	return nil
}

func (c *Client) backoffFor(err error, attempt int) time.Duration {
	base := c.netBackoff
	if errors.Is(err, ErrRateLimited) {
		base = c.rateBackoff
	}
	return base << attempt
}
