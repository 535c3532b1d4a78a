package fetch

import (
	"context"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net"
	"net/http"
	"time"

	"github.com/nijaru/yt-search/config"
	apperrors "github.com/nijaru/yt-search/errors"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	DesktopUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:128.0) Gecko/20100101 Firefox/128.0"
	MobileUserAgent  = "Mozilla/5.0 (Linux; Android 13; Pixel 7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Mobile Safari/537.36"
)

// Fetcher returns the raw body served at url. mobile selects a mobile
// browser user agent.
type Fetcher interface {
	Get(ctx context.Context, url string, mobile bool) ([]byte, error)
}

type Client struct {
	httpClient *http.Client
	cfg        config.FetchConfig
	sleep      func(ctx context.Context, d time.Duration) error
}

func NewClient(cfg config.FetchConfig) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		cfg:        cfg,
		sleep:      sleepContext,
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	return c
}

type statusError struct {
	StatusCode int
	Status     string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status %s", e.Status)
}

func (c *Client) Get(ctx context.Context, url string, mobile bool) ([]byte, error) {
	const op = "fetch.Get"

	var (
		body []byte
		err  error
	)
	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		body, err = c.get(ctx, url, mobile)
		if err == nil {
			return body, nil
		}
		if !isRetryable(err) || attempt == c.cfg.MaxRetries {
			break
		}

		wait := c.backoff(attempt)
		logrus.WithFields(logrus.Fields{
			"attempt":    attempt + 1,
			"maxRetries": c.cfg.MaxRetries,
			"url":        url,
			"wait":       wait,
			"error":      err,
		}).Warn("Request failed, retrying")

		if sleepErr := c.sleep(ctx, wait); sleepErr != nil {
			return nil, apperrors.FetchFailed(op, sleepErr, "request cancelled")
		}
	}

	var sErr *statusError
	if errors.As(err, &sErr) {
		return nil, apperrors.FetchFailed(op, err, "the server couldn't fulfil the request")
	}
	return nil, apperrors.FetchFailed(op, err, "failed to reach server")
}

func (c *Client) get(ctx context.Context, url string, mobile bool) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrap(err, "error building request")
	}

	userAgent := DesktopUserAgent
	if mobile {
		userAgent = MobileUserAgent
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		return nil, &statusError{StatusCode: resp.StatusCode, Status: resp.Status}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.cfg.MaxBodyBytes))
	if err != nil {
		return nil, errors.Wrap(err, "error reading response body")
	}
	return body, nil
}

func (c *Client) backoff(attempt int) time.Duration {
	wait := time.Duration(float64(c.cfg.InitialBackoff) * math.Pow(2, float64(attempt)))
	if c.cfg.MaxBackoff > 0 && wait > c.cfg.MaxBackoff {
		wait = c.cfg.MaxBackoff
	}
	if wait > 1 {
		wait += time.Duration(rand.Int63n(int64(wait / 2)))
	}
	return wait
}

func isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var sErr *statusError
	if errors.As(err, &sErr) {
		return sErr.StatusCode == http.StatusTooManyRequests || sErr.StatusCode >= 500
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
