package source

import (
	"context"
	"io"
	"math"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// HTTPOptions configures the HTTP source.
type HTTPOptions struct {
	UserAgent  string
	Timeout    time.Duration
	MaxRetries int
	// Limiter throttles requests to the origin. Exports are typically
	// polled once per refresh, so the default is modest.
	Limiter *rate.Limiter
}

// HTTP downloads a dataset over HTTPS with retry, rate limiting, and
// conditional refetch. The marker is the response ETag; when the
// origin sends none the Last-Modified header stands in, and the next
// request goes out with If-Modified-Since instead of If-None-Match.
type HTTP struct {
	name   string
	url    string
	client *http.Client
	opts   HTTPOptions
}

// NewHTTP returns an HTTP source for one dataset URL.
func NewHTTP(name, url string, opts HTTPOptions) *HTTP {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.MaxRetries == 0 {
		opts.MaxRetries = 3
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "referral-cli/1.0"
	}
	if opts.Limiter == nil {
		opts.Limiter = rate.NewLimiter(5, 5)
	}
	return &HTTP{
		name: name,
		url:  url,
		client: &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 2,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		opts: opts,
	}
}

// Name implements Source.
func (h *HTTP) Name() string { return h.name }

// Fetch implements Source. With a previous marker set the request is
// conditional: a 304 returns a payload with nil Data and the old
// marker.
func (h *HTTP) Fetch(ctx context.Context, prevMarker string) (*Payload, error) {
	resp, err := h.doWithRetry(ctx, prevMarker)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode == http.StatusNotModified {
		zap.L().Debug("source: http not modified",
			zap.String("source", h.name),
			zap.String("marker", prevMarker),
		)
		return &Payload{FilenameHint: hintFromPath(h.url), Marker: prevMarker}, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("source: unexpected status %d from %s", resp.StatusCode, h.url)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrapf(err, "source: read body from %s", h.url)
	}

	marker := resp.Header.Get("ETag")
	if marker == "" {
		marker = resp.Header.Get("Last-Modified")
	}

	zap.L().Info("source: http download complete",
		zap.String("source", h.name),
		zap.Int("bytes", len(data)),
		zap.String("marker", marker),
	)
	return &Payload{Data: data, FilenameHint: hintFromPath(h.url), Marker: marker}, nil
}

func (h *HTTP) doWithRetry(ctx context.Context, prevMarker string) (*http.Response, error) {
	var lastErr error
	for attempt := range h.opts.MaxRetries {
		if err := h.opts.Limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "source: rate limiter wait")
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.url, nil)
		if err != nil {
			return nil, eris.Wrap(err, "source: create request")
		}
		req.Header.Set("User-Agent", h.opts.UserAgent)
		if prevMarker != "" {
			// A marker that parses as an HTTP date came from
			// Last-Modified; ETag-less origins ignore If-None-Match.
			if _, err := http.ParseTime(prevMarker); err == nil {
				req.Header.Set("If-Modified-Since", prevMarker)
			} else {
				req.Header.Set("If-None-Match", prevMarker)
			}
		}

		resp, err := h.client.Do(req)
		if err != nil {
			lastErr = err
			zap.L().Warn("source: http request failed, retrying",
				zap.String("source", h.name),
				zap.Int("attempt", attempt+1),
				zap.Error(err),
			)
			h.backoff(ctx, attempt)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			_ = resp.Body.Close()
			lastErr = eris.Errorf("source: http %d from %s", resp.StatusCode, h.url)
			zap.L().Warn("source: retryable status",
				zap.String("source", h.name),
				zap.Int("status", resp.StatusCode),
				zap.Int("attempt", attempt+1),
			)
			h.backoff(ctx, attempt)
			continue
		}

		return resp, nil
	}
	return nil, eris.Wrap(lastErr, "source: all retries exhausted")
}

func (h *HTTP) backoff(ctx context.Context, attempt int) {
	base := time.Second
	maxBackoff := 30 * time.Second
	d := time.Duration(float64(base) * math.Pow(2, float64(attempt)))
	if d > maxBackoff {
		d = maxBackoff
	}
	d += time.Duration(rand.Int64N(int64(d) / 2))

	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
