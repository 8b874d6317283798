// Package legacy reads listings from the API this service replaces.
package legacy

import (
	"context"
	crand "crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"realestate/internal/adapters/observability"
	"realestate/internal/domain"
)

const maxAttempts = 4

type Client struct {
	base string
	hc   *http.Client
	key  string
	rl   *rate.Limiter
}

// New builds a rate-limited client. key is optional; when set it is sent
// as a bearer token.
func New(base, key string, rps int) (*Client, error) {
	if strings.TrimSpace(base) == "" {
		return nil, fmt.Errorf("legacy base URL is required")
	}
	if rps <= 0 {
		rps = 5
	}
	return &Client{
		base: strings.TrimRight(base, "/"),
		hc:   &http.Client{Timeout: 20 * time.Second},
		key:  key,
		rl:   rate.NewLimiter(rate.Limit(rps), rps),
	}, nil
}

// listResponse is the legacy list envelope.
type listResponse struct {
	Success bool             `json:"success"`
	Message string           `json:"message"`
	Data    []map[string]any `json:"data"`
}

// FetchListings returns every document the legacy API holds for k.
func (c *Client) FetchListings(ctx context.Context, k domain.Kind) ([]map[string]any, error) {
	var out listResponse
	if err := c.get(ctx, c.base+"/"+k.Path, &out); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if !out.Success {
		return nil, fmt.Errorf("legacy %s: %s", k.Path, out.Message)
	}
	return out.Data, nil
}

var (
	ErrNotFound     = errors.New("legacy: not found")
	ErrUnauthorized = errors.New("legacy: unauthorized")
	ErrForbidden    = errors.New("legacy: forbidden")
)

// terminal statuses end the attempt loop without retrying.
var terminal = map[int]error{
	http.StatusNotFound:     ErrNotFound,
	http.StatusUnauthorized: ErrUnauthorized,
	http.StatusForbidden:    ErrForbidden,
}

func retryable(status int) bool {
	if status == http.StatusTooManyRequests {
		return true
	}
	return status >= 500 && status <= 504 && status != http.StatusNotImplemented
}

// get waits on the limiter once, then makes up to maxAttempts tries at url.
func (c *Client) get(ctx context.Context, url string, out any) error {
	if err := c.rl.Wait(ctx); err != nil {
		return err
	}

	var err error
	for i := 0; i < maxAttempts; i++ {
		var wait time.Duration
		wait, err = c.try(ctx, url, out)
		if wait < 0 {
			return err
		}
		if wait == 0 {
			wait = backoff(i)
		}
		if i == maxAttempts-1 || !sleepCtx(ctx, wait) {
			break
		}
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

// try makes one request. A negative wait means the result is final;
// otherwise the caller may retry after wait (0 picks the default backoff).
func (c *Client) try(ctx context.Context, url string, out any) (time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return -1, err
	}
	if c.key != "" {
		req.Header.Set("Authorization", "Bearer "+c.key)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "realestate-migrator/1.0")

	start := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		observability.ObserveExternal("legacy", "list", 0, time.Since(start))
		if ctx.Err() != nil {
			return -1, ctx.Err()
		}
		return 0, err
	}
	defer resp.Body.Close()
	observability.ObserveExternal("legacy", "list", resp.StatusCode, time.Since(start))

	if resp.StatusCode == http.StatusOK {
		return -1, json.NewDecoder(resp.Body).Decode(out)
	}
	if e, ok := terminal[resp.StatusCode]; ok {
		return -1, e
	}
	if retryable(resp.StatusCode) {
		return retryAfter(resp), fmt.Errorf("legacy responded %d", resp.StatusCode)
	}
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return -1, fmt.Errorf("legacy responded %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
}

// sleepCtx waits for d or returns early if ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// retryAfter reads Retry-After as seconds or an HTTP date.
func retryAfter(resp *http.Response) time.Duration {
	h := resp.Header.Get("Retry-After")
	if h == "" {
		return 0
	}
	if secs, err := strconv.Atoi(strings.TrimSpace(h)); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(h); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

// backoff doubles from 100ms per attempt with up to +50% jitter.
func backoff(i int) time.Duration {
	d := 100 * time.Millisecond << i
	var b [1]byte
	if _, err := crand.Read(b[:]); err == nil {
		d += d * time.Duration(b[0]) / 510
	}
	return d
}
