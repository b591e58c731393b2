package finance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

var defaultHosts = []string{"https://query1.finance.yahoo.com", "https://query2.finance.yahoo.com"}

var defaultBackoffs = []time.Duration{200 * time.Millisecond, 500 * time.Millisecond, 1 * time.Second}

// Client talks to the Yahoo Finance chart endpoints. Requests are paced by a
// token bucket and each host sits behind its own circuit breaker, so a host
// that keeps failing is skipped in favour of the other one.
type Client struct {
	httpClient *http.Client
	hosts      []string
	backoffs   []time.Duration
	limiter    *rate.Limiter

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces http.DefaultClient.
func WithHTTPClient(hc *http.Client) Option { return func(c *Client) { c.httpClient = hc } }

// WithHosts replaces the Yahoo hosts (scheme included), tried in order.
func WithHosts(hosts ...string) Option { return func(c *Client) { c.hosts = hosts } }

// WithBackoffs sets the pauses between retry rounds.
func WithBackoffs(b ...time.Duration) Option { return func(c *Client) { c.backoffs = b } }

// WithRate sets the request rate limit.
func WithRate(rps float64, burst int) Option {
	return func(c *Client) { c.limiter = rate.NewLimiter(rate.Limit(rps), burst) }
}

// NewClient returns a client for query1/query2.finance.yahoo.com.
func NewClient(opts ...Option) *Client {
	c := &Client{
		httpClient: http.DefaultClient,
		hosts:      defaultHosts,
		backoffs:   defaultBackoffs,
		limiter:    rate.NewLimiter(rate.Every(120*time.Millisecond), 1),
		breakers:   map[string]*gobreaker.CircuitBreaker{},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// statusError is a non-200 answer from Yahoo.
type statusError struct {
	host    string
	code    int
	preview string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("yahoo %s returned %d: %s", e.host, e.code, e.preview)
}

// permanent reports whether retrying cannot help (unknown symbol, bad request).
func (e *statusError) permanent() bool {
	return e.code >= 400 && e.code < 500 && e.code != http.StatusTooManyRequests
}

func isPermanent(err error) bool {
	var se *statusError
	return errors.As(err, &se) && se.permanent()
}

func (c *Client) breaker(host string) *gobreaker.CircuitBreaker {
	c.mu.Lock()
	defer c.mu.Unlock()
	if b, ok := c.breakers[host]; ok {
		return b
	}
	st := gobreaker.Settings{Name: host}
	st.Interval = 60 * time.Second
	st.Timeout = 30 * time.Second
	st.ReadyToTrip = func(counts gobreaker.Counts) bool {
		return counts.ConsecutiveFailures >= 3
	}
	// a 4xx for one symbol says nothing about the host's health
	st.IsSuccessful = func(err error) bool { return err == nil || isPermanent(err) }
	st.OnStateChange = func(name string, from, to gobreaker.State) {
		log.Warn().Str("host", name).Str("from", from.String()).Str("to", to.String()).Msg("yahoo: breaker state change")
	}
	b := gobreaker.NewCircuitBreaker(st)
	c.breakers[host] = b
	return b
}

func preview(body []byte) string {
	p := string(body)
	if len(p) > 120 {
		p = p[:120]
	}
	return p
}

// getJSON fetches host+path and decodes the JSON body into v.
func (c *Client) getJSON(ctx context.Context, host, path, symbol string, v any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	_, err := c.breaker(host).Execute(func() (any, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, host+path, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15")
		req.Header.Set("Accept", "application/json, text/javascript, */*; q=0.01")
		req.Header.Set("Accept-Language", "en-US,en;q=0.9")
		req.Header.Set("Referer", fmt.Sprintf("https://finance.yahoo.com/quote/%s/chart", strings.ToUpper(symbol)))
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			return nil, fmt.Errorf("failed to read yahoo response: %w", readErr)
		}
		if resp.StatusCode == http.StatusTooManyRequests || strings.HasPrefix(string(body), "Edge: Too Many Requests") {
			return nil, &statusError{host: host, code: http.StatusTooManyRequests, preview: "Edge: Too Many Requests"}
		}
		if resp.StatusCode != http.StatusOK {
			return nil, &statusError{host: host, code: resp.StatusCode, preview: preview(body)}
		}
		if strings.HasPrefix(string(body), "<") || strings.HasPrefix(string(body), "Edge:") {
			return nil, fmt.Errorf("yahoo returned non-json body: %s", preview(body))
		}
		if err := json.Unmarshal(body, v); err != nil {
			return nil, fmt.Errorf("failed to parse yahoo json: %v; body: %s", err, preview(body))
		}
		return nil, nil
	})
	return err
}

// retry runs fn against every host, round after round, pausing between
// rounds, until one call succeeds. Permanent errors stop immediately.
func (c *Client) retry(ctx context.Context, fn func(host string) error) error {
	var lastErr error
	for attempt := 0; attempt < len(c.backoffs)+1; attempt++ {
		for _, host := range c.hosts {
			err := fn(host)
			if err == nil {
				return nil
			}
			lastErr = err
			if isPermanent(err) || ctx.Err() != nil {
				return err
			}
			log.Debug().Err(err).Str("host", host).Int("attempt", attempt).Msg("yahoo: request failed")
		}
		if attempt < len(c.backoffs) {
			select {
			case <-time.After(c.backoffs[attempt]):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return lastErr
}
