package rates

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"net/url"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// ErrUnavailable is returned when the conversion service cannot produce a
// rate. Callers degrade to the un-enriched amount; this is never fatal.
var ErrUnavailable = errors.New("conversion service unavailable")

var weiPerEth = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

const rateTTL = time.Minute

// Client fetches ETH exchange rates and converts on-chain amounts into a
// local-currency price string.
type Client struct {
	endpoint string
	currency string
	http     *http.Client
	limiter  *rate.Limiter

	mu        sync.Mutex
	cached    *big.Rat
	fetchedAt time.Time
}

// NewClient creates a rates client for the given endpoint and fiat currency
// code (e.g. "USD").
func NewClient(endpoint, currency string) *Client {
	return &Client{
		endpoint: endpoint,
		currency: currency,
		http:     &http.Client{Timeout: 10 * time.Second},
		limiter:  rate.NewLimiter(rate.Every(time.Second), 2),
	}
}

// Convert returns the local-currency price string for the given amount in
// wei, e.g. "12.34 USD". Returns ErrUnavailable (wrapped) on any transport
// or decode failure.
func (c *Client) Convert(ctx context.Context, wei *big.Int) (string, error) {
	r, err := c.rate(ctx)
	if err != nil {
		return "", err
	}
	eth := new(big.Rat).SetFrac(wei, weiPerEth)
	price := new(big.Rat).Mul(r, eth)
	return fmt.Sprintf("%s %s", price.FloatString(2), c.currency), nil
}

func (c *Client) rate(ctx context.Context) (*big.Rat, error) {
	c.mu.Lock()
	if c.cached != nil && time.Since(c.fetchedAt) < rateTTL {
		r := c.cached
		c.mu.Unlock()
		return r, nil
	}
	c.mu.Unlock()

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	u, err := url.Parse(c.endpoint)
	if err != nil {
		return nil, fmt.Errorf("%w: bad endpoint: %v", ErrUnavailable, err)
	}
	q := u.Query()
	q.Set("currency", "ETH")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var body struct {
		Data struct {
			Currency string            `json:"currency"`
			Rates    map[string]string `json:"rates"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrUnavailable, err)
	}

	raw, ok := body.Data.Rates[c.currency]
	if !ok {
		return nil, fmt.Errorf("%w: no rate for %s", ErrUnavailable, c.currency)
	}
	r, ok := new(big.Rat).SetString(raw)
	if !ok {
		return nil, fmt.Errorf("%w: bad rate %q", ErrUnavailable, raw)
	}

	c.mu.Lock()
	c.cached = r
	c.fetchedAt = time.Now()
	c.mu.Unlock()

	return r, nil
}
