package fanout

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// HTTPClient is a small retrying GET client, the same resty configuration
// shape the teacher uses for its Polymarket REST calls
// (internal/exchange/client.go) and Gamma market scans
// (internal/market/scanner.go), repurposed here for the operator-triggered
// refresh path spec §7 names as the recovery mechanism for a lost
// DispatchError ("recoverable via ... an operator-triggered refresh job").
// It is not the off-chain JSON fetcher itself (spec §1 names that an
// external collaborator). Nothing in this repository constructs or calls
// it; internal/jobs dispatches its refresh messages through
// internal/fanout.Dispatch instead.
type HTTPClient struct {
	http *resty.Client
}

// NewHTTPClient builds a resty client with exponential retry, the same
// backoff shape the teacher's client.go configures for CLOB API calls.
func NewHTTPClient(timeout time.Duration) *HTTPClient {
	c := resty.New().
		SetTimeout(timeout).
		SetRetryCount(3).
		SetRetryWaitTime(250 * time.Millisecond).
		SetRetryMaxWaitTime(5 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() >= 500
		})
	return &HTTPClient{http: c}
}

// Ping performs a GET against url and returns an error unless the response
// is a 2xx.
func (c *HTTPClient) Ping(ctx context.Context, url string) error {
	resp, err := c.http.R().SetContext(ctx).Get(url)
	if err != nil {
		return fmt.Errorf("fanout: http ping %s: %w", url, err)
	}
	if resp.IsError() {
		return fmt.Errorf("fanout: http ping %s: status %d", url, resp.StatusCode())
	}
	return nil
}
