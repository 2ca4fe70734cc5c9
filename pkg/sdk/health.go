package shelfrec

import (
	"context"
	"net/http"
	"time"
)

// Health fetches the service health. A 503 still decodes into the report.
func (c *Client) Health(ctx context.Context) (hs HealthStatus, err error) {
	start := time.Now()
	defer func() { c.obs.observe("health", start, err) }()

	resp, err := c.do(ctx, http.MethodGet, "/health", nil, nil, "")
	if err != nil {
		return HealthStatus{}, err
	}
	defer closeBody(resp)

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusServiceUnavailable {
		return HealthStatus{}, decodeAPIError(resp)
	}
	err = decodeJSON(resp, &hs)
	return hs, err
}
