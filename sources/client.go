// sources/client.go
package sources

import (
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

const userAgent = "countries-refresh/1.0"

// newClient builds the resty client shared by the HTTP sources. Bodies are
// always decoded as JSON because both upstreams are known to mislabel them.
func newClient(timeout time.Duration) *resty.Client {
	return resty.New().
		SetTimeout(timeout).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", userAgent)
}

// checkResponse turns a transport error or a non-2xx reply into an UpstreamError.
func checkResponse(source, url string, resp *resty.Response, err error) error {
	if err != nil {
		upstreamErr := &UpstreamError{Source: source, Err: fmt.Errorf("failed to GET %s: %w", url, err)}
		if resp != nil && resp.RawResponse != nil {
			upstreamErr.StatusCode = resp.StatusCode()
		}
		return upstreamErr
	}
	if resp.IsError() || resp.StatusCode() < 200 || resp.StatusCode() > 299 {
		return &UpstreamError{
			Source:     source,
			StatusCode: resp.StatusCode(),
			Detail:     summarizeBody(resp.Header().Get("Content-Type"), resp.Body()),
		}
	}
	return nil
}
