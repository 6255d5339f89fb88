package payment

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"
)

type apiResponse struct {
	status int
	body   []byte
}

// transport wraps every provider API call in a circuit breaker so a flapping
// upstream fails fast instead of tying up request handlers. Client errors
// (4xx) do not count against the breaker.
type transport struct {
	client  *http.Client
	breaker *gobreaker.CircuitBreaker[*apiResponse]
}

func newTransport(name string, timeout time.Duration) *transport {
	return &transport{
		client: &http.Client{Timeout: timeout},
		breaker: gobreaker.NewCircuitBreaker[*apiResponse](gobreaker.Settings{
			Name:        name,
			MaxRequests: 3,
			Interval:    time.Minute,
			Timeout:     30 * time.Second,
		}),
	}
}

func (t *transport) do(req *http.Request) (*apiResponse, error) {
	return t.breaker.Execute(func() (*apiResponse, error) {
		resp, err := t.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if err != nil {
			return nil, fmt.Errorf("read response body: %w", err)
		}

		if resp.StatusCode >= http.StatusInternalServerError {
			return nil, fmt.Errorf("upstream returned %d", resp.StatusCode)
		}

		return &apiResponse{status: resp.StatusCode, body: body}, nil
	})
}
