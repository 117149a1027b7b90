package dns

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/khanhnv2901/seca-suite/internal/shared/constants"
	"go.uber.org/zap"
)

// DoHClient resolves names through a DNS-over-HTTPS JSON endpoint
type DoHClient struct {
	endpoint   string
	httpClient *http.Client
	logger     *zap.Logger
}

type dohAnswer struct {
	Name string `json:"name"`
	Type int    `json:"type"`
	TTL  int    `json:"TTL"`
	Data string `json:"data"`
}

type dohResponse struct {
	Status int         `json:"Status"`
	Answer []dohAnswer `json:"Answer"`
}

// NewDoHClient creates a client. An empty endpoint selects the Google resolver.
func NewDoHClient(endpoint string, timeout time.Duration, logger *zap.Logger) *DoHClient {
	if endpoint == "" {
		endpoint = constants.DefaultDoHEndpoint
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DoHClient{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// LookupA returns the data of the first answer for an A query. Any failure
// yields ok=false; failures are never surfaced as errors.
func (c *DoHClient) LookupA(ctx context.Context, name string) (string, bool) {
	u, err := url.Parse(c.endpoint)
	if err != nil {
		c.logger.Debug("invalid DoH endpoint", zap.String("endpoint", c.endpoint), zap.Error(err))
		return "", false
	}
	q := u.Query()
	q.Set("name", name)
	q.Set("type", "A")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		c.logger.Debug("failed to build DoH request", zap.String("name", name), zap.Error(err))
		return "", false
	}
	req.Header.Set("Accept", "application/dns-json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("DoH request failed", zap.String("name", name), zap.Error(err))
		return "", false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Debug("DoH non-OK status", zap.String("name", name), zap.Int("status", resp.StatusCode))
		return "", false
	}

	var body dohResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, constants.DoHMaxResponseBytes)).Decode(&body); err != nil {
		c.logger.Debug("failed to decode DoH response", zap.String("name", name), zap.Error(err))
		return "", false
	}
	if len(body.Answer) == 0 || body.Answer[0].Data == "" {
		return "", false
	}
	return body.Answer[0].Data, true
}
