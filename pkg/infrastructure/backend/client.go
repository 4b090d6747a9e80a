package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/vsinha/requisition/pkg/domain/repositories"
	"github.com/vsinha/requisition/pkg/infrastructure/metrics"
)

const (
	// DefaultBaseURL is the development backend address
	DefaultBaseURL = "http://127.0.0.1:8000/api/"
	// DefaultTimeout bounds a single HTTP attempt
	DefaultTimeout = 5 * time.Second
	// DefaultAuthScheme is the token authentication keyword
	DefaultAuthScheme = "Token"

	maxResponseBytes = 4 << 20
)

// Options configures a Client. Zero values take the defaults above, no
// throttling and no retries.
type Options struct {
	BaseURL    string
	Timeout    time.Duration
	AuthScheme string
	RateLimit  float64
	Burst      int
	MaxRetries uint
	RetryWait  time.Duration
	UserAgent  string

	HTTPClient *http.Client
	Logger     *logrus.Entry
	Metrics    *metrics.Recorder
}

// Client calls the inventory backend's REST API
type Client struct {
	baseURL    *url.URL
	http       *http.Client
	authScheme string
	userAgent  string
	limiter    *rate.Limiter
	maxRetries uint
	retryWait  time.Duration
	log        *logrus.Entry
	metrics    *metrics.Recorder
}

// Verify interface compliance
var _ repositories.InventoryBackend = (*Client)(nil)

// NewClient validates options and builds a client
func NewClient(opts Options) (*Client, error) {
	base := opts.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	parsed, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("invalid backend url %q: %w", opts.BaseURL, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("invalid backend url %q: scheme must be http or https", opts.BaseURL)
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	scheme := opts.AuthScheme
	if scheme == "" {
		scheme = DefaultAuthScheme
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.RateLimit > 0 {
		burst := opts.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}

	retryWait := opts.RetryWait
	if retryWait <= 0 {
		retryWait = 200 * time.Millisecond
	}

	log := opts.Logger
	if log == nil {
		discard := logrus.New()
		discard.SetOutput(io.Discard)
		log = logrus.NewEntry(discard)
	}

	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = "requisition-cli"
	}

	return &Client{
		baseURL:    parsed,
		http:       httpClient,
		authScheme: scheme,
		userAgent:  userAgent,
		limiter:    limiter,
		maxRetries: opts.MaxRetries,
		retryWait:  retryWait,
		log:        log,
		metrics:    opts.Metrics,
	}, nil
}

// call describes one API request
type call struct {
	endpoint string
	method   string
	path     string
	token    string
	body     interface{}
}

// do performs c and returns the raw 2xx body. GETs are retried on transport
// failures and 502/503/504; other methods get exactly one attempt.
func (c *Client) do(ctx context.Context, req call) ([]byte, error) {
	start := time.Now()

	var payload []byte
	if req.body != nil {
		encoded, err := json.Marshal(req.body)
		if err != nil {
			return nil, &repositories.BackendError{Kind: repositories.KindValidation, Message: "failed to encode request body", Err: err}
		}
		payload = encoded
	}

	attempt := func() ([]byte, error) {
		body, err := c.attempt(ctx, req, payload)
		if err != nil && !retryable(err) {
			return nil, backoff.Permanent(err)
		}
		return body, err
	}

	var body []byte
	var err error
	if req.method == http.MethodGet && c.maxRetries > 0 {
		policy := backoff.NewExponentialBackOff()
		policy.InitialInterval = c.retryWait
		policy.MaxInterval = 8 * c.retryWait
		body, err = backoff.Retry(ctx, attempt,
			backoff.WithBackOff(policy),
			backoff.WithMaxTries(c.maxRetries+1),
			backoff.WithNotify(func(err error, wait time.Duration) {
				c.log.WithError(err).WithFields(logrus.Fields{
					"endpoint": req.endpoint,
					"wait":     wait,
				}).Debug("retrying backend call")
			}),
		)
	} else {
		body, err = c.attempt(ctx, req, payload)
	}

	err = asBackendError(err)
	c.metrics.Observe(req.endpoint, outcome(err), time.Since(start))
	return body, err
}

func (c *Client) attempt(ctx context.Context, req call, payload []byte) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &repositories.BackendError{Kind: repositories.KindTransport, Message: "request throttled", Err: err}
	}

	target, err := c.baseURL.Parse(req.path)
	if err != nil {
		return nil, &repositories.BackendError{Kind: repositories.KindValidation, Message: "invalid request path", Err: err}
	}

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.method, target.String(), reader)
	if err != nil {
		return nil, &repositories.BackendError{Kind: repositories.KindValidation, Message: "failed to build request", Err: err}
	}

	requestID := uuid.NewString()
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", c.userAgent)
	httpReq.Header.Set("X-Request-ID", requestID)
	if payload != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if req.token != "" {
		httpReq.Header.Set("Authorization", c.authScheme+" "+req.token)
	}

	entry := c.log.WithFields(logrus.Fields{
		"endpoint":   req.endpoint,
		"method":     req.method,
		"request_id": requestID,
	})

	resp, err := c.http.Do(httpReq)
	if err != nil {
		entry.WithError(err).Debug("backend unreachable")
		return nil, &repositories.BackendError{
			Kind:    repositories.KindTransport,
			Message: "cannot reach the server, check your connection and try again",
			Err:     err,
		}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &repositories.BackendError{Kind: repositories.KindTransport, Status: resp.StatusCode, Message: "failed to read response", Err: err}
	}

	entry.WithField("status", resp.StatusCode).Debug("backend call")
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return body, nil
	}
	return nil, classify(resp.StatusCode, body)
}

// retryable reports whether a failed GET attempt may be repeated
func retryable(err error) bool {
	var be *repositories.BackendError
	if !errors.As(err, &be) || be.Kind != repositories.KindTransport {
		return false
	}
	switch be.Status {
	case 0, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return !errors.Is(be.Err, context.Canceled)
	default:
		return false
	}
}

// asBackendError converts context errors surfaced by the retry loop
func asBackendError(err error) error {
	if err == nil {
		return nil
	}
	var be *repositories.BackendError
	if errors.As(err, &be) {
		return err
	}
	return &repositories.BackendError{Kind: repositories.KindTransport, Message: "request cancelled", Err: err}
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	var be *repositories.BackendError
	if errors.As(err, &be) {
		return be.Kind.String()
	}
	return "error"
}

func decodeJSON(body []byte, out interface{}, what string) error {
	if err := json.Unmarshal(body, out); err != nil {
		return &repositories.BackendError{Kind: repositories.KindValidation, Message: "unexpected " + what + " response", Err: err}
	}
	return nil
}
