// Package mahak is the HTTP adapter for the Mahak RestApi. It implements the
// domain client port and owns all wire-level concerns: request shaping,
// authentication headers, response parsing and the transient/permanent
// classification of failures.
package mahak

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	domain "github.com/shopino/backend/internal/domain/mahak"
)

// maxResponseSize limits the response body size to prevent memory exhaustion
const maxResponseSize = 10 * 1024 * 1024 // 10MB max response

// HTTPClient implements the domain Client port against the Mahak RestApi
type HTTPClient struct {
	config     *Config
	httpClient *http.Client
}

var _ domain.Client = (*HTTPClient)(nil)

// NewHTTPClient creates a Mahak client with the given configuration
func NewHTTPClient(config *Config) (*HTTPClient, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &HTTPClient{
		config: config,
		httpClient: &http.Client{
			Timeout: time.Duration(config.TimeoutSeconds) * time.Second,
		},
	}, nil
}

// apiEnvelope is the standard Mahak RestApi response wrapper
type apiEnvelope struct {
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// pushData is the data section of a create/update response
type pushData struct {
	ID         int64  `json:"id"`
	Code       string `json:"code"`
	RowVersion int64  `json:"row_version"`
}

// fetchData is the data section of a read response
type fetchData struct {
	Payload    json.RawMessage `json:"payload"`
	RowVersion int64           `json:"row_version"`
}

// CreateOrUpdate pushes one entity to Mahak. A nil ExternalID posts a new
// record; otherwise the existing record is updated in place.
func (c *HTTPClient) CreateOrUpdate(ctx context.Context, req *domain.PushRequest) (*domain.PushResult, error) {
	body := map[string]any{
		"payload": req.Payload,
	}
	method := http.MethodPost
	path := fmt.Sprintf("/api/v1/%s", entityPath(req.EntityType))
	if req.ExternalID != nil {
		method = http.MethodPut
		path = fmt.Sprintf("%s/%d", path, *req.ExternalID)
	}

	raw, env, err := c.doRequest(ctx, method, path, body)
	if err != nil {
		return nil, err
	}

	var data pushData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return nil, domain.NewPermanentError("INVALID_RESPONSE",
			fmt.Sprintf("%v: %v", domain.ErrInvalidResponse, err), string(raw))
	}
	if data.ID == 0 && req.ExternalID != nil {
		// Mahak echoes the id on updates; tolerate servers that omit it
		data.ID = *req.ExternalID
	}
	if data.ID == 0 {
		return nil, domain.NewPermanentError("INVALID_RESPONSE",
			"mahak: create response carries no record id", string(raw))
	}

	return &domain.PushResult{
		ExternalID:   data.ID,
		ExternalCode: data.Code,
		RowVersion:   data.RowVersion,
		RawResponse:  string(raw),
	}, nil
}

// Delete removes one entity on the Mahak side. A 404 counts as success: the
// record is gone either way.
func (c *HTTPClient) Delete(ctx context.Context, entityType string, externalID int64) (*domain.PushResult, error) {
	path := fmt.Sprintf("/api/v1/%s/%d", entityPath(entityType), externalID)

	raw, _, err := c.doRequest(ctx, http.MethodDelete, path, nil)
	if err != nil {
		if errors.Is(err, domain.ErrEntityNotFound) {
			return &domain.PushResult{ExternalID: externalID, RawResponse: domain.RawResponse(err)}, nil
		}
		return nil, err
	}

	return &domain.PushResult{ExternalID: externalID, RawResponse: string(raw)}, nil
}

// Fetch reads one entity from Mahak by its external id. A missing record is
// reported through FetchResult.Found, not as an error.
func (c *HTTPClient) Fetch(ctx context.Context, entityType string, externalID int64) (*domain.FetchResult, error) {
	path := fmt.Sprintf("/api/v1/%s/%d", entityPath(entityType), externalID)

	raw, env, err := c.doRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		if errors.Is(err, domain.ErrEntityNotFound) {
			return &domain.FetchResult{Found: false}, nil
		}
		return nil, err
	}

	var data fetchData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return nil, domain.NewPermanentError("INVALID_RESPONSE",
			fmt.Sprintf("%v: %v", domain.ErrInvalidResponse, err), string(raw))
	}

	return &domain.FetchResult{
		Found:      true,
		Payload:    data.Payload,
		RowVersion: data.RowVersion,
	}, nil
}

// doRequest performs one HTTP round trip and classifies every failure mode.
// On success it returns the raw body and the decoded envelope.
func (c *HTTPClient) doRequest(ctx context.Context, method, path string, body any) ([]byte, *apiEnvelope, error) {
	var reader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return nil, nil, domain.NewPermanentError("MARSHAL", err.Error(), "")
		}
		reader = bytes.NewReader(bodyBytes)
	}

	url := strings.TrimRight(c.config.BaseURL, "/") + path
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, nil, domain.NewPermanentError("REQUEST", err.Error(), "")
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Api-Key", c.config.APIKey)
	if c.config.Username != "" {
		req.SetBasicAuth(c.config.Username, c.config.Password)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, classifyTransportError(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, nil, domain.NewTransientError("READ_BODY", err.Error(), "")
	}

	if err := classifyStatus(resp.StatusCode, raw); err != nil {
		return nil, nil, err
	}

	var env apiEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, nil, domain.NewPermanentError("INVALID_RESPONSE",
			fmt.Sprintf("%v: %v", domain.ErrInvalidResponse, err), string(raw))
	}

	return raw, &env, nil
}

// classifyTransportError maps network-level failures. They are all transient:
// the request may never have reached Mahak.
func classifyTransportError(err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return domain.NewTransientError("TIMEOUT",
			fmt.Sprintf("%v: %v", domain.ErrUnavailable, err), "")
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return domain.NewTransientError("TIMEOUT",
			fmt.Sprintf("%v: %v", domain.ErrUnavailable, err), "")
	}
	return domain.NewTransientError("NETWORK",
		fmt.Sprintf("%v: %v", domain.ErrUnavailable, err), "")
}

// classifyStatus maps HTTP status codes onto the domain error taxonomy
func classifyStatus(status int, raw []byte) error {
	if status < 400 {
		return nil
	}

	code, message := parseErrorBody(raw)

	switch {
	case status == http.StatusNotFound:
		return &notFoundError{raw: string(raw)}
	case status == http.StatusTooManyRequests:
		return domain.NewTransientError("RATE_LIMITED",
			fmt.Sprintf("%v: HTTP 429", domain.ErrRateLimited), string(raw))
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return domain.NewPermanentError("AUTH",
			fmt.Sprintf("%v: HTTP %d", domain.ErrAuthFailed, status), string(raw))
	case status >= 500:
		return domain.NewTransientError("SERVER_ERROR",
			fmt.Sprintf("%v: HTTP %d %s", domain.ErrUnavailable, status, message), string(raw))
	default:
		if code == "" {
			code = fmt.Sprintf("HTTP_%d", status)
		}
		return domain.NewPermanentError(code,
			fmt.Sprintf("%v: HTTP %d %s", domain.ErrRequestFailed, status, message), string(raw))
	}
}

// parseErrorBody extracts the Mahak error code and message from a failure
// body, tolerating non-JSON bodies.
func parseErrorBody(raw []byte) (code, message string) {
	var env apiEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return "", ""
	}
	return env.Code, env.Message
}

// notFoundError adapts a 404 so callers can branch on ErrEntityNotFound while
// keeping the raw body available.
type notFoundError struct {
	raw string
}

func (e *notFoundError) Error() string   { return domain.ErrEntityNotFound.Error() }
func (e *notFoundError) Unwrap() error   { return domain.ErrEntityNotFound }
func (e *notFoundError) RawBody() string { return e.raw }

// entityPath maps the queue entity type onto the Mahak resource path segment
func entityPath(entityType string) string {
	switch strings.ToUpper(entityType) {
	case "ORDER":
		return "orders"
	case "PRODUCT":
		return "products"
	case "CATEGORY":
		return "categories"
	case "CUSTOMER":
		return "customers"
	default:
		return strings.ToLower(entityType) + "s"
	}
}
