// Package client talks to the hosted identity service and the realtime
// directory store over their REST APIs.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Default endpoints of the hosted services.
const (
	DefaultAuthURL  = "https://identitytoolkit.googleapis.com/v1"
	DefaultTokenURL = "https://securetoken.googleapis.com/v1/token"
	DefaultTimeout  = 30 * time.Second
)

// maxErrorBody caps how much of an error response is read.
const maxErrorBody = 1 << 20

// transport is the JSON-over-HTTP plumbing shared by the auth and store clients.
type transport struct {
	httpClient *http.Client
}

func newTransport(timeout time.Duration) transport {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return transport{httpClient: &http.Client{Timeout: timeout}}
}

// doRequest sends body as JSON to rawURL and decodes the response into out.
func (t transport) doRequest(ctx context.Context, method, rawURL string, body any, out any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return t.do(req, out)
}

// postForm sends a form-encoded POST and decodes the JSON response into out.
func (t transport) postForm(ctx context.Context, rawURL string, form url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return t.do(req, out)
}

func (t transport) do(req *http.Request, out any) error {
	resp, err := t.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck // best-effort close

	if resp.StatusCode >= 400 {
		return readHTTPError(resp)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

func readHTTPError(resp *http.Response) error {
	respBody, readErr := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if readErr != nil {
		return &HTTPError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("failed to read body: %v", readErr)}
	}
	if msg := errorMessage(respBody); msg != "" {
		return &HTTPError{StatusCode: resp.StatusCode, Message: msg}
	}
	return &HTTPError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(respBody))}
}

// errorMessage extracts the message from either error body shape:
// {"error":"text"} from the store or {"error":{"message":"CODE"}} from auth.
func errorMessage(body []byte) string {
	var apiErr struct {
		Error json.RawMessage `json:"error"`
	}
	if json.Unmarshal(body, &apiErr) != nil || len(apiErr.Error) == 0 {
		return ""
	}
	var text string
	if json.Unmarshal(apiErr.Error, &text) == nil {
		return text
	}
	var obj struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(apiErr.Error, &obj) == nil {
		return obj.Message
	}
	return ""
}

func withQuery(base string, params url.Values) string {
	if len(params) == 0 {
		return base
	}
	return base + "?" + params.Encode()
}
