// Package vapi is a minimal client for the Vapi voice platform: creating
// outbound phone calls and fetching call detail for number recovery.
package vapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
)

const defaultBaseURL = "https://api.vapi.ai"

// Client talks to the Vapi API.
type Client interface {
	// CreateCall starts an outbound phone call and returns the platform's
	// call record, whose ID becomes the campaign correlation id.
	CreateCall(ctx context.Context, req CreateCallRequest) (*Call, error)

	// GetCall fetches call detail by id. Used as the last resort of the
	// caller-number resolution chain.
	GetCall(ctx context.Context, callID string) (*Call, error)
}

// CreateCallRequest is the request body for POST /call/phone.
type CreateCallRequest struct {
	PhoneNumberID string            `json:"phoneNumberId"`
	AssistantID   string            `json:"assistantId"`
	Customer      Customer          `json:"customer"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// Customer identifies the call target.
type Customer struct {
	Number string `json:"number"`
	Name   string `json:"name,omitempty"`
}

// Call is the platform's call record. Only the fields this system reads are
// mapped.
type Call struct {
	ID        string   `json:"id"`
	Status    string   `json:"status"`
	From      string   `json:"from"`
	Customer  Customer `json:"customer"`
	CreatedAt string   `json:"createdAt"`
	Duration  float64  `json:"duration"`
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	token   string
	baseURL string
	http    *http.Client
}

// NewClient creates a Vapi API client.
func NewClient(token string, opts ...Option) Client {
	c := &httpClient{
		token:   token,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) CreateCall(ctx context.Context, req CreateCallRequest) (*Call, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, eris.Wrap(err, "vapi: marshal request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/call/phone", bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "vapi: create request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, eris.Wrap(err, "vapi: send request")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "vapi: read response")
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, eris.Errorf("vapi: unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	var call Call
	if err := json.Unmarshal(respBody, &call); err != nil {
		return nil, eris.Wrap(err, "vapi: unmarshal response")
	}
	return &call, nil
}

func (c *httpClient) GetCall(ctx context.Context, callID string) (*Call, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/call/"+callID, nil)
	if err != nil {
		return nil, eris.Wrap(err, "vapi: create request")
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, eris.Wrap(err, "vapi: send request")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "vapi: read response")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("vapi: unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	var call Call
	if err := json.Unmarshal(respBody, &call); err != nil {
		return nil, eris.Wrap(err, "vapi: unmarshal response")
	}
	return &call, nil
}
