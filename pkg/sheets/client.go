// Package sheets is a thin client for the Google Sheets values API, covering
// the range reads, range writes, and row appends the campaign stores need.
package sheets

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
)

const defaultBaseURL = "https://sheets.googleapis.com/v4"

// Client performs value operations against a single spreadsheet.
type Client interface {
	// GetRange reads cell values from an A1-notation range.
	GetRange(ctx context.Context, rangeA1 string) ([][]string, error)

	// UpdateRange overwrites cell values in an A1-notation range.
	UpdateRange(ctx context.Context, rangeA1 string, values [][]string) error

	// AppendRows appends rows after the last data row of the range's table.
	AppendRows(ctx context.Context, rangeA1 string, values [][]string) error
}

// APIError carries the HTTP status of a failed Sheets call so callers can
// distinguish rate limiting (retriable) from everything else (not).
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("sheets: status %d: %s", e.StatusCode, e.Body)
}

// IsRateLimited reports whether err is a Sheets rate-limit rejection.
func IsRateLimited(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusTooManyRequests
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		c.baseURL = u
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	token         string
	spreadsheetID string
	baseURL       string
	http          *http.Client
}

// NewClient creates a Sheets client bound to one spreadsheet. The token is a
// bearer token minted externally from the service-account credential; token
// plumbing is outside this package's contract.
func NewClient(token, spreadsheetID string, opts ...Option) Client {
	c := &httpClient{
		token:         token,
		spreadsheetID: spreadsheetID,
		baseURL:       defaultBaseURL,
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

// valueRange mirrors the API's ValueRange body. Cells come back as untyped
// JSON values; everything is coerced to string on read.
type valueRange struct {
	Range  string  `json:"range,omitempty"`
	Values [][]any `json:"values,omitempty"`
}

func (c *httpClient) GetRange(ctx context.Context, rangeA1 string) ([][]string, error) {
	u := fmt.Sprintf("%s/spreadsheets/%s/values/%s", c.baseURL, c.spreadsheetID, url.PathEscape(rangeA1))

	body, err := c.do(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}

	var vr valueRange
	if err := json.Unmarshal(body, &vr); err != nil {
		return nil, eris.Wrap(err, "sheets: unmarshal value range")
	}

	rows := make([][]string, len(vr.Values))
	for i, raw := range vr.Values {
		row := make([]string, len(raw))
		for j, cell := range raw {
			row[j] = fmt.Sprint(cell)
		}
		rows[i] = row
	}
	return rows, nil
}

func (c *httpClient) UpdateRange(ctx context.Context, rangeA1 string, values [][]string) error {
	u := fmt.Sprintf("%s/spreadsheets/%s/values/%s?valueInputOption=USER_ENTERED",
		c.baseURL, c.spreadsheetID, url.PathEscape(rangeA1))

	payload, err := json.Marshal(map[string]any{"values": values})
	if err != nil {
		return eris.Wrap(err, "sheets: marshal update")
	}

	_, err = c.do(ctx, http.MethodPut, u, payload)
	return err
}

func (c *httpClient) AppendRows(ctx context.Context, rangeA1 string, values [][]string) error {
	u := fmt.Sprintf("%s/spreadsheets/%s/values/%s:append?valueInputOption=USER_ENTERED&insertDataOption=INSERT_ROWS",
		c.baseURL, c.spreadsheetID, url.PathEscape(rangeA1))

	payload, err := json.Marshal(map[string]any{"values": values})
	if err != nil {
		return eris.Wrap(err, "sheets: marshal append")
	}

	_, err = c.do(ctx, http.MethodPost, u, payload)
	return err
}

func (c *httpClient) do(ctx context.Context, method, u string, payload []byte) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, eris.Wrap(err, "sheets: create request")
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "sheets: send request")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "sheets: read response")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Wrap(&APIError{StatusCode: resp.StatusCode, Body: string(respBody)}, "sheets: request failed")
	}
	return respBody, nil
}
