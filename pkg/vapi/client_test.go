package vapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateCall(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
		wantID  string
	}{
		{
			name:   "created",
			status: http.StatusCreated,
			body:   `{"id": "call-abc", "status": "queued"}`,
			wantID: "call-abc",
		},
		{
			name:   "ok",
			status: http.StatusOK,
			body:   `{"id": "call-def", "status": "queued"}`,
			wantID: "call-def",
		},
		{
			name:    "rate_limit",
			status:  http.StatusTooManyRequests,
			body:    `{"error": "rate limit exceeded"}`,
			wantErr: "unexpected status 429",
		},
		{
			name:    "bad_request",
			status:  http.StatusBadRequest,
			body:    `{"error": "customer.number is required"}`,
			wantErr: "unexpected status 400",
		},
		{
			name:    "malformed_response",
			status:  http.StatusOK,
			body:    `{invalid`,
			wantErr: "unmarshal response",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, "/call/phone", r.URL.Path)
				assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))

				var req CreateCallRequest
				require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
				assert.Equal(t, "+15551234567", req.Customer.Number)

				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			client := NewClient("test-token", WithBaseURL(srv.URL))
			call, err := client.CreateCall(context.Background(), CreateCallRequest{
				PhoneNumberID: "pn-1",
				AssistantID:   "asst-1",
				Customer:      Customer{Number: "+15551234567"},
			})

			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				assert.Nil(t, call)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, call.ID)
		})
	}
}

func TestGetCall(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/call/call-abc", r.URL.Path)

		_, _ = w.Write([]byte(`{"id": "call-abc", "from": "+15557654321", "customer": {"number": "+15551234567"}}`))
	}))
	defer srv.Close()

	client := NewClient("test-token", WithBaseURL(srv.URL))
	call, err := client.GetCall(context.Background(), "call-abc")
	require.NoError(t, err)
	assert.Equal(t, "+15557654321", call.From)
	assert.Equal(t, "+15551234567", call.Customer.Number)
}

func TestGetCallNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error": "not found"}`))
	}))
	defer srv.Close()

	client := NewClient("test-token", WithBaseURL(srv.URL))
	_, err := client.GetCall(context.Background(), "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status 404")
}
