package http

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(ClientConfig{BaseURL: srv.URL + "/"})
}

func TestPostJSON_SendsJSON(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/loan-approval/predict-home", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"Gender": 1}`, string(body))
		_, _ = w.Write([]byte(`{"prediction": "Approved"}`))
	})

	resp, err := client.PostJSON(context.Background(), "/api/loan-approval/predict-home", map[string]interface{}{"Gender": 1})
	require.NoError(t, err)
	assert.True(t, resp.IsSuccess())
	assert.JSONEq(t, `{"prediction": "Approved"}`, string(resp.Body))
}

func TestPostJSON_ErrorStatusIsNotAnError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	resp, err := client.PostJSON(context.Background(), "/x", nil)
	require.NoError(t, err)
	assert.False(t, resp.IsSuccess())
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
}

func TestPostJSON_BodyAtLimit(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("a", maxResponseBytes)))
	})

	resp, err := client.PostJSON(context.Background(), "/x", nil)
	require.NoError(t, err)
	assert.Len(t, resp.Body, maxResponseBytes)
}

func TestPostJSON_BodyOverLimit(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("a", maxResponseBytes+1)))
	})

	resp, err := client.PostJSON(context.Background(), "/x", nil)
	assert.Nil(t, resp)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrResponseTooLarge))
}
