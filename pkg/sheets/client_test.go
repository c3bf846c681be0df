package sheets

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/senja-literasi-api/pkg/config"
)

func TestFetchAllDecodesSheets(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		gotQuery = r.URL.RawQuery
		_, _ = w.Write([]byte(`{"users":[{"id":"u1"}],"materials":[]}`))
	}))
	defer srv.Close()

	client := NewClient(config.SheetsConfig{URL: srv.URL + "/exec"}, nil)
	client.now = func() time.Time { return time.UnixMilli(1700000000123) }

	payload, err := client.FetchAll(context.Background())
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":"u1"}]`, string(payload["users"]))
	assert.Contains(t, payload, "materials")
	assert.Equal(t, "_t=1700000000123&action=getAll", gotQuery)
}

func TestFetchAllReportsFailures(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"status": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		},
		"malformed": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`<html>quota exceeded</html>`))
		},
		"null": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`null`))
		},
	}

	for name, handler := range cases {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(handler)
			defer srv.Close()

			_, err := NewClient(config.SheetsConfig{URL: srv.URL}, nil).FetchAll(context.Background())
			assert.Error(t, err)
		})
	}
}

func TestSendPostsPlainTextEnvelope(t *testing.T) {
	var (
		contentType string
		body        map[string]interface{}
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		contentType = r.Header.Get("Content-Type")
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &body)
		w.WriteHeader(http.StatusFound)
	}))
	defer srv.Close()

	client := NewClient(config.SheetsConfig{URL: srv.URL}, nil)
	err := client.Send(context.Background(), "Students", []map[string]string{{"nisn": "001"}})
	require.NoError(t, err)

	assert.Equal(t, "text/plain;charset=utf-8", contentType)
	assert.Equal(t, "save", body["action"])
	assert.Equal(t, "Students", body["sheet"])
	assert.Len(t, body["data"], 1)
}

func TestSendIgnoresErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	err := NewClient(config.SheetsConfig{URL: srv.URL}, nil).Send(context.Background(), "Users", []string{})
	assert.NoError(t, err)
}

func TestSendTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	err := NewClient(config.SheetsConfig{URL: url, Timeout: time.Second}, nil).Send(context.Background(), "Users", []string{})
	assert.Error(t, err)
}

func TestUnconfiguredClient(t *testing.T) {
	client := NewClient(config.SheetsConfig{}, nil)
	assert.False(t, client.Configured())

	_, err := client.FetchAll(context.Background())
	assert.ErrorIs(t, err, ErrNotConfigured)
	assert.ErrorIs(t, client.Send(context.Background(), "Users", nil), ErrNotConfigured)
}
