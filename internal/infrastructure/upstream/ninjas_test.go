package upstream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/tripdesk/internal/domain/entity"
)

func TestNinjas_Weather(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/weather", r.URL.Path)
		assert.Equal(t, "-8.65", r.URL.Query().Get("lat"))
		assert.Equal(t, "115.2167", r.URL.Query().Get("lon"))
		assert.Equal(t, "key", r.Header.Get("X-Api-Key"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"temp": 29, "humidity": 80}`))
	}))
	defer srv.Close()

	c := NewNinjasClient(srv.URL+"/", "key", time.Second)
	out, err := c.Weather(context.Background(), -8.65, 115.2167)
	require.NoError(t, err)
	assert.Equal(t, 29.0, out["temp"])
}

func TestNinjas_ConvertCurrency(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/convertcurrency", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "USD", q.Get("have"))
		assert.Equal(t, "IDR", q.Get("want"))
		assert.Equal(t, "12.5", q.Get("amount"))
		_, _ = w.Write([]byte(`{"new_amount": 200000, "new_currency": "IDR"}`))
	}))
	defer srv.Close()

	out, err := NewNinjasClient(srv.URL, "key", time.Second).ConvertCurrency(context.Background(), "USD", "IDR", 12.5)
	require.NoError(t, err)
	assert.Equal(t, "IDR", out["new_currency"])
}

func TestNinjas_Failures(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"status": func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "quota", http.StatusTooManyRequests)
		},
		"body": func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`not json`))
		},
		"timeout": func(w http.ResponseWriter, _ *http.Request) {
			time.Sleep(200 * time.Millisecond)
			_, _ = w.Write([]byte(`{}`))
		},
	}
	for name, h := range cases {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(h)
			defer srv.Close()
			_, err := NewNinjasClient(srv.URL, "key", 50*time.Millisecond).Weather(context.Background(), 0, 0)
			assert.ErrorIs(t, err, entity.ErrUpstreamUnavailable)
		})
	}

	_, err := NewNinjasClient("http://127.0.0.1:1", "key", 50*time.Millisecond).Weather(context.Background(), 0, 0)
	assert.ErrorIs(t, err, entity.ErrUpstreamUnavailable)
}

func TestNewNinjasClient_Defaults(t *testing.T) {
	c := NewNinjasClient("", "key", 0)
	assert.Equal(t, DefaultBaseURL, c.BaseURL)
	assert.Equal(t, 5*time.Second, c.HTTP.Timeout)
}
