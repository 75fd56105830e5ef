package stripe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebhookSourceIPs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"WEBHOOKS": ["3.18.12.63", "3.130.192.231"]}`))
	}))
	defer srv.Close()

	src := NewIPSource(srv.Client())
	src.url = srv.URL

	ips, err := src.WebhookSourceIPs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"3.18.12.63", "3.130.192.231"}, ips)
}

func TestWebhookSourceIPs_BadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	src := NewIPSource(srv.Client())
	src.url = srv.URL

	_, err := src.WebhookSourceIPs(context.Background())
	require.Error(t, err)
}

func TestWebhookSourceIPs_MalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	src := NewIPSource(srv.Client())
	src.url = srv.URL

	_, err := src.WebhookSourceIPs(context.Background())
	require.Error(t, err)
}
