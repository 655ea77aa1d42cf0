package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/dileep-u-k/chatbot-gateway/internal/search"
)

func TestRunSearchRequestsThreeResults(t *testing.T) {
	var gotNum string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotNum = r.URL.Query().Get("num")
		w.Write([]byte("<html><body></body></html>"))
	}))
	t.Cleanup(srv.Close)

	svcs := &services{
		search: search.NewService(search.Config{
			BaseURL:   srv.URL,
			UserAgent: "test-agent/1.0",
		}, srv.Client(), zerolog.Nop()),
	}

	code := runSearch(context.Background(), svcs, "golang")
	assert.Equal(t, 0, code)
	assert.Equal(t, "3", gotNum)
}
