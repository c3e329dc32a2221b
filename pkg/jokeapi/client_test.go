package jokeapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func jokeServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/joke/Programming", r.URL.Path)
		assert.Equal(t, "nsfw,religious,political,racist,sexist,explicit", r.URL.Query().Get("blacklistFlags"))
		assert.Equal(t, "single", r.URL.Query().Get("type"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
}

func TestFetchSingleJoke(t *testing.T) {
	srv := jokeServer(t, http.StatusOK, `{"error":false,"category":"Programming","type":"single","joke":"A SQL query walks into a bar."}`)
	defer srv.Close()

	j, err := NewClient(srv.URL, time.Second).Fetch(context.Background(), "Programming")
	require.NoError(t, err)
	assert.Equal(t, "A SQL query walks into a bar.", j.Text)
	assert.Equal(t, "Programming", j.Category)
}

func TestFetchTwoPartJoke(t *testing.T) {
	srv := jokeServer(t, http.StatusOK, `{"error":false,"category":"Programming","setup":"Why?","delivery":"Because."}`)
	defer srv.Close()

	j, err := NewClient(srv.URL, time.Second).Fetch(context.Background(), "Programming")
	require.NoError(t, err)
	assert.Equal(t, "Why? Because.", j.Text)
}

func TestFetchFailures(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		errMsg string
	}{
		{"status", http.StatusInternalServerError, `{}`, "API returned status 500"},
		{"upstream error", http.StatusOK, `{"error":true,"message":"No matching joke found"}`, "No matching joke found"},
		{"upstream error without message", http.StatusOK, `{"error":true}`, "API returned an error"},
		{"malformed", http.StatusOK, `not json`, "malformed"},
		{"empty", http.StatusOK, `{"error":false,"setup":"only setup"}`, ErrNoJoke.Error()},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := jokeServer(t, tc.status, tc.body)
			defer srv.Close()

			_, err := NewClient(srv.URL, time.Second).Fetch(context.Background(), "Programming")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.errMsg)
		})
	}
}
