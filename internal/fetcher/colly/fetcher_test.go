package collyfetcher

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/checklisting/crawler/internal/crawler"
)

func newFetcher(t *testing.T) *Fetcher {
	t.Helper()
	fetcher, err := New(Config{UserAgent: "checklisting-test"})
	require.NoError(t, err)
	return fetcher
}

func TestFetchGet(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "checklisting-test", r.UserAgent())
		fmt.Fprint(w, "hello")
	}))
	defer server.Close()

	page, err := newFetcher(t).Fetch(context.Background(), crawler.Request{URL: server.URL})
	require.NoError(t, err)
	require.Equal(t, "hello", string(page.Body))
	require.Equal(t, 5, page.ContentLength())
}

func TestFetchPostsFormWhenRequestCarriesOne(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, r.ParseForm())
		fmt.Fprint(w, r.PostForm.Get("hdnVisitStart"))
	}))
	defer server.Close()

	page, err := newFetcher(t).Fetch(context.Background(), crawler.Request{
		URL:  server.URL,
		Form: url.Values{"hdnVisitStart": {"10"}},
	})
	require.NoError(t, err)
	require.Equal(t, "10", string(page.Body))
}

func TestFetchSharesSessionAcrossCalls(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/login", func(w http.ResponseWriter, _ *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "session", Value: "s3cret", Path: "/"})
	})
	mux.HandleFunc("/private", func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie("session")
		if err != nil || cookie.Value != "s3cret" {
			http.Error(w, "no session", http.StatusForbidden)
			return
		}
		fmt.Fprint(w, "welcome")
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	fetcher := newFetcher(t)

	_, err := fetcher.Fetch(context.Background(), crawler.Request{URL: server.URL + "/login"})
	require.NoError(t, err)

	page, err := fetcher.Fetch(context.Background(), crawler.Request{URL: server.URL + "/private"})
	require.NoError(t, err)
	require.Equal(t, "welcome", string(page.Body))
}

func TestFetchReportsFinalURLAfterRedirect(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/start", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/latest_news.php", http.StatusFound)
	})
	mux.HandleFunc("/latest_news.php", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, "news")
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	page, err := newFetcher(t).Fetch(context.Background(), crawler.Request{URL: server.URL + "/start"})
	require.NoError(t, err)
	require.Equal(t, server.URL+"/latest_news.php", page.URL)
}

func TestFetchFailsOnServerError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := newFetcher(t).Fetch(context.Background(), crawler.Request{URL: server.URL})
	require.Error(t, err)
}
