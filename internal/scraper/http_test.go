package scraper

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPFetcher_OK(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, userAgent, r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte("<html></html>"))
	}))
	defer server.Close()

	body, err := NewHTTPFetcher(time.Second, 0).FetchPage(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, "<html></html>", string(body))
}

func TestHTTPFetcher_NonOKStatus(t *testing.T) {
	for _, code := range []int{http.StatusNoContent, http.StatusNotFound, http.StatusInternalServerError} {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(code)
		}))

		_, err := NewHTTPFetcher(time.Second, 0).FetchPage(context.Background(), server.URL)
		server.Close()

		var statusErr *StatusError
		require.ErrorAs(t, err, &statusErr)
		assert.Equal(t, code, statusErr.StatusCode)
		assert.Equal(t, server.URL, statusErr.URL)
	}
}

func TestHTTPFetcher_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	_, err := NewHTTPFetcher(50*time.Millisecond, 0).FetchPage(context.Background(), server.URL)
	require.Error(t, err)
}

func TestHTTPFetcher_ContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewHTTPFetcher(time.Second, 0).FetchPage(ctx, server.URL)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestHTTPFetcher_BodyTooLarge(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("x", 64)))
	}))
	defer server.Close()

	_, err := NewHTTPFetcher(time.Second, 16).FetchImage(context.Background(), server.URL)
	require.ErrorIs(t, err, ErrBodyTooLarge)

	data, err := NewHTTPFetcher(time.Second, 64).FetchImage(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Len(t, data, 64)
}

// "Привет" in windows-1251.
const cp1251Greeting = "\xcf\xf0\xe8\xe2\xe5\xf2"

func TestHTTPFetcher_DecodesCharset(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/header", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=windows-1251")
		_, _ = w.Write([]byte("<html><head><title>" + cp1251Greeting + "</title></head></html>"))
	})
	mux.HandleFunc("/meta", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><head><meta charset="windows-1251"><title>` + cp1251Greeting + "</title></head></html>"))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	f := NewHTTPFetcher(time.Second, 0)
	for _, path := range []string{"/header", "/meta"} {
		body, err := f.FetchPage(context.Background(), server.URL+path)
		require.NoError(t, err, path)
		assert.True(t, utf8.Valid(body), path)
		assert.Contains(t, string(body), "<title>Привет</title>", path)
	}
}

func TestHTTPFetcher_ImageBytesUntouched(t *testing.T) {
	raw := []byte{0xFF, 0xD8, 0xFF, 0xCF, 0xF0}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=windows-1251")
		_, _ = w.Write(raw)
	}))
	defer server.Close()

	data, err := NewHTTPFetcher(time.Second, 0).FetchImage(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, raw, data)
}

func TestHTTPFetcher_MalformedURL(t *testing.T) {
	_, err := NewHTTPFetcher(time.Second, 0).FetchPage(context.Background(), "://not a url")
	require.Error(t, err)
}
