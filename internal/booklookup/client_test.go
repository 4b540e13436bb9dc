package booklookup

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *HTTPClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewHTTPClient(server.URL, "test-key", 2*time.Second, 100, log.New(io.Discard, "", 0))
	if err != nil {
		t.Fatalf("create client: %v", err)
	}
	return client
}

func TestFetchSuccess(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("q"); got != "isbn:9780261103573" {
			t.Errorf("query = %q, want isbn:9780261103573", got)
		}
		if got := r.Header.Get("X-API-Key"); got != "test-key" {
			t.Errorf("api key header = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
            "totalItems": 1,
            "items": [{"volumeInfo": {
                "title": "The Hobbit",
                "authors": ["J.R.R. Tolkien", "Christopher Tolkien"],
                "publisher": "HarperCollins",
                "publishedDate": "1937-09-21"
            }}]
        }`))
	})

	result, err := client.Fetch(context.Background(), "9780261103573")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if result.Authors != "J.R.R. Tolkien and Christopher Tolkien" {
		t.Fatalf("authors = %q", result.Authors)
	}
	if result.Publisher != "HarperCollins" {
		t.Fatalf("publisher = %q", result.Publisher)
	}
	if result.PublishedDate != "1937-09-21" {
		t.Fatalf("publishedDate = %q", result.PublishedDate)
	}
}

func TestFetchMissingFields(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"totalItems": 1, "items": [{"volumeInfo": {"title": "Obscure", "publisher": ""}}]}`))
	})

	result, err := client.Fetch(context.Background(), "9780000000000")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if result.Authors != MissingField || result.Publisher != MissingField || result.PublishedDate != MissingField {
		t.Fatalf("expected missing placeholders, got %+v", result)
	}
}

func TestFetchNoItems(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"totalItems": 0}`))
	})

	if _, err := client.Fetch(context.Background(), "9780000000001"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestFetchUpstreamError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	if _, err := client.Fetch(context.Background(), "9780000000002"); err == nil {
		t.Fatalf("expected error for upstream 500")
	}
}

func FuzzConvertToResult(f *testing.F) {
	f.Add("Tolkien", "", "HarperCollins", "1937")
	f.Add("", " ", "", "")

	f.Fuzz(func(t *testing.T, author1, author2, publisher, publishedDate string) {
		info := volumeInfo{Authors: []string{author1, author2}}
		if publisher != "" {
			info.Publisher = &publisher
		}
		if publishedDate != "" {
			info.PublishedDate = &publishedDate
		}

		result := convertToResult(info)
		if result.Authors == "" || result.Publisher == "" || result.PublishedDate == "" {
			t.Fatalf("converted fields must never be empty: %+v", result)
		}
	})
}
