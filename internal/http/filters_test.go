package httpserver

import (
	"net/url"
	"testing"
)

func TestBuildBookFilters(t *testing.T) {
	values, _ := url.ParseQuery("genre=Fiction&ISBN=9780441013593&publisher=Ace")

	filters, err := buildBookFilters(values)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if filters.Genre == nil || *filters.Genre != "Fiction" {
		t.Fatalf("genre filter = %+v", filters.Genre)
	}
	if filters.ISBN == nil || *filters.ISBN != "9780441013593" {
		t.Fatalf("isbn filter = %+v", filters.ISBN)
	}
	if filters.Publisher == nil || *filters.Publisher != "Ace" {
		t.Fatalf("publisher filter = %+v", filters.Publisher)
	}
	if filters.Title != nil || filters.Authors != nil || filters.ID != nil {
		t.Fatalf("unset filters populated: %+v", filters)
	}
}

func TestBuildBookFilters_Rejections(t *testing.T) {
	cases := []struct {
		name  string
		query string
	}{
		{"unknown field", "shelf=top"},
		{"bad genre", "genre=Horror"},
		{"short isbn", "ISBN=12345"},
		{"non-digit isbn", "ISBN=978044101359x"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			values, _ := url.ParseQuery(tc.query)
			if _, err := buildBookFilters(values); err == nil {
				t.Fatalf("expected error for %q", tc.query)
			}
		})
	}
}

func TestValidISBN(t *testing.T) {
	valid := []string{"9780441013593", "0000000000000"}
	for _, isbn := range valid {
		if !validISBN(isbn) {
			t.Fatalf("validISBN(%q) = false, want true", isbn)
		}
	}
	invalid := []string{"", "978044101359", "97804410135933", "978044101359x", "978-44101-3593"}
	for _, isbn := range invalid {
		if validISBN(isbn) {
			t.Fatalf("validISBN(%q) = true, want false", isbn)
		}
	}
}

func FuzzBuildBookFilters(f *testing.F) {
	seeds := []string{
		"genre=Fiction&ISBN=9780441013593",
		"genre=Horror",
		"ISBN=x",
		"unknown=1",
		"",
	}
	for _, seed := range seeds {
		f.Add(seed)
	}

	f.Fuzz(func(t *testing.T, raw string) {
		values, err := url.ParseQuery(raw)
		if err != nil {
			return
		}
		_, _ = buildBookFilters(values)
	})
}
