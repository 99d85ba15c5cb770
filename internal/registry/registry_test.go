package registry

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func testLookup(url string) *WordPressOrg {
	return &WordPressOrg{client: newClient(), url: url, action: "plugin_information"}
}

func TestResolvePublicSlugFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("request[slug]"); got != "akismet" {
			t.Errorf("unexpected slug query: %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"slug":"akismet","name":"Akismet"}`))
	}))
	defer srv.Close()

	slug, err := testLookup(srv.URL).ResolvePublicSlug(context.Background(), "akismet")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if slug != "akismet" {
		t.Fatalf("unexpected slug: %q", slug)
	}
}

func TestResolvePublicSlugNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"error":"Plugin not found."}`))
	}))
	defer srv.Close()

	_, err := testLookup(srv.URL).ResolvePublicSlug(context.Background(), "acme-internal-plugin")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestResolvePublicSlug404(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := testLookup(srv.URL).ResolvePublicSlug(context.Background(), "whatever")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
