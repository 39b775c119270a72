package location

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHTTPProvider_Current(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("method = %q, want GET", r.Method)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"latitude":51.5074,"longitude":-0.1278}`))
	}))
	defer srv.Close()

	p := NewHTTP(srv.URL)
	fix, err := p.Current(context.Background())
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	if fix.Latitude != 51.5074 || fix.Longitude != -0.1278 {
		t.Errorf("fix = %+v", fix)
	}
}

func TestHTTPProvider_ErrorStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "no fix", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	if _, err := NewHTTP(srv.URL).Current(context.Background()); err == nil {
		t.Fatal("expected error on 503")
	}
}

func TestStaticProvider(t *testing.T) {
	t.Parallel()

	p := &StaticProvider{}
	fix, err := p.Current(context.Background())
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	if fix != nil {
		t.Errorf("fix = %+v, want nil", fix)
	}
}
