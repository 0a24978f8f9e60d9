package offline_cache

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/ERRORIK404/custom_calc/pkg/logger"
)

type countingHandler struct {
	hits atomic.Int32
}

func (h *countingHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.hits.Add(1)
	switch r.URL.Path {
	case "/missing":
		http.NotFound(w, r)
	default:
		w.Header().Set("Content-Type", "text/plain")
		fmt.Fprintf(w, "body of %s", r.URL.Path)
	}
}

func TestInstallAndServeFromCache(t *testing.T) {
	network := &countingHandler{}
	w := NewWorker("v1", []string{"/", "/manifest.json"}, network, nil, logger.Discard())
	if err := w.Install(context.Background()); err != nil {
		t.Fatalf("Install: %v", err)
	}
	if network.hits.Load() != 2 {
		t.Fatalf("install fetched %d assets", network.hits.Load())
	}

	rec := httptest.NewRecorder()
	w.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/manifest.json", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "body of /manifest.json" {
		t.Errorf("cached response = %d %q", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("X-Cache") != "HIT" || rec.Header().Get("ETag") == "" {
		t.Errorf("missing cache headers: %v", rec.Header())
	}
	if network.hits.Load() != 2 {
		t.Errorf("cache-first went to network")
	}
}

func TestInstallFailsAtomically(t *testing.T) {
	w := NewWorker("v1", []string{"/", "/missing"}, &countingHandler{}, nil, logger.Discard())
	if err := w.Install(context.Background()); err == nil {
		t.Fatal("expected install error")
	}
	if _, ok := w.Storage().Match("/"); ok {
		t.Error("partial install must not populate the cache")
	}
}

func TestNetworkFallbackCaches200Only(t *testing.T) {
	network := &countingHandler{}
	w := NewWorker("v1", nil, network, nil, logger.Discard())

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		w.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/app.js", nil))
		if rec.Body.String() != "body of /app.js" {
			t.Fatalf("body = %q", rec.Body.String())
		}
	}
	if network.hits.Load() != 1 {
		t.Errorf("200 response should be cached, network hits = %d", network.hits.Load())
	}

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		w.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/missing", nil))
		if rec.Code != http.StatusNotFound {
			t.Fatalf("status = %d", rec.Code)
		}
	}
	if network.hits.Load() != 3 {
		t.Errorf("404 must not be cached, network hits = %d", network.hits.Load())
	}

	rec := httptest.NewRecorder()
	w.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/post", strings.NewReader("x")))
	w.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/post", nil))
	if network.hits.Load() != 5 {
		t.Errorf("POST response must not be cached, network hits = %d", network.hits.Load())
	}
}

func TestQueryStringDoesNotGrowCache(t *testing.T) {
	network := &countingHandler{}
	w := NewWorker("v1", []string{"/"}, network, nil, logger.Discard())
	if err := w.Install(context.Background()); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 100; i++ {
		rec := httptest.NewRecorder()
		w.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, fmt.Sprintf("/?junk=%d", i), nil))
		if rec.Body.String() != "body of /" {
			t.Fatalf("body = %q", rec.Body.String())
		}
	}
	if n := w.Storage().Open("v1").Len(); n != 1 {
		t.Errorf("cache entries = %d, want 1", n)
	}
	if network.hits.Load() != 1 {
		t.Errorf("query string bypassed the cache, network hits = %d", network.hits.Load())
	}
}

func TestNotModified(t *testing.T) {
	w := NewWorker("v1", []string{"/"}, &countingHandler{}, nil, logger.Discard())
	w.Install(context.Background())

	first := httptest.NewRecorder()
	w.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/", nil))
	etag := first.Header().Get("ETag")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("If-None-Match", etag)
	second := httptest.NewRecorder()
	w.ServeHTTP(second, req)
	if second.Code != http.StatusNotModified {
		t.Errorf("status = %d, want 304", second.Code)
	}
}

func TestActivatePrunesOldVersions(t *testing.T) {
	storage := NewStorage()
	storage.Open("custom-calc-v0").Put("/", NewResponse(200, http.Header{}, []byte("old")))
	storage.Open("other").Put("/x", NewResponse(200, http.Header{}, []byte("x")))

	w := NewWorker("custom-calc-v1", []string{"/"}, &countingHandler{}, storage, logger.Discard())
	if err := w.Install(context.Background()); err != nil {
		t.Fatal(err)
	}
	deleted := w.Activate()
	if len(deleted) != 2 {
		t.Errorf("deleted = %v", deleted)
	}
	keys := storage.Keys()
	if len(keys) != 1 || keys[0] != "custom-calc-v1" {
		t.Errorf("remaining caches = %v", keys)
	}
	resp, ok := storage.Match("/")
	if !ok || string(resp.Body) != "body of /" {
		t.Errorf("current version content lost")
	}
}

func TestServiceWorkerScript(t *testing.T) {
	script, err := ServiceWorker("custom-calc-v2", []string{"/", "/manifest.json"})
	if err != nil {
		t.Fatal(err)
	}
	s := string(script)
	if !strings.Contains(s, `const CACHE_NAME = "custom-calc-v2";`) {
		t.Errorf("version not rendered:\n%s", s)
	}
	if !strings.Contains(s, `const ASSETS_TO_CACHE = ["/","/manifest.json"];`) {
		t.Errorf("assets not rendered:\n%s", s)
	}
}

func TestDefaultManifest(t *testing.T) {
	m := DefaultManifest()
	if m.Display != "standalone" || len(m.Icons) != 2 || m.ThemeColor != ThemeColor {
		t.Errorf("unexpected manifest: %+v", m)
	}
}
