package offline_cache

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
)

// Worker — серверный аналог service worker: кэш приложения с версией
type Worker struct {
	version string
	assets  []string
	network http.Handler
	storage *Storage
	log     *slog.Logger
}

func NewWorker(version string, assets []string, network http.Handler, storage *Storage, log *slog.Logger) *Worker {
	if storage == nil {
		storage = NewStorage()
	}
	if log == nil {
		log = slog.Default()
	}
	return &Worker{
		version: version,
		assets:  append([]string(nil), assets...),
		network: network,
		storage: storage,
		log:     log,
	}
}

func (w *Worker) Version() string { return w.version }

func (w *Worker) Storage() *Storage { return w.storage }

// Install загружает все ресурсы оболочки. Если хоть один не загрузился, кэш не заполняется.
func (w *Worker) Install(ctx context.Context) error {
	fetched := make(map[string]*Response, len(w.assets))
	for _, path := range w.assets {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, path, nil)
		if err != nil {
			return err
		}
		rec := newRecorder(nil)
		w.network.ServeHTTP(rec, req)
		if rec.status != http.StatusOK {
			return fmt.Errorf("install %s: asset %s returned %d", w.version, path, rec.status)
		}
		fetched[path] = NewResponse(rec.status, rec.Header(), rec.body.Bytes())
	}
	cache := w.storage.Open(w.version)
	for path, resp := range fetched {
		cache.Put(path, resp)
	}
	w.log.Info("asset cache installed", "version", w.version, "assets", len(fetched))
	return nil
}

// Activate удаляет все кэши, кроме текущей версии
func (w *Worker) Activate() []string {
	var deleted []string
	for _, name := range w.storage.Keys() {
		if name != w.version && w.storage.Delete(name) {
			deleted = append(deleted, name)
		}
	}
	if len(deleted) > 0 {
		w.log.Info("old asset caches deleted", "caches", deleted)
	}
	return deleted
}

// ServeHTTP: сначала кэш, потом сеть; удачные GET-ответы кладутся в кэш.
// Ключ — только путь: строка запроса не должна плодить записи.
func (w *Worker) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	key := r.URL.Path
	if r.Method == http.MethodGet {
		if resp, ok := w.storage.Match(key); ok {
			writeCached(rw, r, resp)
			return
		}
	}

	rec := newRecorder(rw)
	w.network.ServeHTTP(rec, r)
	if r.Method == http.MethodGet && rec.status == http.StatusOK {
		w.storage.Open(w.version).Put(key, NewResponse(rec.status, rec.Header(), rec.body.Bytes()))
	}
}

func writeCached(rw http.ResponseWriter, r *http.Request, resp *Response) {
	for k, values := range resp.Header {
		for _, v := range values {
			rw.Header().Add(k, v)
		}
	}
	rw.Header().Set("ETag", resp.ETag)
	rw.Header().Set("X-Cache", "HIT")
	if match := r.Header.Get("If-None-Match"); match != "" && match == resp.ETag {
		rw.WriteHeader(http.StatusNotModified)
		return
	}
	rw.WriteHeader(resp.Status)
	rw.Write(resp.Body)
}

// recorder запоминает ответ и, если задан, дублирует его клиенту
type recorder struct {
	out         http.ResponseWriter
	header      http.Header
	status      int
	body        bytes.Buffer
	wroteHeader bool
}

func newRecorder(out http.ResponseWriter) *recorder {
	r := &recorder{out: out, status: http.StatusOK}
	if out != nil {
		r.header = out.Header()
	} else {
		r.header = make(http.Header)
	}
	return r
}

func (r *recorder) Header() http.Header { return r.header }

func (r *recorder) WriteHeader(status int) {
	if r.wroteHeader {
		return
	}
	r.wroteHeader = true
	r.status = status
	if r.out != nil {
		r.out.WriteHeader(status)
	}
}

func (r *recorder) Write(p []byte) (int, error) {
	if !r.wroteHeader {
		r.WriteHeader(http.StatusOK)
	}
	r.body.Write(p)
	if r.out != nil {
		return r.out.Write(p)
	}
	return len(p), nil
}
