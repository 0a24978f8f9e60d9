package offline_cache

import (
	"bytes"
	"encoding/json"
	"text/template"
)

var serviceWorkerTemplate = template.Must(template.New("sw.js").Parse(`const CACHE_NAME = {{.Version}};
const ASSETS_TO_CACHE = {{.Assets}};

self.addEventListener('install', (event) => {
  event.waitUntil(
    caches.open(CACHE_NAME).then((cache) => cache.addAll(ASSETS_TO_CACHE))
  );
});

self.addEventListener('fetch', (event) => {
  event.respondWith(
    caches.match(event.request).then((cached) => {
      if (cached) {
        return cached;
      }
      return fetch(event.request).then((response) => {
        if (!response || response.status !== 200 || response.type !== 'basic') {
          return response;
        }
        const copy = response.clone();
        caches.open(CACHE_NAME).then((cache) => cache.put(event.request, copy));
        return response;
      });
    })
  );
});

self.addEventListener('activate', (event) => {
  event.waitUntil(
    caches.keys().then((names) =>
      Promise.all(names.filter((name) => name !== CACHE_NAME).map((name) => caches.delete(name)))
    )
  );
});
`))

// ServiceWorker собирает скрипт для браузера с версией кэша и списком ресурсов
func ServiceWorker(version string, assets []string) ([]byte, error) {
	versionJSON, err := json.Marshal(version)
	if err != nil {
		return nil, err
	}
	if assets == nil {
		assets = []string{}
	}
	assetsJSON, err := json.Marshal(assets)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	err = serviceWorkerTemplate.Execute(&buf, struct {
		Version string
		Assets  string
	}{string(versionJSON), string(assetsJSON)})
	return buf.Bytes(), err
}
