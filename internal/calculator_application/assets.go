package calculatorapplication

import (
	"bytes"
	"embed"
	"encoding/json"
	"html/template"
	"image"
	"image/color"
	"image/png"
	"net/http"

	"github.com/ERRORIK404/custom_calc/pkg/offline_cache"
	"github.com/ERRORIK404/custom_calc/pkg/session"
)

//go:embed web/index.html web/app.js
var webFS embed.FS

var pageTemplate = template.Must(template.ParseFS(webFS, "web/index.html"))

// Ресурсы оболочки, которые браузерный service worker кэширует при установке
var browserAssets = []string{
	"/",
	"/manifest.json",
	"/icons/custom-calc-192.png",
	"/icons/custom-calc-512.png",
	"/calculator_formulas",
	"/calculator_variable_values",
}

// Ресурсы, которые кэширует сервер. Не зависят от сессии.
var shellAssets = []string{
	"/",
	"/app.js",
	"/manifest.json",
	"/sw.js",
	"/icons/custom-calc-192.png",
	"/icons/custom-calc-512.png",
}

type assets struct {
	page     []byte
	script   []byte
	manifest []byte
	worker   []byte
	icons    map[string][]byte
}

func buildAssets(cacheVersion string, displayLines int) (*assets, error) {
	var page bytes.Buffer
	err := pageTemplate.Execute(&page, struct {
		ThemeColor string
		ThemeCSS   template.CSS
		Layout     [][]session.Button
		Lines      []struct{}
	}{
		ThemeColor: offline_cache.ThemeColor,
		ThemeCSS:   template.CSS(offline_cache.ThemeColor),
		Layout:     session.Layout(),
		Lines:      make([]struct{}, displayLines),
	})
	if err != nil {
		return nil, err
	}

	script, err := webFS.ReadFile("web/app.js")
	if err != nil {
		return nil, err
	}
	manifest, err := json.Marshal(offline_cache.DefaultManifest())
	if err != nil {
		return nil, err
	}
	worker, err := offline_cache.ServiceWorker(cacheVersion, browserAssets)
	if err != nil {
		return nil, err
	}

	icons := map[string][]byte{}
	for name, size := range map[string]int{"custom-calc-192.png": 192, "custom-calc-512.png": 512} {
		icon, err := renderIcon(size)
		if err != nil {
			return nil, err
		}
		icons[name] = icon
	}
	return &assets{page: page.Bytes(), script: script, manifest: manifest, worker: worker, icons: icons}, nil
}

// renderIcon рисует квадрат цвета темы с белым "дисплеем"
func renderIcon(size int) ([]byte, error) {
	theme := color.RGBA{R: 0x4f, G: 0x46, B: 0xe5, A: 0xff}
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	margin := size / 6
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			c := theme
			if x >= margin && x < size-margin && y >= margin && y < size/2 {
				c = color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
			}
			img.SetRGBA(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// handler отдает статические ресурсы; сверху его оборачивает кэш
func (a *assets) handler() http.Handler {
	mux := http.NewServeMux()
	serve := func(contentType string, body []byte) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", contentType)
			w.Write(body)
		}
	}
	mux.Handle("GET /{$}", serve("text/html; charset=utf-8", a.page))
	mux.Handle("GET /app.js", serve("text/javascript; charset=utf-8", a.script))
	mux.Handle("GET /manifest.json", serve("application/manifest+json", a.manifest))
	mux.HandleFunc("GET /sw.js", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Service-Worker-Allowed", "/")
		serve("text/javascript; charset=utf-8", a.worker)(w, r)
	})
	mux.HandleFunc("GET /icons/{name}", func(w http.ResponseWriter, r *http.Request) {
		icon, ok := a.icons[r.PathValue("name")]
		if !ok {
			http.NotFound(w, r)
			return
		}
		serve("image/png", icon)(w, r)
	})
	return mux
}
