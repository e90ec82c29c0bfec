package integration

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

// startIndex serves the latest plugin release v2.7 and the runtime build
// 1.20.4 #150. The returned counter tracks jar downloads.
func startIndex(t *testing.T) (*httptest.Server, *atomic.Int32) {
	t.Helper()

	var (
		srv       *httptest.Server
		downloads atomic.Int32
		pluginJar = []byte("plugin jar")
	)

	serve := func(body []byte) http.HandlerFunc {
		return func(w http.ResponseWriter, _ *http.Request) {
			downloads.Add(1)
			_, _ = w.Write(body)
		}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /repos/SkriptLang/Skript/releases/latest", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer integration-token" {
			w.WriteHeader(http.StatusUnauthorized)

			return
		}

		sum := sha256.Sum256(pluginJar)
		writeJSON(w, map[string]any{
			"tag_name": "v2.7",
			"assets": []map[string]any{
				{"name": "Skript-2.7-sources.zip", "browser_download_url": srv.URL + "/assets/sources.zip"},
				{
					"name":                 "Skript-2.7.jar",
					"browser_download_url": srv.URL + "/assets/Skript.jar",
					"digest":               "sha256:" + hex.EncodeToString(sum[:]),
				},
			},
		})
	})
	mux.HandleFunc("GET /assets/Skript.jar", serve(pluginJar))
	mux.HandleFunc("GET /v2/projects/paper", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, map[string]any{"versions": []string{"1.20.2", "1.20.4"}})
	})
	mux.HandleFunc("GET /v2/projects/paper/versions/1.20.4", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, map[string]any{"builds": []int{149, 150}})
	})
	mux.HandleFunc("GET /v2/projects/paper/versions/1.20.4/builds/150/downloads/paper-1.20.4-150.jar",
		serve([]byte("runtime jar")))

	srv = httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return srv, &downloads
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
