package pipeline

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

const (
	testTag        = "v2.7"
	testVersion    = "1.20.4"
	testBuild      = 150
	testRuntimeJar = "paper-1.20.4-150.jar"
	testPluginJar  = "Skript-v2.7.jar"
)

// fakeIndex serves the plugin releases and the runtime builds from one server.
type fakeIndex struct {
	srv *httptest.Server

	pluginJar  []byte
	runtimeJar []byte
	// digest overrides the advertised plugin digest when set.
	digest string
	// releaseStatus overrides the latest release response status when set.
	releaseStatus int

	downloads atomic.Int32
}

func newFakeIndex(t *testing.T) *fakeIndex {
	t.Helper()

	f := &fakeIndex{
		pluginJar:  []byte("plugin jar contents"),
		runtimeJar: []byte("runtime jar contents"),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /repos/SkriptLang/Skript/releases/latest", f.latestRelease)
	mux.HandleFunc("GET /assets/Skript.jar", f.serve(func() []byte { return f.pluginJar }))
	mux.HandleFunc("GET /v2/projects/paper", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, map[string]any{"versions": []string{"1.19.4", "1.20.2", testVersion}})
	})
	mux.HandleFunc("GET /v2/projects/paper/versions/1.20.4", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, map[string]any{"builds": []int{148, 149, testBuild}})
	})
	mux.HandleFunc("GET /v2/projects/paper/versions/1.20.4/builds/150/downloads/"+testRuntimeJar,
		f.serve(func() []byte { return f.runtimeJar }))

	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)

	return f
}

func (f *fakeIndex) latestRelease(w http.ResponseWriter, _ *http.Request) {
	if f.releaseStatus != 0 {
		w.WriteHeader(f.releaseStatus)

		return
	}

	digest := f.digest
	if digest == "" {
		sum := sha256.Sum256(f.pluginJar)
		digest = "sha256:" + hex.EncodeToString(sum[:])
	}

	writeJSON(w, map[string]any{
		"tag_name": testTag,
		"html_url": f.srv.URL + "/releases/" + testTag,
		"assets": []map[string]any{{
			"name":                 "Skript-2.7.jar",
			"browser_download_url": f.srv.URL + "/assets/Skript.jar",
			"digest":               digest,
		}},
	})
}

func (f *fakeIndex) serve(body func() []byte) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		f.downloads.Add(1)
		_, _ = w.Write(body())
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
