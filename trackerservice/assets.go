package trackerservice

import (
	"embed"
	"encoding/json"
	"net/http"
)

//go:embed assets/stats.html assets/styles.css assets/script.js assets/chartStyles.js
var assetFS embed.FS

type assetHandler struct{}

func newAssetHandler() *assetHandler {
	return &assetHandler{}
}

// serve responds with the embedded asset at "assets/"+name, under the given
// Content-Type, per spec.md §4.10's static-endpoint requirement for
// "correct Content-Type and Content-Length".
func (a *assetHandler) serve(name, contentType string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, err := assetFS.ReadFile("assets/" + name)
		if err != nil {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", contentType)
		w.Write(data)
	}
}

// serveData reports a live snapshot of the registry's aggregate counters,
// supplementing spec.md's silence on /data.json's payload shape with the
// GUI's evident intent (a chartable live registry summary), per
// original_source/bittorrent_client/src/gui/gui_assets.rs.
func (a *assetHandler) serveData(registry *Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, err := registry.Snapshot()
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(snap)
	}
}
