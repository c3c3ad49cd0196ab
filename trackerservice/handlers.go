package trackerservice

import (
	"encoding/hex"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"
	"github.com/jackpal/bencode-go"
	"go.uber.org/zap"
)

type announceHandler struct {
	registry *Registry
	logger   *zap.SugaredLogger
}

func (h *announceHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	left, err := strconv.ParseInt(q.Get("left"), 10, 64)
	if err != nil {
		http.Error(w, "invalid left parameter", http.StatusBadRequest)
		return
	}
	port, err := strconv.Atoi(q.Get("port"))
	if err != nil {
		http.Error(w, "invalid port parameter", http.StatusBadRequest)
		return
	}

	ip := q.Get("ip")
	if ip == "" {
		ip = clientIP(r)
	}

	params := AnnounceParams{
		InfoHash: hex.EncodeToString([]byte(q.Get("info_hash"))),
		PeerID:   q.Get("peer_id"),
		IP:       ip,
		Port:     port,
		Left:     left,
		Event:    q.Get("event"),
	}

	result, err := h.registry.Announce(params)
	if err != nil {
		h.logger.Infow("announce failed", "error", err)
		writeBencodeFailure(w, "internal error")
		return
	}

	peerDicts := make([]interface{}, 0, len(result.Peers))
	for _, p := range result.Peers {
		peerDicts = append(peerDicts, map[string]interface{}{
			"ip":      p.IP,
			"port":    p.Port,
			"peer id": p.PeerID,
		})
	}
	reply := map[string]interface{}{
		"complete":   result.Complete,
		"incomplete": result.Incomplete,
		"interval":   result.Interval,
		"peers":      peerDicts,
	}

	w.Header().Set("Content-Type", "text/plain")
	if err := bencode.Marshal(w, reply); err != nil {
		h.logger.Infow("failed to encode announce reply", "error", err)
	}
}

func writeBencodeFailure(w http.ResponseWriter, reason string) {
	w.Header().Set("Content-Type", "text/plain")
	bencode.Marshal(w, map[string]interface{}{"failure reason": reason})
}

func clientIP(r *http.Request) string {
	host := r.RemoteAddr
	if idx := lastColon(host); idx >= 0 {
		return host[:idx]
	}
	return host
}

func lastColon(s string) int {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == ':' {
			return i
		}
	}
	return -1
}

// NewRouter wires the tracker's HTTP surface, per spec.md §4.10: /announce
// plus the named static GUI endpoints, anything else 404s (chi's default
// NotFound handler already returns 404, left unconfigured here).
func NewRouter(registry *Registry, logger *zap.SugaredLogger) http.Handler {
	r := chi.NewRouter()

	ah := &announceHandler{registry: registry, logger: logger}
	r.Get("/announce", ah.ServeHTTP)

	assets := newAssetHandler()
	r.Get("/stats", assets.serve("stats.html", "text/html"))
	r.Get("/styles.css", assets.serve("styles.css", "text/css"))
	r.Get("/script.js", assets.serve("script.js", "application/javascript"))
	r.Get("/chartStyles.js", assets.serve("chartStyles.js", "application/javascript"))
	r.Get("/data.json", assets.serveData(registry))

	return r
}
