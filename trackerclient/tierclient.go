package trackerclient

import "go.uber.org/zap"

// TierClient wraps a list of announce URLs and returns the first successful
// reply, logging each failure along the way. Grounded on
// lvbealr-BitTorrent/torrent/tracker.go's SendTrackerResponse tolerance of
// partial tracker failure, generalized to BEP-12-style announce tiers.
type TierClient struct {
	URLs   []string
	Logger *zap.SugaredLogger
}

// Announce tries each URL in order, returning the first successful reply.
// If every URL fails, it returns the last error observed.
func (t *TierClient) Announce(req Request) (*Response, error) {
	var lastErr error
	for _, u := range t.URLs {
		resp, err := Announce(u, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if t.Logger != nil {
			t.Logger.Infow("tracker announce failed, trying next tier", "url", u, "error", err)
		}
	}
	return nil, lastErr
}
