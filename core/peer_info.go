package core

import (
	"net"
	"strconv"
)

// PeerInfo is the peer representation exchanged between the tracker client
// and the tracker service, grounded on uber-kraken/core/announce.go's
// PeerInfo shape but trimmed to spec.md §6's announce payload.
type PeerInfo struct {
	PeerID PeerID
	IP     string
	Port   int
}

// Endpoint formats the peer's dial address.
func (p PeerInfo) Endpoint() string {
	return net.JoinHostPort(p.IP, strconv.Itoa(p.Port))
}
