// Package seederserver implements the inbound seeder-connection listener
// described in spec.md §4.6/§4.9 ("the seeder server runs in its own
// worker for the lifetime of the process"), with a bounded accept-loop
// worker pool generalized from spec.md §4.10's tracker-service "bounded
// worker pool (size 4)" idiom, grounded on uber-kraken's Scheduler pattern
// of bounding every goroutine it spawns.
package seederserver

import (
	"net"

	"github.com/uber-go/tally"
	"go.uber.org/zap"

	"github.com/nyxworks/kestrel/core"
	"github.com/nyxworks/kestrel/peer"
)

// Server accepts inbound peer connections and dispatches each to a
// peer.Seeder session, bounded by a fixed-size worker pool.
type Server struct {
	LocalPeerID core.PeerID
	Torrents    peer.Torrents
	Storage     peer.Storage
	Stats       tally.Scope
	Logger      *zap.SugaredLogger
	Workers     int
}

// ListenAndServe listens on addr and serves inbound connections until the
// listener is closed or Serve returns an error.
func (s *Server) ListenAndServe(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	defer ln.Close()
	return s.Serve(ln)
}

// Serve accepts connections from ln and dispatches them across a bounded
// pool of Workers goroutines. Blocks until Accept returns an error (e.g.
// the listener was closed).
func (s *Server) Serve(ln net.Listener) error {
	workers := s.Workers
	if workers <= 0 {
		workers = 8
	}
	conns := make(chan net.Conn, workers)

	for i := 0; i < workers; i++ {
		go func() {
			for nc := range conns {
				(&peer.Seeder{
					LocalPeerID: s.LocalPeerID,
					Torrents:    s.Torrents,
					Storage:     s.Storage,
					Stats:       s.Stats,
					Logger:      s.Logger,
				}).Run(nc)
			}
		}()
	}
	defer close(conns)

	for {
		nc, err := ln.Accept()
		if err != nil {
			return err
		}
		conns <- nc
	}
}
