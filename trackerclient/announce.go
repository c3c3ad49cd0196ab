package trackerclient

import (
	"encoding/binary"
	"errors"
	"fmt"
	"net"

	"github.com/nyxworks/kestrel/core"
)

// Event names the announce lifecycle event, per spec.md §4.7/§4.8.
type Event string

const (
	EventStarted   Event = "started"
	EventCompleted Event = "completed"
	EventStopped   Event = "stopped"
)

// Request describes one announce's parameters.
type Request struct {
	InfoHash   core.InfoHash
	PeerID     core.PeerID
	Port       int
	Uploaded   int64
	Downloaded int64
	Left       int64
	Event      Event
}

// Response is the parsed reply from a tracker announce, per spec.md §4.7.
type Response struct {
	Complete   int
	Incomplete int
	Interval   int
	Peers      []core.PeerInfo
}

// Sentinel failure modes, per spec.md §4.7.
var (
	ErrCannotConnectToTracker = errors.New("trackerclient: cannot connect to tracker")
	ErrCannotGetResponse      = errors.New("trackerclient: cannot get response")
	ErrInvalidTrackerResponse = errors.New("trackerclient: invalid tracker response")
)

// buildRequestLine renders the GET request line and headers for req against
// host/path, per spec.md §4.7's exact wire shape.
func buildRequestLine(path, host string, req Request) string {
	query := fmt.Sprintf(
		"info_hash=%s&peer_id=%s&port=%d&uploaded=%d&downloaded=%d&left=%d&event=%s",
		urlEncode(req.InfoHash.Bytes()),
		urlEncode(req.PeerID.Bytes()),
		req.Port,
		req.Uploaded,
		req.Downloaded,
		req.Left,
		string(req.Event),
	)
	return fmt.Sprintf("GET %s?%s HTTP/1.1\r\nHost: %s\r\n\r\n", path, query, host)
}

// parsePeers interprets the decoded "peers" value in either list form (a
// slice of dicts with ip/port/peer id keys) or compact form (a single
// 6-bytes-per-peer string), per spec.md §4.7.
func parsePeers(v interface{}) ([]core.PeerInfo, error) {
	switch t := v.(type) {
	case string:
		return parseCompactPeers([]byte(t))
	case []interface{}:
		return parseListPeers(t)
	case nil:
		return nil, nil
	default:
		return nil, fmt.Errorf("%w: unsupported peers value type %T", ErrInvalidTrackerResponse, v)
	}
}

func parseCompactPeers(b []byte) ([]core.PeerInfo, error) {
	if len(b)%6 != 0 {
		return nil, fmt.Errorf("%w: compact peers length %d not a multiple of 6", ErrInvalidTrackerResponse, len(b))
	}
	peers := make([]core.PeerInfo, 0, len(b)/6)
	for i := 0; i < len(b); i += 6 {
		ip := net.IPv4(b[i], b[i+1], b[i+2], b[i+3]).String()
		port := int(binary.BigEndian.Uint16(b[i+4 : i+6]))
		peers = append(peers, core.PeerInfo{IP: ip, Port: port})
	}
	return peers, nil
}

func parseListPeers(list []interface{}) ([]core.PeerInfo, error) {
	peers := make([]core.PeerInfo, 0, len(list))
	for _, el := range list {
		d, ok := el.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("%w: peer list element is not a dict", ErrInvalidTrackerResponse)
		}
		ip, ok := d["ip"].(string)
		if !ok {
			return nil, fmt.Errorf("%w: peer dict missing ip", ErrInvalidTrackerResponse)
		}
		portVal, ok := d["port"].(int64)
		if !ok {
			return nil, fmt.Errorf("%w: peer dict missing port", ErrInvalidTrackerResponse)
		}
		p := core.PeerInfo{IP: ip, Port: int(portVal)}
		if idStr, ok := d["peer id"].(string); ok {
			if pid, err := core.PeerIDFromBytes([]byte(idStr)); err == nil {
				p.PeerID = pid
			}
		}
		peers = append(peers, p)
	}
	return peers, nil
}

func parseResponse(dict map[string]interface{}) (*Response, error) {
	if reason, ok := dict["failure reason"].(string); ok {
		return nil, fmt.Errorf("%w: failure reason: %s", ErrInvalidTrackerResponse, reason)
	}

	resp := &Response{}
	if v, ok := dict["complete"].(int64); ok {
		resp.Complete = int(v)
	}
	if v, ok := dict["incomplete"].(int64); ok {
		resp.Incomplete = int(v)
	}
	if v, ok := dict["interval"].(int64); ok {
		resp.Interval = int(v)
	}
	peers, err := parsePeers(dict["peers"])
	if err != nil {
		return nil, err
	}
	resp.Peers = peers
	return resp, nil
}
