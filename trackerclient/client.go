package trackerclient

import (
	"bufio"
	"bytes"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/url"
	"time"

	"github.com/jackpal/bencode-go"
)

// dialTimeout bounds the raw socket connect, per spec.md §4.7's transport
// section.
const dialTimeout = 10 * time.Second

// Announce sends req to the tracker named by announceURL and returns its
// parsed reply. Transport is plain TCP for http:// and TLS for https://, at
// the URL's explicit port, or port 443 for either scheme when the URL names
// none.
func Announce(announceURL string, req Request) (*Response, error) {
	u, err := url.Parse(announceURL)
	if err != nil {
		return nil, fmt.Errorf("%w: parse announce url: %v", ErrInvalidTrackerResponse, err)
	}

	conn, host, err := dial(u)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCannotConnectToTracker, err)
	}
	defer conn.Close()

	path := u.Path
	if path == "" {
		path = "/"
	}
	if u.RawQuery != "" {
		path = path + "?" + u.RawQuery
	}

	if err := conn.SetDeadline(time.Now().Add(dialTimeout)); err != nil {
		return nil, fmt.Errorf("%w: set deadline: %v", ErrCannotConnectToTracker, err)
	}
	if _, err := io.WriteString(conn, buildRequestLine(path, host, req)); err != nil {
		return nil, fmt.Errorf("%w: write request: %v", ErrCannotGetResponse, err)
	}

	raw, err := io.ReadAll(conn)
	if err != nil && !isTimeoutAfterData(err, raw) {
		return nil, fmt.Errorf("%w: read response: %v", ErrCannotGetResponse, err)
	}

	body, err := splitHeaders(raw)
	if err != nil {
		return nil, err
	}

	decoded, err := bencode.Decode(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: bencode decode: %v", ErrInvalidTrackerResponse, err)
	}
	dict, ok := decoded.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("%w: top-level reply is not a dict", ErrInvalidTrackerResponse)
	}
	return parseResponse(dict)
}

func isTimeoutAfterData(err error, data []byte) bool {
	ne, ok := err.(net.Error)
	return ok && ne.Timeout() && len(data) > 0
}

func dial(u *url.URL) (net.Conn, string, error) {
	host := u.Hostname()
	port := u.Port()
	switch u.Scheme {
	case "https":
		if port == "" {
			port = "443"
		}
		addr := net.JoinHostPort(host, port)
		conn, err := tls.DialWithDialer(&net.Dialer{Timeout: dialTimeout}, "tcp", addr, nil)
		return conn, host, err
	case "http", "":
		if port == "" {
			port = "443"
		}
		addr := net.JoinHostPort(host, port)
		conn, err := net.DialTimeout("tcp", addr, dialTimeout)
		return conn, host, err
	default:
		return nil, "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
}

// splitHeaders locates the first blank line and returns everything after it.
func splitHeaders(raw []byte) ([]byte, error) {
	r := bufio.NewReader(bytes.NewReader(raw))
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return nil, fmt.Errorf("%w: no header terminator found", ErrCannotGetResponse)
		}
		if line == "\r\n" || line == "\n" {
			break
		}
	}
	body, _ := io.ReadAll(r)
	return body, nil
}
