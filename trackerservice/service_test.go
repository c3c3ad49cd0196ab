package trackerservice

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/andres-erbsen/clock"
	"github.com/stretchr/testify/require"

	"github.com/nyxworks/kestrel/internal/log"
)

func TestServiceServesAnnounceOverRawConnection(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.json")
	reg, err := NewRegistry(path, clock.NewMock())
	require.NoError(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	svc := &Service{Registry: reg, Logger: log.NewNop(), Workers: 2}
	go svc.Serve(ln)

	conn, err := net.DialTimeout("tcp", ln.Addr().String(), 2*time.Second)
	require.NoError(t, err)
	defer conn.Close()

	conn.SetDeadline(time.Now().Add(2 * time.Second))
	req := fmt.Sprintf("GET /announce?info_hash=abc&peer_id=p1&ip=1.2.3.4&port=6881&left=100 HTTP/1.1\r\nHost: %s\r\n\r\n", ln.Addr().String())
	_, err = conn.Write([]byte(req))
	require.NoError(t, err)

	resp, err := http.ReadResponse(bufio.NewReader(conn), nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
}
