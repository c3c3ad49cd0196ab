package driver

import (
	"testing"

	"github.com/nyxworks/kestrel/bitfield"
	"github.com/nyxworks/kestrel/core"
)

func TestRegistryLookup(t *testing.T) {
	ih, _ := core.NewInfoHashFromHex("000000000000000000000000000000000000000a")
	ti, _ := core.NewTorrentInfo("a", "http://t/a", ih, 1000, 0, nil)
	r := NewRegistry([]Job{{Torrent: ti, Completion: bitfield.New(0)}})

	info, bf, ok := r.Lookup(ih)
	if !ok || info != ti || bf == nil {
		t.Fatalf("expected lookup hit, got ok=%v info=%v bf=%v", ok, info, bf)
	}

	other, _ := core.NewInfoHashFromHex("000000000000000000000000000000000000000b")
	if _, _, ok := r.Lookup(other); ok {
		t.Fatalf("expected lookup miss for unknown info hash")
	}
}
