package source

import (
	"context"
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfizen/ddnswolf/conf"
)

func addrs(ss ...string) []netip.Addr {
	var out []netip.Addr
	for _, s := range ss {
		out = append(out, netip.MustParseAddr(s))
	}
	return out
}

func TestKeepGlobal(t *testing.T) {
	in := addrs("127.0.0.1", "192.168.1.10", "fe80::1", "203.0.113.5", "2001:db8::1")
	assert.Equal(t, addrs("203.0.113.5", "2001:db8::1"), keepGlobal(in))
}

func TestSortBinary(t *testing.T) {
	in := addrs("2001:db8::1", "203.0.113.5", "10.0.0.1")
	assert.Equal(t, addrs("10.0.0.1", "203.0.113.5", "2001:db8::1"), sortBinary(in))
}

func TestNth(t *testing.T) {
	in := addrs("10.0.0.1", "10.0.0.2", "10.0.0.3")
	assert.Equal(t, addrs("10.0.0.1"), nth(0)(in))
	assert.Equal(t, addrs("10.0.0.3"), nth(-1)(in))
	assert.Equal(t, addrs("10.0.0.2"), nth(1)(in))
	assert.Nil(t, nth(5)(in))
	assert.Nil(t, nth(-4)(in))
}

func TestParseFilterUnknown(t *testing.T) {
	_, err := parseFilter("bogus")
	require.Error(t, err)
}

func TestStaticSourceWithFilters(t *testing.T) {
	s, err := New("fixed", conf.SourceConf{Type: "static", Address: "2001:db8::7"}, 0)
	require.NoError(t, err)

	addr, err := s.Resolve(context.Background(), IPv6)
	require.NoError(t, err)
	assert.Equal(t, netip.MustParseAddr("2001:db8::7"), addr)

	_, err = s.Resolve(context.Background(), IPv4)
	require.ErrorIs(t, err, ErrNoAddress)
}

func TestStaticSourceBadAddress(t *testing.T) {
	_, err := New("fixed", conf.SourceConf{Type: "static", Address: "nope"}, 0)
	require.Error(t, err)
}

func TestUnknownSourceType(t *testing.T) {
	_, err := New("x", conf.SourceConf{Type: "carrier-pigeon"}, 0)
	require.Error(t, err)
}
