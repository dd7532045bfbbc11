package source

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfizen/ddnswolf/conf"
)

func ipServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func webSourceFor(t *testing.T, urls ...string) Source {
	t.Helper()
	s, err := New("test", conf.SourceConf{Type: "web", URLs: urls}, 0)
	require.NoError(t, err)
	return s
}

func TestWebSingleService(t *testing.T) {
	srv := ipServer(t, "203.0.113.5\n")
	s := webSourceFor(t, srv.URL)

	addr, err := s.Resolve(context.Background(), IPv4)
	require.NoError(t, err)
	assert.Equal(t, netip.MustParseAddr("203.0.113.5"), addr)
}

func TestWebQuorumAgrees(t *testing.T) {
	a := ipServer(t, "203.0.113.5")
	b := ipServer(t, "203.0.113.5")
	s := webSourceFor(t, a.URL, b.URL)

	addr, err := s.Resolve(context.Background(), IPv4)
	require.NoError(t, err)
	assert.Equal(t, netip.MustParseAddr("203.0.113.5"), addr)
}

func TestWebQuorumDisagrees(t *testing.T) {
	a := ipServer(t, "203.0.113.5")
	b := ipServer(t, "203.0.113.6")
	c := ipServer(t, "203.0.113.7")
	s := webSourceFor(t, a.URL, b.URL, c.URL)

	_, err := s.Resolve(context.Background(), IPv4)
	require.Error(t, err)
}

func TestWebOneFailureTolerated(t *testing.T) {
	a := ipServer(t, "203.0.113.5")
	bad := ipServer(t, "not an ip")
	b := ipServer(t, "203.0.113.5")
	s := webSourceFor(t, a.URL, bad.URL, b.URL)

	addr, err := s.Resolve(context.Background(), IPv4)
	require.NoError(t, err)
	assert.Equal(t, netip.MustParseAddr("203.0.113.5"), addr)
}

func TestWebBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)
	s := webSourceFor(t, srv.URL)

	_, err := s.Resolve(context.Background(), IPv4)
	require.Error(t, err)
}

func TestWebWrongFamilyFiltered(t *testing.T) {
	srv := ipServer(t, "203.0.113.5")
	s := webSourceFor(t, srv.URL)

	_, err := s.Resolve(context.Background(), IPv6)
	require.ErrorIs(t, err, ErrNoAddress)
}
