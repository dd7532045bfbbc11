package dns

import (
	"context"
	"net"
	"net/netip"
	"testing"

	"github.com/miekg/dns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfizen/ddnswolf/provider"
)

func serveDNS(t *testing.T, handler dns.HandlerFunc) string {
	t.Helper()
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	srv := &dns.Server{PacketConn: pc, Handler: handler}
	go srv.ActivateAndServe()
	t.Cleanup(func() { _ = srv.Shutdown() })
	return pc.LocalAddr().String()
}

func TestProberReadsARecord(t *testing.T) {
	server := serveDNS(t, func(w dns.ResponseWriter, req *dns.Msg) {
		rsp := new(dns.Msg)
		rsp.SetReply(req)
		rsp.Answer = append(rsp.Answer, &dns.A{
			Hdr: dns.RR_Header{Name: req.Question[0].Name, Rrtype: dns.TypeA, Class: dns.ClassINET, Ttl: 60},
			A:   net.ParseIP("203.0.113.5"),
		})
		_ = w.WriteMsg(rsp)
	})

	p, err := NewProber([]string{server})
	require.NoError(t, err)

	addr, err := p.ReadRecord(context.Background(), provider.Record{Name: "home.example.com", Type: dns.TypeA})
	require.NoError(t, err)
	assert.Equal(t, netip.MustParseAddr("203.0.113.5"), addr)
}

func TestProberNXDomain(t *testing.T) {
	server := serveDNS(t, func(w dns.ResponseWriter, req *dns.Msg) {
		rsp := new(dns.Msg)
		rsp.SetRcode(req, dns.RcodeNameError)
		_ = w.WriteMsg(rsp)
	})

	p, err := NewProber([]string{server})
	require.NoError(t, err)

	_, err = p.ReadRecord(context.Background(), provider.Record{Name: "gone.example.com", Type: dns.TypeA})
	require.ErrorIs(t, err, provider.ErrRecordNotFound)
}

func TestProberEmptyAnswerIsNotFound(t *testing.T) {
	server := serveDNS(t, func(w dns.ResponseWriter, req *dns.Msg) {
		rsp := new(dns.Msg)
		rsp.SetReply(req)
		_ = w.WriteMsg(rsp)
	})

	p, err := NewProber([]string{server})
	require.NoError(t, err)

	_, err = p.ReadRecord(context.Background(), provider.Record{Name: "empty.example.com", Type: dns.TypeAAAA})
	require.ErrorIs(t, err, provider.ErrRecordNotFound)
}

func TestNewProberNormalizesBareAddrs(t *testing.T) {
	p, err := NewProber([]string{"1.1.1.1", "8.8.8.8:5353"})
	require.NoError(t, err)
	assert.Equal(t, []string{"1.1.1.1:53", "8.8.8.8:5353"}, p.servers)

	_, err = NewProber(nil)
	require.Error(t, err)

	_, err = NewProber([]string{"not-a-resolver"})
	require.Error(t, err)
}
