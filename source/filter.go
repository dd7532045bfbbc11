package source

import (
	"fmt"
	"net/netip"
	"sort"
	"strconv"
	"strings"
)

// Filter narrows a candidate list. Filters run in configuration order after
// family selection; the first surviving address wins.
type Filter func([]netip.Addr) []netip.Addr

func parseFilters(names []string) ([]Filter, error) {
	var fs []Filter
	for _, n := range names {
		f, err := parseFilter(n)
		if err != nil {
			return nil, err
		}
		fs = append(fs, f)
	}
	return fs, nil
}

func parseFilter(name string) (Filter, error) {
	switch {
	case name == "global":
		return keepGlobal, nil
	case name == "sorted":
		return sortBinary, nil
	case name == "first":
		return nth(0), nil
	case name == "last":
		return nth(-1), nil
	case strings.HasPrefix(name, "nth:"):
		i, err := strconv.Atoi(strings.TrimPrefix(name, "nth:"))
		if err != nil {
			return nil, fmt.Errorf("filter %q: bad index: %w", name, err)
		}
		return nth(i), nil
	default:
		return nil, fmt.Errorf("unknown filter %q", name)
	}
}

// keepGlobal drops addresses that cannot appear in public DNS: loopback,
// link-local, multicast, private ranges and the unspecified address.
func keepGlobal(addrs []netip.Addr) []netip.Addr {
	var out []netip.Addr
	for _, a := range addrs {
		if a.IsLoopback() || a.IsLinkLocalUnicast() || a.IsLinkLocalMulticast() ||
			a.IsMulticast() || a.IsPrivate() || a.IsUnspecified() {
			continue
		}
		out = append(out, a)
	}
	return out
}

// sortBinary orders addresses by binary value, IPv4 before IPv6.
func sortBinary(addrs []netip.Addr) []netip.Addr {
	out := append([]netip.Addr(nil), addrs...)
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Is4() != b.Is4() {
			return a.Is4()
		}
		return a.Less(b)
	})
	return out
}

// nth keeps only the address at index i; negative indices count from the end.
func nth(i int) Filter {
	return func(addrs []netip.Addr) []netip.Addr {
		idx := i
		if idx < 0 {
			idx += len(addrs)
		}
		if idx < 0 || idx >= len(addrs) {
			return nil
		}
		return addrs[idx : idx+1]
	}
}
