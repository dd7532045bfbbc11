package source

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/netip"
	"net/url"
	"strings"
	"sync"

	"github.com/wolfizen/ddnswolf/conf"
)

func init() {
	register("web", func(name string, cfg conf.SourceConf) (lookuper, error) {
		if len(cfg.URLs) == 0 {
			return nil, errors.New("web source needs at least one url")
		}
		var urls []*url.URL
		for _, u := range cfg.URLs {
			pu, err := url.Parse(u)
			if err != nil {
				return nil, fmt.Errorf("parse url %q: %w", u, err)
			}
			urls = append(urls, pu)
		}
		return &webSource{urls: urls}, nil
	})
}

// webSource asks external "what is my IP" services. A conforming service
// returns 200 with the address on the first line of the body.
//
// With a single URL the answer is returned as-is. With more, up to three
// services are queried concurrently and the first two non-error answers must
// agree before the address is trusted; DNS control is too sensitive to take a
// single service's word for it when corroboration is available.
type webSource struct {
	urls       []*url.URL
	httpClient *http.Client
}

func (s *webSource) lookup(ctx context.Context) ([]netip.Addr, error) {
	if len(s.urls) == 1 {
		addr, err := s.fetch(ctx, s.urls[0])
		if err != nil {
			return nil, err
		}
		return []netip.Addr{addr}, nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	type answer struct {
		addr netip.Addr
		err  error
	}
	useCount := 3
	if len(s.urls) < useCount {
		useCount = len(s.urls)
	}
	answers := make(chan answer, useCount)
	var wg sync.WaitGroup
	for i := 0; i < useCount; i++ {
		u := s.urls[i]
		wg.Add(1)
		go func() {
			defer wg.Done()
			var a answer
			a.addr, a.err = s.fetch(ctx, u)
			answers <- a
		}()
	}
	go func() { wg.Wait(); close(answers) }()

	var (
		errs  []error
		seen  netip.Addr
		valid int
	)
	for a := range answers {
		if a.err != nil {
			errs = append(errs, a.err)
			continue
		}
		valid++
		if valid == 1 {
			seen = a.addr
			continue
		}
		if seen == a.addr {
			return []netip.Addr{seen}, nil
		}
		return nil, fmt.Errorf("ip services disagree: %s vs %s", seen, a.addr)
	}
	return nil, fmt.Errorf("not enough ip services answered: %w", errors.Join(errs...))
}

func (s *webSource) fetch(ctx context.Context, u *url.URL) (netip.Addr, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return netip.Addr{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Cache-Control", "no-cache")

	client := s.httpClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return netip.Addr{}, fmt.Errorf("request %s: %w", u.Host, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return netip.Addr{}, fmt.Errorf("%s returned %s", u.Host, resp.Status)
	}
	line, _ := bufio.NewReader(resp.Body).ReadString('\n')
	addr, err := netip.ParseAddr(strings.TrimSpace(line))
	if err != nil {
		return netip.Addr{}, fmt.Errorf("parse response from %s: %w", u.Host, err)
	}
	return addr, nil
}
