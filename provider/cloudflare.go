package provider

import (
	"context"
	"errors"
	"fmt"
	"net/netip"
	"strings"
	"time"

	"github.com/cloudflare/cloudflare-go"
	gocache "github.com/patrickmn/go-cache"
	"github.com/rs/zerolog/log"

	"github.com/wolfizen/ddnswolf/conf"
	"github.com/wolfizen/ddnswolf/utils"
)

func init() {
	register("cloudflare", newCloudflare)
}

// cloudflareProvider updates records in zones managed by Cloudflare.
//
// Authentication is by API token only; global API keys are not supported.
// The token needs Zone->DNS->Edit on the zones holding the managed names.
type cloudflareProvider struct {
	api           *cloudflare.API
	zones         *gocache.Cache
	createRecords bool
	ttl           int
	comment       string
}

func newCloudflare(name string, cfg conf.ProviderConf) (Provider, error) {
	if cfg.Token == "" {
		return nil, errors.New("cloudflare provider needs a token")
	}
	api, err := cloudflare.NewWithAPIToken(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("create cloudflare client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	res, err := api.VerifyAPIToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("verify api token: %w", err)
	}
	if res.Status != "active" {
		return nil, fmt.Errorf("api token status is %q, want active", res.Status)
	}

	ttl := cfg.TTL
	if ttl == 0 {
		ttl = 60
	}
	return &cloudflareProvider{
		api: api,
		// Cloudflare zone IDs change rarely; a long-lived cache keeps the
		// per-cycle API traffic down to the record list call.
		zones:         gocache.New(4*time.Hour, time.Hour),
		createRecords: cfg.CreateRecords,
		ttl:           ttl,
		comment:       "managed by ddnswolf",
	}, nil
}

func (p *cloudflareProvider) ReadRecord(ctx context.Context, rec Record) (netip.Addr, error) {
	zid, records, err := p.listRecords(ctx, rec)
	if err != nil {
		return netip.Addr{}, err
	}
	if len(records) == 0 {
		return netip.Addr{}, fmt.Errorf("%s in zone %s: %w", rec, zid, ErrRecordNotFound)
	}
	addr, err := netip.ParseAddr(records[0].Content)
	if err != nil {
		return netip.Addr{}, fmt.Errorf("parse content of %s: %w", rec, err)
	}
	return addr.Unmap(), nil
}

func (p *cloudflareProvider) WriteRecord(ctx context.Context, rec Record, addr netip.Addr) error {
	zid, records, err := p.listRecords(ctx, rec)
	if err != nil {
		return err
	}
	if len(records) == 0 && !p.createRecords {
		return errors.Join(utils.ErrPermanent,
			fmt.Errorf("%s is missing and create_records is disabled", rec))
	}

	// Same shape as a set reconciliation: drop stale entries, keep a matching
	// one if present, create otherwise. Writing the current address twice is
	// a no-op.
	exists := false
	for _, r := range records {
		have, err := netip.ParseAddr(r.Content)
		if err == nil && have.Unmap() == addr {
			exists = true
			continue
		}
		if err := p.api.DeleteDNSRecord(ctx, cloudflare.ZoneIdentifier(zid), r.ID); err != nil {
			return classify(fmt.Errorf("delete stale record %s: %w", r.ID, err))
		}
		log.Debug().Str("record", rec.Key()).Str("stale", r.Content).Msg("deleted stale record")
	}
	if exists {
		return nil
	}

	_, err = p.api.CreateDNSRecord(ctx, cloudflare.ZoneIdentifier(zid), cloudflare.CreateDNSRecordParams{
		Type:    rec.TypeString(),
		Name:    rec.Name,
		Content: addr.String(),
		TTL:     p.ttl,
		Comment: p.comment,
	})
	if err != nil {
		return classify(fmt.Errorf("create record %s: %w", rec, err))
	}
	return nil
}

// zoneID finds the zone holding name by walking labels upward, so the token
// does not need the list-all-zones permission.
func (p *cloudflareProvider) zoneID(ctx context.Context, name string) (string, error) {
	var lastErr error
	for _, candidate := range zoneCandidates(name) {
		if id, ok := p.zones.Get(candidate); ok {
			return id.(string), nil
		}
		id, err := p.api.ZoneIDByName(candidate)
		if err != nil {
			lastErr = err
			continue
		}
		p.zones.SetDefault(candidate, id)
		return id, nil
	}
	return "", errors.Join(utils.ErrPermanent,
		fmt.Errorf("no zone found for %s (wrong name or insufficient token permissions)", name),
		lastErr)
}

func (p *cloudflareProvider) listRecords(ctx context.Context, rec Record) (string, []cloudflare.DNSRecord, error) {
	zid, err := p.zoneID(ctx, rec.Name)
	if err != nil {
		return "", nil, err
	}
	records, _, err := p.api.ListDNSRecords(ctx, cloudflare.ZoneIdentifier(zid), cloudflare.ListDNSRecordsParams{
		Type: rec.TypeString(),
		Name: rec.Name,
	})
	if err != nil {
		return "", nil, classify(fmt.Errorf("list records for %s: %w", rec, err))
	}
	return zid, records, nil
}

// zoneCandidates lists name and its parent domains, most specific first,
// down to the registrable two-label suffix.
func zoneCandidates(name string) []string {
	name = strings.TrimSuffix(strings.ToLower(name), ".")
	var out []string
	labels := strings.Split(name, ".")
	for i := 0; i+2 <= len(labels); i++ {
		out = append(out, strings.Join(labels[i:], "."))
	}
	return out
}

// classify marks client-side API failures permanent; rate limits, server
// errors and transport failures stay retryable.
func classify(err error) error {
	var apiErr interface {
		ClientError() bool
		ClientRateLimited() bool
	}
	if errors.As(err, &apiErr) && apiErr.ClientError() && !apiErr.ClientRateLimited() {
		return errors.Join(utils.ErrPermanent, err)
	}
	return err
}
