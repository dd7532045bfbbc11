//go:build linux

package daemon

import (
	"time"

	"github.com/rs/zerolog/log"
	"github.com/vishvananda/netlink"
)

// watchAddrs triggers a pass when an interface address changes, so a new
// DHCP lease or PPP reconnect propagates without waiting for the next tick.
func watchAddrs(d *daemon) {
	updates := make(chan netlink.AddrUpdate)
	done := make(chan struct{})
	if err := netlink.AddrSubscribe(updates, done); err != nil {
		log.Err(err).Msg("subscribe to address updates failed")
		return
	}
	go func() {
		var debounce *time.Timer
		for u := range updates {
			log.Debug().Str("addr", u.LinkAddress.IP.String()).Bool("new", u.NewAddr).Msg("interface address change")
			// Interface flaps deliver several updates back to back; let them
			// settle before reconciling.
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(3*time.Second, func() {
				d.Trigger("interface address change")
			})
		}
	}()
}
