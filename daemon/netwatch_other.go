//go:build !linux

package daemon

// Address-change subscription needs netlink; elsewhere the interval timer is
// the only trigger.
func watchAddrs(d *daemon) {}
