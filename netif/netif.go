// Package netif defines the network-interface capabilities the gateway
// controller drives. The controller only ever talks to these interfaces;
// the host-backed implementation lives in host.go and anything else
// (tests, other platforms) can slot in its own.
package netif

import (
	"net"

	"gohotspot/common"
)

// AddrInfo is a snapshot of one interface's IPv4 addressing at one poll
// instant. Nothing holds on to it.
type AddrInfo struct {
	IP      net.IP
	Gateway net.IP
	Netmask net.IPMask
}

func (a AddrInfo) IsZero() bool {
	return common.IsZeroIP(a.IP)
}

// LeaseConfig describes the address pool an interface's leasing service
// hands out, plus the resolver address advertised to clients.
type LeaseConfig struct {
	Start net.IP
	Count int
	DNS   net.IP
}

// Interface is a handle on one network interface.
type Interface interface {
	Name() string
	// AddrInfo reports the current IPv4 addressing. A zero IP means the
	// driver/DHCP subsystem has not assigned one yet.
	AddrInfo() (AddrInfo, error)
	// Resolver reports the DNS server configured for this interface.
	Resolver() (net.IP, error)
	SetAddrInfo(AddrInfo) error
	StartLeases(LeaseConfig) error
	StopLeases() error
}

// Stack hands out interface handles. AccessPoint creates the AP
// interface on first use and returns the same handle after that.
type Stack interface {
	AccessPoint() (Interface, error)
	Station() (Interface, error)
}
