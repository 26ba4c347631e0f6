/*
Package gateway sequences the hotspot lifecycle: it brings the access
point up over a live uplink, binds NAT to the access point's address and
runs the DNS relay, then tears the whole arrangement down again on
request. The radio, interface stack and translation engine are external
capabilities; this package only orders the calls and owns the shared
state.
*/
package gateway

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog/log"

	"gohotspot/nat"
	"gohotspot/netif"
	"gohotspot/relay"
	"gohotspot/wifi"
)

var (
	// ErrNotConnected - the uplink has no address, so there is no
	// internet to share. Enable checks this up front and mutates nothing.
	ErrNotConnected = errors.New("uplink is not connected")

	// FallbackResolver answers client queries when the uplink reports no
	// resolver of its own.
	FallbackResolver = net.IPv4(8, 8, 8, 8).To4()

	apAddr     = net.IPv4(192, 168, 4, 1).To4()
	apNetmask  = net.CIDRMask(24, 32)
	leaseStart = net.IPv4(192, 168, 4, 2).To4()
)

const (
	defaultSSID       = "gohotspot"
	defaultChannel    = 1
	defaultMaxClients = 4
	defaultLeaseCount = 8

	// Passwords below the WPA2 minimum produce an open network.
	minPasswordLen = 8

	// The driver needs a moment after the combined-mode switch before
	// the AP side starts answering.
	defaultModeSettle = 500 * time.Millisecond

	// AP address convergence budget: 20 polls, 100ms apart.
	defaultPollAttempts = 20
	defaultPollInterval = 100 * time.Millisecond
)

// Config carries the hotspot defaults. Zero values fall back to the
// package defaults above.
type Config struct {
	SSID       string
	Password   string
	Channel    int
	MaxClients int
	LeaseCount int
}

func (c Config) withDefaults() Config {
	if c.SSID == "" {
		c.SSID = defaultSSID
	}
	if c.Channel == 0 {
		c.Channel = defaultChannel
	}
	if c.MaxClients == 0 {
		c.MaxClients = defaultMaxClients
	}
	if c.LeaseCount == 0 {
		c.LeaseCount = defaultLeaseCount
	}
	return c
}

// Gateway owns the hotspot state. Enable and Disable run on the caller's
// goroutine and are serialized by a mutex; the enabled flag alone crosses
// to other goroutines, so it is atomic.
type Gateway struct {
	cfg    Config
	stack  netif.Stack
	radio  wifi.Radio
	binder *nat.Binder
	clk    clock.Clock

	// Swappable for tests.
	newRelay     func(relay.Config, func(error)) (*relay.Relay, error)
	modeSettle   time.Duration
	pollAttempts int
	pollInterval time.Duration

	mu      sync.Mutex
	enabled atomic.Bool
	ap      netif.Interface // created on first enable, kept for the process lifetime
	relay   *relay.Relay
}

func New(cfg Config, stack netif.Stack, radio wifi.Radio, translator nat.Translator, clk clock.Clock) *Gateway {
	return &Gateway{
		cfg:          cfg.withDefaults(),
		stack:        stack,
		radio:        radio,
		binder:       nat.NewBinder(translator, clk),
		clk:          clk,
		newRelay:     relay.Start,
		modeSettle:   defaultModeSettle,
		pollAttempts: defaultPollAttempts,
		pollInterval: defaultPollInterval,
	}
}

// Enable brings the hotspot up. Empty ssid or password fall back to the
// configured defaults. If the DNS relay cannot bind its socket the
// hotspot still comes up NAT-only and the bind error is returned so the
// caller knows clients need a manually configured resolver.
func (g *Gateway) Enable(ssid, password string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.enabled.Load() {
		log.Info().Msg("Hotspot already enabled")
		return nil
	}

	// The uplink is a precondition, not something this controller can
	// cause. One check, no retries.
	sta, err := g.stack.Station()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNotConnected, err)
	}
	staInfo, err := sta.AddrInfo()
	if err != nil || staInfo.IsZero() {
		return ErrNotConnected
	}

	if err := g.ensureAPInterface(sta); err != nil {
		return err
	}

	if err := g.radio.SetMode(wifi.ModeStationAP); err != nil {
		return fmt.Errorf("failed to switch to combined mode: %w", err)
	}
	g.clk.Sleep(g.modeSettle)

	if err := g.radio.ConfigureAP(g.apSettings(ssid, password)); err != nil {
		return fmt.Errorf("failed to configure access point: %w", err)
	}

	// The AP address is assigned outside our control, poll for it. On
	// timeout the radio is left in combined mode with no NAT or relay;
	// the caller may retry, or Disable to revert the mode.
	apIP, err := netif.ResolveAddress(g.clk, g.ap, g.pollAttempts, g.pollInterval)
	if err != nil {
		return fmt.Errorf("access point interface: %w", err)
	}

	upstream := g.upstreamResolver(sta)

	g.binder.Bind(apIP)
	g.enabled.Store(true)

	rl, err := g.newRelay(relay.Config{Upstream: upstream, ListenPort: relay.DNSPort}, g.onRelayExit)
	if err != nil {
		log.Error().Err(err).Msg("DNS relay failed to start, hotspot is up NAT-only")
		return err
	}
	g.relay = rl

	log.Info().Msgf("Hotspot enabled on %s, relaying DNS to %s", apIP, upstream)
	return nil
}

// Disable tears the hotspot down: relay first, then NAT, then the radio
// mode. The uplink connection is left untouched, and the AP interface
// handle survives for the next Enable.
func (g *Gateway) Disable() {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.enabled.Load() && g.relay == nil && g.binder.Bound() == nil {
		log.Info().Msg("Hotspot already disabled")
		return
	}

	// Flag first, so anything watching it sees the teardown coming.
	g.enabled.Store(false)

	if g.relay != nil {
		g.relay.Stop()
		g.relay = nil
	}

	g.binder.Unbind()

	if err := g.radio.SetMode(wifi.ModeStation); err != nil {
		log.Error().Err(err).Msg("Failed to revert radio to station mode")
	}

	log.Info().Msg("Hotspot disabled")
}

// Enabled reports whether the hotspot is up. A relay worker that died on
// a socket error clears this, so a dead hotspot does not report healthy.
func (g *Gateway) Enabled() bool {
	return g.enabled.Load()
}

// ensureAPInterface creates and addresses the AP interface once per
// process. Later enables reuse the handle, avoiding interface churn;
// disable never destroys it.
func (g *Gateway) ensureAPInterface(sta netif.Interface) error {
	if g.ap != nil {
		return nil
	}
	ap, err := g.stack.AccessPoint()
	if err != nil {
		return fmt.Errorf("failed to create access point interface: %w", err)
	}

	// Reconfigure from a clean slate: leases stopped, static address
	// applied, leases started advertising the resolver clients will use.
	if err := ap.StopLeases(); err != nil {
		log.Debug().Err(err).Msg("Lease service was not running")
	}
	if err := ap.SetAddrInfo(netif.AddrInfo{IP: apAddr, Gateway: apAddr, Netmask: apNetmask}); err != nil {
		return fmt.Errorf("failed to address access point interface: %w", err)
	}
	if err := ap.StartLeases(netif.LeaseConfig{Start: leaseStart, Count: g.cfg.LeaseCount, DNS: g.upstreamResolver(sta)}); err != nil {
		return fmt.Errorf("failed to start lease service: %w", err)
	}

	g.ap = ap
	return nil
}

// apSettings applies the SSID/password fallback and authentication
// rules: a usable password (8+ chars) means WPA2-PSK, anything shorter
// means an open network.
func (g *Gateway) apSettings(ssid, password string) wifi.APSettings {
	if ssid == "" {
		ssid = g.cfg.SSID
	}
	if password == "" {
		password = g.cfg.Password
	}

	settings := wifi.APSettings{
		SSID:       ssid,
		Auth:       wifi.AuthOpen,
		Channel:    g.cfg.Channel,
		MaxClients: g.cfg.MaxClients,
	}
	if len(password) >= minPasswordLen {
		settings.Auth = wifi.AuthWPA2PSK
		settings.Password = password
	} else if password != "" {
		log.Warn().Msgf("Password shorter than %d characters, creating an open network", minPasswordLen)
	}
	return settings
}

// upstreamResolver prefers the uplink's own resolver and falls back to a
// fixed public one when the uplink reports none.
func (g *Gateway) upstreamResolver(sta netif.Interface) net.IP {
	ip, err := sta.Resolver()
	if err != nil || ip == nil || ip.IsUnspecified() || ip.To4() == nil {
		log.Info().Msgf("Uplink has no resolver, using fallback %s", FallbackResolver)
		return FallbackResolver
	}
	return ip.To4()
}

// onRelayExit runs on the relay's goroutine when its worker dies on a
// fatal receive error. It only flips the flag - teardown of NAT and the
// radio stays with the control path, via Disable.
func (g *Gateway) onRelayExit(err error) {
	log.Error().Err(err).Msg("DNS relay worker died, marking hotspot disabled")
	g.enabled.Store(false)
}
