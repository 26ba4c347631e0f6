package netif

import (
	"errors"
	"fmt"
	"net"
	"os/exec"
	"sync"

	"github.com/jackpal/gateway"
	"github.com/miekg/dns"
	"github.com/rs/zerolog/log"

	"gohotspot/common"
	"gohotspot/dhcp"
)

var (
	ErrExternallyManaged = errors.New("station interface addressing is managed by the uplink network")
	ErrNoResolver        = errors.New("interface has no resolver configured")
)

// HostStack is the Stack implementation backed by the host's network
// stack. Station addressing is read from the kernel and resolv.conf; the
// access-point interface is addressed with ip(8) and runs its own
// leasing service.
type HostStack struct {
	stationName string
	apName      string
	resolvConf  string

	mu sync.Mutex
	ap *hostAP
}

func NewHostStack(stationName, apName string) *HostStack {
	return &HostStack{stationName: stationName, apName: apName, resolvConf: "/etc/resolv.conf"}
}

func (s *HostStack) Station() (Interface, error) {
	if _, err := net.InterfaceByName(s.stationName); err != nil {
		return nil, fmt.Errorf("station interface %s: %w", s.stationName, common.ErrNoInterfaceFound)
	}
	return &hostStation{name: s.stationName, resolvConf: s.resolvConf}, nil
}

func (s *HostStack) AccessPoint() (Interface, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ap == nil {
		s.ap = &hostAP{name: s.apName}
	}
	return s.ap, nil
}

type hostStation struct {
	name       string
	resolvConf string
}

func (h *hostStation) Name() string { return h.name }

func (h *hostStation) AddrInfo() (AddrInfo, error) {
	ip, mask, err := common.GetInterfaceAddr(h.name)
	if errors.Is(err, common.ErrNoIPv4Address) {
		// Interface exists but has no lease yet. Report a zero address
		// and let the caller decide what that means.
		return AddrInfo{}, nil
	}
	if err != nil {
		return AddrInfo{}, err
	}
	gw, err := gateway.DiscoverGateway()
	if err != nil {
		log.Debug().Err(err).Msgf("No default gateway found for %s", h.name)
		gw = nil
	}
	return AddrInfo{IP: ip, Gateway: gw, Netmask: mask}, nil
}

func (h *hostStation) Resolver() (net.IP, error) {
	cfg, err := dns.ClientConfigFromFile(h.resolvConf)
	if err != nil {
		return nil, err
	}
	for _, server := range cfg.Servers {
		if ip := net.ParseIP(server); ip != nil && ip.To4() != nil {
			return ip.To4(), nil
		}
	}
	return nil, ErrNoResolver
}

func (h *hostStation) SetAddrInfo(AddrInfo) error    { return ErrExternallyManaged }
func (h *hostStation) StartLeases(LeaseConfig) error { return ErrExternallyManaged }
func (h *hostStation) StopLeases() error             { return ErrExternallyManaged }

type hostAP struct {
	name string

	mu     sync.Mutex
	dns    net.IP
	server *dhcp.Server
}

func (h *hostAP) Name() string { return h.name }

func (h *hostAP) AddrInfo() (AddrInfo, error) {
	ip, mask, err := common.GetInterfaceAddr(h.name)
	if errors.Is(err, common.ErrNoIPv4Address) {
		return AddrInfo{}, nil
	}
	if err != nil {
		return AddrInfo{}, err
	}
	return AddrInfo{IP: ip, Gateway: ip, Netmask: mask}, nil
}

func (h *hostAP) SetAddrInfo(info AddrInfo) error {
	ones, _ := info.Netmask.Size()
	addr := fmt.Sprintf("%s/%d", info.IP, ones)
	if out, err := exec.Command("ip", "addr", "replace", addr, "dev", h.name).CombinedOutput(); err != nil {
		return fmt.Errorf("failed to address %s with %s: %s: %w", h.name, addr, out, err)
	}
	if out, err := exec.Command("ip", "link", "set", h.name, "up").CombinedOutput(); err != nil {
		return fmt.Errorf("failed to bring up %s: %s: %w", h.name, out, err)
	}
	log.Info().Msgf("Access point interface %s addressed with %s", h.name, addr)
	return nil
}

func (h *hostAP) Resolver() (net.IP, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.dns == nil {
		return nil, ErrNoResolver
	}
	return h.dns, nil
}

func (h *hostAP) StartLeases(lc LeaseConfig) error {
	info, err := h.AddrInfo()
	if err != nil {
		return err
	}
	if info.IsZero() {
		return fmt.Errorf("cannot lease on %s: %w", h.name, common.ErrNoIPv4Address)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.server != nil {
		return nil
	}
	subnet := net.IPNet{IP: info.IP.Mask(info.Netmask), Mask: info.Netmask}
	handler := dhcp.NewHandler(info.IP, lc.Start, lc.DNS, subnet, lc.Count)
	server, err := dhcp.Serve(handler)
	if err != nil {
		return err
	}
	h.server = server
	h.dns = lc.DNS
	return nil
}

func (h *hostAP) StopLeases() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.server == nil {
		return nil
	}
	h.server.Stop()
	h.server = nil
	return nil
}
