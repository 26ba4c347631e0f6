package nat

import (
	"fmt"
	"net"
	"os/exec"
	"strings"

	"github.com/rs/zerolog/log"
)

// IPTables implements Translator with a MASQUERADE rule on the bound
// address's subnet, plus the ip_forward sysctl. The Translator contract
// has no error channel, so failures are logged and swallowed here.
type IPTables struct {
	mask       net.IPMask
	forwardSet bool // whether ip_forward was already on before us
}

func NewIPTables(mask net.IPMask) *IPTables {
	return &IPTables{mask: mask}
}

func (t *IPTables) SetTranslation(addr net.IP, enabled bool) {
	if enabled {
		if err := t.enableForwarding(); err != nil {
			log.Error().Err(err).Msg("Failed to enable IP forwarding")
			return
		}
		if err := t.rule("--append", addr); err != nil {
			log.Error().Err(err).Msgf("Failed to add masquerade rule for %s", addr)
		}
		return
	}
	if err := t.rule("--delete", addr); err != nil {
		log.Error().Err(err).Msgf("Failed to remove masquerade rule for %s", addr)
	}
	t.disableForwarding()
}

func (t *IPTables) rule(action string, addr net.IP) error {
	subnet := net.IPNet{IP: addr.Mask(t.mask), Mask: t.mask}
	cmd := exec.Command(
		"iptables",
		"--table", "nat",
		action, "POSTROUTING",
		"--source", subnet.String(),
		"!", "--destination", subnet.String(),
		"--jump", "MASQUERADE",
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %s: %w", cmd.Args, out, err)
	}
	return nil
}

func (t *IPTables) enableForwarding() error {
	out, err := exec.Command("sysctl", "-n", "net.ipv4.ip_forward").CombinedOutput()
	if err != nil {
		return fmt.Errorf("failed to check IP forwarding: %w", err)
	}
	if strings.TrimSpace(string(out)) == "1" {
		t.forwardSet = true
		return nil
	}
	if err := exec.Command("sysctl", "-w", "net.ipv4.ip_forward=1").Run(); err != nil {
		return fmt.Errorf("failed to enable IP forwarding: %w", err)
	}
	return nil
}

func (t *IPTables) disableForwarding() {
	if t.forwardSet {
		// Forwarding was on before we touched it. Leave it alone.
		return
	}
	if err := exec.Command("sysctl", "-w", "net.ipv4.ip_forward=0").Run(); err != nil {
		log.Error().Err(err).Msg("Failed to disable IP forwarding")
	}
}
