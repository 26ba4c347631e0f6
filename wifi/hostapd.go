package wifi

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
)

// HostapdRadio drives a real wireless card: ip(8) flips the AP link up
// and down for the mode switch, hostapd beacons the access point. The AP
// interface itself is created once by the platform setup and is never
// destroyed here, matching the controller's lazy-handle model.
type HostapdRadio struct {
	apName      string
	hostapdPath string
	confPath    string

	mu  sync.Mutex
	cmd *exec.Cmd
}

func NewHostapdRadio(apName string) *HostapdRadio {
	return &HostapdRadio{
		apName:      apName,
		hostapdPath: "hostapd",
		confPath:    filepath.Join(os.TempDir(), "gohotspot-hostapd.conf"),
	}
}

func (r *HostapdRadio) SetMode(mode Mode) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if mode == ModeStationAP {
		if out, err := exec.Command("ip", "link", "set", r.apName, "up").CombinedOutput(); err != nil {
			return fmt.Errorf("failed to bring up %s: %s: %w", r.apName, out, err)
		}
		log.Info().Msgf("Radio mode set to %s", mode)
		return nil
	}

	r.stopHostapd()
	if out, err := exec.Command("ip", "link", "set", r.apName, "down").CombinedOutput(); err != nil {
		return fmt.Errorf("failed to bring down %s: %s: %w", r.apName, out, err)
	}
	log.Info().Msgf("Radio mode set to %s", mode)
	return nil
}

func (r *HostapdRadio) ConfigureAP(settings APSettings) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := os.WriteFile(r.confPath, []byte(renderConf(r.apName, settings)), 0o600); err != nil {
		return fmt.Errorf("failed to write hostapd config: %w", err)
	}

	// hostapd has no reconfigure, restart it with the new identity.
	r.stopHostapd()
	cmd := exec.Command(r.hostapdPath, r.confPath)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start hostapd: %w", err)
	}
	r.cmd = cmd
	log.Info().Msgf("Access point %q up on %s (%s, channel %d, max %d clients)",
		settings.SSID, r.apName, settings.Auth, settings.Channel, settings.MaxClients)
	return nil
}

func (r *HostapdRadio) stopHostapd() {
	if r.cmd == nil || r.cmd.Process == nil {
		return
	}
	if err := r.cmd.Process.Kill(); err != nil {
		log.Debug().Err(err).Msg("Failed to kill hostapd")
	}
	r.cmd.Wait()
	r.cmd = nil
}

func renderConf(apName string, s APSettings) string {
	var b strings.Builder
	fmt.Fprintf(&b, "interface=%s\n", apName)
	fmt.Fprintf(&b, "ssid=%s\n", s.SSID)
	fmt.Fprintf(&b, "hw_mode=g\n")
	fmt.Fprintf(&b, "channel=%d\n", s.Channel)
	fmt.Fprintf(&b, "max_num_sta=%d\n", s.MaxClients)
	if s.Auth == AuthWPA2PSK {
		fmt.Fprintf(&b, "wpa=2\n")
		fmt.Fprintf(&b, "wpa_key_mgmt=WPA-PSK\n")
		fmt.Fprintf(&b, "rsn_pairwise=CCMP\n")
		fmt.Fprintf(&b, "wpa_passphrase=%s\n", s.Password)
	}
	return b.String()
}
