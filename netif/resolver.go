package netif

import (
	"errors"
	"net"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog/log"
)

var (
	ErrAddressTimeout = errors.New("interface address did not converge")
)

// ResolveAddress polls inf until it reports a non-zero IPv4 address,
// sleeping pollInterval before each poll. After a mode switch the driver
// takes a moment to assign the address, so the first poll is expected to
// come back empty. Returns ErrAddressTimeout once maxAttempts polls have
// all come back zero.
func ResolveAddress(clk clock.Clock, inf Interface, maxAttempts int, pollInterval time.Duration) (net.IP, error) {
	for attempt := 0; attempt < maxAttempts; attempt++ {
		clk.Sleep(pollInterval)
		info, err := inf.AddrInfo()
		if err != nil {
			log.Debug().Err(err).Msgf("Polling %s for an address, attempt %d", inf.Name(), attempt+1)
			continue
		}
		if !info.IsZero() {
			return info.IP, nil
		}
	}
	log.Warn().Msgf("Interface %s never got an address after %d attempts", inf.Name(), maxAttempts)
	return nil, ErrAddressTimeout
}
