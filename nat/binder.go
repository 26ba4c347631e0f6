// Package nat tracks which address the translation engine is bound to.
// The engine itself is external and is driven through the single
// Translator primitive.
package nat

import (
	"net"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog/log"
)

// Translator is the enable/disable-by-address primitive exposed by the
// underlying translation engine. It has no error channel; the engine is
// assumed synchronous and reliable.
type Translator interface {
	SetTranslation(addr net.IP, enabled bool)
}

// settleInterval - the engine keeps per-address session state that must
// be torn down before the same tables are rebuilt for a new address.
const settleInterval = 100 * time.Millisecond

// Binder keeps NAT active on at most one address at a time. Bind and
// Unbind are idempotent but must only be called from the single control
// goroutine; nothing here is safe for concurrent callers.
type Binder struct {
	translator Translator
	clk        clock.Clock
	settle     time.Duration
	bound      net.IP
}

func NewBinder(translator Translator, clk clock.Clock) *Binder {
	return &Binder{translator: translator, clk: clk, settle: settleInterval}
}

// Bind enables translation on addr. Rebinding a different address
// disables the old one first and waits for the engine to settle.
func (b *Binder) Bind(addr net.IP) {
	if b.bound != nil {
		if b.bound.Equal(addr) {
			log.Debug().Msgf("NAT already bound to %s", addr)
			return
		}
		log.Info().Msgf("Rebinding NAT from %s to %s", b.bound, addr)
		b.translator.SetTranslation(b.bound, false)
		b.clk.Sleep(b.settle)
	}
	b.translator.SetTranslation(addr, true)
	b.bound = addr.To4()
	log.Info().Msgf("NAT enabled on %s", addr)
}

// Unbind disables translation if any address is bound.
func (b *Binder) Unbind() {
	if b.bound == nil {
		return
	}
	b.translator.SetTranslation(b.bound, false)
	log.Info().Msgf("NAT disabled on %s", b.bound)
	b.bound = nil
}

// Bound reports the currently bound address, nil when NAT is inactive.
func (b *Binder) Bound() net.IP {
	return b.bound
}
