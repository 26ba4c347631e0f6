package nat

import (
	"net"
	"testing"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/require"
)

type transition struct {
	addr    string
	enabled bool
}

type recordingTranslator struct {
	transitions []transition
}

func (r *recordingTranslator) SetTranslation(addr net.IP, enabled bool) {
	r.transitions = append(r.transitions, transition{addr: addr.String(), enabled: enabled})
}

// activeAddrs replays the transitions and returns how many addresses are
// enabled at once, at the worst point of the sequence.
func (r *recordingTranslator) maxActive(t *testing.T) int {
	t.Helper()
	active := map[string]bool{}
	max := 0
	for _, tr := range r.transitions {
		if tr.enabled {
			require.False(t, active[tr.addr], "enable on %s without intervening disable", tr.addr)
			active[tr.addr] = true
		} else {
			require.True(t, active[tr.addr], "disable on %s while not enabled", tr.addr)
			delete(active, tr.addr)
		}
		if len(active) > max {
			max = len(active)
		}
	}
	return max
}

func newTestBinder(tr Translator) *Binder {
	b := NewBinder(tr, clock.New())
	b.settle = 0 // keep the rebind settle wait out of test runtime
	return b
}

func TestBindEnablesOnce(t *testing.T) {
	tr := &recordingTranslator{}
	b := newTestBinder(tr)

	addr := net.ParseIP("192.168.4.1")
	b.Bind(addr)
	b.Bind(addr)

	require.Equal(t, []transition{{"192.168.4.1", true}}, tr.transitions)
	require.Equal(t, addr.To4(), b.Bound())
}

func TestRebindDisablesOldFirst(t *testing.T) {
	tr := &recordingTranslator{}
	b := newTestBinder(tr)

	b.Bind(net.ParseIP("192.168.4.1"))
	b.Bind(net.ParseIP("192.168.5.1"))

	require.Equal(t, []transition{
		{"192.168.4.1", true},
		{"192.168.4.1", false},
		{"192.168.5.1", true},
	}, tr.transitions)
	require.Equal(t, 1, tr.maxActive(t))
}

func TestUnbind(t *testing.T) {
	tr := &recordingTranslator{}
	b := newTestBinder(tr)

	b.Unbind() // unbound, must be a no-op
	require.Empty(t, tr.transitions)

	b.Bind(net.ParseIP("192.168.4.1"))
	b.Unbind()
	b.Unbind()

	require.Equal(t, []transition{
		{"192.168.4.1", true},
		{"192.168.4.1", false},
	}, tr.transitions)
	require.Nil(t, b.Bound())
}

// Any sequence of binds and unbinds keeps at most one address active and
// never double-enables or double-disables.
func TestBindSequencesNeverOverlap(t *testing.T) {
	addrs := []string{"192.168.4.1", "192.168.5.1", "192.168.4.1", "10.0.0.1", "10.0.0.1", "192.168.5.1"}
	tr := &recordingTranslator{}
	b := newTestBinder(tr)

	for i, a := range addrs {
		b.Bind(net.ParseIP(a))
		if i%3 == 2 {
			b.Unbind()
		}
	}
	b.Unbind()

	require.Equal(t, 1, tr.maxActive(t))
}
