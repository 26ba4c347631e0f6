package netif

import (
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/require"
)

type fakeInterface struct {
	mu         sync.Mutex
	name       string
	emptyPolls int // number of polls that report a zero address first
	addr       AddrInfo
	addrErr    error
	polls      int
}

func (f *fakeInterface) Name() string { return f.name }

func (f *fakeInterface) AddrInfo() (AddrInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.polls++
	if f.addrErr != nil {
		return AddrInfo{}, f.addrErr
	}
	if f.polls <= f.emptyPolls {
		return AddrInfo{}, nil
	}
	return f.addr, nil
}

func (f *fakeInterface) Resolver() (net.IP, error)  { return nil, ErrNoResolver }
func (f *fakeInterface) SetAddrInfo(AddrInfo) error { return nil }
func (f *fakeInterface) StartLeases(LeaseConfig) error {
	return nil
}
func (f *fakeInterface) StopLeases() error { return nil }

func TestResolveAddressConverges(t *testing.T) {
	inf := &fakeInterface{
		name:       "ap0",
		emptyPolls: 3,
		addr:       AddrInfo{IP: net.ParseIP("192.168.4.1").To4()},
	}
	ip, err := ResolveAddress(clock.New(), inf, 20, time.Millisecond)
	require.NoError(t, err)
	require.Equal(t, net.ParseIP("192.168.4.1").To4(), ip)
	require.Equal(t, 4, inf.polls)
}

func TestResolveAddressTimesOut(t *testing.T) {
	inf := &fakeInterface{name: "ap0", emptyPolls: 1000}
	_, err := ResolveAddress(clock.New(), inf, 5, time.Millisecond)
	require.ErrorIs(t, err, ErrAddressTimeout)
	require.Equal(t, 5, inf.polls)
}

func TestResolveAddressKeepsPollingOnError(t *testing.T) {
	inf := &fakeInterface{name: "ap0", addrErr: errors.New("driver not ready")}
	_, err := ResolveAddress(clock.New(), inf, 3, time.Millisecond)
	require.ErrorIs(t, err, ErrAddressTimeout)
	require.Equal(t, 3, inf.polls)
}
