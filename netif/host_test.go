package netif

import (
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStationResolverFromResolvConf(t *testing.T) {
	path := filepath.Join(t.TempDir(), "resolv.conf")
	require.NoError(t, os.WriteFile(path, []byte("nameserver 192.168.1.1\nnameserver 1.1.1.1\n"), 0o644))

	sta := &hostStation{name: "wlan0", resolvConf: path}
	ip, err := sta.Resolver()
	require.NoError(t, err)
	require.Equal(t, net.ParseIP("192.168.1.1").To4(), ip)
}

func TestStationResolverSkipsIPv6(t *testing.T) {
	path := filepath.Join(t.TempDir(), "resolv.conf")
	require.NoError(t, os.WriteFile(path, []byte("nameserver fd00::1\nnameserver 8.8.4.4\n"), 0o644))

	sta := &hostStation{name: "wlan0", resolvConf: path}
	ip, err := sta.Resolver()
	require.NoError(t, err)
	require.Equal(t, net.ParseIP("8.8.4.4").To4(), ip)
}

func TestStationResolverEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "resolv.conf")
	require.NoError(t, os.WriteFile(path, []byte("# nothing here\n"), 0o644))

	sta := &hostStation{name: "wlan0", resolvConf: path}
	_, err := sta.Resolver()
	require.ErrorIs(t, err, ErrNoResolver)
}

func TestStationIsExternallyManaged(t *testing.T) {
	sta := &hostStation{name: "wlan0"}
	require.ErrorIs(t, sta.SetAddrInfo(AddrInfo{}), ErrExternallyManaged)
	require.ErrorIs(t, sta.StartLeases(LeaseConfig{}), ErrExternallyManaged)
	require.ErrorIs(t, sta.StopLeases(), ErrExternallyManaged)
}
