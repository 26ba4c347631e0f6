package dhcp

import (
	"net"
	"testing"

	dhcp "github.com/krolaw/dhcp4"
	"github.com/stretchr/testify/require"
)

var (
	serverIP     = net.ParseIP("192.168.4.1").To4()
	poolStart    = net.ParseIP("192.168.4.2").To4()
	advertised   = net.ParseIP("8.8.8.8").To4()
	clientMAC, _ = net.ParseMAC("00:15:5d:67:be:9a")
)

func newTestHandler(t *testing.T, poolSize int) *Handler {
	t.Helper()
	_, subnet, err := net.ParseCIDR("192.168.4.0/24")
	require.NoError(t, err)
	return NewHandler(serverIP, poolStart, advertised, *subnet, poolSize)
}

func TestDiscoverOffersPoolAddress(t *testing.T) {
	h := newTestHandler(t, 8)

	discover := dhcp.RequestPacket(dhcp.Discover, clientMAC, nil, []byte{1, 2, 3, 4}, true, nil)
	reply := h.ServeDHCP(discover, dhcp.Discover, discover.ParseOptions())
	require.NotNil(t, reply)

	opts := reply.ParseOptions()
	require.Equal(t, byte(dhcp.Offer), opts[dhcp.OptionDHCPMessageType][0])
	require.True(t, dhcp.IPInRange(poolStart, dhcp.IPAdd(poolStart, 7), reply.YIAddr()))
	require.Equal(t, []byte(serverIP), opts[dhcp.OptionRouter])
	require.Equal(t, []byte(advertised), opts[dhcp.OptionDomainNameServer])
}

func TestRequestAcksOfferedAddress(t *testing.T) {
	h := newTestHandler(t, 8)

	discover := dhcp.RequestPacket(dhcp.Discover, clientMAC, nil, []byte{1, 2, 3, 4}, true, nil)
	offer := h.ServeDHCP(discover, dhcp.Discover, discover.ParseOptions())
	require.NotNil(t, offer)
	offered := offer.YIAddr().To4()

	request := dhcp.RequestPacket(dhcp.Request, clientMAC, nil, []byte{1, 2, 3, 5}, true, []dhcp.Option{
		{Code: dhcp.OptionRequestedIPAddress, Value: offered},
		{Code: dhcp.OptionServerIdentifier, Value: serverIP},
	})
	ack := h.ServeDHCP(request, dhcp.Request, request.ParseOptions())
	require.NotNil(t, ack)

	opts := ack.ParseOptions()
	require.Equal(t, byte(dhcp.ACK), opts[dhcp.OptionDHCPMessageType][0])
	require.Equal(t, offered, ack.YIAddr().To4())
}

func TestRequestOutsidePoolNAKs(t *testing.T) {
	h := newTestHandler(t, 8)

	request := dhcp.RequestPacket(dhcp.Request, clientMAC, nil, []byte{1, 2, 3, 6}, true, []dhcp.Option{
		{Code: dhcp.OptionRequestedIPAddress, Value: net.ParseIP("192.168.4.200").To4()},
	})
	nak := h.ServeDHCP(request, dhcp.Request, request.ParseOptions())
	require.NotNil(t, nak)
	require.Equal(t, byte(dhcp.NAK), nak.ParseOptions()[dhcp.OptionDHCPMessageType][0])
}

func TestStaticEntryPinsAddress(t *testing.T) {
	h := newTestHandler(t, 8)
	pinned := net.ParseIP("192.168.4.5").To4()
	require.NoError(t, h.AddEntry(clientMAC, pinned))

	discover := dhcp.RequestPacket(dhcp.Discover, clientMAC, nil, []byte{1, 2, 3, 7}, true, nil)
	offer := h.ServeDHCP(discover, dhcp.Discover, discover.ParseOptions())
	require.NotNil(t, offer)
	require.Equal(t, pinned, offer.YIAddr().To4())
}

func TestStaticEntryOutOfRange(t *testing.T) {
	h := newTestHandler(t, 8)
	require.Error(t, h.AddEntry(clientMAC, net.ParseIP("192.168.5.5").To4()))
}
