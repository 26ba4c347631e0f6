/*
Package dhcp runs the address-leasing service for the hotspot subnet.
It wraps an open source DHCP library so the rest of the code never
touches the wire format, and so the library can be swapped out later.
*/
package dhcp

import (
	"fmt"
	"math/rand"
	"net"
	"time"

	dhcp "github.com/krolaw/dhcp4"

	"gohotspot/common"
)

// NewHandler - a lease handler for one subnet. serverIP is the gateway's
// own address (also advertised as the router), start is the first
// leasable address, dns is the resolver advertised to clients. Clients
// joining the hotspot get everything they need from one Offer.
func NewHandler(serverIP, start, dns net.IP, subnet net.IPNet, leaseCount int) *Handler {
	return &Handler{
		ip:            serverIP.To4(),
		leaseDuration: 2 * time.Hour,
		start:         start.To4(),
		leaseRange:    leaseCount,
		leases:        make(map[int]lease, leaseCount),
		options: dhcp.Options{
			dhcp.OptionSubnetMask:       subnet.Mask,
			dhcp.OptionRouter:           serverIP.To4(), // The gateway routes for its clients
			dhcp.OptionDomainNameServer: dns.To4(),
		},
	}
}

type lease struct {
	nic    string    // Client's CHAddr
	expiry time.Time // When the lease expires
}

type Handler struct {
	ip            net.IP        // Server IP to use
	options       dhcp.Options  // Options to send to DHCP Clients
	start         net.IP        // Start of IP range to distribute
	leaseRange    int           // Number of IPs to distribute (starting from start)
	leaseDuration time.Duration // Lease period
	leases        map[int]lease // Map to keep track of leases
}

// AddEntry pins an address to a MAC so a known client always gets the
// same lease.
func (h *Handler) AddEntry(nic net.HardwareAddr, ip net.IP) (err error) {
	if !dhcp.IPInRange(h.start, dhcp.IPAdd(h.start, h.leaseRange-1), ip) {
		return fmt.Errorf("static entry %s is outside the lease pool", ip)
	}
	wantIndex := common.Ip2int(ip.To4()) - common.Ip2int(h.start)
	h.leases[int(wantIndex)] = lease{nic: nic.String(), expiry: time.Now().Add(1<<63 - 1)}
	return
}

func (h *Handler) String() string {
	return fmt.Sprintf("&Handler{%+v, %+v, %+v, %+v, %+v}", h.ip, h.start, h.leaseRange, h.leaseDuration, h.options)
}

func (h *Handler) ServeDHCP(p dhcp.Packet, msgType dhcp.MessageType, options dhcp.Options) (d dhcp.Packet) {
	switch msgType {

	case dhcp.Discover:
		var free int
		nic := p.CHAddr().String()
		for i, v := range h.leases { // Find previous lease
			if v.nic == nic {
				free = i
				goto reply
			}
		}
		if free = h.freeLease(); free == -1 {
			return
		}
	reply:
		return dhcp.ReplyPacket(p, dhcp.Offer, h.ip, dhcp.IPAdd(h.start, free), h.leaseDuration,
			h.options.SelectOrderOrAll(options[dhcp.OptionParameterRequestList]))

	case dhcp.Request:
		if server, ok := options[dhcp.OptionServerIdentifier]; ok && !net.IP(server).Equal(h.ip) {
			return nil // Message not for this dhcp server
		}
		reqIP := net.IP(options[dhcp.OptionRequestedIPAddress])
		if reqIP == nil {
			reqIP = net.IP(p.CIAddr())
		}

		if len(reqIP) == 4 && !reqIP.Equal(net.IPv4zero) {
			if leaseNum := dhcp.IPRange(h.start, reqIP) - 1; leaseNum >= 0 && leaseNum < h.leaseRange {
				if l, exists := h.leases[leaseNum]; !exists || l.nic == p.CHAddr().String() {
					h.leases[leaseNum] = lease{nic: p.CHAddr().String(), expiry: time.Now().Add(h.leaseDuration)}
					return dhcp.ReplyPacket(p, dhcp.ACK, h.ip, reqIP, h.leaseDuration,
						h.options.SelectOrderOrAll(options[dhcp.OptionParameterRequestList]))
				}
			}
		}
		return dhcp.ReplyPacket(p, dhcp.NAK, h.ip, nil, 0, nil)

	case dhcp.Release, dhcp.Decline:
		nic := p.CHAddr().String()
		for i, v := range h.leases {
			if v.nic == nic {
				delete(h.leases, i)
				break
			}
		}
	}
	return nil
}

func (h *Handler) freeLease() int {
	now := time.Now()
	b := rand.Intn(h.leaseRange) // Try random first
	for _, v := range [][]int{{b, h.leaseRange}, {0, b}} {
		for i := v[0]; i < v[1]; i++ {
			if l, ok := h.leases[i]; !ok || l.expiry.Before(now) {
				return i
			}
		}
	}
	return -1
}
