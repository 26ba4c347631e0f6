package common

import (
	"errors"
	"net"
)

var (
	ErrNoInterfaceFound = errors.New("could not find interface with that name")
	ErrNoIPv4Address    = errors.New("interface has no ipv4 address")
)

// GetInterfaceAddr - first configured IPv4 address and netmask of a named
// interface. An interface that exists but is still waiting on an address
// returns ErrNoIPv4Address, which callers treat the same as a zero address.
func GetInterfaceAddr(name string) (net.IP, net.IPMask, error) {
	ifa, err := net.InterfaceByName(name)
	if err != nil {
		return nil, nil, ErrNoInterfaceFound
	}
	addrs, err := ifa.Addrs()
	if err != nil {
		return nil, nil, err
	}
	for _, addr := range addrs {
		ipnet, ok := addr.(*net.IPNet)
		if !ok {
			continue
		}
		if ip4 := ipnet.IP.To4(); ip4 != nil {
			return ip4, ipnet.Mask, nil
		}
	}
	return nil, nil, ErrNoIPv4Address
}
