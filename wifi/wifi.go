// Package wifi defines the radio-mode capability the gateway controller
// drives, and a hostapd-backed implementation of it.
package wifi

// Mode is the radio's operating mode. Station keeps only the uplink
// connection; StationAP runs the uplink and the access point together.
type Mode uint8

const (
	ModeStation Mode = iota
	ModeStationAP
)

func (m Mode) String() string {
	if m == ModeStationAP {
		return "station+ap"
	}
	return "station"
}

type Auth uint8

const (
	AuthOpen Auth = iota
	AuthWPA2PSK
)

func (a Auth) String() string {
	if a == AuthWPA2PSK {
		return "wpa2-psk"
	}
	return "open"
}

// APSettings is the access-point identity and admission configuration.
type APSettings struct {
	SSID       string
	Password   string
	Auth       Auth
	Channel    int
	MaxClients int
}

// Radio is the capability the controller calls into. Implementations
// own the driver specifics; the controller only sequences the calls.
type Radio interface {
	SetMode(Mode) error
	ConfigureAP(APSettings) error
}
