package main

import (
	"flag"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"gohotspot/common"
	"gohotspot/gateway"
	"gohotspot/nat"
	"gohotspot/netif"
	"gohotspot/wifi"
)

type HotspotConfig struct {
	SSID       string `yaml:"ssid"`
	Password   string `yaml:"password"`
	Channel    int    `yaml:"channel"`
	MaxClients int    `yaml:"maxClients"`
	LeaseCount int    `yaml:"leaseCount"`
}

type Config struct {
	UplinkInterface struct {
		Name string `yaml:"name"`
	} `yaml:"uplink"`
	APInterface struct {
		Name string `yaml:"name"`
	} `yaml:"ap"`
	Hotspot HotspotConfig `yaml:"hotspot"`
}

func main() {
	loglvlStr := flag.String("v", "debug", "debug level")
	configStr := flag.String("c", "config.yaml", "config location")
	flag.Parse()
	loglvl, err := zerolog.ParseLevel(*loglvlStr)
	if err != nil {
		panic("Failed to parse log level, try debug")
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr}).Level(loglvl).With().Timestamp().Logger().With().Caller().Logger()

	f, err := os.Open(*configStr)
	if err != nil {
		log.Fatal().Err(err).Msgf("Failed to open config %s", *configStr)
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	err = decoder.Decode(&cfg)
	if err != nil {
		log.Fatal().Err(err).Msgf("Failed to parse config '%s'", *configStr)
	}
	log.Debug().Msgf("Config: %+v", cfg)

	if cfg.UplinkInterface.Name == "" || cfg.APInterface.Name == "" {
		log.Fatal().Msg("Both an uplink and an ap interface name are required")
	}
	if cfg.Hotspot.Channel < 0 || cfg.Hotspot.Channel > 13 {
		log.Fatal().Msgf("Invalid channel %d - must be 1-13", cfg.Hotspot.Channel)
	}

	// The hotspot subnet is fixed at 192.168.4.0/24; an uplink living in
	// the same range would make the routing ambiguous.
	_, apNet, _ := net.ParseCIDR("192.168.4.0/24")
	if uplinkIP, uplinkMask, err := common.GetInterfaceAddr(cfg.UplinkInterface.Name); err == nil {
		uplinkNet := net.IPNet{IP: uplinkIP.Mask(uplinkMask), Mask: uplinkMask}
		if common.Intersect(apNet, &uplinkNet) {
			log.Fatal().Msgf("Uplink subnet %s intersects the hotspot subnet %s", uplinkNet.String(), apNet.String())
		}
	}

	stack := netif.NewHostStack(cfg.UplinkInterface.Name, cfg.APInterface.Name)
	radio := wifi.NewHostapdRadio(cfg.APInterface.Name)
	translator := nat.NewIPTables(net.CIDRMask(24, 32))

	gw := gateway.New(gateway.Config{
		SSID:       cfg.Hotspot.SSID,
		Password:   cfg.Hotspot.Password,
		Channel:    cfg.Hotspot.Channel,
		MaxClients: cfg.Hotspot.MaxClients,
		LeaseCount: cfg.Hotspot.LeaseCount,
	}, stack, radio, translator, clock.New())

	if err := gw.Enable("", ""); err != nil {
		if gw.Enabled() {
			// NAT-only hotspot - usable, but clients need a manually
			// configured resolver.
			log.Warn().Err(err).Msg("Hotspot is up without its DNS relay")
		} else {
			log.Fatal().Err(err).Msg("Failed to enable hotspot")
		}
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info().Msg("Shutting down")
	gw.Disable()
}
