package dhcp

import (
	"errors"
	"net"

	dhcp "github.com/krolaw/dhcp4"
	"github.com/rs/zerolog/log"
)

// Server runs a Handler on the standard DHCP server port until stopped.
type Server struct {
	conn net.PacketConn
	done chan struct{}
}

// Serve binds :67 and starts answering leases in the background.
func Serve(handler *Handler) (*Server, error) {
	conn, err := net.ListenPacket("udp4", ":67")
	if err != nil {
		return nil, err
	}
	s := &Server{conn: conn, done: make(chan struct{})}
	go func() {
		defer close(s.done)
		if err := dhcp.Serve(conn, handler); err != nil && !errors.Is(err, net.ErrClosed) {
			log.Error().Err(err).Msg("DHCP server exited")
		}
	}()
	log.Info().Msgf("DHCP server listening on %s", conn.LocalAddr())
	return s, nil
}

// Stop closes the socket and waits for the serve loop to exit.
func (s *Server) Stop() {
	s.conn.Close()
	<-s.done
	log.Info().Msg("DHCP server stopped")
}
