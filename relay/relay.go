/*
Package relay is a byte-transparent UDP DNS forwarder. It listens on the
DNS port, sends each client datagram verbatim to the upstream resolver,
and relays the single response back. No parsing, no caching, no retries -
a query the upstream never answers is simply dropped and the client's own
retry behaviour takes over.
*/
package relay

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

var (
	ErrBind = errors.New("could not bind dns listening socket")
)

const (
	// DNSPort is the port queries arrive on and the port upstream is
	// reached at.
	DNSPort = 53

	// Queries and responses. 512 bytes is the classic UDP DNS limit.
	bufferSize = 512

	// DefaultReadTimeout bounds how long a stop request can go unnoticed
	// while the worker idles in a receive.
	DefaultReadTimeout = time.Second

	// DefaultUpstreamTimeout bounds the per-query stall when the
	// upstream resolver is slow or unreachable.
	DefaultUpstreamTimeout = 2 * time.Second

	// How long Stop waits for a clean exit before closing the listening
	// socket out from under the worker.
	stopGracePeriod = 200 * time.Millisecond
)

// Config is fixed for the lifetime of one relay activation.
type Config struct {
	Upstream        net.IP
	UpstreamPort    int // 0 means DNSPort
	ListenPort      int // 0 means an ephemeral port
	ReadTimeout     time.Duration
	UpstreamTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.UpstreamPort == 0 {
		c.UpstreamPort = DNSPort
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = DefaultReadTimeout
	}
	if c.UpstreamTimeout == 0 {
		c.UpstreamTimeout = DefaultUpstreamTimeout
	}
	return c
}

// Relay is a running forwarder. One worker goroutine owns the listening
// socket; queries are handled one at a time, which is fine for the DNS
// volume of a handful of hotspot clients.
type Relay struct {
	cfg    Config
	conn   *net.UDPConn
	onExit func(error)

	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// Start binds the listening socket and starts the worker. onExit is
// called from the worker goroutine if it dies on a receive error that is
// not a timeout; it must not call back into Stop or any controller
// operation, flipping a flag is the intended use. onExit may be nil.
func Start(cfg Config, onExit func(error)) (*Relay, error) {
	cfg = cfg.withDefaults()
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4zero, Port: cfg.ListenPort})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBind, err)
	}
	r := &Relay{
		cfg:    cfg,
		conn:   conn,
		onExit: onExit,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	log.Info().Msgf("DNS relay listening on %s, forwarding to %s:%d", conn.LocalAddr(), cfg.Upstream, cfg.UpstreamPort)
	go r.loop()
	return r, nil
}

// Stop signals the worker, waits briefly for it to notice, then closes
// the listening socket defensively and waits for termination. Worst case
// latency is one read timeout plus one upstream round trip.
func (r *Relay) Stop() {
	r.stopOnce.Do(func() { close(r.stop) })
	select {
	case <-r.done:
	case <-time.After(stopGracePeriod):
		r.conn.Close()
	}
	<-r.done
	log.Info().Msg("DNS relay stopped")
}

// Done is closed when the worker has terminated, cleanly or not.
func (r *Relay) Done() <-chan struct{} {
	return r.done
}

// LocalAddr is the address of the listening socket.
func (r *Relay) LocalAddr() net.Addr {
	return r.conn.LocalAddr()
}

func (r *Relay) loop() {
	defer close(r.done)
	defer r.conn.Close()

	rx := make([]byte, bufferSize)
	tx := make([]byte, bufferSize)
	upstream := &net.UDPAddr{IP: r.cfg.Upstream, Port: r.cfg.UpstreamPort}

	for {
		select {
		case <-r.stop:
			return
		default:
		}

		r.conn.SetReadDeadline(time.Now().Add(r.cfg.ReadTimeout))
		n, client, err := r.conn.ReadFromUDP(rx)
		if err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			select {
			case <-r.stop:
				// Stop closed the socket out from under us.
				return
			default:
			}
			log.Error().Err(err).Msg("DNS relay receive failed, worker exiting")
			if r.onExit != nil {
				r.onExit(err)
			}
			return
		}
		if n == 0 {
			continue
		}
		r.forward(rx[:n], tx, client, upstream)
	}
}

// forward does one query round trip on a fresh upstream socket. The
// socket is closed on every path before the next query is read.
func (r *Relay) forward(query, resp []byte, client, upstream *net.UDPAddr) {
	conn, err := net.DialUDP("udp4", nil, upstream)
	if err != nil {
		log.Error().Err(err).Msgf("Failed to open upstream socket to %s", upstream)
		return
	}
	defer conn.Close()

	if _, err := conn.Write(query); err != nil {
		log.Debug().Err(err).Msgf("Failed to send query to %s", upstream)
		return
	}

	conn.SetReadDeadline(time.Now().Add(r.cfg.UpstreamTimeout))
	n, err := conn.Read(resp)
	if err != nil {
		// No retry - the client will ask again.
		log.Debug().Err(err).Msgf("No answer from %s, dropping query", upstream)
		return
	}

	if _, err := r.conn.WriteToUDP(resp[:n], client); err != nil {
		log.Debug().Err(err).Msgf("Failed to relay answer to %s", client)
	}
}
