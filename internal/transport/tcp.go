// Package transport implements the TCP-facing side of the broker
// (spec.md §6 transport-facing contract): accepting connections,
// framing control packets off the wire, and driving the broker FSM
// with decoded envelopes. Protocol semantics live entirely in
// internal/broker; this package only owns the socket.
package transport

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/nullwave/goqtt/internal/broker"
	"github.com/nullwave/goqtt/internal/logger"
	"github.com/nullwave/goqtt/internal/packet"
)

// TCPServer accepts MQTT client connections and feeds them to a
// broker.Broker. The accept loop and per-connection goroutines are
// supervised by an errgroup so a graceful Stop drains cleanly instead
// of leaving an unsupervised fan-out of bare goroutines.
type TCPServer struct {
	addr     string
	broker   *broker.Broker
	listener net.Listener

	maxConnections     int
	currentConnections atomic.Int32
	shuttingDown       atomic.Bool

	group *errgroup.Group
}

// New builds a TCPServer bound to addr, serving b. addr may be a bare
// port ("1883"), which is normalized to ":1883", or a full host:port.
// maxConnections<=0 means unlimited.
func New(addr string, b *broker.Broker, maxConnections int) *TCPServer {
	if _, _, err := net.SplitHostPort(addr); err != nil {
		addr = ":" + addr
	}
	return &TCPServer{
		addr:           addr,
		broker:         b,
		maxConnections: maxConnections,
	}
}

// SetPort rebinds the listening port. Valid only before Start, per
// the original ESPAsyncMQTTBroker::setPort guard.
func (srv *TCPServer) SetPort(addr string) bool {
	if srv.listener != nil {
		return false
	}
	srv.addr = addr
	return true
}

// Start begins accepting connections; the accept loop and every
// connection handler run inside an errgroup tied to ctx so Stop's
// listener close unwinds the whole tree.
func (srv *TCPServer) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", srv.addr)
	if err != nil {
		return fmt.Errorf("transport: listen %s: %w", srv.addr, err)
	}
	srv.listener = listener

	group, gctx := errgroup.WithContext(ctx)
	srv.group = group
	group.Go(func() error {
		return srv.accept(gctx)
	})

	srv.broker.StartHousekeeping()
	return nil
}

// Stop closes the listener and every open connection, then waits for
// the supervised goroutines to unwind.
func (srv *TCPServer) Stop() error {
	srv.shuttingDown.Store(true)
	srv.broker.StopHousekeeping()

	var err error
	if srv.listener != nil {
		err = srv.listener.Close()
	}
	if srv.group != nil {
		_ = srv.group.Wait()
	}
	return err
}

func (srv *TCPServer) accept(ctx context.Context) error {
	for {
		conn, err := srv.listener.Accept()
		if err != nil {
			if srv.shuttingDown.Load() {
				return nil
			}
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			logger.Warn("accept error", logger.ErrorAttr(err))
			continue
		}

		srv.group.Go(func() error {
			srv.handleConnection(conn)
			return nil
		})
	}
}

// checkServerAvailability reports a CONNACK-worthy rejection reason,
// or "" if the server can accept another client (teacher's
// checkServerAvailability, generalized with a configurable cap).
func (srv *TCPServer) checkServerAvailability() string {
	if srv.shuttingDown.Load() {
		return "server is shutting down"
	}
	if srv.maxConnections > 0 && srv.currentConnections.Load() >= int32(srv.maxConnections) {
		return "maximum connections exceeded"
	}
	return ""
}

// handleConnection owns one client socket for its whole lifetime:
// frame bytes into control packets, decode them, and hand each
// envelope to the broker FSM. Every non-recoverable error closes the
// connection and drives the broker's disconnect path.
func (srv *TCPServer) handleConnection(conn net.Conn) {
	remoteAddr := conn.RemoteAddr().String()
	defer conn.Close()

	if reason := srv.checkServerAvailability(); reason != "" {
		logger.Info("rejecting connection", logger.String("remote_addr", remoteAddr), logger.String("reason", reason))
		_, _ = conn.Write(packet.EncodeConnAck(false, packet.ServerUnavailable))
		return
	}

	srv.currentConnections.Add(1)
	defer srv.currentConnections.Add(-1)

	session := srv.broker.Accept(conn, remoteAddr)
	defer srv.broker.Disconnect(session)

	reader := bufio.NewReader(conn)

	for {
		raw, err := packet.ReadFrame(reader)
		if err != nil {
			if !errors.Is(err, io.EOF) {
				logger.Debug("frame read error", logger.String("remote_addr", remoteAddr), logger.ErrorAttr(err))
			}
			return
		}

		env, err := packet.Decode(raw)
		if err != nil {
			logger.Debug("decode error, closing connection",
				logger.String("remote_addr", remoteAddr), logger.ErrorAttr(err))
			if !session.Connected {
				_, _ = conn.Write(packet.EncodeConnAck(false, packet.IdentifierRejected))
			}
			return
		}

		if srv.broker.Dispatch(session, env) {
			return
		}
	}
}
