// Package chassis serves the normalization API on one port over two
// transports:
//   - TCP: HTTPS (HTTP/1.1 and HTTP/2)
//   - UDP: QUIC, demultiplexed by ALPN into HTTP/3 ("h3") and
//     MCP sessions (mcpquic.ALPNProtocolMCP)
//
// HTTPS responses advertise HTTP/3 with an Alt-Svc header. Without a
// certificate pair a self-signed development certificate is generated.
package chassis

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"

	"github.com/mark3labs/mcp-go/server"
	"github.com/quic-go/quic-go"
	"github.com/quic-go/quic-go/http3"

	"github.com/hazyhaar/yurenorm/pkg/mcpquic"
)

// Config configures a Server.
type Config struct {
	Addr      string // host:port, bound on both TCP and UDP
	CertFile  string // empty: self-signed
	KeyFile   string
	Handler   http.Handler
	MCPServer *server.MCPServer // nil disables MCP over QUIC
	Logger    *slog.Logger
}

// Server runs the TCP and QUIC listeners.
type Server struct {
	cfg        Config
	logger     *slog.Logger
	tlsCfg     *tls.Config
	handler    http.Handler
	mcpHandler *mcpquic.Handler

	mu        sync.Mutex
	tcpLn     net.Listener
	quicLn    *quic.Listener
	tcpServer *http.Server
	h3Server  *http3.Server
}

// New prepares a Server. Nothing is bound until Listen.
func New(cfg Config) (*Server, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	tlsCfg, err := TLSConfig(cfg.CertFile, cfg.KeyFile)
	if err != nil {
		return nil, err
	}
	if cfg.CertFile == "" {
		cfg.Logger.Warn("chassis: using a self-signed development certificate")
	}

	s := &Server{cfg: cfg, logger: cfg.Logger, tlsCfg: tlsCfg}
	if cfg.MCPServer != nil {
		s.mcpHandler = mcpquic.NewHandler(cfg.MCPServer, cfg.Logger)
	}
	return s, nil
}

// Listen binds UDP first, then TCP on the same port, so an Addr with
// port 0 yields one shared port.
func (s *Server) Listen() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	quicLn, err := quic.ListenAddr(s.cfg.Addr, s.tlsCfg, mcpquic.QUICConfig())
	if err != nil {
		return fmt.Errorf("quic listen: %w", err)
	}
	udpAddr := quicLn.Addr().(*net.UDPAddr)

	host, _, _ := net.SplitHostPort(s.cfg.Addr)
	tcpAddr := net.JoinHostPort(host, strconv.Itoa(udpAddr.Port))
	tcpTLS := s.tlsCfg.Clone()
	tcpTLS.NextProtos = []string{"h2", "http/1.1"}
	tcpLn, err := tls.Listen("tcp", tcpAddr, tcpTLS)
	if err != nil {
		quicLn.Close()
		return fmt.Errorf("tcp listen: %w", err)
	}

	handler := securityHeaders(altSvc(udpAddr.Port, s.cfg.Handler))
	s.quicLn = quicLn
	s.tcpLn = tcpLn
	s.tcpServer = &http.Server{Handler: handler, TLSConfig: tcpTLS}
	s.h3Server = &http3.Server{Handler: handler}
	return nil
}

// Addr returns the bound address, valid after Listen.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tcpLn == nil {
		return s.cfg.Addr
	}
	return s.tcpLn.Addr().String()
}

// Serve blocks until ctx is cancelled or a listener fails. Listen is
// called first if it has not been.
func (s *Server) Serve(ctx context.Context) error {
	s.mu.Lock()
	bound := s.quicLn != nil
	s.mu.Unlock()
	if !bound {
		if err := s.Listen(); err != nil {
			return err
		}
	}
	s.logger.Info("chassis listening", "addr", s.Addr(), "tcp", "https", "udp", "h3+mcp")

	errCh := make(chan error, 2)
	go func() {
		if err := s.tcpServer.Serve(s.tcpLn); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("tcp: %w", err)
		}
	}()
	go func() {
		errCh <- s.acceptQUIC(ctx)
	}()

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

// acceptQUIC demultiplexes QUIC connections by negotiated ALPN.
func (s *Server) acceptQUIC(ctx context.Context) error {
	for {
		conn, err := s.quicLn.Accept(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, quic.ErrServerClosed) {
				return nil
			}
			return fmt.Errorf("quic accept: %w", err)
		}

		switch alpn := conn.ConnectionState().TLS.NegotiatedProtocol; alpn {
		case http3.NextProtoH3:
			go func() {
				if err := s.h3Server.ServeQUICConn(conn); err != nil {
					s.logger.Debug("http3 connection closed", "remote", conn.RemoteAddr(), "error", err)
				}
			}()
		case mcpquic.ALPNProtocolMCP:
			if s.mcpHandler == nil {
				conn.CloseWithError(mcpquic.ConnErrorUnsupportedALPN, "mcp disabled")
				continue
			}
			go s.mcpHandler.ServeConn(ctx, conn)
		default:
			s.logger.Warn("chassis: unknown ALPN", "alpn", alpn, "remote", conn.RemoteAddr())
			conn.CloseWithError(mcpquic.ConnErrorUnsupportedALPN, "unsupported ALPN: "+alpn)
		}
	}
}

// Stop shuts both transports down.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	if s.tcpServer != nil {
		errs = append(errs, s.tcpServer.Shutdown(ctx))
	}
	if s.h3Server != nil {
		errs = append(errs, s.h3Server.Close())
	}
	if s.quicLn != nil {
		errs = append(errs, s.quicLn.Close())
	}
	return errors.Join(errs...)
}

func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Referrer-Policy", "no-referrer")
		w.Header().Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}

// altSvc advertises HTTP/3 on port.
func altSvc(port int, next http.Handler) http.Handler {
	value := fmt.Sprintf(`h3=":%d"; ma=86400`, port)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Alt-Svc", value)
		next.ServeHTTP(w, r)
	})
}
