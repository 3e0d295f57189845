package mcpquic

import (
	"bufio"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/quic-go/quic-go"

	"github.com/hazyhaar/yurenorm/pkg/kit"
)

// Handler serves MCP sessions on QUIC connections it does not own. The
// chassis hands it connections after ALPN demux.
type Handler struct {
	mcpServer *server.MCPServer
	logger    *slog.Logger
}

// NewHandler returns a Handler dispatching to mcpSrv.
func NewHandler(mcpSrv *server.MCPServer, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{mcpServer: mcpSrv, logger: logger}
}

// ServeConn runs one MCP session on the first stream of conn and returns
// when the stream ends or ctx is cancelled.
func (h *Handler) ServeConn(ctx context.Context, conn *quic.Conn) {
	remote := conn.RemoteAddr().String()

	stream, err := conn.AcceptStream(ctx)
	if err != nil {
		h.logger.Warn("mcp quic: accept stream", "remote", remote, "error", err)
		conn.CloseWithError(ConnErrorProtocolViolation, "stream accept failed")
		return
	}
	if err := ValidateMagic(stream); err != nil {
		h.logger.Warn("mcp quic: bad preamble", "remote", remote, "error", err)
		stream.CancelWrite(StreamErrorProtocolConfusion)
		stream.CancelRead(StreamErrorProtocolConfusion)
		conn.CloseWithError(ConnErrorProtocolViolation, "invalid magic")
		return
	}

	sess := newSession("quic_"+uuid.NewString(), stream)
	if err := h.mcpServer.RegisterSession(ctx, sess); err != nil {
		h.logger.Error("mcp quic: register session", "session", sess.id, "error", err)
		stream.Close()
		return
	}
	defer h.mcpServer.UnregisterSession(ctx, sess.id)
	h.logger.Debug("mcp quic: session started", "session", sess.id, "remote", remote)

	ctx, cancel := context.WithCancel(kit.WithTransport(ctx, kit.MCPQUICTransport))
	defer cancel()
	ctx = h.mcpServer.WithContext(ctx, sess)
	go sess.writeNotifications(ctx)

	reader := bufio.NewReaderSize(stream, 64*1024)
	for {
		line, err := readLine(reader)
		if errors.Is(err, errLineTooLong) {
			stream.CancelRead(StreamErrorMessageTooLarge)
			h.logger.Warn("mcp quic: message too large", "session", sess.id)
			break
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && ctx.Err() == nil {
				h.logger.Warn("mcp quic: read", "session", sess.id, "error", err)
			}
			break
		}
		if len(line) == 0 {
			continue
		}

		response := h.mcpServer.HandleMessage(ctx, json.RawMessage(line))
		if response == nil {
			continue
		}
		if err := sess.write(response); err != nil {
			h.logger.Warn("mcp quic: write", "session", sess.id, "error", err)
			break
		}
	}
	stream.Close()
	h.logger.Debug("mcp quic: session ended", "session", sess.id, "remote", remote)
}

var errLineTooLong = errors.New("message exceeds size limit")

// readLine returns the next newline-terminated message without the newline.
func readLine(r *bufio.Reader) ([]byte, error) {
	var line []byte
	for {
		chunk, err := r.ReadSlice('\n')
		line = append(line, chunk...)
		if len(line) > MaxMessageSize {
			return nil, errLineTooLong
		}
		if err == nil {
			return line[:len(line)-1], nil
		}
		if !errors.Is(err, bufio.ErrBufferFull) {
			return nil, err
		}
	}
}

// Listener owns a QUIC listener that only speaks MCP.
type Listener struct {
	listener *quic.Listener
	handler  *Handler
	logger   *slog.Logger
}

// Listen binds addr. tlsCfg must offer ALPNProtocolMCP.
func Listen(addr string, tlsCfg *tls.Config, mcpSrv *server.MCPServer, logger *slog.Logger) (*Listener, error) {
	if logger == nil {
		logger = slog.Default()
	}
	l, err := quic.ListenAddr(addr, tlsCfg, QUICConfig())
	if err != nil {
		return nil, err
	}
	return &Listener{listener: l, handler: NewHandler(mcpSrv, logger), logger: logger}, nil
}

// Addr returns the bound UDP address.
func (l *Listener) Addr() string { return l.listener.Addr().String() }

// Serve accepts connections until ctx is cancelled or the listener closes.
func (l *Listener) Serve(ctx context.Context) error {
	for {
		conn, err := l.listener.Accept(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		if alpn := conn.ConnectionState().TLS.NegotiatedProtocol; alpn != ALPNProtocolMCP {
			conn.CloseWithError(ConnErrorUnsupportedALPN, "unsupported ALPN: "+alpn)
			continue
		}
		go l.handler.ServeConn(ctx, conn)
	}
}

// Close stops the listener.
func (l *Listener) Close() error {
	return l.listener.Close()
}

// session implements server.ClientSession for one QUIC stream.
type session struct {
	id            string
	notifications chan mcp.JSONRPCNotification
	initialized   atomic.Bool
	mu            sync.Mutex
	w             io.Writer
}

func newSession(id string, w io.Writer) *session {
	return &session{
		id:            id,
		notifications: make(chan mcp.JSONRPCNotification, 16),
		w:             w,
	}
}

func (s *session) SessionID() string                                   { return s.id }
func (s *session) NotificationChannel() chan<- mcp.JSONRPCNotification { return s.notifications }
func (s *session) Initialize()                                         { s.initialized.Store(true) }
func (s *session) Initialized() bool                                   { return s.initialized.Load() }

// write encodes v as one line. Responses and notifications share the stream.
func (s *session) write(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	data = append(data, '\n')
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.w.Write(data)
	return err
}

func (s *session) writeNotifications(ctx context.Context) {
	for {
		select {
		case n := <-s.notifications:
			if err := s.write(n); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}
