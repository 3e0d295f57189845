package mcpquic

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/quic-go/quic-go"
)

// Client is an MCP client over a single QUIC stream.
type Client struct {
	addr      string
	tlsCfg    *tls.Config
	name      string
	conn      *quic.Conn
	stream    *quic.Stream
	mcpClient *client.Client
}

// NewClient returns an unconnected client for addr. A nil tlsCfg skips
// certificate verification.
func NewClient(addr string, tlsCfg *tls.Config) *Client {
	if tlsCfg == nil {
		tlsCfg = ClientTLSConfig(true)
	}
	return &Client{addr: addr, tlsCfg: tlsCfg, name: "yurenorm-quic-client"}
}

// Connect dials, sends the preamble and runs the MCP initialize handshake.
func (c *Client) Connect(ctx context.Context) error {
	conn, err := quic.DialAddr(ctx, c.addr, c.tlsCfg, QUICConfig())
	if err != nil {
		return fmt.Errorf("quic dial %s: %w", c.addr, err)
	}
	if alpn := conn.ConnectionState().TLS.NegotiatedProtocol; alpn != ALPNProtocolMCP {
		conn.CloseWithError(ConnErrorUnsupportedALPN, "bad ALPN")
		return fmt.Errorf("%w: got %q", ErrUnsupportedALPN, alpn)
	}

	stream, err := conn.OpenStreamSync(ctx)
	if err != nil {
		conn.CloseWithError(ConnErrorProtocolViolation, "stream open failed")
		return fmt.Errorf("open stream: %w", err)
	}
	if err := SendMagic(stream); err != nil {
		stream.Close()
		conn.CloseWithError(ConnErrorProtocolViolation, "preamble failed")
		return err
	}
	c.conn, c.stream = conn, stream

	mcpClient := client.NewClient(transport.NewIO(stream, streamWriter{stream}, nopReadCloser{}))
	if err := mcpClient.Start(ctx); err != nil {
		c.closeTransport()
		return fmt.Errorf("mcp start: %w", err)
	}

	initReq := mcp.InitializeRequest{}
	initReq.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initReq.Params.ClientInfo = mcp.Implementation{Name: c.name, Version: "1"}

	initCtx, cancel := context.WithTimeout(ctx, DefaultHandshakeTimeout)
	defer cancel()
	if _, err := mcpClient.Initialize(initCtx, initReq); err != nil {
		c.closeTransport()
		return fmt.Errorf("mcp initialize: %w", err)
	}
	c.mcpClient = mcpClient
	return nil
}

// ListTools lists the server tools.
func (c *Client) ListTools(ctx context.Context) (*mcp.ListToolsResult, error) {
	if c.mcpClient == nil {
		return nil, ErrNotConnected
	}
	return c.mcpClient.ListTools(ctx, mcp.ListToolsRequest{})
}

// CallTool invokes a tool. Tool-level failures come back with IsError set.
func (c *Client) CallTool(ctx context.Context, name string, args map[string]any) (*mcp.CallToolResult, error) {
	if c.mcpClient == nil {
		return nil, ErrNotConnected
	}
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	return c.mcpClient.CallTool(ctx, req)
}

// CallText invokes a tool and returns its first text content, turning
// tool errors into Go errors.
func (c *Client) CallText(ctx context.Context, name string, args map[string]any) (string, error) {
	res, err := c.CallTool(ctx, name, args)
	if err != nil {
		return "", err
	}
	var text string
	for _, content := range res.Content {
		if tc, ok := mcp.AsTextContent(content); ok {
			text = tc.Text
			break
		}
	}
	if res.IsError {
		return "", fmt.Errorf("%s: %s", name, text)
	}
	return text, nil
}

// Close ends the session and the connection.
func (c *Client) Close() error {
	if c.mcpClient != nil {
		c.mcpClient.Close()
	}
	return c.closeTransport()
}

func (c *Client) closeTransport() error {
	if c.stream != nil {
		c.stream.Close()
	}
	if c.conn != nil {
		return c.conn.CloseWithError(ConnErrorNoError, "client closing")
	}
	return nil
}

type streamWriter struct{ stream *quic.Stream }

func (w streamWriter) Write(p []byte) (int, error) { return w.stream.Write(p) }
func (w streamWriter) Close() error                { return w.stream.Close() }

type nopReadCloser struct{}

func (nopReadCloser) Read([]byte) (int, error) { return 0, io.EOF }
func (nopReadCloser) Close() error             { return nil }
