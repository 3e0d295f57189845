// Package mcpquic carries MCP JSON-RPC sessions over QUIC streams, so remote
// agents can call the normalization tools without a stdio pipe.
//
// A client dials with ALPN ALPNProtocolMCP, opens one bidirectional stream,
// writes Magic and then exchanges newline-delimited JSON-RPC messages.
package mcpquic

import (
	"bytes"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/quic-go/quic-go"
)

const (
	ALPNProtocolMCP         = "yurenorm-mcp-v1"
	Magic                   = "YNM1"
	MaxMessageSize          = 1 << 20
	DefaultHandshakeTimeout = 10 * time.Second
	DefaultIdleTimeout      = 5 * time.Minute
	DefaultKeepAlive        = 30 * time.Second
)

// Stream and connection error codes.
const (
	StreamErrorProtocolConfusion quic.StreamErrorCode = 0x02
	StreamErrorMessageTooLarge   quic.StreamErrorCode = 0x03

	ConnErrorNoError           quic.ApplicationErrorCode = 0x00
	ConnErrorUnsupportedALPN   quic.ApplicationErrorCode = 0x01
	ConnErrorProtocolViolation quic.ApplicationErrorCode = 0x03
)

var (
	ErrInvalidMagic    = errors.New("invalid magic bytes")
	ErrUnsupportedALPN = errors.New("ALPN negotiation failed: " + ALPNProtocolMCP + " not selected")
	ErrNotConnected    = errors.New("client not connected")
)

// QUICConfig returns the transport settings shared by listener and client.
func QUICConfig() *quic.Config {
	return &quic.Config{
		HandshakeIdleTimeout:       DefaultHandshakeTimeout,
		MaxStreamReceiveWindow:     4 * MaxMessageSize,
		MaxConnectionReceiveWindow: 16 * MaxMessageSize,
		MaxIdleTimeout:             DefaultIdleTimeout,
		KeepAlivePeriod:            DefaultKeepAlive,
	}
}

// ClientTLSConfig offers only the MCP ALPN. insecure skips certificate
// verification for self-signed development servers.
func ClientTLSConfig(insecure bool) *tls.Config {
	return &tls.Config{
		NextProtos:         []string{ALPNProtocolMCP},
		MinVersion:         tls.VersionTLS13,
		InsecureSkipVerify: insecure,
	}
}

// ValidateMagic reads and checks the stream preamble.
func ValidateMagic(r io.Reader) error {
	got := make([]byte, len(Magic))
	if _, err := io.ReadFull(r, got); err != nil {
		return fmt.Errorf("read magic: %w", err)
	}
	if !bytes.Equal(got, []byte(Magic)) {
		return fmt.Errorf("%w: got %q", ErrInvalidMagic, got)
	}
	return nil
}

// SendMagic writes the stream preamble. Clients send it right after
// opening the stream.
func SendMagic(w io.Writer) error {
	if _, err := io.WriteString(w, Magic); err != nil {
		return fmt.Errorf("write magic: %w", err)
	}
	return nil
}
