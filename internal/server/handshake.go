package server

import (
	"context"
	"net"

	"github.com/zwavelink/zwave-driver/internal/cnl"
)

// EventFeedHandshake runs the required TCP hello exchange.
func (s *Server) EventFeedHandshake(ctx context.Context, c net.Conn) error {
	return cnl.Handshake(ctx, c, s.handshakeTimeout)
}
