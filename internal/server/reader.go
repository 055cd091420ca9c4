package server

import (
	"log/slog"
	"net"
	"time"

	"github.com/zwavelink/zwave-driver/internal/hub"
)

// startReader drains (and discards) anything the client sends. The event
// feed is broadcast-only: a subscriber has no command path back through this
// connection, so the only thing a read needs to detect is disconnection.
func (s *Server) startReader(ctxDone <-chan struct{}, conn net.Conn, cl *hub.Client, logger *slog.Logger) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() { _ = conn.Close() }()
		buf := make([]byte, 256)
		for {
			_ = conn.SetReadDeadline(time.Now().Add(s.readDeadline))
			_, err := conn.Read(buf)
			if err != nil {
				if ne, ok := err.(net.Error); ok && ne.Timeout() {
					select {
					case <-ctxDone:
						return
					default:
						continue
					}
				}
				// EOF, reset, or listener shutdown: the writer goroutine owns
				// hub.Remove/disconnect bookkeeping once it sees conn closed.
				return
			}
			logger.Debug("client_sent_unexpected_data")
		}
	}()
}
