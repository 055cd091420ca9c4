package server

import (
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/zwavelink/zwave-driver/internal/eventfeed"
	"github.com/zwavelink/zwave-driver/internal/hub"
	"github.com/zwavelink/zwave-driver/internal/metrics"
)

// startWriter launches the goroutine pushing hub events to a single client connection.
func (s *Server) startWriter(ctxDone <-chan struct{}, conn net.Conn, cl *hub.Client, logger *slog.Logger) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			_ = conn.Close()
			if s.Hub != nil {
				s.Hub.Remove(cl)
			}
			s.totalDisconnected.Add(1)
			logger.Info("client_disconnected")
		}()
		t := time.NewTicker(s.flushInterval)
		defer t.Stop()
		batch := make([]eventfeed.Event, 0, s.batchSize)
		flush := func() error {
			if len(batch) == 0 {
				return nil
			}
			n := len(batch)
			_, err := s.Codec.EncodeTo(conn, batch)
			batch = batch[:0]
			if err != nil {
				wrap := fmt.Errorf("%w: %v", ErrConnWrite, err)
				metrics.IncError(mapErrToMetric(wrap))
				s.setError(wrap)
				return wrap
			}
			metrics.AddTCPTx(n)
			return nil
		}
		for {
			select {
			case ev := <-cl.Out:
				batch = append(batch, ev)
				if len(batch) >= s.batchSize {
					if err := flush(); err != nil {
						return
					}
				}
			case <-t.C:
				if err := flush(); err != nil {
					return
				}
			case <-cl.Closed:
				_ = flush()
				return
			case <-ctxDone:
				_ = flush()
				return
			}
		}
	}()
}
