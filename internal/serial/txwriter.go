package serial

import (
	"context"
	"errors"

	"github.com/zwavelink/zwave-driver/internal/logging"
	"github.com/zwavelink/zwave-driver/internal/metrics"
	"github.com/zwavelink/zwave-driver/internal/transport"
)

var ErrTxOverflow = errors.New("serial tx overflow")

// TXWriter funnels all serial writes through one goroutine. The Serial-API
// actor already frames and checksums outgoing bytes (internal/frame.Codec);
// this writer's only job is async fan-in onto the physical port.
type TXWriter struct{ base *transport.AsyncTx[[]byte] }

// NewTXWriter creates a serial TXWriter with a buffered channel of size buf.
func NewTXWriter(parent context.Context, sp Port, buf int) *TXWriter {
	send := func(b []byte) error {
		_, err := sp.Write(b)
		return err
	}
	hooks := transport.Hooks{
		OnError: func(err error) {
			metrics.IncError(metrics.ErrSerialWrite)
			logging.L().Error("serial_write_error", "error", err)
		},
		OnAfter: func() { metrics.IncSerialTx() },
		OnDrop: func() error {
			metrics.IncError(metrics.ErrSerialWrite)
			return ErrTxOverflow
		},
	}
	return &TXWriter{base: transport.NewAsyncTx(parent, buf, send, hooks)}
}

// Send queues raw bytes for asynchronous write (drops with ErrTxOverflow if buffer full).
func (w *TXWriter) Send(b []byte) error { return w.base.Send(b) }

// Close stops the writer and waits for pending goroutine exit.
func (w *TXWriter) Close() { w.base.Close() }
