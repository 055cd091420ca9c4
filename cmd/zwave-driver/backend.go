package main

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/zwavelink/zwave-driver/internal/cache"
	"github.com/zwavelink/zwave-driver/internal/cc"
	"github.com/zwavelink/zwave-driver/internal/command"
	"github.com/zwavelink/zwave-driver/internal/driver"
	"github.com/zwavelink/zwave-driver/internal/eventfeed"
	"github.com/zwavelink/zwave-driver/internal/frame"
	"github.com/zwavelink/zwave-driver/internal/hub"
	"github.com/zwavelink/zwave-driver/internal/metrics"
	"github.com/zwavelink/zwave-driver/internal/security"
	"github.com/zwavelink/zwave-driver/internal/serial"
	"github.com/zwavelink/zwave-driver/internal/serialapi"
)

// sleepFn allows tests to intercept backoff sleeps.
var sleepFn = time.Sleep

// openSerialPort is a hook for tests (overridden in unit tests).
var openSerialPort = serial.Open

func nodeIDType(cfg *appConfig) command.NodeIdType {
	if cfg.nodeIdType == "16bit" {
		return command.NodeId16Bit
	}
	return command.NodeId8Bit
}

// initDriver opens the serial port, wires the Serial-API actor and the
// driver actor on top of it, and launches every goroutine the two need
// (RX loop, TX fan-in, actor/driver event loops). h may be nil, in which
// case unclaimed Reports are parsed and cached but never broadcast -- the
// event feed is additive and its absence changes no core behavior.
//
// It returns an error instead of exiting the process so main can decide
// how to report backend failures.
func initDriver(ctx context.Context, cfg *appConfig, h *hub.Hub, l *slog.Logger, wg *sync.WaitGroup) (*driver.Driver, func(), error) {
	sp, err := openSerialPort(cfg.serialDev, cfg.baud, cfg.serialReadTO)
	if err != nil {
		return nil, func() {}, fmt.Errorf("open serial: %w", err)
	}
	l.Info("serial_open", "device", cfg.serialDev, "baud", cfg.baud)

	frames := make(chan frame.RawFrame, serialReadBufSize)
	transmit := make(chan []byte, txQueueSize)
	events := make(chan serialapi.Event, eventQueueSize)

	ownNodeID := command.NodeId(cfg.ownNodeID)
	idType := nodeIDType(cfg)

	actor := serialapi.New(serialapi.Options{
		OwnNodeID:  ownNodeID,
		NodeIdType: idType,
		Logger:     l,
		Frames:     frames,
		Transmit:   transmit,
		Events:     events,
	})

	valueCache := cache.New()
	var mirrorCleanup func()
	if cfg.cacheMirrorAddr != "" {
		mirror, merr := cache.NewRedisMirror(ctx, cfg.cacheMirrorAddr, cfg.cacheMirrorPassword, cfg.cacheMirrorDB, cfg.cacheMirrorPrefix)
		if merr != nil {
			_ = sp.Close()
			return nil, func() {}, fmt.Errorf("cache mirror: %w", merr)
		}
		valueCache = valueCache.WithMirror(mirror, func(err error) {
			metrics.IncCacheMirrorFailure()
			l.Warn("cache_mirror_error", "error", err)
		})
		mirrorCleanup = func() { _ = mirror.Close() }
		l.Info("cache_mirror_connected", "addr", cfg.cacheMirrorAddr, "db", cfg.cacheMirrorDB)
	}

	onReport := func(nodeID command.NodeId, endpoint cc.EndpointIndex, report cc.CC) {
		if h == nil {
			return
		}
		h.Broadcast(eventfeed.FromReport(nodeID, endpoint, report))
	}

	drv := driver.New(driver.Options{
		Actor:      actor,
		Cache:      valueCache,
		OwnNodeID:  ownNodeID,
		NodeIdType: idType,
		Logger:     l,
		OnReport:   onReport,
	})

	if cfg.networkKey != "" {
		raw, _ := hex.DecodeString(cfg.networkKey) // already validated in (*appConfig).validate
		drv.InitSecurityManagers(security.NewNetworkKey(raw))
		l.Info("security_enabled")
	}

	txWriter := serial.NewTXWriter(ctx, sp, txQueueSize)

	wg.Add(1)
	go func() {
		defer wg.Done()
		actor.Run(ctx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		drv.Run(ctx, events)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case b, ok := <-transmit:
				if !ok {
					return
				}
				if err := txWriter.Send(b); err != nil {
					l.Warn("serial_tx_dropped", "error", err)
				}
			}
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer l.Info("serial_rx_end")
		runSerialRX(ctx, sp, frames, l)
	}()

	cleanup := func() {
		_ = sp.Close()
		txWriter.Close()
		if mirrorCleanup != nil {
			mirrorCleanup()
		}
	}
	return drv, cleanup, nil
}

// runSerialRX reads raw bytes off sp, decodes RawFrames via frame.Codec,
// and hands each to frames, using an accumulate-and-decode loop with
// exponential backoff on read errors.
func runSerialRX(ctx context.Context, sp serial.Port, frames chan<- frame.RawFrame, l *slog.Logger) {
	codec := frame.Codec{}
	buf := make([]byte, serialReadBufSize)
	acc := bytes.NewBuffer(nil)
	backoff := rxBackoffMin
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		n, err := sp.Read(buf)
		if n > 0 {
			acc.Write(buf[:n])
			if derr := codec.DecodeStream(acc, func(fr frame.RawFrame) {
				if fr.Kind == frame.KindGarbage {
					metrics.IncSerialGarbage(len(fr.Garbage))
				} else {
					metrics.IncSerialRx()
				}
				select {
				case frames <- fr:
				case <-ctx.Done():
				}
			}); derr != nil {
				metrics.IncMalformed()
				l.Warn("serial_frame_checksum_mismatch", "error", derr)
			}
			frame.CompactBuffer(acc)
			backoff = rxBackoffMin
		}
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			var perr *os.PathError
			if errors.As(err, &perr) {
				return // device removed or fatal
			}
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				continue // transient EOF, e.g. serial read-timeout expiring
			}
			metrics.IncError(metrics.ErrSerialRead)
			l.Warn("serial_read_error", "error", err, "backoff", backoff)
			sleepFn(backoff)
			backoff *= 2
			if backoff > rxBackoffMax {
				backoff = rxBackoffMax
			}
		}
	}
}
