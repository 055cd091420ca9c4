package main

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/zwavelink/zwave-driver/internal/cache"
	"github.com/zwavelink/zwave-driver/internal/cc"
	"github.com/zwavelink/zwave-driver/internal/command"
	"github.com/zwavelink/zwave-driver/internal/eventfeed"
	"github.com/zwavelink/zwave-driver/internal/frame"
	"github.com/zwavelink/zwave-driver/internal/hub"
	"github.com/zwavelink/zwave-driver/internal/metrics"
	"github.com/zwavelink/zwave-driver/internal/serial"
)

// fakeSerialPort implements serial.Port for tests.
type fakeSerialPort struct {
	reads [][]byte
	idx   int
	mu    sync.Mutex
}

func (f *fakeSerialPort) Read(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.idx >= len(f.reads) {
		time.Sleep(10 * time.Millisecond)
		return 0, io.EOF
	}
	chunk := f.reads[f.idx]
	f.idx++
	n := copy(p, chunk)
	return n, nil
}
func (f *fakeSerialPort) Write(p []byte) (int, error) { return len(p), nil }
func (f *fakeSerialPort) Close() error                { return nil }

func testLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

// appCommandWireFrame builds the Serial API wire bytes for an unsolicited
// ApplicationCommand carrying report as its embedded CC, as a controller
// would send it over the UART after receiving it from sourceNodeID.
func appCommandWireFrame(sourceNodeID command.NodeId, report cc.CC) []byte {
	ccPayload := cc.Encode(report)
	appCmd := &command.ApplicationCommand{SourceNodeID: sourceNodeID, CCPayload: ccPayload}
	wire := appCmd.Serialize()
	return frame.Data(frame.CommandTypeRequest, byte(command.FunctionApplicationCommand), wire).Serialize()
}

// TestInitDriverBasic verifies that an unsolicited BasicReport arriving
// over the serial link is parsed, applied to the cache, and broadcast to
// event-feed hub clients.
func TestInitDriverBasic(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	report := cc.BasicReport{CurrentValue: cc.LevelReport{Value: 42}}
	enc := appCommandWireFrame(7, report)

	openSerialPort = func(name string, baud int, to time.Duration) (serial.Port, error) {
		return &fakeSerialPort{reads: [][]byte{enc}}, nil
	}
	defer func() { openSerialPort = serial.Open }()

	h := hub.New()
	c := &hub.Client{Out: make(chan eventfeed.Event, 1), Closed: make(chan struct{})}
	h.Add(c)

	cfg := &appConfig{serialDev: "fake", baud: 115200, serialReadTO: 50 * time.Millisecond, ownNodeID: 1, nodeIdType: "8bit"}
	var wg sync.WaitGroup
	drv, cleanup, err := initDriver(ctx, cfg, h, testLogger(), &wg)
	if err != nil {
		t.Fatalf("initDriver: %v", err)
	}
	defer cleanup()

	select {
	case ev := <-c.Out:
		if ev.NodeID != 7 {
			t.Fatalf("unexpected event node id: %+v", ev)
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatal("timeout waiting for event-feed broadcast")
	}

	key := cache.Key{NodeID: 7, Endpoint: cc.RootEndpoint, CommandClass: cc.CommandClassBasic, Property: 0}
	cached, ok := drv.Cache().Get(key)
	if !ok {
		t.Fatalf("expected cache entry for node 7's BasicReport")
	}
	lvl, ok := cached.(cc.LevelReport)
	if !ok || lvl.Value != 42 {
		t.Fatalf("unexpected cached value: %+v", cached)
	}

	snap := metrics.Snap()
	if snap.SerialRx == 0 {
		t.Fatalf("expected SerialRx > 0, got %d", snap.SerialRx)
	}
}
