package main

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/zwavelink/zwave-driver/internal/metrics"
)

func startMetricsLogger(ctx context.Context, interval time.Duration, l *slog.Logger, wg *sync.WaitGroup) {
	if interval <= 0 {
		return
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-t.C:
				snap := metrics.Snap()
				l.Info("metrics_snapshot",
					"serial_rx", snap.SerialRx,
					"serial_tx", snap.SerialTx,
					"awaiter_matches", snap.AwaiterMatches,
					"awaiter_timeouts", snap.AwaiterTimeouts,
					"cache_writes", snap.CacheWrites,
					"security_failures", snap.SecurityFails,
					"tcp_rx", snap.TCPRx,
					"tcp_tx", snap.TCPTx,
					"hub_drops", snap.HubDrops,
					"errors", snap.Errors,
				)
			case <-ctx.Done():
				return
			}
		}
	}()
}
