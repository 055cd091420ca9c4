package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"

	"github.com/zwavelink/zwave-driver/internal/cnl"
	"github.com/zwavelink/zwave-driver/internal/hub"
	"github.com/zwavelink/zwave-driver/internal/metrics"
	"github.com/zwavelink/zwave-driver/internal/server"
)

// Helper implementations moved to dedicated files: version.go, config.go,
// logger.go, hub_init.go, metrics_logger.go, backend.go, mdns.go.

func main() {
	cfg, showVersion := parseFlags()
	if showVersion {
		fmt.Printf("zwave-driver %s (commit %s, built %s)\n", version, commit, date)
		return
	}
	if cfg == nil {
		os.Exit(1)
	}
	l := setupLogger(cfg.logFormat, cfg.logLevel)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var wg sync.WaitGroup
	startMetricsLogger(ctx, cfg.logMetricsEvery, l, &wg)

	var h *hub.Hub
	if cfg.eventFeedAddr != "" {
		h = initHub(cfg, l)
	}

	_, cleanup, berr := initDriver(ctx, cfg, h, l, &wg)
	if berr != nil {
		l.Error("driver_init_error", "error", berr)
		return
	}
	defer cleanup()

	var srv *server.Server
	if h != nil {
		srv = server.NewServer(
			server.WithHub(h),
			server.WithCodec(&cnl.Codec{}),
			server.WithLogger(l),
			server.WithMaxClients(cfg.maxClients),
			server.WithHandshakeTimeout(cfg.handshakeTO),
			server.WithReadDeadline(cfg.clientReadTO),
		)
		srv.SetListenAddr(cfg.eventFeedAddr)
		go func() {
			if err := srv.Serve(ctx); err != nil {
				l.Error("event_feed_server_error", "error", err)
				cancel()
			}
		}()

		go func() {
			if !cfg.mdnsEnable {
				return
			}
			select {
			case <-srv.Ready():
			case <-ctx.Done():
				return
			}
			addr := srv.Addr()
			var portNum int
			if _, p, err := net.SplitHostPort(addr); err == nil {
				if pn, perr := strconv.Atoi(p); perr == nil {
					portNum = pn
				}
			}
			if portNum == 0 {
				lastColon := strings.LastIndex(addr, ":")
				if lastColon >= 0 {
					if pn, perr := strconv.Atoi(addr[lastColon+1:]); perr == nil {
						portNum = pn
					}
				}
			}
			cleanupMDNS, err := startMDNS(ctx, cfg, portNum)
			if err != nil {
				l.Warn("mdns_start_failed", "error", err)
				return
			}
			l.Info("mdns_started", "service", mdnsServiceType, "name", cfg.mdnsName, "port", portNum)
			go func() { <-ctx.Done(); cleanupMDNS() }()
		}()
	}

	metrics.SetReadinessFunc(func() bool {
		if srv != nil {
			select {
			case <-srv.Ready():
			default:
				return false
			}
		}
		return ctx.Err() == nil
	})
	if cfg.metricsAddr != "" {
		metrics.InitBuildInfo(version, commit, date)
		srvHTTP := metrics.StartHTTP(cfg.metricsAddr)
		defer func() { _ = srvHTTP.Shutdown(context.Background()) }()
	}

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	s := <-sigCh
	l.Info("shutdown_signal", "signal", s.String())
	cancel()
	wg.Wait()
}
