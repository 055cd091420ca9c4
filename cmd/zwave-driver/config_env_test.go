package main

import (
	"os"
	"testing"
	"time"
)

func TestApplyEnvOverrides_Basic(t *testing.T) {
	base := &appConfig{
		serialDev:       "/dev/null",
		baud:            115200,
		serialReadTO:    50 * time.Millisecond,
		ownNodeID:       1,
		nodeIdType:      "8bit",
		logFormat:       "text",
		logLevel:        "info",
		metricsAddr:     "",
		hubBuffer:       512,
		hubPolicy:       "drop",
		eventFeedAddr:   "",
		maxClients:      0,
		handshakeTO:     3 * time.Second,
		clientReadTO:    60 * time.Second,
		logMetricsEvery: 0,
		mdnsEnable:      false,
		mdnsName:        "",
	}

	os.Setenv("ZWAVE_DRIVER_BAUD", "230400")
	os.Setenv("ZWAVE_DRIVER_MDNS_ENABLE", "true")
	os.Setenv("ZWAVE_DRIVER_SERIAL_READ_TIMEOUT", "100ms")
	os.Setenv("ZWAVE_DRIVER_LOG_METRICS_INTERVAL", "5s")
	os.Setenv("ZWAVE_DRIVER_NODE_ID_TYPE", "16bit")
	os.Setenv("ZWAVE_DRIVER_EVENT_FEED_LISTEN", ":20000")
	t.Cleanup(func() {
		os.Unsetenv("ZWAVE_DRIVER_BAUD")
		os.Unsetenv("ZWAVE_DRIVER_MDNS_ENABLE")
		os.Unsetenv("ZWAVE_DRIVER_SERIAL_READ_TIMEOUT")
		os.Unsetenv("ZWAVE_DRIVER_LOG_METRICS_INTERVAL")
		os.Unsetenv("ZWAVE_DRIVER_NODE_ID_TYPE")
		os.Unsetenv("ZWAVE_DRIVER_EVENT_FEED_LISTEN")
	})
	if err := applyEnvOverrides(base, map[string]struct{}{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if base.baud != 230400 {
		t.Fatalf("expected baud override, got %d", base.baud)
	}
	if !base.mdnsEnable {
		t.Fatalf("expected mdnsEnable true")
	}
	if base.serialReadTO != 100*time.Millisecond {
		t.Fatalf("expected serialReadTO 100ms got %v", base.serialReadTO)
	}
	if base.logMetricsEvery != 5*time.Second {
		t.Fatalf("expected logMetricsEvery 5s got %v", base.logMetricsEvery)
	}
	if base.nodeIdType != "16bit" {
		t.Fatalf("expected nodeIdType override, got %q", base.nodeIdType)
	}
	if base.eventFeedAddr != ":20000" {
		t.Fatalf("expected eventFeedAddr override, got %q", base.eventFeedAddr)
	}
}

func TestApplyEnvOverrides_FlagPrecedence(t *testing.T) {
	base := &appConfig{baud: 115200}
	os.Setenv("ZWAVE_DRIVER_BAUD", "230400")
	t.Cleanup(func() { os.Unsetenv("ZWAVE_DRIVER_BAUD") })
	if err := applyEnvOverrides(base, map[string]struct{}{"baud": {}}); err != nil {
		t.Fatalf("err: %v", err)
	}
	if base.baud != 115200 {
		t.Fatalf("expected baud unchanged 115200 got %d", base.baud)
	}
}

func TestApplyEnvOverrides_BadInt(t *testing.T) {
	base := &appConfig{hubBuffer: 512}
	os.Setenv("ZWAVE_DRIVER_HUB_BUFFER", "notint")
	t.Cleanup(func() { os.Unsetenv("ZWAVE_DRIVER_HUB_BUFFER") })
	if err := applyEnvOverrides(base, map[string]struct{}{}); err == nil {
		t.Fatalf("expected error for bad integer")
	}
}
