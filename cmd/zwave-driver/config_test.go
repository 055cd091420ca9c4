package main

import (
	"testing"
	"time"
)

func baseConfig() *appConfig {
	return &appConfig{
		serialDev:     "/dev/null",
		baud:          115200,
		serialReadTO:  10 * time.Millisecond,
		ownNodeID:     1,
		nodeIdType:    "8bit",
		logFormat:     "text",
		logLevel:      "info",
		hubBuffer:     8,
		hubPolicy:     "drop",
		eventFeedAddr: ":20000",
		maxClients:    0,
		handshakeTO:   time.Second,
		clientReadTO:  time.Second,
	}
}

func TestConfigValidate_OK(t *testing.T) {
	if err := baseConfig().validate(); err != nil {
		t.Fatalf("expected ok got %v", err)
	}
}

func TestConfigValidate_Errors(t *testing.T) {
	tests := []struct {
		name string
		mod  func(*appConfig)
	}{
		{"badFormat", func(c *appConfig) { c.logFormat = "xx" }},
		{"badLevel", func(c *appConfig) { c.logLevel = "nope" }},
		{"badNodeIdType", func(c *appConfig) { c.nodeIdType = "32bit" }},
		{"badPolicy", func(c *appConfig) { c.hubPolicy = "x" }},
		{"badHubBuf", func(c *appConfig) { c.hubBuffer = 0 }},
		{"badBaud", func(c *appConfig) { c.baud = 0 }},
		{"badSerialTO", func(c *appConfig) { c.serialReadTO = 0 }},
		{"badOwnNodeID", func(c *appConfig) { c.ownNodeID = 0 }},
		{"badHandshakeTO", func(c *appConfig) { c.handshakeTO = 0 }},
		{"badClientReadTO", func(c *appConfig) { c.clientReadTO = 0 }},
		{"badMaxClients", func(c *appConfig) { c.maxClients = -1 }},
		{"badNetworkKeyHex", func(c *appConfig) { c.networkKey = "not-hex" }},
		{"badNetworkKeyLen", func(c *appConfig) { c.networkKey = "aabb" }},
		{"badCacheMirrorDB", func(c *appConfig) { c.cacheMirrorDB = -1 }},
	}
	for _, tc := range tests {
		base := baseConfig()
		tc.mod(base)
		if err := base.validate(); err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
	}
}

func TestConfigValidate_NetworkKeyOK(t *testing.T) {
	base := baseConfig()
	base.networkKey = "00112233445566778899aabbccddeeff"
	if err := base.validate(); err != nil {
		t.Fatalf("expected ok got %v", err)
	}
}
