package main

import "time"

const (
	txQueueSize       = 1024 // capacity of the async serial TX ring
	eventQueueSize    = 256  // capacity of the unsolicited-command channel between actor and driver
	serialReadBufSize = 4096 // per read() buffer for the serial RX loop
	// largeBufferReclaimThreshold is not referenced by the RX loop: the
	// serial RX accumulation buffer is reclaimed only by frame.CompactBuffer,
	// which compacts it once its unread bytes fall to a quarter of its
	// capacity.
	largeBufferReclaimThreshold = 16 * 1024
	rxBackoffMin                = 20 * time.Millisecond
	rxBackoffMax                = 500 * time.Millisecond
)
