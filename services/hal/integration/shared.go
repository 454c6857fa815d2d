// Package integration holds end-to-end tests that run the config service
// and the HAL together over a simulated sensor wire.
package integration

import (
	"context"
	"time"

	"github.com/cpk123/tank-level/bus"
)

func recvOrTimeout(ch <-chan *bus.Message, d time.Duration) (*bus.Message, error) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case m := <-ch:
		return m, nil
	case <-timer.C:
		return nil, context.DeadlineExceeded
	}
}
