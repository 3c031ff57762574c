package testutil

import (
	"log"
	"os"
	"testing"
	"time"
)

func TestLogger(t *testing.T) *log.Logger {
	logger := log.New(os.Stdout, "[test] ", log.LstdFlags)
	t.Cleanup(func() {
		logger.SetOutput(os.Stderr)
	})
	return logger
}

// Clock returns a clock frozen at now.
func Clock(now time.Time) func() time.Time {
	return func() time.Time { return now }
}

func Ptr[T any](v T) *T {
	return &v
}
