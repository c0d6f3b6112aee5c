package app

import (
	"os"
	"sync"
	"sync/atomic"

	"github.com/spf13/cast"
)

const testModeEnv = "AGROTRADE_TEST_MODE"

var (
	testMode     atomic.Bool
	testModeOnce sync.Once
)

func readTestMode() {
	testMode.Store(cast.ToBool(os.Getenv(testModeEnv)))
}

// InTestMode reports whether binaries should skip connecting to real services.
func InTestMode() bool {
	testModeOnce.Do(readTestMode)
	return testMode.Load()
}

// RefreshTestMode re-reads the flag after the environment changed.
func RefreshTestMode() {
	readTestMode()
}
