// Package guard flips the binaries into test mode when imported by a test.
package guard

import (
	"os"
	"sync"
)

// EnvKey is the variable checked by app.InTestMode.
const EnvKey = "AGROTRADE_TEST_MODE"

// Defaults are applied only when the variable is unset so CI can override them.
var Defaults = map[string]string{
	"JWT_SECRET":    "test-secret-test-secret-test-secret!",
	"GOTENBERG_URL": "http://127.0.0.1:0",
	"SMTP_HOST":     "",
}

var once sync.Once

// Ensure switches the process into test mode. It is idempotent.
func Ensure() {
	once.Do(func() {
		if os.Getenv(EnvKey) == "" {
			_ = os.Setenv(EnvKey, "1")
		}
		for key, value := range Defaults {
			if _, ok := os.LookupEnv(key); !ok {
				_ = os.Setenv(key, value)
			}
		}
	})
}

func init() {
	Ensure()
}
