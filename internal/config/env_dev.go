//go:build dev

package config

import (
	"os"

	"github.com/joho/godotenv"
)

// loadDotEnv reads .env, then lets .env.local override it. Variables already
// set in the process environment win over both.
func loadDotEnv() error {
	values := map[string]string{}
	for _, name := range []string{".env", ".env.local"} {
		if _, err := os.Stat(name); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return err
		}
		fileValues, err := godotenv.Read(name)
		if err != nil {
			return err
		}
		for key, value := range fileValues {
			values[key] = value
		}
	}
	for key, value := range values {
		if _, ok := os.LookupEnv(key); ok {
			continue
		}
		if err := os.Setenv(key, value); err != nil {
			return err
		}
	}
	return nil
}
