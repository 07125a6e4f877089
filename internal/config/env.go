package config

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
)

// DefaultEnvFiles are tried in order by LoadEnv.
var DefaultEnvFiles = []string{".env", ".env.local"}

// LoadEnv loads the first readable env file among paths (DefaultEnvFiles when
// none are given). Variables already present in the process environment are
// never overwritten. Missing files are not an error.
func LoadEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = DefaultEnvFiles
	}
	for _, p := range paths {
		if _, err := os.Stat(p); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return err
		}
		slog.Debug("Loaded environment variables", "file", p)
		return nil
	}
	return nil
}
