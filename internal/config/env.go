package config

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"git.home.luguber.info/inful/modjar/internal/logfields"
)

// envFiles are read in order; later files override earlier ones.
var envFiles = []string{".env", ".env.local"}

type lookupFunc func(string) (string, bool)

// envLookup resolves ${VAR} references in the build file: the process
// environment first, then the env files in dir. The process environment is
// never modified. Unreadable files are skipped with a warning.
func envLookup(dir string) lookupFunc {
	vars := map[string]string{}
	for _, name := range envFiles {
		p := filepath.Join(dir, name)
		if _, err := os.Stat(p); err != nil {
			continue
		}
		read, err := godotenv.Read(p)
		if err != nil {
			slog.Warn("Failed to read environment file", logfields.Path(p), logfields.Error(err))
			continue
		}
		for k, v := range read {
			vars[k] = v
		}
		slog.Debug("Read environment file", logfields.Path(p), logfields.Count(len(read)))
	}
	return func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := vars[key]
		return v, ok
	}
}

func expand(data []byte, lookup lookupFunc) []byte {
	return []byte(os.Expand(string(data), func(key string) string {
		v, _ := lookup(key)
		return v
	}))
}
