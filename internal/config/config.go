// Package config loads the engine's runtime settings the same way this
// module's reference CLI tooling does it: flags for anything the operator
// sets per-invocation, environment variables (optionally from a .env
// file) for anything deployment-specific.
package config

import (
	"flag"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

var (
	workersFlag  = flag.Int("workers", 0, "number of data workers (0 = DRIFTSTORE_WORKERS, else 1)")
	affinityFlag = flag.Bool("affinity", false, "pin each worker to its own CPU core")
	dataDirFlag  = flag.String("data-dir", "", "directory holding the metablock ring file")
)

// Config holds the settings the engine needs to start: how many workers
// to run, whether to pin them to cores, and where the ring file lives.
type Config struct {
	Workers      int
	Affinity     bool
	DataDir      string
	BlockingPool int
	AlarmMS      int
}

// Load reads flags, then falls back to environment variables (loaded from
// a .env file in the working directory if one is present) for anything a
// flag left at its zero value.
func Load() Config {
	if !flag.Parsed() {
		flag.Parse()
	}
	_ = godotenv.Load(".env")

	cfg := Config{
		Workers:      *workersFlag,
		Affinity:     *affinityFlag,
		DataDir:      *dataDirFlag,
		BlockingPool: envInt("BLOCKING_POOL_SIZE", 4),
		AlarmMS:      envInt("ALARM_TICK_MS", 0),
	}
	if cfg.Workers == 0 {
		cfg.Workers = envInt("DRIFTSTORE_WORKERS", 0)
	}
	if !cfg.Affinity {
		cfg.Affinity = os.Getenv("DRIFTSTORE_AFFINITY") == "1"
	}
	if cfg.DataDir == "" {
		cfg.DataDir = os.Getenv("DRIFTSTORE_DATA_DIR")
	}
	return cfg
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
