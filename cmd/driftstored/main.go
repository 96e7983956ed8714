// Command driftstored starts the engine, recovers its root pointer, and
// idles until interrupted. It is a minimal exerciser for the metablock
// ring and thread-per-core runtime, not a production server.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"driftstore/internal/config"
	"driftstore/pkg/engine"
)

func main() {
	log, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintln(os.Stderr, "driftstored: logger init failed:", err)
		os.Exit(1)
	}
	defer log.Sync()

	cfg := config.Load()

	e, err := engine.Open(cfg, log, func(found bool, root engine.RootPointer, err error) {
		if err != nil {
			log.Error("recovery failed", zap.Error(err))
			return
		}
		log.Info("recovered root pointer", zap.Bool("found", found),
			zap.Uint64("offset", root.Offset), zap.Uint64("length", root.Length))
	})
	if err != nil {
		log.Fatal("engine failed to start", zap.Error(err))
	}
	defer e.Close()

	log.Info("driftstored running", zap.String("run_id", e.RunID))

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("shutting down")
}
