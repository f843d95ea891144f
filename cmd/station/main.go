package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"carecount/internal/config"
	"carecount/internal/listener"
	"carecount/internal/pipeline"
	"carecount/internal/recognizer"
	"carecount/internal/remote"
	"carecount/internal/session"
	"carecount/internal/storage"
	"carecount/internal/vocab"
)

func main() {
	cfg, err := config.Load()
	must(err)

	db, err := storage.Open(cfg.DBPath)
	must(err)
	defer db.Close()

	voc, err := vocab.Load(cfg.VocabPath)
	must(err)
	norm := pipeline.NewNormalizer(voc)

	chain, err := recognizer.BuildChain(cfg, norm)
	must(err)

	var store pipeline.ItemStore = db
	if cfg.RemoteBaseURL != "" {
		store = remote.NewClient(cfg)
	}
	logsvc := pipeline.NewLogService(db, pipeline.NewReconciler(store), norm)

	loc, err := time.LoadLocation(cfg.Timezone)
	must(err)
	policy, err := session.NewPolicy(cfg.SessionCutoffHour, cfg.SessionIdleMin, loc)
	must(err)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Printf("station watching %s (every %ds)\n", cfg.StationDropDir, cfg.StationIntervalSec)
	svc := listener.NewService(db, cfg, chain, logsvc, policy)
	must(svc.Run(ctx))
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
