// diffcalcd recomputes beatmap difficulty metadata.
//
// Usage:
//
//	diffcalcd serve                 run the HTTP API
//	diffcalcd all                   process every stored beatmap
//	diffcalcd beatmaps <id>...      process specific beatmaps
//
// Configuration comes from the environment; see internal/config.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	api "github.com/osukit/difficulty-processor/internal/api/http"
	"github.com/osukit/difficulty-processor/internal/auth"
	"github.com/osukit/difficulty-processor/internal/config"
	"github.com/osukit/difficulty-processor/internal/db"
	"github.com/osukit/difficulty-processor/internal/processor"
	"github.com/osukit/difficulty-processor/internal/rulesets"
	"github.com/osukit/difficulty-processor/internal/rulesets/catch"
	"github.com/osukit/difficulty-processor/internal/rulesets/mania"
	"github.com/osukit/difficulty-processor/internal/rulesets/osu"
	"github.com/osukit/difficulty-processor/internal/rulesets/taiko"
	"github.com/osukit/difficulty-processor/internal/store"
	"github.com/osukit/difficulty-processor/pkg/logging"
)

func main() {
	var mode string
	flag.StringVar(&mode, "mode", "all", "sub-pipelines to run: difficulty|legacy-score|all")
	flag.Parse()

	cfg := config.FromEnv()
	logger := logging.New()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	primary, err := db.Open(ctx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	if err != nil {
		cancel()
		log.Fatalf("db open failed: %v", err)
	}
	replica := primary
	if cfg.ReplicaDSN != "" {
		replica, err = db.Open(ctx, db.Driver(cfg.DBDriver), cfg.ReplicaDSN)
		if err != nil {
			cancel()
			log.Fatalf("replica open failed: %v", err)
		}
	}
	cancel()

	st := store.New(replica, primary)

	// Explicit registration; duplicate ids abort the run.
	reg, err := rulesets.NewRegistry(osu.New(), taiko.New(), catch.New(), mania.New())
	if err != nil {
		log.Fatalf("ruleset registry: %v", err)
	}

	proc, err := processor.New(reg, st, logger, processor.Options{
		RulesetIDs:      cfg.RulesetIDs,
		ProcessConverts: cfg.ProcessConverts,
		DryRun:          cfg.DryRun,
		WriteMetadata:   cfg.WriteMetadata,
	})
	if err != nil {
		log.Fatalf("processor: %v", err)
	}

	procMode, err := parseMode(mode)
	if err != nil {
		log.Fatal(err)
	}

	args := flag.Args()
	if len(args) == 0 {
		args = []string{"all"}
	}

	switch args[0] {
	case "serve":
		authSvc := auth.NewService(cfg.HMACSecret, cfg.APIUser, cfg.APIPassHash)
		srv := &api.Server{Store: st, Processor: proc, Registry: reg, Auth: authSvc, Log: logger}
		logger.Info("listening", "addr", cfg.HTTPAddr, "db", cfg.DBDriver)
		log.Fatal(http.ListenAndServe(cfg.HTTPAddr, srv.Router(cfg.CORSOrigins)))

	case "all":
		ids, err := st.AllBeatmapIDs(context.Background())
		if err != nil {
			log.Fatalf("list beatmaps: %v", err)
		}
		runBatch(logger, st, proc, procMode, ids, cfg.Workers)

	case "beatmaps":
		ids := make([]int, 0, len(args)-1)
		for _, a := range args[1:] {
			id, err := strconv.Atoi(a)
			if err != nil {
				log.Fatalf("bad beatmap id %q", a)
			}
			ids = append(ids, id)
		}
		runBatch(logger, st, proc, procMode, ids, cfg.Workers)

	default:
		log.Fatalf("unknown command %q (want serve, all or beatmaps)", args[0])
	}
}

func parseMode(s string) (processor.Mode, error) {
	switch s {
	case "all":
		return processor.ModeAll, nil
	case "difficulty":
		return processor.ModeDifficulty, nil
	case "legacy-score":
		return processor.ModeLegacyScore, nil
	}
	return 0, fmt.Errorf("unknown mode %q", s)
}

// runBatch fans the pipeline out over workers goroutines. Per-beatmap
// failures are logged and counted, never fatal to the run.
func runBatch(logger *slog.Logger, st *store.Store, proc *processor.Processor, mode processor.Mode, ids []int, workers int) {
	start := time.Now()

	g, ctx := errgroup.WithContext(context.Background())
	g.SetLimit(workers)

	failures := make(chan int, len(ids))
	for _, id := range ids {
		id := id
		g.Go(func() error {
			b, err := st.Beatmap(ctx, id)
			if err != nil {
				logger.Error("load failed", "beatmap", id, "err", err)
				failures <- id
				return nil
			}
			if err := proc.Process(ctx, b, mode); err != nil {
				logger.Error("processing failed", "err", err)
				failures <- id
			}
			return nil
		})
	}
	_ = g.Wait()
	close(failures)

	failed := 0
	for range failures {
		failed++
	}
	logger.Info("batch finished",
		"total", len(ids), "failed", failed, "elapsed", time.Since(start).Round(time.Millisecond))
	if failed > 0 {
		os.Exit(1)
	}
}
