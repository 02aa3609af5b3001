// Package main is the debug/telemetry surface of the emotion engine: it
// replays analyzer turn records from a JSONL stream through one persona
// session and prints the resulting states, trend and statistics.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/easeaico/emotion-engine/internal/config"
	"github.com/easeaico/emotion-engine/internal/emotion"
	"github.com/easeaico/emotion-engine/internal/repository"
	"github.com/easeaico/emotion-engine/internal/session"
	"github.com/easeaico/emotion-engine/internal/storage"
)

type stateOutput struct {
	PrimaryEmotion string             `json:"primary_emotion"`
	Intensity      float64            `json:"intensity"`
	Stability      float64            `json:"stability"`
	RecentChange   string             `json:"recent_change"`
	Description    string             `json:"description"`
	Emoji          string             `json:"emoji"`
	Emotions       map[string]float64 `json:"emotions"`
}

func main() {
	// .env is optional
	_ = godotenv.Load()

	configPath := flag.String("config", "", "path to YAML config file")
	sessionKey := flag.String("session", "default", "persona session key")
	inputPath := flag.String("input", "-", "JSONL file of analyzer turn records, - for stdin")
	trendN := flag.Int("trend", emotion.HistoryCapacity, "number of trend entries to print")
	verbose := flag.Bool("v", false, "enable debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx := context.Background()
	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to open store: %v", err)
	}
	defer closeStore()

	engine := session.NewEngine(session.Params{
		Store:      store,
		Options:    emotion.Options{Alpha: cfg.Alpha, StabilityNorm: cfg.StabilityNorm},
		HistoryCap: cfg.HistoryLimit,
		Logger:     logger,
	})
	go func() {
		for perr := range engine.Errors() {
			logger.Error("persistence failure", slog.Any("error", perr))
		}
	}()

	in := os.Stdin
	if *inputPath != "-" {
		f, err := os.Open(*inputPath)
		if err != nil {
			log.Fatalf("failed to open input: %v", err)
		}
		defer f.Close()
		in = f
	}

	if err := replay(ctx, engine, *sessionKey, in, os.Stdout); err != nil {
		log.Fatalf("replay failed: %v", err)
	}

	if err := engine.SaveNow(ctx, *sessionKey); err != nil {
		logger.Error("final save failed", slog.Any("error", err))
	}

	printSummary(ctx, engine, *sessionKey, *trendN, os.Stdout)
}

// replay feeds each JSONL turn record through the engine, printing the
// state after every accepted turn. Rejected turns are logged and skipped.
func replay(ctx context.Context, engine *session.Engine, key string, in io.Reader, out io.Writer) error {
	enc := json.NewEncoder(out)
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}

		var turn emotion.TurnResult
		if err := json.Unmarshal(raw, &turn); err != nil {
			return fmt.Errorf("line %d: failed to parse turn record: %w", line, err)
		}

		state, err := engine.Advance(ctx, key, turn)
		if err != nil {
			var verr *emotion.ValidationError
			var aerr *session.AnalysisError
			switch {
			case errors.As(err, &verr):
				slog.Warn("turn rejected", slog.Int("line", line), slog.Any("error", verr))
				continue
			case errors.As(err, &aerr):
				slog.Warn("analyzer failure, state unchanged", slog.Int("line", line), slog.Any("error", aerr))
				continue
			default:
				return fmt.Errorf("line %d: %w", line, err)
			}
		}

		if err := enc.Encode(formatState(state)); err != nil {
			return fmt.Errorf("failed to write state: %w", err)
		}
	}
	return scanner.Err()
}

func printSummary(ctx context.Context, engine *session.Engine, key string, trendN int, out io.Writer) {
	summary := struct {
		Current    stateOutput            `json:"current"`
		Trend      []emotion.HistoryEntry `json:"trend"`
		Statistics emotion.Statistics     `json:"statistics"`
	}{
		Current:    formatState(engine.Current(ctx, key)),
		Trend:      engine.Trend(ctx, key, trendN),
		Statistics: engine.Statistics(ctx, key),
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	_ = enc.Encode(summary)
}

func formatState(s emotion.State) stateOutput {
	emotions := make(map[string]float64, len(emotion.Labels))
	for _, l := range emotion.Labels {
		emotions[string(l)] = s.Vector[l]
	}
	return stateOutput{
		PrimaryEmotion: string(s.Primary),
		Intensity:      s.Intensity,
		Stability:      s.Stability,
		RecentChange:   s.RecentChange,
		Description:    emotion.Describe(s),
		Emoji:          emotion.Emoji(s.Primary, s.Intensity),
		Emotions:       emotions,
	}
}

// openStore selects the persistence backend from configuration.
func openStore(ctx context.Context, cfg config.Config) (storage.Store, func(), error) {
	switch cfg.Backend {
	case config.BackendFile:
		return storage.NewFileStore(cfg.DataDir), func() {}, nil
	case config.BackendRedis:
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, nil, fmt.Errorf("failed to ping redis: %w", err)
		}
		return storage.NewRedisStore(client, cfg.RedisPrefix), func() { _ = client.Close() }, nil
	case config.BackendPostgres:
		store, err := repository.NewStore(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}
