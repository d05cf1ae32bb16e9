package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/alexjbarnes/disksync/internal/config"
	"github.com/alexjbarnes/disksync/internal/journal"
	"github.com/alexjbarnes/disksync/internal/logging"
	"github.com/alexjbarnes/disksync/internal/syncer"
	"github.com/alexjbarnes/disksync/internal/yadisk"
)

var Version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logFile, err := logging.OpenLogFile(cfg.LogFilePath)
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}
	defer logFile.Close()

	logger := logging.NewLogger(cfg.Environment, logFile)
	logger.Info("disksync starting",
		slog.String("version", Version),
		slog.String("dir", cfg.SyncFolderPath),
		slog.String("cloud_folder", cfg.CloudFolderName),
		slog.Duration("period", cfg.SyncPeriod),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Construction-time failures (bad token, unreachable folder) are
	// fatal before the loop ever starts.
	client, err := yadisk.New(ctx, cfg.YandexToken, cfg.CloudFolderName)
	if err != nil {
		return fmt.Errorf("connecting to Yandex Disk: %w", err)
	}

	jnl, err := journal.Open(cfg.JournalPath)
	if err != nil {
		return fmt.Errorf("opening journal: %w", err)
	}
	defer jnl.Close()

	scanner := syncer.NewScanner(cfg.SyncFolderPath, cfg.IgnorePatterns, logger)
	engine := syncer.NewEngine(&diskStorage{client: client}, scanner, jnl, logger)
	loop := syncer.NewLoop(engine, cfg.SyncPeriod, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return loop.Run(gctx)
	})

	defer logger.Info("disksync stopped")
	return g.Wait()
}

// diskStorage adapts the Yandex Disk client to the engine's Storage
// interface; the only translation is the listing type.
type diskStorage struct {
	client *yadisk.Client
}

func (d *diskStorage) Upload(ctx context.Context, localPath, name string) error {
	return d.client.Upload(ctx, localPath, name)
}

func (d *diskStorage) Overwrite(ctx context.Context, localPath, name string) error {
	return d.client.Overwrite(ctx, localPath, name)
}

func (d *diskStorage) Delete(ctx context.Context, name string) error {
	return d.client.Delete(ctx, name)
}

func (d *diskStorage) List(ctx context.Context) (map[string]syncer.RemoteFile, error) {
	remote, err := d.client.List(ctx)
	if err != nil {
		return nil, err
	}

	files := make(map[string]syncer.RemoteFile, len(remote))
	for name, f := range remote {
		files[name] = syncer.RemoteFile{Name: f.Name, Size: f.Size, Modified: f.Modified}
	}

	return files, nil
}
