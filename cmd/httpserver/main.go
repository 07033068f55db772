package main

import (
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/ruteri/storageitem-service/cmd/flags"
	"github.com/ruteri/storageitem-service/common"
	"github.com/ruteri/storageitem-service/config"
	"github.com/ruteri/storageitem-service/httpserver"
	"github.com/ruteri/storageitem-service/metrics"
	"github.com/ruteri/storageitem-service/plugins/pathgen/dated"
	"github.com/ruteri/storageitem-service/plugins/postsave/auditlog"
	"github.com/ruteri/storageitem-service/plugins/presave/digest"
	"github.com/ruteri/storageitem-service/plugins/presave/imagesize"
	"github.com/ruteri/storageitem-service/plugins/presave/sniff"
	"github.com/ruteri/storageitem-service/plugins/prevalidate/sizelimit"
	"github.com/ruteri/storageitem-service/storage"
	"github.com/ruteri/storageitem-service/upload"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:    "storageitem-server",
		Usage:   "Ingest uploads into named storage backends",
		Version: common.Version,
		Flags:   append(flags.UploadFlags, flags.CommonFlags...),
		Action:  run,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func run(cCtx *cli.Context) error {
	logger := flags.SetupLogger(cCtx)

	cfg, err := flags.LoadConfig(cCtx)
	if err != nil {
		logger.Error("Invalid configuration", "err", err)
		return err
	}

	storages, err := storage.BuildRegistry(storage.NewStorageBackendFactory(logger), cfg.StorageURIs(), cfg.DefaultStorage, logger)
	if err != nil {
		logger.Error("Failed to create storage backends", "err", err)
		return err
	}
	for _, name := range storages.Names() {
		backend, _ := storages.Backend(name)
		if !backend.Available(cCtx.Context) {
			logger.Warn("Storage backend is not available", "storage", name, "location", backend.LocationURI())
		}
	}

	if err := registerPlugins(upload.DefaultPlugins, cfg, logger); err != nil {
		logger.Error("Failed to register plugins", "err", err)
		return err
	}

	metricsSrv, err := metrics.New(common.PackageName, cCtx.String(flags.MetricsAddrFlag.Name))
	if err != nil {
		logger.Error("Failed to create metrics server", "err", err)
		return err
	}

	factory := upload.NewFactory(storages, upload.DefaultPlugins, upload.Config{
		DefaultStorage: cfg.DefaultStorage,
		TempDir:        cfg.TempDir,
		Metrics:        metricsSrv.Upload(),
	}, logger)

	handler := httpserver.NewHandler(factory, storages, httpserver.HandlerConfig{
		UploadPath:     cfg.UploadPath,
		MaxUploadBytes: cfg.MaxUploadBytes,
	}, logger)

	srvCfg := flags.ConfigureServer(cCtx, logger)
	srvCfg.MetricsServer = metricsSrv

	server, err := httpserver.New(srvCfg, handler)
	if err != nil {
		logger.Error("Failed to create server", "err", err)
		return err
	}

	logger.Info("Starting server",
		"storages", storages.Names(),
		"defaultStorage", storages.DefaultStorage(),
		"uploadPath", cfg.UploadPath)
	server.RunInBackground()

	exit := make(chan os.Signal, 1)
	signal.Notify(exit, os.Interrupt, syscall.SIGTERM)

	logger.Info("Server is running, press Ctrl+C to stop")
	<-exit
	logger.Info("Shutdown signal received")

	server.Shutdown()
	logger.Info("Server shutdown complete")
	return nil
}

// registerPlugins adds the built-in hooks selected by cfg. Registration order is
// execution order, so sniffing runs before the hooks that read the content type.
func registerPlugins(plugins *upload.Plugins, cfg *config.Config, logger *slog.Logger) error {
	maxFileSize := cfg.MaxFileSize
	register := []error{
		plugins.PreValidate.Register("size-limit", func() upload.PreValidateHook { return sizelimit.New(maxFileSize) }),
	}

	if cfg.Plugins.Sniff {
		register = append(register, plugins.PreSave.Register("sniff", func() upload.PreSaveHook { return sniff.New(false) }))
	}
	if cfg.Plugins.Digest {
		register = append(register, plugins.PreSave.Register("digest", func() upload.PreSaveHook { return digest.New() }))
	}
	if cfg.Plugins.ImageSize {
		register = append(register, plugins.PreSave.Register("image-size", func() upload.PreSaveHook { return imagesize.New() }))
	}
	if cfg.Plugins.AuditLog {
		register = append(register, plugins.PostSave.Register("audit-log", func() upload.PostSaveHook { return auditlog.New(logger) }))
	}

	switch cfg.PathStrategy {
	case "", config.PathStrategyDefault:
	case config.PathStrategyDated:
		register = append(register, plugins.PathGenerators.Register("dated", func() upload.PathGenerator { return dated.New() }))
	default:
		return fmt.Errorf("unknown path strategy %q", cfg.PathStrategy)
	}

	for _, err := range register {
		if err != nil {
			return err
		}
	}
	return nil
}
