package flags

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/ruteri/storageitem-service/common"
	"github.com/ruteri/storageitem-service/config"
	"github.com/ruteri/storageitem-service/httpserver"
	"github.com/urfave/cli/v2"
)

func SetupLogger(cCtx *cli.Context) (log *slog.Logger) {
	logJSON := cCtx.Bool(LogJsonFlag.Name)
	logDebug := cCtx.Bool(LogDebugFlag.Name)
	logUID := cCtx.Bool(LogUidFlag.Name)
	logService := cCtx.String(LogServiceFlag.Name)

	logger := common.SetupLogger(&common.LoggingOpts{
		Debug:   logDebug,
		JSON:    logJSON,
		Service: logService,
		Version: common.Version,
	})

	if logUID {
		id := uuid.Must(uuid.NewRandom())
		logger = logger.With("uid", id.String())
	}
	return logger
}

func ConfigureServer(cCtx *cli.Context, logger *slog.Logger) *httpserver.HTTPServerConfig {
	listenAddr := cCtx.String(ListenAddrFlag.Name)
	metricsAddr := cCtx.String(MetricsAddrFlag.Name)
	enablePprof := cCtx.Bool(PprofFlag.Name)
	drainDuration := time.Duration(cCtx.Int64(DrainSecondsFlag.Name)) * time.Second

	return &httpserver.HTTPServerConfig{
		ListenAddr:               listenAddr,
		MetricsAddr:              metricsAddr,
		Log:                      logger,
		EnablePprof:              enablePprof,
		DrainDuration:            drainDuration,
		GracefulShutdownDuration: 30 * time.Second,
		ReadTimeout:              60 * time.Second,
		WriteTimeout:             30 * time.Second,
	}
}

// LoadConfig reads the optional config file and applies explicitly set flags on top.
func LoadConfig(cCtx *cli.Context) (*config.Config, error) {
	cfg := config.Default()
	if path := cCtx.String(ConfigFileFlag.Name); path != "" {
		var err error
		cfg, err = config.Load(path)
		if err != nil {
			return nil, err
		}
	}

	if cCtx.IsSet(DefaultStorageFlag.Name) {
		cfg.DefaultStorage = cCtx.String(DefaultStorageFlag.Name)
	}
	if cCtx.IsSet(UploadPathFlag.Name) {
		cfg.UploadPath = cCtx.String(UploadPathFlag.Name)
	}
	if cCtx.IsSet(TempDirFlag.Name) {
		cfg.TempDir = cCtx.String(TempDirFlag.Name)
	}
	if cCtx.IsSet(MaxUploadBytesFlag.Name) {
		cfg.MaxUploadBytes = cCtx.Int64(MaxUploadBytesFlag.Name)
	}
	if cCtx.IsSet(MaxFileSizeFlag.Name) {
		cfg.MaxFileSize = cCtx.Int64(MaxFileSizeFlag.Name)
	}
	if cCtx.IsSet(PathStrategyFlag.Name) {
		cfg.PathStrategy = cCtx.String(PathStrategyFlag.Name)
	}
	if err := cfg.AddStorageFlags(cCtx.StringSlice(StorageFlag.Name)); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

var ListenAddrFlag = &cli.StringFlag{
	Name:    "listen-addr",
	Value:   "127.0.0.1:8080",
	Usage:   "address to listen on for API",
	EnvVars: []string{"UPLOAD_LISTEN_ADDR"},
}

var ConfigFileFlag = &cli.StringFlag{
	Name:    "config",
	Usage:   "path to a YAML configuration file",
	EnvVars: []string{"UPLOAD_CONFIG"},
}

var DefaultStorageFlag = &cli.StringFlag{
	Name:    "default-storage",
	Usage:   "storage used when a request names none",
	EnvVars: []string{"UPLOAD_DEFAULT_STORAGE"},
}

var UploadPathFlag = &cli.StringFlag{
	Name:    "upload-path",
	Value:   config.DefaultUploadPath,
	Usage:   "URL path intercepted for uploads",
	EnvVars: []string{"UPLOAD_PATH"},
}

var TempDirFlag = &cli.StringFlag{
	Name:    "temp-dir",
	Usage:   "directory for staged uploads (system temp dir if empty)",
	EnvVars: []string{"UPLOAD_TEMP_DIR"},
}

var MaxUploadBytesFlag = &cli.Int64Flag{
	Name:    "max-upload-bytes",
	Value:   config.DefaultMaxUploadBytes,
	Usage:   "maximum request body size in bytes, 0 for no limit",
	EnvVars: []string{"UPLOAD_MAX_UPLOAD_BYTES"},
}

var MaxFileSizeFlag = &cli.Int64Flag{
	Name:    "max-file-size",
	Usage:   "maximum size of a single uploaded file in bytes, 0 for no limit",
	EnvVars: []string{"UPLOAD_MAX_FILE_SIZE"},
}

var StorageFlag = &cli.StringSliceFlag{
	Name:    "storage",
	Usage:   "storage as name=uri (file://, s3://, ipfs://, vault://, github://). Repeat a name to mirror",
	EnvVars: []string{"UPLOAD_STORAGE"},
}

var PathStrategyFlag = &cli.StringFlag{
	Name:    "path-strategy",
	Value:   config.PathStrategyDefault,
	Usage:   "path generator for uploads: 'default' or 'dated'",
	EnvVars: []string{"UPLOAD_PATH_STRATEGY"},
}

var LogJsonFlag = &cli.BoolFlag{
	Name:    "log-json",
	Value:   false,
	Usage:   "log in JSON format",
	EnvVars: []string{"UPLOAD_LOG_JSON"},
}
var LogDebugFlag = &cli.BoolFlag{
	Name:    "log-debug",
	Value:   false,
	Usage:   "log debug messages",
	EnvVars: []string{"UPLOAD_LOG_DEBUG"},
}
var LogUidFlag = &cli.BoolFlag{
	Name:    "log-uid",
	Value:   false,
	Usage:   "generate a uuid and add to all log messages",
	EnvVars: []string{"UPLOAD_LOG_UID"},
}
var LogServiceFlag = &cli.StringFlag{
	Name:    "log-service",
	Value:   "storageitem-service",
	Usage:   "add 'service' tag to logs",
	EnvVars: []string{"UPLOAD_LOG_SERVICE"},
}

var PprofFlag = &cli.BoolFlag{
	Name:    "pprof",
	Value:   false,
	Usage:   "enable pprof debug endpoint",
	EnvVars: []string{"UPLOAD_PPROF"},
}
var DrainSecondsFlag = &cli.Int64Flag{
	Name:    "drain-seconds",
	Value:   45,
	Usage:   "seconds to wait in drain HTTP request",
	EnvVars: []string{"UPLOAD_DRAIN_SECONDS"},
}
var MetricsAddrFlag = &cli.StringFlag{
	Name:    "metrics-addr",
	Value:   "127.0.0.1:8090",
	Usage:   "address to listen on for Prometheus metrics",
	EnvVars: []string{"UPLOAD_METRICS_ADDR"},
}

var CommonFlags = []cli.Flag{
	LogJsonFlag,
	LogDebugFlag,
	LogUidFlag,
	LogServiceFlag,
	PprofFlag,
	DrainSecondsFlag,
	MetricsAddrFlag,
}

var UploadFlags = []cli.Flag{
	ListenAddrFlag,
	ConfigFileFlag,
	DefaultStorageFlag,
	UploadPathFlag,
	TempDirFlag,
	MaxUploadBytesFlag,
	MaxFileSizeFlag,
	StorageFlag,
	PathStrategyFlag,
}
