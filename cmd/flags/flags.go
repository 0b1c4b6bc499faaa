package flags

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/ruteri/silo-provisioner/common"
	"github.com/ruteri/silo-provisioner/httpserver"
	"github.com/ruteri/silo-provisioner/interfaces"
	"github.com/ruteri/silo-provisioner/provisioner"
	"github.com/urfave/cli/v2"
)

func SetupLogger(cCtx *cli.Context) (log *slog.Logger) {
	logJSON := cCtx.Bool(LogJsonFlag.Name)
	logDebug := cCtx.Bool(LogDebugFlag.Name)
	logUID := cCtx.Bool(LogUidFlag.Name)
	logService := cCtx.String("log-service")

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

func ConfigureServer(cCtx *cli.Context, logger *slog.Logger, listenAddr string) *httpserver.HTTPServerConfig {
	metricsAddr := cCtx.String("metrics-addr")
	enablePprof := cCtx.Bool("pprof")
	drainDuration := time.Duration(cCtx.Int64("drain-seconds")) * time.Second

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

// ProvisionerConfig collects the workflow options from the command line.
func ProvisionerConfig(cCtx *cli.Context) (provisioner.Config, error) {
	command, err := interfaces.ParseCommandCode(cCtx.String(CommandFlag.Name))
	if err != nil {
		return provisioner.Config{}, err
	}

	address, err := provisioner.ParseAddress(cCtx.String(ToAddrFlag.Name))
	if err != nil {
		return provisioner.Config{}, err
	}

	block, err := provisioner.ParseBlock(cCtx.String(BlockFlag.Name))
	if err != nil {
		return provisioner.Config{}, err
	}

	cfg := provisioner.Config{
		Command:       command,
		Address:       address,
		Block:         block,
		OverrideKey:   cCtx.String(PubkeyFlag.Name),
		Export:        cCtx.Bool(ExportFlag.Name),
		Verify:        cCtx.Bool(VerifyFlag.Name),
		SaveSignature: cCtx.Bool(SaveSigFlag.Name),
		HardwareModel: cCtx.String(HardwareModelFlag.Name),
	}
	if err := cfg.Validate(); err != nil {
		return provisioner.Config{}, fmt.Errorf("invalid provisioning options: %w", err)
	}
	return cfg, nil
}

var CommandFlag = &cli.StringFlag{
	Name:    "command",
	Value:   "00",
	Usage:   "command code sent to the tag: 00 sign, 55 mint, 56 export",
	EnvVars: []string{"SILO_COMMAND"},
}
var ToAddrFlag = &cli.StringFlag{
	Name:    "to-addr",
	Value:   "0000000000000000000000000000000000000000",
	Usage:   "destination address mixed into the challenge. 40-char hex string, 0x prefix optional",
	EnvVars: []string{"SILO_TO_ADDR"},
}
var BlockFlag = &cli.StringFlag{
	Name:    "block",
	Usage:   "32-byte hex block reference mixed into the challenge; random per tag if empty",
	EnvVars: []string{"SILO_BLOCK"},
}
var PubkeyFlag = &cli.StringFlag{
	Name:    "pubkey",
	Usage:   "public key to verify signatures with instead of the one read from the tag",
	EnvVars: []string{"SILO_PUBKEY"},
}
var ExportFlag = &cli.BoolFlag{
	Name:    "json",
	Usage:   "export an attestation record to the export directory, requires command 56",
	EnvVars: []string{"SILO_EXPORT"},
}
var VerifyFlag = &cli.BoolFlag{
	Name:    "verify",
	Usage:   "promote an exported attestation record to the verified directory",
	EnvVars: []string{"SILO_VERIFY"},
}
var SaveSigFlag = &cli.BoolFlag{
	Name:    "save-sig",
	Usage:   "save the signature of every verified tag to the signatures directory",
	EnvVars: []string{"SILO_SAVE_SIG"},
}
var ScanOnceFlag = &cli.BoolFlag{
	Name:    "scan-once",
	Usage:   "exit after a single tag has been processed",
	EnvVars: []string{"SILO_SCAN_ONCE"},
}
var MatchFileFlag = &cli.StringFlag{
	Name:    "match-file",
	Usage:   "device registry (JSON or JSONC) to match scanned tags against",
	EnvVars: []string{"SILO_MATCH_FILE"},
}
var HardwareModelFlag = &cli.StringFlag{
	Name:    "hardware-model",
	Value:   provisioner.ModelATECC608A,
	Usage:   "secure element model recorded in exported attestations: ATECC608A or ATECC608B",
	EnvVars: []string{"SILO_HARDWARE_MODEL"},
}
var DataDirFlag = &cli.StringFlag{
	Name:    "data-dir",
	Value:   ".",
	Usage:   "record store location: a directory, file:// or memory://",
	EnvVars: []string{"SILO_DATA_DIR"},
}
var EmulateFlag = &cli.BoolFlag{
	Name:    "emulate",
	Usage:   "scan a single emulated tag instead of a PC/SC reader",
	EnvVars: []string{"SILO_EMULATE"},
}
var PollIntervalFlag = &cli.DurationFlag{
	Name:    "poll-interval",
	Value:   time.Second,
	Usage:   "how long to wait for reader status changes before re-listing readers",
	EnvVars: []string{"SILO_POLL_INTERVAL"},
}
var StatusAddrFlag = &cli.StringFlag{
	Name:    "status-addr",
	Usage:   "address to serve provisioning status on; disabled if empty",
	EnvVars: []string{"SILO_STATUS_ADDR"},
}

var LogJsonFlag = &cli.BoolFlag{
	Name:  "log-json",
	Value: false,
	Usage: "log in JSON format",
}
var LogDebugFlag = &cli.BoolFlag{
	Name:  "log-debug",
	Value: false,
	Usage: "log debug messages",
}
var LogUidFlag = &cli.BoolFlag{
	Name:  "log-uid",
	Value: false,
	Usage: "generate a uuid and add to all log messages",
}

var LogServiceFlagFn = func(service string) *cli.StringFlag {
	return &cli.StringFlag{
		Name:  "log-service",
		Value: service,
		Usage: "add 'service' tag to logs",
	}
}

var PprofFlag = &cli.BoolFlag{
	Name:  "pprof",
	Value: false,
	Usage: "enable pprof debug endpoint",
}
var DrainSecondsFlag = &cli.Int64Flag{
	Name:  "drain-seconds",
	Value: 45,
	Usage: "seconds to wait in drain HTTP request",
}
var MetricsAddrFlag = &cli.StringFlag{
	Name:  "metrics-addr",
	Value: "",
	Usage: "address to listen on for Prometheus metrics; disabled if empty",
}

var CommonFlags = []cli.Flag{
	LogJsonFlag,
	LogDebugFlag,
	LogUidFlag,
	LogServiceFlagFn(common.PackageName),
}

var ServerFlags = []cli.Flag{
	StatusAddrFlag,
	PprofFlag,
	DrainSecondsFlag,
	MetricsAddrFlag,
}
