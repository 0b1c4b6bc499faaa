package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/benbjohnson/clock"
	"github.com/ruteri/silo-provisioner/cmd/flags"
	"github.com/ruteri/silo-provisioner/cryptoutils"
	"github.com/ruteri/silo-provisioner/httpserver"
	"github.com/ruteri/silo-provisioner/interfaces"
	"github.com/ruteri/silo-provisioner/provisioner"
	"github.com/ruteri/silo-provisioner/registry"
	"github.com/ruteri/silo-provisioner/storage"
	"github.com/ruteri/silo-provisioner/transport/emulator"
	"github.com/ruteri/silo-provisioner/transport/pcsc"
	"github.com/urfave/cli/v2"
)

var scanFlags = []cli.Flag{
	flags.CommandFlag,
	flags.ToAddrFlag,
	flags.BlockFlag,
	flags.PubkeyFlag,
	flags.ExportFlag,
	flags.VerifyFlag,
	flags.SaveSigFlag,
	flags.ScanOnceFlag,
	flags.MatchFileFlag,
	flags.HardwareModelFlag,
	flags.DataDirFlag,
	flags.EmulateFlag,
	flags.PollIntervalFlag,
}

func scanCommand() *cli.Command {
	allFlags := append([]cli.Flag{}, scanFlags...)
	allFlags = append(allFlags, flags.ServerFlags...)
	allFlags = append(allFlags, flags.CommonFlags...)

	return &cli.Command{
		Name:   "scan",
		Usage:  "Wait for tags and run the provisioning workflow on each",
		Flags:  allFlags,
		Action: runScan,
	}
}

func runScan(cCtx *cli.Context) error {
	logger := flags.SetupLogger(cCtx)

	cfg, err := flags.ProvisionerConfig(cCtx)
	if err != nil {
		return err
	}
	logger.Info("Provisioning options",
		"command", cfg.Command.String(),
		"toAddress", cfg.Address.Hex(),
		"randomBlock", cfg.Block == nil,
		"overrideKey", cfg.OverrideKey != "",
		"export", cfg.Export,
		"verify", cfg.Verify,
		"saveSignature", cfg.SaveSignature,
		"scanOnce", cCtx.Bool(flags.ScanOnceFlag.Name),
	)

	backend, err := storage.BackendFor(cCtx.String(flags.DataDirFlag.Name), logger)
	if err != nil {
		logger.Error("Failed to open record store", "err", err)
		return err
	}
	lifecycle := storage.NewLifecycle(backend, logger)

	var matcher *registry.Matcher
	if matchFile := cCtx.String(flags.MatchFileFlag.Name); matchFile != "" {
		reg, err := registry.Load(matchFile, logger)
		if err != nil {
			logger.Warn("Device registry unavailable, nothing will match", "err", err)
		} else {
			logger.Info("Loaded device registry", "devices", reg.Len())
		}
		matcher = registry.NewMatcher(reg, registry.NewTerminalDisplay(os.Stdout, logger), logger)
	}

	verifier := cryptoutils.NewSignatureVerifier(cryptoutils.P256Verifier{})
	orchestrator, err := provisioner.NewOrchestrator(cfg, lifecycle, verifier, matcher, clock.New(), logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cCtx.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	transport, err := openTransport(ctx, cCtx, logger)
	if err != nil {
		logger.Error("Failed to open reader transport", "err", err)
		return err
	}
	defer transport.Close()

	listener := provisioner.NewListener(transport, orchestrator, cCtx.Bool(flags.ScanOnceFlag.Name), logger)

	if statusAddr := cCtx.String(flags.StatusAddrFlag.Name); statusAddr != "" {
		server, err := httpserver.New(flags.ConfigureServer(cCtx, logger, statusAddr), httpserver.NewHandler(listener, lifecycle, logger))
		if err != nil {
			logger.Error("Failed to create status server", "err", err)
			return err
		}
		server.RunInBackground()
		defer server.Shutdown()
	}

	logger.Info("Waiting for tags")
	if err := listener.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("Listener stopped")
	return nil
}

// openTransport returns the PC/SC transport, or an emulator with one tag queued.
func openTransport(ctx context.Context, cCtx *cli.Context, logger *slog.Logger) (interfaces.Transport, error) {
	if !cCtx.Bool(flags.EmulateFlag.Name) {
		return pcsc.New(cCtx.Duration(flags.PollIntervalFlag.Name), logger)
	}

	tag, err := emulator.NewTag("emulated-tag")
	if err != nil {
		return nil, err
	}
	transport := emulator.NewTransport("emulator", 1)
	go func() {
		if err := transport.Present(ctx, tag); err != nil && !errors.Is(err, context.Canceled) {
			logger.Warn("Failed to present emulated tag", "err", err)
		}
	}()
	return transport, nil
}
