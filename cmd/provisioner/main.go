package main

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/ruteri/silo-provisioner/cmd/flags"
	"github.com/ruteri/silo-provisioner/common"
	"github.com/ruteri/silo-provisioner/cryptoutils"
	"github.com/ruteri/silo-provisioner/interfaces"
	"github.com/ruteri/silo-provisioner/provisioner"
	"github.com/ruteri/silo-provisioner/registry"
	"github.com/ruteri/silo-provisioner/storage"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:    common.PackageName,
		Usage:   "Provision and verify SiLo tags over a contactless reader",
		Version: common.Version,
		Commands: []*cli.Command{
			scanCommand(),
			verifySignatureCommand(),
			matchCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func verifySignatureCommand() *cli.Command {
	return &cli.Command{
		Name:  "verify-signature",
		Usage: "Check a P-256 signature over a digest offline",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "digest",
				Required: true,
				Usage:    "0x-prefixed 32-byte digest",
			},
			&cli.StringFlag{
				Name:     "pubkey",
				Required: true,
				Usage:    "uncompressed public key, 128 hex chars, optionally prefixed with 04",
			},
			&cli.StringFlag{
				Name:     "signature",
				Required: true,
				Usage:    "r||s signature, 128 hex chars; a 0x prefix as stored in records is stripped",
			},
		},
		Action: func(cCtx *cli.Context) error {
			verifier := cryptoutils.NewSignatureVerifier(cryptoutils.P256Verifier{})
			signature := strings.TrimPrefix(cCtx.String("signature"), "0x")
			if !verifier.Verify(cCtx.String("digest"), cCtx.String("pubkey"), signature) {
				return cli.Exit("signature invalid", 1)
			}
			fmt.Fprintln(cCtx.App.Writer, "signature valid")
			return nil
		},
	}
}

func matchCommand() *cli.Command {
	return &cli.Command{
		Name:  "match",
		Usage: "Render a registry device by key hash and save a test signature record for it",
		Flags: append([]cli.Flag{
			&cli.StringFlag{
				Name:     flags.MatchFileFlag.Name,
				Required: true,
				Usage:    flags.MatchFileFlag.Usage,
				EnvVars:  flags.MatchFileFlag.EnvVars,
			},
			&cli.StringFlag{
				Name:     "hash",
				Required: true,
				Usage:    "primary public key hash of the device to match",
			},
			flags.DataDirFlag,
		}, flags.CommonFlags...),
		Action: func(cCtx *cli.Context) error {
			logger := flags.SetupLogger(cCtx)

			hash, err := interfaces.NewKeyHashFromHex(cCtx.String("hash"))
			if err != nil {
				return fmt.Errorf("invalid key hash: %w", err)
			}

			reg, err := registry.Load(cCtx.String(flags.MatchFileFlag.Name), logger)
			if err != nil {
				logger.Warn("Device registry unavailable, nothing will match", "err", err)
			}
			matcher := registry.NewMatcher(reg, registry.NewTerminalDisplay(os.Stdout, logger), logger)
			matcher.Render(hash)

			backend, err := storage.BackendFor(cCtx.String(flags.DataDirFlag.Name), logger)
			if err != nil {
				return err
			}
			lifecycle := storage.NewLifecycle(backend, logger)
			_, err = lifecycle.SaveSignature(cCtx.Context, provisioner.TestMatchRecord(hash))
			return err
		},
	}
}
