package registry

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/skip2/go-qrcode"
	"github.com/skratchdot/open-golang/open"
)

// TerminalDisplay writes QR codes to a terminal and opens images with the system viewer.
type TerminalDisplay struct {
	out  io.Writer
	log  *slog.Logger
	open func(path string) error
}

func NewTerminalDisplay(out io.Writer, log *slog.Logger) *TerminalDisplay {
	return &TerminalDisplay{out: out, log: log, open: open.Start}
}

func (d *TerminalDisplay) ShowName(name string) {
	d.log.Info("check out that sweet", slog.String("name", name))
}

func (d *TerminalDisplay) ShowPOAP(payload string) error {
	qr, err := qrcode.New(payload, qrcode.Medium)
	if err != nil {
		return fmt.Errorf("failed to create QR code: %w", err)
	}
	_, err = io.WriteString(d.out, qr.ToString(false))
	return err
}

func (d *TerminalDisplay) OpenImage(path string) error {
	if err := d.open(path); err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	return nil
}
