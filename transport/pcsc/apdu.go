package pcsc

import (
	"context"
	"fmt"

	"github.com/ruteri/silo-provisioner/interfaces"
	"github.com/ruteri/silo-provisioner/tagcodec"
)

const (
	claProprietary  = 0xFF
	insReadBinary   = 0xB0
	insUpdateBinary = 0xD6
)

var statusOK = [2]byte{0x90, 0x00}

func readAPDU(page byte, length int) []byte {
	return []byte{claProprietary, insReadBinary, 0x00, page, byte(length)}
}

func writeAPDU(page byte, chunk []byte) []byte {
	apdu := make([]byte, 0, 5+len(chunk))
	apdu = append(apdu, claProprietary, insUpdateBinary, 0x00, page, byte(len(chunk)))
	return append(apdu, chunk...)
}

// checkStatus strips the trailing status word, failing unless it is 90 00.
func checkStatus(resp []byte) ([]byte, error) {
	if len(resp) < 2 {
		return nil, fmt.Errorf("%w: response of %d bytes has no status word", interfaces.ErrTransport, len(resp))
	}
	sw := [2]byte{resp[len(resp)-2], resp[len(resp)-1]}
	if sw != statusOK {
		return nil, fmt.Errorf("%w: status %02x%02x", interfaces.ErrTransport, sw[0], sw[1])
	}
	return resp[:len(resp)-2], nil
}

type transmitter interface {
	Transmit(cmd []byte) ([]byte, error)
}

// cardReader is a connected card in a named reader.
type cardReader struct {
	name string
	card transmitter
}

func (r *cardReader) Name() string {
	return r.name
}

func (r *cardReader) ReadPage(ctx context.Context, page byte, length int) ([]byte, error) {
	if length <= 0 || length > 0xFF {
		return nil, fmt.Errorf("%w: invalid read length %d", interfaces.ErrTransport, length)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	resp, err := r.card.Transmit(readAPDU(page, length))
	if err != nil {
		return nil, fmt.Errorf("%w: read page %#02x: %w", interfaces.ErrTransport, page, err)
	}
	return checkStatus(resp)
}

// WritePage splits data into page-sized update commands.
func (r *cardReader) WritePage(ctx context.Context, page byte, data []byte) error {
	if len(data)%tagcodec.PageSize != 0 {
		return fmt.Errorf("%w: write of %d bytes is not page aligned", interfaces.ErrTransport, len(data))
	}

	for i := 0; i < len(data); i += tagcodec.PageSize {
		if err := ctx.Err(); err != nil {
			return err
		}
		target := page + byte(i/tagcodec.PageSize)
		resp, err := r.card.Transmit(writeAPDU(target, data[i:i+tagcodec.PageSize]))
		if err != nil {
			return fmt.Errorf("%w: write page %#02x: %w", interfaces.ErrTransport, target, err)
		}
		if _, err := checkStatus(resp); err != nil {
			return fmt.Errorf("write page %#02x: %w", target, err)
		}
	}
	return nil
}
