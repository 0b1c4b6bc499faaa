package provisioner

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ruteri/silo-provisioner/interfaces"
)

const (
	HardwareManufacturer = "Microchip Technology Inc."
	ModelATECC608A       = "ATECC608A"
	ModelATECC608B       = "ATECC608B"
)

// Config is fixed for the lifetime of an Orchestrator.
type Config struct {
	Command interfaces.CommandCode
	Address common.Address
	// Block is the challenge block reference. Nil means a fresh random block per tag.
	Block *[32]byte
	// OverrideKey replaces the command's verification key when set.
	OverrideKey string

	Export        bool
	Verify        bool
	SaveSignature bool

	HardwareModel string
}

// Validate checks option combinations that the workflow cannot recover from.
func (c *Config) Validate() error {
	switch c.HardwareModel {
	case ModelATECC608A, ModelATECC608B:
	default:
		return fmt.Errorf("unsupported hardware model %q", c.HardwareModel)
	}

	if c.OverrideKey != "" {
		key := c.OverrideKey
		if len(key) == 130 && strings.HasPrefix(key, "04") {
			key = key[2:]
		}
		if len(key) != 128 {
			return errors.New("override public key must be 128 hex characters, optionally prefixed with 04")
		}
		if _, err := hexutil.Decode("0x" + key); err != nil {
			return fmt.Errorf("override public key: %w", err)
		}
	}
	return nil
}

// ParseAddress accepts a 40-character hex address with or without 0x.
func ParseAddress(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("invalid destination address %q", s)
	}
	return common.HexToAddress(s), nil
}

// ParseBlock decodes a 32-byte hex block reference. An empty string means random.
func ParseBlock(s string) (*[32]byte, error) {
	if s == "" {
		return nil, nil
	}
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		s = "0x" + s
	}
	raw, err := hexutil.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("invalid block reference: %w", err)
	}
	if len(raw) != 32 {
		return nil, fmt.Errorf("invalid block reference: %d bytes, want 32", len(raw))
	}
	var block [32]byte
	copy(block[:], raw)
	return &block, nil
}
