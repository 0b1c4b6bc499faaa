package interfaces

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyHash_HexRoundTrip(t *testing.T) {
	raw := strings.Repeat("ab", 32)

	for _, input := range []string{raw, "0x" + raw, "0x" + strings.ToUpper(raw)} {
		hash, err := NewKeyHashFromHex(input)
		require.NoError(t, err, input)
		assert.Equal(t, "0x"+raw, hash.String())
		assert.False(t, hash.IsZero())
	}

	_, err := NewKeyHashFromHex("0x1234")
	assert.Error(t, err, "short hash should be rejected")

	_, err = NewKeyHashFromHex(strings.Repeat("zz", 32))
	assert.Error(t, err, "non-hex hash should be rejected")

	_, err = NewKeyHashFromBytes(make([]byte, 31))
	assert.Error(t, err)
}

func TestParseCommandCode(t *testing.T) {
	tests := []struct {
		input   string
		want    CommandCode
		wantErr bool
	}{
		{"00", CommandSign, false},
		{"0", CommandSign, false},
		{"55", CommandMint, false},
		{"0x56", CommandExport, false},
		{"ff", CommandCode(0xff), false},
		{"", 0, true},
		{"123", 0, true},
		{"zz", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseCommandCode(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCommandCode_ExposesInternalKey(t *testing.T) {
	assert.False(t, CommandSign.ExposesInternalKey())
	assert.True(t, CommandMint.ExposesInternalKey())
	assert.True(t, CommandExport.ExposesInternalKey())
	assert.Equal(t, "56", CommandExport.String())
}

func TestNewKeyPair(t *testing.T) {
	x := strings.Repeat("1", 64)
	y := strings.Repeat("2", 64)

	assert.Equal(t, KeyPair{"0x" + x, "0x" + y}, NewKeyPair(x+y))
	assert.Equal(t, KeyPair{"0x" + "04" + x[:62], "0x" + y}, NewKeyPair("04"+x+y))
}
