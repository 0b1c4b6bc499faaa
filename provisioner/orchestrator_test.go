package provisioner

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ruteri/silo-provisioner/checksum"
	"github.com/ruteri/silo-provisioner/cryptoutils"
	"github.com/ruteri/silo-provisioner/interfaces"
	"github.com/ruteri/silo-provisioner/registry"
	"github.com/ruteri/silo-provisioner/storage"
	"github.com/ruteri/silo-provisioner/tagcodec"
	"github.com/ruteri/silo-provisioner/transport/emulator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestStandardSignatureExportRefused(t *testing.T) {
	cfg := baseConfig(interfaces.CommandSign)
	cfg.Export = true
	h := newHarness(t, cfg, nil)
	tag := newTag(t)

	result := h.process(tag)
	require.NoError(t, result.Err)

	assert.Equal(t, ResolutionSuccess, result.Resolution)
	assert.True(t, result.Verified)
	assert.Equal(t, tagcodec.SuccessMarker, result.Diagnostic)
	assert.Equal(t, tag.PrimaryPublicKey(), result.Snapshot.PrimaryPublicKey)
	assert.Equal(t, hex.EncodeToString(tag.PrimaryPublicKey()), result.SigningKey)
	assert.Equal(t, common.Address{}, result.Request.Address)
	assert.Equal(t, checksum.SHA256(make([]byte, 20), result.Request.Block[:]), result.Request.Digest)
	assert.Equal(t, []storage.Outcome{storage.OutcomeExportRefused}, result.Outcomes)
	assert.Contains(t, result.Outcomes[0].String(), "missing param required for smart contract or not command 0x56")
	assert.Empty(t, h.files(t, interfaces.ExportLocation))
}

func TestExportCommandWritesRecord(t *testing.T) {
	cfg := baseConfig(interfaces.CommandExport)
	cfg.Export = true
	h := newHarness(t, cfg, nil)
	tag := newTag(t)

	result := h.process(tag)
	require.NoError(t, result.Err)
	require.True(t, result.Verified)
	assert.Equal(t, []storage.Outcome{storage.OutcomeExported}, result.Outcomes)

	primaryHex := hex.EncodeToString(tag.PrimaryPublicKey())
	hash := interfaces.KeyHash(checksum.SHA256(tag.PrimaryPublicKey()))
	assert.Equal(t, hash, result.KeyHash)

	data, err := os.ReadFile(h.recordPath(interfaces.ExportLocation, hash))
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, []any{"0x" + primaryHex[:64], "0x" + primaryHex[64:]}, doc["primaryPublicKey"])
	assert.Equal(t, hash.String(), doc["primaryPublicKeyHash"])
	assert.Equal(t, "0x"+hex.EncodeToString(result.Request.Digest[:]), doc["digest"])
	assert.Equal(t, "0x"+result.Signature.ExternalSignatureHex(), doc["signature"])

	provisioningHex := hex.EncodeToString(tag.ProvisioningPublicKey())
	assert.Equal(t, provisioningHex, doc["signingKey"])
	assert.Equal(t, []any{"0x" + provisioningHex[:64], "0x" + provisioningHex[64:]}, doc["tertiaryPublicKey"])
	assert.Equal(t, "0x"+checksum.SHA256Hex(tag.ProvisioningPublicKey()), doc["tertiaryPublicKeyHash"])
	assert.Equal(t, "0x"+checksum.SHA256Hex(result.Snapshot.SecondaryPublicKey), doc["secondaryPublicKeyHash"])
	assert.Equal(t, "0x"+checksum.SHA256Hex([]byte("Microchip Technology Inc.")), doc["hardwareManufacturer"])
	assert.Equal(t, "0x"+checksum.SHA256Hex([]byte("ATECC608A")), doc["hardwareModel"])
	assert.Equal(t, "0x"+checksum.SHA256Hex([]byte(result.Snapshot.SecureElementSerialHex())), doc["hardwareSerial"])

	// a second presentation never overwrites the export
	again := h.process(tag)
	require.NoError(t, again.Err)
	assert.Equal(t, []storage.Outcome{storage.OutcomeAlreadyExported}, again.Outcomes)
	unchanged, err := os.ReadFile(h.recordPath(interfaces.ExportLocation, hash))
	require.NoError(t, err)
	assert.Equal(t, data, unchanged)
}

func TestVerifyWithoutExport(t *testing.T) {
	cfg := baseConfig(interfaces.CommandSign)
	cfg.Verify = true
	h := newHarness(t, cfg, nil)

	result := h.process(newTag(t))
	require.NoError(t, result.Err)
	assert.Equal(t, []storage.Outcome{storage.OutcomeNothingToVerify}, result.Outcomes)
	assert.Equal(t, "WARNING: no JSON file found to verify", result.Outcomes[0].String())
	for _, loc := range []interfaces.Location{interfaces.SignaturesLocation, interfaces.ExportLocation, interfaces.VerifiedLocation} {
		assert.Empty(t, h.files(t, loc), loc.String())
	}
}

func TestExportThenVerify(t *testing.T) {
	exportCfg := baseConfig(interfaces.CommandExport)
	exportCfg.Export = true
	exporter := newHarness(t, exportCfg, nil)
	tag := newTag(t)

	require.NoError(t, exporter.process(tag).Err)

	verifyCfg := baseConfig(interfaces.CommandSign)
	verifyCfg.Verify = true
	verifier := newHarnessWithLifecycle(t, verifyCfg, nil, exporter.dir, exporter.lifecycle)

	result := verifier.process(tag)
	require.NoError(t, result.Err)
	assert.Equal(t, []storage.Outcome{storage.OutcomePromoted}, result.Outcomes)
	assert.NoFileExists(t, verifier.recordPath(interfaces.ExportLocation, result.KeyHash))
	assert.FileExists(t, verifier.recordPath(interfaces.VerifiedLocation, result.KeyHash))

	result = verifier.process(tag)
	assert.Equal(t, []storage.Outcome{storage.OutcomeAlreadyVerified}, result.Outcomes)

	// export and verify are exclusive; export wins
	bothCfg := baseConfig(interfaces.CommandExport)
	bothCfg.Export, bothCfg.Verify = true, true
	both := newHarnessWithLifecycle(t, bothCfg, nil, exporter.dir, exporter.lifecycle)
	result = both.process(tag)
	assert.Equal(t, []storage.Outcome{storage.OutcomeExported}, result.Outcomes)
}

func TestSaveSignature(t *testing.T) {
	cfg := baseConfig(interfaces.CommandSign)
	cfg.SaveSignature = true
	cfg.Verify = true
	h := newHarness(t, cfg, nil)

	result := h.process(newTag(t))
	require.NoError(t, result.Err)
	assert.Equal(t, []storage.Outcome{storage.OutcomeSaved, storage.OutcomeNothingToVerify}, result.Outcomes)

	data, err := os.ReadFile(h.recordPath(interfaces.SignaturesLocation, result.KeyHash))
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Len(t, doc, 5)
	assert.Equal(t, result.SigningKey, doc["signingKey"])
}

func TestDelaysInOrder(t *testing.T) {
	h := newHarness(t, baseConfig(interfaces.CommandSign), nil)
	require.NoError(t, h.process(newTag(t)).Err)

	assert.Equal(t, []time.Duration{WakeDelay, SettleDelay, DiagnosticDelay, PersistDelay}, h.clock.Waits())
	assert.Equal(t, []time.Duration{200 * time.Millisecond, 2500 * time.Millisecond, 200 * time.Millisecond, 100 * time.Millisecond}, h.clock.Waits())
}

func TestReadSequence(t *testing.T) {
	h := newHarness(t, baseConfig(interfaces.CommandSign), nil)
	tag := newTag(t)
	require.NoError(t, h.process(tag).Err)

	reads, writes := tag.Stats()
	// config + static + confirmation + output + confirmation + diagnostic
	assert.Equal(t, 1+tagcodec.StaticPageCount+1+tagcodec.OutputPageCount+1+tagcodec.DiagnosticPageCount, reads)
	assert.Equal(t, 1, writes)
}

func TestNoWriteBeforeWakeDelay(t *testing.T) {
	mockClock := clock.NewMock()
	dir := t.TempDir()
	backend, err := storage.NewFileBackend(dir, testLogger())
	require.NoError(t, err)
	o, err := NewOrchestrator(baseConfig(interfaces.CommandSign), storage.NewLifecycle(backend, testLogger()),
		cryptoutils.NewSignatureVerifier(cryptoutils.P256Verifier{}), nil, mockClock, testLogger())
	require.NoError(t, err)

	tag := newTag(t)
	done := make(chan *Result, 1)
	go func() { done <- o.Process(context.Background(), tag) }()

	require.Eventually(t, func() bool {
		reads, _ := tag.Stats()
		return reads == 1+tagcodec.StaticPageCount
	}, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)

	mockClock.Add(WakeDelay - time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	_, writes := tag.Stats()
	require.Equal(t, 0, writes)

	mockClock.Add(time.Millisecond)
	require.Eventually(t, func() bool {
		_, writes := tag.Stats()
		return writes == 1
	}, time.Second, time.Millisecond)

	// nothing past the confirmation read until the settle delay elapses
	time.Sleep(20 * time.Millisecond)
	reads, _ := tag.Stats()
	assert.Equal(t, 1+tagcodec.StaticPageCount+1, reads)

	var result *Result
	require.Eventually(t, func() bool {
		select {
		case result = <-done:
			return true
		default:
			mockClock.Add(50 * time.Millisecond)
			return false
		}
	}, 5*time.Second, time.Millisecond)
	require.NoError(t, result.Err)
	assert.True(t, result.Verified)
}

func TestTransportFailures(t *testing.T) {
	boom := errors.New("boom")
	tests := []struct {
		name     string
		opts     []emulator.Option
		failedIn State
		writes   int
	}{
		{"config page", []emulator.Option{emulator.WithReadFault(tagcodec.ConfigPage, boom)}, StateIdle, 0},
		{"static page", []emulator.Option{emulator.WithReadFault(0x20, boom)}, StateIdle, 0},
		{"short static page", []emulator.Option{emulator.WithShortRead(0x62)}, StateIdle, 0},
		{"write", []emulator.Option{emulator.WithWriteFault(boom)}, StateRequestBuilt, 1},
		{"confirmation", []emulator.Option{emulator.WithReadFault(tagcodec.ConfirmationPage, boom)}, StateWritten, 1},
		{"output page", []emulator.Option{emulator.WithReadFault(0x80, boom)}, StateAwaitingResult, 1},
		{"diagnostic page", []emulator.Option{emulator.WithShortRead(tagcodec.DiagnosticFirstPage)}, StateVerifying, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := baseConfig(interfaces.CommandExport)
			cfg.Export = true
			h := newHarness(t, cfg, nil)
			tag := newTag(t, tt.opts...)

			result := h.process(tag)
			require.ErrorIs(t, result.Err, interfaces.ErrTransport)
			assert.Equal(t, ResolutionError, result.Resolution)
			assert.Equal(t, tt.failedIn, result.FailedIn)
			assert.Empty(t, result.Outcomes)
			assert.Empty(t, h.files(t, interfaces.ExportLocation))

			_, writes := tag.Stats()
			assert.Equal(t, tt.writes, writes)
		})
	}
}

func TestFailedVerificationRefuses(t *testing.T) {
	cfg := baseConfig(interfaces.CommandExport)
	cfg.Export, cfg.SaveSignature = true, true
	h := newHarness(t, cfg, nil)
	tag := newTag(t, emulator.WithCorruptSignature())

	result := h.process(tag)
	require.NoError(t, result.Err)
	assert.False(t, result.Verified)
	assert.Equal(t, ResolutionRefused, result.Resolution)
	// the diagnostic region is still read
	assert.Equal(t, tagcodec.SuccessMarker, result.Diagnostic)
	assert.Empty(t, result.Outcomes)
	assert.Empty(t, h.files(t, interfaces.ExportLocation))
	assert.Empty(t, h.files(t, interfaces.SignaturesLocation))
}

func TestBadDiagnosticRefuses(t *testing.T) {
	cfg := baseConfig(interfaces.CommandExport)
	cfg.Export = true
	h := newHarness(t, cfg, nil)

	result := h.process(newTag(t, emulator.WithDiagnostic("Bad CRC\x00")))
	require.NoError(t, result.Err)
	assert.True(t, result.Verified)
	assert.Equal(t, ResolutionRefused, result.Resolution)
	assert.Empty(t, h.files(t, interfaces.ExportLocation))
}

func TestOverrideKey(t *testing.T) {
	tag := newTag(t)

	cfg := baseConfig(interfaces.CommandExport)
	cfg.OverrideKey = "04" + hex.EncodeToString(tag.PrimaryPublicKey())
	h := newHarness(t, cfg, nil)

	// 0x56 signs with the provisioning key, so the primary key override fails
	result := h.process(tag)
	require.NoError(t, result.Err)
	assert.Equal(t, cfg.OverrideKey, result.SigningKey)
	assert.False(t, result.Verified)

	cfg = baseConfig(interfaces.CommandSign)
	cfg.OverrideKey = "04" + hex.EncodeToString(tag.PrimaryPublicKey())
	h = newHarness(t, cfg, nil)
	result = h.process(tag)
	require.NoError(t, result.Err)
	assert.True(t, result.Verified)
}

func TestFixedBlock(t *testing.T) {
	block, err := ParseBlock("0x" + hex.EncodeToString(make([]byte, 31)) + "07")
	require.NoError(t, err)

	cfg := baseConfig(interfaces.CommandSign)
	cfg.Address = common.HexToAddress("0x1111111111111111111111111111111111111111")
	cfg.Block = block
	h := newHarness(t, cfg, nil)
	tag := newTag(t)

	result := h.process(tag)
	require.NoError(t, result.Err)
	assert.Equal(t, *block, result.Request.Block)
	assert.Equal(t, *block, tag.LastRequest().Block)
	assert.Equal(t, cfg.Address, tag.LastRequest().Address)

	block[0] = 0xFF
	result = h.process(tag)
	assert.Equal(t, byte(0x00), result.Request.Block[0])
}

func TestRegistryMatch(t *testing.T) {
	// matching runs even when the tag refuses
	tag := newTag(t, emulator.WithDiagnostic("nope"))
	hash := interfaces.KeyHash(checksum.SHA256(tag.PrimaryPublicKey()))

	reg, err := registry.Parse([]byte(`[{"primaryPublicKeyHash": "`+hash.String()+`", "name": "badge"}]`), testLogger())
	require.NoError(t, err)
	display := &registry.MockDisplay{}
	display.On("ShowName", "badge").Once()

	h := newHarness(t, baseConfig(interfaces.CommandSign), registry.NewMatcher(reg, display, testLogger()))
	result := h.process(tag)
	require.NoError(t, result.Err)
	assert.Equal(t, ResolutionRefused, result.Resolution)
	assert.True(t, result.Matched)

	result = h.process(newTag(t))
	assert.False(t, result.Matched)

	display.AssertExpectations(t)
	display.AssertNotCalled(t, "ShowPOAP", mock.Anything)
}

func TestContextCancelledBeforeWrite(t *testing.T) {
	mockClock := clock.NewMock()
	backend := storage.NewMemoryBackend(testLogger())
	o, err := NewOrchestrator(baseConfig(interfaces.CommandSign), storage.NewLifecycle(backend, testLogger()),
		cryptoutils.NewSignatureVerifier(cryptoutils.P256Verifier{}), nil, mockClock, testLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	result := o.Process(ctx, newTag(t))
	require.ErrorIs(t, result.Err, context.Canceled)
	assert.Equal(t, ResolutionError, result.Resolution)
}
