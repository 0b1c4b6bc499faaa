package provisioner

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/ruteri/silo-provisioner/cryptoutils"
	"github.com/ruteri/silo-provisioner/interfaces"
	"github.com/ruteri/silo-provisioner/metrics"
	"github.com/ruteri/silo-provisioner/registry"
	"github.com/ruteri/silo-provisioner/storage"
	"github.com/ruteri/silo-provisioner/tagcodec"
)

// Orchestrator runs the challenge workflow against one tag at a time.
type Orchestrator struct {
	cfg       Config
	lifecycle *storage.Lifecycle
	verifier  *cryptoutils.SignatureVerifier
	matcher   *registry.Matcher
	clock     Clock
	log       *slog.Logger
}

// NewOrchestrator validates cfg and binds the workflow collaborators. matcher may be nil.
func NewOrchestrator(cfg Config, lifecycle *storage.Lifecycle, verifier *cryptoutils.SignatureVerifier, matcher *registry.Matcher, clk Clock, log *slog.Logger) (*Orchestrator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Block != nil {
		block := *cfg.Block
		cfg.Block = &block
	}
	return &Orchestrator{
		cfg:       cfg,
		lifecycle: lifecycle,
		verifier:  verifier,
		matcher:   matcher,
		clock:     clk,
		log:       log,
	}, nil
}

// workflow carries the mutable state of one Process call.
type workflow struct {
	*Result
	state State
	log   *slog.Logger
}

func (w *workflow) enter(s State) {
	w.state = s
	w.log.Debug("Workflow state", slog.String("state", s.String()))
}

// Process runs the full workflow for the tag on reader and always returns a
// resolved Result. Errors are carried in Result.Err.
func (o *Orchestrator) Process(ctx context.Context, reader interfaces.Reader) *Result {
	w := &workflow{
		Result: &Result{
			WorkflowID: uuid.NewString(),
			Reader:     reader.Name(),
			Started:    o.clock.Now(),
		},
		state: StateIdle,
	}
	w.log = o.log.With(slog.String("workflow", w.WorkflowID), slog.String("reader", w.Reader))
	w.log.Info("card detected")

	err := o.run(ctx, reader, w)
	if err != nil {
		w.Resolution = ResolutionError
		w.FailedIn = w.state
		w.Err = err
		w.log.Error("error when reading data", slog.String("state", w.state.String()), "err", err)
	}
	w.state = StateResolved
	w.Duration = o.clock.Now().Sub(w.Started)

	metrics.WorkflowsTotal.WithLabelValues(w.Resolution.String()).Inc()
	metrics.WorkflowDuration.Observe(w.Duration.Seconds())
	w.log.Info("Workflow resolved",
		slog.String("resolution", w.Resolution.String()),
		slog.Bool("verified", w.Verified),
		slog.Duration("duration", w.Duration))
	return w.Result
}

func (o *Orchestrator) run(ctx context.Context, reader interfaces.Reader, w *workflow) error {
	configPage, err := readPage(ctx, reader, tagcodec.ConfigPage)
	if err != nil {
		return err
	}
	w.log.Info("configBytes", slog.String("data", fmt.Sprintf("%x", configPage)))

	static, err := readRegion(ctx, reader, tagcodec.StaticFirstPage, tagcodec.StaticPageCount)
	if err != nil {
		return err
	}
	if len(static) != tagcodec.TagCapacity {
		return fmt.Errorf("%w: static region is %d bytes, want %d", interfaces.ErrTransport, len(static), tagcodec.TagCapacity)
	}
	w.Snapshot, err = tagcodec.Decode(static)
	if err != nil {
		return err
	}
	w.KeyHash = w.Snapshot.PrimaryKeyHash()
	w.enter(StateTagRead)
	w.log.Info("Tag read",
		slog.String("externalPublicKey", w.Snapshot.PrimaryPublicKeyHex()),
		slog.String("internalPublicKey", w.Snapshot.SecondaryPublicKeyHex()),
		slog.String("atecc608aSerial", w.Snapshot.SecureElementSerialHex()),
		slog.String("configZoneBytes", w.Snapshot.ConfigZoneHex()),
		slog.String("externalPublicKeyHash", w.KeyHash.String()))

	w.Request, err = tagcodec.NewRequest(o.cfg.Command, o.cfg.Address, o.cfg.Block)
	if err != nil {
		return err
	}
	record := w.Request.WriteRecord()
	w.enter(StateRequestBuilt)
	w.log.Info("Challenge built",
		slog.String("command", o.cfg.Command.String()),
		slog.String("combinedHash", fmt.Sprintf("%x", w.Request.Digest)),
		slog.String("crc", fmt.Sprintf("%x", record[len(record)-4:len(record)-2])))

	if err := o.wait(ctx, WakeDelay); err != nil {
		return err
	}
	if err := reader.WritePage(ctx, tagcodec.WriteRecordPage, record); err != nil {
		return fmt.Errorf("%w: writing challenge: %w", interfaces.ErrTransport, err)
	}
	w.enter(StateWritten)

	confirmation, err := readPage(ctx, reader, tagcodec.ConfirmationPage)
	if err != nil {
		return err
	}
	w.log.Info("readLastIcBlockAfterWrite", slog.String("data", fmt.Sprintf("%x", confirmation)))

	w.enter(StateAwaitingResult)
	if err := o.wait(ctx, SettleDelay); err != nil {
		return err
	}

	output, err := readRegion(ctx, reader, tagcodec.OutputFirstPage, tagcodec.OutputPageCount)
	if err != nil {
		return err
	}
	w.Signature, err = tagcodec.DecodeOutputRegion(output)
	if err != nil {
		return err
	}
	w.enter(StateResultRead)
	w.log.Info("Output read",
		slog.String("lastHash", fmt.Sprintf("%x", w.Signature.LastHash)),
		slog.String("externalSignature", w.Signature.ExternalSignatureHex()),
		slog.String("internalSignature", w.Signature.InternalSignatureHex()),
		slog.Int("counter", int(w.Signature.Counter)))

	w.enter(StateVerifying)
	w.SigningKey = selectVerificationKey(&o.cfg, w.Snapshot, w.Signature)
	w.Verified = o.verifier.Verify(fmt.Sprintf("%x", w.Request.Digest), w.SigningKey, w.Signature.ExternalSignatureHex())
	metrics.RecordVerification(w.Verified)
	w.log.Info("verification worked?", slog.Bool("verified", w.Verified), slog.String("signingKey", w.SigningKey))

	if _, err := readPage(ctx, reader, tagcodec.ConfirmationPage); err != nil {
		return err
	}

	if err := o.wait(ctx, DiagnosticDelay); err != nil {
		return err
	}
	diagnostic, err := readRegion(ctx, reader, tagcodec.DiagnosticFirstPage, tagcodec.DiagnosticPageCount)
	if err != nil {
		return err
	}
	w.Diagnostic = tagcodec.DecodeDiagnostic(diagnostic)
	w.enter(StateDiagnosticRead)
	w.log.Info("debugBytes", slog.String("text", w.Diagnostic))

	if err := o.wait(ctx, PersistDelay); err != nil {
		return err
	}
	if o.matcher != nil {
		w.Matched = o.matcher.Render(w.KeyHash)
	}

	return o.resolve(ctx, w)
}

func (o *Orchestrator) resolve(ctx context.Context, w *workflow) error {
	if w.Diagnostic != tagcodec.SuccessMarker {
		w.Resolution = ResolutionRefused
		w.log.Warn("Refusing to export, bad debugBytes message")
		return nil
	}
	if !w.Verified {
		w.Resolution = ResolutionRefused
		w.log.Warn("Refusing to export, signature did not verify",
			"err", interfaces.ErrVerificationFailed)
		return nil
	}

	record := buildRecord(&o.cfg, w.Snapshot, w.Request, w.Signature, w.SigningKey)

	if o.cfg.SaveSignature {
		outcome, err := o.lifecycle.SaveSignature(ctx, record)
		if err != nil {
			return err
		}
		w.Outcomes = append(w.Outcomes, outcome)
	}

	if o.cfg.Export {
		outcome, err := o.lifecycle.ExportAttestation(ctx, record)
		if err != nil {
			return err
		}
		w.Outcomes = append(w.Outcomes, outcome)
	} else if o.cfg.Verify {
		outcome, err := o.lifecycle.PromoteToVerified(ctx, record.Hash)
		if err != nil {
			return err
		}
		w.Outcomes = append(w.Outcomes, outcome)
	}

	w.Resolution = ResolutionSuccess
	return nil
}

// wait blocks for d on the orchestrator clock. Workflows have no cancellation
// of their own; a cancelled ctx only means the process is exiting.
func (o *Orchestrator) wait(ctx context.Context, d time.Duration) error {
	select {
	case <-o.clock.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func readPage(ctx context.Context, reader interfaces.Reader, page byte) ([]byte, error) {
	data, err := reader.ReadPage(ctx, page, tagcodec.PageSize)
	if err != nil {
		return nil, fmt.Errorf("%w: reading page %#02x: %w", interfaces.ErrTransport, page, err)
	}
	if len(data) != tagcodec.PageSize {
		return nil, fmt.Errorf("%w: page %#02x returned %d bytes", interfaces.ErrTransport, page, len(data))
	}
	return data, nil
}

// readRegion reads count pages in order and concatenates them. The first
// failing page aborts the whole region.
func readRegion(ctx context.Context, reader interfaces.Reader, first byte, count int) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(count * tagcodec.PageSize)
	for i := 0; i < count; i++ {
		data, err := readPage(ctx, reader, first+byte(i))
		if err != nil {
			return nil, err
		}
		buf.Write(data)
	}
	return buf.Bytes(), nil
}
