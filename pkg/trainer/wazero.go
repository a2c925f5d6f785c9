// Package trainer runs WASI training modules as participant trainers.
package trainer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"github.com/absmach/flparticipant/participant"
	pkgerrors "github.com/absmach/flparticipant/pkg/errors"
	"github.com/absmach/flparticipant/pkg/fl"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"github.com/tetratelabs/wazero/sys"
)

const (
	RoundEnv         = "FL_ROUND_ID"
	InitEnv          = "FL_INIT"
	WeightsEnv       = "FL_WEIGHTS"
	HyperparamsEnv   = "FL_HYPERPARAMS"
	ParticipantIDEnv = "FL_PARTICIPANT_ID"

	programName = "trainer"
)

var _ Trainer = (*wazeroTrainer)(nil)

// Trainer is a participant trainer holding runtime resources.
type Trainer interface {
	participant.Trainer
	Close(ctx context.Context) error
}

type wazeroTrainer struct {
	mu            sync.Mutex
	runtime       wazero.Runtime
	module        wazero.CompiledModule
	participantID string
	logger        *slog.Logger
}

// NewWazeroTrainer compiles the module once; every round instantiates it
// afresh so no memory leaks between rounds.
func NewWazeroTrainer(ctx context.Context, wasmBinary []byte, participantID string, logger *slog.Logger) (Trainer, error) {
	r := wazero.NewRuntimeWithConfig(ctx, wazero.NewRuntimeConfig().WithCloseOnContextDone(true))

	// Instantiate WASI, which implements host functions needed for TinyGo to
	// implement `panic`.
	wasi_snapshot_preview1.MustInstantiate(ctx, r)

	module, err := r.CompileModule(ctx, wasmBinary)
	if err != nil {
		_ = r.Close(ctx)

		return nil, errors.Join(errors.New("failed to compile Wasm module"), err)
	}

	return &wazeroTrainer{
		runtime:       r,
		module:        module,
		participantID: participantID,
		logger:        logger,
	}, nil
}

func (w *wazeroTrainer) InitWeights(ctx context.Context) (fl.TrainingResult, error) {
	return w.run(ctx, fl.TrainingInput{Round: 0, Initialize: true})
}

func (w *wazeroTrainer) TrainRound(ctx context.Context, input fl.TrainingInput) (fl.TrainingResult, error) {
	return w.run(ctx, input)
}

func (w *wazeroTrainer) Close(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.runtime.Close(ctx)
}

func (w *wazeroTrainer) run(ctx context.Context, input fl.TrainingInput) (fl.TrainingResult, error) {
	env, err := environ(input, w.participantID)
	if err != nil {
		return fl.TrainingResult{}, err
	}

	var stdout, stderr bytes.Buffer
	cfg := wazero.NewModuleConfig().
		WithName("").
		WithArgs(programName).
		WithStdout(&stdout).
		WithStderr(&stderr)
	for k, v := range env {
		cfg = cfg.WithEnv(k, v)
	}

	w.mu.Lock()
	mod, err := w.runtime.InstantiateModule(ctx, w.module, cfg)
	w.mu.Unlock()

	if stderr.Len() > 0 {
		w.logger.Debug("trainer stderr", slog.Int("round", input.Round), slog.String("output", stderr.String()))
	}
	if err != nil {
		var exitErr *sys.ExitError
		if !errors.As(err, &exitErr) || exitErr.ExitCode() != 0 {
			return fl.TrainingResult{}, errors.Join(errors.New("failed to run Wasm module"), err)
		}
	}
	if mod != nil {
		if err := mod.Close(ctx); err != nil {
			w.logger.Warn("failed to close trainer module", slog.Any("error", err))
		}
	}

	return parseResult(stdout.Bytes())
}

func environ(input fl.TrainingInput, participantID string) (map[string]string, error) {
	weights, err := json.Marshal(input.Weights)
	if err != nil {
		return nil, err
	}
	hyperparams, err := json.Marshal(input.Hyperparams)
	if err != nil {
		return nil, fmt.Errorf("failed to encode hyperparams: %w", err)
	}

	return map[string]string{
		RoundEnv:         strconv.Itoa(input.Round),
		InitEnv:          strconv.FormatBool(input.Initialize),
		WeightsEnv:       string(weights),
		HyperparamsEnv:   string(hyperparams),
		ParticipantIDEnv: participantID,
	}, nil
}

// parseResult decodes the last non-empty stdout line, so modules may log
// freely before printing their result.
func parseResult(out []byte) (fl.TrainingResult, error) {
	lines := bytes.Split(bytes.TrimSpace(out), []byte("\n"))
	last := bytes.TrimSpace(lines[len(lines)-1])
	if len(last) == 0 {
		return fl.TrainingResult{}, fmt.Errorf("trainer produced no output: %w", pkgerrors.ErrMalformedResult)
	}

	var result fl.TrainingResult
	if err := json.Unmarshal(last, &result); err != nil {
		return fl.TrainingResult{}, errors.Join(pkgerrors.ErrMalformedResult, err)
	}

	return result, nil
}
