package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/book-expert/logger"
	"github.com/book-expert/tts-gateway/internal/core"
)

// Log formats.
const (
	logFmtSwappingWeights = "Swapping %s weights: '%s' -> '%s'"
	logFmtWeightsKept     = "Keeping loaded %s weights: '%s'"
)

// ErrNoClipProduced indicates the engine's clip sequence ended before
// yielding a single clip.
var ErrNoClipProduced = errors.New("engine produced no clip")

// Handle owns the process-wide view of which weights the engine has loaded.
//
// The engine process holds exactly one gpt and one sovits weight set at a
// time, so concurrent requests for different characters would otherwise
// clobber each other mid-inference. The handle serializes weight swaps and
// synthesis under one lock, and skips a swap when the requested path already
// matches the active one. That skip is the one real optimization in this
// service: consecutive requests for the same character never reload weights.
type Handle struct {
	mu           sync.Mutex
	engine       core.SynthesisEngine
	activeGPT    string
	activeSovits string
	log          *logger.Logger
}

// NewHandle wraps a synthesis engine in a weight-swap guard. The engine is
// assumed to start with no weights loaded.
func NewHandle(synthesisEngine core.SynthesisEngine, log *logger.Logger) *Handle {
	return &Handle{
		mu:           sync.Mutex{},
		engine:       synthesisEngine,
		activeGPT:    "",
		activeSovits: "",
		log:          log,
	}
}

// ActiveWeights reports the currently loaded weight paths.
func (h *Handle) ActiveWeights() (gptWeights, sovitsWeights string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.activeGPT, h.activeSovits
}

// Synthesize ensures the requested weights are loaded, runs one synthesis
// call, and returns the first clip of the engine's lazy sequence. The whole
// operation holds the handle lock: a request for character A can no longer
// swap weights out from under an in-flight request for character B.
func (h *Handle) Synthesize(
	ctx context.Context,
	gptWeights, sovitsWeights string,
	job core.SynthesisJob,
) (*core.Clip, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	err := h.ensureWeights(ctx, core.WeightSovits, &h.activeSovits, sovitsWeights)
	if err != nil {
		return nil, err
	}

	err = h.ensureWeights(ctx, core.WeightGPT, &h.activeGPT, gptWeights)
	if err != nil {
		return nil, err
	}

	stream, err := h.engine.Synthesize(ctx, job)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrSynthesisFailed, err)
	}

	defer func() {
		_ = stream.Close()
	}()

	clip, err := stream.Next()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: %w", core.ErrSynthesisFailed, ErrNoClipProduced)
		}

		return nil, fmt.Errorf("%w: %w", core.ErrSynthesisFailed, err)
	}

	return clip, nil
}

// ensureWeights swaps one weight kind if the requested path differs from the
// active one. A failed swap clears the recorded path so the next request
// retries the load instead of wrongly skipping it.
func (h *Handle) ensureWeights(
	ctx context.Context,
	kind core.WeightKind,
	active *string,
	requested string,
) error {
	if *active == requested {
		h.log.Info(logFmtWeightsKept, kind, requested)

		return nil
	}

	h.log.Info(logFmtSwappingWeights, kind, *active, requested)

	err := h.engine.SetActiveWeights(ctx, kind, requested)
	if err != nil {
		*active = ""

		return fmt.Errorf("failed to load %s weights '%s': %w", kind, requested, err)
	}

	*active = requested

	return nil
}
