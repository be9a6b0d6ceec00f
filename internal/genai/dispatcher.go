package genai

import (
	"context"
	"errors"
	"net"
	"os"
	"time"
)

// ErrTimeout marks a generation call that ran out of time. The router maps it
// to a retryable status distinct from other backend failures.
var ErrTimeout = errors.New("generation timed out")

// Dispatcher wraps a Provider with parameter merging and timeout
// classification. It does not log to durable storage; prompt recording is the
// analytics sink's job.
type Dispatcher struct {
	provider Provider
	timeout  time.Duration
}

func NewDispatcher(provider Provider, timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	return &Dispatcher{provider: provider, timeout: timeout}
}

// Generate merges overrides onto the default parameter set and invokes the
// backend. Timeouts surface as ErrTimeout; everything else as
// *GenerationError.
func (d *Dispatcher) Generate(ctx context.Context, contents string, overrides map[string]any) (string, Usage, error) {
	params := MergeParameters(overrides)

	cctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	text, usage, err := d.provider.Generate(cctx, contents, params)
	if err != nil {
		if isTimeout(err) {
			return "", Usage{}, ErrTimeout
		}
		var ge *GenerationError
		if errors.As(err, &ge) {
			return "", Usage{}, err
		}
		return "", Usage{}, &GenerationError{Message: err.Error()}
	}
	return text, usage, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
