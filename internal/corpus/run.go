package corpus

import (
	"bufio"
	"context"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/FocuswithJustin/xmlinput/core/errors"
	"github.com/FocuswithJustin/xmlinput/internal/logging"
)

// MaxLineBytes bounds a single corpus line.
const MaxLineBytes = 4 << 20

// EmitFunc receives results in input order. Returning an error stops the run.
type EmitFunc func(Result) error

// Run ingests every line of r with workers goroutines and hands the
// results to emit in input order. Rejected lines are emitted like any
// other result and do not stop the run. The run stops at the first emit
// or read error, or when ctx is cancelled; the summary covers the lines
// emitted until then.
func (p *Processor) Run(ctx context.Context, r io.Reader, workers int, emit EmitFunc) (Summary, error) {
	return p.RunWithID(ctx, uuid.NewString(), r, workers, emit)
}

// RunWithID is Run with a caller-chosen run ID.
func (p *Processor) RunWithID(parent context.Context, runID string, r io.Reader, workers int, emit EmitFunc) (Summary, error) {
	if workers < 1 {
		workers = 1
	}
	sum := Summary{RunID: runID, Started: time.Now()}

	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	type job struct {
		idx   int
		input string
	}
	// Bounded channels give natural backpressure against a slow emitter.
	inCh := make(chan job, workers*2)
	outCh := make(chan Result, workers*2)

	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for j := range inCh {
				res := p.Process(ctx, j.idx+1, j.input)
				if ctx.Err() != nil {
					return
				}
				res.RunID = runID
				select {
				case outCh <- res:
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	readErrCh := make(chan error, 1)
	go func() {
		defer close(inCh)
		sc := bufio.NewScanner(r)
		sc.Buffer(make([]byte, 64*1024), MaxLineBytes)
		for idx := 0; sc.Scan(); idx++ {
			select {
			case inCh <- job{idx: idx, input: strings.TrimSuffix(sc.Text(), "\r")}:
			case <-ctx.Done():
				readErrCh <- nil
				return
			}
		}
		if err := sc.Err(); err != nil {
			readErrCh <- errors.NewIO("read corpus", "", err)
			return
		}
		readErrCh <- nil
	}()

	go func() {
		wg.Wait()
		close(outCh)
	}()

	// Results arrive out of order; flush them in line order.
	next := 0
	pending := make(map[int]Result)
	var emitErr error
	for res := range outCh {
		if emitErr != nil {
			continue
		}
		pending[res.Line-1] = res
		for {
			ready, ok := pending[next]
			if !ok {
				break
			}
			delete(pending, next)
			next++

			sum.Total++
			if ready.Rejected() {
				sum.Rejected++
				logging.SentenceRejected(ctx, ready.Error.Kind, ready.Line, ready.err, "run_id", runID)
			}
			if err := emit(ready); err != nil {
				emitErr = err
				cancel()
				break
			}
		}
	}
	readErr := <-readErrCh

	sum.Duration = time.Since(sum.Started)
	logging.BatchSummary(runID, sum.Total, sum.Rejected, sum.Duration)

	switch {
	case emitErr != nil:
		return sum, emitErr
	case readErr != nil:
		return sum, readErr
	case parent.Err() != nil:
		return sum, parent.Err()
	}
	return sum, nil
}
