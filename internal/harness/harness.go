package harness

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/roach88/shopstate/internal/catalog"
	"github.com/roach88/shopstate/internal/engine"
	"github.com/roach88/shopstate/internal/model"
	"github.com/roach88/shopstate/internal/store"
	"github.com/roach88/shopstate/internal/testutil"
)

// DefaultSession is the session id used when a scenario names none.
const DefaultSession = "test-session"

// Harness holds the per-scenario engine and its fault-injecting backend.
type Harness struct {
	kv     *testutil.FaultyKV
	engine *engine.Engine
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
// Deterministic helpers ensure reproducible results.
//
// Execution flow:
// 1. Create fresh in-memory database and catalog
// 2. Execute steps with expect validation
// 3. Read the session journal into the trace
// 4. Evaluate assertions against final state
//
// A returned error means the scenario could not be run at all. Step and
// assertion failures are reported in Result.Errors.
func Run(scenario *Scenario) (*Result, error) {
	ctx := context.Background()

	products, err := catalog.ConvertProducts(scenario.Products)
	if err != nil {
		return nil, fmt.Errorf("scenario products: %w", err)
	}

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	session := scenario.SessionID()

	kv := testutil.NewFaultyKV(st)
	eng := engine.New(kv, catalog.NewStatic(products...),
		engine.WithSessionGenerator(testutil.NewFixedSessionGenerator(session)),
		engine.WithClock(testutil.NewDeterministicClock()),
		engine.WithNow(testutil.NewFixedTime(testutil.Epoch, time.Minute).Now),
		engine.WithPersistSession(scenario.PersistSession),
		engine.WithFlushInterval(0),
	)
	if err := eng.Load(ctx); err != nil {
		return nil, fmt.Errorf("load engine: %w", err)
	}

	h := &Harness{kv: kv, engine: eng}
	result := NewResult()

	for i, step := range scenario.Steps {
		if err := h.executeStep(ctx, step); err != nil {
			result.AddError(fmt.Sprintf("steps[%d] %s: %v", i, step.Do, err))
		}
	}

	trace, err := h.trace(ctx, session)
	if err != nil {
		return nil, fmt.Errorf("read trace: %w", err)
	}
	result.Trace = trace

	for i, a := range scenario.Assertions {
		if err := h.evaluate(a, trace); err != nil {
			result.AddError(fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}

	return result, nil
}

// executeStep runs one command and checks it against the step's expect
// block.
func (h *Harness) executeStep(ctx context.Context, step Step) error {
	cmd, err := step.Command()
	if err != nil {
		return err
	}

	h.kv.FailWrites(step.FailWrites)
	res, err := h.engine.Execute(ctx, cmd)
	h.kv.FailWrites(false)

	var want Expect
	if step.Expect != nil {
		want = *step.Expect
	}

	switch {
	case want.Error != "":
		if err == nil {
			return fmt.Errorf("expected error %s, got success", want.Error)
		}
		if got := string(model.CodeOf(err)); got != want.Error {
			return fmt.Errorf("expected error %s, got %s (%v)", want.Error, codeOrUnknown(got), err)
		}
		return nil
	case err != nil:
		return fmt.Errorf("unexpected error: %w", err)
	}

	switch {
	case want.Warning != "":
		if res.Warning == nil {
			return fmt.Errorf("expected warning %s, got none", want.Warning)
		}
		if got := string(model.CodeOf(res.Warning)); got != want.Warning {
			return fmt.Errorf("expected warning %s, got %s (%v)", want.Warning, codeOrUnknown(got), res.Warning)
		}
	case res.Warning != nil:
		return fmt.Errorf("unexpected warning: %w", res.Warning)
	}
	return nil
}

func codeOrUnknown(code string) string {
	if code == "" {
		return "uncoded error"
	}
	return code
}

// trace reads the session journal. Journal appends are independent of the
// KV fault switch, so every executed step appears.
func (h *Harness) trace(ctx context.Context, session string) ([]TraceEvent, error) {
	entries, err := h.engine.Trace(ctx, store.JournalQuery{Session: session})
	if err != nil {
		return nil, err
	}
	events := make([]TraceEvent, len(entries))
	for i, e := range entries {
		events[i] = TraceEvent{
			Seq:     e.Seq,
			Command: e.Command,
			Args:    json.RawMessage(e.Args),
			Outcome: e.Outcome,
		}
	}
	return events, nil
}
