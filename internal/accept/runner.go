package accept

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Mohsinsiddi/quarkcheck/internal/builder"
	"github.com/Mohsinsiddi/quarkcheck/internal/call"
	"github.com/Mohsinsiddi/quarkcheck/internal/chain"
	"github.com/Mohsinsiddi/quarkcheck/internal/scripts"
	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Status is the result class of one scenario.
type Status int

const (
	Passed Status = iota
	Failed
	Errored
	Skipped
)

func (s Status) String() string {
	switch s {
	case Passed:
		return "PASS"
	case Failed:
		return "FAIL"
	case Errored:
		return "ERROR"
	case Skipped:
		return "SKIP"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// Outcome is the result of running one scenario.
type Outcome struct {
	Name    string
	Status  Status
	Diff    string // expected → got, set for Failed
	Err     error  // set for Errored and Skipped
	Elapsed time.Duration

	Got       []ExpectedOperation
	GotRevert string
}

// Summary counts outcomes by status.
type Summary struct {
	Passed, Failed, Errored, Skipped int
}

// OK reports whether nothing failed or errored.
func (s Summary) OK() bool { return s.Failed == 0 && s.Errored == 0 }

// Summarize counts outcomes by status.
func Summarize(outcomes []Outcome) Summary {
	var s Summary
	for _, o := range outcomes {
		switch o.Status {
		case Passed:
			s.Passed++
		case Failed:
			s.Failed++
		case Errored:
			s.Errored++
		case Skipped:
			s.Skipped++
		}
	}
	return s
}

var errStopped = errors.New("stopped after first failure")

// DefaultParallelism bounds concurrent builder queries.
const DefaultParallelism = 4

// Runner executes scenarios against a builder.
type Runner struct {
	client      *builder.Client
	registry    *chain.Registry
	deployments *scripts.Deployments
	log         *zap.Logger
	parallelism int
	failFast    bool
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the logger (default: zap.NewNop).
func WithLogger(l *zap.Logger) Option { return func(r *Runner) { r.log = l } }

// WithParallelism bounds how many scenarios run at once.
func WithParallelism(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.parallelism = n
		}
	}
}

// WithFailFast skips the remaining scenarios after the first failure.
func WithFailFast(on bool) Option { return func(r *Runner) { r.failFast = on } }

// WithRegistry replaces the default chain registry.
func WithRegistry(reg *chain.Registry) Option { return func(r *Runner) { r.registry = reg } }

// WithDeployments replaces the default script deployments.
func WithDeployments(d *scripts.Deployments) Option { return func(r *Runner) { r.deployments = d } }

// NewRunner returns a Runner querying client.
func NewRunner(client *builder.Client, opts ...Option) *Runner {
	r := &Runner{
		client:      client,
		registry:    chain.NewRegistry(),
		deployments: scripts.DefaultDeployments(),
		log:         zap.NewNop(),
		parallelism: DefaultParallelism,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes tests and returns one outcome per test, in input order.
// The error is only set when ctx itself is done.
func (r *Runner) Run(ctx context.Context, tests []AcceptanceTest) ([]Outcome, error) {
	outcomes := make([]Outcome, len(tests))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.parallelism)

	for i := range tests {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				outcomes[i] = Outcome{Name: tests[i].Name, Status: Skipped, Err: context.Cause(gctx)}
				return nil
			}
			outcomes[i] = r.RunOne(gctx, &tests[i])
			if r.failFast && outcomes[i].Status != Passed {
				return errStopped
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil && !errors.Is(err, errStopped) {
		return outcomes, err
	}
	return outcomes, ctx.Err()
}

// RunOne executes a single scenario.
func (r *Runner) RunOne(ctx context.Context, t *AcceptanceTest) Outcome {
	start := time.Now()
	log := r.log.With(zap.String("scenario", t.Name))
	log.Debug("running scenario")

	out := r.run(ctx, t)
	out.Name = t.Name
	out.Elapsed = time.Since(start)

	fields := []zap.Field{zap.Duration("elapsed", out.Elapsed), zap.Stringer("status", out.Status)}
	switch out.Status {
	case Passed:
		log.Debug("scenario finished", fields...)
	case Failed:
		log.Warn("scenario failed", append(fields, zap.String("diff", out.Diff))...)
	default:
		log.Warn("scenario did not complete", append(fields, zap.Error(out.Err))...)
	}
	return out
}

func (r *Runner) run(ctx context.Context, t *AcceptanceTest) Outcome {
	env, err := NewEnvironment(t, r.registry, r.deployments)
	if err != nil {
		return Outcome{Status: Errored, Err: err}
	}

	res, err := r.client.Build(ctx, env.Intent, env.Accounts, env.Payment)
	if err != nil {
		var be *builder.Error
		if !errors.As(err, &be) {
			if ctx.Err() != nil {
				return Outcome{Status: Skipped, Err: err}
			}
			return Outcome{Status: Errored, Err: err}
		}
		out := Outcome{GotRevert: be.String()}
		if be.Name == "" {
			out.Status = Errored
			out.Err = fmt.Errorf("revert %s matches no builder error: %w", out.GotRevert, err)
			return out
		}
		if t.Expect.Revert == "" {
			out.Status = Failed
			out.Diff = fmt.Sprintf("expected operations, builder reverted with %s", out.GotRevert)
			return out
		}
		if diff := cmp.Diff(t.Expect.Revert, out.GotRevert); diff != "" {
			out.Status = Failed
			out.Diff = diff
		}
		return out
	}

	got, actions, err := Describe(env, res)
	if err != nil {
		return Outcome{Status: Errored, Err: err}
	}
	out := Outcome{Got: got}
	if t.Expect.Revert != "" {
		out.Status = Failed
		out.Diff = fmt.Sprintf("expected revert %s, builder returned %d operation(s)", t.Expect.Revert, len(got))
		return out
	}
	if diff := compare(t.Expect, got, actions); diff != "" {
		out.Status = Failed
		out.Diff = diff
	}
	return out
}

// Describe decodes a builder result into the form scenarios are written in,
// plus the list of action types.
func Describe(env *Environment, res *builder.BuilderResult) ([]ExpectedOperation, []string, error) {
	dec := env.Decoder()
	ops := make([]ExpectedOperation, 0, len(res.QuarkOperations))
	for i, op := range res.QuarkOperations {
		c, err := dec.Decode(op.ScriptAddress, op.ScriptCalldata)
		if err != nil {
			return nil, nil, fmt.Errorf("operation %d: %w", i, err)
		}
		if err := c.DecodeErr(); err != nil {
			return nil, nil, fmt.Errorf("operation %d: %w", i, err)
		}
		payment, calls := call.Unwrap(c)
		eo := ExpectedOperation{
			ChainID: op.ChainID.Uint64(),
			Account: env.Book.Render(op.Account),
			Calls:   call.Strings(calls),
		}
		if payment != nil {
			eo.Payment = payment.String()
		}
		if len(calls) == 0 {
			eo.Calls = []string{c.String()}
		}
		ops = append(ops, eo)
	}
	actions := make([]string, len(res.Actions))
	for i, a := range res.Actions {
		actions[i] = a.ActionType
	}
	return ops, actions, nil
}

// compare diffs expectation against what the builder produced. Fields the
// expectation leaves empty are not compared.
func compare(want Expect, got []ExpectedOperation, actions []string) string {
	masked := make([]ExpectedOperation, len(got))
	copy(masked, got)
	for i := range masked {
		if i >= len(want.Operations) {
			break
		}
		if want.Operations[i].Account == "" {
			masked[i].Account = ""
		}
		if want.Operations[i].Payment == "" {
			masked[i].Payment = ""
		}
	}
	diff := cmp.Diff(want.Operations, masked)
	if len(want.Actions) > 0 {
		diff += cmp.Diff(want.Actions, actions)
	}
	return diff
}
