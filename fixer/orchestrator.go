/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package fixer

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/chainguard-dev/clog"

	"chainguard.dev/sonarfix/agents/completion"
	"chainguard.dev/sonarfix/agents/promptbuilder"
	"chainguard.dev/sonarfix/batch"
	"chainguard.dev/sonarfix/findings"
	"chainguard.dev/sonarfix/fingerprint"
	"chainguard.dev/sonarfix/githost"
)

// ErrConfig marks configuration problems that stop a run before any finding
// is processed.
var ErrConfig = errors.New("invalid configuration")

// Source lists findings from the analysis server.
type Source interface {
	SearchFindings(ctx context.Context, q findings.Query) ([]findings.Finding, error)
}

// Completer turns a prompt into replacement file content.
type Completer interface {
	Fix(ctx context.Context, prompt string) (string, completion.Result, error)
	TotalUsage() completion.Usage
	Model() string
}

// Tracker is the fingerprint store as seen by a run.
type Tracker interface {
	FilterUnfixed(ctx context.Context, fs []findings.Finding, branch string) ([]findings.Finding, int)
	MarkFixed(ctx context.Context, f findings.Finding, branch, content, commitID string) error
	PurgeOlderThan(ctx context.Context, days int) (int64, error)
	BranchStatistics(ctx context.Context, branch string) (fingerprint.Stats, error)
}

// Config controls a run.
type Config struct {
	Query findings.Query
	// BaseBranch is the scanned branch. Original content is always read from
	// it and the change request targets it.
	BaseBranch string
	// WorkingBranch pins the branch fixes are committed to. Empty picks
	// sonarfix/<BaseBranch>, so later runs skip what earlier runs recorded.
	WorkingBranch string
	// TimestampedBranch picks sonarfix-<timestamp> instead when WorkingBranch
	// is empty. Each such run starts with no recorded fixes.
	TimestampedBranch bool
	BatchSize         int
	DryRun        bool
	// CreateChangeRequest opens a merge or pull request at the end of a run
	// that committed fixes.
	CreateChangeRequest bool
	RetentionDays       int
	// ExcludePaths are doublestar globs matched against finding paths.
	ExcludePaths []string
	// MaxFileTokens rejects files whose estimated size exceeds it, and
	// prompts estimated above twice as much. Zero disables both checks.
	MaxFileTokens int64
}

// Dependencies are the collaborators of a run.
type Dependencies struct {
	Source  Source
	AI      Completer
	Store   Tracker
	Host    githost.Host
	Catalog *promptbuilder.Catalog
}

// Orchestrator runs the fix pipeline once. It is single-use and not safe for
// concurrent use.
type Orchestrator struct {
	cfg  Config
	deps Dependencies
	now  func() time.Time

	state   State
	batch   *batch.Manager
	branch  string
	created bool

	attempts []*Attempt
	// staged maps a path in the current batch to the attempts it carries.
	staged         map[string][]*Attempt
	content        map[string]string
	commitFailures []batch.Failure
	changeRequest  string
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithClock overrides the time source used for timestamped branch names.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// New validates cfg and deps and returns an Orchestrator. Problems are
// reported as ErrConfig.
func New(cfg Config, deps Dependencies, opts ...Option) (*Orchestrator, error) {
	switch {
	case deps.Source == nil:
		return nil, fmt.Errorf("%w: analysis source is required", ErrConfig)
	case deps.AI == nil:
		return nil, fmt.Errorf("%w: completion client is required", ErrConfig)
	case deps.Store == nil:
		return nil, fmt.Errorf("%w: fingerprint store is required", ErrConfig)
	case deps.Host == nil:
		return nil, fmt.Errorf("%w: git host is required", ErrConfig)
	case deps.Catalog == nil:
		return nil, fmt.Errorf("%w: prompt catalog is required", ErrConfig)
	case cfg.Query.ProjectKey == "":
		return nil, fmt.Errorf("%w: project key is required", ErrConfig)
	case cfg.BaseBranch == "":
		return nil, fmt.Errorf("%w: base branch is required", ErrConfig)
	}
	for _, pattern := range cfg.ExcludePaths {
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("%w: invalid exclude pattern %q", ErrConfig, pattern)
		}
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = batch.DefaultSize
	}
	if cfg.RetentionDays <= 0 {
		cfg.RetentionDays = fingerprint.DefaultRetentionDays
	}

	o := &Orchestrator{
		cfg:     cfg,
		deps:    deps,
		now:     time.Now,
		state:   StateConfiguring,
		staged:  make(map[string][]*Attempt),
		content: make(map[string]string),
	}
	for _, opt := range opts {
		opt(o)
	}

	m, err := batch.New(deps.Host, batch.WithSize(cfg.BatchSize), batch.WithClock(o.now))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfig, err)
	}
	o.batch = m

	o.branch = cfg.WorkingBranch
	switch {
	case o.branch != "":
	case cfg.TimestampedBranch:
		o.branch = "sonarfix-" + o.now().Format("20060102_150405")
	default:
		o.branch = "sonarfix/" + cfg.BaseBranch
	}
	return o, nil
}

// State returns the current stage.
func (o *Orchestrator) State() State {
	return o.state
}

// WorkingBranch returns the branch fixes are committed to.
func (o *Orchestrator) WorkingBranch() string {
	return o.branch
}

func (o *Orchestrator) transition(ctx context.Context, s State) {
	clog.FromContext(ctx).With("from", o.state.String(), "to", s.String()).Info("Run state changed")
	o.state = s
}

// Run processes every unfixed finding and returns the run summary. Only a
// failure to list findings is returned as an error; everything else is
// recorded in the summary.
func (o *Orchestrator) Run(ctx context.Context) (*Summary, error) {
	if o.state != StateConfiguring {
		return nil, errors.New("orchestrator has already run")
	}
	ctx = clog.WithLogger(ctx, clog.FromContext(ctx).With("project", o.cfg.Query.ProjectKey, "working_branch", o.branch))
	o.transition(ctx, StateClientsReady)

	o.transition(ctx, StateFetchingFindings)
	all, err := o.deps.Source.SearchFindings(ctx, o.cfg.Query)
	if err != nil {
		return nil, fmt.Errorf("fetching findings: %w", err)
	}
	candidates, excluded := o.exclude(all)
	unfixed, skipped := o.deps.Store.FilterUnfixed(ctx, candidates, o.branch)
	clog.FromContext(ctx).With("fetched", len(all), "excluded", excluded, "skipped", skipped, "pending", len(unfixed)).
		Info("Fetched findings")

	o.transition(ctx, StateProcessing)
	for _, f := range unfixed {
		if err := ctx.Err(); err != nil {
			clog.FromContext(ctx).With("error", err).Warn("Run cancelled, finalizing early")
			break
		}
		o.process(ctx, f)
	}

	o.transition(ctx, StateFinalizing)
	o.finalize(ctx)

	summary := o.summarize(ctx, skipped, excluded)
	o.transition(ctx, StateDone)
	return summary, nil
}

func (o *Orchestrator) exclude(fs []findings.Finding) ([]findings.Finding, int) {
	if len(o.cfg.ExcludePaths) == 0 {
		return fs, 0
	}
	kept := make([]findings.Finding, 0, len(fs))
	for _, f := range fs {
		if !o.excluded(f.Path) {
			kept = append(kept, f)
		}
	}
	return kept, len(fs) - len(kept)
}

func (o *Orchestrator) excluded(path string) bool {
	for _, pattern := range o.cfg.ExcludePaths {
		if ok, err := doublestar.Match(pattern, path); err == nil && ok {
			return true
		}
	}
	return false
}

// process runs one finding through the pipeline. Failures are recorded on
// the attempt and never stop the run.
func (o *Orchestrator) process(runCtx context.Context, f findings.Finding) {
	ctx := runCtx
	log := clog.FromContext(ctx).With("finding", f.Key, "rule", f.Rule, "path", f.Path, "line", f.Line)
	ctx = clog.WithLogger(ctx, log)
	a := &Attempt{Finding: f}
	o.attempts = append(o.attempts, a)

	fail := func(reason string, err error) {
		a.Reason = reason
		if err != nil {
			a.Reason = fmt.Sprintf("%s: %v", reason, err)
		}
		log.With("reason", a.Reason).Warn("Finding not fixed")
	}

	tmpl, key, err := o.deps.Catalog.Resolve(f.Rule)
	if err != nil {
		fail("no prompt template", err)
		return
	}

	original, err := o.deps.Host.ReadFile(ctx, f.Path, o.cfg.BaseBranch)
	if err != nil {
		fail("could not read file", err)
		return
	}
	if original == "" {
		fail("could not read file", errors.New("file is empty"))
		return
	}
	if limit := o.cfg.MaxFileTokens; limit > 0 {
		if n := completion.EstimateTokens(original); n > limit {
			fail("file too large", fmt.Errorf("about %d tokens, limit %d", n, limit))
			return
		}
	}

	prompt, err := tmpl.Fill(map[string]string{
		promptbuilder.PlaceholderMessage:  f.Message,
		promptbuilder.PlaceholderCode:     original,
		promptbuilder.PlaceholderRule:     f.Rule,
		promptbuilder.PlaceholderPath:     f.Path,
		promptbuilder.PlaceholderLine:     strconv.Itoa(f.Line),
		promptbuilder.PlaceholderSeverity: f.Severity,
	})
	if err != nil {
		fail("could not build prompt from template "+key, err)
		return
	}
	if limit := 2 * o.cfg.MaxFileTokens; limit > 0 {
		if n := completion.EstimateTokens(prompt); n > limit {
			fail("prompt too large", fmt.Errorf("about %d tokens, limit %d", n, limit))
			return
		}
	}

	fixed, res, err := o.deps.AI.Fix(ctx, prompt)
	a.Usage, a.Calls = res.Usage, res.Attempts
	if err != nil {
		fail("no usable fix", err)
		return
	}
	if fixed == original {
		fail("no usable fix", errors.New("response is identical to the original file"))
		return
	}

	if o.cfg.DryRun {
		a.Success = true
		log.Info("Fix accepted (dry run)")
		return
	}

	if err := o.ensureBranch(ctx); err != nil {
		fail("could not create working branch", err)
		return
	}

	a.Success = true
	o.batch.Add(f.Path, fixed)
	o.content[f.Path] = fixed
	o.staged[f.Path] = append(o.staged[f.Path], a)
	log.With("pending", o.batch.Pending()).Info("Fix staged")

	if o.batch.ShouldFlush() {
		o.settle(runCtx, o.batch.Flush(runCtx, o.branch, ""))
	}
}

// ensureBranch creates the working branch on the first real fix. An existing
// branch is reused.
func (o *Orchestrator) ensureBranch(ctx context.Context) error {
	if o.created {
		return nil
	}
	err := o.deps.Host.CreateBranch(ctx, o.branch, o.cfg.BaseBranch)
	switch {
	case err == nil:
	case errors.Is(err, githost.ErrBranchExists):
		clog.FromContext(ctx).With("branch", o.branch).Info("Working branch exists, reusing it")
	default:
		return err
	}
	o.created = true
	return nil
}

// settle records fingerprints for committed paths and downgrades the
// attempts whose files could not be committed.
func (o *Orchestrator) settle(ctx context.Context, res batch.Result) {
	log := clog.FromContext(ctx)
	if !res.Success {
		// Everything is still staged and will be retried by the final flush.
		return
	}
	for _, path := range res.Succeeded {
		id := res.Commits[path].ID
		for _, a := range o.staged[path] {
			a.CommitID = id
			if err := o.deps.Store.MarkFixed(ctx, a.Finding, o.branch, o.content[path], id); err != nil {
				log.With("finding", a.Finding.Key, "error", err).Warn("Failed to record fingerprint")
			}
		}
		delete(o.staged, path)
		delete(o.content, path)
	}
	for _, failure := range res.Failed {
		o.drop(failure)
	}
}

// drop marks the attempts behind a file that never landed as failed.
func (o *Orchestrator) drop(failure batch.Failure) {
	o.commitFailures = append(o.commitFailures, failure)
	for _, a := range o.staged[failure.Path] {
		a.Success = false
		a.Reason = fmt.Sprintf("commit failed: %v", failure.Err)
	}
	delete(o.staged, failure.Path)
	delete(o.content, failure.Path)
}

func (o *Orchestrator) finalize(ctx context.Context) {
	log := clog.FromContext(ctx)

	if o.batch.Pending() > 0 {
		res := o.batch.FlushRemaining(ctx, o.branch)
		if res.Success {
			o.settle(ctx, res)
		} else {
			for _, failure := range res.Failed {
				o.drop(failure)
			}
		}
	}

	succeeded := 0
	for _, a := range o.attempts {
		if a.Success {
			succeeded++
		}
	}
	if o.cfg.CreateChangeRequest && !o.cfg.DryRun && succeeded > 0 && o.batch.Commits() > 0 {
		o.openChangeRequest(ctx)
	}

	if n, err := o.deps.Store.PurgeOlderThan(ctx, o.cfg.RetentionDays); err != nil {
		log.With("error", err).Warn("Failed to purge old fingerprints")
	} else if n > 0 {
		log.With("removed", n, "days", o.cfg.RetentionDays).Info("Purged old fingerprints")
	}
}

func (o *Orchestrator) openChangeRequest(ctx context.Context) {
	log := clog.FromContext(ctx)
	title := fmt.Sprintf("Automated static-analysis fixes (%d batches)", o.batch.Commits())
	body, err := renderChangeRequest(o.changeRequestData())
	if err != nil {
		log.With("error", err).Warn("Failed to render change request body")
		return
	}
	url, err := o.deps.Host.OpenChangeRequest(ctx, o.branch, o.cfg.BaseBranch, title, body)
	if err != nil {
		log.With("error", err).Warn("Failed to open change request")
		return
	}
	o.changeRequest = url
	log.With("url", url).Info("Opened change request")
}
