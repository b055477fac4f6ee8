package orchestrator

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/crystalford/canopticon-sub002/internal/cluster"
	"github.com/crystalford/canopticon-sub002/internal/engine"
	"github.com/crystalford/canopticon-sub002/internal/ingest"
	"github.com/crystalford/canopticon-sub002/internal/model"
	"github.com/crystalford/canopticon-sub002/internal/store"
	"github.com/crystalford/canopticon-sub002/internal/triage"
)

// ErrCycleRunning is returned when a cycle is requested while one is already
// in flight. Cycles never overlap.
var ErrCycleRunning = errors.New("an automation cycle is already running")

// Store provides the persistence operations a cycle needs.
type Store interface {
	ListActiveSources(ctx context.Context) ([]model.Source, error)
	GetSource(ctx context.Context, id string) (*model.Source, error)
	ListClustersWithoutSignals(ctx context.Context, limit int) ([]model.Cluster, error)
	ListClusterMembers(ctx context.Context, clusterID string) ([]model.RawArticle, error)
	CreateSignal(ctx context.Context, sig model.Signal) error
	ListSignals(ctx context.Context, f model.SignalFilter) ([]model.Signal, error)
	ClaimApprovedSignal(ctx context.Context, id string) (*model.Signal, error)
	ReleaseSignal(ctx context.Context, id string) error
	RescueStalled(ctx context.Context, cutoff string) (int64, error)
	CreateArticle(ctx context.Context, a model.Article) error
	GetArticleBySignal(ctx context.Context, signalID string) (*model.Article, error)
	PublishArticle(ctx context.Context, id string) error
	InsertCycleLog(ctx context.Context, entry model.CycleLog) error
	PruneCycleLogs(ctx context.Context, before string) (int64, error)
}

// Ingestor pulls new raw articles from sources, recording per-source
// failures on the given audit logger.
type Ingestor interface {
	Run(ctx context.Context, sources []model.Source, log ingest.Logger) ingest.Stats
}

// Clusterer groups raw articles into stories.
type Clusterer interface {
	Run(ctx context.Context) (cluster.Stats, error)
}

// Scorer rates clustered stories.
type Scorer interface {
	Score(ctx context.Context, headline string, members []model.RawArticle) (*engine.ScoreResult, error)
}

// Writer synthesizes articles from signals.
type Writer interface {
	Synthesize(ctx context.Context, sig model.Signal, members []model.RawArticle) (*engine.SynthesisResult, error)
}

// Triager sorts scored pending signals.
type Triager interface {
	AutoTriageAt(ctx context.Context, threshold int) (triage.AutoStats, error)
}

// Options controls cycle behaviour.
type Options struct {
	AutoPublish  bool
	Threshold    int
	BatchSize    int
	StallWindow  time.Duration
	LogRetention time.Duration
}

// Overrides are per-cycle parameter overrides; nil fields keep the
// configured defaults.
type Overrides struct {
	Threshold   *int
	AutoPublish *bool
	BatchSize   *int
}

// Summary reports what one cycle did.
type Summary struct {
	CycleID     string           `json:"cycle_id"`
	StartedAt   string           `json:"started_at"`
	FinishedAt  string           `json:"finished_at"`
	Rescued     int64            `json:"rescued"`
	Ingest      ingest.Stats     `json:"ingest"`
	Cluster     cluster.Stats    `json:"cluster"`
	Scored      int              `json:"scored"`
	Unscored    int              `json:"unscored"`
	ScoreErrors int              `json:"score_errors"`
	Triage      triage.AutoStats `json:"triage"`
	Synthesized int              `json:"synthesized"`
	Published   int              `json:"published"`
	SynthErrors int              `json:"synth_errors"`
}

// Runner executes automation cycles: rescue, ingest, cluster, score, triage,
// synthesize, prune. At most one cycle runs at a time.
type Runner struct {
	store     Store
	ingestor  Ingestor
	clusterer Clusterer
	scorer    Scorer
	writer    Writer
	triager   Triager
	opts      Options

	mu sync.Mutex
}

// New creates a cycle Runner.
func New(st Store, ing Ingestor, cl Clusterer, sc Scorer, wr Writer, tr Triager, opts Options) *Runner {
	if opts.Threshold <= 0 {
		opts.Threshold = 65
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 20
	}
	if opts.StallWindow <= 0 {
		opts.StallWindow = 10 * time.Minute
	}
	if opts.LogRetention <= 0 {
		opts.LogRetention = 7 * 24 * time.Hour
	}
	return &Runner{store: st, ingestor: ing, clusterer: cl, scorer: sc, writer: wr, triager: tr, opts: opts}
}

// Run executes one full cycle with the configured options.
func (r *Runner) Run(ctx context.Context) (*Summary, error) {
	return r.RunWith(ctx, Overrides{})
}

// RunWith executes one full cycle, applying any per-cycle overrides, and
// returns its summary. Returns ErrCycleRunning if another cycle holds the
// lock.
func (r *Runner) RunWith(ctx context.Context, ov Overrides) (*Summary, error) {
	if !r.mu.TryLock() {
		return nil, ErrCycleRunning
	}
	defer r.mu.Unlock()

	opts := r.opts
	if ov.Threshold != nil {
		opts.Threshold = *ov.Threshold
	}
	if ov.AutoPublish != nil {
		opts.AutoPublish = *ov.AutoPublish
	}
	if ov.BatchSize != nil && *ov.BatchSize > 0 {
		opts.BatchSize = *ov.BatchSize
	}

	summary := &Summary{
		CycleID:   uuid.NewString(),
		StartedAt: time.Now().UTC().Format(time.RFC3339),
	}
	log := newCycleLogger(r.store, summary.CycleID)
	log.Info(ctx, "cycle started")

	// Fetch and parse problems are soft and stay inside their stage; a
	// failing store aborts the cycle with the counts gathered so far.
	stages := []func(context.Context, Options, *Summary, *cycleLogger) error{
		r.rescue, r.ingest, r.clusterStage, r.score, r.autoTriage, r.synthesize, r.prune,
	}
	for _, stage := range stages {
		if err := stage(ctx, opts, summary, log); err != nil {
			summary.FinishedAt = time.Now().UTC().Format(time.RFC3339)
			log.Error(ctx, "cycle aborted: "+err.Error())
			return summary, err
		}
	}

	summary.FinishedAt = time.Now().UTC().Format(time.RFC3339)
	log.Info(ctx, fmt.Sprintf(
		"cycle finished: ingested=%d clusters=%d scored=%d approved=%d rejected=%d synthesized=%d published=%d",
		summary.Ingest.Inserted, summary.Cluster.Clusters, summary.Scored,
		summary.Triage.Approved, summary.Triage.Rejected, summary.Synthesized, summary.Published,
	))
	return summary, nil
}

// rescue resets signals stuck in processing longer than the stall window.
func (r *Runner) rescue(ctx context.Context, opts Options, summary *Summary, log *cycleLogger) error {
	cutoff := time.Now().UTC().Add(-opts.StallWindow).Format(time.RFC3339)
	n, err := r.store.RescueStalled(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("rescue stalled: %w", err)
	}
	summary.Rescued = n
	if n > 0 {
		log.Warn(ctx, fmt.Sprintf("rescued %d stalled signals back to pending", n))
	}
	return nil
}

func (r *Runner) ingest(ctx context.Context, _ Options, summary *Summary, log *cycleLogger) error {
	sources, err := r.store.ListActiveSources(ctx)
	if err != nil {
		return fmt.Errorf("list sources: %w", err)
	}
	if len(sources) == 0 {
		log.Warn(ctx, "no active sources configured")
		return nil
	}
	summary.Ingest = r.ingestor.Run(ctx, sources, log)
	log.Info(ctx, fmt.Sprintf("ingest: fetched=%d inserted=%d duplicates=%d errors=%d",
		summary.Ingest.Fetched, summary.Ingest.Inserted, summary.Ingest.Duplicates, summary.Ingest.SourceErrors))
	return nil
}

func (r *Runner) clusterStage(ctx context.Context, _ Options, summary *Summary, log *cycleLogger) error {
	stats, err := r.clusterer.Run(ctx)
	if err != nil {
		return fmt.Errorf("clustering: %w", err)
	}
	summary.Cluster = stats
	log.Info(ctx, fmt.Sprintf("cluster: created=%d items=%d", stats.Clusters, stats.Items))
	return nil
}

// score creates one signal per fresh cluster. An unparseable model response
// still yields a signal, just without a score, so nothing is lost.
func (r *Runner) score(ctx context.Context, opts Options, summary *Summary, log *cycleLogger) error {
	clusters, err := r.store.ListClustersWithoutSignals(ctx, opts.BatchSize)
	if err != nil {
		return fmt.Errorf("list clusters: %w", err)
	}

	for _, c := range clusters {
		members, err := r.store.ListClusterMembers(ctx, c.ID)
		if err != nil {
			log.Error(ctx, fmt.Sprintf("list members for cluster %s failed: %v", c.ID, err))
			continue
		}

		clusterID := c.ID
		url, sourceName := "", ""
		if len(members) > 0 {
			url = members[0].URL
			sourceName = members[0].SourceID
			if src, err := r.store.GetSource(ctx, members[0].SourceID); err == nil {
				sourceName = src.Name
			}
		}
		sig := model.NewSignal(uuid.NewString(), &clusterID, c.RepresentativeTitle, "", url, sourceName)

		result, err := r.scorer.Score(ctx, c.RepresentativeTitle, members)
		if err != nil {
			log.Error(ctx, fmt.Sprintf("scoring cluster %s failed: %v", c.ID, err))
			summary.ScoreErrors++
			continue
		}
		if result != nil {
			score := result.Score
			sig.ConfidenceScore = &score
			sig.Priority = result.Priority
			sig.Summary = result.Summary
			sig.Entities = result.Entities
			sig.Topics = result.Topics
			summary.Scored++
		} else {
			log.Warn(ctx, fmt.Sprintf("cluster %s unscorable, signal left unscored", c.ID))
			summary.Unscored++
		}

		if err := r.store.CreateSignal(ctx, sig); err != nil {
			log.Error(ctx, fmt.Sprintf("create signal for cluster %s failed: %v", c.ID, err))
			continue
		}
	}
	log.Info(ctx, fmt.Sprintf("score: scored=%d unscored=%d errors=%d", summary.Scored, summary.Unscored, summary.ScoreErrors))
	return nil
}

func (r *Runner) autoTriage(ctx context.Context, opts Options, summary *Summary, log *cycleLogger) error {
	stats, err := r.triager.AutoTriageAt(ctx, opts.Threshold)
	if err != nil {
		return fmt.Errorf("auto-triage: %w", err)
	}
	summary.Triage = stats
	log.Info(ctx, fmt.Sprintf("triage: approved=%d rejected=%d skipped=%d", stats.Approved, stats.Rejected, stats.Skipped))
	return nil
}

// synthesize drafts articles for approved signals. The claim moves each
// signal to processing first, so two overlapping runners can never write the
// same story twice.
func (r *Runner) synthesize(ctx context.Context, opts Options, summary *Summary, log *cycleLogger) error {
	approved, err := r.store.ListSignals(ctx, model.SignalFilter{Status: []string{model.StatusApproved}})
	if err != nil {
		return fmt.Errorf("list approved: %w", err)
	}
	if len(approved) > opts.BatchSize {
		approved = approved[:opts.BatchSize]
	}

	for _, candidate := range approved {
		// A draft from an earlier cycle is still waiting for manual publish.
		if _, err := r.store.GetArticleBySignal(ctx, candidate.ID); err == nil {
			continue
		} else if !errors.Is(err, sql.ErrNoRows) {
			log.Error(ctx, fmt.Sprintf("article lookup for signal %s failed: %v", candidate.ID, err))
			continue
		}

		sig, err := r.store.ClaimApprovedSignal(ctx, candidate.ID)
		if err != nil {
			log.Error(ctx, fmt.Sprintf("claim signal %s failed: %v", candidate.ID, err))
			continue
		}
		if sig == nil {
			continue // lost the claim, someone else has it
		}

		var members []model.RawArticle
		if sig.ClusterID != nil {
			members, err = r.store.ListClusterMembers(ctx, *sig.ClusterID)
			if err != nil {
				log.Error(ctx, fmt.Sprintf("list members for signal %s failed: %v", sig.ID, err))
				r.release(ctx, sig.ID, log)
				summary.SynthErrors++
				continue
			}
		}

		result, err := r.writer.Synthesize(ctx, *sig, members)
		if err != nil {
			log.Error(ctx, fmt.Sprintf("synthesis for signal %s failed: %v", sig.ID, err))
			r.release(ctx, sig.ID, log)
			summary.SynthErrors++
			continue
		}

		article, err := r.createDraft(ctx, sig, result)
		if err != nil {
			log.Error(ctx, fmt.Sprintf("create article for signal %s failed: %v", sig.ID, err))
			r.release(ctx, sig.ID, log)
			summary.SynthErrors++
			continue
		}
		summary.Synthesized++
		log.Info(ctx, fmt.Sprintf("synthesized article %s (%s) for signal %s", article.ID, article.Slug, sig.ID))

		if opts.AutoPublish {
			if err := r.store.PublishArticle(ctx, article.ID); err != nil {
				log.Error(ctx, fmt.Sprintf("auto-publish article %s failed: %v", article.ID, err))
				r.release(ctx, sig.ID, log)
				continue
			}
			summary.Published++
		} else {
			// Draft saved; hand the signal back so an operator can publish.
			r.release(ctx, sig.ID, log)
		}
	}
	return nil
}

// createDraft persists the synthesis result, retrying once with a suffixed
// slug when two stories produce the same headline.
func (r *Runner) createDraft(ctx context.Context, sig *model.Signal, result *engine.SynthesisResult) (*model.Article, error) {
	content, err := encodeDocument(result.Sections)
	if err != nil {
		return nil, err
	}

	slug := model.Slugify(result.Headline)
	article := model.NewDraftArticle(uuid.NewString(), &sig.ID, slug, result.Headline, result.Summary, content)
	createErr := r.store.CreateArticle(ctx, article)
	if errors.Is(createErr, store.ErrDuplicate) {
		article.Slug = slug + "-" + article.ID[:8]
		createErr = r.store.CreateArticle(ctx, article)
	}
	if createErr != nil {
		return nil, createErr
	}
	return &article, nil
}

func (r *Runner) release(ctx context.Context, id string, log *cycleLogger) {
	if err := r.store.ReleaseSignal(ctx, id); err != nil {
		log.Error(ctx, fmt.Sprintf("release signal %s failed: %v", id, err))
	}
}

// prune is best-effort housekeeping; a failure never fails the cycle.
func (r *Runner) prune(ctx context.Context, opts Options, _ *Summary, log *cycleLogger) error {
	before := time.Now().UTC().Add(-opts.LogRetention).Format(time.RFC3339Nano)
	if _, err := r.store.PruneCycleLogs(ctx, before); err != nil {
		log.Error(ctx, "prune cycle logs failed: "+err.Error())
	}
	return nil
}
