// Package service runs the document-discovery operation end to end: it turns
// a user token into a Graph credential, walks every drive of the configured
// site, picks the target folder and lists its downloadable documents.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/chapterworks/spwalk/internal/config"
	"github.com/chapterworks/spwalk/internal/graph"
	"github.com/chapterworks/spwalk/internal/history"
	"github.com/chapterworks/spwalk/internal/walk"
)

// ErrMissingToken is returned by Run when the user token is empty. It is
// detected before any network call.
var ErrMissingToken = errors.New("service: missing access token")

// Exchanger turns a user's delegated token into a Graph credential.
// *graph.Exchanger satisfies it.
type Exchanger interface {
	ExchangeOnBehalfOf(ctx context.Context, userToken string) (*graph.Credential, error)
	Refresh(ctx context.Context, refreshToken string) (*graph.Credential, error)
}

// ExchangerFactory builds an Exchanger from the current config.
type ExchangerFactory func(cfg *config.Config, httpClient *http.Client, logger *slog.Logger) (Exchanger, error)

// Recorder persists a summary of each run. *history.Store satisfies it.
type Recorder interface {
	Record(ctx context.Context, run history.Run) (string, error)
}

// Result is the outcome of one successful run.
type Result struct {
	RunID  string           `json:"runId"`
	Forest []*walk.Node     `json:"forest"`
	Files  []walk.FileEntry `json:"files"`
	Target walk.Target      `json:"-"`
	Stats  walk.Stats       `json:"-"`
}

// RunOptions tunes a single run.
type RunOptions struct {
	// Source labels the run in history.
	Source string
	// OnFolder receives every discovered drive and folder as the walk
	// progresses. Called on the running goroutine.
	OnFolder func(walk.FolderEvent)
}

// Options configures an Orchestrator. Zero values select the production
// implementations.
type Options struct {
	Exchangers ExchangerFactory
	Recorder   Recorder
	Transport  http.RoundTripper
	NowFunc    func() time.Time
}

// Orchestrator runs walks against the config held in a config.Holder. It is
// safe for concurrent use; each run builds its own exchanger, client,
// limiter and walker. The number of concurrent walks is fixed at
// construction from server.max_concurrent_walks.
type Orchestrator struct {
	holder     *config.Holder
	logger     *slog.Logger
	exchangers ExchangerFactory
	recorder   Recorder
	transport  http.RoundTripper
	nowFunc    func() time.Time
	slots      *semaphore.Weighted
}

// New creates an Orchestrator.
func New(holder *config.Holder, logger *slog.Logger, opts Options) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}

	if opts.Exchangers == nil {
		opts.Exchangers = NewGraphExchanger
	}

	if opts.NowFunc == nil {
		opts.NowFunc = time.Now
	}

	slots := int64(holder.Config().Server.MaxConcurrentWalks)
	if slots < 1 {
		slots = 1
	}

	return &Orchestrator{
		holder:     holder,
		logger:     logger,
		exchangers: opts.Exchangers,
		recorder:   opts.Recorder,
		transport:  opts.Transport,
		nowFunc:    opts.NowFunc,
		slots:      semaphore.NewWeighted(slots),
	}
}

// NewGraphExchanger is the production ExchangerFactory. It requires client
// credentials and derives the token endpoint from the tenant unless
// identity.token_url overrides it.
func NewGraphExchanger(cfg *config.Config, httpClient *http.Client, logger *slog.Logger) (Exchanger, error) {
	if err := config.RequireCredentials(cfg); err != nil {
		return nil, fmt.Errorf("service: %w", err)
	}

	tokenURL := cfg.Identity.TokenURL
	if tokenURL == "" {
		tokenURL = graph.TokenURLForTenant(cfg.Identity.Tenant)
	}

	return graph.NewExchanger(graph.ExchangeConfig{
		ClientID:     cfg.Identity.ClientID,
		ClientSecret: cfg.Identity.ClientSecret,
		TokenURL:     tokenURL,
		Scopes:       cfg.Identity.Scopes,
	}, httpClient, logger), nil
}

// Run performs the whole operation for userToken and labels it as a CLI run.
func (o *Orchestrator) Run(ctx context.Context, userToken string) (*Result, error) {
	return o.RunWithOptions(ctx, userToken, RunOptions{Source: history.SourceCLI})
}

// RunWithOptions performs the whole operation for userToken: on-behalf-of
// exchange, refresh, forest walk, target selection and file listing. Any
// failure aborts the run and no partial result is returned.
func (o *Orchestrator) RunWithOptions(ctx context.Context, userToken string, opts RunOptions) (*Result, error) {
	userToken = strings.TrimSpace(userToken)
	if userToken == "" {
		return nil, ErrMissingToken
	}

	cfg := o.holder.Config()
	runID := uuid.NewString()
	logger := o.logger.With(slog.String("run_id", runID))

	if err := o.slots.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("service: waiting for a walk slot: %w", err)
	}
	defer o.slots.Release(1)

	ctx, cancel := context.WithTimeout(ctx, cfg.Server.WalkTimeoutDuration())
	defer cancel()

	started := o.nowFunc()

	logger.Info("run started", slog.String("source", opts.Source), slog.String("site", cfg.Graph.Site))

	res, stats, err := o.run(ctx, cfg, userToken, opts, logger)

	elapsed := o.nowFunc().Sub(started)
	o.record(ctx, cfg, runID, opts.Source, started, elapsed, stats, err, logger)

	if err != nil {
		logger.Error("run failed",
			slog.Duration("elapsed", elapsed),
			slog.String("error", err.Error()),
		)

		return nil, err
	}

	res.RunID = runID

	logger.Info("run complete",
		slog.Duration("elapsed", elapsed),
		slog.Int("drives", stats.Drives),
		slog.Int("folders", stats.Folders),
		slog.Int("files", stats.Files),
	)

	return res, nil
}

func (o *Orchestrator) run(
	ctx context.Context, cfg *config.Config, userToken string, opts RunOptions, logger *slog.Logger,
) (*Result, walk.Stats, error) {
	logTokenClaims(logger, userToken)

	httpClient := &http.Client{
		Transport: o.transport,
		Timeout:   cfg.Network.RequestTimeoutDuration(),
	}

	exchanger, err := o.exchangers(cfg, httpClient, logger)
	if err != nil {
		return nil, walk.Stats{}, err
	}

	obo, err := exchanger.ExchangeOnBehalfOf(ctx, userToken)
	if err != nil {
		return nil, walk.Stats{}, err
	}

	// The Graph calls use the refreshed token, never the on-behalf-of one.
	cred, err := exchanger.Refresh(ctx, obo.RefreshToken)
	if err != nil {
		return nil, walk.Stats{}, err
	}

	limiter, err := walk.NewLimiter(cfg.RateLimit.Mode, cfg.RateLimit.DelayDuration(), cfg.RateLimit.Burst)
	if err != nil {
		return nil, walk.Stats{}, fmt.Errorf("service: %w", err)
	}

	client := graph.NewClient(cfg.Graph.BaseURL, httpClient, graph.StaticToken(cred.AccessToken), logger, cfg.Network.UserAgent)

	walker := walk.NewWalker(client.Site(cfg.Graph.Site), limiter, logger, walk.Options{
		MimeType: cfg.Graph.DocumentMimeType,
		OnFolder: opts.OnFolder,
	})

	forest, err := walker.BuildForest(ctx)
	if err != nil {
		return nil, walker.Stats(), err
	}

	target, err := walk.Selector{
		DriveID:    cfg.Selection.DriveID,
		FolderPath: cfg.Selection.FolderPath,
	}.Select(forest)
	if err != nil {
		return nil, walker.Stats(), err
	}

	logger.Info("selected target folder",
		slog.String("drive_id", target.DriveID),
		slog.String("item_id", target.FolderID),
		slog.String("path", target.Path),
	)

	files, err := walker.ListDownloadableFiles(ctx, target.DriveID, target.FolderID)
	if err != nil {
		return nil, walker.Stats(), err
	}

	return &Result{
		Forest: forest,
		Files:  files,
		Target: target,
		Stats:  walker.Stats(),
	}, walker.Stats(), nil
}

// record stores the run summary. History failures never fail the run.
func (o *Orchestrator) record(
	ctx context.Context, cfg *config.Config, runID, source string,
	started time.Time, elapsed time.Duration, stats walk.Stats, runErr error, logger *slog.Logger,
) {
	if o.recorder == nil {
		return
	}

	run := history.Run{
		ID:        runID,
		StartedAt: started,
		Duration:  elapsed,
		Source:    source,
		Site:      cfg.Graph.Site,
		Drives:    stats.Drives,
		Folders:   stats.Folders,
		Listings:  stats.Listings,
		Files:     stats.Files,
		Outcome:   history.OutcomeOK,
	}

	if runErr != nil {
		run.Outcome = history.OutcomeError
		run.Error = failureReason(runErr)
	}

	// The run context may already be past its deadline.
	if _, err := o.recorder.Record(context.WithoutCancel(ctx), run); err != nil {
		logger.Warn("recording run history failed", slog.String("error", err.Error()))
	}
}
