// Package enrich turns raw shell history into annotated, embedded
// command entries. The pipeline filters noise, deduplicates against the
// batch and the store, asks the LLM for a description and tags, and
// persists entry plus embedding.
package enrich

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dshills/clihunter/internal/embedder"
	"github.com/dshills/clihunter/internal/history"
	"github.com/dshills/clihunter/internal/llm"
	"github.com/dshills/clihunter/internal/storage"
	"github.com/dshills/clihunter/pkg/types"
)

// Annotator produces a description and tags for a raw command
type Annotator interface {
	Annotate(ctx context.Context, rawCommand string) (*llm.Annotation, error)
}

// Options configures the pipeline
type Options struct {
	Denylist         []string // base commands dropped as noise
	MinCommandLength int      // commands shorter than this are dropped
	Workers          int      // concurrent enrichment workers (default: runtime.NumCPU())
	MaxAttempts      int      // attempts per candidate for LLM and embedding calls (default: 3)

	// Force re-enriches commands already in the store: the existing
	// entry keeps its id but gets a fresh description, tags, and
	// embedding. Without it, known commands are skipped.
	Force bool
}

// Candidate is a history command that survived filtering and
// deduplication.
type Candidate struct {
	Command   string
	Timestamp *int64

	// ExistingID is set when a stored entry with the same normalized
	// form is being re-enriched in place.
	ExistingID string
}

// Summary reports what happened to a batch
type Summary struct {
	Raw      int // entries received
	Enriched int // stored with annotation and embedding
	Skipped  int // filtered, deduplicated, or already present
	Failed   int // enrichment or storage errors
	Duration time.Duration
	Errors   []string
}

// ErrRunInProgress is returned when Run is called while a previous
// batch on the same Pipeline is still being processed.
var ErrRunInProgress = errors.New("enrichment already in progress")

// Pipeline coordinates filter -> dedupe -> annotate -> embed -> store
type Pipeline struct {
	store     storage.Storage
	embed     embedder.Embedder
	annotator Annotator
	opts      Options
	denied    map[string]struct{}
	lock      runLock
}

// New creates a Pipeline
func New(store storage.Storage, embed embedder.Embedder, annotator Annotator, opts Options) *Pipeline {
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	denied := make(map[string]struct{}, len(opts.Denylist))
	for _, d := range opts.Denylist {
		denied[strings.ToLower(d)] = struct{}{}
	}
	return &Pipeline{
		store:     store,
		embed:     embed,
		annotator: annotator,
		opts:      opts,
		denied:    denied,
	}
}

// Plan filters and deduplicates a batch without enriching or storing
// anything. The dry-run path of the CLI uses it directly.
func (p *Pipeline) Plan(ctx context.Context, entries []history.Entry) ([]Candidate, error) {
	// Deduplicate within the batch on the normalized form. The latest
	// occurrence wins so re-run commands keep their newest timestamp.
	byNorm := make(map[string]Candidate)
	var order []string

	for _, e := range entries {
		if !p.keep(e.Command) {
			continue
		}
		norm := types.NormalizeCommand(e.Command)
		if _, seen := byNorm[norm]; !seen {
			order = append(order, norm)
		}
		byNorm[norm] = Candidate{Command: strings.TrimSpace(e.Command), Timestamp: e.Timestamp}
	}

	// Drop anything already enriched in a previous run, unless Force
	// is on, in which case the stored entry is updated under its id.
	candidates := make([]Candidate, 0, len(order))
	for _, norm := range order {
		cand := byNorm[norm]
		existing, err := p.store.GetCommandByNormalized(ctx, norm, types.SourceHistory)
		switch {
		case err == nil:
			if !p.opts.Force {
				continue
			}
			cand.ExistingID = existing.ID
		case errors.Is(err, storage.ErrNotFound):
		default:
			return nil, fmt.Errorf("failed to check for existing command: %w", err)
		}
		candidates = append(candidates, cand)
	}

	return candidates, nil
}

// Run enriches and stores a batch of history entries. A failing
// candidate is counted and reported but never aborts the rest of the
// batch. Re-running over the same history is a no-op unless
// Options.Force re-enriches the stored entries in place.
func (p *Pipeline) Run(ctx context.Context, entries []history.Entry) (*Summary, error) {
	if !p.lock.TryAcquire() {
		return nil, ErrRunInProgress
	}
	defer p.lock.Release()

	start := time.Now()
	summary := &Summary{Raw: len(entries)}

	candidates, err := p.Plan(ctx, entries)
	if err != nil {
		return nil, err
	}
	summary.Skipped = len(entries) - len(candidates)

	var (
		enriched int32
		skipped  int32
		failed   int32
		mu       sync.Mutex
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.Workers)

	for _, cand := range candidates {
		cand := cand
		g.Go(func() error {
			err := p.enrichOne(gctx, cand)
			switch {
			case err == nil:
				atomic.AddInt32(&enriched, 1)
			case errors.Is(err, storage.ErrDuplicate):
				// raced with another worker on the same normalized form
				atomic.AddInt32(&skipped, 1)
			case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
				return err
			default:
				atomic.AddInt32(&failed, 1)
				mu.Lock()
				summary.Errors = append(summary.Errors, fmt.Sprintf("%s: %v", cand.Command, err))
				mu.Unlock()
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	summary.Enriched = int(enriched)
	summary.Skipped += int(skipped)
	summary.Failed = int(failed)
	summary.Duration = time.Since(start)
	return summary, nil
}

// enrichOne annotates, embeds, and stores a single candidate
func (p *Pipeline) enrichOne(ctx context.Context, cand Candidate) error {
	ann, err := withRetry(ctx, p.opts.MaxAttempts, func() (*llm.Annotation, error) {
		return p.annotator.Annotate(ctx, cand.Command)
	})
	if err != nil {
		return fmt.Errorf("annotation failed: %w", err)
	}

	id := cand.ExistingID
	if id == "" {
		id = types.NewID()
	}
	entry := &types.CommandEntry{
		ID:          id,
		RawCommand:  cand.Command,
		Description: ann.Description,
		Tags:        ann.Tags,
		Source:      types.SourceHistory,
		HistoryTS:   cand.Timestamp,
	}

	emb, err := withRetry(ctx, p.opts.MaxAttempts, func() (*embedder.Embedding, error) {
		return p.embed.GenerateEmbedding(ctx, embedder.EmbeddingRequest{Text: entry.EmbeddingText()})
	})
	if err != nil {
		return fmt.Errorf("embedding failed: %w", err)
	}

	tx, err := p.store.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := tx.PutCommand(ctx, entry); err != nil {
		return err
	}
	if !emb.IsZero() {
		rec := &storage.Embedding{
			CommandID: entry.ID,
			Vector:    storage.SerializeVector(emb.Vector),
			Dimension: emb.Dimension,
			Provider:  emb.Provider,
			Model:     emb.Model,
		}
		if err := tx.UpsertEmbedding(ctx, rec); err != nil {
			return fmt.Errorf("failed to store embedding: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

// keep decides whether a raw history line is worth enriching
func (p *Pipeline) keep(raw string) bool {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return false
	}
	if len(trimmed) < p.opts.MinCommandLength {
		return false
	}

	base := strings.ToLower(types.BaseCommand(trimmed))
	if _, denied := p.denied[base]; !denied {
		return true
	}

	// A denylisted base command is still interesting when it carries
	// option flags ("ls" is noise, "ls -laR --sort=size" is not).
	for _, field := range strings.Fields(trimmed)[1:] {
		if strings.HasPrefix(field, "-") {
			return true
		}
	}
	return false
}

// withRetry retries transient provider failures with doubling backoff
func withRetry[T any](ctx context.Context, maxAttempts int, fn func() (T, error)) (T, error) {
	var zero T
	delay := 500 * time.Millisecond

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		result, err := fn()
		if err == nil {
			return result, nil
		}
		lastErr = err

		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return zero, err
		}
		if attempt == maxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}

	return zero, lastErr
}
