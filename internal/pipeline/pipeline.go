// Package pipeline drives one pass over all unprocessed intake logs:
// parse, group, correlate, extract, persist, mark processed, archive.
//
// The pipeline is single threaded; each file is fully processed before the
// next begins, and one file's failure never halts the batch.
package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/joss/worklog/internal/config"
	"github.com/joss/worklog/internal/correlate"
	"github.com/joss/worklog/internal/domain"
	"github.com/joss/worklog/internal/gitsource"
	"github.com/joss/worklog/internal/issues"
	"github.com/joss/worklog/internal/parser"
	"github.com/joss/worklog/internal/sessions"
	"github.com/joss/worklog/internal/store"
)

// State names the per-file processing stages.
type State string

const (
	StateDiscovered State = "discovered"
	StateParsed     State = "parsed"
	StateGrouped    State = "grouped"
	StateCorrelated State = "correlated"
	StateExtracted  State = "extracted"
	StatePersisted  State = "persisted"
	StateArchived   State = "archived"
	StateSkipped    State = "skipped"
	StateFailed     State = "failed"
)

// Pipeline orchestrates the ingestion passes.
type Pipeline struct {
	cfg        config.Config
	store      *store.Store
	parser     *parser.Parser
	correlator *correlate.Correlator
	extractor  *issues.Extractor
	log        zerolog.Logger
}

// New wires a pipeline. The version-control source is injected so tests can
// run against an in-memory fake.
func New(cfg config.Config, st *store.Store, source gitsource.Source, log zerolog.Logger) (*Pipeline, error) {
	extractor, err := issues.New(cfg.CustomPatterns)
	if err != nil {
		return nil, err
	}
	return &Pipeline{
		cfg:        cfg,
		store:      st,
		parser:     parser.New(),
		correlator: correlate.New(source, log),
		extractor:  extractor,
		log:        log,
	}, nil
}

// Run executes one batch pass over the intake directory. It always returns a
// summary, even when files failed; the error is non-nil only for batch-level
// problems (unreadable intake directory).
func (p *Pipeline) Run(ctx context.Context) (domain.BatchSummary, error) {
	summary := domain.BatchSummary{
		RunID:     uuid.NewString(),
		StartedAt: time.Now().UTC(),
	}

	files, err := p.discover()
	if err != nil {
		return summary, fmt.Errorf("discovering intake files: %w", err)
	}
	summary.Files = len(files)

	for _, path := range files {
		p.processFile(ctx, path, &summary)
	}

	// Retention runs every pass, independent of whether new files arrived.
	if err := p.compressAged(); err != nil {
		p.log.Warn().Err(err).Msg("cold storage compression failed")
	}

	summary.Elapsed = time.Since(summary.StartedAt)
	p.log.Info().
		Str("run_id", summary.RunID).
		Int("files", summary.Files).
		Int("skipped", summary.Skipped).
		Int("entries", summary.Entries).
		Int("sessions", summary.Sessions).
		Int("commits", summary.Commits).
		Int("issues", summary.Issues).
		Int("errors", summary.Errors).
		Dur("elapsed", summary.Elapsed).
		Msg("batch complete")
	return summary, nil
}

// discover lists unprocessed intake files, oldest name first.
func (p *Pipeline) discover() ([]string, error) {
	matches, err := doublestar.FilepathGlob(filepath.Join(p.cfg.IntakeDir, "**", "*.jsonl"))
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)
	return matches, nil
}

// processFile walks one file through the state machine. All failures are
// absorbed into the summary; the batch continues with the next file.
func (p *Pipeline) processFile(ctx context.Context, path string, summary *domain.BatchSummary) {
	identity := filepath.Base(path)
	log := p.log.With().Str("file", identity).Logger()
	state := StateDiscovered

	fail := func(err error) {
		state = StateFailed
		summary.Failed++
		summary.Errors++
		log.Error().Err(err).Str("state", string(state)).Msg("file failed, continuing batch")
	}

	processed, err := p.store.HasProcessed(ctx, identity)
	if err != nil {
		fail(err)
		return
	}
	if processed {
		state = StateSkipped
		summary.Skipped++
		log.Debug().Str("state", string(state)).Msg("already in ledger")
		return
	}

	res, err := p.parser.ParseFile(path)
	if err != nil {
		fail(err)
		return
	}
	state = StateParsed
	summary.Entries += len(res.Entries)
	summary.Errors += len(res.Errors)
	for _, lineErr := range res.Errors {
		log.Warn().Int("line", lineErr.Line).Str("reason", lineErr.Reason).Msg("rejected intake line")
	}

	grouped := sessions.Group(res.Entries, p.cfg.GapMinutes)
	state = StateGrouped

	ingestion := store.FileIngestion{
		Record: domain.ProcessingRecord{
			FileIdentity:    identity,
			EntriesCount:    len(res.Entries),
			SessionsCreated: len(grouped),
			ErrorsCount:     len(res.Errors),
			ProcessedAt:     time.Now().UTC(),
		},
	}
	for _, sess := range grouped {
		commits := p.correlator.CommitsInWindow(ctx, correlate.RepoPathsFor(sess), sess.StartTime, sess.EndTime)
		state = StateCorrelated

		links := p.extractor.FromSession(sess, commits)
		state = StateExtracted

		summary.Commits += len(commits)
		summary.Issues += len(links)
		ingestion.Sessions = append(ingestion.Sessions, store.SessionIngestion{
			Session: sess,
			Commits: commits,
			Issues:  links,
		})
	}
	summary.Sessions += len(grouped)

	if err := p.store.IngestFile(ctx, ingestion); err != nil {
		fail(err)
		return
	}
	state = StatePersisted

	if err := p.archiveFile(path); err != nil {
		// Persisted but not relocated: the ledger still prevents
		// reprocessing on the next pass.
		fail(err)
		return
	}
	state = StateArchived
	log.Info().
		Str("state", string(state)).
		Int("entries", len(res.Entries)).
		Int("sessions", len(grouped)).
		Int("line_errors", len(res.Errors)).
		Msg("file ingested")
}
