// Package ingest parses a historical SMS backlog into the transaction
// store. Parsing runs in parallel inside each batch (the parser is pure);
// persistence, progress reporting and the cancellation check happen between
// batches.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/google/uuid"

	"github.com/anuragm339/smart-expense-manager-sub000/internal/core"
	"github.com/anuragm339/smart-expense-manager-sub000/internal/parser"
)

// Message is one raw SMS handed to the engine.
type Message struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Sender    string    `json:"sender"`
	Timestamp time.Time `json:"timestamp"`
}

// Progress receives (processed, total, status) between batches. Implementations
// must be fast; the engine calls them on its own goroutine.
type Progress func(processed, total int, status string)

// Store is what the engine persists into.
type Store interface {
	InsertTransaction(ctx context.Context, tx core.Transaction) (inserted bool, err error)
	SyncState(ctx context.Context) (core.SyncState, error)
	PutSyncState(ctx context.Context, st core.SyncState) error
	CountTransactions(ctx context.Context) (int, error)
}

// Report summarizes one ingest run.
type Report struct {
	Total      int
	Parsed     int
	Duplicates int
	Rejected   int
	Rejections map[parser.RejectReason]int
}

// Engine runs backlog ingestion.
type Engine struct {
	parser    *parser.Parser
	store     Store
	batchSize int
	workers   int
	logger    *slog.Logger
}

// NewEngine creates an ingest engine. batchSize and workers fall back to
// sane defaults when non-positive.
func NewEngine(p *parser.Parser, store Store, batchSize, workers int) *Engine {
	if batchSize <= 0 {
		batchSize = 50
	}
	if workers <= 0 {
		workers = 4
	}
	return &Engine{
		parser:    p,
		store:     store,
		batchSize: batchSize,
		workers:   workers,
		logger:    slog.Default(),
	}
}

type parseOutcome struct {
	tx     core.Transaction
	reason parser.RejectReason
}

// Run ingests msgs. Cancellation is cooperative: the context is checked
// between batches, never mid-item, so a cancelled run still has every
// completed batch persisted and the sync state marked cancelled.
func (e *Engine) Run(ctx context.Context, msgs []Message, progress Progress) (Report, error) {
	report := Report{
		Total:      len(msgs),
		Rejections: make(map[parser.RejectReason]int),
	}

	e.setStatus(ctx, core.SyncStatusRunning)

	var lastID string
	var lastTS time.Time
	processed := 0

	for start := 0; start < len(msgs); start += e.batchSize {
		if err := ctx.Err(); err != nil {
			e.finish(ctx, core.SyncStatusCancelled, lastID, lastTS)
			return report, err
		}

		end := start + e.batchSize
		if end > len(msgs) {
			end = len(msgs)
		}
		batch := msgs[start:end]

		outcomes := make([]parseOutcome, len(batch))
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(e.workers)
		for i, msg := range batch {
			g.Go(func() error {
				select {
				case <-gctx.Done():
					return gctx.Err()
				default:
				}
				tx, reason := e.parser.Parse(msg.Text, msg.Sender, msg.Timestamp)
				outcomes[i] = parseOutcome{tx: tx, reason: reason}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			e.finish(ctx, core.SyncStatusCancelled, lastID, lastTS)
			return report, err
		}

		for i, out := range outcomes {
			msg := batch[i]
			if out.reason != parser.RejectNone {
				report.Rejected++
				report.Rejections[out.reason]++
				e.logger.DebugContext(ctx, "message rejected",
					"reason", string(out.reason), "sender", msg.Sender)
				continue
			}

			tx := out.tx
			tx.ID = StableID(msg)
			inserted, err := e.store.InsertTransaction(ctx, tx)
			if err != nil {
				e.finish(ctx, core.SyncStatusFailed, lastID, lastTS)
				return report, fmt.Errorf("persist transaction %s: %w", tx.ID, err)
			}
			if !inserted {
				report.Duplicates++
				continue
			}
			report.Parsed++
			if msg.Timestamp.After(lastTS) {
				lastTS = msg.Timestamp
				lastID = tx.ID
			}
		}

		processed = end
		if progress != nil {
			progress(processed, len(msgs),
				"parsed "+strconv.Itoa(processed)+" of "+strconv.Itoa(len(msgs))+" messages")
		}
	}

	e.finish(ctx, core.SyncStatusCompleted, lastID, lastTS)
	e.logger.InfoContext(ctx, "backlog ingest finished",
		"total", report.Total, "parsed", report.Parsed,
		"duplicates", report.Duplicates, "rejected", report.Rejected)
	return report, nil
}

// StableID returns the message's SMS id, or a deterministic UUID derived
// from its content so re-ingesting the same backlog never duplicates rows.
func StableID(msg Message) string {
	if msg.ID != "" {
		return msg.ID
	}
	seed := msg.Sender + "|" + msg.Timestamp.UTC().Format(time.RFC3339) + "|" + msg.Text
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(seed)).String()
}

func (e *Engine) setStatus(ctx context.Context, status string) {
	st, err := e.store.SyncState(ctx)
	if err != nil {
		e.logger.WarnContext(ctx, "read sync state", "error", err)
		st = core.SyncState{}
	}
	st.Status = status
	if err := e.store.PutSyncState(ctx, st); err != nil {
		e.logger.WarnContext(ctx, "write sync state", "error", err)
	}
}

func (e *Engine) finish(ctx context.Context, status, lastID string, lastTS time.Time) {
	total, err := e.store.CountTransactions(ctx)
	if err != nil {
		e.logger.WarnContext(ctx, "count transactions", "error", err)
	}
	st := core.SyncState{
		LastSMSID:         lastID,
		LastSMSTimestamp:  lastTS,
		TotalTransactions: total,
		Status:            status,
	}
	if status == core.SyncStatusCompleted {
		st.LastFullSync = time.Now()
	}
	if err := e.store.PutSyncState(ctx, st); err != nil {
		e.logger.WarnContext(ctx, "write sync state", "error", err)
	}
}
