// Package pipeline wires normalization, ticket resolution, and the
// duplicate guard into the end-to-end review flow. One Process call
// takes a raw payload all the way to a ticket action; ProcessBatch runs
// a poll page through the same path with per-review isolation.
package pipeline

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Mohzrb/drivo-chatmeter-bridge-sub000/internal/card"
	"github.com/Mohzrb/drivo-chatmeter-bridge-sub000/internal/model"
	"github.com/Mohzrb/drivo-chatmeter-bridge-sub000/internal/normalize"
	"github.com/Mohzrb/drivo-chatmeter-bridge-sub000/internal/resilience"
	"github.com/Mohzrb/drivo-chatmeter-bridge-sub000/internal/store"
	"github.com/Mohzrb/drivo-chatmeter-bridge-sub000/internal/ticket"
	"github.com/Mohzrb/drivo-chatmeter-bridge-sub000/pkg/chatmeter"
	"github.com/Mohzrb/drivo-chatmeter-bridge-sub000/pkg/zendesk"
)

// Action is the outcome of processing one review.
type Action string

const (
	ActionCreated Action = "created"
	ActionPosted  Action = "posted"
	ActionSkipped Action = "skipped"
	ActionFixed   Action = "fixed"
	ActionError   Action = "error"
)

// Result describes what happened to a single review.
type Result struct {
	ReviewID string `json:"review_id"`
	TicketID int64  `json:"ticket_id,omitempty"`
	Action   Action `json:"action"`
	Reason   string `json:"reason,omitempty"`
}

// Summary aggregates a batch run.
type Summary struct {
	Checked int `json:"checked"`
	Created int `json:"created"`
	Posted  int `json:"posted"`
	Skipped int `json:"skipped"`
	Errored int `json:"errored"`
}

// Pipeline processes reviews end to end.
type Pipeline struct {
	helpdesk zendesk.Client
	resolver *ticket.Resolver
	reviews  chatmeter.Client
	store    store.Store
	normOpts []normalize.Option
	workers  int
	lookback time.Duration
	dryRun   bool
	fixMode  bool
	sweep    bool
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithReviews enables detail backfill and polling via the review API.
func WithReviews(c chatmeter.Client) Option {
	return func(p *Pipeline) { p.reviews = c }
}

// WithStore enables poll cursors and dead letters.
func WithStore(s store.Store) Option {
	return func(p *Pipeline) { p.store = s }
}

// WithNormalizeOptions sets the options passed to every Normalize call.
func WithNormalizeOptions(opts ...normalize.Option) Option {
	return func(p *Pipeline) { p.normOpts = opts }
}

// WithWorkers bounds batch concurrency.
func WithWorkers(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.workers = n
		}
	}
}

// WithLookback sets how far back the first poll reaches when no cursor
// has been stored yet.
func WithLookback(d time.Duration) Option {
	return func(p *Pipeline) {
		if d > 0 {
			p.lookback = d
		}
	}
}

// WithDryRun reports intended actions without writing to the helpdesk.
func WithDryRun() Option {
	return func(p *Pipeline) { p.dryRun = true }
}

// WithFixMode overwrites the latest private note instead of appending.
func WithFixMode() Option {
	return func(p *Pipeline) { p.fixMode = true }
}

// WithoutSweep disables the post-create duplicate sweep.
func WithoutSweep() Option {
	return func(p *Pipeline) { p.sweep = false }
}

// New creates a Pipeline over the given helpdesk client and resolver.
func New(helpdesk zendesk.Client, resolver *ticket.Resolver, opts ...Option) *Pipeline {
	p := &Pipeline{
		helpdesk: helpdesk,
		resolver: resolver,
		workers:  4,
		lookback: 24 * time.Hour,
		sweep:    true,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process runs one review payload through normalization, ticket
// resolution, and the duplicate guard. The returned error accompanies
// an ActionError result; callers logging the result need not also log
// the error.
func (p *Pipeline) Process(ctx context.Context, payload map[string]any) (Result, error) {
	review, err := normalize.Normalize(payload, p.normOpts...)
	if err != nil {
		p.deadLetter(ctx, "", payload, "normalize", err)
		return Result{Action: ActionError, Reason: err.Error()}, err
	}

	review = p.backfillDetail(ctx, review, payload)

	if p.fixMode {
		return p.processFix(ctx, review, payload)
	}
	if p.dryRun {
		return p.processDry(ctx, review), nil
	}

	ticketID, isNew, err := p.resolver.Resolve(ctx, review)
	if err != nil {
		p.deadLetter(ctx, review.ID, payload, "resolve", err)
		return Result{ReviewID: review.ID, Action: ActionError, Reason: err.Error()}, err
	}

	if isNew {
		if p.sweep {
			p.resolver.SweepDuplicates(ctx, ticket.ExternalKey(review.ID), ticketID)
		}
		return Result{ReviewID: review.ID, TicketID: ticketID, Action: ActionCreated}, nil
	}

	return p.upsertNote(ctx, review, payload, ticketID)
}

// upsertNote appends the rendered card as a private note unless the
// audit log already holds an identical body.
func (p *Pipeline) upsertNote(ctx context.Context, review model.Review, payload map[string]any, ticketID int64) (Result, error) {
	body := card.Render(review)

	audits, err := p.helpdesk.ListAudits(ctx, ticketID)
	if err != nil {
		p.deadLetter(ctx, review.ID, payload, "list audits", err)
		return Result{ReviewID: review.ID, TicketID: ticketID, Action: ActionError, Reason: err.Error()}, err
	}
	if !ticket.ShouldPost(audits, body) {
		return Result{ReviewID: review.ID, TicketID: ticketID, Action: ActionSkipped, Reason: "note unchanged"}, nil
	}

	_, err = p.helpdesk.UpdateTicket(ctx, ticketID, zendesk.TicketRequest{
		Comment: &zendesk.Comment{Body: body, Public: false},
	})
	if err != nil {
		p.deadLetter(ctx, review.ID, payload, "post note", err)
		return Result{ReviewID: review.ID, TicketID: ticketID, Action: ActionError, Reason: err.Error()}, err
	}
	return Result{ReviewID: review.ID, TicketID: ticketID, Action: ActionPosted}, nil
}

// processFix overwrites the ticket's latest private note in place.
// Falls back to the normal create/append path when the ticket or note
// does not exist yet.
func (p *Pipeline) processFix(ctx context.Context, review model.Review, payload map[string]any) (Result, error) {
	ticketID, found := p.resolver.Lookup(ctx, review)
	if !found {
		if p.dryRun {
			return Result{ReviewID: review.ID, Action: ActionCreated, Reason: "dry run"}, nil
		}
		id, _, err := p.resolver.Resolve(ctx, review)
		if err != nil {
			p.deadLetter(ctx, review.ID, payload, "resolve", err)
			return Result{ReviewID: review.ID, Action: ActionError, Reason: err.Error()}, err
		}
		return Result{ReviewID: review.ID, TicketID: id, Action: ActionCreated}, nil
	}

	audits, err := p.helpdesk.ListAudits(ctx, ticketID)
	if err != nil {
		p.deadLetter(ctx, review.ID, payload, "list audits", err)
		return Result{ReviewID: review.ID, TicketID: ticketID, Action: ActionError, Reason: err.Error()}, err
	}

	commentID, ok := ticket.LatestPrivateComment(audits)
	if !ok {
		if p.dryRun {
			return Result{ReviewID: review.ID, TicketID: ticketID, Action: ActionPosted, Reason: "dry run"}, nil
		}
		return p.upsertNote(ctx, review, payload, ticketID)
	}

	body := card.Render(review)
	if !ticket.ShouldPost(audits, body) {
		return Result{ReviewID: review.ID, TicketID: ticketID, Action: ActionSkipped, Reason: "note unchanged"}, nil
	}
	if p.dryRun {
		return Result{ReviewID: review.ID, TicketID: ticketID, Action: ActionFixed, Reason: "dry run"}, nil
	}

	if err := p.helpdesk.UpdateComment(ctx, ticketID, commentID, body); err != nil {
		p.deadLetter(ctx, review.ID, payload, "fix note", err)
		return Result{ReviewID: review.ID, TicketID: ticketID, Action: ActionError, Reason: err.Error()}, err
	}
	return Result{ReviewID: review.ID, TicketID: ticketID, Action: ActionFixed}, nil
}

// processDry reports what Process would do without any helpdesk writes.
func (p *Pipeline) processDry(ctx context.Context, review model.Review) Result {
	ticketID, found := p.resolver.Lookup(ctx, review)
	if !found {
		return Result{ReviewID: review.ID, Action: ActionCreated, Reason: "dry run"}
	}

	audits, err := p.helpdesk.ListAudits(ctx, ticketID)
	if err != nil {
		return Result{ReviewID: review.ID, TicketID: ticketID, Action: ActionError, Reason: err.Error()}
	}
	if !ticket.ShouldPost(audits, card.Render(review)) {
		return Result{ReviewID: review.ID, TicketID: ticketID, Action: ActionSkipped, Reason: "note unchanged"}
	}
	return Result{ReviewID: review.ID, TicketID: ticketID, Action: ActionPosted, Reason: "dry run"}
}

// backfillDetail refetches a review through the detail endpoint when
// the list payload produced no usable text. List responses routinely
// truncate or omit the comment body that the detail endpoint carries.
func (p *Pipeline) backfillDetail(ctx context.Context, review model.Review, payload map[string]any) model.Review {
	if review.HasText() || p.reviews == nil {
		return review
	}

	detail, err := p.reviews.GetReview(ctx, review.ID)
	if err != nil {
		zap.L().Warn("pipeline: detail backfill failed",
			zap.String("review_id", review.ID), zap.Error(err))
		return review
	}

	refetched, err := normalize.Normalize(detail, p.normOpts...)
	if err != nil || !refetched.HasText() {
		return review
	}
	refetched.ID = review.ID
	return refetched
}

// ProcessBatch runs each payload through Process with bounded
// concurrency. A failed review never aborts the batch; it is counted,
// dead-lettered inside Process, and the rest proceed.
func (p *Pipeline) ProcessBatch(ctx context.Context, payloads []map[string]any) Summary {
	var checked, created, posted, skipped, errored atomic.Int64

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)

	for _, payload := range payloads {
		payload := payload
		g.Go(func() error {
			checked.Add(1)
			res, _ := p.Process(gCtx, payload)
			switch res.Action {
			case ActionCreated:
				created.Add(1)
			case ActionPosted, ActionFixed:
				posted.Add(1)
			case ActionSkipped:
				skipped.Add(1)
			case ActionError:
				errored.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	return Summary{
		Checked: int(checked.Load()),
		Created: int(created.Load()),
		Posted:  int(posted.Load()),
		Skipped: int(skipped.Load()),
		Errored: int(errored.Load()),
	}
}

// Poll fetches reviews updated since the stored cursor, processes them
// as a batch, and advances the cursor. A non-zero since overrides the
// cursor. The new cursor is captured before the fetch so reviews
// arriving mid-poll are seen next time.
func (p *Pipeline) Poll(ctx context.Context, cursorName string, since time.Time, limit int) (Summary, error) {
	if p.reviews == nil {
		return Summary{}, eris.New("pipeline: poll requires a review API client")
	}

	if since.IsZero() {
		since = time.Now().UTC().Add(-p.lookback)
		if p.store != nil {
			stored, err := p.store.GetCursor(ctx, cursorName)
			if err != nil {
				return Summary{}, eris.Wrap(err, "pipeline: load cursor")
			}
			if !stored.IsZero() {
				since = stored
			}
		}
	}
	pollStart := time.Now().UTC()

	payloads, err := p.reviews.ListReviews(ctx, since, limit)
	if err != nil {
		return Summary{}, eris.Wrap(err, "pipeline: list reviews")
	}
	zap.L().Info("pipeline: polling reviews",
		zap.Time("since", since), zap.Int("fetched", len(payloads)))

	summary := p.ProcessBatch(ctx, payloads)

	if p.store != nil && !p.dryRun {
		if err := p.store.SetCursor(ctx, cursorName, pollStart); err != nil {
			return summary, eris.Wrap(err, "pipeline: advance cursor")
		}
	}
	return summary, nil
}

// RetryDeadLetters re-runs stored dead letters through Process,
// deleting each entry that succeeds.
func (p *Pipeline) RetryDeadLetters(ctx context.Context, limit int) (Summary, error) {
	if p.store == nil {
		return Summary{}, eris.New("pipeline: dead letter retry requires a store")
	}

	entries, err := p.store.ListDeadLetters(ctx, limit)
	if err != nil {
		return Summary{}, eris.Wrap(err, "pipeline: list dead letters")
	}

	var summary Summary
	for _, entry := range entries {
		summary.Checked++

		var payload map[string]any
		if err := json.Unmarshal(entry.Payload, &payload); err != nil {
			zap.L().Warn("pipeline: dead letter payload unreadable",
				zap.String("id", entry.ID), zap.Error(err))
			summary.Errored++
			continue
		}

		res, err := p.Process(ctx, payload)
		if err != nil {
			summary.Errored++
			continue
		}
		switch res.Action {
		case ActionCreated:
			summary.Created++
		case ActionPosted, ActionFixed:
			summary.Posted++
		case ActionSkipped:
			summary.Skipped++
		}
		if !p.dryRun {
			if err := p.store.DeleteDeadLetter(ctx, entry.ID); err != nil {
				zap.L().Warn("pipeline: failed to clear dead letter",
					zap.String("id", entry.ID), zap.Error(err))
			}
		}
	}
	return summary, nil
}

// deadLetter records a failed review for later retry. Best-effort; a
// missing store or a write failure only logs.
func (p *Pipeline) deadLetter(ctx context.Context, reviewID string, payload map[string]any, stage string, cause error) {
	if p.store == nil || p.dryRun {
		return
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		zap.L().Warn("pipeline: dead letter marshal failed", zap.Error(err))
		return
	}
	entry := store.DeadLetter{
		ReviewID:  reviewID,
		Payload:   raw,
		Reason:    stage + ": " + cause.Error(),
		ErrorType: classifyError(cause),
	}
	if err := p.store.AddDeadLetter(ctx, entry); err != nil {
		zap.L().Warn("pipeline: dead letter write failed",
			zap.String("review_id", reviewID), zap.Error(err))
	}
}

// classifyError buckets a failure for the dead letter record. Transient
// entries are worth retrying mechanically; permanent ones need a human.
func classifyError(err error) string {
	var apiErr *zendesk.APIError
	if eris.As(err, &apiErr) {
		if resilience.IsTransientHTTPStatus(apiErr.StatusCode) {
			return "transient"
		}
		return "permanent"
	}
	if resilience.IsTransient(err) {
		return "transient"
	}
	return "permanent"
}
