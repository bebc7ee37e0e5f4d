package ticket

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/Mohzrb/drivo-chatmeter-bridge-sub000/internal/card"
	"github.com/Mohzrb/drivo-chatmeter-bridge-sub000/internal/model"
	"github.com/Mohzrb/drivo-chatmeter-bridge-sub000/internal/resilience"
	"github.com/Mohzrb/drivo-chatmeter-bridge-sub000/pkg/zendesk"
)

// CustomFieldIDs lists the helpdesk custom-field ids the bridge fills on
// ticket creation. All optional: zero ids are simply omitted from the
// create payload.
type CustomFieldIDs struct {
	ReviewID int64
	Provider int64
	Location int64
	Rating   int64
}

// Resolver maps a canonical review to its helpdesk ticket, creating one
// when none exists. All mutual exclusion is external: the external key
// doubles as the create idempotency token, so two racing resolvers at
// worst create duplicates that SweepDuplicates reconciles afterwards.
type Resolver struct {
	helpdesk zendesk.Client
	retry    resilience.RetryConfig
	breaker  *resilience.CircuitBreaker
	fields   CustomFieldIDs
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithRetryConfig overrides the read-retry configuration.
func WithRetryConfig(cfg resilience.RetryConfig) ResolverOption {
	return func(r *Resolver) { r.retry = cfg }
}

// WithBreaker guards all helpdesk calls with the given circuit breaker.
func WithBreaker(cb *resilience.CircuitBreaker) ResolverOption {
	return func(r *Resolver) { r.breaker = cb }
}

// WithCustomFields sets the custom-field ids to populate on creation.
func WithCustomFields(fields CustomFieldIDs) ResolverOption {
	return func(r *Resolver) { r.fields = fields }
}

// NewResolver creates a Resolver over the given helpdesk client.
func NewResolver(helpdesk zendesk.Client, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		helpdesk: helpdesk,
		retry:    resilience.DefaultRetryConfig(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.retry.ShouldRetry == nil {
		r.retry.ShouldRetry = isTransientCall
	}
	return r
}

// Resolve returns the ticket id for the review, creating the ticket if
// no lookup step finds one. isNew reports whether a create happened.
func (r *Resolver) Resolve(ctx context.Context, review model.Review) (ticketID int64, isNew bool, err error) {
	key := ExternalKey(review.ID)

	if id, found := r.findExisting(ctx, key, review.ID); found {
		return id, false, nil
	}

	created, err := r.create(ctx, review, key)
	if err != nil {
		return 0, false, err
	}
	return created, true, nil
}

// Lookup runs the layered lookup without creating a ticket on a miss.
// Dry runs use it to report what Resolve would have done.
func (r *Resolver) Lookup(ctx context.Context, review model.Review) (int64, bool) {
	return r.findExisting(ctx, ExternalKey(review.ID), review.ID)
}

// findExisting runs the layered lookup. Each step fails open: a
// transport error logs and falls through to the next, cheaper-to-miss
// step rather than aborting the pipeline.
func (r *Resolver) findExisting(ctx context.Context, key, reviewID string) (int64, bool) {
	log := zap.L().With(zap.String("external_key", key))

	tickets, err := callVal(ctx, r, "show_many", func(ctx context.Context) ([]zendesk.Ticket, error) {
		return r.helpdesk.ShowManyByExternalID(ctx, []string{key})
	})
	if err != nil {
		log.Warn("ticket: external id lookup failed, falling through", zap.Error(err))
	} else if len(tickets) > 0 {
		return tickets[0].ID, true
	}

	query := fmt.Sprintf(`type:ticket external_id:%q`, key)
	tickets, err = callVal(ctx, r, "search_external_id", func(ctx context.Context) ([]zendesk.Ticket, error) {
		return r.helpdesk.SearchTickets(ctx, query)
	})
	if err != nil {
		log.Warn("ticket: external id search failed, falling through", zap.Error(err))
	} else {
		for _, t := range tickets {
			if t.ExternalID == key {
				return t.ID, true
			}
		}
	}

	tagQuery := "type:ticket tags:" + ReviewTag(reviewID)
	tickets, err = callVal(ctx, r, "search_tag", func(ctx context.Context) ([]zendesk.Ticket, error) {
		return r.helpdesk.SearchTickets(ctx, tagQuery)
	})
	if err != nil {
		log.Warn("ticket: tag search failed, treating as not found", zap.Error(err))
	} else if len(tickets) > 0 {
		return tickets[0].ID, true
	}

	return 0, false
}

func (r *Resolver) create(ctx context.Context, review model.Review, key string) (int64, error) {
	req := zendesk.TicketRequest{
		Subject:      Subject(review),
		ExternalID:   key,
		Tags:         Tags(review),
		Comment:      &zendesk.Comment{Body: card.Render(review), Public: false},
		CustomFields: r.customFields(review),
	}

	// Never blindly retried: the idempotency key makes a later caller
	// retry safe, an in-loop retry on an ambiguous failure does not.
	created, err := callOnce(ctx, r, func(ctx context.Context) (*zendesk.Ticket, error) {
		return r.helpdesk.CreateTicket(ctx, req, key)
	})
	if err != nil {
		return 0, eris.Wrapf(err, "ticket: create for %s", key)
	}
	return created.ID, nil
}

// Tags returns the tag set applied to a review's ticket.
func Tags(review model.Review) []string {
	return []string{externalKeyPrefix, string(review.Class), ReviewTag(review.ID)}
}

func (r *Resolver) customFields(review model.Review) []zendesk.CustomField {
	var fields []zendesk.CustomField
	if r.fields.ReviewID != 0 {
		fields = append(fields, zendesk.CustomField{ID: r.fields.ReviewID, Value: review.ID})
	}
	if r.fields.Provider != 0 {
		fields = append(fields, zendesk.CustomField{ID: r.fields.Provider, Value: review.Provider})
	}
	if r.fields.Location != 0 && review.LocationID != "" {
		fields = append(fields, zendesk.CustomField{ID: r.fields.Location, Value: review.LocationID})
	}
	if r.fields.Rating != 0 && review.Rating != nil {
		fields = append(fields, zendesk.CustomField{ID: r.fields.Rating, Value: *review.Rating})
	}
	return fields
}

// SweepDuplicates re-queries by external key and closes every ticket
// other than keepID with a note naming the kept ticket. Best-effort:
// failures are logged and swallowed, never propagated to the caller,
// since a missed sweep just leaves a duplicate for the next run.
func (r *Resolver) SweepDuplicates(ctx context.Context, externalKey string, keepID int64) int {
	log := zap.L().With(zap.String("external_key", externalKey), zap.Int64("keep", keepID))

	tickets, err := callVal(ctx, r, "sweep_lookup", func(ctx context.Context) ([]zendesk.Ticket, error) {
		return r.helpdesk.ShowManyByExternalID(ctx, []string{externalKey})
	})
	if err != nil {
		log.Warn("ticket: duplicate sweep lookup failed", zap.Error(err))
		return 0
	}
	if len(tickets) <= 1 {
		return 0
	}

	closed := 0
	for _, t := range tickets {
		if t.ID == keepID || t.Status == "closed" {
			continue
		}
		note := fmt.Sprintf("Auto-closed as a duplicate of ticket #%d.", keepID)
		_, err := callOnce(ctx, r, func(ctx context.Context) (*zendesk.Ticket, error) {
			return r.helpdesk.UpdateTicket(ctx, t.ID, zendesk.TicketRequest{
				Status:  "closed",
				Comment: &zendesk.Comment{Body: note, Public: false},
			})
		})
		if err != nil {
			log.Warn("ticket: failed to close duplicate", zap.Int64("ticket", t.ID), zap.Error(err))
			continue
		}
		closed++
	}
	if closed > 0 {
		log.Info("ticket: closed duplicate tickets", zap.Int("closed", closed))
	}
	return closed
}

// callVal runs a read operation through the breaker and retry policy.
func callVal[T any](ctx context.Context, r *Resolver, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	if r.breaker != nil {
		if err := r.breaker.Allow(); err != nil {
			var zero T
			return zero, err
		}
	}
	cfg := r.retry
	cfg.OnRetry = resilience.RetryLogger("zendesk", op)
	val, err := resilience.DoVal(ctx, cfg, fn)
	if r.breaker != nil {
		r.breaker.Record(err)
	}
	return val, err
}

// callOnce runs a write operation through the breaker with no retries.
func callOnce[T any](ctx context.Context, r *Resolver, fn func(ctx context.Context) (T, error)) (T, error) {
	if r.breaker != nil {
		if err := r.breaker.Allow(); err != nil {
			var zero T
			return zero, err
		}
	}
	val, err := fn(ctx)
	if r.breaker != nil {
		r.breaker.Record(err)
	}
	return val, err
}

// isTransientCall classifies helpdesk call failures for retry purposes.
func isTransientCall(err error) bool {
	var apiErr *zendesk.APIError
	if eris.As(err, &apiErr) {
		return resilience.IsTransientHTTPStatus(apiErr.StatusCode)
	}
	return resilience.IsTransient(err)
}
