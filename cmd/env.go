package main

import (
	"context"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/Mohzrb/drivo-chatmeter-bridge-sub000/internal/locations"
	"github.com/Mohzrb/drivo-chatmeter-bridge-sub000/internal/normalize"
	"github.com/Mohzrb/drivo-chatmeter-bridge-sub000/internal/pipeline"
	"github.com/Mohzrb/drivo-chatmeter-bridge-sub000/internal/resilience"
	"github.com/Mohzrb/drivo-chatmeter-bridge-sub000/internal/store"
	"github.com/Mohzrb/drivo-chatmeter-bridge-sub000/internal/ticket"
	"github.com/Mohzrb/drivo-chatmeter-bridge-sub000/pkg/chatmeter"
	"github.com/Mohzrb/drivo-chatmeter-bridge-sub000/pkg/zendesk"
)

// env bundles the wired dependencies a command needs.
type env struct {
	store     store.Store
	reviews   chatmeter.Client
	helpdesk  zendesk.Client
	resolver  *ticket.Resolver
	breaker   *resilience.CircuitBreaker
	locations *locations.Table
}

func (e *env) Close() {
	if e.store != nil {
		if err := e.store.Close(); err != nil {
			zap.L().Warn("store close failed", zap.Error(err))
		}
	}
}

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		path := cfg.Store.Path
		if path == "" {
			path = "bridge.db"
		}
		return store.NewSQLite(path)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// initEnv wires the store, API clients, and ticket resolver from config.
func initEnv(ctx context.Context) (*env, error) {
	if cfg.Zendesk.Subdomain == "" || cfg.Zendesk.Email == "" || cfg.Zendesk.APIToken == "" {
		return nil, eris.New("zendesk subdomain, email, and api_token are required")
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "init store")
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	table := locations.Empty()
	if cfg.Locations.Path != "" {
		if _, statErr := os.Stat(cfg.Locations.Path); statErr == nil {
			table, err = locations.Load(cfg.Locations.Path)
			if err != nil {
				st.Close()
				return nil, eris.Wrap(err, "load locations")
			}
			zap.L().Info("locations loaded",
				zap.String("path", cfg.Locations.Path), zap.Int("count", table.Len()))
		}
	}

	var reviews chatmeter.Client
	if cfg.Chatmeter.Key != "" {
		reviews = chatmeter.NewClient(cfg.Chatmeter.Key, chatmeter.WithBaseURL(cfg.Chatmeter.BaseURL))
	}

	helpdesk := zendesk.NewClient(cfg.Zendesk.Subdomain, cfg.Zendesk.Email, cfg.Zendesk.APIToken,
		zendesk.WithRateLimit(cfg.Zendesk.RateLimitRPS, cfg.Zendesk.RateLimitBurst))

	breaker := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		FailureThreshold: 5,
		ResetTimeout:     30 * time.Second,
	})
	resolver := ticket.NewResolver(helpdesk,
		ticket.WithBreaker(breaker),
		ticket.WithCustomFields(ticket.CustomFieldIDs{
			ReviewID: cfg.Zendesk.FieldReviewID,
			Provider: cfg.Zendesk.FieldProvider,
			Location: cfg.Zendesk.FieldLocation,
			Rating:   cfg.Zendesk.FieldRating,
		}),
	)

	return &env{
		store:     st,
		reviews:   reviews,
		helpdesk:  helpdesk,
		resolver:  resolver,
		breaker:   breaker,
		locations: table,
	}, nil
}

// buildPipeline assembles a Pipeline from the env. Strict text gating
// only applies to polled payloads; webhook senders vouch for their own
// text fields.
func (e *env) buildPipeline(strictText bool, extra ...pipeline.Option) *pipeline.Pipeline {
	normOpts := []normalize.Option{normalize.WithLocations(e.locations)}
	if strictText {
		normOpts = append(normOpts, normalize.WithStrictText())
	}

	opts := []pipeline.Option{
		pipeline.WithStore(e.store),
		pipeline.WithNormalizeOptions(normOpts...),
		pipeline.WithWorkers(cfg.Poll.Workers),
		pipeline.WithLookback(time.Duration(cfg.Poll.LookbackHours) * time.Hour),
	}
	if e.reviews != nil {
		opts = append(opts, pipeline.WithReviews(e.reviews))
	}
	if !cfg.Poll.Sweep {
		opts = append(opts, pipeline.WithoutSweep())
	}
	opts = append(opts, extra...)

	return pipeline.New(e.helpdesk, e.resolver, opts...)
}
