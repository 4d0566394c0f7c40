// Package vault answers typed, paged queries over the vault.
package vault

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/arkilian/vaultquery/internal/codec"
	vaulterrors "github.com/arkilian/vaultquery/internal/errors"
	"github.com/arkilian/vaultquery/internal/observability"
	"github.com/arkilian/vaultquery/internal/query/compiler"
	"github.com/arkilian/vaultquery/internal/query/executor"
	"github.com/arkilian/vaultquery/internal/storage"
	"github.com/arkilian/vaultquery/internal/typeindex"
	"github.com/arkilian/vaultquery/pkg/criteria"
	"github.com/arkilian/vaultquery/pkg/types"
)

// Service wires type resolution, compilation and execution over one session
// per query. It is safe for concurrent use.
type Service struct {
	sessions storage.SessionFactory
	loader   typeindex.Loader
	root     string

	resolver *typeindex.Resolver
	compiler *compiler.Compiler
	executor *executor.Executor

	stats   *observability.QueryStats
	metrics *observability.Metrics
	logger  *slog.Logger
	tracer  trace.Tracer
}

// Options configures a Service. Zero values select defaults.
type Options struct {
	// RootType is the supertype of every contract type (default: ContractState)
	RootType string

	// MaxPageSize bounds page sizes, 0 for no bound
	MaxPageSize int

	Extensions *compiler.ExtensionRegistry
	Stats      *observability.QueryStats
	Metrics    *observability.Metrics
	Logger     *slog.Logger
}

// New constructs a vault query service.
func New(sessions storage.SessionFactory, loader typeindex.Loader, opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "vault_query"))

	root := opts.RootType
	if root == "" {
		root = typeindex.DefaultRootType
	}
	stats := opts.Stats
	if stats == nil {
		stats = observability.NewQueryStats(time.Hour)
	}

	return &Service{
		sessions: sessions,
		loader:   loader,
		root:     root,
		resolver: typeindex.NewResolver(loader, root,
			typeindex.WithLogger(logger),
			typeindex.WithMetrics(opts.Metrics),
		),
		compiler: compiler.New(root, opts.Extensions),
		executor: executor.New(opts.MaxPageSize),
		stats:    stats,
		metrics:  opts.Metrics,
		logger:   logger,
		tracer:   otel.Tracer("vaultquery/vault"),
	}
}

// Stats returns the predicate statistics fed by compiled plans.
func (s *Service) Stats() *observability.QueryStats { return s.stats }

// ResolveTypes builds the current type index in its own session.
func (s *Service) ResolveTypes(ctx context.Context) (typeindex.Index, error) {
	var idx typeindex.Index
	err := s.sessions.WithSession(ctx, func(sess storage.Session) error {
		var err error
		idx, err = s.resolver.Resolve(ctx, sess)
		return err
	})
	return idx, err
}

// requested returns the descriptor of the queried contract type. A name the
// loader does not know is treated as a concrete type.
func (s *Service) requested(ctx context.Context, contractType string) typeindex.TypeDescriptor {
	if contractType == "" || contractType == s.root {
		return typeindex.TypeDescriptor{Name: s.root, Abstract: true}
	}
	desc, err := s.loader.Lookup(contractType)
	if err != nil {
		s.logger.DebugContext(ctx, "requested type not registered, treating as concrete",
			slog.String("type", contractType))
		return typeindex.TypeDescriptor{Name: contractType}
	}
	return desc
}

// QueryBy returns one page of states matching expr, restricted to
// contractType and its stored subtypes. A nil expr selects unconsumed
// states. Failures are logged once and returned as a vault query error
// wrapping the cause; no partial page is ever returned.
func QueryBy[T any](
	ctx context.Context,
	s *Service,
	c codec.Codec[T],
	expr criteria.Expression,
	page types.PageSpecification,
	sort types.Sort,
	contractType string,
) (*types.Page[T], error) {
	if expr == nil {
		expr = &criteria.VaultCriteria{}
	}

	ctx, span := s.tracer.Start(ctx, "vault.query_by", trace.WithAttributes(
		attribute.String("vault.contract_type", contractType),
		attribute.Int("vault.page_number", page.Number),
		attribute.Int("vault.page_size", page.Size),
	))
	defer span.End()

	s.logger.InfoContext(ctx, "vault query",
		slog.String("criteria", expr.String()),
		slog.String("paging", page.String()),
		slog.String("sorting", sort.String()),
		slog.String("contract_type", contractType),
	)

	var result *types.Page[T]
	err := s.sessions.WithSession(ctx, func(sess storage.Session) error {
		start := time.Now()
		idx, err := s.resolver.Resolve(ctx, sess)
		if err != nil {
			return err
		}
		s.metrics.ObserveStage(observability.StageResolve, time.Since(start))

		start = time.Now()
		p, err := s.compiler.Compile(expr, s.requested(ctx, contractType), idx)
		if err != nil {
			return err
		}
		s.metrics.ObserveStage(observability.StageCompile, time.Since(start))
		s.stats.RecordPlan(p)
		span.SetAttributes(attribute.String("vault.plan_fingerprint", strconv.FormatUint(p.Fingerprint(), 16)))

		start = time.Now()
		res, err := s.executor.Execute(ctx, p, sort, page, sess)
		if err != nil {
			return err
		}
		s.metrics.ObserveStage(observability.StageExecute, time.Since(start))

		start = time.Now()
		states, metadata, err := executor.Reconstruct(res.Records, c)
		if err != nil {
			return err
		}
		s.metrics.ObserveStage(observability.StageReconstruct, time.Since(start))

		result = &types.Page[T]{
			States:               states,
			Metadata:             metadata,
			Paging:               page,
			TotalStatesAvailable: res.TotalStatesAvailable,
		}
		return nil
	})
	if err != nil {
		wrapped := vaulterrors.NewVaultQueryError("failed to query vault", err)
		s.logger.ErrorContext(ctx, "vault query failed",
			slog.String("criteria", expr.String()),
			slog.Any("error", err),
		)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.metrics.ObserveQuery(observability.OutcomeFailure)
		return nil, wrapped
	}

	span.SetAttributes(
		attribute.Int("vault.states_returned", len(result.States)),
		attribute.Int64("vault.total_states_available", result.TotalStatesAvailable),
	)
	span.SetStatus(codes.Ok, "page ready")
	s.metrics.ObserveQuery(observability.OutcomeSuccess)
	s.metrics.ObserveRows(len(result.States))
	return result, nil
}

// TrackBy would return a page plus a stream of subsequent updates. Live
// subscriptions are not supported; it always fails.
func TrackBy[T any](
	ctx context.Context,
	s *Service,
	c codec.Codec[T],
	expr criteria.Expression,
	page types.PageSpecification,
	sort types.Sort,
	contractType string,
) (*types.Page[T], <-chan types.StateAndRef[T], error) {
	err := vaulterrors.NewNotImplementedError("trackBy is not supported by the vault query service")
	s.logger.ErrorContext(ctx, "vault track failed",
		slog.String("contract_type", contractType),
		slog.Any("error", err),
	)
	s.metrics.ObserveQuery(observability.OutcomeFailure)
	return nil, nil, err
}
