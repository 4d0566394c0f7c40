package typeindex

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/arkilian/vaultquery/internal/observability"
	"github.com/arkilian/vaultquery/internal/query/plan"
)

// DistinctScanner runs a single-column DISTINCT statement.
type DistinctScanner interface {
	DistinctStrings(ctx context.Context, stmt *plan.SelectStatement) ([]string, error)
}

// Index maps abstract type names to the sorted concrete type names found in
// the vault. It is rebuilt per query and never cached.
type Index struct {
	Concretes map[string][]string `json:"concretes"`

	// Unresolved lists names that could not be looked up, sorted
	Unresolved []string `json:"unresolved,omitempty"`
}

// ConcretesOf returns the concrete types stored under name.
func (i Index) ConcretesOf(name string) []string {
	return i.Concretes[name]
}

// Resolver builds an Index from the contract types stored in the vault.
type Resolver struct {
	loader  Loader
	root    string
	logger  *slog.Logger
	metrics *observability.Metrics
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLogger sets the logger used to report unresolved names.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) { r.logger = logger }
}

// WithMetrics counts unresolved names.
func WithMetrics(m *observability.Metrics) Option {
	return func(r *Resolver) { r.metrics = m }
}

// NewResolver creates a resolver. The root type is never inserted into an index.
func NewResolver(loader Loader, root string, opts ...Option) *Resolver {
	if root == "" {
		root = DefaultRootType
	}
	r := &Resolver{loader: loader, root: root}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	return r
}

// Root returns the root type name.
func (r *Resolver) Root() string { return r.root }

// Resolve scans the distinct stored type names and walks each one's
// supertype graph. Names that cannot be looked up are skipped.
func (r *Resolver) Resolve(ctx context.Context, scanner DistinctScanner) (Index, error) {
	names, err := scanner.DistinctStrings(ctx, plan.DistinctContractTypes())
	if err != nil {
		return Index{}, fmt.Errorf("scan stored contract types: %w", err)
	}

	idx := Index{Concretes: make(map[string][]string)}
	unresolved := make(map[string]struct{})

	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return Index{}, err
		}
		desc, err := r.loader.Lookup(name)
		if err != nil {
			r.skip(ctx, name, err, unresolved)
			continue
		}
		for _, super := range r.supertypes(ctx, desc, unresolved) {
			idx.Concretes[super] = append(idx.Concretes[super], name)
		}
	}

	for k, v := range idx.Concretes {
		sort.Strings(v)
		idx.Concretes[k] = v
	}
	for name := range unresolved {
		idx.Unresolved = append(idx.Unresolved, name)
	}
	sort.Strings(idx.Unresolved)
	return idx, nil
}

// supertypes returns every transitive supertype of desc except the root,
// each exactly once.
func (r *Resolver) supertypes(ctx context.Context, desc TypeDescriptor, unresolved map[string]struct{}) []string {
	visited := map[string]struct{}{desc.Name: {}}
	var out []string

	stack := append([]string(nil), desc.Supertypes...)
	for len(stack) > 0 {
		name := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if _, seen := visited[name]; seen {
			continue
		}
		visited[name] = struct{}{}
		if name == r.root {
			continue
		}
		out = append(out, name)

		super, err := r.loader.Lookup(name)
		if err != nil {
			r.skip(ctx, name, err, unresolved)
			continue
		}
		stack = append(stack, super.Supertypes...)
	}
	return out
}

func (r *Resolver) skip(ctx context.Context, name string, err error, unresolved map[string]struct{}) {
	if _, dup := unresolved[name]; dup {
		return
	}
	unresolved[name] = struct{}{}
	r.metrics.TypeResolutionFailed()
	r.logger.WarnContext(ctx, "skipping unresolvable contract type",
		slog.String("type", name),
		slog.Any("error", err),
	)
}
