// Package engine is the in-process facade that owns every VA-File relation
// the server exposes: it plays the role section 1 assigns to "the
// surrounding relational/SQL layer" (an out-of-scope collaborator for the
// index itself) without pretending to be a real planner/executor. Grounded
// on how the teacher's pkg/api/grpc/server.go wires a map[string]*hnsw.Index
// per namespace and exposes Stats(); here the HNSW index is swapped for
// internal/vafile's VA-File, and tenancy/quota enforcement is delegated to
// the teacher's own pkg/tenant.Manager instead of being reinvented.
package engine

import (
	"fmt"
	"sync"
	"time"

	"github.com/therealutkarshpriyadarshi/vafile/internal/distance"
	"github.com/therealutkarshpriyadarshi/vafile/internal/errs"
	"github.com/therealutkarshpriyadarshi/vafile/internal/marks"
	"github.com/therealutkarshpriyadarshi/vafile/pkg/config"
	"github.com/therealutkarshpriyadarshi/vafile/pkg/observability"
	"github.com/therealutkarshpriyadarshi/vafile/pkg/tenant"
)

// Engine owns every relation, grouped by tenant namespace. One process runs
// one Engine; the REST server and the CLI (through REST) are its only
// callers.
type Engine struct {
	mu sync.RWMutex

	cfg       *config.Config
	tenants   *tenant.Manager
	metrics   *observability.Metrics
	logger    *observability.Logger
	registry  *distance.Registry
	relations map[string]map[string]*Relation // namespace -> relation name -> Relation

	startedAt time.Time
	version   string
}

// New creates an Engine bound to cfg. metrics may be nil, in which case
// observations are dropped; a nil logger is replaced by
// observability.NewDefaultLogger(), which writes INFO and above to stdout.
// Production wiring (pkg/config, cmd/server) always supplies both.
func New(cfg *config.Config, metrics *observability.Metrics, logger *observability.Logger, version string) *Engine {
	if logger == nil {
		logger = observability.NewDefaultLogger()
	}
	return &Engine{
		cfg:       cfg,
		tenants:   tenant.NewManager(),
		metrics:   metrics,
		logger:    logger,
		registry:  distance.NewRegistry(),
		relations: make(map[string]map[string]*Relation),
		startedAt: time.Now(),
		version:   version,
	}
}

// Registry exposes the shared distance-extension registry so callers (e.g.
// an admin endpoint) can register named distances ahead of search requests.
func (e *Engine) Registry() *distance.Registry { return e.registry }

// CreateRelationSpec describes a new relation.
type CreateRelationSpec struct {
	Namespace string
	Name      string
	Dim       int
	Strategy  marks.Strategy
	Quota     *tenant.Quota // nil uses tenant.DefaultQuota for a namespace seen for the first time
}

// CreateRelation registers a new, empty (unbuilt) relation under namespace,
// creating the tenant/namespace on first use.
func (e *Engine) CreateRelation(spec CreateRelationSpec) (*Relation, error) {
	if spec.Namespace == "" {
		spec.Namespace = "default"
	}
	if spec.Name == "" {
		return nil, fmt.Errorf("%w: relation name is required", errs.ErrBadQuery)
	}
	if spec.Dim < 1 {
		return nil, fmt.Errorf("%w: dimensions must be positive, got %d", errs.ErrBadVector, spec.Dim)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	tnt, err := e.tenants.GetTenant(spec.Namespace)
	if err != nil {
		q := tenant.DefaultQuota()
		if spec.Quota != nil {
			q = *spec.Quota
		}
		tnt, err = e.tenants.CreateTenant(spec.Namespace, q)
		if err != nil {
			return nil, err
		}
	}
	if err := tnt.CheckDimensionQuota(spec.Dim); err != nil {
		return nil, fmt.Errorf("%w: %s", errs.ErrQuotaExceeded, err)
	}

	byName := e.relations[spec.Namespace]
	if byName == nil {
		byName = make(map[string]*Relation)
		e.relations[spec.Namespace] = byName
	}
	if _, exists := byName[spec.Name]; exists {
		return nil, fmt.Errorf("%w: relation %s/%s", errs.ErrAlreadyExists, spec.Namespace, spec.Name)
	}

	rel := newRelation(spec.Namespace, spec.Name, spec.Dim, spec.Strategy, e.registry, tnt, e.cfg.VAFile.EnableScan)
	byName[spec.Name] = rel

	if e.metrics != nil {
		e.updateRelationCountLocked()
	}
	e.logger.Info("relation created", map[string]interface{}{
		"namespace": spec.Namespace, "relation": spec.Name, "dim": spec.Dim, "strategy": spec.Strategy.String(),
	})
	return rel, nil
}

// Relation looks up an existing relation by namespace/name.
func (e *Engine) Relation(namespace, name string) (*Relation, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	byName, ok := e.relations[namespace]
	if !ok {
		return nil, fmt.Errorf("%w: namespace %s", errs.ErrNotFound, namespace)
	}
	rel, ok := byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: relation %s/%s", errs.ErrNotFound, namespace, name)
	}
	return rel, nil
}

// DropRelation removes a relation entirely; rebuilding it later re-samples
// and recomputes marks from scratch, per section 3's lifecycle note.
func (e *Engine) DropRelation(namespace, name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	byName, ok := e.relations[namespace]
	if !ok {
		return fmt.Errorf("%w: namespace %s", errs.ErrNotFound, namespace)
	}
	if _, ok := byName[name]; !ok {
		return fmt.Errorf("%w: relation %s/%s", errs.ErrNotFound, namespace, name)
	}
	delete(byName, name)
	if len(byName) == 0 {
		delete(e.relations, namespace)
		// Namespace has no more relations; drop its tenant record too so a
		// later CreateRelation under the same namespace starts with a fresh
		// quota/usage instead of inheriting stale counters.
		_ = e.tenants.DeleteTenant(namespace)
	}
	if e.metrics != nil {
		e.updateRelationCountLocked()
	}
	return nil
}

// ListRelations returns every relation registered under namespace, or every
// relation in every namespace when namespace is empty.
func (e *Engine) ListRelations(namespace string) []*Relation {
	e.mu.RLock()
	defer e.mu.RUnlock()

	var out []*Relation
	if namespace != "" {
		for _, rel := range e.relations[namespace] {
			out = append(out, rel)
		}
		return out
	}
	for _, byName := range e.relations {
		for _, rel := range byName {
			out = append(out, rel)
		}
	}
	return out
}

func (e *Engine) updateRelationCountLocked() {
	total := 0
	for _, byName := range e.relations {
		total += len(byName)
	}
	e.metrics.UpdateRelationsTotal(total)
}

// Tenants exposes the tenant manager so REST handlers can surface quota
// endpoints directly without the engine proxying every Manager method.
func (e *Engine) Tenants() *tenant.Manager { return e.tenants }

// Metrics exposes the Prometheus metric set, or nil if the engine was
// constructed without one.
func (e *Engine) Metrics() *observability.Metrics { return e.metrics }

// Logger exposes the engine's structured logger.
func (e *Engine) Logger() *observability.Logger { return e.logger }

// Config exposes the engine's configuration.
func (e *Engine) Config() *config.Config { return e.cfg }

// HealthStatus reports the information a healthcheck endpoint needs.
type HealthStatus struct {
	Status        string
	Version       string
	UptimeSeconds int64
	Relations     int
	Namespaces    int
}

// Health reports the engine's current health. The engine has no external
// dependency to probe (no database connection, no gRPC backend): "healthy"
// simply means the process is up and able to answer, matching the teacher's
// own HealthCheck semantics once the gRPC hop is removed.
func (e *Engine) Health() HealthStatus {
	e.mu.RLock()
	defer e.mu.RUnlock()

	relCount := 0
	for _, byName := range e.relations {
		relCount += len(byName)
	}
	return HealthStatus{
		Status:        "healthy",
		Version:       e.version,
		UptimeSeconds: int64(time.Since(e.startedAt).Seconds()),
		Relations:     relCount,
		Namespaces:    len(e.relations),
	}
}

// EngineStats aggregates every namespace's relation and vector counts, the
// shape the teacher's GetStats RPC returned before the gRPC hop was removed.
type EngineStats struct {
	TotalVectors    int64
	TotalNamespaces int
	Namespaces      map[string]NamespaceStats
}

// NamespaceStats summarizes one namespace's relations.
type NamespaceStats struct {
	Relations   int
	VectorCount int64
	Dimensions  int
}

// Stats aggregates engine-wide counters. When namespace is non-empty, only
// that namespace is included.
func (e *Engine) Stats(namespace string) EngineStats {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := EngineStats{Namespaces: make(map[string]NamespaceStats)}
	for ns, byName := range e.relations {
		if namespace != "" && ns != namespace {
			continue
		}
		var vecCount int64
		dim := 0
		for _, rel := range byName {
			st := rel.Stats()
			vecCount += st.IndexTuples
			dim = rel.Dim()
		}
		out.Namespaces[ns] = NamespaceStats{Relations: len(byName), VectorCount: vecCount, Dimensions: dim}
		out.TotalVectors += vecCount
	}
	out.TotalNamespaces = len(out.Namespaces)
	return out
}
