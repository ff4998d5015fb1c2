package engine

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/therealutkarshpriyadarshi/vafile/internal/distance"
	"github.com/therealutkarshpriyadarshi/vafile/internal/errs"
	"github.com/therealutkarshpriyadarshi/vafile/internal/marks"
	"github.com/therealutkarshpriyadarshi/vafile/internal/vafile"
	"github.com/therealutkarshpriyadarshi/vafile/pkg/tenant"
)

// Relation is one named VA-File index plus the bookkeeping the VA-File
// itself does not own: the mapping from the caller's external string IDs to
// internal heap TIDs, and the feature vectors those TIDs point at (the
// "heap" the spec treats as an external collaborator, reduced here to an
// in-memory map since no real table backs this demo engine).
type Relation struct {
	mu sync.Mutex

	namespace string
	name      string
	dim       int
	strategy  marks.Strategy
	createdAt time.Time

	index *vafile.Index

	ids     map[string]vafile.TID // external ID -> TID
	revIDs  map[uint64]string     // TID.Key() -> external ID
	heap    map[uint64][]float64  // TID.Key() -> feature vector
	pending []vafile.Row          // rows staged before the first Build
	nextOff uint16

	registry *distance.Registry
	params   *distance.MemParamStore

	tenant     *tenant.Tenant
	enableScan bool
}

func newRelation(namespace, name string, dim int, strategy marks.Strategy, registry *distance.Registry, tnt *tenant.Tenant, enableScan bool) *Relation {
	return &Relation{
		namespace:  namespace,
		name:       name,
		dim:        dim,
		strategy:   strategy,
		createdAt:  time.Now(),
		index:      vafile.New(dim, strategy),
		ids:        make(map[string]vafile.TID),
		revIDs:     make(map[uint64]string),
		heap:       make(map[uint64][]float64),
		registry:   registry,
		params:     distance.NewMemParamStore(),
		tenant:     tnt,
		enableScan: enableScan,
	}
}

// SetEnableScan toggles whether Search consults the VA-File's bounded scan at
// all, the engine-level realization of section 6's enable_vascan knob: the
// caller (pkg/config.Config.VAFile.EnableScan, read once at relation
// creation) disables the index the same way CostEstimate.Disabled takes it
// out of a real planner's consideration, without a process-wide mutable
// singleton.
func (r *Relation) SetEnableScan(enabled bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.enableScan = enabled
}

// Namespace, Name, Dim, Strategy, CreatedAt are plain accessors; Relation is
// otherwise mutated only through the methods below, all lock-guarded.
func (r *Relation) Namespace() string        { return r.namespace }
func (r *Relation) Name() string             { return r.name }
func (r *Relation) Dim() int                 { return r.dim }
func (r *Relation) Strategy() marks.Strategy { return r.strategy }
func (r *Relation) CreatedAt() time.Time     { return r.createdAt }

// Built reports whether Build has run successfully at least once.
func (r *Relation) Built() bool {
	return r.index.Stats().Pages > 0 || r.index.Marks() != nil
}

// Stats exposes the underlying index's stats directly.
func (r *Relation) Stats() vafile.Stats {
	return r.index.Stats()
}

func (r *Relation) allocTID() vafile.TID {
	// A single growing block keeps every tuple addressable without a real
	// heap file; offsets roll into the next "block" once 65535 is reached,
	// mirroring ItemPointerData's (block, offset) pair closely enough for
	// this engine's bookkeeping to stay bit-identical to TID.Key's packing.
	tid := vafile.TID{Block: uint32(len(r.ids) >> 16), Offset: r.nextOff}
	r.nextOff++
	return tid
}

// InsertResult reports whether an Insert call triggered the relation's
// first automatic Build.
type InsertResult struct {
	Triggered *vafile.BuildResult
}

// Insert adds one vector under id. Before the relation has been built, rows
// are staged; once MinSamples worth have accumulated, Build runs
// automatically over the staged rows (this mirrors section 4.3's build()
// contract, which always precedes insert() against a live relation, without
// requiring a caller to orchestrate the two steps by hand for the common
// case of "load N rows, then start serving"). After the first Build,
// further inserts go straight to the index's own Insert path.
func (r *Relation) Insert(ctx context.Context, id string, vector []float64) (*InsertResult, error) {
	if len(vector) == 0 {
		return nil, fmt.Errorf("%w: empty vector", errs.ErrBadVector)
	}
	if err := r.tenant.CheckVectorQuota(1); err != nil {
		return nil, fmt.Errorf("%w: %s", errs.ErrQuotaExceeded, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.ids[id]; exists {
		return nil, fmt.Errorf("%w: id %q already present in %s/%s", errs.ErrAlreadyExists, id, r.namespace, r.name)
	}

	tid := r.allocTID()

	if !r.builtLocked() {
		r.pending = append(r.pending, vafile.Row{TID: tid, Vector: vector})
		r.ids[id] = tid
		r.revIDs[tid.Key()] = id
		r.heap[tid.Key()] = vector
		r.tenant.IncrementVectorCount(1)

		if len(r.pending) < marks.MinSamples {
			return &InsertResult{}, nil
		}

		res, err := r.index.Build(ctx, r.pending, r.strategy)
		if err != nil {
			// Roll back the staged row that tipped the threshold; the
			// caller can retry once enough distinct vectors exist.
			delete(r.ids, id)
			delete(r.revIDs, tid.Key())
			delete(r.heap, tid.Key())
			r.pending = r.pending[:len(r.pending)-1]
			r.tenant.DecrementVectorCount(1)
			return nil, err
		}
		r.pending = nil
		return &InsertResult{Triggered: res}, nil
	}

	if err := r.index.Insert(ctx, tid, vector); err != nil {
		return nil, err
	}
	r.ids[id] = tid
	r.revIDs[tid.Key()] = id
	r.heap[tid.Key()] = vector
	r.tenant.IncrementVectorCount(1)
	return &InsertResult{}, nil
}

func (r *Relation) builtLocked() bool {
	return r.index.Marks() != nil
}

// Build runs the mark builder explicitly over every row staged so far. It
// fails with errs.ErrInsufficientSamples while fewer than marks.MinSamples
// rows are staged, and with an error once the relation is built; since
// Insert builds automatically when the MinSamples-th row is staged, an
// explicit Build does not make sampling happen any earlier.
func (r *Relation) Build(ctx context.Context) (*vafile.BuildResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.builtLocked() {
		return nil, fmt.Errorf("build called on a non-empty index")
	}
	res, err := r.index.Build(ctx, r.pending, r.strategy)
	if err != nil {
		return nil, err
	}
	r.pending = nil
	return res, nil
}

// Delete removes id from the relation via a single-TID bulk-delete.
func (r *Relation) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tid, ok := r.ids[id]
	if !ok {
		return fmt.Errorf("%w: id %q in %s/%s", errs.ErrNotFound, id, r.namespace, r.name)
	}

	if r.builtLocked() {
		_, err := r.index.BulkDelete(ctx, func(candidate vafile.TID) bool {
			return candidate == tid
		})
		if err != nil {
			return err
		}
	} else {
		for i, row := range r.pending {
			if row.TID == tid {
				r.pending = append(r.pending[:i], r.pending[i+1:]...)
				break
			}
		}
	}

	delete(r.ids, id)
	delete(r.revIDs, tid.Key())
	delete(r.heap, tid.Key())
	r.tenant.DecrementVectorCount(1)
	return nil
}

// Update replaces id's vector with a delete followed by an insert, matching
// how the index itself has no in-place mutation primitive (section 4.3 only
// specifies insert/delete/vacuum).
func (r *Relation) Update(ctx context.Context, id string, vector []float64) error {
	if err := r.Delete(ctx, id); err != nil {
		return err
	}
	_, err := r.Insert(ctx, id, vector)
	return err
}

// Vacuum reclaims deleted pages and truncates trailing empty ones.
func (r *Relation) Vacuum(ctx context.Context) (*vafile.VacuumResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.index.VacuumCleanup(ctx)
}

// SearchSpec describes one k-NN query against a relation.
type SearchSpec struct {
	Query   []float64
	K       int
	Norm    float64 // distance.MaxNorm for L-infinity
	Weights []float64

	NormKind        distance.NormKind
	NormKey         *distance.Key // required when NormKind != distance.NormNone
	Weight          float64       // 0 means "no extra scalar weighting", applied after normalization
	Complement      string
	ComplementParam float64
}

// SearchHit is one refined result: an external ID plus its true distance
// (after normalization/weight/complement, when requested).
type SearchHit struct {
	ID       string
	Distance float64
}

// SearchOutcome is everything a caller needs to render a response.
type SearchOutcome struct {
	Hits           []SearchHit
	CandidateCount int64
	Scanned        int
	Warnings       []string
}

// Search runs the VA-File's filter-and-refine scan (section 4.3) and then
// refines every candidate TID against the true Minkowski distance (plus any
// requested normalization/weight/complement from section 4.4), trimmed to
// k. The index itself never dereferences base-table rows; this is exactly
// the "host executor" refinement step the spec names but leaves external.
func (r *Relation) Search(ctx context.Context, spec SearchSpec) (*SearchOutcome, error) {
	if spec.K <= 0 {
		return nil, fmt.Errorf("%w: k must be positive", errs.ErrBadQuery)
	}
	if err := r.tenant.CheckRateLimit(); err != nil {
		return nil, fmt.Errorf("%w: %s", errs.ErrQuotaExceeded, err)
	}

	r.mu.Lock()
	idx := r.index
	enableScan := r.enableScan
	heapSnapshot := make(map[uint64][]float64, len(r.heap))
	for k, v := range r.heap {
		heapSnapshot[k] = v
	}
	revIDs := make(map[uint64]string, len(r.revIDs))
	for k, v := range r.revIDs {
		revIDs[k] = v
	}
	r.mu.Unlock()

	if idx.Marks() == nil {
		return nil, fmt.Errorf("%w: relation %s/%s has not been built yet", errs.ErrCorrupted, r.namespace, r.name)
	}

	stats := idx.Stats()
	cost := idx.CostEstimate(vafile.CostEstimateInput{
		Limit:        spec.K,
		TableRows:    stats.HeapTuples,
		IndexRows:    stats.IndexTuples,
		UserDisabled: !enableScan,
	})
	if cost.Disabled {
		return r.searchSequential(spec, heapSnapshot, revIDs)
	}

	scan := idx.BeginScan()
	defer scan.EndScan()

	if err := scan.Rescan(spec.Query, spec.Norm, spec.Weights, spec.K, nil); err != nil {
		return nil, err
	}
	bitmap, candidateCount, warnings, err := scan.GetBitmap(ctx)
	if err != nil {
		return nil, err
	}

	hits := make([]SearchHit, 0, candidateCount)
	it := bitmap.Iterator()
	for it.HasNext() {
		key := it.Next()
		id, ok := revIDs[key]
		if !ok {
			continue
		}
		vec, ok := heapSnapshot[key]
		if !ok {
			continue
		}
		d, err := distance.Minkowski(spec.Query, vec, spec.Weights, spec.Norm)
		if err != nil {
			return nil, err
		}
		d, err = r.applyPipeline(d, spec)
		if err != nil {
			return nil, err
		}
		hits = append(hits, SearchHit{ID: id, Distance: d})
	}

	sort.Slice(hits, func(i, j int) bool { return hits[i].Distance < hits[j].Distance })
	if len(hits) > spec.K {
		hits = hits[:spec.K]
	}

	return &SearchOutcome{Hits: hits, CandidateCount: candidateCount, Scanned: int(idx.Stats().IndexTuples), Warnings: warnings}, nil
}

// searchSequential refines every live vector against spec directly, bypassing
// the VA-File's approximation bounds entirely. It is the fallback a real
// planner would take once CostEstimate reports the index out of
// consideration (enable_vascan=false, or the cost model itself disables the
// scan for this query shape), matching section 6's framing of enable_vascan
// as a toggle that removes the index from consideration rather than one that
// changes its answer.
func (r *Relation) searchSequential(spec SearchSpec, heapSnapshot map[uint64][]float64, revIDs map[uint64]string) (*SearchOutcome, error) {
	hits := make([]SearchHit, 0, len(heapSnapshot))
	for key, vec := range heapSnapshot {
		id, ok := revIDs[key]
		if !ok {
			continue
		}
		d, err := distance.Minkowski(spec.Query, vec, spec.Weights, spec.Norm)
		if err != nil {
			return nil, err
		}
		d, err = r.applyPipeline(d, spec)
		if err != nil {
			return nil, err
		}
		hits = append(hits, SearchHit{ID: id, Distance: d})
	}

	sort.Slice(hits, func(i, j int) bool { return hits[i].Distance < hits[j].Distance })
	if len(hits) > spec.K {
		hits = hits[:spec.K]
	}

	return &SearchOutcome{
		Hits:           hits,
		CandidateCount: int64(len(heapSnapshot)),
		Scanned:        len(heapSnapshot),
		Warnings:       []string{"vascan disabled: index scan skipped in favor of a full sequential scan"},
	}, nil
}

func (r *Relation) applyPipeline(d float64, spec SearchSpec) (float64, error) {
	if spec.NormKind == distance.NormNone {
		return d, nil
	}
	if spec.NormKey == nil {
		return 0, fmt.Errorf("%w: normalization requested without a parameter key", errs.ErrBadNormalization)
	}
	params, err := distance.RequireParams(r.params, *spec.NormKey)
	if err != nil {
		return 0, err
	}
	m, err := distance.Normalize(d, spec.NormKind, params)
	if err != nil {
		return 0, err
	}
	if spec.Weight != 0 {
		m = distance.Weight(m, spec.Weight)
	}
	if spec.Complement != "" {
		m, err = distance.Complement(spec.Complement, m, spec.ComplementParam)
		if err != nil {
			return 0, err
		}
	}
	return m, nil
}

// PrecomputeNormalization runs an all-pairs (bounded by sampleCap) traversal
// over the relation's current vectors under norm/weights and persists the
// resulting (max, mu, sigma) under key, per the open-question decision in
// DESIGN.md that normalization parameters must be explicitly persisted
// rather than silently defaulted.
func (r *Relation) PrecomputeNormalization(key distance.Key, norm float64, weights []float64, sampleCap int) (distance.Params, error) {
	r.mu.Lock()
	vectors := make([][]float64, 0, len(r.heap))
	for _, v := range r.heap {
		vectors = append(vectors, v)
	}
	r.mu.Unlock()

	if len(vectors) < 2 {
		return distance.Params{}, fmt.Errorf("%w: need at least 2 vectors to precompute normalization, have %d", errs.ErrBadNormalization, len(vectors))
	}
	if sampleCap > 0 && len(vectors) > sampleCap {
		vectors = vectors[:sampleCap]
	}

	var distances []float64
	for i := 0; i < len(vectors); i++ {
		for j := i + 1; j < len(vectors); j++ {
			d, err := distance.Minkowski(vectors[i], vectors[j], weights, norm)
			if err != nil {
				return distance.Params{}, err
			}
			distances = append(distances, d)
		}
	}

	params, err := distance.PrecomputeParams(distances)
	if err != nil {
		return distance.Params{}, err
	}
	r.params.Put(key, params)
	return params, nil
}
