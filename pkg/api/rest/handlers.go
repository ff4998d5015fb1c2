package rest

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/therealutkarshpriyadarshi/vafile/internal/distance"
	"github.com/therealutkarshpriyadarshi/vafile/internal/errs"
	"github.com/therealutkarshpriyadarshi/vafile/internal/marks"
	"github.com/therealutkarshpriyadarshi/vafile/pkg/engine"
)

// Handler serves every REST route directly against the in-process engine;
// there is no RPC hop the way the teacher's Handler proxied to a gRPC
// backend (see DESIGN.md's "Dropped teacher dependency" entry).
type Handler struct {
	eng *engine.Engine
}

// NewHandler creates a REST handler bound to eng.
func NewHandler(eng *engine.Engine) *Handler {
	return &Handler{eng: eng}
}

// HealthCheck handles GET /v1/health.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	hs := h.eng.Health()
	writeJSON(w, HealthCheckResponse{
		Status:        hs.Status,
		Version:       hs.Version,
		UptimeSeconds: hs.UptimeSeconds,
	}, http.StatusOK)
}

// GetStats handles GET /v1/stats and GET /v1/stats/{namespace}.
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/v1/stats")
	namespace := strings.TrimPrefix(path, "/")

	st := h.eng.Stats(namespace)
	out := StatsResponse{
		TotalVectors:    st.TotalVectors,
		TotalNamespaces: st.TotalNamespaces,
		NamespaceStats:  make(map[string]NamespaceStats, len(st.Namespaces)),
	}
	for ns, s := range st.Namespaces {
		out.NamespaceStats[ns] = NamespaceStats{Relations: s.Relations, VectorCount: s.VectorCount, Dimensions: s.Dimensions}
	}
	writeJSON(w, out, http.StatusOK)
}

// CreateRelation handles POST /v1/relations.
func (h *Handler) CreateRelation(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req CreateRelationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	defaults := h.eng.Config().VAFile
	strategy := defaults.Strategy()
	if req.Strategy != "" {
		strategy = marks.EquiDistant
		if strings.EqualFold(req.Strategy, "equifrequent") {
			strategy = marks.EquiFrequent
		}
	}
	dim := req.Dimensions
	if dim == 0 {
		dim = defaults.DefaultDimensions
	}

	if _, err := h.eng.CreateRelation(engine.CreateRelationSpec{
		Namespace: req.Namespace,
		Name:      req.Relation,
		Dim:       dim,
		Strategy:  strategy,
	}); err != nil {
		writeJSON(w, CreateRelationResponse{Success: false, Error: err.Error()}, statusForError(err))
		return
	}
	writeJSON(w, CreateRelationResponse{Success: true}, http.StatusCreated)
}

// Insert handles POST /v1/vectors.
func (h *Handler) Insert(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req InsertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	rel, err := h.eng.Relation(req.Namespace, req.Relation)
	if err != nil {
		writeJSON(w, InsertResponse{Success: false, Error: err.Error()}, statusForError(err))
		return
	}

	res, err := rel.Insert(r.Context(), req.ID, req.Vector)
	if err != nil {
		writeJSON(w, InsertResponse{Success: false, Error: err.Error()}, statusForError(err))
		return
	}

	if m := h.eng.Metrics(); m != nil {
		m.RecordInsert(req.Relation, 1)
		if res.Triggered != nil {
			m.RecordBuild(req.Relation, rel.Strategy().String(), 0)
		}
	}
	writeJSON(w, InsertResponse{Success: true, ID: req.ID, Built: res.Triggered != nil}, http.StatusCreated)
}

// BatchInsert handles POST /v1/vectors/batch.
func (h *Handler) BatchInsert(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var reqs []InsertRequest
	if err := json.NewDecoder(r.Body).Decode(&reqs); err != nil {
		writeError(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	out := BatchInsertResponse{}
	for _, req := range reqs {
		rel, err := h.eng.Relation(req.Namespace, req.Relation)
		if err != nil {
			out.Errors = append(out.Errors, req.ID+": "+err.Error())
			continue
		}
		if _, err := rel.Insert(r.Context(), req.ID, req.Vector); err != nil {
			out.Errors = append(out.Errors, req.ID+": "+err.Error())
			continue
		}
		out.Inserted++
	}
	if m := h.eng.Metrics(); m != nil && out.Inserted > 0 {
		m.RecordInsert("batch", out.Inserted)
	}
	writeJSON(w, out, http.StatusCreated)
}

// Search handles POST /v1/vectors/search.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	rel, err := h.eng.Relation(req.Namespace, req.Relation)
	if err != nil {
		writeJSON(w, SearchResponse{Error: err.Error()}, statusForError(err))
		return
	}

	norm := 2.0
	if req.Norm != "" {
		norm, err = distance.ParseNorm(req.Norm)
		if err != nil {
			writeJSON(w, SearchResponse{Error: err.Error()}, http.StatusBadRequest)
			return
		}
	}

	k := req.K
	if k <= 0 {
		k = h.eng.Config().Scan.DefaultK
	}
	if max := h.eng.Config().Scan.MaxK; max > 0 && k > max {
		k = max
	}

	spec := engine.SearchSpec{
		Query:           req.Query,
		K:               k,
		Norm:            norm,
		Weights:         req.Weights,
		Weight:          req.Weight,
		Complement:      req.Complement,
		ComplementParam: req.ComplementParam,
	}
	switch strings.ToLower(req.Normalize) {
	case "":
		spec.NormKind = distance.NormNone
	case "minmax":
		spec.NormKind = distance.NormMinMax
		key := distance.Key{Relation: req.Relation, Column: "vector", Signature: req.Norm}
		spec.NormKey = &key
	case "gaussian":
		spec.NormKind = distance.NormGaussian
		key := distance.Key{Relation: req.Relation, Column: "vector", Signature: req.Norm}
		spec.NormKey = &key
	default:
		writeJSON(w, SearchResponse{Error: "unknown normalize kind: " + req.Normalize}, http.StatusBadRequest)
		return
	}

	start := time.Now()
	out, err := rel.Search(r.Context(), spec)
	elapsed := time.Since(start)
	if err != nil {
		writeJSON(w, SearchResponse{Error: err.Error()}, statusForError(err))
		return
	}

	if m := h.eng.Metrics(); m != nil {
		m.RecordScan(req.Relation, elapsed, int(out.CandidateCount), out.Scanned)
	}

	results := make([]SearchResult, len(out.Hits))
	for i, hit := range out.Hits {
		results[i] = SearchResult{ID: hit.ID, Distance: hit.Distance}
	}
	writeJSON(w, SearchResponse{
		Results:        results,
		TotalResults:   len(results),
		CandidateCount: out.CandidateCount,
		SearchTimeMs:   float64(elapsed.Microseconds()) / 1000.0,
		Warnings:       out.Warnings,
	}, http.StatusOK)
}

// Delete handles DELETE /v1/vectors/{namespace}/{relation}/{id} and POST /v1/vectors/delete.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	var req DeleteRequest

	switch r.Method {
	case http.MethodDelete:
		path := strings.TrimPrefix(r.URL.Path, "/v1/vectors/")
		parts := strings.SplitN(path, "/", 3)
		if len(parts) != 3 {
			writeError(w, "Invalid URL format, expected /v1/vectors/{namespace}/{relation}/{id}", http.StatusBadRequest)
			return
		}
		req.Namespace, req.Relation, req.ID = parts[0], parts[1], parts[2]
	case http.MethodPost:
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
			return
		}
	default:
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	rel, err := h.eng.Relation(req.Namespace, req.Relation)
	if err != nil {
		writeJSON(w, DeleteResponse{Success: false, Error: err.Error()}, statusForError(err))
		return
	}
	if err := rel.Delete(r.Context(), req.ID); err != nil {
		writeJSON(w, DeleteResponse{Success: false, Error: err.Error()}, statusForError(err))
		return
	}
	if m := h.eng.Metrics(); m != nil {
		m.RecordDelete(req.Relation, 1)
	}
	writeJSON(w, DeleteResponse{Success: true, DeletedCount: 1}, http.StatusOK)
}

// Update handles PUT/PATCH /v1/vectors/{namespace}/{relation}/{id}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut && r.Method != http.MethodPatch {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/v1/vectors/")
	parts := strings.SplitN(path, "/", 3)
	if len(parts) != 3 {
		writeError(w, "Invalid URL format, expected /v1/vectors/{namespace}/{relation}/{id}", http.StatusBadRequest)
		return
	}
	namespace, relationName, id := parts[0], parts[1], parts[2]

	var req UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	rel, err := h.eng.Relation(namespace, relationName)
	if err != nil {
		writeJSON(w, UpdateResponse{Success: false, Error: err.Error()}, statusForError(err))
		return
	}
	if err := rel.Update(r.Context(), id, req.Vector); err != nil {
		writeJSON(w, UpdateResponse{Success: false, Error: err.Error()}, statusForError(err))
		return
	}
	writeJSON(w, UpdateResponse{Success: true}, http.StatusOK)
}

// Build handles POST /v1/relations/{namespace}/{relation}/build.
func (h *Handler) Build(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	namespace, relationName, ok := parseRelationPath(r.URL.Path, "/v1/relations/", "/build")
	if !ok {
		writeError(w, "Invalid URL format, expected /v1/relations/{namespace}/{relation}/build", http.StatusBadRequest)
		return
	}

	rel, err := h.eng.Relation(namespace, relationName)
	if err != nil {
		writeJSON(w, BuildResponse{Success: false, Error: err.Error()}, statusForError(err))
		return
	}

	start := time.Now()
	res, err := rel.Build(r.Context())
	if err != nil {
		writeJSON(w, BuildResponse{Success: false, Error: err.Error()}, statusForError(err))
		return
	}
	if m := h.eng.Metrics(); m != nil {
		m.RecordBuild(relationName, rel.Strategy().String(), time.Since(start))
	}
	writeJSON(w, BuildResponse{
		Success:     true,
		HeapTuples:  res.HeapTuples,
		IndexTuples: res.IndexTuples,
		Warnings:    res.Warnings,
	}, http.StatusOK)
}

// Vacuum handles POST /v1/relations/{namespace}/{relation}/vacuum.
func (h *Handler) Vacuum(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	namespace, relationName, ok := parseRelationPath(r.URL.Path, "/v1/relations/", "/vacuum")
	if !ok {
		writeError(w, "Invalid URL format, expected /v1/relations/{namespace}/{relation}/vacuum", http.StatusBadRequest)
		return
	}

	rel, err := h.eng.Relation(namespace, relationName)
	if err != nil {
		writeJSON(w, VacuumResponse{Success: false, Error: err.Error()}, statusForError(err))
		return
	}

	start := time.Now()
	res, err := rel.Vacuum(r.Context())
	if err != nil {
		writeJSON(w, VacuumResponse{Success: false, Error: err.Error()}, statusForError(err))
		return
	}
	if m := h.eng.Metrics(); m != nil {
		m.RecordVacuum(relationName, time.Since(start))
	}
	writeJSON(w, VacuumResponse{
		Success:        true,
		NumIndexTuples: res.NumIndexTuples,
		PagesReclaimed: res.PagesReclaimed,
		PagesTruncated: res.PagesTruncated,
	}, http.StatusOK)
}

// DropRelation handles DELETE /v1/relations/{namespace}/{relation}.
func (h *Handler) DropRelation(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	path := strings.TrimPrefix(r.URL.Path, "/v1/relations/")
	parts := strings.SplitN(path, "/", 2)
	if len(parts) != 2 {
		writeError(w, "Invalid URL format, expected /v1/relations/{namespace}/{relation}", http.StatusBadRequest)
		return
	}
	if err := h.eng.DropRelation(parts[0], parts[1]); err != nil {
		writeJSON(w, CreateRelationResponse{Success: false, Error: err.Error()}, statusForError(err))
		return
	}
	writeJSON(w, CreateRelationResponse{Success: true}, http.StatusOK)
}

// parseRelationPath extracts {namespace}/{relation} from a path of the form
// prefix + "{namespace}/{relation}" + suffix.
func parseRelationPath(path, prefix, suffix string) (namespace, relation string, ok bool) {
	trimmed := strings.TrimSuffix(strings.TrimPrefix(path, prefix), suffix)
	parts := strings.SplitN(trimmed, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}

// statusForError maps the closed error-kind taxonomy from section 7 onto
// HTTP status codes.
func statusForError(err error) int {
	switch {
	case errors.Is(err, errs.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, errs.ErrAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, errs.ErrBadVector), errors.Is(err, errs.ErrBadQuery),
		errors.Is(err, errs.ErrBadDistance), errors.Is(err, errs.ErrBadNormalization),
		errors.Is(err, errs.ErrDimensionMismatch):
		return http.StatusBadRequest
	case errors.Is(err, errs.ErrInsufficientSamples):
		return http.StatusUnprocessableEntity
	case errors.Is(err, errs.ErrCorrupted):
		return http.StatusConflict
	case errors.Is(err, errs.ErrCancelled):
		return http.StatusServiceUnavailable
	case errors.Is(err, errs.ErrQuotaExceeded):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error":  message,
		"status": statusCode,
	})
}

// ServeDocs serves the OpenAPI/Swagger documentation.
func ServeDocs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	content, err := os.ReadFile("docs/api/openapi.yaml")
	if err != nil {
		writeError(w, "OpenAPI spec not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/x-yaml")
	w.WriteHeader(http.StatusOK)
	w.Write(content)
}

// ServeSwaggerUI serves the Swagger UI HTML page.
func ServeSwaggerUI(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	html := `<!DOCTYPE html>
<html>
<head>
    <title>VA-File API Documentation</title>
    <link rel="stylesheet" type="text/css" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
</head>
<body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
    <script>
        window.onload = function() {
            SwaggerUIBundle({
                url: "/docs/openapi.yaml",
                dom_id: '#swagger-ui',
                presets: [
                    SwaggerUIBundle.presets.apis,
                    SwaggerUIBundle.SwaggerUIStandalonePreset
                ],
                layout: "BaseLayout"
            });
        };
    </script>
</body>
</html>`

	w.Header().Set("Content-Type", "text/html")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(html))
}

// ParseIntQuery parses an integer query parameter.
func ParseIntQuery(r *http.Request, key string, defaultValue int) int {
	value := r.URL.Query().Get(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}
