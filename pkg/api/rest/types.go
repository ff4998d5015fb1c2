package rest

// InsertRequest is the JSON body for POST /v1/vectors.
type InsertRequest struct {
	Namespace string    `json:"namespace"`
	Relation  string    `json:"relation"`
	ID        string    `json:"id"`
	Vector    []float64 `json:"vector"`
}

// InsertResponse is the JSON body returned from a successful or failed Insert.
type InsertResponse struct {
	Success bool   `json:"success"`
	ID      string `json:"id,omitempty"`
	Built   bool   `json:"built,omitempty"` // true when this insert triggered the relation's first automatic build
	Error   string `json:"error,omitempty"`
}

// SearchRequest is the JSON body for POST /v1/vectors/search.
type SearchRequest struct {
	Namespace string    `json:"namespace"`
	Relation  string    `json:"relation"`
	Query     []float64 `json:"query"`
	K         int       `json:"k"`
	Norm      string    `json:"norm"` // decimal in (0,100), or "max" for L-infinity
	Weights   []float64 `json:"weights,omitempty"`

	Normalize       string  `json:"normalize,omitempty"` // "minmax" or "gaussian"; requires precomputed params
	Weight          float64 `json:"weight,omitempty"`
	Complement      string  `json:"complement,omitempty"` // "standard", "sugeno", or "yager"
	ComplementParam float64 `json:"complement_param,omitempty"`
}

// SearchResult is one refined hit.
type SearchResult struct {
	ID       string  `json:"id"`
	Distance float64 `json:"distance"`
}

// SearchResponse is the JSON body returned from Search.
type SearchResponse struct {
	Results        []SearchResult `json:"results"`
	TotalResults   int            `json:"total_results"`
	CandidateCount int64          `json:"candidate_count"`
	SearchTimeMs   float64        `json:"search_time_ms"`
	Warnings       []string       `json:"warnings,omitempty"`
	Error          string         `json:"error,omitempty"`
}

// DeleteRequest is the JSON body for POST /v1/vectors/delete.
type DeleteRequest struct {
	Namespace string `json:"namespace"`
	Relation  string `json:"relation"`
	ID        string `json:"id"`
}

// DeleteResponse is the JSON body returned from Delete.
type DeleteResponse struct {
	Success      bool   `json:"success"`
	DeletedCount int64  `json:"deleted_count"`
	Error        string `json:"error,omitempty"`
}

// UpdateRequest is the JSON body for PUT/PATCH /v1/vectors/{namespace}/{relation}/{id}.
type UpdateRequest struct {
	Vector []float64 `json:"vector"`
}

// UpdateResponse is the JSON body returned from Update.
type UpdateResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// BatchInsertResponse reports how many of a batch succeeded.
type BatchInsertResponse struct {
	Inserted int      `json:"inserted"`
	Errors   []string `json:"errors,omitempty"`
}

// CreateRelationRequest is the JSON body for POST /v1/relations.
type CreateRelationRequest struct {
	Namespace  string `json:"namespace"`
	Relation   string `json:"relation"`
	Dimensions int    `json:"dimensions"`
	Strategy   string `json:"strategy"` // "equidistant" or "equifrequent"
}

// CreateRelationResponse is the JSON body returned from CreateRelation.
type CreateRelationResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// BuildResponse reports the counts from an explicit build.
type BuildResponse struct {
	Success     bool     `json:"success"`
	HeapTuples  int64    `json:"heap_tuples"`
	IndexTuples int64    `json:"index_tuples"`
	Warnings    []string `json:"warnings,omitempty"`
	Error       string   `json:"error,omitempty"`
}

// VacuumResponse reports the counts from vacuumcleanup().
type VacuumResponse struct {
	Success        bool   `json:"success"`
	NumIndexTuples int64  `json:"num_index_tuples"`
	PagesReclaimed int    `json:"pages_reclaimed"`
	PagesTruncated int    `json:"pages_truncated"`
	Error          string `json:"error,omitempty"`
}

// NamespaceStats is one namespace's slice of StatsResponse.
type NamespaceStats struct {
	Relations   int   `json:"relations"`
	VectorCount int64 `json:"vector_count"`
	Dimensions  int   `json:"dimensions"`
}

// StatsResponse is the JSON body returned from GET /v1/stats[/{namespace}].
type StatsResponse struct {
	TotalVectors    int64                     `json:"total_vectors"`
	TotalNamespaces int                       `json:"total_namespaces"`
	NamespaceStats  map[string]NamespaceStats `json:"namespace_stats"`
}

// HealthCheckResponse is the JSON body returned from GET /v1/health.
type HealthCheckResponse struct {
	Status        string `json:"status"`
	Version       string `json:"version"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}
