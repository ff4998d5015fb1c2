package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

const version = "1.0.0"

var (
	serverAddr string
	namespace  string
	relation   string
	timeout    time.Duration
)

func main() {
	if len(os.Args) < 2 {
		showUsage()
		os.Exit(1)
	}

	flag.StringVar(&serverAddr, "server", "http://localhost:8080", "REST server address")
	flag.StringVar(&namespace, "namespace", "default", "namespace to use")
	flag.StringVar(&relation, "relation", "", "relation to use (required for most commands)")
	flag.DurationVar(&timeout, "timeout", 30*time.Second, "request timeout")

	command := os.Args[1]

	switch command {
	case "create":
		handleCreate(os.Args[2:])
	case "build":
		handleBuild(os.Args[2:])
	case "vacuum":
		handleVacuum(os.Args[2:])
	case "insert":
		handleInsert(os.Args[2:])
	case "search":
		handleSearch(os.Args[2:])
	case "delete":
		handleDelete(os.Args[2:])
	case "update":
		handleUpdate(os.Args[2:])
	case "stats":
		handleStats(os.Args[2:])
	case "health":
		handleHealth(os.Args[2:])
	case "version":
		fmt.Printf("vafile-cli version %s\n", version)
	case "help", "-h", "--help":
		showUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		showUsage()
		os.Exit(1)
	}
}

type apiError struct {
	Error  string `json:"error"`
	Status int    `json:"status"`
}

// doRequest POSTs/DELETEs/PUTs a JSON body to the REST server and decodes the
// JSON response into out. A non-2xx response is surfaced as an error built
// from the body's "error" field, when present.
func doRequest(method, path string, body interface{}, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, strings.TrimSuffix(serverAddr, "/")+path, reader)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: timeout}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode >= 300 {
		var ae apiError
		if json.Unmarshal(respBody, &ae) == nil && ae.Error != "" {
			return fmt.Errorf("server returned %d: %s", resp.StatusCode, ae.Error)
		}
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, string(respBody))
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}
	return nil
}

func requireRelation(fs *flag.FlagSet) {
	if relation == "" {
		fmt.Println("Error: -relation is required")
		fs.Usage()
		os.Exit(1)
	}
}

func handleCreate(args []string) {
	fs := flag.NewFlagSet("create", flag.ExitOnError)
	var (
		dim      = fs.Int("dim", 0, "vector dimensions (required)")
		strategy = fs.String("strategy", "equidistant", "mark-placement strategy: equidistant or equifrequent")
	)
	fs.StringVar(&serverAddr, "server", serverAddr, "REST server address")
	fs.StringVar(&namespace, "namespace", namespace, "namespace")
	fs.StringVar(&relation, "relation", relation, "relation name")
	fs.Parse(args)
	requireRelation(fs)

	if *dim < 1 {
		fmt.Println("Error: -dim must be positive")
		os.Exit(1)
	}

	req := map[string]interface{}{
		"namespace":  namespace,
		"relation":   relation,
		"dimensions": *dim,
		"strategy":   *strategy,
	}
	var resp struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}
	if err := doRequest(http.MethodPost, "/v1/relations", req, &resp); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("✓ Created relation %s/%s (dim=%d, strategy=%s)\n", namespace, relation, *dim, *strategy)
}

func handleBuild(args []string) {
	fs := flag.NewFlagSet("build", flag.ExitOnError)
	fs.StringVar(&serverAddr, "server", serverAddr, "REST server address")
	fs.StringVar(&namespace, "namespace", namespace, "namespace")
	fs.StringVar(&relation, "relation", relation, "relation name")
	fs.Parse(args)
	requireRelation(fs)

	var resp struct {
		Success     bool     `json:"success"`
		HeapTuples  int64    `json:"heap_tuples"`
		IndexTuples int64    `json:"index_tuples"`
		Warnings    []string `json:"warnings"`
		Error       string   `json:"error"`
	}
	path := fmt.Sprintf("/v1/relations/%s/%s/build", namespace, relation)
	if err := doRequest(http.MethodPost, path, nil, &resp); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("✓ Built %s/%s: %d heap tuples, %d index tuples\n", namespace, relation, resp.HeapTuples, resp.IndexTuples)
	for _, w := range resp.Warnings {
		fmt.Printf("  warning: %s\n", w)
	}
}

func handleVacuum(args []string) {
	fs := flag.NewFlagSet("vacuum", flag.ExitOnError)
	fs.StringVar(&serverAddr, "server", serverAddr, "REST server address")
	fs.StringVar(&namespace, "namespace", namespace, "namespace")
	fs.StringVar(&relation, "relation", relation, "relation name")
	fs.Parse(args)
	requireRelation(fs)

	var resp struct {
		Success        bool   `json:"success"`
		NumIndexTuples int64  `json:"num_index_tuples"`
		PagesReclaimed int    `json:"pages_reclaimed"`
		PagesTruncated int    `json:"pages_truncated"`
		Error          string `json:"error"`
	}
	path := fmt.Sprintf("/v1/relations/%s/%s/vacuum", namespace, relation)
	if err := doRequest(http.MethodPost, path, nil, &resp); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("✓ Vacuumed %s/%s: %d tuples remain, %d pages reclaimed, %d pages truncated\n",
		namespace, relation, resp.NumIndexTuples, resp.PagesReclaimed, resp.PagesTruncated)
}

func handleInsert(args []string) {
	fs := flag.NewFlagSet("insert", flag.ExitOnError)
	var (
		id        = fs.String("id", "", "external ID for this vector (required)")
		vectorStr = fs.String("vector", "", "vector as JSON array (required)")
	)
	fs.StringVar(&serverAddr, "server", serverAddr, "REST server address")
	fs.StringVar(&namespace, "namespace", namespace, "namespace")
	fs.StringVar(&relation, "relation", relation, "relation name")
	fs.Parse(args)
	requireRelation(fs)

	if *id == "" || *vectorStr == "" {
		fmt.Println("Error: -id and -vector are required")
		fs.Usage()
		os.Exit(1)
	}

	var vector []float64
	if err := json.Unmarshal([]byte(*vectorStr), &vector); err != nil {
		fmt.Printf("Error parsing vector: %v\n", err)
		os.Exit(1)
	}

	req := map[string]interface{}{
		"namespace": namespace,
		"relation":  relation,
		"id":        *id,
		"vector":    vector,
	}
	var resp struct {
		Success bool   `json:"success"`
		ID      string `json:"id"`
		Built   bool   `json:"built"`
		Error   string `json:"error"`
	}
	if err := doRequest(http.MethodPost, "/v1/vectors", req, &resp); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("✓ Inserted vector with ID: %s\n", resp.ID)
	if resp.Built {
		fmt.Println("  (this insert triggered the relation's first automatic build)")
	}
}

func handleSearch(args []string) {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	var (
		queryStr   = fs.String("query", "", "query vector as JSON array (required)")
		k          = fs.Int("k", 10, "number of results to return")
		norm       = fs.String("norm", "2", "Minkowski norm: decimal in (0,100), or \"max\" for L-infinity")
		weightsStr = fs.String("weights", "", "per-dimension weights as JSON array")
		normalize  = fs.String("normalize", "", "normalization kind: minmax or gaussian (requires precomputed params)")
	)
	fs.StringVar(&serverAddr, "server", serverAddr, "REST server address")
	fs.StringVar(&namespace, "namespace", namespace, "namespace")
	fs.StringVar(&relation, "relation", relation, "relation name")
	fs.Parse(args)
	requireRelation(fs)

	if *queryStr == "" {
		fmt.Println("Error: -query is required")
		fs.Usage()
		os.Exit(1)
	}

	var query []float64
	if err := json.Unmarshal([]byte(*queryStr), &query); err != nil {
		fmt.Printf("Error parsing query vector: %v\n", err)
		os.Exit(1)
	}

	var weights []float64
	if *weightsStr != "" {
		if err := json.Unmarshal([]byte(*weightsStr), &weights); err != nil {
			fmt.Printf("Error parsing weights: %v\n", err)
			os.Exit(1)
		}
	}

	req := map[string]interface{}{
		"namespace": namespace,
		"relation":  relation,
		"query":     query,
		"k":         *k,
		"norm":      *norm,
	}
	if len(weights) > 0 {
		req["weights"] = weights
	}
	if *normalize != "" {
		req["normalize"] = *normalize
	}

	var resp struct {
		Results []struct {
			ID       string  `json:"id"`
			Distance float64 `json:"distance"`
		} `json:"results"`
		TotalResults   int      `json:"total_results"`
		CandidateCount int64    `json:"candidate_count"`
		SearchTimeMs   float64  `json:"search_time_ms"`
		Warnings       []string `json:"warnings"`
		Error          string   `json:"error"`
	}
	if err := doRequest(http.MethodPost, "/v1/vectors/search", req, &resp); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Found %d results out of %d candidates (search took %.2fms)\n\n",
		resp.TotalResults, resp.CandidateCount, resp.SearchTimeMs)
	for i, r := range resp.Results {
		fmt.Printf("Result %d:\n", i+1)
		fmt.Printf("  ID:       %s\n", r.ID)
		fmt.Printf("  Distance: %.6f\n", r.Distance)
		fmt.Println()
	}
	for _, w := range resp.Warnings {
		fmt.Printf("warning: %s\n", w)
	}
}

func handleDelete(args []string) {
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	var id = fs.String("id", "", "ID of vector to delete (required)")
	fs.StringVar(&serverAddr, "server", serverAddr, "REST server address")
	fs.StringVar(&namespace, "namespace", namespace, "namespace")
	fs.StringVar(&relation, "relation", relation, "relation name")
	fs.Parse(args)
	requireRelation(fs)

	if *id == "" {
		fmt.Println("Error: -id is required")
		fs.Usage()
		os.Exit(1)
	}

	req := map[string]interface{}{"namespace": namespace, "relation": relation, "id": *id}
	var resp struct {
		Success      bool   `json:"success"`
		DeletedCount int64  `json:"deleted_count"`
		Error        string `json:"error"`
	}
	if err := doRequest(http.MethodPost, "/v1/vectors/delete", req, &resp); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("✓ Deleted %d vector(s)\n", resp.DeletedCount)
}

func handleUpdate(args []string) {
	fs := flag.NewFlagSet("update", flag.ExitOnError)
	var (
		id        = fs.String("id", "", "ID of vector to update (required)")
		vectorStr = fs.String("vector", "", "new vector as JSON array (required)")
	)
	fs.StringVar(&serverAddr, "server", serverAddr, "REST server address")
	fs.StringVar(&namespace, "namespace", namespace, "namespace")
	fs.StringVar(&relation, "relation", relation, "relation name")
	fs.Parse(args)
	requireRelation(fs)

	if *id == "" || *vectorStr == "" {
		fmt.Println("Error: -id and -vector are required")
		fs.Usage()
		os.Exit(1)
	}

	var vector []float64
	if err := json.Unmarshal([]byte(*vectorStr), &vector); err != nil {
		fmt.Printf("Error parsing vector: %v\n", err)
		os.Exit(1)
	}

	req := map[string]interface{}{"vector": vector}
	var resp struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}
	path := fmt.Sprintf("/v1/vectors/%s/%s/%s", namespace, relation, *id)
	if err := doRequest(http.MethodPut, path, req, &resp); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("✓ Updated vector %s\n", *id)
}

func handleStats(args []string) {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	fs.StringVar(&serverAddr, "server", serverAddr, "REST server address")
	fs.StringVar(&namespace, "namespace", namespace, "namespace to scope stats to (optional)")
	fs.Parse(args)

	var resp struct {
		TotalVectors    int64 `json:"total_vectors"`
		TotalNamespaces int   `json:"total_namespaces"`
		NamespaceStats  map[string]struct {
			Relations   int   `json:"relations"`
			VectorCount int64 `json:"vector_count"`
			Dimensions  int   `json:"dimensions"`
		} `json:"namespace_stats"`
	}
	path := "/v1/stats"
	if namespace != "" && namespace != "default" {
		path = "/v1/stats/" + namespace
	}
	if err := doRequest(http.MethodGet, path, nil, &resp); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("=== VA-File Statistics ===")
	fmt.Printf("Total Vectors:     %d\n", resp.TotalVectors)
	fmt.Printf("Total Namespaces:  %d\n", resp.TotalNamespaces)
	fmt.Println("\nNamespace Statistics:")
	for ns, st := range resp.NamespaceStats {
		fmt.Printf("  %s:\n", ns)
		fmt.Printf("    Relations:  %d\n", st.Relations)
		fmt.Printf("    Vectors:    %d\n", st.VectorCount)
		fmt.Printf("    Dimensions: %d\n", st.Dimensions)
	}
}

func handleHealth(args []string) {
	fs := flag.NewFlagSet("health", flag.ExitOnError)
	fs.StringVar(&serverAddr, "server", serverAddr, "REST server address")
	fs.Parse(args)

	var resp struct {
		Status        string `json:"status"`
		Version       string `json:"version"`
		UptimeSeconds int64  `json:"uptime_seconds"`
	}
	if err := doRequest(http.MethodGet, "/v1/health", nil, &resp); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Status:  %s\n", resp.Status)
	fmt.Printf("Version: %s\n", resp.Version)
	fmt.Printf("Uptime:  %d seconds\n", resp.UptimeSeconds)

	if resp.Status != "healthy" {
		os.Exit(1)
	}
}

func showUsage() {
	fmt.Println(`VA-File CLI - Client for the VA-File similarity search server

Usage:
  vafile-cli <command> [options]

Commands:
  create    Create a new relation
  build     Explicitly build a relation's marks and index
  vacuum    Reclaim deleted pages in a relation
  insert    Insert a vector
  search    Search for similar vectors
  delete    Delete a vector by ID
  update    Update a vector
  stats     Get database statistics
  health    Check server health
  version   Show version
  help      Show this help message

Global Options:
  -server ADDRESS    REST server address (default: http://localhost:8080)
  -namespace NAME    Namespace to use (default: default)
  -relation NAME     Relation to use (required for most commands)
  Requests time out after 30s; no option changes this.

Examples:

  # Create a relation
  vafile-cli create -relation docs -dim 128 -strategy equidistant

  # Insert a vector
  vafile-cli insert -relation docs -id doc-1 -vector '[0.1, 0.2, 0.3]'

  # Explicitly build after loading rows
  vafile-cli build -relation docs

  # Search for similar vectors
  vafile-cli search -relation docs -query '[0.15, 0.25, 0.35]' -k 10 -norm 2

  # Search with the L1 norm and per-dimension weights
  vafile-cli search -relation docs -query '[0.1, 0.2]' -norm 1 -weights '[1.0, 2.0]'

  # Delete a vector
  vafile-cli delete -relation docs -id doc-1

  # Update a vector
  vafile-cli update -relation docs -id doc-1 -vector '[0.9, 0.9, 0.9]'

  # Reclaim space after deletes
  vafile-cli vacuum -relation docs

  # Get database statistics
  vafile-cli stats

  # Check server health
  vafile-cli health

  # Use a custom server
  vafile-cli search -server http://my-server:8080 -relation docs -query '[0.1, 0.2]'`)
}
