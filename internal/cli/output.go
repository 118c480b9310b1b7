package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/hyperjump/kensaku/internal/models"
	"github.com/hyperjump/kensaku/pkg/utils"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseOutputFormat validates s.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(s)); f {
	case OutputText, OutputJSON:
		return f, nil
	default:
		return "", fmt.Errorf("unknown output format %q; use text or json", s)
	}
}

// resultTextWidth is how much of a result's text the text format shows.
const resultTextWidth = 200

// WriteSearchResults writes search results to w in the given format.
func WriteSearchResults(w io.Writer, response *models.SearchResponse, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, response)
	}
	fmt.Fprintf(w, "\nFound %d results in %dms\n\n", response.Total, response.QueryTime)
	for i, result := range response.Results {
		fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
		fmt.Fprintf(w, "Rank: %d | Score: %.4f\n", i+1, result.Score)
		fmt.Fprintf(w, "ID: %s\n", result.ID)
		fmt.Fprintf(w, "\n%s\n\n", utils.Truncate(result.Text, resultTextWidth))
	}
	return nil
}

// WriteCollections writes collection names one per line, or as {"collections": [...]}.
func WriteCollections(w io.Writer, names []string, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, map[string][]string{"collections": names})
	}
	if len(names) == 0 {
		fmt.Fprintln(w, "no collections")
		return nil
	}
	for _, n := range names {
		fmt.Fprintln(w, n)
	}
	return nil
}

// WriteCollectionInfo writes collection metadata.
func WriteCollectionInfo(w io.Writer, info *models.CollectionInfo, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, info)
	}
	fmt.Fprintf(w, "name:              %s\n", info.Name)
	fmt.Fprintf(w, "vector_dimension:  %d\n", info.Dimension)
	fmt.Fprintf(w, "distance_metric:   %s\n", info.Distance)
	fmt.Fprintf(w, "points_count:      %d\n", info.PointsCount)
	if !info.CreatedAt.IsZero() {
		fmt.Fprintf(w, "created_at:        %s\n", info.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	return nil
}

// WriteStatus writes a status summary.
func WriteStatus(w io.Writer, status *StatusResponse, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, status)
	}
	fmt.Fprintf(w, "status:             %s\n", status.Status)
	fmt.Fprintf(w, "collections:        %d   # count of collections\n", status.Collections)
	fmt.Fprintf(w, "points:             %d   # count of indexed items\n", status.Points)
	if status.UptimeSeconds > 0 {
		fmt.Fprintf(w, "uptime_seconds:     %d\n", status.UptimeSeconds)
	}
	if c := status.Config; c != nil {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "# configuration")
		fmt.Fprintf(w, "storage_backend:    %s\n", c.StorageBackend)
		fmt.Fprintf(w, "vector_dimension:   %d\n", c.VectorDimension)
		fmt.Fprintf(w, "distance_metric:    %s\n", c.DistanceMetric)
		fmt.Fprintf(w, "embedding_provider: %s\n", c.EmbeddingProvider)
		fmt.Fprintf(w, "rerank_provider:    %s\n", c.RerankProvider)
		fmt.Fprintf(w, "max_limit:          %d\n", c.MaxLimit)
	}
	return nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
