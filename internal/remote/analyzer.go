package remote

import (
	"context"
	"time"
)

// AnalyzerService performs spatial analysis for a parcel.
type AnalyzerService interface {
	Analyze(ctx context.Context, cadnum string, contours [][]Coord) (*Analysis, error)
}

// AnalyzerClient talks to the external spatial-analysis service.
type AnalyzerClient struct {
	client
}

// NewAnalyzerClient creates an analyzer client for the given base URL.
func NewAnalyzerClient(baseURL string, timeout time.Duration) *AnalyzerClient {
	return &AnalyzerClient{client: newClient(baseURL, timeout)}
}

type analyzeRequest struct {
	Cadnum   string    `json:"cadnum"`
	Contours [][]Coord `json:"contours"`
}

// Analyze resolves the zoning, district, intersecting capital objects and
// restricted zones for the parcel geometry.
func (a *AnalyzerClient) Analyze(ctx context.Context, cadnum string, contours [][]Coord) (*Analysis, error) {
	var analysis Analysis
	err := a.postJSON(ctx, "/api/analysis/spatial", analyzeRequest{Cadnum: cadnum, Contours: contours}, &analysis)
	if err != nil {
		return nil, err
	}
	return &analysis, nil
}
