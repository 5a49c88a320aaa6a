package remote

import (
	"context"
	"fmt"
	"time"
)

// DocumentKind selects which generator pipeline produces the artifact.
type DocumentKind string

const (
	DocTuRequest DocumentKind = "tu"
	DocRefusal   DocumentKind = "refusal"
	DocGradplan  DocumentKind = "gradplan"
	DocMidMif    DocumentKind = "midmif"
	DocWorkspace DocumentKind = "workspace"
)

// GeneratorService produces final documents (DOCX letters, MID/MIF and
// MapInfo workspace archives) from assembled payloads.
type GeneratorService interface {
	Generate(ctx context.Context, kind DocumentKind, payload interface{}) (*Artifact, error)
}

// GeneratorClient talks to the external document-generation service.
type GeneratorClient struct {
	client
}

// NewGeneratorClient creates a generator client for the given base URL.
func NewGeneratorClient(baseURL string, timeout time.Duration) *GeneratorClient {
	return &GeneratorClient{client: newClient(baseURL, timeout)}
}

// Generate submits the fully assembled payload for the document kind and
// returns the produced artifact. The generator owns templating and layout;
// the payload shape is the contract agreed per kind.
func (g *GeneratorClient) Generate(ctx context.Context, kind DocumentKind, payload interface{}) (*Artifact, error) {
	fallback := fmt.Sprintf("%s.bin", kind)
	return g.postForArtifact(ctx, "/api/generate/"+string(kind), payload, fallback)
}
