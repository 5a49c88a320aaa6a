package remote

import (
	"context"
	"time"
)

// ParserService parses uploaded source documents into structured records.
type ParserService interface {
	// ParseApplication parses a DOCX application. The filename must carry
	// a .docx extension; wrong types fail locally with ErrValidation.
	ParseApplication(ctx context.Context, filename string, file []byte) (*ParsedApplication, error)

	// ParseExtract parses a land-registry extract from XML or a ZIP
	// containing one.
	ParseExtract(ctx context.Context, filename string, file []byte) (*ParsedExtract, error)
}

// ParserClient talks to the external document parser service.
type ParserClient struct {
	client
}

// NewParserClient creates a parser client for the given base URL.
func NewParserClient(baseURL string, timeout time.Duration) *ParserClient {
	return &ParserClient{client: newClient(baseURL, timeout)}
}

// ParseApplication uploads a DOCX application and returns the parsed fields.
func (p *ParserClient) ParseApplication(ctx context.Context, filename string, file []byte) (*ParsedApplication, error) {
	if err := CheckExtension(filename, ".docx"); err != nil {
		return nil, err
	}

	var parsed ParsedApplication
	if err := p.postFile(ctx, "/api/parsers/application", filename, file, &parsed); err != nil {
		return nil, err
	}
	return &parsed, nil
}

// ParseExtract uploads a registry extract and returns the parsed parcel data.
func (p *ParserClient) ParseExtract(ctx context.Context, filename string, file []byte) (*ParsedExtract, error) {
	if err := CheckExtension(filename, ".xml", ".zip"); err != nil {
		return nil, err
	}

	var parsed ParsedExtract
	if err := p.postFile(ctx, "/api/parsers/egrn", filename, file, &parsed); err != nil {
		return nil, err
	}

	if !parsed.IsLand {
		return nil, rejected(400, "the extract does not describe a land parcel")
	}
	return &parsed, nil
}
