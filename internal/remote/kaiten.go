package remote

import (
	"context"
	"time"
)

// KaitenService creates task cards in the Kaiten tracker.
type KaitenService interface {
	CreateCard(ctx context.Context, title, description string, properties map[string]string) (*KaitenCard, error)
}

// KaitenClient talks to the Kaiten integration service.
type KaitenClient struct {
	client
}

// NewKaitenClient creates a Kaiten client for the given base URL.
func NewKaitenClient(baseURL string, timeout time.Duration) *KaitenClient {
	return &KaitenClient{client: newClient(baseURL, timeout)}
}

type createCardRequest struct {
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Properties  map[string]string `json:"properties,omitempty"`
}

// CreateCard creates one task card and returns its id and URL.
func (k *KaitenClient) CreateCard(ctx context.Context, title, description string, properties map[string]string) (*KaitenCard, error) {
	var card KaitenCard
	err := k.postJSON(ctx, "/api/kaiten/cards", createCardRequest{
		Title:       title,
		Description: description,
		Properties:  properties,
	}, &card)
	if err != nil {
		return nil, err
	}
	return &card, nil
}
