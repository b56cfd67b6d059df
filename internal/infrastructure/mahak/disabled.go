package mahak

import (
	"context"

	domain "github.com/shopino/backend/internal/domain/mahak"
)

// DisabledClient is used when no Mahak endpoint is configured. Every call
// fails with ErrNotConfigured, which classifies as transient, so queued work
// stays pending until the integration is configured.
type DisabledClient struct{}

// NewDisabledClient creates a client that rejects every call
func NewDisabledClient() *DisabledClient {
	return &DisabledClient{}
}

func (*DisabledClient) CreateOrUpdate(ctx context.Context, req *domain.PushRequest) (*domain.PushResult, error) {
	return nil, domain.ErrNotConfigured
}

func (*DisabledClient) Delete(ctx context.Context, entityType string, externalID int64) (*domain.PushResult, error) {
	return nil, domain.ErrNotConfigured
}

func (*DisabledClient) Fetch(ctx context.Context, entityType string, externalID int64) (*domain.FetchResult, error) {
	return nil, domain.ErrNotConfigured
}

var _ domain.Client = (*DisabledClient)(nil)
