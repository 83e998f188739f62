package repository

import (
	"context"

	"github.com/sakif/social-analytics/internal/dataset"
)

// SourceRepository loads the four raw tables the pipeline starts from.
// Implementations return fresh tables on every call.
type SourceRepository interface {
	Load(ctx context.Context) (dataset.Raw, error)
}
