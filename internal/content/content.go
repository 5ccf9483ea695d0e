// Package content is the read-only client for the external content
// store. The room engine resolves minigame and pack ids through it and
// owns none of that data.
package content

import (
	"context"
	"errors"

	"github.com/someonesays/roomserver/internal/domain"
)

var ErrNotFound = errors.New("content not found")

// Store resolves content ids to metadata.
type Store interface {
	Minigame(ctx context.Context, id string) (*domain.Minigame, error)
	Pack(ctx context.Context, id string) (*domain.Pack, error)
}
