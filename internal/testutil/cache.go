package testutil

import (
	"time"

	"github.com/ledgerlens/ledgerlens/internal/service"
)

// NopCache is a FeatureCache that never stores anything, forcing every
// call down the computation path.
type NopCache struct{}

func (NopCache) Get(_ service.CacheKey) (any, bool) { return nil, false }

func (NopCache) Set(_ service.CacheKey, _ any, _ time.Duration) {}

func (NopCache) Invalidate(_ service.CacheKey) {}

func (NopCache) InvalidateUser(_ string) {}
