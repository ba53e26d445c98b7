package recurrence

import (
	"fmt"

	"cloud.google.com/go/civil"
	lru "github.com/hashicorp/golang-lru"

	"github.com/Freeeeeet/servicejobs/internal/apperr"
)

// Preview caps. Callers asking for more get clamped, never unbounded.
const (
	MaxPreviewHorizonMonths = 24
	MaxPreviewCount         = 100
)

// Preview projects the next starts of r from anchor for interactive feedback.
// Both bounds are mandatory: horizonMonths limits the window and maxCount
// limits the result. It performs no I/O.
func Preview(r Rule, anchor civil.DateTime, horizonMonths, maxCount int) ([]civil.DateTime, error) {
	if horizonMonths <= 0 || maxCount <= 0 {
		return nil, apperr.Wrapf(apperr.ErrUnboundedPreview, "horizon=%d count=%d", horizonMonths, maxCount)
	}
	if horizonMonths > MaxPreviewHorizonMonths {
		horizonMonths = MaxPreviewHorizonMonths
	}
	if maxCount > MaxPreviewCount {
		maxCount = MaxPreviewCount
	}

	w := NewGenerationWindow(anchor.Date, horizonMonths, r.Until)
	exp, err := ExpandLimit(r, anchor, w, maxCount)
	if err != nil {
		return nil, err
	}
	return exp.Starts, nil
}

// Previewer memoizes Preview by its inputs. Results are identical with or
// without the cache.
type Previewer struct {
	cache *lru.Cache
}

// NewPreviewer creates a previewer holding up to size results.
func NewPreviewer(size int) (*Previewer, error) {
	cache, err := lru.New(size)
	if err != nil {
		return nil, fmt.Errorf("create preview cache: %w", err)
	}
	return &Previewer{cache: cache}, nil
}

// Preview is the cached form of the package-level Preview.
func (p *Previewer) Preview(r Rule, anchor civil.DateTime, horizonMonths, maxCount int) ([]civil.DateTime, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}

	key := fmt.Sprintf("%s|%s|%d|%d", r.String(), anchor.String(), horizonMonths, maxCount)
	if v, ok := p.cache.Get(key); ok {
		return clone(v.([]civil.DateTime)), nil
	}

	starts, err := Preview(r, anchor, horizonMonths, maxCount)
	if err != nil {
		return nil, err
	}
	p.cache.Add(key, clone(starts))
	return starts, nil
}

// Len returns the number of cached previews.
func (p *Previewer) Len() int {
	return p.cache.Len()
}

func clone(in []civil.DateTime) []civil.DateTime {
	if in == nil {
		return nil
	}
	out := make([]civil.DateTime, len(in))
	copy(out, in)
	return out
}
