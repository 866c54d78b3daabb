package datasets

import (
	"fmt"

	"github.com/gomlx/gomlx/pkg/core/tensors"
)

// Episode is the per-episode dataset of one few-shot classification task: a
// fixed number of classes, each with its own symbolic input slot. The slots
// are allocated once at construction and keep their identity; the binding
// from concrete tensors to slots is recomputed on every FeedList call.
type Episode struct {
	name       string
	numClasses int
	slots      []*Slot
	size       int
}

// NewEpisode allocates one input slot per class index 0..numClasses-1. Slot
// shape and dtype are taken from the first character of the pool; the
// nominal Size assumes all pool characters share that character's item
// count.
func NewEpisode(name string, numClasses int, pool []*Character) (*Episode, error) {
	if numClasses <= 0 {
		return nil, fmt.Errorf("%w: numClasses must be positive, got %d", ErrContract, numClasses)
	}
	if len(pool) == 0 {
		return nil, fmt.Errorf("%w: empty character pool", ErrContract)
	}
	first := pool[0]
	e := &Episode{
		name:       name,
		numClasses: numClasses,
		slots:      make([]*Slot, numClasses),
		size:       numClasses * first.Size(),
	}
	for k := range e.slots {
		e.slots[k] = &Slot{
			Name:  fmt.Sprintf("%s/data_class_%d", name, k),
			DType: first.DType(),
			Dims:  first.ItemDims(),
		}
	}
	return e, nil
}

// Name returns the episode's name.
func (e *Episode) Name() string { return e.name }

// NumClasses returns the number of classes per episode.
func (e *Episode) NumClasses() int { return e.numClasses }

// Slots returns the episode's input slots, one per class, in class order.
func (e *Episode) Slots() []*Slot { return e.slots }

// Size returns the nominal item count of the episode: numClasses times the
// item count of the pool's first character.
func (e *Episode) Size() int { return e.size }

// FeedList pairs the given tensors with the episode's slots in order. There
// must be exactly one tensor per slot; a count mismatch fails with
// ErrContract and leaves no state behind.
func (e *Episode) FeedList(values []*tensors.Tensor) ([]Feed, error) {
	if len(values) != len(e.slots) {
		return nil, fmt.Errorf("%w: episode %s has %d slots but %d tensors were supplied",
			ErrContract, e.name, len(e.slots), len(values))
	}
	feeds := make([]Feed, len(values))
	for i, v := range values {
		feeds[i] = Feed{Slot: e.slots[i], Value: v}
	}
	return feeds, nil
}
