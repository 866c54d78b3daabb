package datasets

import (
	"fmt"
	"math/rand"

	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/gomlx/gomlx/pkg/ml/train"
	"github.com/pkg/errors"
)

// MetaDataset samples episodes (few-shot classification tasks) from a pool
// of characters. It owns a fixed meta-batch of Episodes, built once at
// construction and reused for every request; only the class selection and
// the feed binding change between requests.
type MetaDataset struct {
	name       string
	batchSize  int
	numClasses int
	sources    []*Character
	episodes   []*Episode
	rng        *rand.Rand
}

// The sampler doubles as a gomlx training dataset.
var _ train.Dataset = &MetaDataset{}

// NewMetaDataset builds the meta-batch of episodes over the given character
// pool. rng drives all request generation; seed it for reproducible
// sampling.
func NewMetaDataset(name string, batchSize, numClasses int, sources []*Character, rng *rand.Rand) (*MetaDataset, error) {
	if batchSize <= 0 {
		return nil, fmt.Errorf("%w: batchSize must be positive, got %d", ErrContract, batchSize)
	}
	if rng == nil {
		return nil, fmt.Errorf("%w: nil random source", ErrContract)
	}
	m := &MetaDataset{
		name:       name,
		batchSize:  batchSize,
		numClasses: numClasses,
		sources:    sources,
		episodes:   make([]*Episode, batchSize),
		rng:        rng,
	}
	for i := range m.episodes {
		ep, err := NewEpisode(fmt.Sprintf("Dataset%d", i), numClasses, sources)
		if err != nil {
			return nil, errors.WithMessagef(err, "building episode %d of meta-dataset %s", i, name)
		}
		m.episodes[i] = ep
	}
	return m, nil
}

// BatchSize returns the number of episodes per meta-batch.
func (m *MetaDataset) BatchSize() int { return m.batchSize }

// NumClasses returns the number of classes per episode.
func (m *MetaDataset) NumClasses() int { return m.numClasses }

// Episodes returns the meta-batch of per-episode datasets.
func (m *MetaDataset) Episodes() []*Episode { return m.episodes }

// Request resolves a batch of episode requests into one combined feed list.
//
// If requests is nil, a fresh batch is generated: batchSize requests of
// numClasses class indices each, drawn without replacement when
// uniqueClasses is set, with replacement otherwise. A supplied requests
// batch must have exactly batchSize entries and in-range indices.
//
// It returns the requests used (generated or supplied) together with the
// concatenation, in episode order, of every episode's feed list. A failed
// request does not corrupt the sampler; subsequent calls remain valid.
func (m *MetaDataset) Request(requests [][]int, uniqueClasses bool) ([][]int, []Feed, error) {
	if requests == nil {
		var err error
		requests, err = m.generateRequests(uniqueClasses)
		if err != nil {
			return nil, nil, err
		}
	} else if len(requests) != m.batchSize {
		return nil, nil, fmt.Errorf("%w: number of requests (%d) does not match the meta batch size (%d)",
			ErrContract, len(requests), m.batchSize)
	}

	feeds := make([]Feed, 0, m.batchSize*m.numClasses)
	for n, ids := range requests {
		values := make([]*tensors.Tensor, 0, len(ids))
		for _, id := range ids {
			if id < 0 || id >= len(m.sources) {
				return nil, nil, fmt.Errorf("%w: request %d: class index %d out of range [0, %d)",
					ErrContract, n, id, len(m.sources))
			}
			values = append(values, m.sources[id].Tensor())
		}
		epFeeds, err := m.episodes[n].FeedList(values)
		if err != nil {
			return nil, nil, err
		}
		feeds = append(feeds, epFeeds...)
	}
	return requests, feeds, nil
}

// generateRequests draws batchSize independent episode requests from the
// source pool.
func (m *MetaDataset) generateRequests(uniqueClasses bool) ([][]int, error) {
	if uniqueClasses && m.numClasses > len(m.sources) {
		return nil, fmt.Errorf("%w: cannot draw %d unique classes from a pool of %d",
			ErrContract, m.numClasses, len(m.sources))
	}
	requests := make([][]int, m.batchSize)
	for n := range requests {
		ids := make([]int, m.numClasses)
		if uniqueClasses {
			copy(ids, m.rng.Perm(len(m.sources)))
		} else {
			for k := range ids {
				ids[k] = m.rng.Intn(len(m.sources))
			}
		}
		requests[n] = ids
	}
	return requests, nil
}

// Name implements train.Dataset.
func (m *MetaDataset) Name() string { return m.name }

// Yield implements train.Dataset. Each call samples a fresh meta-batch with
// unique classes per episode: inputs are the feed tensors in episode order
// (numClasses tensors per episode), labels are one class-index tensor per
// episode. spec is the MetaDataset itself.
func (m *MetaDataset) Yield() (spec any, inputs, labels []*tensors.Tensor, err error) {
	requests, feeds, err := m.Request(nil, true)
	if err != nil {
		return nil, nil, nil, err
	}
	spec = m
	inputs = make([]*tensors.Tensor, len(feeds))
	for i, f := range feeds {
		inputs[i] = f.Value
	}
	labels = make([]*tensors.Tensor, len(requests))
	for n, ids := range requests {
		labels[n] = tensors.FromValue(ids)
	}
	return spec, inputs, labels, nil
}

// Reset implements train.Dataset. Sampling draws fresh randomness on every
// call, so there is nothing to rewind.
func (m *MetaDataset) Reset() {}
