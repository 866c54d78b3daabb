// Package datasets provides the data-loading side of few-shot classification
// experiments on the Omniglot handwritten-character dataset.
//
// The pieces, leaf first:
//
//   - Character: the images of one handwritten character class (one
//     directory of PNG files), eagerly decoded, resized and stacked into a
//     single float32 buffer. Identity is directory + rotation angle.
//   - Collection: every character found under a data directory, partitioned
//     into disjoint train/valid/test splits, with optional rotation-augmented
//     copies appended to the train split.
//   - Episode: a fixed number of symbolic per-class input slots plus the
//     binding from concrete per-class tensors to those slots (a feed list).
//   - MetaDataset: a batch of Episodes that, on request, samples class
//     subsets from a character pool and returns the combined feed list.
//
// All randomness is drawn from a *rand.Rand passed in by the caller, so runs
// are reproducible by seeding that generator. Nothing here is safe for
// concurrent use from multiple goroutines.
//
// Expected file-system layout:
//
//	data_dir/<alphabet>/<character*>/*.png
//
// Entries that are not directories, or whose name does not start with
// "character", are skipped.
package datasets

import (
	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/gomlx/gopjrt/dtypes"
)

// Image geometry shared by every character. Raw Omniglot images are 105x105
// single-channel PNGs; they are resized down at load time.
const (
	ImgWidth    = 28
	ImgHeight   = 28
	ImgChannels = 1
)

// ImgDType is the element type of all loaded image data.
const ImgDType = dtypes.Float32

// Slot is a symbolic per-class input of an Episode: a named placeholder for
// a tensor of items with the given per-item dims. The leading sample axis is
// unbound; any number of items may be fed.
type Slot struct {
	Name  string
	DType dtypes.DType
	Dims  []int
}

// Feed binds one concrete tensor to one Slot. A feed list, in slot order, is
// what a downstream graph-execution engine consumes as its input binding.
type Feed struct {
	Slot  *Slot
	Value *tensors.Tensor
}
