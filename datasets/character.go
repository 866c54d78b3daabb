package datasets

import (
	"fmt"
	"image"
	"image/color"
	_ "image/png"
	"math/rand"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
	"github.com/gomlx/gomlx/pkg/core/shapes"
	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/gomlx/gopjrt/dtypes"
)

// CharacterConfig configures how a single character directory is loaded.
type CharacterConfig struct {
	// Name identifies the character, usually "<alphabet>_<character>" and,
	// for rotated copies, with a "_<degrees>" suffix.
	Name string

	// Rotation in degrees applied to every image after resizing. Zero means
	// no rotation.
	Rotation int

	// Shuffle randomizes file order before loading, using the rng passed to
	// LoadCharacter.
	Shuffle bool

	// MaxSize caps the number of files loaded (applied after the optional
	// shuffle). Zero means no cap.
	MaxSize int
}

// Character holds the eagerly loaded images of one Omniglot character class.
// It is built once by LoadCharacter and immutable afterwards.
type Character struct {
	DataDir  string
	Name     string
	Rotation int

	// data is the stacked images, row-major with dims
	// [size, ImgHeight, ImgWidth, ImgChannels].
	data []float32
	size int

	// tensor is materialized lazily by Tensor and reused; the underlying
	// data never changes after the build.
	tensor *tensors.Tensor
}

// LoadCharacter reads every *.png under dataDir, resizes each image to
// ImgWidth x ImgHeight, applies cfg.Rotation, converts to single-channel
// float32 (raw 0..255 pixel values) and stacks them into one buffer.
//
// rng is used only when cfg.Shuffle is set; a nil rng disables shuffling,
// leaving the sorted file order, which together with cfg.MaxSize gives a
// reproducible down-sample.
//
// A missing directory or a directory with no PNG files fails with
// ErrFileSystem; a file that cannot be decoded fails with ErrDecode.
func LoadCharacter(dataDir string, cfg CharacterConfig, rng *rand.Rand) (*Character, error) {
	if _, err := os.Stat(dataDir); err != nil {
		return nil, fmt.Errorf("%w: character directory %s: %v", ErrFileSystem, dataDir, err)
	}
	paths, err := filepath.Glob(filepath.Join(dataDir, "*.png"))
	if err != nil {
		return nil, fmt.Errorf("%w: globbing %s: %v", ErrFileSystem, dataDir, err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: no png files in %s", ErrFileSystem, dataDir)
	}

	if cfg.Shuffle && rng != nil {
		rng.Shuffle(len(paths), func(i, j int) {
			paths[i], paths[j] = paths[j], paths[i]
		})
	}
	if cfg.MaxSize > 0 && len(paths) > cfg.MaxSize {
		paths = paths[:cfg.MaxSize]
	}

	c := &Character{
		DataDir:  dataDir,
		Name:     cfg.Name,
		Rotation: cfg.Rotation,
		size:     len(paths),
		data:     make([]float32, len(paths)*ImgHeight*ImgWidth*ImgChannels),
	}
	itemLen := ImgHeight * ImgWidth * ImgChannels
	for i, p := range paths {
		if err := loadImageInto(p, cfg.Rotation, c.data[i*itemLen:(i+1)*itemLen]); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// loadImageInto decodes one image file, resizes and rotates it, and writes
// the grayscale pixel values into dst (length ImgHeight*ImgWidth).
func loadImageInto(path string, rotation int, dst []float32) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: opening %s: %v", ErrFileSystem, path, err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrDecode, path, err)
	}

	img = imaging.Resize(img, ImgWidth, ImgHeight, imaging.Lanczos)
	if rotation != 0 {
		// Rotation expands the canvas for non-right angles; crop back to the
		// fixed target resolution around the center.
		img = imaging.Rotate(img, float64(rotation), color.NRGBA{A: 255})
		img = imaging.CropCenter(img, ImgWidth, ImgHeight)
	}

	gray := imaging.Grayscale(img)
	for y := 0; y < ImgHeight; y++ {
		for x := 0; x < ImgWidth; x++ {
			// Grayscale output has R==G==B; take the red channel.
			dst[y*ImgWidth+x] = float32(gray.Pix[y*gray.Stride+x*4])
		}
	}
	return nil
}

// Size returns the number of loaded items.
func (c *Character) Size() int { return c.size }

// Data returns the stacked image buffer. The slice is shared, not copied;
// callers must not modify it.
func (c *Character) Data() []float32 { return c.data }

// Item returns the flat pixel data of the i-th image.
func (c *Character) Item(i int) []float32 {
	itemLen := ImgHeight * ImgWidth * ImgChannels
	return c.data[i*itemLen : (i+1)*itemLen]
}

// ItemDims returns the dims of a single item, without the sample axis.
func (c *Character) ItemDims() []int { return []int{ImgHeight, ImgWidth, ImgChannels} }

// DType returns the element type of the loaded data.
func (c *Character) DType() dtypes.DType { return ImgDType }

// NumBytes returns the in-memory footprint of the loaded data.
func (c *Character) NumBytes() int { return len(c.data) * 4 }

// Tensor returns the character's images as one tensor shaped
// [size, ImgHeight, ImgWidth, ImgChannels]. The tensor is built on first use
// and the same instance is returned afterwards.
func (c *Character) Tensor() *tensors.Tensor {
	if c.tensor == nil {
		t := tensors.FromShape(shapes.Make(ImgDType, c.size, ImgHeight, ImgWidth, ImgChannels))
		t.MutableFlatData(func(flat any) {
			copy(flat.([]float32), c.data)
		})
		c.tensor = t
	}
	return c.tensor
}
