package datasets

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math/rand"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

// writePNG writes a 105x105 grayscale PNG at path with a deterministic
// pattern derived from seed. The pattern is asymmetric in x and y so
// rotations change the pixel data.
func writePNG(t *testing.T, path string, seed byte) {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 105, 105))
	for y := 0; y < 105; y++ {
		for x := 0; x < 105; x++ {
			img.SetGray(x, y, color.Gray{Y: uint8((x*3 + y + int(seed)*17) % 256)})
		}
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create png %s: %v", path, err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("failed to encode png %s: %v", path, err)
	}
}

// writeCharacterDir creates a character directory with n PNG files.
func writeCharacterDir(t *testing.T, dir string, n int) {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("failed to create dir %s: %v", dir, err)
	}
	for i := 0; i < n; i++ {
		writePNG(t, filepath.Join(dir, fmt.Sprintf("%04d.png", i)), byte(i))
	}
}

func TestLoadCharacter_CountsAndShape(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "character01")
	writeCharacterDir(t, dir, 4)

	c, err := LoadCharacter(dir, CharacterConfig{Name: "c"}, nil)
	if err != nil {
		t.Fatalf("LoadCharacter failed: %v", err)
	}
	if c.Size() != 4 {
		t.Fatalf("expected 4 items, got %d", c.Size())
	}
	if want := 4 * ImgHeight * ImgWidth * ImgChannels; len(c.Data()) != want {
		t.Fatalf("data length mismatch: got %d expected %d", len(c.Data()), want)
	}
	if !reflect.DeepEqual(c.ItemDims(), []int{ImgHeight, ImgWidth, ImgChannels}) {
		t.Fatalf("unexpected item dims: %v", c.ItemDims())
	}
}

func TestLoadCharacter_MaxSize(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "character01")
	writeCharacterDir(t, dir, 5)

	c, err := LoadCharacter(dir, CharacterConfig{Name: "c", MaxSize: 2}, nil)
	if err != nil {
		t.Fatalf("LoadCharacter failed: %v", err)
	}
	if c.Size() != 2 {
		t.Fatalf("expected 2 items with MaxSize=2, got %d", c.Size())
	}

	// A cap above the file count loads everything.
	c, err = LoadCharacter(dir, CharacterConfig{Name: "c", MaxSize: 10}, nil)
	if err != nil {
		t.Fatalf("LoadCharacter failed: %v", err)
	}
	if c.Size() != 5 {
		t.Fatalf("expected 5 items with MaxSize=10, got %d", c.Size())
	}
}

func TestLoadCharacter_MissingDir(t *testing.T) {
	_, err := LoadCharacter(filepath.Join(t.TempDir(), "nope"), CharacterConfig{}, nil)
	if !errors.Is(err, ErrFileSystem) {
		t.Fatalf("expected ErrFileSystem for missing dir, got %v", err)
	}
}

func TestLoadCharacter_EmptyDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "character01")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir failed: %v", err)
	}
	_, err := LoadCharacter(dir, CharacterConfig{}, nil)
	if !errors.Is(err, ErrFileSystem) {
		t.Fatalf("expected ErrFileSystem for empty dir, got %v", err)
	}
}

func TestLoadCharacter_DecodeError(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "character01")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir failed: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "bad.png"), []byte("not a png"), 0o644); err != nil {
		t.Fatalf("writing bad file failed: %v", err)
	}
	_, err := LoadCharacter(dir, CharacterConfig{}, nil)
	if !errors.Is(err, ErrDecode) {
		t.Fatalf("expected ErrDecode for malformed image, got %v", err)
	}
}

func TestLoadCharacter_RotationChangesData(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "character01")
	writeCharacterDir(t, dir, 3)

	plain, err := LoadCharacter(dir, CharacterConfig{Name: "c"}, nil)
	if err != nil {
		t.Fatalf("LoadCharacter failed: %v", err)
	}
	rotated, err := LoadCharacter(dir, CharacterConfig{Name: "c_90", Rotation: 90}, nil)
	if err != nil {
		t.Fatalf("LoadCharacter with rotation failed: %v", err)
	}
	if rotated.Size() != plain.Size() {
		t.Fatalf("rotation changed item count: %d vs %d", rotated.Size(), plain.Size())
	}
	if reflect.DeepEqual(plain.Data(), rotated.Data()) {
		t.Fatalf("rotated data is numerically identical to the original")
	}
}

func TestLoadCharacter_ShuffleDeterministic(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "character01")
	writeCharacterDir(t, dir, 6)

	a, err := LoadCharacter(dir, CharacterConfig{Shuffle: true}, rand.New(rand.NewSource(7)))
	if err != nil {
		t.Fatalf("LoadCharacter failed: %v", err)
	}
	b, err := LoadCharacter(dir, CharacterConfig{Shuffle: true}, rand.New(rand.NewSource(7)))
	if err != nil {
		t.Fatalf("LoadCharacter failed: %v", err)
	}
	if !reflect.DeepEqual(a.Data(), b.Data()) {
		t.Fatalf("same seed produced different item order")
	}
}

func TestCharacter_Tensor(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "character01")
	writeCharacterDir(t, dir, 2)

	c, err := LoadCharacter(dir, CharacterConfig{Name: "c"}, nil)
	if err != nil {
		t.Fatalf("LoadCharacter failed: %v", err)
	}
	tensor := c.Tensor()
	if err := tensor.Shape().Check(ImgDType, 2, ImgHeight, ImgWidth, ImgChannels); err != nil {
		t.Fatalf("unexpected tensor shape %s: %v", tensor.Shape(), err)
	}
	if c.Tensor() != tensor {
		t.Fatalf("Tensor did not return the cached instance")
	}
}
