package datasets

import (
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

// writeAlphabetTree creates numAlphabets alphabet directories with
// charsPerAlphabet character directories each, imagesPerChar PNGs per
// character. It also drops a stray file and a non-matching directory that
// the walker must skip.
func writeAlphabetTree(t *testing.T, root string, numAlphabets, charsPerAlphabet, imagesPerChar int) {
	t.Helper()
	for a := 0; a < numAlphabets; a++ {
		alphabetDir := filepath.Join(root, fmt.Sprintf("alpha%02d", a))
		for c := 0; c < charsPerAlphabet; c++ {
			writeCharacterDir(t, filepath.Join(alphabetDir, fmt.Sprintf("character%02d", c)), imagesPerChar)
		}
		if err := os.MkdirAll(filepath.Join(alphabetDir, "extras"), 0o755); err != nil {
			t.Fatalf("mkdir failed: %v", err)
		}
	}
	if err := os.WriteFile(filepath.Join(root, "README.txt"), []byte("not an alphabet"), 0o644); err != nil {
		t.Fatalf("writing stray file failed: %v", err)
	}
}

func TestLoadCollection_SplitSizesAndDisjoint(t *testing.T) {
	root := t.TempDir()
	writeAlphabetTree(t, root, 3, 4, 3) // 12 characters

	cfg := CollectionConfig{NumTrain: 5, NumValid: 3, NumTest: 2, ShuffleCharacters: true}
	coll, err := LoadCollection(root, cfg, rand.New(rand.NewSource(1)))
	if err != nil {
		t.Fatalf("LoadCollection failed: %v", err)
	}
	if len(coll.Train) != 5 || len(coll.Valid) != 3 || len(coll.Test) != 2 {
		t.Fatalf("split sizes mismatch: train=%d valid=%d test=%d", len(coll.Train), len(coll.Valid), len(coll.Test))
	}

	seen := make(map[*Character]string)
	for split, chars := range map[string][]*Character{"train": coll.Train, "valid": coll.Valid, "test": coll.Test} {
		for _, c := range chars {
			if prev, ok := seen[c]; ok {
				t.Fatalf("character %q appears in both %s and %s", c.Name, prev, split)
			}
			seen[c] = split
		}
	}
}

func TestLoadCollection_ExactSumCoversEveryCharacter(t *testing.T) {
	root := t.TempDir()
	writeAlphabetTree(t, root, 2, 6, 3) // 12 characters

	cfg := CollectionConfig{NumTrain: 6, NumValid: 3, NumTest: 3, ShuffleCharacters: true}
	coll, err := LoadCollection(root, cfg, rand.New(rand.NewSource(2)))
	if err != nil {
		t.Fatalf("LoadCollection failed: %v", err)
	}
	names := make(map[string]int)
	for _, chars := range [][]*Character{coll.Train, coll.Valid, coll.Test} {
		for _, c := range chars {
			names[c.Name]++
		}
	}
	if len(names) != 12 {
		t.Fatalf("expected all 12 characters across splits, got %d", len(names))
	}
	for name, n := range names {
		if n != 1 {
			t.Fatalf("character %q appears in %d splits", name, n)
		}
	}
}

func TestLoadCollection_CountsExceedTotal(t *testing.T) {
	root := t.TempDir()
	writeAlphabetTree(t, root, 1, 4, 2) // 4 characters

	cfg := CollectionConfig{NumTrain: 3, NumValid: 1, NumTest: 1}
	_, err := LoadCollection(root, cfg, nil)
	if !errors.Is(err, ErrContract) {
		t.Fatalf("expected ErrContract when splits exceed the pool, got %v", err)
	}
}

func TestLoadCollection_Rotations(t *testing.T) {
	root := t.TempDir()
	writeAlphabetTree(t, root, 1, 4, 3)

	cfg := CollectionConfig{NumTrain: 2, NumValid: 1, NumTest: 1, Rotations: []int{90, 180}}
	coll, err := LoadCollection(root, cfg, nil)
	if err != nil {
		t.Fatalf("LoadCollection failed: %v", err)
	}
	// Two originals, each with two rotated copies appended.
	if len(coll.Train) != 6 {
		t.Fatalf("expected 6 train characters with two rotations, got %d", len(coll.Train))
	}
	// Valid/test splits are untouched by augmentation.
	if len(coll.Valid) != 1 || len(coll.Test) != 1 {
		t.Fatalf("rotation augmentation leaked into valid/test: valid=%d test=%d", len(coll.Valid), len(coll.Test))
	}
	for _, rc := range coll.Train[2:] {
		if !strings.HasSuffix(rc.Name, "_90") && !strings.HasSuffix(rc.Name, "_180") {
			t.Fatalf("rotated character has unexpected name %q", rc.Name)
		}
		for _, base := range coll.Train[:2] {
			if base.DataDir == rc.DataDir && reflect.DeepEqual(base.Data(), rc.Data()) {
				t.Fatalf("rotated copy of %q is numerically identical to the original", base.Name)
			}
		}
	}
}

func TestLoadCollection_SanitizesNames(t *testing.T) {
	root := t.TempDir()
	writeCharacterDir(t, filepath.Join(root, "Japanese_(hiragana)", "character01"), 2)

	coll, err := LoadCollection(root, CollectionConfig{NumTrain: 1}, nil)
	if err != nil {
		t.Fatalf("LoadCollection failed: %v", err)
	}
	if got, want := coll.Train[0].Name, "Japanese_hiragana_character01"; got != want {
		t.Fatalf("sanitized name mismatch: got %q want %q", got, want)
	}
}

func TestLoadCollection_SkipsNonMatchingEntries(t *testing.T) {
	root := t.TempDir()
	writeAlphabetTree(t, root, 2, 3, 2) // 6 matching characters plus strays

	coll, err := LoadCollection(root, CollectionConfig{NumTrain: 4, NumValid: 1, NumTest: 1}, nil)
	if err != nil {
		t.Fatalf("LoadCollection failed: %v", err)
	}
	if total := len(coll.Train) + len(coll.Valid) + len(coll.Test); total != 6 {
		t.Fatalf("expected exactly 6 characters, got %d", total)
	}
}

func TestLoadCollection_ChildFailureAborts(t *testing.T) {
	root := t.TempDir()
	writeAlphabetTree(t, root, 1, 3, 2)
	// An empty character directory makes its build fail, which must abort
	// the whole collection.
	if err := os.MkdirAll(filepath.Join(root, "alpha00", "character99"), 0o755); err != nil {
		t.Fatalf("mkdir failed: %v", err)
	}

	_, err := LoadCollection(root, CollectionConfig{NumTrain: 2, NumValid: 1, NumTest: 1}, nil)
	if !errors.Is(err, ErrFileSystem) {
		t.Fatalf("expected ErrFileSystem from failing child build, got %v", err)
	}
}

func TestLoadCollection_StableOrderWithoutShuffle(t *testing.T) {
	root := t.TempDir()
	writeAlphabetTree(t, root, 2, 2, 2)

	a, err := LoadCollection(root, CollectionConfig{NumTrain: 2, NumValid: 1, NumTest: 1}, nil)
	if err != nil {
		t.Fatalf("LoadCollection failed: %v", err)
	}
	b, err := LoadCollection(root, CollectionConfig{NumTrain: 2, NumValid: 1, NumTest: 1}, nil)
	if err != nil {
		t.Fatalf("LoadCollection failed: %v", err)
	}
	for i := range a.Train {
		if a.Train[i].Name != b.Train[i].Name {
			t.Fatalf("unshuffled order differs at %d: %q vs %q", i, a.Train[i].Name, b.Train[i].Name)
		}
	}
}
