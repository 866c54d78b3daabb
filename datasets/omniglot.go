package datasets

import (
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/schollz/progressbar/v3"
)

// characterDirPrefix is the naming convention for character sub-directories
// inside an alphabet directory; anything else is skipped.
const characterDirPrefix = "character"

// CollectionConfig configures LoadCollection.
type CollectionConfig struct {
	// NumTrain, NumValid and NumTest are the split sizes, in characters.
	// Their sum must not exceed the number of characters found.
	NumTrain int
	NumValid int
	NumTest  int

	// MaxCharacterSize caps the images loaded per character. Zero = no cap.
	MaxCharacterSize int

	// Rotations lists angles in degrees; for each angle every train
	// character is re-loaded from disk with that rotation and appended to
	// the train split as an independent new character.
	Rotations []int

	// ShuffleCharacters randomizes the character list before partitioning.
	ShuffleCharacters bool

	// ShuffleData randomizes file order inside each character.
	ShuffleData bool

	// Verbose enables a progress bar during the (eager, potentially long)
	// build and a summary log line at the end.
	Verbose bool
}

// Collection is the full character pool partitioned into three pairwise
// disjoint splits. Built once per experiment run.
type Collection struct {
	Train []*Character
	Valid []*Character
	Test  []*Character
}

// LoadCollection walks dataDir two levels deep (alphabets, then character
// directories), loads every character eagerly and partitions the list into
// train/valid/test by position: train takes the first NumTrain characters,
// valid the next NumValid, and test the trailing NumTest of the full list.
// Because the split sizes may not sum to the total this leaves a gap of
// unused characters, never an overlap.
//
// Any character failing to load aborts the whole build.
func LoadCollection(dataDir string, cfg CollectionConfig, rng *rand.Rand) (*Collection, error) {
	charDirs, err := findCharacterDirs(dataDir)
	if err != nil {
		return nil, err
	}
	total := cfg.NumTrain + cfg.NumValid + cfg.NumTest
	if total > len(charDirs) {
		return nil, fmt.Errorf("%w: splits need %d characters (%d train + %d valid + %d test) but only %d found under %s",
			ErrContract, total, cfg.NumTrain, cfg.NumValid, cfg.NumTest, len(charDirs), dataDir)
	}

	var bar *progressbar.ProgressBar
	if cfg.Verbose {
		bar = progressbar.Default(int64(len(charDirs)), "Loading characters")
	}

	characters := make([]*Character, 0, len(charDirs))
	numBytes := 0
	for _, cd := range charDirs {
		c, err := LoadCharacter(cd.dir, CharacterConfig{
			Name:    cd.name,
			Shuffle: cfg.ShuffleData,
			MaxSize: cfg.MaxCharacterSize,
		}, rng)
		if err != nil {
			return nil, errors.WithMessagef(err, "building character %q", cd.name)
		}
		characters = append(characters, c)
		numBytes += c.NumBytes()
		if bar != nil {
			_ = bar.Add(1)
		}
	}
	if bar != nil {
		_ = bar.Finish()
	}

	if cfg.ShuffleCharacters && rng != nil {
		rng.Shuffle(len(characters), func(i, j int) {
			characters[i], characters[j] = characters[j], characters[i]
		})
	}

	coll := &Collection{
		// Full slice expression: appending rotated copies to Train must not
		// clobber the valid split sharing the backing array.
		Train: characters[:cfg.NumTrain:cfg.NumTrain],
		Valid: characters[cfg.NumTrain : cfg.NumTrain+cfg.NumValid],
		Test:  characters[len(characters)-cfg.NumTest:],
	}

	// Expand the train split with rotated copies. Each copy is re-decoded
	// from the character's directory with the rotation applied, so its data
	// is independent of the unrotated original.
	for _, rot := range cfg.Rotations {
		for _, base := range characters[:cfg.NumTrain] {
			rc, err := LoadCharacter(base.DataDir, CharacterConfig{
				Name:     fmt.Sprintf("%s_%d", base.Name, rot),
				Rotation: rot,
				Shuffle:  cfg.ShuffleData,
				MaxSize:  cfg.MaxCharacterSize,
			}, rng)
			if err != nil {
				return nil, errors.WithMessagef(err, "building rotated character %q", base.Name)
			}
			coll.Train = append(coll.Train, rc)
			numBytes += rc.NumBytes()
		}
	}

	if cfg.Verbose {
		log.Printf("loaded %d characters (%d train / %d valid / %d test), %s in memory",
			len(coll.Train)+len(coll.Valid)+len(coll.Test),
			len(coll.Train), len(coll.Valid), len(coll.Test), humanize.Bytes(uint64(numBytes)))
	}
	return coll, nil
}

// characterDir is one character directory found during the walk, with its
// sanitized composite name.
type characterDir struct {
	dir  string
	name string
}

// findCharacterDirs enumerates alphabet directories under dataDir and the
// character directories inside them, in sorted order. Non-directories and
// directories not matching the naming convention are skipped silently.
func findCharacterDirs(dataDir string) ([]characterDir, error) {
	alphabets, err := os.ReadDir(dataDir)
	if err != nil {
		return nil, fmt.Errorf("%w: reading data directory %s: %v", ErrFileSystem, dataDir, err)
	}
	var out []characterDir
	for _, alphabet := range alphabets {
		if !alphabet.IsDir() {
			continue
		}
		alphabetDir := filepath.Join(dataDir, alphabet.Name())
		entries, err := os.ReadDir(alphabetDir)
		if err != nil {
			return nil, fmt.Errorf("%w: reading alphabet directory %s: %v", ErrFileSystem, alphabetDir, err)
		}
		for _, entry := range entries {
			if !entry.IsDir() || !strings.HasPrefix(entry.Name(), characterDirPrefix) {
				continue
			}
			name := sanitizeName(alphabet.Name() + "_" + entry.Name())
			out = append(out, characterDir{
				dir:  filepath.Join(alphabetDir, entry.Name()),
				name: name,
			})
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no character directories under %s", ErrFileSystem, dataDir)
	}
	return out, nil
}

// sanitizeName strips parenthesis characters from a composite name. Some
// Omniglot alphabet directories carry names like "Japanese_(hiragana)".
func sanitizeName(name string) string {
	name = strings.ReplaceAll(name, "(", "")
	return strings.ReplaceAll(name, ")", "")
}
