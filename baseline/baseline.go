// Package baseline provides simple, dependency-free few-shot classifiers
// used to score sampled episodes: a nearest-centroid classifier and a
// k-nearest-neighbor classifier over raw pixel space. They exist so the
// train and eval loops have something measurable to report without an
// accelerator backend; neither learns any parameters across episodes.
package baseline

import (
	"errors"
	"fmt"
	"sort"
)

// ClassSamples holds the flat row-major item buffer of one class of an
// episode. Count items of len(Data)/Count floats each.
type ClassSamples struct {
	Data  []float32
	Count int
}

// Item returns the i-th item of the class.
func (c ClassSamples) Item(i int) []float32 {
	itemSize := len(c.Data) / c.Count
	return c.Data[i*itemSize : (i+1)*itemSize]
}

// Config controls episode evaluation.
type Config struct {
	// Shots is the number of support items taken from the front of each
	// class; the remaining items form the query set.
	Shots int

	// Neighbors selects k-nearest-neighbor classification over the support
	// items when positive; zero (the default) selects nearest-centroid.
	Neighbors int
}

// Result accumulates query classifications.
type Result struct {
	Correct int
	Total   int
}

// Accuracy returns the fraction of correctly classified queries.
func (r Result) Accuracy() float64 {
	if r.Total == 0 {
		return 0
	}
	return float64(r.Correct) / float64(r.Total)
}

// Evaluate scores one episode: for every class, the first cfg.Shots items
// are the support set and the rest are queries, classified against all
// classes' supports. Every class must have the same item size and more than
// cfg.Shots items.
func Evaluate(classes []ClassSamples, cfg Config) (Result, error) {
	var res Result
	if len(classes) == 0 {
		return res, errors.New("no classes to evaluate")
	}
	if cfg.Shots <= 0 {
		return res, fmt.Errorf("shots must be positive, got %d", cfg.Shots)
	}
	itemSize := 0
	for i, c := range classes {
		if c.Count <= 0 || len(c.Data) == 0 || len(c.Data)%c.Count != 0 {
			return res, fmt.Errorf("class %d has inconsistent data: %d floats for %d items", i, len(c.Data), c.Count)
		}
		size := len(c.Data) / c.Count
		if itemSize == 0 {
			itemSize = size
		} else if size != itemSize {
			return res, fmt.Errorf("class %d item size %d differs from class 0 item size %d", i, size, itemSize)
		}
		if c.Count <= cfg.Shots {
			return res, fmt.Errorf("class %d has %d items, need more than %d shots to form a query set", i, c.Count, cfg.Shots)
		}
	}

	var predict func(query []float32) int
	if cfg.Neighbors > 0 {
		predict = knnPredictor(classes, cfg.Shots, cfg.Neighbors)
	} else {
		predict = centroidPredictor(classes, cfg.Shots, itemSize)
	}

	for label, c := range classes {
		for i := cfg.Shots; i < c.Count; i++ {
			if predict(c.Item(i)) == label {
				res.Correct++
			}
			res.Total++
		}
	}
	return res, nil
}

// centroidPredictor builds per-class support centroids and classifies by
// nearest centroid in squared euclidean distance.
func centroidPredictor(classes []ClassSamples, shots, itemSize int) func([]float32) int {
	centroids := make([][]float32, len(classes))
	for label, c := range classes {
		centroid := make([]float32, itemSize)
		for i := 0; i < shots; i++ {
			item := c.Item(i)
			for j, v := range item {
				centroid[j] += v
			}
		}
		inv := 1.0 / float32(shots)
		for j := range centroid {
			centroid[j] *= inv
		}
		centroids[label] = centroid
	}
	return func(query []float32) int {
		best, bestDist := 0, sqDist(query, centroids[0])
		for label := 1; label < len(centroids); label++ {
			if d := sqDist(query, centroids[label]); d < bestDist {
				best, bestDist = label, d
			}
		}
		return best
	}
}

// neighbor is one support item with its class label and distance to the
// current query.
type neighbor struct {
	label int
	dist  float64
}

// knnPredictor classifies by majority vote among the k closest support
// items. Ties break toward the lower label so results are deterministic.
func knnPredictor(classes []ClassSamples, shots, k int) func([]float32) int {
	return func(query []float32) int {
		neighbors := make([]neighbor, 0, len(classes)*shots)
		for label, c := range classes {
			for i := 0; i < shots; i++ {
				neighbors = append(neighbors, neighbor{label: label, dist: sqDist(query, c.Item(i))})
			}
		}
		sort.Slice(neighbors, func(i, j int) bool {
			if neighbors[i].dist != neighbors[j].dist {
				return neighbors[i].dist < neighbors[j].dist
			}
			return neighbors[i].label < neighbors[j].label
		})
		if k > len(neighbors) {
			k = len(neighbors)
		}
		votes := make(map[int]int, k)
		for _, n := range neighbors[:k] {
			votes[n.label]++
		}
		best, bestVotes := -1, 0
		for label := range classes {
			if v := votes[label]; v > bestVotes {
				best, bestVotes = label, v
			}
		}
		return best
	}
}

// sqDist returns the squared euclidean distance between two equal-length
// vectors.
func sqDist(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return sum
}
