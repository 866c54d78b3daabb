package experiment

import (
	"errors"
	"fmt"
	"log"
	"math"
	"math/rand"

	"github.com/Milkigit/meta-blocks/baseline"
	"github.com/Milkigit/meta-blocks/datasets"
)

// Eval runs the EVAL loop in-process: it samples the configured number of
// meta-batches from the chosen split and reports mean and standard deviation
// of the episode accuracy.
func Eval(cfg *Config) error {
	if cfg.Eval == nil {
		return errors.New("eval is not configured")
	}
	rng := rand.New(rand.NewSource(cfg.Run.Seed))

	withRotations := cfg.Eval.Split == "train"
	coll, err := datasets.LoadCollection(cfg.Data.Dir, collectionConfig(cfg, withRotations), rng)
	if err != nil {
		return err
	}
	pool, err := splitPool(coll, cfg.Eval.Split)
	if err != nil {
		return err
	}
	sampler, err := datasets.NewMetaDataset("eval-"+cfg.Eval.Split, cfg.Sampling.BatchSize, cfg.Sampling.NumClasses, pool, rng)
	if err != nil {
		return err
	}
	scoreCfg := baseline.Config{Shots: cfg.Eval.Shots, Neighbors: cfg.Eval.Neighbors}

	accs := make([]float64, 0, cfg.Eval.Episodes)
	for i := 0; i < cfg.Eval.Episodes; i++ {
		requests, _, err := sampler.Request(nil, true)
		if err != nil {
			return err
		}
		res, err := scoreRequests(pool, requests, scoreCfg)
		if err != nil {
			return err
		}
		accs = append(accs, res.Accuracy())
	}

	mean, std := meanStd(accs)
	log.Printf("EVAL %s: %d meta-batches of %d episodes, accuracy %.4f +/- %.4f",
		cfg.Eval.Split, cfg.Eval.Episodes, cfg.Sampling.BatchSize, mean, std)

	if cfg.Eval.Plot != "" {
		if err := plotAccuracy(cfg.Eval.Plot, accs, "Eval episode accuracy ("+cfg.Eval.Split+")"); err != nil {
			return err
		}
		log.Printf("EVAL accuracy plot written to %s", cfg.Eval.Plot)
	}
	return nil
}

// splitPool selects the character pool for the named split.
func splitPool(coll *datasets.Collection, split string) ([]*datasets.Character, error) {
	switch split {
	case "train":
		return coll.Train, nil
	case "valid":
		return coll.Valid, nil
	case "test":
		return coll.Test, nil
	}
	return nil, fmt.Errorf("unknown split %q (want train, valid or test)", split)
}

// meanStd returns the mean and population standard deviation of xs.
func meanStd(xs []float64) (mean, std float64) {
	if len(xs) == 0 {
		return 0, 0
	}
	for _, x := range xs {
		mean += x
	}
	mean /= float64(len(xs))
	for _, x := range xs {
		std += (x - mean) * (x - mean)
	}
	std = math.Sqrt(std / float64(len(xs)))
	return mean, std
}
