package experiment

import (
	"errors"
	"log"
	"math/rand"

	"github.com/Milkigit/meta-blocks/baseline"
	"github.com/Milkigit/meta-blocks/datasets"
)

// Train runs the TRAIN loop in-process: it builds the character collection,
// samples meta-batches from the train split and scores each with the
// baseline classifier, logging a running accuracy. The feed lists produced
// by the sampler are the binding a graph-execution engine would consume; the
// baseline scorer reads the raw character buffers directly.
func Train(cfg *Config) error {
	if cfg.Train == nil {
		return errors.New("train is not configured")
	}
	rng := rand.New(rand.NewSource(cfg.Run.Seed))

	coll, err := datasets.LoadCollection(cfg.Data.Dir, collectionConfig(cfg, true), rng)
	if err != nil {
		return err
	}
	sampler, err := datasets.NewMetaDataset("train", cfg.Sampling.BatchSize, cfg.Sampling.NumClasses, coll.Train, rng)
	if err != nil {
		return err
	}
	scoreCfg := baseline.Config{Shots: cfg.Train.Shots, Neighbors: cfg.Train.Neighbors}

	accs := make([]float64, 0, cfg.Train.Steps)
	var running baseline.Result
	for step := 1; step <= cfg.Train.Steps; step++ {
		requests, feeds, err := sampler.Request(nil, true)
		if err != nil {
			return err
		}
		res, err := scoreRequests(coll.Train, requests, scoreCfg)
		if err != nil {
			return err
		}
		accs = append(accs, res.Accuracy())
		running.Correct += res.Correct
		running.Total += res.Total
		if cfg.Train.LogEvery > 0 && step%cfg.Train.LogEvery == 0 {
			log.Printf("TRAIN step %d/%d: %d episodes, %d feeds, batch accuracy %.4f, running accuracy %.4f",
				step, cfg.Train.Steps, len(requests), len(feeds), res.Accuracy(), running.Accuracy())
		}
	}
	log.Printf("TRAIN done: %d steps, final running accuracy %.4f", cfg.Train.Steps, running.Accuracy())

	if cfg.Train.Plot != "" {
		if err := plotAccuracy(cfg.Train.Plot, accs, "Train episode accuracy"); err != nil {
			return err
		}
		log.Printf("TRAIN accuracy plot written to %s", cfg.Train.Plot)
	}
	return nil
}

// collectionConfig maps the experiment configuration onto the datasets
// package. Rotation augmentation only affects the train split, so loops that
// never touch it skip the extra decoding work.
func collectionConfig(cfg *Config, withRotations bool) datasets.CollectionConfig {
	cc := datasets.CollectionConfig{
		NumTrain:          cfg.Data.NumTrain,
		NumValid:          cfg.Data.NumValid,
		NumTest:           cfg.Data.NumTest,
		MaxCharacterSize:  cfg.Data.MaxCharacterSize,
		ShuffleCharacters: cfg.Data.ShuffleCharacters,
		ShuffleData:       cfg.Data.ShuffleData,
		Verbose:           cfg.Data.Verbose,
	}
	if withRotations {
		cc.Rotations = cfg.Data.Rotations
	}
	return cc
}

// scoreRequests evaluates one meta-batch: every request resolves its class
// indices against the pool and is scored as an independent episode.
func scoreRequests(pool []*datasets.Character, requests [][]int, cfg baseline.Config) (baseline.Result, error) {
	var total baseline.Result
	for _, ids := range requests {
		classes := make([]baseline.ClassSamples, len(ids))
		for k, id := range ids {
			c := pool[id]
			classes[k] = baseline.ClassSamples{Data: c.Data(), Count: c.Size()}
		}
		res, err := baseline.Evaluate(classes, cfg)
		if err != nil {
			return total, err
		}
		total.Correct += res.Correct
		total.Total += res.Total
	}
	return total, nil
}
