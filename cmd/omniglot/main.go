// Command omniglot runs few-shot Omniglot experiments.
//
// By default it launches evaluation and training as two child processes of
// itself (mirroring the configuration: a nil "eval" or "train" section skips
// that process) and joins them with the configured timeout. With -mode train
// or -mode eval it runs the corresponding loop in-process instead; that is
// also how the child processes are invoked.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"strconv"

	"github.com/Milkigit/meta-blocks/experiment"
)

var (
	flagConfig  = flag.String("config", "", "path to a JSON configuration file; defaults apply when empty")
	flagMode    = flag.String("mode", "run", "run, train or eval; run launches train and eval as child processes")
	flagData    = flag.String("data", "", "override the data directory from the configuration")
	flagSeed    = flag.Int64("seed", 0, "override the run seed (when nonzero)")
	flagTimeout = flag.Int("timeout", 0, "override the run timeout in seconds (when nonzero)")
)

func main() {
	flag.Parse()

	cfg, err := experiment.LoadConfig(*flagConfig)
	if err != nil {
		log.Fatalf("loading configuration: %v", err)
	}
	if *flagData != "" {
		cfg.Data.Dir = *flagData
	}
	if *flagSeed != 0 {
		cfg.Run.Seed = *flagSeed
	}
	if *flagTimeout != 0 {
		cfg.Run.TimeoutSeconds = *flagTimeout
	}

	switch *flagMode {
	case "train":
		if err := experiment.Train(cfg); err != nil {
			log.Fatalf("TRAIN failed: %v", err)
		}
	case "eval":
		if err := experiment.Eval(cfg); err != nil {
			log.Fatalf("EVAL failed: %v", err)
		}
	case "run":
		if err := run(cfg); err != nil {
			log.Fatalf("run failed: %v", err)
		}
	default:
		log.Fatalf("unknown mode %q (want run, train or eval)", *flagMode)
	}
}

// run launches the EVAL and TRAIN loops as child processes of this binary
// and joins them with the configured timeout.
func run(cfg *experiment.Config) error {
	self, err := os.Executable()
	if err != nil {
		return err
	}
	ctx := context.Background()

	var tasks []*experiment.Task
	if cfg.Eval != nil {
		log.Printf("starting EVAL...")
		t, err := experiment.StartTask(ctx, "EVAL", self, childArgs("eval")...)
		if err != nil {
			return err
		}
		tasks = append(tasks, t)
	}
	if cfg.Train != nil {
		log.Printf("starting TRAIN...")
		t, err := experiment.StartTask(ctx, "TRAIN", self, childArgs("train")...)
		if err != nil {
			return err
		}
		tasks = append(tasks, t)
	}
	if len(tasks) == 0 {
		return errors.New("nothing to run: both train and eval are disabled in the configuration")
	}

	failed := false
	for name, err := range experiment.JoinAll(tasks, cfg.Timeout()) {
		if err != nil {
			log.Printf("%s: %v", name, err)
			failed = true
			continue
		}
		log.Printf("%s: finished", name)
	}
	if failed {
		return errors.New("one or more tasks failed")
	}
	return nil
}

// childArgs rebuilds the flag overrides so child processes see the same
// effective configuration as the parent.
func childArgs(mode string) []string {
	args := []string{"-mode", mode}
	if *flagConfig != "" {
		args = append(args, "-config", *flagConfig)
	}
	if *flagData != "" {
		args = append(args, "-data", *flagData)
	}
	if *flagSeed != 0 {
		args = append(args, "-seed", strconv.FormatInt(*flagSeed, 10))
	}
	return args
}
