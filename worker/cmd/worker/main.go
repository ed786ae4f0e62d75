package main

import (
	"encoding/json"
	"fmt"
	"os"

	"go.uber.org/zap"

	"imageClassifier/worker/analyzer"
	"imageClassifier/worker/config"
)

// Reference worker for the classify service:
//
//	worker <imagePath> <modelDir>
//
// On success it prints one JSON result to stdout and exits 0. Any failure is
// reported on stderr with exit code 1.
func main() {
	if len(os.Args) != 3 {
		fmt.Fprintf(os.Stderr, "usage: %s <imagePath> <modelDir>\n", os.Args[0])
		os.Exit(2)
	}

	cfg := config.Load()

	logger := zap.NewNop()
	if cfg.Verbose {
		if l, err := zap.NewDevelopment(); err == nil {
			logger = l
		}
	}
	defer logger.Sync()

	if err := run(cfg, logger, os.Args[1], os.Args[2]); err != nil {
		fmt.Fprint(os.Stderr, err.Error())
		logger.Sync()
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *zap.Logger, imagePath, modelDir string) error {
	labels, err := analyzer.LoadLabels(modelDir, cfg.LabelsFile)
	if err != nil {
		return err
	}

	a, err := analyzer.NewAnalyzer(logger, labels, cfg.ThumbnailSize)
	if err != nil {
		return err
	}

	res, err := a.Analyze(imagePath)
	if err != nil {
		return err
	}

	logger.Info("Classified",
		zap.String("image", imagePath),
		zap.String("label", res.Label),
		zap.Float64("probability", res.Probability),
	)

	return json.NewEncoder(os.Stdout).Encode(res)
}
