package analyzer

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"
)

// DefaultLabels names the five color classes in class ID order.
var DefaultLabels = []string{"dark", "bright", "red", "green", "blue"}

type Result struct {
	Label       string  `json:"label"`
	Probability float64 `json:"probability"`
	ClassID     int     `json:"classId"`
}

// Analyzer is a small stand-in for a real model: it scores an image against
// five color classes from the mean color of a thumbnail.
type Analyzer struct {
	logger        *zap.Logger
	labels        []string
	thumbnailSize int
}

func NewAnalyzer(logger *zap.Logger, labels []string, thumbnailSize int) (*Analyzer, error) {
	if len(labels) != len(DefaultLabels) {
		return nil, fmt.Errorf("expected %d labels, got %d", len(DefaultLabels), len(labels))
	}
	if thumbnailSize <= 0 {
		thumbnailSize = 32
	}
	return &Analyzer{logger: logger, labels: labels, thumbnailSize: thumbnailSize}, nil
}

// LoadLabels reads the label names from modelDir/labelsFile. A missing file
// means the default names; a missing modelDir is an error.
func LoadLabels(modelDir, labelsFile string) ([]string, error) {
	info, err := os.Stat(modelDir)
	if err != nil {
		return nil, fmt.Errorf("model not found: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("model not found: %s is not a directory", modelDir)
	}

	data, err := os.ReadFile(filepath.Join(modelDir, labelsFile))
	if errors.Is(err, fs.ErrNotExist) {
		return DefaultLabels, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read labels: %w", err)
	}

	var labels []string
	if err := json.Unmarshal(data, &labels); err != nil {
		return nil, fmt.Errorf("failed to parse labels: %w", err)
	}
	return labels, nil
}

func (a *Analyzer) Analyze(imagePath string) (*Result, error) {
	src, err := imaging.Open(imagePath)
	if err != nil {
		a.logger.Error("Failed to open image",
			zap.String("path", imagePath),
			zap.Error(err),
		)
		return nil, fmt.Errorf("failed to open image: %w", err)
	}

	thumb := imaging.Resize(src, a.thumbnailSize, a.thumbnailSize, imaging.Box)

	var sumR, sumG, sumB float64
	pixels := 0
	for i := 0; i+3 < len(thumb.Pix); i += 4 {
		sumR += float64(thumb.Pix[i])
		sumG += float64(thumb.Pix[i+1])
		sumB += float64(thumb.Pix[i+2])
		pixels++
	}
	if pixels == 0 {
		return nil, errors.New("image has no pixels")
	}

	r := sumR / float64(pixels) / 255
	g := sumG / float64(pixels) / 255
	b := sumB / float64(pixels) / 255

	a.logger.Debug("Mean color",
		zap.Float64("r", r),
		zap.Float64("g", g),
		zap.Float64("b", b),
	)

	scores := colorScores(r, g, b)
	best, total := 0, 0.0
	for i, s := range scores {
		total += s
		if s > scores[best] {
			best = i
		}
	}

	return &Result{
		Label:       a.labels[best],
		Probability: scores[best] / total,
		ClassID:     best,
	}, nil
}

// colorScores returns non-negative scores in DefaultLabels order. dark and
// bright always sum to 1, so the total is never zero.
func colorScores(r, g, b float64) []float64 {
	lum := 0.299*r + 0.587*g + 0.114*b
	return []float64{
		1 - lum,
		lum,
		max(0, r-(g+b)/2),
		max(0, g-(r+b)/2),
		max(0, b-(r+g)/2),
	}
}
