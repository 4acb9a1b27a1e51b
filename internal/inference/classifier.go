package inference

import (
	"context"
	"fmt"
	"math"

	"github.com/Brownie44l1/image-validator/internal/model"
	log "github.com/sirupsen/logrus"
)

// Prediction is the top-1 label, its probability and the full distribution
// in label order.
type Prediction struct {
	Label string    `json:"label"`
	Score float64   `json:"score"`
	Probs []float64 `json:"probs"`
}

// ModelProvider hands out the network to run. *model.Loader implements it.
type ModelProvider interface {
	Get(ctx context.Context) (model.Network, error)
}

type Classifier struct {
	models ModelProvider
	arch   model.Architecture
}

func NewClassifier(models ModelProvider) *Classifier {
	return &Classifier{
		models: models,
		arch:   model.MobileNet,
	}
}

// Classify decodes data, runs it through the network and returns the
// prediction. Errors carry a model.Kind.
func (c *Classifier) Classify(ctx context.Context, data []byte) (Prediction, error) {
	net, err := c.models.Get(ctx)
	if err != nil {
		return Prediction{}, err
	}

	img, format, err := Decode(data)
	if err != nil {
		return Prediction{}, err
	}
	log.Debugf("[Classify] Image format: %s, dimensions: %dx%d", format, img.Bounds().Dx(), img.Bounds().Dy())

	logits, err := net.Forward(Preprocess(img, c.arch.ImageSize))
	if err != nil {
		return Prediction{}, fmt.Errorf("forward pass: %w", err)
	}
	if len(logits) != len(c.arch.Classes) {
		return Prediction{}, &model.Error{Kind: model.KindModelIncompatibility, Op: "forward pass",
			Err: fmt.Errorf("%w: %d logits for %d classes", model.ErrModelIncompatible, len(logits), len(c.arch.Classes))}
	}

	probs := Softmax(logits)
	idx := Argmax(probs)
	return Prediction{
		Label: c.arch.Classes[idx],
		Score: probs[idx],
		Probs: probs,
	}, nil
}

// Softmax normalizes logits into a probability distribution.
func Softmax(logits []float32) []float64 {
	if len(logits) == 0 {
		return nil
	}
	peak := float64(logits[0])
	for _, v := range logits[1:] {
		if float64(v) > peak {
			peak = float64(v)
		}
	}

	probs := make([]float64, len(logits))
	var sum float64
	for i, v := range logits {
		probs[i] = math.Exp(float64(v) - peak)
		sum += probs[i]
	}
	for i := range probs {
		probs[i] /= sum
	}
	return probs
}

// Argmax returns the index of the largest value, the first one on ties.
func Argmax(values []float64) int {
	best := 0
	for i, v := range values {
		if v > values[best] {
			best = i
		}
	}
	return best
}
