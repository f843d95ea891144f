package recognizer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"carecount/internal"
	"carecount/internal/config"
	"carecount/internal/pipeline"
)

// Chain runs recognizer stages in priority order, normalizing each stage's
// output and short-circuiting on the first usable name. When every stage
// exhausts, it returns the Unknown sentinel together with a
// RecognitionError carrying the per-stage failures.
type Chain struct {
	stages []Stage
	norm   *pipeline.Normalizer
}

func NewChain(stages []Stage, norm *pipeline.Normalizer) *Chain {
	return &Chain{stages: stages, norm: norm}
}

// BuildChain assembles the stages named in cfg.RecognizerChain. Stages whose
// provider is not configured are skipped rather than failing the whole
// chain; at least one stage must remain.
func BuildChain(cfg config.Config, norm *pipeline.Normalizer) (*Chain, error) {
	var chat *ChatClient
	chatFor := func() (*ChatClient, error) {
		if chat != nil {
			return chat, nil
		}
		c, err := NewChatClient(cfg)
		if err != nil {
			return nil, err
		}
		chat = c
		return chat, nil
	}

	stages := []Stage{}
	for _, name := range strings.Split(cfg.RecognizerChain, ",") {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "model":
			c, err := chatFor()
			if err != nil {
				continue
			}
			stages = append(stages, modelStage{client: c})
		case "ocr":
			s, err := NewOCRStage(cfg)
			if err != nil {
				continue
			}
			stages = append(stages, s)
		case "caption":
			c, err := chatFor()
			if err != nil {
				continue
			}
			stages = append(stages, captionStage{client: c})
		case "label":
			c, err := chatFor()
			if err != nil {
				continue
			}
			stages = append(stages, labelStage{client: c})
		case "":
		default:
			return nil, fmt.Errorf("unknown recognizer stage: %s", name)
		}
	}

	if len(stages) == 0 {
		return nil, errors.New("no recognizer stages configured")
	}
	return NewChain(stages, norm), nil
}

// Identify returns the first usable canonical name plus the observations
// gathered along the way. On exhaustion the name is the Unknown sentinel
// and err is a *internal.RecognitionError.
func (c *Chain) Identify(ctx context.Context, image []byte) (internal.CanonicalItemName, []internal.RawObservation, error) {
	observations := []internal.RawObservation{}
	failures := []internal.StageFailure{}

	for _, stage := range c.stages {
		text, err := stage.Recognize(ctx, image)
		if err != nil {
			failures = append(failures, internal.StageFailure{Source: stage.Source(), Err: err})
			continue
		}

		obs := internal.RawObservation{Text: text, Source: stage.Source()}
		observations = append(observations, obs)

		name := c.norm.Normalize(text)
		if pipeline.Usable(name) {
			return name, observations, nil
		}
		failures = append(failures, internal.StageFailure{
			Source: stage.Source(),
			Err:    fmt.Errorf("no usable name in %q", text),
		})
	}

	unknown := internal.CanonicalItemName{Value: internal.UnknownItemName}
	return unknown, observations, &internal.RecognitionError{Failures: failures}
}
