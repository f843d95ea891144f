// Package recognizer turns item photos into raw text observations via a
// priority chain of hosted recognizer stages.
package recognizer

import (
	"context"

	"carecount/internal"
)

// Stage is one recognizer: given image bytes, return free text or fail.
type Stage interface {
	Source() internal.ObservationSource
	Recognize(ctx context.Context, image []byte) (string, error)
}

const systemHint = "You label the item being held in the image for a food bank. Return ONLY the item name."

// Per-stage user prompts for the chat-style stages.
const (
	promptModel   = "What is the name of the item in the picture? Return only the item name."
	promptCaption = "Describe the product in the picture in one short phrase."
	promptLabel   = "Classify the product in the picture into a short category label. Return only the label."
)
