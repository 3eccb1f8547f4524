package usecase

import (
	"fmt"

	"tumor_backend/internal/feature/tumordetection/domain"
	"tumor_backend/internal/feature/tumordetection/domain/entity"
)

const (
	// NoTumorText は腫瘍なしと判定された場合の結果テキストです。
	NoTumorText = "No Tumor"
	// TumorTextFormat は腫瘍ありと判定された場合の結果テキストの書式です。
	TumorTextFormat = "Tumor: %s"
)

// Interpret は確率分布から最大確率のラベルを選び、結果テキストと信頼度を組み立てます。
// 同値の場合はラベル順で先に現れたものを採用します。
func Interpret(labels entity.LabelSet, probs entity.ClassProbabilities) (*entity.PredictionResult, error) {
	if len(probs) == 0 || len(probs) != labels.Len() {
		return nil, fmt.Errorf("%w: got %d probabilities for %d labels", domain.ErrModel, len(probs), labels.Len())
	}

	best := 0
	for i, p := range probs {
		if p > probs[best] {
			best = i
		}
	}
	label, _ := labels.At(best)

	text := NoTumorText
	if label != entity.NoTumorLabel {
		text = fmt.Sprintf(TumorTextFormat, label)
	}

	all := make([]entity.LabelProbability, 0, len(probs))
	for i, p := range probs {
		all = append(all, entity.LabelProbability{Label: labels[i], Probability: p})
	}

	return &entity.PredictionResult{
		Label:         label,
		Text:          text,
		Confidence:    probs[best],
		Probabilities: all,
	}, nil
}
