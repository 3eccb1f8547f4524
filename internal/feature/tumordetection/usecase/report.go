package usecase

import (
	"fmt"

	"tumor_backend/internal/feature/tumordetection/domain/entity"
)

// ReportFileName はダウンロード用テキストのファイル名です。
const ReportFileName = "tumor_prediction.txt"

// FormatPercent は確率を小数点以下2桁のパーセント表記にします（例: 0.65 → "65.00%"）。
func FormatPercent(p float32) string {
	return fmt.Sprintf("%.2f%%", float64(p)*100)
}

// Report はダウンロード用の2行のテキストを生成します。
func Report(r *entity.PredictionResult) string {
	return fmt.Sprintf("Prediction: %s\nConfidence: %s", r.Text, FormatPercent(r.Confidence))
}
