package usecase_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"tumor_backend/internal/feature/tumordetection/domain/entity"
	"tumor_backend/internal/feature/tumordetection/usecase"
)

func TestFormatPercent(t *testing.T) {
	testCases := []struct {
		in       float32
		expected string
	}{
		{in: 0.65, expected: "65.00%"},
		{in: 1, expected: "100.00%"},
		{in: 0, expected: "0.00%"},
		{in: 0.125, expected: "12.50%"},
		{in: 0.0001, expected: "0.01%"},
	}

	for _, tc := range testCases {
		t.Run(tc.expected, func(t *testing.T) {
			assert.Equal(t, tc.expected, usecase.FormatPercent(tc.in))
		})
	}
}

func TestReport(t *testing.T) {
	testCases := []struct {
		name     string
		result   *entity.PredictionResult
		expected string
	}{
		{
			name:     "no tumor",
			result:   &entity.PredictionResult{Label: "notumor", Text: "No Tumor", Confidence: 0.65},
			expected: "Prediction: No Tumor\nConfidence: 65.00%",
		},
		{
			name:     "tumor",
			result:   &entity.PredictionResult{Label: "pituitary", Text: "Tumor: pituitary", Confidence: 0.7},
			expected: "Prediction: Tumor: pituitary\nConfidence: 70.00%",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, usecase.Report(tc.result))
		})
	}
}
