// Package api はHTTP APIのリクエスト・レスポンス型を定義します。
package api

// ErrorResponse はエラー時のレスポンスです。
type ErrorResponse struct {
	Error string `json:"error"`
}

// ClassProbabilityResponse はラベルごとの確率です。
type ClassProbabilityResponse struct {
	Label       string  `json:"label"`
	Probability float32 `json:"probability"`
}

// PredictionResponse は POST /v1/tumor/predict のレスポンスです。
type PredictionResponse struct {
	UploadID       string                     `json:"upload_id"`
	FileURL        string                     `json:"file_url"`
	Result         string                     `json:"result"`
	Label          string                     `json:"label"`
	Confidence     float32                    `json:"confidence"`
	ConfidenceText string                     `json:"confidence_text"`
	Probabilities  []ClassProbabilityResponse `json:"probabilities"`
}
