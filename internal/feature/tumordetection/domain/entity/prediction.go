package entity

// ClassProbabilities は分類器1回分の出力です（ラベル順、各値は0以上、合計はおよそ1）。
type ClassProbabilities []float32

// LabelProbability はラベルごとの確率です。
type LabelProbability struct {
	Label       string
	Probability float32
}

// PredictionResult は利用者に返す推論結果を表します。永続化はしません。
type PredictionResult struct {
	Label         string             // 最大確率のラベル（生の値）
	Text          string             // "No Tumor" または "Tumor: <label>"
	Confidence    float32            // 最大確率（0.0 ~ 1.0）
	Probabilities []LabelProbability // ラベル順の全確率
}

// IsTumor は腫瘍ありと判定されたかを返します。
func (r *PredictionResult) IsTumor() bool {
	return r.Label != NoTumorLabel
}
