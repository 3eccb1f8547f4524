// Package entity はtumordetectionフィーチャーのドメインモデルを定義します。
package entity

// NoTumorLabel は「腫瘍なし」を表すラベルです。
const NoTumorLabel = "notumor"

// LabelSet は分類器の出力インデックスに対応するラベルの並びです。
// 順序はモデルの学習時と一致していなければなりません。
type LabelSet []string

// DefaultLabels は同梱モデルの学習時のクラス順序を返します。
// モデルにマニフェストが付属していない場合にのみ使用します。
func DefaultLabels() LabelSet {
	return LabelSet{"pituitary", "glioma", NoTumorLabel, "meningioma"}
}

// Len はラベル数を返します。
func (s LabelSet) Len() int {
	return len(s)
}

// At はインデックスに対応するラベルを返します。範囲外の場合は false を返します。
func (s LabelSet) At(i int) (string, bool) {
	if i < 0 || i >= len(s) {
		return "", false
	}
	return s[i], true
}
