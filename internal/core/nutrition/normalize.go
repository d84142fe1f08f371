package nutrition

import "math"

// BasisWeight 決定換算基準重量：有成品重量時使用成品重量，否則使用食材總重
func BasisWeight(totalMass float64, weight *float64) (float64, error) {
	basis, explicit := totalMass, false
	if weight != nil {
		basis, explicit = *weight, true
	}
	if math.IsNaN(basis) || math.IsInf(basis, 0) || basis <= 0 {
		return 0, &InvalidBasisWeightError{Weight: basis, Explicit: explicit}
	}
	return basis, nil
}

// Normalize 將累加值換算為每 100 克的數值，回傳結果與使用的基準重量
func Normalize(acc Facts, totalMass float64, weight *float64) (Facts, float64, error) {
	basis, err := BasisWeight(totalMass, weight)
	if err != nil {
		return nil, 0, err
	}
	return acc.Scale(100.0 / basis), basis, nil
}
