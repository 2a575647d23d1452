package core

// Coin costs per paid feature. Chat, search, and text-to-speech are free.
const (
	CostImageGeneration int64 = 5
	CostImageAnalysis   int64 = 2
	CostVideoGeneration int64 = 20
	CostVideoAnalysis   int64 = 5
)
