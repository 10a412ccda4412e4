package markov

import "math"

var negInf = math.Inf(-1)

func log10(x float64) float64 { return math.Log10(x) }
func isNaN(x float64) bool    { return math.IsNaN(x) }
