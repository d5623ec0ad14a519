package util

import (
	"math"
	"strconv"
)

// LogFloat is v as a log field value. NaN and ±Inf become strings so the
// JSON formatter can encode them.
func LogFloat(v float64) any {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return strconv.FormatFloat(v, 'g', -1, 64)
	}
	return v
}
