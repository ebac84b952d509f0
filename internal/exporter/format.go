package exporter

import (
	"fmt"
	"math"
)

// formatFloat formats a float64 for CSV output with exactly 2 decimal
// places, so values like 13.4 appear as 13.40. NaN and infinities keep
// their literal names.
func formatFloat(f float64) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return fmt.Sprintf("%v", f)
	}
	return fmt.Sprintf("%.2f", f)
}

// xlsxValue keeps finite floats numeric in the workbook and falls back to
// the literal name for NaN and infinities.
func xlsxValue(f float64) any {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return fmt.Sprintf("%v", f)
	}
	return f
}
