package evaluator

import (
	"math"
	"strconv"
)

const DefaultPrecision = 8

// Format: целые без десятичной точки, дробные округляются до precision знаков без хвостовых нулей
func Format(value float64, precision int) string {
	if value == 0 {
		return "0"
	}
	if value == math.Trunc(value) {
		return strconv.FormatFloat(value, 'f', -1, 64)
	}
	rounded, err := strconv.ParseFloat(strconv.FormatFloat(value, 'f', precision, 64), 64)
	if err != nil || rounded == 0 {
		return "0"
	}
	return strconv.FormatFloat(rounded, 'f', -1, 64)
}
