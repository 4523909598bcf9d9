package scale

import (
	"math"
	"strconv"
	"strings"
)

var siPrefixes = []string{"y", "z", "a", "f", "p", "n", "µ", "m", "", "k", "M", "G", "T", "P", "E", "Z", "Y"}

// FormatSI formats v with two significant digits and an SI prefix, the way
// axis labels are printed: 1.5e12 -> "1.5T", 5e11 -> "500G", 0 -> "0.0".
func FormatSI(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return strconv.FormatFloat(v, 'f', -1, 64)
	}

	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}

	// "1.5e+12" -> digits "15", exponent 12
	s := strconv.FormatFloat(v, 'e', 1, 64)
	mant, expStr, _ := strings.Cut(s, "e")
	digits := strings.Replace(mant, ".", "", 1)
	exp, _ := strconv.Atoi(expStr)
	if v == 0 {
		exp = 0
	}

	group := max(-8, min(8, floorDiv(exp, 3)))
	i := exp - group*3 + 1 // digits left of the decimal point
	n := len(digits)

	var out string
	switch {
	case i == n:
		out = digits
	case i > n:
		out = digits + strings.Repeat("0", i-n)
	case i > 0:
		out = digits[:i] + "." + digits[i:]
	default:
		out = "0." + strings.Repeat("0", -i) + digits
	}
	return sign + out + siPrefixes[group+8]
}

// FormatMoney prefixes FormatSI with a dollar sign.
func FormatMoney(v float64) string { return "$" + FormatSI(v) }

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
