package monitor

import (
	"math"
	"strconv"
	"strings"
)

// Impact returns the burn amount as a percentage of the pool's token
// reserve, rounded to 4 decimal places. A zero or negative reserve means
// the impact is unknown and yields 0.
func Impact(amountBurned, tokenReserve float64) float64 {
	if tokenReserve <= 0 {
		return 0
	}
	return math.Round(amountBurned/tokenReserve*100*10000) / 10000
}

// FormatAmount renders a display amount with comma-grouped thousands and
// two decimal places, e.g. 1234.5 -> "1,234.50".
func FormatAmount(value float64) string {
	s := strconv.FormatFloat(value, 'f', 2, 64)

	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}

	intPart, fracPart, _ := strings.Cut(s, ".")

	var b strings.Builder
	for i, digit := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(digit)
	}

	return sign + b.String() + "." + fracPart
}
