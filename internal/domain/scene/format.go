package scene

import (
	"fmt"
	"math"
	"strconv"

	"github.com/okian/aol-b30/internal/domain/errs"
)

const scoreDigits = 8

// FormatScore renders a score as XX'XXX'XXX.
func FormatScore(score int) (string, error) {
	raw := strconv.Itoa(score)
	if score < 0 || len(raw) > scoreDigits {
		return "", fmt.Errorf("score %d: %w", score, errs.ErrFormatViolation)
	}
	padded := fmt.Sprintf("%0*d", scoreDigits, score)
	return padded[:2] + "'" + padded[2:5] + "'" + padded[5:], nil
}

// ParsePotential floors p to hundredths and splits it into the integer part
// and a ".dd" fraction.
func ParsePotential(p float64) (whole, fraction string) {
	hundredths := int64(math.Floor(p * 100))
	integer := int64(math.Floor(float64(hundredths) / 100))
	return strconv.FormatInt(integer, 10), fmt.Sprintf(".%02d", hundredths-integer*100)
}
