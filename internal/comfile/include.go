package comfile

import (
	"strconv"
	"strings"
)

// Halves of a tilt series, named by the zero-based parity of the view index.
// View numbers in the rendered INCLUDE line are one-based, so the evens half
// lists odd view numbers and vice versa.
const (
	HalfEvens = "evens"
	HalfOdds  = "odds"
)

// IncludeLine builds the tilt INCLUDE directive selecting one half of a
// series with the given view count.
func IncludeLine(views int, half string) string {
	parity := 0
	if half == HalfOdds {
		parity = 1
	}
	nums := make([]string, 0, (views+1)/2)
	for i := 0; i < views; i++ {
		if i%2 == parity {
			nums = append(nums, strconv.Itoa(i+1))
		}
	}
	return "INCLUDE " + strings.Join(nums, ",")
}
