package scoring

import "github.com/wonny/momentum/internal/contracts"

// fundamentalMomentum starts neutral at 50 and rewards cheap forward P/E and PEG.
// Missing or non-finite inputs add nothing.
func fundamentalMomentum(f contracts.Fundamentals) float64 {
	score := 50.0

	if pe, ok := f.ForwardPEValue(); ok {
		switch {
		case pe > 0 && pe < 25:
			score += 20
		case pe >= 25 && pe < 40:
			score += 10
		}
	}

	if peg, ok := f.PEGValue(); ok {
		switch {
		case peg > 0 && peg < 1:
			score += 20
		case peg >= 1 && peg < 2:
			score += 10
		}
	}

	return contracts.Clamp(score, 0, 100)
}
