package reconcile

import "math"

// Ratio returns the similarity of a and b on a 0-100 scale: twice the
// longest common subsequence over the combined length, rounded half to
// even. Equal strings score 100; an empty string against a non-empty one
// scores 0.
func Ratio(a, b string) int {
	if a == b {
		return 100
	}
	if a == "" || b == "" {
		return 0
	}
	lcs := longestCommonSubsequence([]rune(a), []rune(b))
	total := len([]rune(a)) + len([]rune(b))
	return int(math.RoundToEven(100 * float64(2*lcs) / float64(total)))
}

func longestCommonSubsequence(a, b []rune) int {
	if len(a) < len(b) {
		a, b = b, a
	}
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			switch {
			case a[i-1] == b[j-1]:
				cur[j] = prev[j-1] + 1
			case prev[j] >= cur[j-1]:
				cur[j] = prev[j]
			default:
				cur[j] = cur[j-1]
			}
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}
