package extract

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// fold lower-cases s and strips combining marks, so "Ocorrência" and
// "ocorrencia" compare equal.
func fold(s string) string {
	f, _ := foldIndexed(s)
	return f
}

// foldIndexed folds s rune by rune and returns, for every byte offset of the
// folded string (plus its end), the matching offset in s. Matches found in the
// folded text can then be cut from the original with accents intact.
func foldIndexed(s string) (string, []int) {
	var sb strings.Builder
	idx := make([]int, 0, len(s)+1)
	for i, r := range s {
		for _, d := range norm.NFD.String(string(r)) {
			if unicode.In(d, unicode.Mn) {
				continue
			}
			n, _ := sb.WriteString(string(unicode.ToLower(d)))
			for j := 0; j < n; j++ {
				idx = append(idx, i)
			}
		}
	}
	idx = append(idx, len(s))
	return sb.String(), idx
}
