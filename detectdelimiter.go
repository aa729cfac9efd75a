package biomisc

import (
	"bytes"

	"github.com/csimplestring/go-csv/detector"
)

// DetermineDelimiter returns the single most likely rune that would delimit the
// values in sample, assuming a CSV-like file. A tab anywhere in the first few
// lines wins outright.
func DetermineDelimiter(sample []byte) rune {
	for _, line := range leadingLines(sample, 5) {
		if bytes.IndexByte(line, '\t') >= 0 {
			return '\t'
		}
	}

	d := detector.New()
	delimiters := d.DetectDelimiter(bytes.NewReader(sample), '"')

	if len(delimiters) > 0 && len(delimiters[0]) > 0 {
		return rune(delimiters[0][0])
	}

	return '\t'
}

func leadingLines(sample []byte, n int) [][]byte {
	lines := bytes.SplitN(sample, []byte{'\n'}, n+1)
	if len(lines) > n {
		lines = lines[:n]
	}

	return lines
}
