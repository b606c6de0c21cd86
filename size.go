package fstree

import (
	"strconv"
	"strings"
)

var sizeSuffixes = []struct {
	suffix string
	mult   int64
}{
	{"Ti", 1 << 40}, {"Gi", 1 << 30}, {"Mi", 1 << 20}, {"Ki", 1 << 10},
	{"T", 1e12}, {"G", 1e9}, {"M", 1e6}, {"K", 1e3},
}

// parseSize parses strings like "10GiB", "512Mi", "100K", "1024" (bytes).
func parseSize(s string) (int64, error) {
	orig := s
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "B")
	s = strings.TrimSuffix(s, "b")

	for _, suf := range sizeSuffixes {
		if strings.HasSuffix(s, suf.suffix) {
			numPart := strings.TrimSuffix(s, suf.suffix)
			n, err := strconv.ParseFloat(numPart, 64)
			if err != nil {
				return 0, wrapf(KindInvalidArgument, "ParseSize", orig, "%v", err)
			}
			return int64(n * float64(suf.mult)), nil
		}
	}

	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, wrapf(KindInvalidArgument, "ParseSize", orig, "%v", err)
	}
	return n, nil
}
