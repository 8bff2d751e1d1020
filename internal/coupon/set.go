package coupon

import (
	"bufio"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"strings"
)

// cancelCheckEvery is how many lines are read between context checks.
const cancelCheckEvery = 1 << 16

type hashSet map[string]struct{}

// NewSet returns a Set holding codes.
func NewSet(codes ...string) Set {
	s := make(hashSet, len(codes))
	for _, c := range codes {
		s[c] = struct{}{}
	}
	return s
}

func (s hashSet) Contains(code string) bool {
	_, ok := s[code]
	return ok
}

func (s hashSet) Size() int {
	return len(s)
}

// ReadSet decodes a gzipped list with one code per line. Blank lines are
// skipped and surrounding whitespace is trimmed.
func ReadSet(ctx context.Context, r io.Reader) (Set, error) {
	zr, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open gzip stream: %w", err)
	}
	defer zr.Close()

	set := hashSet{}
	scanner := bufio.NewScanner(zr)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for n := 0; scanner.Scan(); n++ {
		if n%cancelCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		if code := strings.TrimSpace(scanner.Text()); code != "" {
			set[code] = struct{}{}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read coupon list: %w", err)
	}

	return set, nil
}
