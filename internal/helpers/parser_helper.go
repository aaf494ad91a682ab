package helpers

import (
	"fmt"
	"strconv"
	"strings"
)

func StringToInt(s string) (int, error) {
	return strconv.Atoi(s)
}

func StringToFloat(s string) (float64, error) {
	return strconv.ParseFloat(s, 64)
}

// ParseNumberList parses a comma-separated list of ticket numbers, e.g.
// "3,14,27". Whitespace around entries is ignored; empty input is an empty
// list.
func ParseNumberList(s string) ([]int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return []int{}, nil
	}

	parts := strings.Split(s, ",")
	numbers := make([]int, 0, len(parts))
	for _, part := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("invalid number %q", part)
		}
		numbers = append(numbers, n)
	}
	return numbers, nil
}
