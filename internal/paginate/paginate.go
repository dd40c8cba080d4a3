package paginate

import (
	"errors"
	"strconv"
	"strings"
)

var ErrInvalidParam = errors.New("pagination parameters must be non-negative integers, limit must be positive")

// Slice returns items[offset:offset+limit], clamped to the slice bounds.
// A nil offset starts at zero and a nil limit takes everything after the offset.
func Slice[T any](items []T, offset, limit *int) []T {
	start := 0
	if offset != nil && *offset > 0 {
		start = *offset
	}
	if start >= len(items) {
		return []T{}
	}
	end := len(items)
	if limit != nil && *limit < end-start {
		end = start + *limit
	}
	return items[start:end]
}

// ParseParams reads the raw offset and limit query values. Empty values are absent.
func ParseParams(rawOffset, rawLimit string) (offset, limit *int, err error) {
	if offset, err = parse(rawOffset, 0); err != nil {
		return nil, nil, err
	}
	if limit, err = parse(rawLimit, 1); err != nil {
		return nil, nil, err
	}
	return offset, limit, nil
}

func parse(raw string, min int) (*int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < min {
		return nil, ErrInvalidParam
	}
	return &n, nil
}
