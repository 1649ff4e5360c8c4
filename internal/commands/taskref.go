package commands

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// ErrTaskRefRequired indicates no task reference was provided.
var ErrTaskRefRequired = errors.New("task reference required")

// ParseTaskRef parses a single task reference.
//
// Accepted forms:
//  1. all digits (7) → task id 7
//  2. '#' followed by digits (#7) → task id 7
//
// Anything else, including id 0, is an invalid task reference.
func ParseTaskRef(arg string) (int64, error) {
	digits := strings.TrimPrefix(strings.TrimSpace(arg), "#")
	if !isAllDigits(digits) {
		return 0, fmt.Errorf("invalid task reference: %s", arg)
	}
	id, err := strconv.ParseInt(digits, 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("invalid task reference: %s", arg)
	}
	return id, nil
}

// ParseTaskRefs parses one or more task references, rejecting duplicates.
func ParseTaskRefs(args []string) ([]int64, error) {
	if len(args) == 0 {
		return nil, ErrTaskRefRequired
	}
	ids := make([]int64, 0, len(args))
	seen := make(map[int64]bool, len(args))
	for _, arg := range args {
		id, err := ParseTaskRef(arg)
		if err != nil {
			return nil, err
		}
		if seen[id] {
			return nil, fmt.Errorf("duplicate task reference: %s", arg)
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids, nil
}

// isAllDigits returns true if s consists only of ASCII digits and is non-empty.
func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r > unicode.MaxASCII || !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
