package api

import (
	"errors"
	"strconv"
)

var errInvalidID = errors.New("invalid book id")

// parseID accepts a positive decimal id with no sign or surrounding space.
func parseID(raw string) (int64, error) {
	if raw == "" {
		return 0, errInvalidID
	}
	for _, c := range raw {
		if c < '0' || c > '9' {
			return 0, errInvalidID
		}
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, errInvalidID
	}
	return id, nil
}
