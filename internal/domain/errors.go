package domain

import "errors"

// ErrEmptyInput is returned by aggregate geometry on an empty point set.
var ErrEmptyInput = errors.New("empty input")

// ErrDuplicateTask indicates the same task ID appeared twice in one cycle.
var ErrDuplicateTask = errors.New("duplicate task id")
