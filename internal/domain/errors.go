package domain

import "errors"

// ErrNoOpinions indicates consensus was requested over an empty opinion set.
// This is the only fatal error surfaced by the consensus core; callers must
// propagate it rather than fabricating a degenerate result.
var ErrNoOpinions = errors.New("at least one opinion is required")

// ErrInvalidOpinion indicates that an opinion violates its value constraints.
var ErrInvalidOpinion = errors.New("invalid opinion")

// ErrInvalidRequest indicates that a consultation request contains invalid data.
var ErrInvalidRequest = errors.New("invalid consultation request")

// ErrInvalidConfig indicates that the consultation configuration is invalid.
var ErrInvalidConfig = errors.New("invalid consultation configuration")
