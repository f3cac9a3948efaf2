package model

import (
	"errors"
	"fmt"
)

// ErrConfiguration is the root of every fail-fast input/config error.
var ErrConfiguration = errors.New("configuration error")

var (
	ErrNegativeTTL  = fmt.Errorf("%w: ttl must not be negative", ErrConfiguration)
	ErrEmptyPattern = fmt.Errorf("%w: invalidation pattern must not be empty", ErrConfiguration)
)

var ErrNilProducer = fmt.Errorf("%w: producer must not be nil", ErrConfiguration)
