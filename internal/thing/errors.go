package thing

import "errors"

// ErrTemplateUnavailable is returned when the template cannot be read.
var ErrTemplateUnavailable = errors.New("thing: template unavailable")
