package srv

import "errors"

var ErrNotFound = errors.New("not found")
