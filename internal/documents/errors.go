package documents

import "errors"

var ErrNotFound = errors.New("not found")
