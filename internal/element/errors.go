package element

import "errors"

// ErrNotFound reports a stale handle: its locator no longer resolves in the
// current document version, or resolves to a node whose kind no longer
// matches the kind recorded at creation. Once stale, a handle stays stale
// for every later version unless an edit reintroduces a structurally
// identical construct at the same locator.
var ErrNotFound = errors.New("element not found")
