package where

import "errors"

// ErrStructural is returned for illegal tree shapes: a field map nested
// under a field key, a sub-query inside a bare value list, or an
// RHS-only operator given a field context. These are rejected outright,
// never best-effort compiled.
var ErrStructural = errors.New("structural where error")
