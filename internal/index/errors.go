package index

import "errors"

// ErrBadQuery is returned when a regex pattern fails to compile.
var ErrBadQuery = errors.New("index: bad query")

// ErrUnknownToken names a query token that has no postings at all. MultiAnd
// does not return it: a query with an unknown token yields an empty result.
var ErrUnknownToken = errors.New("index: unknown token")
