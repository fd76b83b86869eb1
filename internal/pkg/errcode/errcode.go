// Package errcode assigns stable numeric codes to error responses so
// clients can branch on a code instead of matching message text.
package errcode

const (
	ErrInvalid = 10000000 + iota
	ErrNotFound
	ErrConflict
	ErrInternal
	ErrInvalidFile
	ErrInvalidQuery
	ErrAnswerFailed
)
