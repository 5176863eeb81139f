package render

import (
	"context"
	"errors"
	"strings"
)

// UncaughtPrefix is what the reporting layer puts in front of every failure
// that escapes a compile call.
const UncaughtPrefix = "Uncaught "

// UncaughtError marks a compile failure as it crossed the compiler boundary.
type UncaughtError struct {
	Err error
}

func (e *UncaughtError) Error() string { return UncaughtPrefix + e.Err.Error() }
func (e *UncaughtError) Unwrap() error { return e.Err }

// Uncaught wraps err once. Cancellation is passed through untouched so that
// callers can still tell it apart from real failures.
func Uncaught(err error) error {
	if err == nil {
		return nil
	}
	var ue *UncaughtError
	if errors.As(err, &ue) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return &UncaughtError{Err: err}
}

// Message returns the text shown to the author: the error string without the
// reporting layer's prefix, wherever in the chain the boundary was crossed.
func Message(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	var ue *UncaughtError
	if errors.As(err, &ue) {
		// 外层包装的上下文保留，只去掉边界加上的前缀
		return strings.Replace(msg, ue.Error(), ue.Err.Error(), 1)
	}
	return strings.TrimPrefix(msg, UncaughtPrefix)
}
