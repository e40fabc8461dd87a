// Package iox holds small cleanup helpers.
package iox

import "io"

// DiscardClose closes c when the error cannot be acted on.
//
//	defer iox.DiscardClose(resp.Body)
func DiscardClose(c io.Closer) { _ = c.Close() }

// CloseFunc adapts c for t.Cleanup.
func CloseFunc(c io.Closer) func() {
	return func() { _ = c.Close() }
}
