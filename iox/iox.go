// Package iox holds cleanup helpers for deferred calls whose errors
// cannot change the outcome of an ingest or a read command.
package iox

import "io"

// DiscardClose closes c and drops the error:
//
//	defer iox.DiscardClose(adp)
func DiscardClose(c io.Closer) { _ = c.Close() }

// CloseFunc adapts c for t.Cleanup:
//
//	t.Cleanup(iox.CloseFunc(client))
func CloseFunc(c io.Closer) func() {
	return func() { _ = c.Close() }
}

// DiscardErr calls fn and drops the error. It covers cleanup that is not
// an io.Closer, such as flushing a policy or syncing the logger:
//
//	defer iox.DiscardErr(logger.Sync)
func DiscardErr(fn func() error) { _ = fn() }
