// Package goroutine launches background work with panic containment.
package goroutine

import (
	"runtime/debug"

	"github.com/replygate/replygate/internal/shared/logger"
)

// SafeGo runs fn on a new goroutine. A panic in fn is recovered and logged
// under the given name rather than taking the whole process down; session
// workers in particular must never crash the server for one tenant.
func SafeGo(log logger.Interface, name string, fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Errorw("recovered panic in background goroutine",
					"name", name,
					"value", r,
					"stack", string(debug.Stack()),
				)
			}
		}()
		fn()
	}()
}
