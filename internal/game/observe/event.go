// Package observe mirrors arena floor output into observation rooms,
// tracking per-floor-cell watcher registrations with perception gating.
package observe

// OutputEvent is one line of combat or lifecycle output originating in a
// cell. The flags drive perception gating when the line is mirrored to a
// remote watcher.
type OutputEvent struct {
	Text string
	// Audible marks lines that can be heard without line of sight.
	Audible bool
	// RequiresNotice marks lines that are only perceived on a successful
	// notice check against NoticeDC.
	RequiresNotice bool
	NoticeDC       int
}
