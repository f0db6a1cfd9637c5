// Package hook defines the external notification surface the core
// emits into, without depending on how hooks are actually run — hooks
// themselves are out of core scope (§4.7).
package hook

import "github.com/fcanata061/pbuild/internal/log"

// RemovedEvent is emitted by the Remover after a package's Registry
// records have been dropped (§4.7 step 4).
type RemovedEvent struct {
	Name string
}

// Sink receives lifecycle events. A failing sink must not abort the
// operation that triggered the event (§7: HookFailed is non-fatal).
type Sink interface {
	Removed(RemovedEvent)
}

// LogSink is the default Sink: it just logs the event. Any real
// notification mechanism (shell hooks, webhooks, message queues) can
// be layered on by implementing Sink.
type LogSink struct{}

func (LogSink) Removed(e RemovedEvent) {
	log.Default().Info("package removed", "name", e.Name)
}
