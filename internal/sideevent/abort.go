package sideevent

import "github.com/sirupsen/logrus"

// log is the package-level logger used only by abort; the dispatch
// fast path otherwise never logs. Defaults to the standard logger so
// the package is usable before SetLogger is called.
var log logrus.FieldLogger = logrus.StandardLogger()

// SetLogger overrides the logger abort uses. The core calls this once
// during Init with the embedder's configured logger.
func SetLogger(l logrus.FieldLogger) {
	log = l
}

// abort logs reason at Error level and then panics with it. Hard
// invariant violations (an ABI version mismatch above all) cannot be
// surfaced as an error value without risking silently corrupted
// tracer state downstream; a panic still leaves embedders a recover()
// at a boundary they control.
func abort(reason string) {
	log.WithField("component", "sideevent").Error(reason)
	panic(reason)
}
