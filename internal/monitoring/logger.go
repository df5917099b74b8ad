// Package monitoring holds the diagnostic logger shared by the library
// packages (pose readers, export, report, store).
package monitoring

import (
	"io"
	"log"
)

// Logf is the package-level diagnostic logger. It defaults to log.Printf but may
// be replaced by SetLogger or SetWriter. Tests or the CLI quiet flag mute it.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// SetWriter routes Logf to w with the given prefix. Passing a nil writer
// mutes the logger.
func SetWriter(w io.Writer, prefix string) {
	if w == nil {
		SetLogger(nil)
		return
	}
	SetLogger(log.New(w, prefix, log.LstdFlags).Printf)
}
