// Package graal is a streaming decoder and validator for the WebAssembly 1.0
// (MVP) binary module format. It parses section structure, checks
// cross-section structural and type constraints, abstractly interprets every
// function body, and hands the result to the caller's SymbolTable, NodeSink
// and LinkerQueue collaborators.
package graal

import "github.com/dufoli/graal/internal/xlog"

// SetDebug toggles verbose structured logging across every decoder package.
// Off by default.
func SetDebug(on bool) { xlog.SetDebug(on) }
