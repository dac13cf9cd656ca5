// Package logx is jobd's structured logging layer: a thin wrapper over
// zerolog with field helpers, a readable console sink, an optional JSON
// file sink, and a Service whose root can be swapped atomically when
// config is hot-reloaded.
package logx
