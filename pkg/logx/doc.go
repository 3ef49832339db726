// Package logx wraps zerolog behind a small structured-logging API.
//
// Loggers created from a Service stay "live": Apply() can swap sinks and
// levels at runtime (config reload) without re-plumbing logger values
// through the app. The zero Logger value is a safe no-op.
package logx
