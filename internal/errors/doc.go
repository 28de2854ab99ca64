// Package errors provides structured, coded errors for the framework's
// operational surfaces: route loading, configuration, static export, and the
// CLI. Each error carries a stable code, a category, and optional location
// and fix information, and knows how to format itself for terminals and
// machine consumers.
//
// Render-time control flow (not-found, redirects, bailouts) does not live
// here; those are signals owned by the engine. This package covers the
// errors an operator or app developer sees.
package errors
