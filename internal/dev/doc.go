// Package dev provides the development-mode conveniences: a polling file
// watcher and a WebSocket reload server that pushes change notifications and
// render-error overlays to connected browsers.
package dev
