// Package config loads treeline.json and applies environment overrides.
//
// Configuration resolves in three layers: built-in defaults, the JSON file,
// and finally TREELINE_* environment variables. The file is optional; a
// project with no treeline.json runs entirely on defaults and environment.
package config
