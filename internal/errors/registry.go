package errors

// errorTemplate is the registered definition behind an error code.
type errorTemplate struct {
	Category Category
	Message  string
	Detail   string
	DocURL   string
}

// registry maps stable error codes to their definitions. Codes are grouped
// by surface: T1xxx routes, T2xxx config, T3xxx export, T4xxx actions,
// T5xxx CLI.
var registry = map[string]errorTemplate{
	// Route errors
	"T1001": {
		Category: CategoryRoute,
		Message:  "Duplicate route",
		Detail:   "Two route definitions resolve to the same path. Each path may be claimed by exactly one page.",
		DocURL:   "https://treeline.dev/docs/errors/T1001",
	},
	"T1002": {
		Category: CategoryRoute,
		Message:  "Invalid segment syntax",
		Detail:   "Dynamic segments are written as [name], catch-alls as [...name], and optional catch-alls as [[...name]]. Brackets cannot appear anywhere else in a segment.",
		DocURL:   "https://treeline.dev/docs/errors/T1002",
	},
	"T1003": {
		Category: CategoryRoute,
		Message:  "Catch-all segment must be last",
		Detail:   "A [...name] or [[...name]] segment consumes the rest of the path, so nothing can be registered below it.",
		DocURL:   "https://treeline.dev/docs/errors/T1003",
	},
	"T1004": {
		Category: CategoryRoute,
		Message:  "Missing page module",
		Detail:   "A leaf route must provide a page renderer. Layout-only branches cannot terminate a path.",
		DocURL:   "https://treeline.dev/docs/errors/T1004",
	},

	// Config errors
	"T2001": {
		Category: CategoryConfig,
		Message:  "Invalid configuration file",
		Detail:   "treeline.json could not be parsed. Check for trailing commas and unquoted keys.",
		DocURL:   "https://treeline.dev/docs/errors/T2001",
	},
	"T2002": {
		Category: CategoryConfig,
		Message:  "Invalid configuration value",
		DocURL:   "https://treeline.dev/docs/errors/T2002",
	},

	// Export errors
	"T3001": {
		Category: CategoryExport,
		Message:  "Export write failed",
		Detail:   "The static export store rejected a write. Check permissions and available space on the destination.",
		DocURL:   "https://treeline.dev/docs/errors/T3001",
	},
	"T3002": {
		Category: CategoryExport,
		Message:  "Route is not statically exportable",
		Detail:   "The route depends on request data and bailed out of static generation. Exclude it from the export or enable partial prerendering.",
		DocURL:   "https://treeline.dev/docs/errors/T3002",
	},

	// Action errors
	"T4001": {
		Category: CategoryAction,
		Message:  "Action body too large",
		DocURL:   "https://treeline.dev/docs/errors/T4001",
	},
	"T4002": {
		Category: CategoryAction,
		Message:  "Unknown action",
		Detail:   "The request referenced an action id that is not registered. The client bundle and server may be out of sync.",
		DocURL:   "https://treeline.dev/docs/errors/T4002",
	},

	// CLI errors
	"T5001": {
		Category: CategoryCLI,
		Message:  "Preview directory not found",
		Detail:   "The preview command serves a completed static export. Run the export first or point --dir at it.",
		DocURL:   "https://treeline.dev/docs/errors/T5001",
	},
}

// Register adds or replaces an error code definition. Intended for tests and
// embedding applications that extend the code space.
func Register(code string, category Category, message, detail, docURL string) {
	registry[code] = errorTemplate{
		Category: category,
		Message:  message,
		Detail:   detail,
		DocURL:   docURL,
	}
}

// Lookup reports whether a code is registered.
func Lookup(code string) bool {
	_, ok := registry[code]
	return ok
}
