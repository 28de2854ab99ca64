package main

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"

	"github.com/treeline-dev/treeline/internal/config"
	"github.com/treeline-dev/treeline/pkg/engine"
)

func serveCmd() *cobra.Command {
	var (
		dir  string
		port int
		host string
	)

	cmd := &cobra.Command{
		Use:     "serve",
		Aliases: []string{"preview"},
		Short:   "Serve a statically exported site",
		Long: `Serve the output of a static export.

Request paths map onto the exported files: "/" serves index.html,
"/blog/hello" serves blog/hello.html. Client navigations carrying
the navigation header receive the page's tree payload instead of
the document.

Examples:
  treeline serve
  treeline serve --dir=out --port=8080`,
		RunE: func(cmd *cobra.Command, args []string) error {
			wd, err := os.Getwd()
			if err != nil {
				return err
			}
			cfg, err := config.Load(wd)
			if err != nil {
				return err
			}
			if port > 0 {
				cfg.Server.Port = port
			}
			if host != "" {
				cfg.Server.Host = host
			}
			if dir == "" {
				dir = cfg.OutputPath()
			}
			if _, err := os.Stat(dir); err != nil {
				return err
			}

			r := chi.NewRouter()
			r.Use(chimw.Logger)
			r.Use(chimw.Recoverer)
			r.Handle("/*", exportHandler(dir))

			success("serving %s on http://%s", dir, cfg.Address())
			return http.ListenAndServe(cfg.Address(), r)
		},
	}

	cmd.Flags().StringVarP(&dir, "dir", "d", "", "Export directory (default from treeline.json)")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "Port to listen on (default from treeline.json)")
	cmd.Flags().StringVarP(&host, "host", "H", "", "Host to bind to (default from treeline.json)")

	return cmd
}

// exportHandler serves an export directory, mapping route paths to the
// exported document and payload files.
func exportHandler(dir string) http.Handler {
	fs := http.FileServer(http.Dir(dir))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := routeKey(r.URL.Path)
		if key == "" {
			fs.ServeHTTP(w, r)
			return
		}

		// Client navigations get the tree payload.
		if r.Header.Get(engine.HeaderNavigation) != "" {
			payload := filepath.Join(dir, filepath.FromSlash(key)+".txt")
			if body, err := os.ReadFile(payload); err == nil {
				w.Header().Set("Content-Type", engine.FlightContentType)
				w.Write(body)
				return
			}
		}

		doc := filepath.Join(dir, filepath.FromSlash(key)+".html")
		if _, err := os.Stat(doc); err == nil {
			http.ServeFile(w, r, doc)
			return
		}

		// Fall back to raw files (payloads, assets copied into the export).
		fs.ServeHTTP(w, r)
	})
}

// routeKey maps a request path to the export key base. Paths that already
// name a file (carry an extension) return "" and fall through to the file
// server.
func routeKey(path string) string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return "index"
	}
	if strings.Contains(filepath.Base(trimmed), ".") {
		return ""
	}
	return trimmed
}
