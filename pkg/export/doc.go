// Package export renders an application's routes at build time and writes
// the resulting documents to a store.
//
// An Exporter drives the render engine in static mode over a list of
// routes. Each route produces an HTML document, a serialized tree payload
// for client navigations into the page, and, when the render postponed
// dynamic holes or set revalidation, a metadata file describing how to
// serve it.
//
//	store, _ := export.NewDirStore("out")
//	ex, _ := export.New(export.Config{Engine: eng, App: app, Store: store})
//	report, err := ex.Export(ctx, []export.Route{
//	    {Path: "/"},
//	    {Path: "/blog"},
//	    {Path: "/blog/hello", Params: routetree.Params{"slug": "hello"}},
//	})
//
// Stores abstract the destination: DirStore writes a local directory
// suitable for any static file host, S3Store uploads to an S3 bucket.
package export
