// Package catalog holds the read-only lesson catalog served by the dashboard.
//
// A [Catalog] is loaded once from a JSON array of video records, either the bundled
// power electronics fixture or a file named in config. Each record is decoded and shape
// checked on its own: a malformed record is remembered as a [Problem] and never returned
// from a lookup, so one bad entry cannot take down the page or the rest of the catalog.
//
// Lookups never fail with anything other than [shared.ErrNotFound]. The catalog is
// immutable after [Load] returns and is safe for concurrent use.
//
// [Catalog.Search] runs full-text queries against an in-memory bleve index built at load time.
package catalog
