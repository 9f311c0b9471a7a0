// Package binder decodes HTTP request data into structs.
//
// Binders are small composable functions: JSON reads the request body,
// Form reads urlencoded bodies, Query reads the URL query string, and
// Path reads router parameters through an extractor such as chi.URLParam.
// A handler typically applies several binders to the same struct so one
// request type can mix `json`, `form`, `query`, and `path` tags.
package binder
