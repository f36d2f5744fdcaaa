// Package binder fills request structs from HTTP requests. Each binder
// reads one source, selected by struct tag:
//
//	type inbound struct {
//		MessageSid string `form:"MessageSid"`
//		Limit      int    `query:"limit"`
//		Phone      string `path:"phone"`
//	}
//
// Binders return errors wrapping the package sentinels so callers can map
// them to 400 or 415 responses.
package binder
