// Package tg provides the shared types used across the dispatch engine:
// the opaque Update document, token redaction, and the sentinel error
// kinds raised by routes, sources, and the config loader.
//
// # Usage
//
//	import "github.com/prilive-com/tgin/tg"
//
//	var u tg.Update
//	var err *tg.APIError
//	token := tg.SecretToken("123:ABC...")
package tg
