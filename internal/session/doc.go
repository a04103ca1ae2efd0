// Package session keeps live documents converted on behalf of API clients.
//
// Each session owns a parsed document, an event loop goroutine and a
// synchronizer bound to the shared rate and settings stores. Every access
// to the document goes through the session's loop.
package session
