// Package feeds builds input tables from RSS and Atom feeds.
//
// Items are appended through the same resumable sink the pipeline writes
// with, keyed by GUID or link, so repeated crawls only add new articles.
package feeds
