// Package storage provides SQLite persistence for scraped courses, announcements and
// the notification log.
//
// The database lives at <data_dir>/mooc.db (default ~/.local/share/mooc-notices/) and is
// created on first use. Announcements are keyed by course code, title and date, so
// re-scraping a page only inserts notices that were not seen before. The pure-Go
// modernc.org/sqlite driver is used, so no cgo toolchain is needed.
package storage
