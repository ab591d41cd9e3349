// Package cli implements the command-line interface for mooc-notices.
//
// The cli package provides the Cobra-based CLI: searching the portal, reading course
// announcements (as text, JSON or an iCalendar file), an interactive prompt, managing
// subscriptions, checking subscribed courses for new announcements and delivering
// them, a cron-driven watcher and the REST API server. It wires config, scraper,
// storage, catalog, preferences and notifier together.
package cli
