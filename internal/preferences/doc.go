// Package preferences manages learners and their course subscriptions.
//
// Each user is keyed by a short ID and carries contact details (email, Telegram chat ID),
// the course codes they follow and the channels announcements should reach them on.
// Preferences are stored as JSON either in a local file in the data directory or in a
// private GitHub Gist. Contact details can be encrypted at rest with internal/crypto.
package preferences
