// Package course provides the record types shared by the scraper and its consumers.
//
// A Course is one card from a SWAYAM search results page, identified by the code segment
// of its preview URL. An Announcement is one notice from a course's announcements page.
// Announcements do not reference their course; storage and notification code pair them
// with a course code and derive a deterministic SHA1 ID from (code, title, date).
//
// The package also parses the free-form date strings found on announcement pages and
// groups newly discovered announcements by course for delivery.
package course
