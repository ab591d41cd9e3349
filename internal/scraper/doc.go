// Package scraper provides HTTP fetching and HTML parsing for the SWAYAM / NPTEL course portal.
//
// The portal has no public API. Search results come from swayam.gov.in and announcement
// pages from onlinecourses.nptel.ac.in, with onlinecourses.swayam2.ac.in serving courses
// the primary host answers 404 for. Every request carries a fixed desktop-browser header
// set and compressed bodies (gzip, deflate, brotli, zstd) are decoded by the fetcher.
//
// Parsing is tolerant: missing fields become placeholders, announcement dates fall back
// from visible text to timestamps embedded in inline scripts, and only transport
// failures and non-2xx statuses are reported as errors.
package scraper
