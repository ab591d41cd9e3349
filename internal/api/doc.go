// Package api serves the course cache over HTTP.
//
// Routes:
//
//	GET  /healthz
//	GET  /metrics
//	GET  /search?q=<query>[&nc=NPTEL][&institute=IIT]
//	GET  /courses
//	GET  /courses/:code
//	GET  /courses/:code/announcements[?since=<range>]
//	GET  /courses/:code/calendar.ics
//	GET  /users/:id/notifications
//	POST /notifications/:id/read
//
// Errors are returned as {"error": "<message>"}. Failures talking to the portal map
// to 502 Bad Gateway and unknown records to 404.
package api
