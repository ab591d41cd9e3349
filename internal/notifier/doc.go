// Package notifier delivers new course announcements to subscribers.
//
// A Notifier sends a batch of per-course updates to one recipient over one channel:
// Telegram, email (SMTP via gomail) or Twitter for the public feed. A DryRunNotifier
// prints what would be sent. The Dispatcher fans updates out to every subscriber's
// enabled channels, records each delivery in the notification log and counts
// successes and failures in metrics.
package notifier
