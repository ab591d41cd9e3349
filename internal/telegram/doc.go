// Package telegram sends course announcements through the Telegram Bot API.
//
// Messages are formatted as Telegram HTML with an inline button linking to the course
// page. Calendar files are sent as documents. Authentication requires a bot token
// (from @BotFather); the chat ID is given per message so one bot can serve many learners.
package telegram
