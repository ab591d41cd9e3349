package preferences

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"slices"
	"sort"
	"strings"

	"github.com/tashifkhan/MOOC-utils/internal/crypto"
)

// Delivery channels a user can enable
const (
	ChannelEmail    = "email"
	ChannelTelegram = "telegram"
)

var courseCodePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// UserPreferences represents a user's contact details and course subscriptions
type UserPreferences struct {
	Name           string   `json:"name,omitempty"`
	Email          string   `json:"email,omitempty"`
	TelegramChatID string   `json:"telegram_chat_id,omitempty"`
	Courses        []string `json:"courses"`
	Channels       []string `json:"channels"`
	Active         bool     `json:"active"`
}

// HasChannel reports whether the channel is enabled for the user
func (u *UserPreferences) HasChannel(channel string) bool {
	return slices.Contains(u.Channels, channel)
}

// Address returns the user's address for a channel, empty if none is set
func (u *UserPreferences) Address(channel string) string {
	switch channel {
	case ChannelEmail:
		return u.Email
	case ChannelTelegram:
		return u.TelegramChatID
	}
	return ""
}

// Preferences maps user IDs to user preferences
type Preferences map[string]*UserPreferences

// Storage defines the interface for preferences storage
type Storage interface {
	Load(ctx context.Context) (Preferences, error)
	Save(ctx context.Context, prefs Preferences) error
}

// NewPreferences creates a new empty preferences map
func NewPreferences() Preferences {
	return make(Preferences)
}

// GetUser retrieves preferences for a specific user, creating them if they don't exist
func (p Preferences) GetUser(userID string) *UserPreferences {
	if user, exists := p[userID]; exists {
		return user
	}
	p[userID] = &UserPreferences{
		Courses:  []string{},
		Channels: []string{},
		Active:   true,
	}
	return p[userID]
}

// AddUser creates or updates a user's contact details. Every channel with an
// address is enabled.
func (p Preferences) AddUser(userID, name, email, telegramChatID string) (*UserPreferences, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, fmt.Errorf("user ID is required")
	}

	user := p.GetUser(userID)
	if name != "" {
		user.Name = name
	}
	if email != "" {
		user.Email = strings.TrimSpace(email)
		if err := p.AddChannel(userID, ChannelEmail); err != nil {
			return nil, err
		}
	}
	if telegramChatID != "" {
		user.TelegramChatID = strings.TrimSpace(telegramChatID)
		if err := p.AddChannel(userID, ChannelTelegram); err != nil {
			return nil, err
		}
	}
	return user, nil
}

// AddChannel enables a delivery channel. The user must already have an address
// for it.
func (p Preferences) AddChannel(userID, channel string) error {
	channel = strings.ToLower(strings.TrimSpace(channel))
	if channel != ChannelEmail && channel != ChannelTelegram {
		return fmt.Errorf("unknown channel %q (want %s or %s)", channel, ChannelEmail, ChannelTelegram)
	}

	user, exists := p[userID]
	if !exists {
		return fmt.Errorf("unknown user %q", userID)
	}
	if user.Address(channel) == "" {
		return fmt.Errorf("user %q has no %s address", userID, channel)
	}
	if !user.HasChannel(channel) {
		user.Channels = append(user.Channels, channel)
	}
	return nil
}

// Subscribe adds a course to a user's subscriptions. It returns false when the
// code is invalid or the user already follows the course.
func (p Preferences) Subscribe(userID, code string) bool {
	code = strings.TrimSpace(code)
	if !IsValidCourseCode(code) {
		return false
	}

	user := p.GetUser(userID)
	if slices.Contains(user.Courses, code) {
		return false
	}
	user.Courses = append(user.Courses, code)
	return true
}

// Unsubscribe removes a course from a user's subscriptions
func (p Preferences) Unsubscribe(userID, code string) bool {
	code = strings.TrimSpace(code)

	user, exists := p[userID]
	if !exists {
		return false
	}

	i := slices.Index(user.Courses, code)
	if i < 0 {
		return false
	}
	user.Courses = slices.Delete(user.Courses, i, i+1)
	return true
}

// Courses returns the course codes a user follows
func (p Preferences) Courses(userID string) []string {
	if user, exists := p[userID]; exists {
		return user.Courses
	}
	return []string{}
}

// Subscribers returns the active users following a course, sorted by ID
func (p Preferences) Subscribers(code string) []string {
	users := make([]string, 0)
	for id, user := range p {
		if user.Active && slices.Contains(user.Courses, code) {
			users = append(users, id)
		}
	}
	sort.Strings(users)
	return users
}

// SubscribedCodes returns every course code followed by at least one active user, sorted
func (p Preferences) SubscribedCodes() []string {
	seen := make(map[string]bool)
	codes := make([]string, 0)
	for _, user := range p {
		if !user.Active {
			continue
		}
		for _, code := range user.Courses {
			if !seen[code] {
				seen[code] = true
				codes = append(codes, code)
			}
		}
	}
	sort.Strings(codes)
	return codes
}

// UserIDs returns all user IDs, sorted
func (p Preferences) UserIDs() []string {
	ids := make([]string, 0, len(p))
	for id := range p {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ToJSON marshals preferences to JSON
func (p Preferences) ToJSON() ([]byte, error) {
	return json.MarshalIndent(p, "", "  ")
}

// FromJSON unmarshals preferences from JSON
func FromJSON(data []byte) (Preferences, error) {
	var prefs Preferences
	if err := json.Unmarshal(data, &prefs); err != nil {
		return nil, fmt.Errorf("unmarshaling preferences: %w", err)
	}
	if prefs == nil {
		prefs = NewPreferences()
	}
	// A hand-edited file may carry "user": null
	for id, user := range prefs {
		if user == nil {
			delete(prefs, id)
		}
	}
	return prefs, nil
}

// IsValidCourseCode checks that a course code looks like a portal URL segment
// such as noc26_cs01 or noc26.ee12
func IsValidCourseCode(code string) bool {
	return courseCodePattern.MatchString(code)
}

// sealed returns a copy of prefs with contact details encrypted
func sealed(enc *crypto.Encryptor, prefs Preferences) (Preferences, error) {
	if enc == nil {
		return prefs, nil
	}

	out := make(Preferences, len(prefs))
	for id, user := range prefs {
		u := *user
		if err := enc.EncryptFields(&u.Email, &u.TelegramChatID); err != nil {
			return nil, fmt.Errorf("encrypting user %s: %w", id, err)
		}
		out[id] = &u
	}
	return out, nil
}

// open decrypts contact details in place
func open(enc *crypto.Encryptor, prefs Preferences) error {
	for id, user := range prefs {
		if err := enc.DecryptFields(&user.Email, &user.TelegramChatID); err != nil {
			return fmt.Errorf("decrypting user %s: %w", id, err)
		}
	}
	return nil
}
