package preferences

import (
	"reflect"
	"testing"
)

func TestSubscriptions(t *testing.T) {
	prefs := NewPreferences()

	if !prefs.Subscribe("alice", "noc26_cs01") {
		t.Error("Failed to subscribe alice to noc26_cs01")
	}
	if !prefs.Subscribe("alice", "cec26_ma02") {
		t.Error("Failed to subscribe alice to cec26_ma02")
	}

	if prefs.Subscribe("alice", "noc26_cs01") {
		t.Error("Should not subscribe twice to the same course")
	}
	if prefs.Subscribe("alice", "../etc") {
		t.Error("Should reject malformed course codes")
	}

	if got := prefs.Courses("alice"); len(got) != 2 {
		t.Errorf("Expected 2 courses, got %d", len(got))
	}

	if !prefs.Unsubscribe("alice", "noc26_cs01") {
		t.Error("Failed to unsubscribe from noc26_cs01")
	}
	if prefs.Unsubscribe("alice", "noc26_cs01") {
		t.Error("Should not unsubscribe from a course twice")
	}
	if prefs.Unsubscribe("nobody", "noc26_cs01") {
		t.Error("Unknown user has nothing to unsubscribe")
	}

	user := prefs.GetUser("bob")
	if !user.Active {
		t.Error("New user should be active")
	}
	if len(user.Courses) != 0 {
		t.Error("New user should have no courses")
	}
}

func TestSubscribersAndCodes(t *testing.T) {
	prefs := NewPreferences()
	prefs.Subscribe("carol", "noc26_cs01")
	prefs.Subscribe("alice", "noc26_cs01")
	prefs.Subscribe("alice", "cec26_ma02")
	prefs.Subscribe("dave", "aic26_ge03")
	prefs.GetUser("dave").Active = false

	if got, want := prefs.Subscribers("noc26_cs01"), []string{"alice", "carol"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Subscribers() = %v, want %v", got, want)
	}
	if got := prefs.Subscribers("aic26_ge03"); len(got) != 0 {
		t.Errorf("inactive users should not be subscribers, got %v", got)
	}

	want := []string{"cec26_ma02", "noc26_cs01"}
	if got := prefs.SubscribedCodes(); !reflect.DeepEqual(got, want) {
		t.Errorf("SubscribedCodes() = %v, want %v", got, want)
	}

	if got, want := prefs.UserIDs(), []string{"alice", "carol", "dave"}; !reflect.DeepEqual(got, want) {
		t.Errorf("UserIDs() = %v, want %v", got, want)
	}
}

func TestAddUserAndChannels(t *testing.T) {
	prefs := NewPreferences()

	user, err := prefs.AddUser("alice", "Alice", "alice@example.com", "")
	if err != nil {
		t.Fatalf("AddUser() error = %v", err)
	}
	if !user.HasChannel(ChannelEmail) || user.HasChannel(ChannelTelegram) {
		t.Errorf("Channels = %v, want only email", user.Channels)
	}

	if err := prefs.AddChannel("alice", ChannelTelegram); err == nil {
		t.Error("AddChannel() should fail without a Telegram chat ID")
	}

	if _, err := prefs.AddUser("alice", "", "", "987654"); err != nil {
		t.Fatalf("AddUser() update error = %v", err)
	}
	if user.Name != "Alice" {
		t.Errorf("Name = %q, an empty update should keep it", user.Name)
	}
	if got := user.Address(ChannelTelegram); got != "987654" {
		t.Errorf("Address(telegram) = %q, want 987654", got)
	}
	if len(user.Channels) != 2 {
		t.Errorf("Channels = %v, want email and telegram", user.Channels)
	}

	if err := prefs.AddChannel("alice", "EMAIL"); err != nil {
		t.Errorf("AddChannel() of an enabled channel error = %v", err)
	}
	if len(user.Channels) != 2 {
		t.Errorf("Channels = %v, should not duplicate", user.Channels)
	}

	if err := prefs.AddChannel("alice", "sms"); err == nil {
		t.Error("AddChannel() should reject unknown channels")
	}
	if err := prefs.AddChannel("nobody", ChannelEmail); err == nil {
		t.Error("AddChannel() should reject unknown users")
	}
	if _, err := prefs.AddUser(" ", "", "", ""); err == nil {
		t.Error("AddUser() should require an ID")
	}
}

func TestIsValidCourseCode(t *testing.T) {
	tests := []struct {
		code string
		want bool
	}{
		{"noc26_cs01", true},
		{"cec26-ge03", true},
		{"AIC26MA1", true},
		{"noc26.ee12", true},
		{".noc26", false},
		{"../etc", false},
		{"", false},
		{"_noc", false},
		{"noc26/cs01", false},
		{"noc 26", false},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			if got := IsValidCourseCode(tt.code); got != tt.want {
				t.Errorf("IsValidCourseCode(%q) = %v, want %v", tt.code, got, tt.want)
			}
		})
	}
}

func TestJSONMarshaling(t *testing.T) {
	prefs := NewPreferences()
	prefs.AddUser("alice", "Alice", "alice@example.com", "")
	prefs.Subscribe("alice", "noc26_cs01")

	data, err := prefs.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON() error = %v", err)
	}

	loaded, err := FromJSON(data)
	if err != nil {
		t.Fatalf("FromJSON() error = %v", err)
	}
	if !reflect.DeepEqual(loaded, prefs) {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", loaded["alice"], prefs["alice"])
	}

	if _, err := FromJSON([]byte("{not json")); err == nil {
		t.Error("FromJSON() should fail on invalid JSON")
	}

	empty, err := FromJSON([]byte("null"))
	if err != nil || empty == nil {
		t.Errorf("FromJSON(null) = %v, %v; want empty preferences", empty, err)
	}
}

func TestFromJSON_NullUsers(t *testing.T) {
	tests := []struct {
		name  string
		data  string
		users []string
		codes []string
	}{
		{
			name:  "null entry dropped",
			data:  `{"alice": null, "bob": {"courses": ["noc26_cs01"], "channels": ["email"], "active": true}}`,
			users: []string{"bob"},
			codes: []string{"noc26_cs01"},
		},
		{
			name:  "only null entries",
			data:  `{"alice": null}`,
			users: []string{},
			codes: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prefs, err := FromJSON([]byte(tt.data))
			if err != nil {
				t.Fatalf("FromJSON() error = %v", err)
			}
			if got := prefs.UserIDs(); !reflect.DeepEqual(got, tt.users) {
				t.Errorf("UserIDs() = %v, want %v", got, tt.users)
			}
			if got := prefs.SubscribedCodes(); !reflect.DeepEqual(got, tt.codes) {
				t.Errorf("SubscribedCodes() = %v, want %v", got, tt.codes)
			}
			if got := prefs.Subscribers("noc26_cs01"); len(got) != len(tt.codes) {
				t.Errorf("Subscribers() = %v", got)
			}
		})
	}
}
