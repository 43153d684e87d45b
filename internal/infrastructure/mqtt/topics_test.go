package mqtt

import "testing"

func TestTopics(t *testing.T) {
	topics := Topics{Prefix: "judo"}

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"connected", topics.Connected(), "judo/connected"},
		{"status", topics.Status("i-soft plus", "water total"), "judo/status/i-soft plus/water total"},
		{"event", topics.Event("i-soft plus", 71), "judo/event/i-soft plus/71"},
		{"set wildcard", topics.SetWildcard(), "judo/set/+/+"},
		{"cmd wildcard", topics.CmdWildcard(), "judo/cmd/+"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}
}

func TestTopicsInstancePrefix(t *testing.T) {
	topics := Topics{Prefix: "softener-cellar"}

	if got := topics.Connected(); got != "softener-cellar/connected" {
		t.Errorf("Connected() = %q, want softener-cellar/connected", got)
	}
}

func TestConnectionStatusValues(t *testing.T) {
	// The wire values are part of the external contract; a change here
	// breaks every dashboard subscribed to the connected topic.
	if ConnectionUnknown != "0" || ConnectionConnecting != "1" || ConnectionConnected != "2" {
		t.Errorf("connection status values = %q/%q/%q, want 0/1/2",
			ConnectionUnknown, ConnectionConnecting, ConnectionConnected)
	}
}
