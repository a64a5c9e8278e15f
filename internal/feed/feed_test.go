package feed

import (
	"testing"
	"time"
)

func TestBackoff(t *testing.T) {
	t.Parallel()

	initial := time.Second
	max := 30 * time.Second

	cases := []struct {
		name    string
		attempt int
		min     time.Duration
		max     time.Duration
	}{
		{name: "first attempt", attempt: 0, min: time.Second, max: 1250 * time.Millisecond},
		{name: "second doubles", attempt: 1, min: 2 * time.Second, max: 2500 * time.Millisecond},
		{name: "fifth", attempt: 4, min: 16 * time.Second, max: 20 * time.Second},
		{name: "capped", attempt: 10, min: 30 * time.Second, max: 30 * time.Second},
		{name: "way past cap", attempt: 100, min: 30 * time.Second, max: 30 * time.Second},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			for i := 0; i < 50; i++ {
				got := Backoff(tc.attempt, initial, max)
				if got < tc.min || got > tc.max {
					t.Fatalf("Backoff(%d) = %s, want within [%s, %s]", tc.attempt, got, tc.min, tc.max)
				}
			}
		})
	}
}

func TestNewClientAppendsToken(t *testing.T) {
	t.Parallel()

	c, err := NewClient("wss://feed.example.com/ws", "secret", time.Second, 30*time.Second)
	if err != nil {
		t.Fatal(err)
	}
	if want := "wss://feed.example.com/ws?api-key=secret"; c.endpoint != want {
		t.Errorf("endpoint = %q, want %q", c.endpoint, want)
	}

	c, err = NewClient("wss://feed.example.com/ws", "", time.Second, 30*time.Second)
	if err != nil {
		t.Fatal(err)
	}
	if want := "wss://feed.example.com/ws"; c.endpoint != want {
		t.Errorf("endpoint without token = %q, want %q", c.endpoint, want)
	}
}
