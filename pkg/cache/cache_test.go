package cache

import (
	"net/url"
	"testing"
	"time"
)

func TestKey_String(t *testing.T) {
	tests := []struct {
		name     string
		key      Key
		expected string
	}{
		{
			name:     "endpoint only",
			key:      Key{Endpoint: "/questions"},
			expected: "se:questions",
		},
		{
			name: "params sorted by name",
			key: Key{
				Endpoint: "/questions",
				Query: url.Values{
					"tagged": {"nlp"},
					"order":  {"desc"},
					"site":   {"stackoverflow"},
				},
			},
			expected: "se:questions:order=desc:site=stackoverflow:tagged=nlp",
		},
		{
			name: "api key excluded from identity",
			key: Key{
				Endpoint: "/questions",
				Query: url.Values{
					"tagged": {"nlp"},
					"key":    {"secret"},
				},
			},
			expected: "se:questions:tagged=nlp",
		},
		{
			name: "batch answer path",
			key: Key{
				Endpoint: "/answers/1;2;3",
				Query:    url.Values{"site": {"stackoverflow"}},
			},
			expected: "se:answers/1;2;3:site=stackoverflow",
		},
		{
			name:     "empty key",
			key:      Key{},
			expected: "se",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.key.String(); got != tt.expected {
				t.Errorf("String() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestKey_String_Deterministic(t *testing.T) {
	key := Key{
		Endpoint: "/questions",
		Query: url.Values{
			"a": {"1"},
			"b": {"2"},
			"c": {"3"},
		},
	}

	first := key.String()
	for i := 0; i < 10; i++ {
		if got := key.String(); got != first {
			t.Fatalf("String() = %q on iteration %d, want stable %q", got, i, first)
		}
	}
}

func TestKey_String_SamePageWithAndWithoutAPIKey(t *testing.T) {
	base := url.Values{"tagged": {"nlp"}, "site": {"stackoverflow"}}

	withKey := url.Values{}
	for k, v := range base {
		withKey[k] = v
	}
	withKey.Set("key", "secret")

	anon := Key{Endpoint: "/questions", Query: base}
	authed := Key{Endpoint: "/questions", Query: withKey}

	if anon.String() != authed.String() {
		t.Errorf("Authenticated key = %q, anonymous = %q, want identical", authed.String(), anon.String())
	}
}

func TestEntry_IsExpired(t *testing.T) {
	tests := []struct {
		name     string
		expires  time.Time
		expected bool
	}{
		{"future expiry", time.Now().Add(time.Hour), false},
		{"past expiry", time.Now().Add(-time.Hour), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := Entry{Expires: tt.expires}
			if got := entry.IsExpired(); got != tt.expected {
				t.Errorf("IsExpired() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestEntry_TTL(t *testing.T) {
	entry := Entry{Expires: time.Now().Add(time.Hour)}
	ttl := entry.TTL()
	if ttl <= 0 || ttl > time.Hour {
		t.Errorf("TTL() = %v, want within (0, 1h]", ttl)
	}

	expired := Entry{Expires: time.Now().Add(-time.Minute)}
	if got := expired.TTL(); got != 0 {
		t.Errorf("TTL() on expired entry = %v, want 0", got)
	}
}
