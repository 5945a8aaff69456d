package sanitize

import "testing"

func TestText(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "Lead prefers mornings", "Lead prefers mornings"},
		{"html", "<b>call</b> back", "call back"},
		{"encoded tag", "&lt;script&gt;x&lt;/script&gt;ok", "xok"},
		{"blank lines", "a\r\n\r\n\r\n\r\nb", "a\n\nb"},
		{"control chars", "a\x00b\x07c", "abc"},
	}

	for _, tc := range cases {
		if got := Text(tc.in); got != tc.want {
			t.Fatalf("%s: expected %q, got %q", tc.name, tc.want, got)
		}
	}
}
