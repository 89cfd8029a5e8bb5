package site

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonicalize(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   string
		want string
	}{
		{"simple", "Hello World", "Hello_World"},
		{"slashes", "a/b\\c", "a-b-c"},
		{"punctuation stripped", "What?! Really: yes", "What_Really_yes"},
		{"kept chars", "notes-1.2 (draft) & more", "notes-1.2_(draft)_&_more"},
		{"whitespace collapsed", "  a \t\t b  ", "a_b"},
		{"unicode decomposed", "Café au lait", "Cafe_au_lait"},
		{"empty", "", "untitled"},
		{"only junk", "???!!!", "untitled"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, Canonicalize(tc.in))
			assert.Equal(t, Canonicalize(tc.in), Canonicalize(tc.in), "must be deterministic")
		})
	}
}

func TestCanonicalize_Truncation(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("a", 130)
	got := Canonicalize(long)
	assert.Len(t, got, 120)

	// Truncation never leaves a dangling dot, dash, or underscore.
	dotty := strings.Repeat("a", 118) + "..."
	assert.Equal(t, strings.Repeat("a", 118), Canonicalize(dotty))

	assert.Equal(t, "untitled", Canonicalize(strings.Repeat(".", 130)))
}

func TestNamer_Collisions(t *testing.T) {
	t.Parallel()

	n := newNamer()
	assert.Equal(t, "Chat.html", n.claim("Chat"))
	assert.Equal(t, "Chat__2.html", n.claim("Chat"))
	assert.Equal(t, "Chat__3.html", n.claim("Chat"))
	assert.Equal(t, "Other.html", n.claim("Other"))
}

func TestNamer_ReservesIndex(t *testing.T) {
	t.Parallel()

	n := newNamer()
	assert.Equal(t, "index__2.html", n.claim("index"))
}
