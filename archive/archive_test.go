package archive

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeArchive(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "conversations.json")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoad_BareArray(t *testing.T) {
	t.Parallel()

	path := writeArchive(t, `[
		{"id": "c1", "title": "First", "create_time": 100},
		{"id": "c2", "title": "Second", "create_time": 200}
	]`)

	res, err := Load(context.Background(), path, LoadOptions{Logger: zerolog.Nop()})
	require.NoError(t, err)
	require.Len(t, res.Conversations, 2)
	assert.Equal(t, 0, res.Skipped)
	assert.Equal(t, "First", res.Conversations[0].Title)
	assert.Equal(t, "Second", res.Conversations[1].Title)
}

func TestLoad_WrapperObject(t *testing.T) {
	t.Parallel()

	path := writeArchive(t, `{
		"exported_at": "2024-01-01",
		"settings": {"theme": "dark", "tags": ["a", "b"]},
		"conversations": [{"id": "c1", "title": "Wrapped"}]
	}`)

	res, err := Load(context.Background(), path, LoadOptions{})
	require.NoError(t, err)
	require.Len(t, res.Conversations, 1)
	assert.Equal(t, "Wrapped", res.Conversations[0].Title)
}

func TestLoad_ExplicitArrayField(t *testing.T) {
	t.Parallel()

	path := writeArchive(t, `{"sessions": [{"id": "c1", "title": "Custom"}]}`)

	res, err := Load(context.Background(), path, LoadOptions{ArrayField: "sessions"})
	require.NoError(t, err)
	require.Len(t, res.Conversations, 1)
	assert.Equal(t, "Custom", res.Conversations[0].Title)

	_, err = Load(context.Background(), path, LoadOptions{ArrayField: "missing"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"missing" not found`)
}

func TestLoad_SkipsMalformedElement(t *testing.T) {
	t.Parallel()

	path := writeArchive(t, `[
		{"id": "c1", "title": "Good"},
		42,
		{"id": "c2", "title": "Also good", "mapping": {"n": {"message": "not an object"}}},
		{"id": "c3", "title": "Fine"}
	]`)

	res, err := Load(context.Background(), path, LoadOptions{Logger: zerolog.Nop()})
	require.NoError(t, err)
	require.Len(t, res.Conversations, 2)
	assert.Equal(t, 2, res.Skipped)
	assert.Equal(t, "Good", res.Conversations[0].Title)
	assert.Equal(t, "Fine", res.Conversations[1].Title)

	_, err = Load(context.Background(), path, LoadOptions{Strict: true})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "conversation 1")
}

func TestLoad_Errors(t *testing.T) {
	t.Parallel()

	_, err := Load(context.Background(), filepath.Join(t.TempDir(), "nope.json"), LoadOptions{})
	require.Error(t, err)

	_, err = Load(context.Background(), writeArchive(t, `"just a string"`), LoadOptions{})
	require.Error(t, err)

	_, err = Load(context.Background(), writeArchive(t, `{"notes": {"a": 1}}`), LoadOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no conversation array found")

	_, err = Load(context.Background(), "", LoadOptions{})
	require.Error(t, err)
}

func TestTimestamp_Decode(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   string
		want float64
	}{
		{"number", `1700000000.25`, 1700000000.25},
		{"numeric string", `"1700000000.5"`, 1700000000.5},
		{"padded numeric string", `" 42 "`, 42},
		{"null", `null`, 0},
		{"word string", `"yesterday"`, 0},
		{"object", `{"weird": true}`, 0},
		{"bool", `true`, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			var ts Timestamp
			require.NoError(t, json.Unmarshal([]byte(tc.in), &ts))
			assert.Equal(t, tc.want, ts.Seconds())
		})
	}
}

func TestMessage_RawRole(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   string
		want string
	}{
		{"top-level role wins", `{"role": "user", "author": {"role": "assistant"}}`, "user"},
		{"role object collapses", `{"role": {"role": "tool", "name": "browser"}}`, "tool"},
		{"author role", `{"author": {"role": "assistant"}}`, "assistant"},
		{"author name fallback", `{"author": {"name": "plugin"}}`, "plugin"},
		{"author bare string", `{"author": "system"}`, "system"},
		{"sender fallback", `{"sender": "assistant"}`, "assistant"},
		{"nothing", `{"id": "m1"}`, ""},
		{"whitespace ignored", `{"role": "  ", "sender": "user"}`, "user"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			var m Message
			require.NoError(t, json.Unmarshal([]byte(tc.in), &m))
			assert.Equal(t, tc.want, m.RawRole())
		})
	}
}

func TestMessage_RawAudience(t *testing.T) {
	t.Parallel()

	var m Message
	require.NoError(t, json.Unmarshal([]byte(`{"recipient": "python", "audience": "all"}`), &m))
	assert.Equal(t, "python", m.RawAudience())

	m = Message{}
	require.NoError(t, json.Unmarshal([]byte(`{"audience": "all"}`), &m))
	assert.Equal(t, "all", m.RawAudience())
}

func TestMapping_PreservesDocumentOrder(t *testing.T) {
	t.Parallel()

	var mp Mapping
	require.NoError(t, json.Unmarshal([]byte(`{
		"zz-first": {"message": {"id": "m1"}},
		"not-a-node": 17,
		"aa-second": {"id": "explicit-id", "message": null},
		"also-skipped": "text"
	}`), &mp))

	require.Len(t, mp.Nodes, 2)
	assert.Equal(t, "zz-first", mp.Nodes[0].ID)
	assert.Equal(t, "explicit-id", mp.Nodes[1].ID)
	require.NotNil(t, mp.Nodes[0].Message)
	assert.Nil(t, mp.Nodes[1].Message)
}

func TestMapping_RejectsNonObject(t *testing.T) {
	t.Parallel()

	var mp Mapping
	require.Error(t, json.Unmarshal([]byte(`[1, 2, 3]`), &mp))

	require.Error(t, json.Unmarshal([]byte(`{"n": {"message": "bare string"}}`), &mp))
}

func TestConversation_DisplayTitle(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   string
		want string
	}{
		{"title", `{"title": "A", "name": "B"}`, "A"},
		{"name fallback", `{"name": "B", "subject": "C"}`, "B"},
		{"subject fallback", `{"subject": "C"}`, "C"},
		{"topic fallback", `{"topic": "D"}`, "D"},
		{"blank title skipped", `{"title": "   ", "name": "B"}`, "B"},
		{"none", `{"id": "c1"}`, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			var c Conversation
			require.NoError(t, json.Unmarshal([]byte(tc.in), &c))
			assert.Equal(t, tc.want, c.DisplayTitle())
		})
	}
}

func TestConversation_When(t *testing.T) {
	t.Parallel()

	c := Conversation{CreateTime: 100, UpdateTime: 200}
	assert.Equal(t, Timestamp(100), c.When())

	c = Conversation{UpdateTime: 200}
	assert.Equal(t, Timestamp(200), c.When())

	c = Conversation{}
	assert.Equal(t, Timestamp(0), c.When())
	assert.True(t, c.When().Time().IsZero())
}
