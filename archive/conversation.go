// Package archive reads OpenAI-style conversation exports: a conversations.json
// document plus an optional directory of attachment/generated-image files.
// Decoding is deliberately tolerant. The export schema is only informally
// specified and drifts between dumps, so loose fields collapse to usable
// values here instead of failing deep inside the pipeline.
package archive

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Timestamp is a unix-seconds value as exports encode it: a number, a numeric
// string, null, or occasionally garbage. Decoding never fails; anything that
// isn't numeric becomes 0, which downstream ordering treats as "unset".
type Timestamp float64

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "" || s == "null" {
		*t = 0
		return nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		*t = Timestamp(f)
		return nil
	}
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		if f, err := strconv.ParseFloat(strings.TrimSpace(str), 64); err == nil {
			*t = Timestamp(f)
			return nil
		}
	}
	*t = 0
	return nil
}

// Seconds returns the raw unix-seconds value.
func (t Timestamp) Seconds() float64 { return float64(t) }

// Time converts to a time.Time. Non-positive timestamps are reported as the
// zero time so 1970-era artifacts never reach human-facing output.
func (t Timestamp) Time() time.Time {
	if t <= 0 {
		return time.Time{}
	}
	ns := int64(math.Round(float64(t) * 1e9))
	return time.Unix(0, ns)
}

// Author is a message author. Exports use either an object with role/name or a
// bare role string; other shapes decode to the zero value.
type Author struct {
	Role string `json:"role"`
	Name string `json:"name"`
}

func (a *Author) UnmarshalJSON(data []byte) error {
	type plain Author
	var obj plain
	if err := json.Unmarshal(data, &obj); err == nil {
		*a = Author(obj)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		a.Role = s
		a.Name = ""
		return nil
	}
	*a = Author{}
	return nil
}

// flexString decodes string-ish fields: bare strings as-is, role/name objects
// collapsed to their first non-empty field, everything else to "".
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = flexString(s)
		return nil
	}
	var obj struct {
		Role string `json:"role"`
		Name string `json:"name"`
	}
	if err := json.Unmarshal(data, &obj); err == nil {
		if obj.Role != "" {
			*f = flexString(obj.Role)
		} else {
			*f = flexString(obj.Name)
		}
		return nil
	}
	*f = ""
	return nil
}

// Message is one message record. Content stays raw here; classifying it is the
// normalize package's job.
type Message struct {
	ID         string          `json:"id"`
	Author     Author          `json:"author"`
	Role       flexString      `json:"role"`
	Sender     flexString      `json:"sender"`
	Recipient  string          `json:"recipient"`
	Audience   string          `json:"audience"`
	CreateTime Timestamp       `json:"create_time"`
	Content    json.RawMessage `json:"content"`
}

// RawRole returns the message's role before any label mapping, trying the
// places exports have kept it, in priority order: a top-level role field, the
// author object's role, the author's name, then a legacy sender field. Empty
// means the role is unknown.
func (m *Message) RawRole() string {
	for _, cand := range []string{string(m.Role), m.Author.Role, m.Author.Name, string(m.Sender)} {
		if s := strings.TrimSpace(cand); s != "" {
			return s
		}
	}
	return ""
}

// RawAudience returns the tool or function the message addresses, verbatim.
func (m *Message) RawAudience() string {
	for _, cand := range []string{m.Recipient, m.Audience} {
		if s := strings.TrimSpace(cand); s != "" {
			return s
		}
	}
	return ""
}

// Node is one entry in a conversation's mapping. Parent/Children linkage is
// kept for completeness but the pipeline only iterates nodes.
type Node struct {
	ID         string    `json:"id"`
	Message    *Message  `json:"message"`
	Parent     *string   `json:"parent"`
	Children   []string  `json:"children"`
	CreateTime Timestamp `json:"create_time"`
}

// Mapping is a conversation's keyed node set. Decoding walks the object's
// tokens so Nodes preserves the document order of the keys; that order is the
// deterministic tie-break when messages share a timestamp.
type Mapping struct {
	Nodes []Node
}

func (m *Mapping) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("mapping: read first token: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("mapping is not an object")
	}

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("mapping: read key: %w", err)
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("mapping: key is not a string")
		}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("mapping: decode node %q: %w", key, err)
		}

		// Non-object entries carry no message and are skipped outright.
		trimmed := bytes.TrimSpace(raw)
		if len(trimmed) == 0 || trimmed[0] != '{' {
			continue
		}

		var n Node
		if err := json.Unmarshal(raw, &n); err != nil {
			return fmt.Errorf("mapping: node %q: %w", key, err)
		}
		if n.ID == "" {
			n.ID = key
		}
		m.Nodes = append(m.Nodes, n)
	}

	if tok, err := dec.Token(); err != nil {
		return fmt.Errorf("mapping: read closing token: %w", err)
	} else if d, ok := tok.(json.Delim); !ok || d != '}' {
		return fmt.Errorf("mapping: expected closing '}', got %v", tok)
	}
	return nil
}

// Conversation is one exported chat session.
type Conversation struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	Title          string    `json:"title"`
	Name           string    `json:"name"`
	Subject        string    `json:"subject"`
	Topic          string    `json:"topic"`
	CreateTime     Timestamp `json:"create_time"`
	UpdateTime     Timestamp `json:"update_time"`
	Mapping        *Mapping  `json:"mapping"`
}

// DisplayTitle returns the first non-empty title-ish field. Exports have
// shipped the title under several names over time.
func (c *Conversation) DisplayTitle() string {
	for _, cand := range []string{c.Title, c.Name, c.Subject, c.Topic} {
		if s := strings.TrimSpace(cand); s != "" {
			return s
		}
	}
	return ""
}

// When returns the conversation's display timestamp: create_time, falling
// back to update_time, zero when neither is usable.
func (c *Conversation) When() Timestamp {
	if c.CreateTime > 0 {
		return c.CreateTime
	}
	if c.UpdateTime > 0 {
		return c.UpdateTime
	}
	return 0
}

// Ident returns the most specific identifier available for diagnostics.
func (c *Conversation) Ident() string {
	if c.ConversationID != "" {
		return c.ConversationID
	}
	if c.ID != "" {
		return c.ID
	}
	if t := c.DisplayTitle(); t != "" {
		return t
	}
	return "conversation"
}
