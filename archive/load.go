package archive

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// conversationListKeys are the wrapper-object keys under which exports have
// been seen to nest the conversation array.
var conversationListKeys = []string{"conversations", "items", "data", "threads"}

// LoadOptions control how an export document is read.
type LoadOptions struct {
	// ArrayField names the wrapper-object key holding the conversation
	// array. Empty means: accept a bare top-level array, or probe the
	// known wrapper keys in document order.
	ArrayField string

	// Strict aborts the load on the first element that fails to decode
	// instead of skipping it.
	Strict bool

	// Logger receives a warning per skipped element. The zero value is
	// silent; pass zerolog.Nop() to be explicit about that.
	Logger zerolog.Logger
}

// LoadResult is what a load produced.
type LoadResult struct {
	Conversations []*Conversation
	Skipped       int
}

// Load reads a conversation export from path. The document may be a bare JSON
// array of conversations or an object wrapping that array under a known key;
// opts.ArrayField forces a specific key for wrappers Load does not recognize.
//
// The file is consumed through a streaming decoder and each element is decoded
// in isolation, so one mangled record costs that record, not the run, unless
// opts.Strict is set. Broken JSON syntax always aborts: there is no safe way
// to resync a stream.
func Load(ctx context.Context, path string, opts LoadOptions) (*LoadResult, error) {
	if ctx == nil {
		return nil, errors.New("Load: ctx is nil")
	}
	if path == "" {
		return nil, errors.New("Load: path is empty")
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("Load: open archive: %w", err)
	}
	defer f.Close()

	dec := json.NewDecoder(bufio.NewReaderSize(f, 1<<20))

	if err := seekConversationList(dec, opts.ArrayField); err != nil {
		return nil, fmt.Errorf("Load: %w", err)
	}

	res := &LoadResult{}
	for dec.More() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		idx := len(res.Conversations) + res.Skipped

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("Load: read element %d: %w", idx, err)
		}

		conv := &Conversation{}
		if err := json.Unmarshal(raw, conv); err != nil {
			if opts.Strict {
				return nil, fmt.Errorf("Load: conversation %d: %w", idx, err)
			}
			opts.Logger.Warn().Int("index", idx).Err(err).Msg("skipping malformed conversation record")
			res.Skipped++
			continue
		}
		res.Conversations = append(res.Conversations, conv)
	}

	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("Load: read closing token: %w", err)
	}
	return res, nil
}

// seekConversationList advances dec to just inside the conversation array:
// past the opening '[' of a bare array, or through the wrapper object's keys
// to the named (or first recognized) array field.
func seekConversationList(dec *json.Decoder, field string) error {
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("read first token: %w", err)
	}
	d, ok := tok.(json.Delim)
	if !ok {
		return fmt.Errorf("top-level value is %v, want an array or object", tok)
	}
	if d == '[' {
		return nil
	}
	if d != '{' {
		return fmt.Errorf("top-level value starts with %q, want an array or object", d.String())
	}

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("read object key: %w", err)
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("object key is not a string")
		}

		wanted := (field != "" && key == field) ||
			(field == "" && isConversationListKey(key))
		if !wanted {
			if err := skipValue(dec); err != nil {
				return fmt.Errorf("skip field %q: %w", key, err)
			}
			continue
		}

		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("read %q value: %w", key, err)
		}
		if d, ok := tok.(json.Delim); ok {
			if d == '[' {
				return nil
			}
			if err := skipContainer(dec); err != nil {
				return fmt.Errorf("skip field %q: %w", key, err)
			}
		}
		if field != "" {
			return fmt.Errorf("field %q is not an array", field)
		}
		// Known key with a non-array value; keep probing.
	}

	if field != "" {
		return fmt.Errorf("field %q not found", field)
	}
	return fmt.Errorf("no conversation array found (tried %s); name one with an explicit array field",
		strings.Join(conversationListKeys, ", "))
}

func isConversationListKey(key string) bool {
	for _, k := range conversationListKeys {
		if key == k {
			return true
		}
	}
	return false
}

// skipValue consumes the next complete JSON value from dec.
func skipValue(dec *json.Decoder) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); ok && (d == '{' || d == '[') {
		return skipContainer(dec)
	}
	return nil
}

// skipContainer consumes the remainder of a container whose opening delimiter
// has already been read.
func skipContainer(dec *json.Decoder) error {
	depth := 1
	for depth > 0 {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		if d, ok := tok.(json.Delim); ok {
			switch d {
			case '{', '[':
				depth++
			case '}', ']':
				depth--
			}
		}
	}
	return nil
}
