// Package normalize flattens conversation message trees into ordered,
// renderer-agnostic units. It owns the hard part of the conversion: an
// evolving, semi-documented content schema with several payload kinds,
// inconsistent role encodings, and asset references that have to be located
// on disk. The output contract is deliberately small, a RenderUnit slice per
// conversation, so rendering stays plumbing.
package normalize

import (
	"bytes"
	"sync/atomic"
)

// RenderUnit kinds, one per way a piece of content gets rendered.
const (
	KindImage            = "image"
	KindConversationText = "conversation_text"
	KindCode             = "code"
	KindTextFile         = "text_file"
	KindThought          = "thought"
	KindGeneric          = "generic"
	KindUserProfile      = "user_profile"
)

// RenderUnit is one displayable piece of a conversation after normalization:
// who said it, which tool it addressed (empty for none), what kind of content
// it is, and the kind-specific payload (body text, code, a staged file's
// basename, a summary:content thought pair). Units are append-only; nothing
// mutates them after the sequencer emits them.
type RenderUnit struct {
	Role     string
	Audience string
	Kind     string
	Payload  string
}

// FormatError reports input that violates the export's expected shape:
// a missing required field, a wrong field type, an unrecognized content or
// asset-pointer kind. It is fatal for the conversation it occurs in; the
// caller decides whether that aborts the run or skips the conversation.
type FormatError struct {
	Reason string
	Detail string
}

func (e *FormatError) Error() string {
	if e.Detail == "" {
		return e.Reason
	}
	return e.Reason + ": " + e.Detail
}

// Stats counts pipeline side effects across one run. Counters are atomic so
// parallel conversation workers can share a single instance.
type Stats struct {
	StagedAssets   atomic.Int64 // archive files copied into the output dir
	StagedUploads  atomic.Int64 // embedded text uploads written out
	StageConflicts atomic.Int64 // staging destinations that already existed
	MissingAssets  atomic.Int64 // asset pointers with no file on disk
}

// snippet trims a raw fragment for use in error messages.
func snippet(raw []byte) string {
	s := string(bytes.TrimSpace(raw))
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	return s
}
