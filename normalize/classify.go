package normalize

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
)

// payload is one message's decoded content block. Field values stay raw so
// each reducer applies its own leniency.
type payload map[string]json.RawMessage

func (p payload) has(key string) bool {
	_, ok := p[key]
	return ok
}

// str returns the field as a string, reporting false for absent or
// non-string values.
func (p payload) str(key string) (string, bool) {
	raw, ok := p[key]
	if !ok {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

// text returns the field for display: strings verbatim, null or absent as
// "", anything else as compact JSON.
func (p payload) text(key string) string {
	raw, ok := p[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	trimmed := bytes.TrimSpace(raw)
	if string(trimmed) == "null" {
		return ""
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err == nil {
		return buf.String()
	}
	return string(trimmed)
}

func decodePayload(raw json.RawMessage) (payload, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, &FormatError{Reason: "message content is not a mapping", Detail: snippet(raw)}
	}
	var p payload
	if err := json.Unmarshal(trimmed, &p); err != nil {
		return nil, &FormatError{Reason: "message content is not a mapping", Detail: snippet(raw)}
	}
	return p, nil
}

// reduceFunc converts one content payload into zero or more RenderUnits.
type reduceFunc func(p payload, role, audience string) ([]RenderUnit, error)

// Classifier decides which known content kind a payload represents and runs
// the matching reducer. The registry is keyed by content_type; kinds the
// registry does not know but that still carry a content field reduce
// generically, so benign upstream additions degrade instead of failing.
type Classifier struct {
	resolver *Resolver
	reducers map[string]reduceFunc
}

// NewClassifier builds a Classifier with the default registry, staging image
// and file side effects through resolver.
func NewClassifier(resolver *Resolver) *Classifier {
	cl := &Classifier{
		resolver: resolver,
		reducers: make(map[string]reduceFunc),
	}
	cl.Register("text", cl.reduceConversation)
	cl.Register("multimodal_text", cl.reduceConversation)
	cl.Register("code", cl.reduceCode)
	cl.Register("thoughts", cl.reduceThoughts)
	cl.Register("user_editable_context", cl.reduceUserProfile)

	// Transcript plumbing the pages never show.
	for _, silent := range []string{
		"execution_output",
		"reasoning_recap",
		"tether_browsing_display",
		"tether_quote",
		"system_error",
	} {
		cl.Register(silent, cl.reduceNothing)
	}
	return cl
}

// Register adds or replaces the reducer for a content_type.
func (cl *Classifier) Register(contentType string, fn reduceFunc) {
	cl.reducers[contentType] = fn
}

// Reduce classifies one message's content block and reduces it. Dispatch
// order, first match wins: an explicit content_type goes through the
// registry (unknown values reduce generically); a bare text field is a
// plain-text upload; a bare thoughts field is a thought block; anything else
// is a format error.
func (cl *Classifier) Reduce(content json.RawMessage, role, audience string) ([]RenderUnit, error) {
	p, err := decodePayload(content)
	if err != nil {
		return nil, err
	}

	switch {
	case p.has("content_type"):
		ct := p.text("content_type")
		if fn, ok := cl.reducers[ct]; ok {
			return fn(p, role, audience)
		}
		return cl.reduceGeneric(ct, p, role, audience)
	case p.has("text"):
		return cl.reduceTextUpload(p, role, audience)
	case p.has("thoughts"):
		return cl.reduceThoughts(p, role, audience)
	}
	return nil, &FormatError{Reason: "unrecognized content block", Detail: snippet(content)}
}

// reduceConversation handles text and multimodal_text blocks: an ordered
// parts array mixing body strings and image pointers. Empty parts (null, "",
// {}) are skipped.
func (cl *Classifier) reduceConversation(p payload, role, audience string) ([]RenderUnit, error) {
	rawParts, ok := p["parts"]
	if !ok {
		return nil, &FormatError{Reason: "text content has no parts"}
	}
	var parts []json.RawMessage
	if err := json.Unmarshal(rawParts, &parts); err != nil {
		return nil, &FormatError{Reason: "parts is not an array", Detail: snippet(rawParts)}
	}

	var units []RenderUnit
	for _, part := range parts {
		trimmed := bytes.TrimSpace(part)
		if len(trimmed) == 0 || string(trimmed) == "null" {
			continue
		}
		switch trimmed[0] {
		case '"':
			var s string
			if err := json.Unmarshal(trimmed, &s); err != nil {
				return nil, &FormatError{Reason: "malformed conversation part", Detail: snippet(part)}
			}
			if s == "" {
				continue
			}
			units = append(units, RenderUnit{Role: role, Audience: audience, Kind: KindConversationText, Payload: s})
		case '{':
			sub, err := decodePayload(trimmed)
			if err != nil {
				return nil, err
			}
			if len(sub) == 0 {
				continue
			}
			if ct := sub.text("content_type"); ct != "image_asset_pointer" {
				return nil, &FormatError{Reason: fmt.Sprintf("unexpected part content type %q", ct)}
			}
			imgs, err := cl.reduceImage(sub, role, audience)
			if err != nil {
				return nil, err
			}
			units = append(units, imgs...)
		default:
			return nil, &FormatError{Reason: "unexpected conversation part", Detail: snippet(part)}
		}
	}
	return units, nil
}

// reduceImage resolves one image_asset_pointer part, emitting one image unit
// per staged file. An unresolvable pointer emits nothing; the resolver has
// already logged it.
func (cl *Classifier) reduceImage(part payload, role, audience string) ([]RenderUnit, error) {
	pointer, ok := part.str("asset_pointer")
	if !ok || pointer == "" {
		return nil, &FormatError{Reason: "image part has no asset_pointer"}
	}

	staged, err := cl.resolver.Resolve(pointer, dalleRequested(part))
	if err != nil {
		return nil, err
	}

	units := make([]RenderUnit, 0, len(staged))
	for _, name := range staged {
		units = append(units, RenderUnit{Role: role, Audience: audience, Kind: KindImage, Payload: name})
	}
	return units, nil
}

// dalleRequested reports whether the part's metadata marks it as a generated
// image, which changes where the resolver looks first.
func dalleRequested(part payload) bool {
	raw, ok := part["metadata"]
	if !ok {
		return false
	}
	var meta struct {
		Dalle json.RawMessage `json:"dalle"`
	}
	if err := json.Unmarshal(raw, &meta); err != nil {
		return false
	}
	return len(meta.Dalle) > 0 && string(bytes.TrimSpace(meta.Dalle)) != "null"
}

func (cl *Classifier) reduceCode(p payload, role, audience string) ([]RenderUnit, error) {
	if !p.has("text") {
		return nil, &FormatError{Reason: "code content has no text"}
	}
	return []RenderUnit{{Role: role, Audience: audience, Kind: KindCode, Payload: p.text("text")}}, nil
}

// reduceThoughts emits one thought unit per summary/content entry. Blocks
// that tag themselves thoughts but carry only a bare text field reuse the
// code rendering path, matching how older exports encoded them.
func (cl *Classifier) reduceThoughts(p payload, role, audience string) ([]RenderUnit, error) {
	rawThoughts, ok := p["thoughts"]
	if ok {
		var entries []struct {
			Summary string `json:"summary"`
			Content string `json:"content"`
		}
		if err := json.Unmarshal(rawThoughts, &entries); err != nil {
			return nil, &FormatError{Reason: "thoughts is not a list of summary/content entries", Detail: snippet(rawThoughts)}
		}
		units := make([]RenderUnit, 0, len(entries))
		for _, th := range entries {
			units = append(units, RenderUnit{
				Role:     role,
				Audience: audience,
				Kind:     KindThought,
				Payload:  th.Summary + ":" + th.Content,
			})
		}
		return units, nil
	}
	if p.has("text") {
		return []RenderUnit{{Role: role, Audience: audience, Kind: KindCode, Payload: p.text("text")}}, nil
	}
	return nil, &FormatError{Reason: "unrecognized thought content"}
}

// reduceTextUpload writes an embedded file out under its own title and emits
// a text_file unit pointing at it. The title is required: a file with no
// usable name would be unaddressable from the page.
func (cl *Classifier) reduceTextUpload(p payload, role, audience string) ([]RenderUnit, error) {
	contents, ok := p.str("text")
	if !ok {
		return nil, &FormatError{Reason: "upload text is not a string"}
	}
	title, ok := p.str("title")
	if !ok {
		return nil, &FormatError{Reason: "upload has no title"}
	}
	name := filepath.Base(title)
	if name == "" || name == "." || name == ".." || name == string(filepath.Separator) {
		return nil, &FormatError{Reason: fmt.Sprintf("upload title %q has no usable filename", title)}
	}

	if _, err := cl.resolver.StageText(name, []byte(contents)); err != nil {
		return nil, err
	}
	return []RenderUnit{{Role: role, Audience: audience, Kind: KindTextFile, Payload: name}}, nil
}

func (cl *Classifier) reduceUserProfile(p payload, role, audience string) ([]RenderUnit, error) {
	if !p.has("user_profile") {
		return nil, &FormatError{Reason: "user_editable_context has no user_profile"}
	}
	return []RenderUnit{{Role: role, Audience: audience, Kind: KindUserProfile, Payload: p.text("user_profile")}}, nil
}

// reduceGeneric renders an unknown-but-benign content_type as
// "{content_type}:{content}". A content field is required; its absence means
// the kind is genuinely unrecognized.
func (cl *Classifier) reduceGeneric(contentType string, p payload, role, audience string) ([]RenderUnit, error) {
	if !p.has("content") {
		return nil, &FormatError{Reason: fmt.Sprintf("unrecognized content type %q", contentType)}
	}
	return []RenderUnit{{
		Role:     role,
		Audience: audience,
		Kind:     KindGeneric,
		Payload:  contentType + ":" + p.text("content"),
	}}, nil
}

func (cl *Classifier) reduceNothing(payload, string, string) ([]RenderUnit, error) {
	return nil, nil
}
