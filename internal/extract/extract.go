// Package extract pulls the JSON payload out of a chat model reply.
//
// Models are asked to answer inside a fenced block (```json ... ```), but
// they add prose around it, tag the block with a format word, or skip the
// fence entirely. Extract handles both a bare reply and a complete
// chat-completion response body (the envelope).
package extract

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/tidwall/gjson"
)

const fence = "```"

// contentPath is choices[0].message.content in gjson syntax.
const contentPath = "choices.0.message.content"

// Options controls how Extract reads its input.
type Options struct {
	// Envelope means the input is a full chat-completion response body and
	// the reply text sits at choices[0].message.content.
	Envelope bool
	// FullContentFallback lets envelope mode decode the whole message content
	// when it has no fenced block. Without it a missing fence is an error.
	// Bare input always falls back.
	FullContentFallback bool
}

// Payload is a decoded JSON value. No schema is applied.
type Payload struct {
	Value any
	// Raw is the normalized candidate that decoded into Value.
	Raw []byte
}

// Decode unmarshals the payload into v.
func (p Payload) Decode(v any) error {
	if len(p.Raw) == 0 {
		return errors.New("empty payload")
	}
	return json.Unmarshal(p.Raw, v)
}

// Extract locates the JSON payload in input and decodes it. A non-nil error
// is always an *Error.
func Extract(input string, opts Options) (Payload, error) {
	text := input
	if opts.Envelope {
		content, err := envelopeContent(input)
		if err != nil {
			return Payload{}, &Error{Kind: KindEnvelopeDecode, Err: err}
		}
		text = content
	}

	candidate, fenced := FencedBlock(text)
	if !fenced {
		if opts.Envelope && !opts.FullContentFallback {
			return Payload{}, &Error{Kind: KindNoFencedBlock, Err: errors.New("message content has no ``` delimited block")}
		}
		candidate = text
	}

	return decode(candidate, fenced)
}

// FencedBlock returns the text between the first two ``` markers.
func FencedBlock(text string) (string, bool) {
	_, rest, ok := strings.Cut(text, fence)
	if !ok {
		return "", false
	}
	inner, _, ok := strings.Cut(rest, fence)
	if !ok {
		return "", false
	}
	return inner, true
}

func envelopeContent(input string) (string, error) {
	if !gjson.Valid(input) {
		return "", errors.New("response body is not valid JSON")
	}
	root := gjson.Parse(input)
	if !root.IsObject() {
		return "", errors.New("response body is not a JSON object")
	}
	if choices := root.Get("choices"); choices.Exists() && !choices.IsArray() {
		return "", errors.New("choices is not an array")
	}

	content := root.Get(contentPath)
	if !content.Exists() {
		if msg := root.Get("error.message"); msg.Exists() {
			return "", fmt.Errorf("endpoint returned an error: %s", msg.String())
		}
		return "", errors.New("missing choices[0].message.content")
	}
	if content.Type != gjson.String {
		return "", fmt.Errorf("choices[0].message.content is %s, not a string", content.Type)
	}
	return content.String(), nil
}

// decode parses candidate. A format tag is only looked for inside a fence,
// where it follows the opening marker.
func decode(candidate string, fenced bool) (Payload, error) {
	s := strings.TrimSpace(candidate)

	v, err := unmarshal(s)
	if err == nil {
		return Payload{Value: v, Raw: []byte(s)}, nil
	}

	if body, ok := stripFormatTag(s); fenced && ok {
		if v, retryErr := unmarshal(body); retryErr == nil {
			return Payload{Value: v, Raw: []byte(body)}, nil
		}
	}

	return Payload{}, &Error{Kind: KindJSONDecode, Candidate: s, Err: err}
}

func unmarshal(s string) (any, error) {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, err
	}
	return v, nil
}

// stripFormatTag drops a leading "json" style line. The line must be a single
// bare word that is not itself valid JSON.
func stripFormatTag(s string) (string, bool) {
	tag, rest, ok := strings.Cut(s, "\n")
	if !ok {
		return "", false
	}
	tag = strings.TrimSpace(tag)
	if !isBareWord(tag) || json.Valid([]byte(tag)) {
		return "", false
	}
	return strings.TrimSpace(rest), true
}

func isBareWord(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			continue
		}
		switch r {
		case '-', '_', '+', '.':
			continue
		}
		return false
	}
	return true
}
