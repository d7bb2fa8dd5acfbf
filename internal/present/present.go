// Package present renders extracted payloads for the terminal.
package present

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
	"github.com/tidwall/sjson"

	"github.com/xyenon/company-lens/internal/extract"
	"github.com/xyenon/company-lens/internal/profile"
	"github.com/xyenon/company-lens/internal/prompt"
)

const previewLen = 48

var prettyOptions = &pretty.Options{Width: 80, Indent: "  "}

// JSON writes payload indented, keeping the key order of the reply.
func JSON(w io.Writer, payload extract.Payload, color bool) error {
	return writeJSON(w, payload.Raw, color)
}

func writeJSON(w io.Writer, raw []byte, color bool) error {
	out := pretty.PrettyOptions(raw, prettyOptions)
	if color {
		out = pretty.Color(out, nil)
	}
	_, err := w.Write(out)
	return err
}

// Summary writes one line per top-level key describing the shape of its
// value, then the documented keys the reply left out.
func Summary(w io.Writer, section profile.Section) error {
	root := gjson.ParseBytes(section.Payload.Raw)
	if !root.IsObject() {
		_, err := fmt.Fprintf(w, "%s: %s\n", section.Topic.Name, Shape(root))
		return err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s:\n", section.Topic.Name)

	seen := make(map[string]bool)
	root.ForEach(func(key, value gjson.Result) bool {
		seen[key.String()] = true
		fmt.Fprintf(&b, "  %-24s %s\n", key.String(), Shape(value))
		return true
	})

	if missing := missingKeys(section.Topic, seen); len(missing) > 0 {
		fmt.Fprintf(&b, "  missing: %s\n", strings.Join(missing, ", "))
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func missingKeys(topic prompt.Topic, seen map[string]bool) []string {
	var missing []string
	for _, k := range topic.Keys {
		if !seen[k] {
			missing = append(missing, k)
		}
	}
	return missing
}

// Shape describes a JSON value in a few words.
func Shape(v gjson.Result) string {
	switch {
	case v.IsObject():
		n := 0
		v.ForEach(func(_, _ gjson.Result) bool {
			n++
			return true
		})
		if n == 1 {
			return "object(1 key)"
		}
		return fmt.Sprintf("object(%d keys)", n)
	case v.IsArray():
		return fmt.Sprintf("array(%d)", len(v.Array()))
	case v.Type == gjson.String:
		return strconv.Quote(preview(v.String()))
	case v.Type == gjson.Null:
		return "null"
	default:
		return v.Raw
	}
}

func preview(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if utf8.RuneCountInString(s) <= previewLen {
		return s
	}
	r := []rune(s)
	return string(r[:previewLen-3]) + "..."
}

// Profile writes the successful sections as one JSON object keyed by topic
// name, in request order.
func Profile(w io.Writer, p profile.Profile, color bool) error {
	doc := []byte("{}")
	for _, s := range p.Sections {
		if !s.OK() {
			continue
		}
		var err error
		doc, err = sjson.SetRawBytes(doc, s.Topic.Name, s.Payload.Raw)
		if err != nil {
			return fmt.Errorf("failed to add %s section: %w", s.Topic.Name, err)
		}
	}
	return writeJSON(w, doc, color)
}

// Failures lists the sections that could not be fetched.
func Failures(w io.Writer, p profile.Profile) error {
	for _, s := range p.Failed() {
		if _, err := fmt.Fprintf(w, "%v (attempts: %d)\n", s.Err, s.Attempts); err != nil {
			return err
		}
	}
	return nil
}
