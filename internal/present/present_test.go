package present

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/tidwall/gjson"

	"github.com/xyenon/company-lens/internal/extract"
	"github.com/xyenon/company-lens/internal/profile"
	"github.com/xyenon/company-lens/internal/prompt"
)

func payloadOf(t *testing.T, s string) extract.Payload {
	t.Helper()
	p, err := extract.Extract(s, extract.Options{})
	if err != nil {
		t.Fatalf("extract %q: %v", s, err)
	}
	return p
}

func TestJSONKeepsKeyOrder(t *testing.T) {
	var buf bytes.Buffer
	if err := JSON(&buf, payloadOf(t, `{"zeta": 1, "alpha": {"b": true, "a": null}}`), false); err != nil {
		t.Fatalf("JSON error: %v", err)
	}
	out := buf.String()

	if strings.Index(out, `"zeta"`) > strings.Index(out, `"alpha"`) {
		t.Errorf("keys reordered:\n%s", out)
	}
	if strings.Index(out, `"b"`) > strings.Index(out, `"a"`) {
		t.Errorf("nested keys reordered:\n%s", out)
	}
	if !strings.Contains(out, "\n  \"zeta\": 1,") {
		t.Errorf("expected two-space indentation:\n%s", out)
	}
	if strings.Contains(out, "\x1b[") {
		t.Error("uncolored output contains escape codes")
	}
	if !json.Valid(buf.Bytes()) {
		t.Errorf("output is not valid JSON:\n%s", out)
	}
}

func TestJSONColor(t *testing.T) {
	var buf bytes.Buffer
	if err := JSON(&buf, payloadOf(t, `{"a": "b"}`), true); err != nil {
		t.Fatalf("JSON error: %v", err)
	}
	if !strings.Contains(buf.String(), "\x1b[") {
		t.Errorf("expected ANSI colors, got %q", buf.String())
	}
}

func TestShape(t *testing.T) {
	long := strings.Repeat("word ", 20)
	cases := []struct {
		json string
		want string
	}{
		{`{"a": 1, "b": 2}`, "object(2 keys)"},
		{`{"a": 1}`, "object(1 key)"},
		{`{}`, "object(0 keys)"},
		{`[1, 2, 3]`, "array(3)"},
		{`"short"`, `"short"`},
		{`"two\n  lines"`, `"two lines"`},
		{`42.5`, "42.5"},
		{`true`, "true"},
		{`null`, "null"},
		{`"` + long + `"`, `"` + strings.TrimSpace(long)[:45] + `..."`},
	}

	for _, tc := range cases {
		t.Run(tc.json, func(t *testing.T) {
			if got := Shape(gjson.Parse(tc.json)); got != tc.want {
				t.Errorf("Shape(%s) = %s, want %s", tc.json, got, tc.want)
			}
		})
	}
}

func TestSummary(t *testing.T) {
	topic, _ := prompt.Lookup("news")
	section := profile.Section{
		Topic:   topic,
		Payload: payloadOf(t, `{"headlines": [{"title": "x"}, {"title": "y"}], "highlights": {"a": 1, "b": 2}, "extra": "kept"}`),
	}

	var buf bytes.Buffer
	if err := Summary(&buf, section); err != nil {
		t.Fatalf("Summary error: %v", err)
	}

	var lines []string
	for _, l := range strings.Split(strings.TrimRight(buf.String(), "\n"), "\n") {
		lines = append(lines, strings.Join(strings.Fields(l), " "))
	}
	want := []string{
		"news:",
		"headlines array(2)",
		"highlights object(2 keys)",
		`extra "kept"`,
		"missing: socialSentiment, studentImpact",
	}
	if diff := cmp.Diff(want, lines); diff != "" {
		t.Errorf("summary mismatch (-want +got):\n%s", diff)
	}
}

func TestSummaryNonObject(t *testing.T) {
	topic, _ := prompt.Lookup("tech")
	var buf bytes.Buffer
	if err := Summary(&buf, profile.Section{Topic: topic, Payload: payloadOf(t, `[1, 2]`)}); err != nil {
		t.Fatalf("Summary error: %v", err)
	}
	if buf.String() != "tech: array(2)\n" {
		t.Errorf("unexpected summary %q", buf.String())
	}
}

func TestProfile(t *testing.T) {
	core, _ := prompt.Lookup("core")
	culture, _ := prompt.Lookup("culture")
	tech, _ := prompt.Lookup("tech")

	p := profile.Profile{
		Company: "Acme",
		Sections: []profile.Section{
			{Topic: tech, Payload: payloadOf(t, `{"frontend": []}`)},
			{Topic: culture, Err: errors.New("culture: no fenced block"), Attempts: 2},
			{Topic: core, Payload: payloadOf(t, `{"basicIdentity": {"name": "Acme"}}`)},
		},
	}

	var buf bytes.Buffer
	if err := Profile(&buf, p, false); err != nil {
		t.Fatalf("Profile error: %v", err)
	}

	var got map[string]any
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("profile output is not JSON: %v\n%s", err, buf.String())
	}
	want := map[string]any{
		"tech": map[string]any{"frontend": []any{}},
		"core": map[string]any{"basicIdentity": map[string]any{"name": "Acme"}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("profile mismatch (-want +got):\n%s", diff)
	}
	if strings.Index(buf.String(), `"tech"`) > strings.Index(buf.String(), `"core"`) {
		t.Error("sections should keep request order")
	}

	buf.Reset()
	if err := Failures(&buf, p); err != nil {
		t.Fatalf("Failures error: %v", err)
	}
	if buf.String() != "culture: no fenced block (attempts: 2)\n" {
		t.Errorf("unexpected failures output %q", buf.String())
	}
}
