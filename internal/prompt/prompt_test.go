package prompt

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/tidwall/gjson"

	"github.com/xyenon/company-lens/internal/chat"
	"github.com/xyenon/company-lens/internal/extract"
)

func TestTopicsOrder(t *testing.T) {
	want := []string{"core", "culture", "interview", "ways", "jobs", "tech", "news"}
	if diff := cmp.Diff(want, Names()); diff != "" {
		t.Errorf("topic names mismatch (-want +got):\n%s", diff)
	}

	// Callers must not be able to mutate the table.
	ts := Topics()
	ts[0].Name = "changed"
	if Topics()[0].Name != "core" {
		t.Error("Topics returned the shared slice")
	}
}

func TestLookup(t *testing.T) {
	for _, name := range []string{"core", "CORE", "  Tech ", "news"} {
		topic, err := Lookup(name)
		if err != nil {
			t.Errorf("Lookup(%q) error: %v", name, err)
			continue
		}
		if topic.Name != strings.ToLower(strings.TrimSpace(name)) {
			t.Errorf("Lookup(%q) = %q", name, topic.Name)
		}
	}

	_, err := Lookup("salaries")
	if err == nil {
		t.Fatal("expected error for unknown topic")
	}
	if !strings.Contains(err.Error(), "core, culture, interview") {
		t.Errorf("expected error to list valid topics, got %v", err)
	}
}

func TestRender(t *testing.T) {
	topic, _ := Lookup("core")
	msgs, err := Render(topic, "  Acme Robotics ")
	if err != nil {
		t.Fatalf("Render error: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if msgs[0].Role != chat.RoleSystem || msgs[1].Role != chat.RoleUser {
		t.Errorf("unexpected roles %q, %q", msgs[0].Role, msgs[1].Role)
	}
	if !strings.Contains(msgs[0].Content, "```json") {
		t.Error("system prompt should ask for a json fenced block")
	}
	if !strings.Contains(msgs[1].Content, "Acme Robotics") {
		t.Error("user prompt should name the company")
	}
	if strings.Contains(msgs[1].Content, "{{") {
		t.Error("user prompt still contains template actions")
	}
}

func TestRenderEmptyCompany(t *testing.T) {
	topic, _ := Lookup("tech")
	if _, err := Render(topic, "   "); err == nil {
		t.Error("expected error for empty company name")
	}
}

func TestRenderUnknownTopic(t *testing.T) {
	if _, err := Render(Topic{Name: "missing"}, "Acme"); err == nil {
		t.Error("expected error for a topic without a template")
	}
}

// Each template embeds a JSON skeleton whose top-level keys are the
// topic's Keys, so a model echoing the skeleton back yields a valid reply.
func TestTemplateSkeletons(t *testing.T) {
	for _, topic := range Topics() {
		t.Run(topic.Name, func(t *testing.T) {
			msgs, err := Render(topic, "Acme")
			if err != nil {
				t.Fatalf("Render error: %v", err)
			}
			user := msgs[1].Content
			start := strings.Index(user, "{")
			end := strings.LastIndex(user, "}")
			if start < 0 || end < start {
				t.Fatalf("no JSON object in %s prompt", topic.Name)
			}
			skeleton := user[start : end+1]

			payload, err := extract.Extract("```json\n"+skeleton+"\n```", extract.Options{})
			if err != nil {
				t.Fatalf("skeleton does not extract: %v", err)
			}

			var keys []string
			gjson.ParseBytes(payload.Raw).ForEach(func(k, _ gjson.Result) bool {
				keys = append(keys, k.String())
				return true
			})
			if diff := cmp.Diff(topic.Keys, keys); diff != "" {
				t.Errorf("keys mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
