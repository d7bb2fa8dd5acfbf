// Package profile asks the model about a company one topic at a time and
// extracts the JSON payload from each reply.
package profile

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/sjson"
	"golang.org/x/sync/errgroup"

	"github.com/xyenon/company-lens/internal/chat"
	"github.com/xyenon/company-lens/internal/debug"
	"github.com/xyenon/company-lens/internal/extract"
	"github.com/xyenon/company-lens/internal/prompt"
)

type Fetcher struct {
	Client chat.Completer
	// Retries is how many extra requests are made when a reply cannot be
	// extracted. Transport errors are never retried here.
	Retries int
	// Concurrency bounds FetchAll. Values below one mean one.
	Concurrency         int
	FullContentFallback bool
	// OnSection, when set, is called by FetchAll as each topic finishes. It
	// may be called from several goroutines at once.
	OnSection func(Section)
}

// Section is the result of one topic.
type Section struct {
	Topic    prompt.Topic
	Payload  extract.Payload
	Reply    chat.Reply
	Attempts int
	Err      error
}

func (s Section) OK() bool {
	return s.Err == nil
}

// Profile holds sections in the order their topics were requested.
type Profile struct {
	Company  string
	Sections []Section
}

// Failed returns the sections that have an error.
func (p Profile) Failed() []Section {
	var out []Section
	for _, s := range p.Sections {
		if !s.OK() {
			out = append(out, s)
		}
	}
	return out
}

// Fetch requests one topic. The returned Section always carries the last
// reply and attempt count, even on error.
func (f *Fetcher) Fetch(ctx context.Context, company string, topic prompt.Topic) (Section, error) {
	section := Section{Topic: topic}

	messages, err := prompt.Render(topic, company)
	if err != nil {
		section.Err = err
		return section, err
	}

	opts := extract.Options{Envelope: true, FullContentFallback: f.FullContentFallback}
	for attempt := 0; attempt <= max(f.Retries, 0); attempt++ {
		section.Attempts = attempt + 1

		reply, err := f.Client.Complete(ctx, messages)
		if err != nil {
			section.Err = fmt.Errorf("%s: %w", topic.Name, err)
			return section, section.Err
		}
		section.Reply = reply

		payload, err := extract.Extract(envelopeOf(reply), opts)
		if err == nil {
			section.Payload = payload
			section.Err = nil
			return section, nil
		}

		debug.Log("Extraction failed", map[string]any{
			"company": company,
			"topic":   topic.Name,
			"attempt": section.Attempts,
			"kind":    extract.KindOf(err).String(),
			"error":   err,
		})
		section.Err = fmt.Errorf("%s: %w", topic.Name, err)
	}

	return section, section.Err
}

// envelopeOf returns the response body of reply. Completers that do not keep
// the body get a minimal envelope around Content.
func envelopeOf(reply chat.Reply) string {
	if reply.Raw != "" {
		return reply.Raw
	}
	body, _ := jsonEnvelope(reply.Content)
	return body
}

// FetchAll fetches every topic concurrently. A failing topic does not stop
// the others; the error is non-nil only when no topic succeeded or ctx was
// cancelled before any did.
func (f *Fetcher) FetchAll(ctx context.Context, company string, topics []prompt.Topic) (Profile, error) {
	p := Profile{Company: company, Sections: make([]Section, len(topics))}
	if len(topics) == 0 {
		return p, errors.New("no topics requested")
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(f.Concurrency, 1))

	for i, topic := range topics {
		g.Go(func() error {
			// Per-topic errors stay in the section so siblings keep running.
			p.Sections[i], _ = f.Fetch(gctx, company, topic)
			if f.OnSection != nil {
				f.OnSection(p.Sections[i])
			}
			return nil
		})
	}
	_ = g.Wait()

	failed := p.Failed()
	if len(failed) < len(topics) {
		return p, nil
	}

	msgs := make([]string, len(failed))
	for i, s := range failed {
		msgs[i] = s.Err.Error()
	}
	return p, fmt.Errorf("all %d topics failed: %s", len(topics), strings.Join(msgs, "; "))
}

const bareEnvelope = `{"choices":[{"index":0,"message":{"role":"assistant"}}]}`

func jsonEnvelope(content string) (string, error) {
	return sjson.Set(bareEnvelope, "choices.0.message.content", content)
}
