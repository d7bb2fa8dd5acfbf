// Package prompt holds the company research prompts. Each topic is a JSON
// template the model is asked to fill in for one company.
package prompt

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"text/template"

	"github.com/xyenon/company-lens/internal/chat"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var templates = template.Must(template.New("prompts").ParseFS(templateFS, "templates/*.tmpl"))

const systemPrompt = `You are a company research analyst who prepares accurate, current profiles of employers for job seekers.

Rules for your answer:
- Fill in the JSON template from the user's message. Keep every key and the nesting exactly as given.
- Replace each placeholder value with real information. Use an empty string or empty array when nothing reliable is known.
- Put the JSON inside a single fenced code block that starts with ` + "```json" + ` and ends with ` + "```" + `.
- Do not write anything before or after the code block.`

type Topic struct {
	Name        string
	Description string
	// Keys are the top-level keys of the template, in template order. They
	// describe what was asked for; replies are never checked against them.
	Keys []string
}

var topics = []Topic{
	{
		Name:        "core",
		Description: "identity, overview, legal details, timeline, recognition and contact",
		Keys:        []string{"basicIdentity", "overview", "legalDetails", "timeline", "recognition", "contact"},
	},
	{
		Name:        "culture",
		Description: "values, work-life balance, remote work, diversity and employee stories",
		Keys:        []string{"cultureOverview", "workLifeBalance", "remoteWork", "diversity", "mentalHealth", "teamCollaboration", "employeeStories"},
	},
	{
		Name:        "interview",
		Description: "interview stages, candidate experiences and common questions",
		Keys:        []string{"journey", "candidateExperiences", "technicalQuestions", "roleSpecificQuestions", "behavioralQuestions", "questionStats", "mockInterviewTips"},
	},
	{
		Name:        "ways",
		Description: "campus hiring, job portals, referrals, hackathons, outreach and contract roles",
		Keys:        []string{"campusRecruitment", "jobPortals", "referrals", "hackathons", "coldOutreach", "internshipConversion", "contractRoles"},
	},
	{
		Name:        "jobs",
		Description: "common roles, hiring channels, job trends and hiring timeline",
		Keys:        []string{"commonRoles", "internshipConversion", "hiringChannels", "jobTrends", "hiringTimeline", "hiringProcess", "resumeTips"},
	},
	{
		Name:        "tech",
		Description: "frontend, backend, cloud, databases, analytics and team tooling",
		Keys:        []string{"frontend", "backend", "cloud", "database", "analytics", "team"},
	},
	{
		Name:        "news",
		Description: "headlines, social sentiment, highlights and student impact",
		Keys:        []string{"headlines", "socialSentiment", "highlights", "studentImpact"},
	},
}

// Topics returns every topic in display order.
func Topics() []Topic {
	out := make([]Topic, len(topics))
	copy(out, topics)
	return out
}

func Names() []string {
	names := make([]string, len(topics))
	for i, t := range topics {
		names[i] = t.Name
	}
	return names
}

// Lookup finds a topic by name, ignoring case and surrounding space.
func Lookup(name string) (Topic, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	for _, t := range topics {
		if t.Name == key {
			return t, nil
		}
	}
	return Topic{}, fmt.Errorf("unknown topic %q (valid: %s)", name, strings.Join(Names(), ", "))
}

// Render builds the conversation asking for topic t about company.
func Render(t Topic, company string) ([]chat.Message, error) {
	company = strings.TrimSpace(company)
	if company == "" {
		return nil, fmt.Errorf("company name is empty")
	}

	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, t.Name+".tmpl", struct{ Company string }{company}); err != nil {
		return nil, fmt.Errorf("failed to render %s prompt: %w", t.Name, err)
	}

	return []chat.Message{
		{Role: chat.RoleSystem, Content: systemPrompt},
		{Role: chat.RoleUser, Content: buf.String()},
	}, nil
}
