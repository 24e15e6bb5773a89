// Package prompts renders the system prompts used to ask a model for an
// advisory essay score.
package prompts

import (
	"bytes"
	"embed"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"text/template"
	"unicode/utf8"

	"github.com/pavelanni/academy/internal/model"
)

//go:embed suggest_*.txt
var files embed.FS

var (
	studentAnswerRegex      = regexp.MustCompile(`(?i)</?\s*student-answer\b[^>]*>`)
	systemInstructionsRegex = regexp.MustCompile(`(?i)</?\s*system-instructions\b[^>]*>`)
)

// maxAnswerRunes caps the essay length sent to the model.
const maxAnswerRunes = 10000

// PromptVariant selects how strictly essays are scored.
type PromptVariant string

const (
	PromptStrict   PromptVariant = "strict"
	PromptStandard PromptVariant = "standard"
	PromptLenient  PromptVariant = "lenient"
)

var variants = []PromptVariant{PromptStrict, PromptStandard, PromptLenient}

// IsValidVariant checks if a prompt variant name is valid.
func IsValidVariant(v string) bool {
	for _, known := range variants {
		if PromptVariant(v) == known {
			return true
		}
	}
	return false
}

// SuggestData holds template data for suggestion prompts.
type SuggestData struct {
	QuestionText string
	MaxScore     float64
	Rubric       string
	Answer       string
	HasFile      bool
}

var (
	loadOnce  sync.Once
	loadErr   error
	templates map[PromptVariant]*template.Template
)

func load() error {
	loadOnce.Do(func() {
		templates = make(map[PromptVariant]*template.Template, len(variants))
		for _, v := range variants {
			name := "suggest_" + string(v) + ".txt"
			content, err := files.ReadFile(name)
			if err != nil {
				loadErr = fmt.Errorf("read prompt file %s: %w", name, err)
				return
			}
			tmpl, err := template.New(name).Parse(string(content))
			if err != nil {
				loadErr = fmt.Errorf("parse prompt template %s: %w", name, err)
				return
			}
			templates[v] = tmpl
		}
	})
	return loadErr
}

// BuildSuggestPrompt renders the system prompt for scoring one essay answer.
func BuildSuggestPrompt(variant PromptVariant, q model.Question, answer model.Answer) (string, error) {
	if err := load(); err != nil {
		return "", err
	}
	tmpl, ok := templates[variant]
	if !ok {
		return "", fmt.Errorf("invalid prompt variant: %s", variant)
	}

	text := ""
	if answer.EssayText != nil {
		text = *answer.EssayText
	}
	data := SuggestData{
		QuestionText: q.Text,
		MaxScore:     q.MaxScore,
		Rubric:       q.Rubric,
		Answer:       sanitizeAnswer(text),
		HasFile:      answer.UploadedFile != "",
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render prompt: %w", err)
	}
	return buf.String(), nil
}

func sanitizeAnswer(answer string) string {
	answer = studentAnswerRegex.ReplaceAllString(answer, "")
	answer = systemInstructionsRegex.ReplaceAllString(answer, "")
	answer = strings.TrimSpace(answer)

	if answer == "" {
		return "[No answer provided]"
	}

	if utf8.RuneCountInString(answer) > maxAnswerRunes {
		runes := []rune(answer)
		answer = string(runes[:maxAnswerRunes]) + "\n\n[Answer truncated due to length]"
	}
	return answer
}
