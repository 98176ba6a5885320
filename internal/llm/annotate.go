package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrBadAnnotation is returned when the model output cannot be parsed into
// a usable annotation.
var ErrBadAnnotation = errors.New("unparseable annotation")

// Annotation is the model's explanation of one shell command.
type Annotation struct {
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
}

const annotationSystemPrompt = `You are an assistant that explains shell commands. ` +
	`Answer with a single JSON object and nothing else.`

const annotationPromptTemplate = `Explain the following Linux/macOS shell command.
Respond with a JSON object with exactly two keys:
  "description": one concise English sentence saying what the command does
  "tags": an array of 1 to 5 short lowercase keywords (tool names, topics)

Command: %q

JSON:`

// Annotator turns raw commands into descriptions and tags using a Generator.
type Annotator struct {
	gen Generator
}

// NewAnnotator creates an Annotator backed by gen
func NewAnnotator(gen Generator) *Annotator {
	return &Annotator{gen: gen}
}

// Annotate asks the model to describe rawCommand. The model is instructed
// to emit JSON but local models often wrap it in code fences or prose, so
// parsing is forgiving.
func (a *Annotator) Annotate(ctx context.Context, rawCommand string) (*Annotation, error) {
	text, err := a.gen.GenerateText(ctx, GenerateRequest{
		Prompt:      fmt.Sprintf(annotationPromptTemplate, rawCommand),
		System:      annotationSystemPrompt,
		Temperature: 0.1,
		MaxTokens:   300,
		JSON:        true,
	})
	if err != nil {
		return nil, err
	}
	return ParseAnnotation(text)
}

// ParseAnnotation extracts an Annotation from model output
func ParseAnnotation(text string) (*Annotation, error) {
	cleaned := stripCodeFences(text)

	// Some models prepend chatter before the object
	if idx := strings.Index(cleaned, "{"); idx > 0 {
		cleaned = cleaned[idx:]
	}
	if idx := strings.LastIndex(cleaned, "}"); idx >= 0 {
		cleaned = cleaned[:idx+1]
	}

	var ann Annotation
	if err := json.Unmarshal([]byte(cleaned), &ann); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadAnnotation, err)
	}

	ann.Description = strings.TrimSpace(ann.Description)
	if ann.Description == "" {
		return nil, fmt.Errorf("%w: missing description", ErrBadAnnotation)
	}
	ann.Tags = normalizeTags(ann.Tags)
	return &ann, nil
}

// stripCodeFences removes a surrounding markdown code block if present
func stripCodeFences(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}

	lines := strings.Split(trimmed, "\n")
	if len(lines) < 2 {
		return trimmed
	}
	lines = lines[1:] // opening fence, possibly "```json"
	if strings.TrimSpace(lines[len(lines)-1]) == "```" {
		lines = lines[:len(lines)-1]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// normalizeTags lowercases, trims, dedupes and sorts tags
func normalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	sort.Strings(out)
	return out
}
