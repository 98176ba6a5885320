package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeGenerator returns canned output for Annotator tests
type fakeGenerator struct {
	output string
	err    error
	lastReq GenerateRequest
}

func (f *fakeGenerator) GenerateText(ctx context.Context, req GenerateRequest) (string, error) {
	f.lastReq = req
	return f.output, f.err
}

func (f *fakeGenerator) Provider() string { return "fake" }
func (f *fakeGenerator) Model() string    { return "fake-model" }
func (f *fakeGenerator) Close() error     { return nil }

func TestParseAnnotation_PlainJSON(t *testing.T) {
	ann, err := ParseAnnotation(`{"description": "List files in long format", "tags": ["ls", "files"]}`)
	require.NoError(t, err)
	assert.Equal(t, "List files in long format", ann.Description)
	assert.Equal(t, []string{"files", "ls"}, ann.Tags)
}

func TestParseAnnotation_CodeFenced(t *testing.T) {
	raw := "```json\n{\"description\": \"Extract a tarball\", \"tags\": [\"tar\"]}\n```"
	ann, err := ParseAnnotation(raw)
	require.NoError(t, err)
	assert.Equal(t, "Extract a tarball", ann.Description)
	assert.Equal(t, []string{"tar"}, ann.Tags)
}

func TestParseAnnotation_SurroundingChatter(t *testing.T) {
	raw := `Sure! Here is the JSON you asked for:
{"description": "Show disk usage", "tags": ["du", "disk"]}
Hope that helps.`
	ann, err := ParseAnnotation(raw)
	require.NoError(t, err)
	assert.Equal(t, "Show disk usage", ann.Description)
}

func TestParseAnnotation_TagNormalization(t *testing.T) {
	ann, err := ParseAnnotation(`{"description": "x", "tags": ["Git", " git ", "", "LOG", "git"]}`)
	require.NoError(t, err)
	assert.Equal(t, []string{"git", "log"}, ann.Tags)
}

func TestParseAnnotation_NoTags(t *testing.T) {
	ann, err := ParseAnnotation(`{"description": "Does a thing"}`)
	require.NoError(t, err)
	assert.Empty(t, ann.Tags)
}

func TestParseAnnotation_Invalid(t *testing.T) {
	for _, raw := range []string{
		"not json at all",
		`{"tags": ["only", "tags"]}`,
		`{"description": "   "}`,
		"",
	} {
		_, err := ParseAnnotation(raw)
		assert.ErrorIs(t, err, ErrBadAnnotation, "input %q", raw)
	}
}

func TestAnnotator_Annotate(t *testing.T) {
	gen := &fakeGenerator{output: `{"description": "Find large files", "tags": ["find", "disk"]}`}
	annotator := NewAnnotator(gen)

	ann, err := annotator.Annotate(context.Background(), "find / -size +100M")
	require.NoError(t, err)
	assert.Equal(t, "Find large files", ann.Description)
	assert.Equal(t, []string{"disk", "find"}, ann.Tags)

	assert.True(t, gen.lastReq.JSON)
	assert.Contains(t, gen.lastReq.Prompt, "find / -size +100M")
	assert.NotEmpty(t, gen.lastReq.System)
}

func TestAnnotator_GeneratorError(t *testing.T) {
	wantErr := errors.New("backend down")
	annotator := NewAnnotator(&fakeGenerator{err: wantErr})

	_, err := annotator.Annotate(context.Background(), "ls")
	assert.ErrorIs(t, err, wantErr)
}

func TestStripCodeFences(t *testing.T) {
	assert.Equal(t, "plain", stripCodeFences("plain"))
	assert.Equal(t, `{"a":1}`, stripCodeFences("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripCodeFences("```\n{\"a\":1}\n```"))
}
