// ABOUTME: AI-powered title and tag suggestions for uploaded media files.
// ABOUTME: Uses OpenAI when a key is configured, with a deterministic static fallback.

package suggest

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sashabaranov/go-openai"
)

// Suggestion is the metadata proposed for one uploaded file.
type Suggestion struct {
	Title string   `json:"title"`
	Tags  []string `json:"tags"`
}

// Suggester proposes titles and tags using OpenAI or falls back to
// filename-derived values.
type Suggester struct {
	client *openai.Client
	useAI  bool
	model  string
}

// NewSuggester creates a suggester, loading the API key from .env if
// available.
func NewSuggester() *Suggester {
	g := &Suggester{}

	// Try to load .env from current dir or parent dirs
	envPaths := []string{".env", "../.env", "../../.env"}
	for _, p := range envPaths {
		if err := godotenv.Load(p); err == nil {
			break
		}
	}

	// Also check home directory
	if home, err := os.UserHomeDir(); err == nil {
		godotenv.Load(filepath.Join(home, ".env"))
	}

	g.model = os.Getenv("OPENAI_MODEL")
	if g.model == "" {
		g.model = "gpt-5-mini"
	}

	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey != "" {
		g.client = openai.NewClient(apiKey)
		g.useAI = true
		log.Printf("OpenAI API key found, using AI-suggested media metadata with model: %s", g.model)
	} else {
		log.Println("No OPENAI_API_KEY found, using filename-derived metadata")
	}

	return g
}

// Suggest proposes a title and tags for one file. AI failures fall back to
// the static derivation; this never returns an error.
func (g *Suggester) Suggest(ctx context.Context, filename, mediaType string) Suggestion {
	if !g.useAI {
		return staticSuggestion(filename, mediaType)
	}

	s, err := g.suggestAI(ctx, filename, mediaType)
	if err != nil {
		log.Printf("AI suggestion failed for %s, using static fallback: %v", filename, err)
		return staticSuggestion(filename, mediaType)
	}
	if s.Title == "" {
		s.Title = staticSuggestion(filename, mediaType).Title
	}
	return s
}

func (g *Suggester) suggestAI(ctx context.Context, filename, mediaType string) (Suggestion, error) {
	prompt := fmt.Sprintf(`Suggest display metadata for a media file uploaded to a CMS.
Filename: %q
Media type: %q

Return a JSON object with: title (a short human-readable title derived from the filename, no extension), tags (2-4 lowercase single-word topic tags).`, filename, mediaType)

	var result Suggestion
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: "You are a metadata generator. Always respond with valid JSON only, no markdown or explanation.",
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
	})
	if err != nil {
		return result, fmt.Errorf("OpenAI API error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return result, fmt.Errorf("no response from OpenAI")
	}
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &result); err != nil {
		return result, fmt.Errorf("failed to parse JSON response: %w", err)
	}
	return result, nil
}

// staticSuggestion derives a title from the filename (extension stripped,
// separators spaced) and a tag from the media type's major part.
func staticSuggestion(filename, mediaType string) Suggestion {
	base := strings.TrimSuffix(filename, filepath.Ext(filename))
	title := strings.NewReplacer("_", " ", "-", " ").Replace(base)
	title = strings.Join(strings.Fields(title), " ")

	var tags []string
	if major, _, ok := strings.Cut(mediaType, "/"); ok && major != "" {
		tags = append(tags, major)
	}
	return Suggestion{Title: title, Tags: tags}
}
