package worker

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/normanking/deskavatar/internal/llm"
	"github.com/rs/zerolog"
)

// EmptyPromptReply is returned for an empty question without calling the model.
const EmptyPromptReply = "Say something for me to answer, nya~"

// Inference asks the language model for a reply. It never returns an error:
// failures become a reply that explains what to check.
type Inference struct {
	provider     llm.Provider
	systemPrompt string
	logger       zerolog.Logger
}

// NewInference creates an inference worker
func NewInference(provider llm.Provider, systemPrompt string, logger zerolog.Logger) *Inference {
	return &Inference{
		provider:     provider,
		systemPrompt: systemPrompt,
		logger:       logger.With().Str("component", "inference").Logger(),
	}
}

// Reply blocks for the duration of the model call. A panicking provider
// is reported like any other failure.
func (w *Inference) Reply(ctx context.Context, text, model string) (reply string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return EmptyPromptReply
	}

	log := w.logger.With().Str("job", uuid.NewString()[:8]).Str("model", model).Logger()
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("inference worker panicked")
			reply = w.failureReply(model, fmt.Errorf("internal error: %v", r))
		}
	}()

	resp, err := w.provider.Chat(ctx, &llm.ChatRequest{
		Model:        model,
		SystemPrompt: w.systemPrompt,
		UserText:     text,
	})
	if err != nil {
		log.Error().Err(err).Dur("elapsed", time.Since(start)).Msg("chat failed")
		return w.failureReply(model, err)
	}

	reply = StripReasoning(resp.Content)
	if reply == "" {
		reply = strings.TrimSpace(resp.Content)
	}
	log.Info().Int("replyLen", len(reply)).Dur("elapsed", time.Since(start)).Msg("chat complete")
	return reply
}

func (w *Inference) failureReply(model string, err error) string {
	if w.provider.Name() == "ollama" {
		return fmt.Sprintf("I couldn't reach Ollama.\n"+
			"1) Check that the Ollama app is installed and running.\n"+
			"2) Check that you pulled a model: ollama pull %s\n"+
			"Error: %v", model, err)
	}
	return fmt.Sprintf("I couldn't reach the %s model backend.\n"+
		"1) Check the llm.base_url and llm.api_key settings.\n"+
		"2) Check that the model %q exists.\n"+
		"Error: %v", w.provider.Name(), model, err)
}

var (
	thinkingBlock   = regexp.MustCompile(`(?is)<(think|thinking|reflection)>.*?</(think|thinking|reflection)>`)
	thinkingBracket = regexp.MustCompile(`(?is)\[thinking\].*?\[/thinking\]`)
	markdownLink    = regexp.MustCompile(`\[([^\]]+)\]\([^)]+\)`)
	inlineCode      = regexp.MustCompile("`([^`]+)`")
	whitespaceRun   = regexp.MustCompile(`\s+`)
)

// StripReasoning removes reasoning blocks some models emit before the answer.
func StripReasoning(text string) string {
	text = thinkingBlock.ReplaceAllString(text, "")
	text = thinkingBracket.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

// SpeakableText strips reasoning blocks and markdown so a reply reads well
// aloud. Line breaks are folded into spaces.
func SpeakableText(text string) string {
	text = StripReasoning(text)
	text = markdownLink.ReplaceAllString(text, "$1")
	text = inlineCode.ReplaceAllString(text, "$1")
	text = strings.NewReplacer("**", "", "__", "", "*", "", "• ", "").Replace(text)

	var lines []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimSpace(strings.TrimLeft(line, "#"))
		line = strings.TrimPrefix(line, "- ")
		if line != "" {
			lines = append(lines, line)
		}
	}
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(strings.Join(lines, " "), " "))
}
