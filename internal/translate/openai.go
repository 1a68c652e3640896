package translate

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/nclamvn/prismy-ultimate/internal/db/models"
)

// Models per tier. Premium buys the strongest model; basic the cheapest.
var tierModels = map[models.Tier]string{
	models.TierBasic:    "gpt-4o-mini",
	models.TierStandard: "gpt-4o-mini",
	models.TierPremium:  "gpt-4o",
}

// OpenAI is a Translator backed by the OpenAI chat completions API
type OpenAI struct {
	client openai.Client
}

// NewOpenAI creates a provider authenticated with the given API key
func NewOpenAI(apiKey string) *OpenAI {
	return &OpenAI{client: openai.NewClient(option.WithAPIKey(apiKey))}
}

// Translate implements Translator
func (t *OpenAI) Translate(ctx context.Context, text, sourceLang, targetLang string, tier models.Tier) (string, error) {
	model, ok := tierModels[tier]
	if !ok {
		model = tierModels[models.TierStandard]
	}

	systemPrompt := fmt.Sprintf(
		"You are a professional translator. Translate the user's text from %s to %s. "+
			"Preserve paragraph breaks and formatting. Return only the translation.",
		sourceLang, targetLang)

	resp, err := t.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: shared.ChatModel(model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			{OfSystem: &openai.ChatCompletionSystemMessageParam{Content: openai.ChatCompletionSystemMessageParamContentUnion{OfString: openai.String(systemPrompt)}}},
			{OfUser: &openai.ChatCompletionUserMessageParam{Content: openai.ChatCompletionUserMessageParamContentUnion{OfString: openai.String(text)}}},
		},
	})
	if err != nil {
		return "", fmt.Errorf("translation provider error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("translation provider returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
