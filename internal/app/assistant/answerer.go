package assistant

import (
	"context"
	"errors"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/responses"
)

// OpenAIAnswerer отправляет вопрос и скриншот в Responses API.
type OpenAIAnswerer struct {
	client       *openai.Client
	model        openai.ChatModel
	instructions string
	question     string
}

func NewOpenAIAnswerer(client *openai.Client, model, instructions, question string) *OpenAIAnswerer {
	if model == "" {
		model = openai.ChatModelGPT4o
	}
	return &OpenAIAnswerer{
		client:       client,
		model:        openai.ChatModel(model),
		instructions: instructions,
		question:     question,
	}
}

func (c *OpenAIAnswerer) Answer(ctx context.Context, imageURL string) (string, error) {
	if c.client == nil {
		return "", errors.New("openai client is not configured")
	}
	params := responses.ResponseNewParams{
		Model: c.model,
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: responses.ResponseInputParam{
				responses.ResponseInputItemParamOfMessage(
					responses.ResponseInputMessageContentListParam{
						{
							OfInputText: &responses.ResponseInputTextParam{
								Text: c.question,
							},
						},
						{
							OfInputImage: &responses.ResponseInputImageParam{
								Detail:   responses.ResponseInputImageDetailAuto,
								ImageURL: openai.String(imageURL),
							},
						},
					},
					responses.EasyInputMessageRoleUser,
				),
			},
		},
	}
	if c.instructions != "" {
		params.Instructions = openai.String(c.instructions)
	}

	resp, err := c.client.Responses.New(ctx, params)
	if err != nil {
		return "", err
	}
	return resp.OutputText(), nil
}
