package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
)

const defaultBedrockModel = "anthropic.claude-3-5-sonnet-20240620-v1:0"

// converser is the subset of *bedrockruntime.Client used here.
type converser interface {
	Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

// BedrockGenerator calls the Bedrock Converse API.
type BedrockGenerator struct {
	client  converser
	modelID string
}

// NewBedrockGenerator loads the default AWS credential chain for region.
func NewBedrockGenerator(ctx context.Context, region, modelID string) (*BedrockGenerator, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return newBedrockGenerator(bedrockruntime.NewFromConfig(awsCfg), modelID), nil
}

func newBedrockGenerator(client converser, modelID string) *BedrockGenerator {
	if modelID == "" {
		modelID = defaultBedrockModel
	}
	return &BedrockGenerator{client: client, modelID: modelID}
}

// Name returns "bedrock:<model>".
func (g *BedrockGenerator) Name() string { return "bedrock:" + g.modelID }

// Generate sends prompt as a single user turn.
func (g *BedrockGenerator) Generate(ctx context.Context, prompt string, maxOutputTokens int) (string, error) {
	out, err := g.client.Converse(ctx, &bedrockruntime.ConverseInput{
		ModelId: aws.String(g.modelID),
		Messages: []types.Message{{
			Role:    types.ConversationRoleUser,
			Content: []types.ContentBlock{&types.ContentBlockMemberText{Value: prompt}},
		}},
		InferenceConfig: &types.InferenceConfiguration{
			MaxTokens: aws.Int32(int32(maxOutputTokens)),
		},
	})
	if err != nil {
		return "", bedrockError(err)
	}

	msg, ok := out.Output.(*types.ConverseOutputMemberMessage)
	if !ok {
		return "", malformed("bedrock", "response has no message output")
	}
	var sb strings.Builder
	for _, block := range msg.Value.Content {
		if t, ok := block.(*types.ContentBlockMemberText); ok {
			sb.WriteString(t.Value)
		}
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", malformed("bedrock", "empty response text")
	}
	return text, nil
}

func bedrockError(err error) error {
	var (
		throttled   *types.ThrottlingException
		modelTO     *types.ModelTimeoutException
		denied      *types.AccessDeniedException
		invalid     *types.ValidationException
		unavailable *types.ServiceUnavailableException
		internal    *types.InternalServerException
		notReady    *types.ModelNotReadyException
	)
	kind := KindUnknown
	switch {
	case errors.As(err, &throttled):
		kind = KindRateLimit
	case errors.As(err, &modelTO):
		kind = KindTimeout
	case errors.As(err, &denied):
		kind = KindAuth
	case errors.As(err, &invalid):
		kind = KindInvalid
	case errors.As(err, &unavailable), errors.As(err, &internal), errors.As(err, &notReady):
		kind = KindUnavailable
	default:
		return fromContext("bedrock", err)
	}
	return &BackendError{Kind: kind, Provider: "bedrock", Err: err}
}
