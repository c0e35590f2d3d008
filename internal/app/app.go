// Package app wires the chat backend from configuration. Both the Lambda and
// the local server build their handler here.
package app

import (
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/rs/zerolog"

	"artifact-chat/handler"
	"artifact-chat/internal/artifact"
	"artifact-chat/internal/config"
	"artifact-chat/internal/integrations/elevenlabs"
	"artifact-chat/internal/integrations/openai"
	"artifact-chat/internal/integrations/paramstore"
	"artifact-chat/internal/integrations/storage"
	"artifact-chat/internal/logger"
	"artifact-chat/internal/usecase"
)

// NewHandler builds the upstream clients, the chat service and the HTTP
// handler around the given history store. log should be untagged; each
// component adds its own namespace.
func NewHandler(cfg config.Backend, awsCfg aws.Config, history usecase.HistoryStore, log zerolog.Logger) (*handler.Handler, error) {
	ssmClient, err := paramstore.New(awsssm.NewFromConfig(awsCfg))
	if err != nil {
		return nil, fmt.Errorf("app: create SSM client: %w", err)
	}

	llm, err := openai.NewClient(ssmClient, cfg.ParamPrefix)
	if err != nil {
		return nil, fmt.Errorf("app: create OpenAI client: %w", err)
	}
	speech, err := elevenlabs.NewClient(ssmClient, cfg.ParamPrefix)
	if err != nil {
		return nil, fmt.Errorf("app: create ElevenLabs client: %w", err)
	}
	audio, err := storage.NewClient(ssmClient, cfg.ParamPrefix, cfg.SupabaseURL)
	if err != nil {
		return nil, fmt.Errorf("app: create storage client: %w", err)
	}

	catalog := artifact.NewCatalog(cfg.ArtifactModels)
	chat, err := usecase.NewChatService(usecase.Dependencies{
		LLM:       llm,
		History:   history,
		Artifacts: catalog,
		Speech:    speech,
		Audio:     audio,
	}, usecase.Options{
		MaxHistory:    cfg.MaxHistory,
		MaxMessageLen: cfg.MaxMessageLen,
		AudioBucket:   cfg.AudioBucket,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("app: create chat service: %w", err)
	}

	h, err := handler.NewHandler(chat, catalog.IDs(), logger.For(log, logger.HANDLER))
	if err != nil {
		return nil, fmt.Errorf("app: create handler: %w", err)
	}
	return h, nil
}
