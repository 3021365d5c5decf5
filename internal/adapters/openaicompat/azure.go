package openaicompat

import (
	"strings"

	"github.com/openai/openai-go/v3/azure"
	"github.com/openai/openai-go/v3/option"

	"github.com/ncecere/model_router/internal/providers/providererr"
)

const DefaultAzureAPIVersion = "2024-07-01-preview"

// AzureOptions configure an Azure OpenAI deployment. The resolved model id is
// used as the deployment name.
type AzureOptions struct {
	Options
	Endpoint   string
	APIVersion string
}

func NewAzure(opts AzureOptions) (*Adapter, error) {
	endpoint := strings.TrimSuffix(strings.TrimSpace(opts.Endpoint), "/")
	if endpoint == "" {
		return nil, providererr.New(providererr.KindTransport, opts.Provider, "azure openai endpoint required")
	}
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, providererr.New(providererr.KindAuth, opts.Provider, "azure openai api key required")
	}
	version := strings.TrimSpace(opts.APIVersion)
	if version == "" {
		version = DefaultAzureAPIVersion
	}
	return newAdapter(opts.Options, []option.RequestOption{
		azure.WithEndpoint(endpoint, version),
		azure.WithAPIKey(strings.TrimSpace(opts.APIKey)),
	})
}
