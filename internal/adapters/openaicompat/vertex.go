package openaicompat

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go/v3/option"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/ncecere/model_router/internal/providers/providererr"
)

const cloudPlatformScope = "https://www.googleapis.com/auth/cloud-platform"

// VertexOptions configure the OpenAI-compatible endpoint of Vertex AI.
// Without CredentialsJSON, application default credentials are used.
type VertexOptions struct {
	Options
	ProjectID       string
	Location        string
	CredentialsJSON []byte
	TokenSource     oauth2.TokenSource
}

func VertexBaseURL(projectID, location string) string {
	host := "aiplatform.googleapis.com"
	if location != "global" {
		host = location + "-" + host
	}
	return fmt.Sprintf("https://%s/v1/projects/%s/locations/%s/endpoints/openapi", host, projectID, location)
}

func NewVertex(ctx context.Context, opts VertexOptions) (*Adapter, error) {
	if strings.TrimSpace(opts.ProjectID) == "" {
		return nil, providererr.New(providererr.KindAuth, opts.Provider, "vertex project id required")
	}
	location := strings.TrimSpace(opts.Location)
	if location == "" {
		location = "us-central1"
	}

	ts := opts.TokenSource
	if ts == nil {
		var (
			creds *google.Credentials
			err   error
		)
		if len(opts.CredentialsJSON) > 0 {
			creds, err = google.CredentialsFromJSON(ctx, opts.CredentialsJSON, cloudPlatformScope)
		} else {
			creds, err = google.FindDefaultCredentials(ctx, cloudPlatformScope)
		}
		if err != nil {
			return nil, providererr.New(providererr.KindAuth, opts.Provider, "load gcp credentials: %v", err)
		}
		ts = creds.TokenSource
	}

	base := opts.BaseURL
	if strings.TrimSpace(base) == "" {
		base = VertexBaseURL(strings.TrimSpace(opts.ProjectID), location)
	}
	if opts.HTTPClient == nil {
		// The oauth2 transport replaces the Authorization header set from the
		// placeholder API key.
		opts.HTTPClient = oauth2.NewClient(ctx, ts)
	}
	return newAdapter(opts.Options, []option.RequestOption{
		option.WithAPIKey("vertex"),
		option.WithBaseURL(strings.TrimRight(base, "/")),
	})
}
