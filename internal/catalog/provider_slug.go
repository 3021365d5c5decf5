package catalog

import "strings"

var providerAliases = map[string]string{
	"openai_compatible": "openai-compatible",
	"openaicompatible":  "openai-compatible",
	"azure_openai":      "azure-openai",
	"azure":             "azure-openai",
	"deep-infra":        "deepinfra",
	"deep_infra":        "deepinfra",
	"open-router":       "openrouter",
	"aws-bedrock":       "bedrock",
	"aws_bedrock":       "bedrock",
	"vertex-ai":         "vertex",
	"vertex_ai":         "vertex",
}

// NormalizeProviderSlug canonicalizes provider identifiers so config keys, URLs and registry names agree.
func NormalizeProviderSlug(name string) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	if slug == "" {
		return ""
	}
	if canonical, ok := providerAliases[slug]; ok {
		return canonical
	}
	return slug
}
