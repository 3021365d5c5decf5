package openaicompat

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ncecere/model_router/internal/models"
)

func TestBuildMessagesOrderAndImages(t *testing.T) {
	msgs := buildMessages("sys", []models.Message{
		{Role: models.RoleUser, Content: []models.ContentPart{
			models.TextPart("what is this"),
			models.ImagePart("image/png", "aGVsbG8="),
		}},
		models.AssistantText("a cat"),
		models.UserText("thanks"),
	})
	require.Len(t, msgs, 4)

	raw, err := json.Marshal(msgs)
	require.NoError(t, err)
	var decoded []map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))

	require.Equal(t, "system", decoded[0]["role"])
	require.Equal(t, "user", decoded[1]["role"])
	parts := decoded[1]["content"].([]any)
	require.Len(t, parts, 2)
	image := parts[1].(map[string]any)
	require.Equal(t, "image_url", image["type"])
	require.Equal(t, "data:image/png;base64,aGVsbG8=", image["image_url"].(map[string]any)["url"])
	require.Equal(t, "assistant", decoded[2]["role"])
	require.Equal(t, "thanks", decoded[3]["content"])
}

func TestBuildMessagesWithoutSystemPrompt(t *testing.T) {
	msgs := buildMessages("", []models.Message{models.UserText("hi")})
	require.Len(t, msgs, 1)
}
