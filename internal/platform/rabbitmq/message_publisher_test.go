package rabbitmq

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"secondbrain/internal/model"
)

func TestEncodeDecodeMessage(t *testing.T) {
	msg := model.Message{
		ConversationID: "c1",
		Role:           model.RoleAssistant,
		Content:        "answer",
		Sources:        datatypes.JSONSlice[model.MessageSource]{{DocumentID: "d1", Title: "T", Excerpt: "e", Relevance: 0.5}},
		CreatedAt:      time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
	}

	body, err := EncodeMessage(msg)
	require.NoError(t, err)

	got, err := DecodeMessage(body)
	require.NoError(t, err)
	assert.Equal(t, msg.ConversationID, got.ConversationID)
	assert.Equal(t, msg.Sources, got.Sources)
	assert.True(t, msg.CreatedAt.Equal(got.CreatedAt))
}

func TestDecodeMessage_Rejects(t *testing.T) {
	_, err := DecodeMessage([]byte("{nope"))
	assert.Error(t, err)

	_, err = DecodeMessage([]byte(`{"content":"orphan"}`))
	assert.ErrorContains(t, err, "missing conversation or role")
}

func TestHealthy_NilConnection(t *testing.T) {
	assert.Error(t, Healthy(nil))
}
