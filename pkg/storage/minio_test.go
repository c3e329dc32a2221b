package storage

import (
	"ai-chatbot-go/internal/config"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStoreDisabledWithoutEndpoint(t *testing.T) {
	s, err := NewStore(context.Background(), config.MinIOConfig{})
	require.NoError(t, err)
	assert.Nil(t, s)
}

func TestPublicBase(t *testing.T) {
	assert.Equal(t, "http://localhost:9000/attachments",
		publicBase(config.MinIOConfig{Endpoint: "localhost:9000", BucketName: "attachments"}))
	assert.Equal(t, "https://cdn.example.com/files",
		publicBase(config.MinIOConfig{Endpoint: "minio:9000", UseSSL: true, PublicURL: "https://cdn.example.com/files/"}))
}

func TestObjectURLEscapesSegments(t *testing.T) {
	assert.Equal(t, "http://h/b/u1/my%20photo.png", objectURL("http://h/b", "u1/my photo.png"))
}
