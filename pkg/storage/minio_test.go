package storage

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestPublicURL(t *testing.T) {
	assert.Equal(t, "https://cdn.finscale.app/avatars/a.png",
		publicURL("https://cdn.finscale.app/", "minio:9000", "avatars", "a.png", false))
	assert.Equal(t, "http://minio:9000/avatars/a.png",
		publicURL("", "minio:9000", "avatars", "a.png", false))
	assert.Equal(t, "https://minio:9000/avatars/a.png",
		publicURL("", "minio:9000", "avatars", "a.png", true))
}

func TestAvatarKey(t *testing.T) {
	id := uuid.New()
	key := avatarKey(id, time.Unix(0, 42), ".jpg")

	assert.True(t, strings.HasPrefix(key, "avatars/"+id.String()+"/"))
	assert.True(t, strings.HasSuffix(key, "42.jpg"))
}

func TestDetectContentType(t *testing.T) {
	assert.Equal(t, "image/jpeg", detectContentType(".JPG"))
	assert.Equal(t, "image/png", detectContentType(".png"))
	assert.Equal(t, "application/octet-stream", detectContentType(".exe"))
}
