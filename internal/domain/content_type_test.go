package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContentType_ZeroValueIsWebsite(t *testing.T) {
	var ct ContentType
	assert.Equal(t, ContentTypeWebsite, ct)
	assert.Equal(t, "website", ct.String())
}

func TestParseContentType(t *testing.T) {
	for _, ct := range ContentTypes() {
		parsed, ok := ParseContentType(ct.String())
		require.True(t, ok, ct.String())
		assert.Equal(t, ct, parsed)
	}

	_, ok := ParseContentType("Video")
	assert.False(t, ok)
	_, ok = ParseContentType("")
	assert.False(t, ok)
}

func TestContentType_JSON(t *testing.T) {
	data, err := json.Marshal(Link{Type: ContentTypeMusic})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"type":"music"`)

	var link Link
	require.NoError(t, json.Unmarshal([]byte(`{"type":"book"}`), &link))
	assert.Equal(t, ContentTypeBook, link.Type)

	assert.Error(t, json.Unmarshal([]byte(`{"type":"podcast"}`), &link))

	_, err = json.Marshal(Link{Type: ContentType(42)})
	assert.Error(t, err)
	assert.False(t, ContentType(42).Valid())
}

func TestNormalizeCollectionName(t *testing.T) {
	name, err := NormalizeCollectionName("  Reading list ")
	require.NoError(t, err)
	assert.Equal(t, "Reading list", name)

	_, err = NormalizeCollectionName(" ")
	assert.ErrorIs(t, err, ErrInvalidCollectionName)

	long := make([]rune, MaxCollectionNameLength+1)
	for i := range long {
		long[i] = 'я'
	}
	_, err = NormalizeCollectionName(string(long))
	assert.ErrorIs(t, err, ErrInvalidCollectionName)

	_, err = NormalizeCollectionName(string(long[:MaxCollectionNameLength]))
	assert.NoError(t, err)
}
