package dispatch_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fmartingr/mattermost-plugin-media-preview/server/social"
)

func TestPreview(t *testing.T) {
	h := newHarness(t, map[string]upstream{
		rickOEmbed: {status: http.StatusOK, body: rickInfo},
	}, nil)

	results := h.dispatcher.Preview(context.Background(), catsLink+" "+rickLink)

	require.Len(t, results, 2)

	assert.Equal(t, social.YouTube, results[0].Platform)
	assert.Equal(t, rickLink, results[0].CanonicalURL)
	require.NotNil(t, results[0].Post)
	assert.Equal(t, "Never Gonna Give You Up", results[0].Post.Title)
	assert.Empty(t, results[0].Error)

	assert.Equal(t, social.Reddit, results[1].Platform)
	assert.Nil(t, results[1].Post)
	assert.Equal(t, http.StatusNotFound, results[1].Status)
	assert.NotEmpty(t, results[1].Error)

	assert.NotContains(t, h.upstream.requested(), rickThumb, "preview never downloads media")
}

func TestPreviewRecoversFromPanic(t *testing.T) {
	h := newHarness(t, nil, nil, panickingResolver{platform: social.YouTube})

	results := h.dispatcher.Preview(context.Background(), rickLink)

	require.Len(t, results, 1)
	assert.Nil(t, results[0].Post)
	assert.Contains(t, results[0].Error, "upstream shape drift")
}

func TestPreviewWithoutLinks(t *testing.T) {
	h := newHarness(t, nil, nil)

	results := h.dispatcher.Preview(context.Background(), "no links")

	assert.NotNil(t, results)
	assert.Empty(t, results)
}
