package media

import (
	"context"
	"io"
	"net/http"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"

	"github.com/fmartingr/mattermost-plugin-media-preview/server/httpclient"
	"github.com/fmartingr/mattermost-plugin-media-preview/server/social"
)

const (
	// MaxFileSize is the maximum file size to download (100MB)
	MaxFileSize = 100 * 1024 * 1024
)

// ErrUnknownMediaType is returned when a candidate is neither an image nor a video.
var ErrUnknownMediaType = errors.New("unknown media type")

// genericTypes carry no information about the payload.
var genericTypes = map[string]bool{
	"":                         true,
	"application/octet-stream": true,
	"binary/octet-stream":      true,
}

// Fetcher downloads media candidates
type Fetcher struct {
	client *resty.Client
}

// NewFetcher creates a new fetcher using the given client
func NewFetcher(client *resty.Client) *Fetcher {
	return &Fetcher{
		client: client,
	}
}

// Fetch downloads a candidate and resolves its MIME type and file name.
func (f *Fetcher) Fetch(ctx context.Context, candidate social.MediaCandidate) (*social.MediaAsset, error) {
	resp, err := f.client.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(candidate.URL)
	if err != nil {
		return nil, errors.Wrap(err, "failed to download media")
	}
	body := resp.RawBody()
	defer body.Close()

	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		return nil, &httpclient.StatusError{URL: candidate.URL, StatusCode: resp.StatusCode()}
	}

	if resp.RawResponse.ContentLength > MaxFileSize {
		return nil, errors.Errorf("file size %d exceeds maximum allowed size %d", resp.RawResponse.ContentLength, MaxFileSize)
	}

	data, err := io.ReadAll(io.LimitReader(body, MaxFileSize+1))
	if err != nil {
		return nil, errors.Wrap(err, "failed to read media data")
	}
	if int64(len(data)) > MaxFileSize {
		return nil, errors.Errorf("file size exceeds maximum allowed size %d", MaxFileSize)
	}

	mimeType := resolveType(candidate, resp.Header(), data)
	if !IsImage(mimeType) && !IsVideo(mimeType) {
		return nil, errors.Wrapf(ErrUnknownMediaType, "%q from %s", mimeType, candidate.URL)
	}

	return &social.MediaAsset{
		Data:     data,
		MimeType: mimeType,
		Filename: candidate.BaseName + ExtensionByType(mimeType),
		Size:     int64(len(data)),
	}, nil
}

// resolveType picks the declared type, then the URL extension, then the
// response header, and finally sniffs the payload.
func resolveType(candidate social.MediaCandidate, header http.Header, data []byte) string {
	if t := baseType(candidate.MimeType); t != "" {
		return t
	}
	if t := TypeByURL(candidate.URL); t != "" {
		return t
	}
	if t := baseType(header.Get("Content-Type")); !genericTypes[t] {
		return t
	}
	return baseType(mimetype.Detect(data).String())
}
