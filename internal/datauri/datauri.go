// Package datauri encodes and decodes self-describing data URIs used to
// ship clips to the speech services and to inline rendered audio.
package datauri

import (
	"errors"
	"fmt"
	"mime"
	"sort"
	"strings"

	"github.com/vincent-petithory/dataurl"
)

var ErrMalformed = errors.New("malformed data uri")

const octetStream = "application/octet-stream"

// Encode builds a base64 data URI, keeping mime parameters such as codecs.
func Encode(mediaType string, data []byte) string {
	base, params, err := mime.ParseMediaType(mediaType)
	if err != nil {
		base, params = octetStream, nil
	}

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]string, 0, 2*len(keys))
	for _, k := range keys {
		pairs = append(pairs, k, params[k])
	}
	return dataurl.New(data, base, pairs...).String()
}

// Decode returns the mime type (parameters included, e.g. "audio/webm;codecs=opus")
// and the payload. Both base64 and percent-encoded payloads are accepted.
func Decode(uri string) (string, []byte, error) {
	if !strings.HasPrefix(uri, "data:") {
		return "", nil, fmt.Errorf("%w: missing data: prefix", ErrMalformed)
	}
	du, err := dataurl.DecodeString(uri)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	return du.MediaType.String(), du.Data, nil
}

// Extension guesses a file extension for upload filenames. Whisper uses the
// name to pick the decoder.
func Extension(mediaType string) string {
	base, _, _ := strings.Cut(mediaType, ";")
	switch strings.ToLower(strings.TrimSpace(base)) {
	case "audio/webm", "video/webm":
		return "webm"
	case "audio/ogg":
		return "ogg"
	case "audio/wav", "audio/x-wav", "audio/wave":
		return "wav"
	case "audio/mpeg", "audio/mp3":
		return "mp3"
	case "audio/mp4", "audio/m4a", "audio/x-m4a":
		return "m4a"
	}
	return "webm"
}
