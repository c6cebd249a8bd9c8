package speech

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/Vovarama1992/voice_mail/internal/ports"
)

const elevenLabsBaseURL = "https://api.elevenlabs.io/v1/text-to-speech"

type ElevenLabsClient struct {
	apiKey  string
	voiceID string
	baseURL string
	httpCli *http.Client
}

func NewElevenLabsClient(apiKey, voiceID string) *ElevenLabsClient {
	return &ElevenLabsClient{
		apiKey:  apiKey,
		voiceID: voiceID,
		baseURL: elevenLabsBaseURL,
		httpCli: http.DefaultClient,
	}
}

// TEXT → SPEECH
func (c *ElevenLabsClient) Synthesize(ctx context.Context, text string) (ports.Audio, error) {
	url := fmt.Sprintf("%s/%s", c.baseURL, c.voiceID)

	payload, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return ports.Audio{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return ports.Audio{}, err
	}
	req.Header.Set("xi-api-key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")

	resp, err := c.httpCli.Do(req)
	if err != nil {
		return ports.Audio{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return ports.Audio{}, fmt.Errorf("elevenlabs error %d: %s", resp.StatusCode, string(b))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return ports.Audio{}, fmt.Errorf("read elevenlabs audio: %w", err)
	}
	if len(data) == 0 {
		return ports.Audio{}, fmt.Errorf("%w: elevenlabs returned no audio", ports.ErrSynthesisFailed)
	}

	return ports.Audio{Data: data, ContentType: "audio/mpeg"}, nil
}
