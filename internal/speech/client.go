// Package speech wraps the external speech services: transcription
// (speech-to-text) and synthesis (text-to-speech), plus the spoken-text
// transform applied before synthesis.
//
// The HTTP client is a thin REST wrapper; failures are returned to the
// caller, which degrades to text-only behavior. No retries happen here.
package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"
)

// Voices supported by the synthesis endpoint.
var Voices = []string{"alloy", "ash", "coral", "echo", "fable", "nova", "onyx", "sage", "shimmer"}

// DefaultVoice is used when the settings table names no voice.
const DefaultVoice = "nova"

// maxSynthesisRunes caps the text sent to synthesis.
const maxSynthesisRunes = 4096

// Client calls the external speech API.
type Client struct {
	// BaseURL is the API root, without a trailing slash.
	BaseURL string
	// APIKey is sent as a bearer token.
	APIKey string
	// TranscribeTimeout bounds transcription calls (default 60s).
	TranscribeTimeout time.Duration
	// SynthesizeTimeout bounds synthesis calls (default 30s).
	SynthesizeTimeout time.Duration

	httpClient *http.Client
}

// NewClient constructs a speech client with the default timeouts.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		BaseURL:           baseURL,
		APIKey:            apiKey,
		TranscribeTimeout: 60 * time.Second,
		SynthesizeTimeout: 30 * time.Second,
		httpClient:        &http.Client{},
	}
}

// ValidVoice reports whether v is one of the supported voices.
func ValidVoice(v string) bool {
	for _, known := range Voices {
		if v == known {
			return true
		}
	}
	return false
}

// Transcribe uploads media bytes with the given file extension ("mp3",
// "ogg", ...) and returns the recognized text. The language hint is fixed
// to Brazilian Portuguese. Callers transcode non-MP3 audio first.
func (c *Client) Transcribe(ctx context.Context, media []byte, ext string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.transcribeTimeout())
	defer cancel()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	fw, err := w.CreateFormFile("file", "audio."+ext)
	if err != nil {
		return "", err
	}
	if _, err := fw.Write(media); err != nil {
		return "", err
	}
	_ = w.WriteField("language", "pt")
	if err := w.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/v1/audio/transcriptions", &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("transcription failed: status %d: %s", resp.StatusCode, b)
	}

	var out struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	return out.Text, nil
}

// synthesizeRequest is the synthesis request payload.
type synthesizeRequest struct {
	Input          string  `json:"input"`
	Voice          string  `json:"voice"`
	Model          string  `json:"model"`
	ResponseFormat string  `json:"response_format"`
	Speed          float64 `json:"speed"`
}

// Synthesize converts text to MP3 bytes using the given voice. Text is
// truncated to the service limit; unknown voices fall back to DefaultVoice.
func (c *Client) Synthesize(ctx context.Context, text, voice string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.synthesizeTimeout())
	defer cancel()

	if !ValidVoice(voice) {
		voice = DefaultVoice
	}
	runes := []rune(text)
	if len(runes) > maxSynthesisRunes {
		text = string(runes[:maxSynthesisRunes])
	}

	payload, err := json.Marshal(synthesizeRequest{
		Input:          text,
		Voice:          voice,
		Model:          "tts-1",
		ResponseFormat: "mp3",
		Speed:          1.0,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/v1/audio/speech", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("synthesis failed: status %d: %s", resp.StatusCode, b)
	}
	return io.ReadAll(resp.Body)
}

func (c *Client) transcribeTimeout() time.Duration {
	if c.TranscribeTimeout > 0 {
		return c.TranscribeTimeout
	}
	return 60 * time.Second
}

func (c *Client) synthesizeTimeout() time.Duration {
	if c.SynthesizeTimeout > 0 {
		return c.SynthesizeTimeout
	}
	return 30 * time.Second
}
