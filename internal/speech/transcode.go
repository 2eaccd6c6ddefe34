// Package speech – local audio transcoding.
//
// The transcription service accepts MP3; WhatsApp voice notes arrive as
// OGG/OPUS. Transcoding happens locally through ffmpeg so the upload is
// always MP3.
package speech

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Transcoder converts arbitrary audio payloads to MP3.
type Transcoder interface {
	// ToMP3 returns the MP3 rendition of media. ext is the source extension
	// without a dot ("ogg", "opus", "mp3").
	ToMP3(ctx context.Context, media []byte, ext string) ([]byte, error)
}

// FFmpegTranscoder shells out to ffmpeg reading stdin and writing stdout.
type FFmpegTranscoder struct {
	// Binary overrides the ffmpeg executable path. Empty means "ffmpeg"
	// from PATH.
	Binary string
}

// ToMP3 transcodes media to MP3. MP3 input passes through untouched.
func (t *FFmpegTranscoder) ToMP3(ctx context.Context, media []byte, ext string) ([]byte, error) {
	if strings.EqualFold(ext, "mp3") {
		return media, nil
	}
	bin := t.Binary
	if bin == "" {
		bin = "ffmpeg"
	}
	cmd := exec.CommandContext(ctx, bin,
		"-hide_banner", "-loglevel", "error",
		"-f", strings.ToLower(ext),
		"-i", "pipe:0",
		"-f", "mp3",
		"pipe:1",
	)
	cmd.Stdin = bytes.NewReader(media)
	var out, errBuf bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errBuf
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffmpeg transcode (%s→mp3): %w: %s", ext, err, errBuf.String())
	}
	return out.Bytes(), nil
}
