package thumb

import (
	"bytes"
	"context"
	"image"
	"os/exec"
)

// frameSeekSeconds is where the representative frame is taken from. Very
// short clips that have nothing to decode there fall back to the first frame.
const frameSeekSeconds = "0.5"

// extractFrame decodes one representative frame from a video file by running
// ffmpeg and reading a PNG off its stdout.
func extractFrame(ctx context.Context, path string) (image.Image, error) {
	frame, err := runFFmpeg(ctx, path, frameSeekSeconds)
	if err != nil || len(frame) == 0 {
		// Nothing decodable at the seek point; take the first frame.
		frame, err = runFFmpeg(ctx, path, "0")
	}
	if err != nil {
		return nil, &DecodeError{Path: path, Err: err}
	}
	if len(frame) == 0 {
		return nil, &DecodeError{Path: path, Err: errNoFrame}
	}

	img, _, err := image.Decode(bytes.NewReader(frame))
	if err != nil {
		return nil, &DecodeError{Path: path, Err: err}
	}
	return img, nil
}

var errNoFrame = &noFrameError{}

type noFrameError struct{}

func (*noFrameError) Error() string { return "no decodable video frame" }

func runFFmpeg(ctx context.Context, path, seek string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-v", "error",
		"-ss", seek,
		"-i", path,
		"-frames:v", "1",
		"-f", "image2",
		"-c:v", "png",
		"pipe:1",
	)
	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}
