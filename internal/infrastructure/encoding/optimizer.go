package encoding

import (
	"context"
	"fmt"
	"os"
	"os/exec"

	"go.uber.org/zap"
)

// FaststartOptimizer remuxes a finished MP4 with the index moved to the
// front of the file, so playback can begin before the whole file downloads.
// The remux writes to a sibling temp file and replaces the original only
// after ffmpeg reports success, so a failed pass never destroys the source.
type FaststartOptimizer struct {
	ffmpegPath string
	logger     *zap.SugaredLogger
}

func NewFaststartOptimizer(ffmpegPath string, logger *zap.SugaredLogger) *FaststartOptimizer {
	return &FaststartOptimizer{ffmpegPath: ffmpegPath, logger: logger}
}

func (o *FaststartOptimizer) Optimize(ctx context.Context, path string) error {
	tmp := path + ".faststart.tmp.mp4"

	cmd := exec.CommandContext(ctx, o.ffmpegPath,
		"-hide_banner", "-loglevel", "error", "-y",
		"-i", path,
		"-c", "copy",
		"-movflags", "+faststart",
		tmp,
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("faststart remux of %s: %w: %s", path, err, out)
	}

	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replace %s with optimized output: %w", path, err)
	}

	o.logger.Infow("recording optimized for streaming playback", "path", path)
	return nil
}
