package encoding

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"sync"

	"screenpipe/internal/core/domain"

	"go.uber.org/zap"
)

// FFmpegWriter encodes raw RGBA frames into an MP4 by piping them to an
// ffmpeg child process. The encoder is launched lazily on the first frame,
// when the input geometry is known; frames are handed off through a bounded
// queue sized to the profile's buffer depth so the delivery thread never
// blocks on the encoder.
type FFmpegWriter struct {
	ffmpegPath  string
	destination string
	logger      *zap.SugaredLogger

	mu       sync.Mutex
	profile  domain.QualityProfile
	cmd      *exec.Cmd
	stdin    io.WriteCloser
	queue    chan []byte
	drained  chan struct{}
	writeErr error
	finished bool
}

func NewFFmpegWriter(ffmpegPath, destination string, logger *zap.SugaredLogger) *FFmpegWriter {
	return &FFmpegWriter{
		ffmpegPath:  ffmpegPath,
		destination: destination,
		logger:      logger,
	}
}

func (w *FFmpegWriter) AddVideoTrack(profile domain.QualityProfile) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, err := exec.LookPath(w.ffmpegPath); err != nil {
		return fmt.Errorf("ffmpeg not found at %q: %w", w.ffmpegPath, err)
	}

	depth := profile.BufferDepth
	if depth <= 0 {
		depth = 4
	}
	w.profile = profile
	w.queue = make(chan []byte, depth)
	return nil
}

// AddAudioTrack fails: the raw-video stdin pipe is the process's only input.
func (w *FFmpegWriter) AddAudioTrack() error {
	return fmt.Errorf("raw-video encoder has a single video input")
}

func (w *FFmpegWriter) Ready() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.queue == nil || w.finished || w.writeErr != nil {
		return false
	}
	return len(w.queue) < cap(w.queue)
}

func (w *FFmpegWriter) WriteSample(sample domain.FrameSample) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.queue == nil {
		return fmt.Errorf("video track not configured")
	}
	if w.finished {
		return fmt.Errorf("encoder already finished")
	}
	if w.writeErr != nil {
		return w.writeErr
	}
	if sample.Kind != domain.SampleVideo {
		return fmt.Errorf("raw-video encoder accepts video samples only")
	}

	if w.cmd == nil {
		if err := w.launch(sample.Width, sample.Height); err != nil {
			w.writeErr = err
			return err
		}
	}

	// The frame buffer is borrowed from the capture service; copy before the
	// handoff outlives the call.
	frame := make([]byte, len(sample.Data))
	copy(frame, sample.Data)

	select {
	case w.queue <- frame:
		return nil
	default:
		return fmt.Errorf("encoder backlogged, frame rejected")
	}
}

// launch starts ffmpeg with the input geometry of the first frame, scaling
// to the resolved profile. Caller holds the mutex.
func (w *FFmpegWriter) launch(inputWidth, inputHeight int) error {
	args := []string{
		"-hide_banner", "-loglevel", "error", "-y",
		"-f", "rawvideo",
		"-pix_fmt", "rgba",
		"-s", fmt.Sprintf("%dx%d", inputWidth, inputHeight),
		"-r", strconv.Itoa(w.profile.FrameRate),
		"-i", "-",
		"-vf", fmt.Sprintf("scale=%d:%d", w.profile.Width, w.profile.Height),
		"-c:v", "libx264",
		"-preset", preset(w.profile),
		"-b:v", fmt.Sprintf("%dk", w.profile.BitrateKbps),
		"-pix_fmt", "yuv420p",
		w.destination,
	}

	cmd := exec.Command(w.ffmpegPath, args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("open encoder stdin: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start encoder: %w", err)
	}

	w.cmd = cmd
	w.stdin = stdin
	w.drained = make(chan struct{})
	go w.drain()

	w.logger.Infow("encoder started",
		"path", w.destination,
		"input", fmt.Sprintf("%dx%d", inputWidth, inputHeight),
		"output", fmt.Sprintf("%dx%d", w.profile.Width, w.profile.Height),
		"fps", w.profile.FrameRate,
	)
	return nil
}

// drain feeds queued frames to the encoder off the delivery thread. The
// first pipe error is kept; later frames are discarded so the queue empties.
func (w *FFmpegWriter) drain() {
	defer close(w.drained)
	for frame := range w.queue {
		w.mu.Lock()
		failed := w.writeErr != nil
		stdin := w.stdin
		w.mu.Unlock()
		if failed {
			continue
		}
		if _, err := stdin.Write(frame); err != nil {
			w.mu.Lock()
			w.writeErr = fmt.Errorf("write frame to encoder: %w", err)
			w.mu.Unlock()
		}
	}
}

// Finish closes the frame queue, waits for the encoder to flush the
// container, and reports the destination's final size.
func (w *FFmpegWriter) Finish() (int64, error) {
	w.mu.Lock()
	if w.finished {
		w.mu.Unlock()
		return 0, fmt.Errorf("encoder already finished")
	}
	w.finished = true
	queue := w.queue
	drained := w.drained
	cmd := w.cmd
	stdin := w.stdin
	w.mu.Unlock()

	if queue != nil {
		close(queue)
	}
	if cmd == nil {
		// No frame ever arrived; nothing was written.
		return 0, nil
	}

	<-drained
	if err := stdin.Close(); err != nil {
		w.logger.Warnw("failed to close encoder stdin", "error", err)
	}
	waitErr := cmd.Wait()

	var size int64
	if info, err := os.Stat(w.destination); err == nil {
		size = info.Size()
	}

	w.mu.Lock()
	writeErr := w.writeErr
	w.mu.Unlock()

	if writeErr != nil {
		return size, writeErr
	}
	if waitErr != nil {
		return size, fmt.Errorf("encoder exited with error: %w", waitErr)
	}
	return size, nil
}

func preset(profile domain.QualityProfile) string {
	// Real-time capture cannot afford slow presets; hardware-class tiers get
	// the fastest one.
	if profile.HardwareAccel {
		return "ultrafast"
	}
	return "veryfast"
}
