package encoding

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"image"
	"image/png"
	"math"
	"sync"

	"screenpipe/internal/core/domain"

	"github.com/disintegration/imaging"
)

// StillWriter encodes a single raw RGBA frame into an in-memory PNG with
// scale and DPI metadata. It accepts exactly one frame: readiness drops to
// false after the first write so the pipeline counts any further frames as
// dropped instead of queueing them. WriteSample runs on the delivery thread
// and only copies the frame; the encode itself is deferred to Finish, which
// runs on session-control context.
type StillWriter struct {
	mu sync.Mutex

	profile domain.QualityProfile
	still   domain.StillProfile

	frame *image.RGBA
	buf   bytes.Buffer
	wrote bool
}

func NewStillWriter(still domain.StillProfile) *StillWriter {
	return &StillWriter{still: still}
}

func (w *StillWriter) AddVideoTrack(profile domain.QualityProfile) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.profile = profile
	return nil
}

// AddAudioTrack always fails: a still image has no audio input.
func (w *StillWriter) AddAudioTrack() error {
	return fmt.Errorf("still image writer has no audio input")
}

func (w *StillWriter) Ready() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return !w.wrote
}

func (w *StillWriter) WriteSample(sample domain.FrameSample) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.wrote {
		return fmt.Errorf("still image writer accepts a single frame")
	}
	if sample.Kind != domain.SampleVideo {
		return fmt.Errorf("still image writer accepts video samples only")
	}
	if len(sample.Data) < sample.Width*sample.Height*4 {
		return fmt.Errorf("frame payload too short for %dx%d", sample.Width, sample.Height)
	}

	// The frame buffer is borrowed from the capture service; copy so the
	// deferred encode outlives the delivery callback.
	pix := make([]byte, sample.Width*sample.Height*4)
	copy(pix, sample.Data)
	w.frame = &image.RGBA{
		Pix:    pix,
		Stride: 4 * sample.Width,
		Rect:   image.Rect(0, 0, sample.Width, sample.Height),
	}
	w.wrote = true
	return nil
}

func (w *StillWriter) Finish() (int64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.frame == nil {
		return 0, nil
	}

	// Oversized frames are fitted to the resolved profile, preserving aspect.
	var encodable image.Image = w.frame
	bounds := w.frame.Bounds()
	if w.profile.Width > 0 && w.profile.Height > 0 &&
		(bounds.Dx() > w.profile.Width || bounds.Dy() > w.profile.Height) {
		encodable = imaging.Fit(w.frame, w.profile.Width, w.profile.Height, imaging.Lanczos)
	}

	var raw bytes.Buffer
	if err := png.Encode(&raw, encodable); err != nil {
		return 0, fmt.Errorf("encode png: %w", err)
	}

	w.buf.Reset()
	w.buf.Write(withPixelDensity(raw.Bytes(), w.still.DPI))
	w.frame = nil
	return int64(w.buf.Len()), nil
}

// Bytes returns the finished PNG.
func (w *StillWriter) Bytes() []byte {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]byte, w.buf.Len())
	copy(out, w.buf.Bytes())
	return out
}

// pngHeaderLen is the PNG signature plus the fixed-size IHDR chunk; pHYs must
// come after IHDR and before IDAT.
const pngHeaderLen = 8 + 25

// withPixelDensity inserts a pHYs chunk carrying the DPI as pixels per meter.
// The stdlib encoder never emits one itself.
func withPixelDensity(data []byte, dpi float64) []byte {
	if dpi <= 0 || len(data) < pngHeaderLen {
		return data
	}

	const metersPerInch = 0.0254
	ppm := uint32(math.Round(dpi / metersPerInch))

	chunk := make([]byte, 21)
	binary.BigEndian.PutUint32(chunk[0:4], 9)
	copy(chunk[4:8], "pHYs")
	binary.BigEndian.PutUint32(chunk[8:12], ppm)
	binary.BigEndian.PutUint32(chunk[12:16], ppm)
	chunk[16] = 1 // unit: meter
	binary.BigEndian.PutUint32(chunk[17:21], crc32.ChecksumIEEE(chunk[4:17]))

	out := make([]byte, 0, len(data)+len(chunk))
	out = append(out, data[:pngHeaderLen]...)
	out = append(out, chunk...)
	out = append(out, data[pngHeaderLen:]...)
	return out
}
