// Package assets loads avatar frames from image files.
package assets

import (
	"fmt"
	"image"
	"math"
	"os"
	"path/filepath"

	// Registered decoders
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"github.com/normanking/deskavatar/internal/avatar"
	"github.com/normanking/deskavatar/internal/config"
	"github.com/rs/zerolog"
	"golang.org/x/image/draw"
)

// Image is a decoded, scaled frame in premultiplied RGBA.
type Image struct {
	path string
	rgba *image.RGBA
}

// Size returns the scaled size in pixels.
func (i *Image) Size() (int, int) {
	b := i.rgba.Bounds()
	return b.Dx(), b.Dy()
}

// Pixels returns the pixel buffer. Callers must not modify it.
func (i *Image) Pixels() *image.RGBA {
	return i.rgba
}

// Path returns the file the image was loaded from.
func (i *Image) Path() string {
	return i.path
}

// Loader decodes and scales frames. Paths listed in more than one category
// share a single Image.
type Loader struct {
	scale   float64
	baseDir string
	logger  zerolog.Logger
	cache   map[string]*Image
}

// NewLoader creates a loader. Relative paths resolve against baseDir; an
// empty baseDir means the working directory.
func NewLoader(scale float64, baseDir string, logger zerolog.Logger) *Loader {
	if scale <= 0 {
		scale = 1
	}
	return &Loader{
		scale:   scale,
		baseDir: baseDir,
		logger:  logger.With().Str("component", "assets").Logger(),
		cache:   make(map[string]*Image),
	}
}

// LoadFile decodes one image and scales it.
func (l *Loader) LoadFile(path string) (*Image, error) {
	full := path
	if l.baseDir != "" && !filepath.IsAbs(path) {
		full = filepath.Join(l.baseDir, path)
	}
	if img, ok := l.cache[full]; ok {
		return img, nil
	}

	f, err := os.Open(full)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	src, format, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	img := &Image{path: path, rgba: l.scaled(src)}
	l.cache[full] = img

	w, h := img.Size()
	l.logger.Debug().Str("path", path).Str("format", format).Int("width", w).Int("height", h).Msg("frame loaded")
	return img, nil
}

// Load decodes every path in order. Unreadable files are skipped with a
// warning, so the result may be shorter than paths.
func (l *Loader) Load(paths []string) []avatar.Frame {
	frames := make([]avatar.Frame, 0, len(paths))
	for _, p := range paths {
		img, err := l.LoadFile(p)
		if err != nil {
			l.logger.Warn().Err(err).Str("path", p).Msg("could not load frame, skipping")
			continue
		}
		frames = append(frames, img)
	}
	return frames
}

// FrameSet loads every category of cfg. It fails with avatar.ErrNoIdleFrames
// when no idle frame could be loaded.
func (l *Loader) FrameSet(cfg config.FramesConfig) (*avatar.FrameSet, error) {
	blinkIdle, blinkTalk := cfg.ResolvedBlink()

	fs, err := avatar.NewFrameSet(
		l.Load(cfg.Idle),
		l.Load(cfg.Talk),
		l.Load(blinkIdle),
		l.Load(blinkTalk),
	)
	if err != nil {
		return nil, fmt.Errorf("frames.idle: %w", err)
	}
	return fs, nil
}

func (l *Loader) scaled(src image.Image) *image.RGBA {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if l.scale != 1 {
		w = max(1, int(math.Round(float64(w)*l.scale)))
		h = max(1, int(math.Round(float64(h)*l.scale)))
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	if w == b.Dx() && h == b.Dy() {
		draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
		return dst
	}
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)
	return dst
}
