package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"math"
	"net/http"
	"os/exec"
	"strconv"
	"strings"

	_ "golang.org/x/image/webp"
)

const (
	DefaultMaxDimension = 512
	defaultJPEGQuality  = 3
	defaultPNGLevel     = 4
	defaultWebPQuality  = 85
)

var (
	ErrUnsupportedImage = errors.New("media: file is not a jpeg, png, gif or webp image")
	ErrNotPDF           = errors.New("media: file is not a pdf document")
	ErrEmpty            = errors.New("media: empty upload")
)

var imageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

type Upload struct {
	Reader      io.Reader
	Size        int64
	FileName    string
	ContentType string
}

type Result struct {
	Bytes       []byte
	ContentType string
	Extension   string
	Resized     bool
}

type Processor interface {
	Process(ctx context.Context, upload Upload, maxDimension int) (*Result, error)
}

// Sniff detects the content type from the leading bytes of data, ignoring
// whatever the client declared.
func Sniff(data []byte) string {
	ct := http.DetectContentType(data)
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	return strings.TrimSpace(ct)
}

// ImageExtension returns the file extension for a supported image type.
func ImageExtension(contentType string) (string, bool) {
	ext, ok := imageTypes[contentType]
	return ext, ok
}

// ReadDocument reads a PDF upload up to maxBytes.
func ReadDocument(upload Upload, maxBytes int64) ([]byte, error) {
	data, err := readLimited(upload.Reader, maxBytes)
	if err != nil {
		return nil, err
	}
	if Sniff(data) != "application/pdf" {
		return nil, ErrNotPDF
	}
	return data, nil
}

// ErrTooLarge is returned when an upload exceeds its size limit.
type ErrTooLarge struct {
	Limit int64
}

func (e *ErrTooLarge) Error() string {
	return fmt.Sprintf("media: upload exceeds %d bytes", e.Limit)
}

func readLimited(r io.Reader, maxBytes int64) ([]byte, error) {
	if r == nil {
		return nil, ErrEmpty
	}
	if maxBytes > 0 {
		r = io.LimitReader(r, maxBytes+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("media: read upload: %w", err)
	}
	if len(data) == 0 {
		return nil, ErrEmpty
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return nil, &ErrTooLarge{Limit: maxBytes}
	}
	return data, nil
}

// FFMPEGProcessor shrinks avatars that exceed the configured edge length.
type FFMPEGProcessor struct {
	path         string
	maxDimension int
	maxBytes     int64
	jpegQuality  int
	pngLevel     int
	webpQuality  int
	run          func(ctx context.Context, path string, args []string, stdin []byte) ([]byte, error)
}

func NewFFMPEGProcessor(binaryPath string, maxDimension int, maxBytes int64) *FFMPEGProcessor {
	path := strings.TrimSpace(binaryPath)
	if path == "" {
		path = "ffmpeg"
	}
	if maxDimension <= 0 {
		maxDimension = DefaultMaxDimension
	}
	return &FFMPEGProcessor{
		path:         path,
		maxDimension: maxDimension,
		maxBytes:     maxBytes,
		jpegQuality:  defaultJPEGQuality,
		pngLevel:     defaultPNGLevel,
		webpQuality:  defaultWebPQuality,
		run:          runCommand,
	}
}

func (p *FFMPEGProcessor) Process(ctx context.Context, upload Upload, maxDimension int) (*Result, error) {
	data, err := readLimited(upload.Reader, p.maxBytes)
	if err != nil {
		return nil, err
	}

	contentType := Sniff(data)
	ext, ok := ImageExtension(contentType)
	if !ok {
		return nil, ErrUnsupportedImage
	}

	width, height, err := decodeDimensions(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}
	targetMax := maxDimension
	if targetMax <= 0 {
		targetMax = p.maxDimension
	}
	if width <= targetMax && height <= targetMax {
		return &Result{Bytes: data, ContentType: contentType, Extension: ext}, nil
	}

	targetW, targetH := scaleToFit(width, height, targetMax)
	processed, err := p.transcode(ctx, data, contentType, targetW, targetH)
	if err != nil {
		return nil, err
	}
	return &Result{Bytes: processed, ContentType: contentType, Extension: ext, Resized: true}, nil
}

func decodeDimensions(r io.Reader) (int, int, error) {
	cfg, _, err := image.DecodeConfig(r)
	if err != nil {
		return 0, 0, err
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return 0, 0, fmt.Errorf("invalid dimensions %dx%d", cfg.Width, cfg.Height)
	}
	return cfg.Width, cfg.Height, nil
}

func scaleToFit(width, height, maxDim int) (int, int) {
	if width >= height {
		h := int(math.Round(float64(height) * float64(maxDim) / float64(width)))
		return atLeastTwo(maxDim), atLeastTwo(h)
	}
	w := int(math.Round(float64(width) * float64(maxDim) / float64(height)))
	return atLeastTwo(w), atLeastTwo(maxDim)
}

func atLeastTwo(value int) int {
	if value < 2 {
		return 2
	}
	return value
}

func (p *FFMPEGProcessor) transcode(ctx context.Context, data []byte, contentType string, width, height int) ([]byte, error) {
	codec, extra, err := p.codecArgs(contentType)
	if err != nil {
		return nil, err
	}

	args := []string{
		"-hide_banner",
		"-loglevel", "error",
		"-i", "pipe:0",
		"-vf", fmt.Sprintf("scale=%d:%d:flags=lanczos", width, height),
		"-frames:v", "1",
		"-f", "image2",
		"-c:v", codec,
	}
	args = append(args, extra...)
	args = append(args, "pipe:1")

	out, err := p.run(ctx, p.path, args, data)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("ffmpeg: produced empty output")
	}
	return out, nil
}

func (p *FFMPEGProcessor) codecArgs(contentType string) (string, []string, error) {
	switch contentType {
	case "image/jpeg":
		return "mjpeg", []string{"-q:v", strconv.Itoa(p.jpegQuality)}, nil
	case "image/png":
		return "png", []string{"-compression_level", strconv.Itoa(p.pngLevel)}, nil
	case "image/gif":
		return "gif", nil, nil
	case "image/webp":
		return "libwebp", []string{"-quality", strconv.Itoa(p.webpQuality)}, nil
	default:
		return "", nil, ErrUnsupportedImage
	}
}

func runCommand(ctx context.Context, path string, args []string, stdin []byte) ([]byte, error) {
	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Stdin = bytes.NewReader(stdin)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("ffmpeg: %v: %s", err, msg)
		}
		return nil, fmt.Errorf("ffmpeg: %w", err)
	}
	return stdout.Bytes(), nil
}
