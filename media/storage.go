package media

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	_ "golang.org/x/image/webp"
)

var (
	// ErrTooLarge is returned when an upload exceeds the configured size limit.
	ErrTooLarge = errors.New("file too large")
	// ErrNotImage is returned when an upload does not decode as a supported image.
	ErrNotImage = errors.New("file is not a supported image")
)

// formatExt maps decoder names to the extension used on disk.
var formatExt = map[string]string{
	"jpeg": ".jpg",
	"png":  ".png",
	"gif":  ".gif",
	"webp": ".webp",
}

// Stored describes a saved upload.
type Stored struct {
	Filename     string `json:"filename"`
	Path         string `json:"-"`
	OriginalName string `json:"originalname"`
	Size         int64  `json:"size"`
}

// Storage writes uploaded images to a directory served under a public path prefix.
type Storage struct {
	dir        string
	publicPath string
	maxSize    int64
	log        *zap.Logger
}

// NewStorage creates a Storage rooted at dir; saved files are addressed as publicPath/<name>.
func NewStorage(dir, publicPath string, maxSize int64, log *zap.Logger) *Storage {
	return &Storage{
		dir:        dir,
		publicPath: "/" + strings.Trim(publicPath, "/"),
		maxSize:    maxSize,
		log:        log,
	}
}

// Dir is the directory files are written to.
func (s *Storage) Dir() string { return s.dir }

// PublicPath is the URL prefix files are served under.
func (s *Storage) PublicPath() string { return s.publicPath }

// Save stores the uploaded file under a random name and returns its relative public path.
func (s *Storage) Save(ctx context.Context, header *multipart.FileHeader) (Stored, error) {
	if err := ctx.Err(); err != nil {
		return Stored{}, err
	}
	if header.Size > s.maxSize {
		return Stored{}, fmt.Errorf("%s is %d bytes, limit %d: %w", header.Filename, header.Size, s.maxSize, ErrTooLarge)
	}

	src, err := header.Open()
	if err != nil {
		return Stored{}, fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	_, format, err := image.DecodeConfig(src)
	if err != nil {
		return Stored{}, fmt.Errorf("%s: %w", header.Filename, ErrNotImage)
	}
	ext, ok := formatExt[format]
	if !ok {
		return Stored{}, fmt.Errorf("%s: unsupported format %q: %w", header.Filename, format, ErrNotImage)
	}
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return Stored{}, fmt.Errorf("rewind upload: %w", err)
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return Stored{}, fmt.Errorf("create upload directory: %w", err)
	}

	name := strings.ReplaceAll(uuid.NewString(), "-", "") + ext
	dstPath := filepath.Join(s.dir, name)
	out, err := os.Create(dstPath)
	if err != nil {
		return Stored{}, fmt.Errorf("create %s: %w", dstPath, err)
	}

	// Header.Size comes from the client; enforce the limit on the bytes actually copied.
	written, err := io.Copy(out, &io.LimitedReader{R: src, N: s.maxSize + 1})
	closeErr := out.Close()
	if err == nil {
		err = closeErr
	}
	if err == nil && written > s.maxSize {
		err = fmt.Errorf("%s: %w", header.Filename, ErrTooLarge)
	}
	if err != nil {
		_ = os.Remove(dstPath)
		return Stored{}, err
	}

	s.log.Info("stored upload",
		zap.String("file", name),
		zap.String("original", header.Filename),
		zap.Int64("size", written),
	)

	return Stored{
		Filename:     name,
		Path:         path.Join(s.publicPath, name),
		OriginalName: filepath.Base(header.Filename),
		Size:         written,
	}, nil
}

// Remove deletes a file previously returned by Save. Paths outside the storage are ignored.
func (s *Storage) Remove(publicPath string) error {
	prefix := s.publicPath + "/"
	if !strings.HasPrefix(publicPath, prefix) {
		return nil
	}
	name := filepath.Base(strings.TrimPrefix(publicPath, prefix))
	if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
