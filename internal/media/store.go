// Package media stores uploaded and downloaded files (avatars, covers, author
// photos, book content) on local disk and hands out opaque handles for them.
//
// A handle is a slash-separated path relative to the store root, for example
// "avatars/user_3/5b0c...e1_me.png". Handles are what the database keeps; the
// files themselves are only reachable through the Store.
package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mrlokans/bookshelf/internal/library"
)

// Kind selects the top-level directory for a file.
type Kind string

const (
	KindAvatar      Kind = "avatars"
	KindCover       Kind = "covers"
	KindAuthorPhoto Kind = "authors"
	KindBook        Kind = "books"
)

func (k Kind) ownerPrefix() string {
	switch k {
	case KindCover, KindBook:
		return "book"
	case KindAuthorPhoto:
		return "author"
	}
	return "user"
}

// Public reports whether files of this kind may be served without checking
// who is asking. Book content is only handed out through the reader endpoint.
func (k Kind) Public() bool {
	return k != KindBook
}

// KindOf returns the kind a handle was saved under.
func KindOf(handle string) Kind {
	kind, _, _ := strings.Cut(path.Clean(handle), "/")
	return Kind(kind)
}

// Size limits for a single stored file.
const (
	DefaultMaxBytes     = 5 << 20
	DefaultMaxBookBytes = 100 << 20
)

var ErrInvalidHandle = errors.New("invalid media handle")

var imageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// Store keeps media files under a root directory.
type Store struct {
	root         string
	maxBytes     int64
	maxBookBytes int64
	httpClient   *http.Client
}

// NewStore creates a store rooted at dir, creating the directory if needed.
func NewStore(dir string, maxBytes int64) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create media dir: %w", err)
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}

	return &Store{
		root:         dir,
		maxBytes:     maxBytes,
		maxBookBytes: DefaultMaxBookBytes,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}, nil
}

// SetMaxBookBytes changes the size limit for book files. Non-positive values
// restore the default.
func (s *Store) SetMaxBookBytes(n int64) {
	if n <= 0 {
		n = DefaultMaxBookBytes
	}
	s.maxBookBytes = n
}

func (s *Store) limit(kind Kind) int64 {
	if kind == KindBook {
		return s.maxBookBytes
	}
	return s.maxBytes
}

// Root returns the store's directory.
func (s *Store) Root() string {
	return s.root
}

// Save writes r to a new file for the owner and returns its handle. Images
// must be a supported image type and book files a supported book format,
// both within the store limit for their kind.
func (s *Store) Save(kind Kind, ownerID uint, filename string, r io.Reader) (string, error) {
	limit := s.limit(kind)
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return "", fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > limit {
		return "", library.Invalid("file", fmt.Sprintf("must be at most %d bytes", limit))
	}
	if len(data) == 0 {
		return "", library.Invalid("file", "is empty")
	}

	var ext string
	if kind == KindBook {
		ext = DetectBookExt(data)
		if ext == "" {
			return "", library.Invalid("file", "must be a pdf, epub, mobi or plain text file")
		}
	} else {
		contentType := http.DetectContentType(data)
		var ok bool
		ext, ok = imageTypes[contentType]
		if !ok {
			return "", library.Invalid("file", fmt.Sprintf("unsupported content type %s", contentType))
		}
	}

	name := sanitizeFilename(filename)
	if !strings.EqualFold(path.Ext(name), ext) && !(ext == ".jpg" && strings.EqualFold(path.Ext(name), ".jpeg")) {
		name = strings.TrimSuffix(name, path.Ext(name)) + ext
	}

	handle := path.Join(string(kind), fmt.Sprintf("%s_%d", kind.ownerPrefix(), ownerID), uuid.NewString()+"_"+name)
	target, err := s.Path(handle)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return "", fmt.Errorf("create media dir: %w", err)
	}

	if err := writeAtomic(target, data); err != nil {
		return "", fmt.Errorf("write %s: %w", handle, err)
	}
	return handle, nil
}

// Fetch downloads an image from url and stores it like Save.
func (s *Store) Fetch(ctx context.Context, kind Kind, ownerID uint, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", "Bookshelf/1.0")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to fetch %s: status %d", url, resp.StatusCode)
	}

	return s.Save(kind, ownerID, path.Base(req.URL.Path), resp.Body)
}

// Open opens the file behind a handle.
func (s *Store) Open(handle string) (*os.File, error) {
	p, err := s.Path(handle)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if errors.Is(err, os.ErrNotExist) {
		return nil, library.NotFound("media", handle)
	}
	return f, err
}

// Path resolves a handle to a file path inside the store root.
func (s *Store) Path(handle string) (string, error) {
	if handle == "" || path.IsAbs(handle) || strings.Contains(handle, `\`) {
		return "", ErrInvalidHandle
	}
	clean := path.Clean(handle)
	if clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", ErrInvalidHandle
	}
	return filepath.Join(s.root, filepath.FromSlash(clean)), nil
}

// Release deletes the file behind a handle. Releasing an empty handle or a
// file that is already gone succeeds.
func (s *Store) Release(handle string) error {
	if handle == "" {
		return nil
	}
	p, err := s.Path(handle)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// DetectBookExt sniffs book content and returns its extension (".pdf",
// ".epub", ".mobi" or ".txt"), or "" when the data is none of them.
func DetectBookExt(data []byte) string {
	contentType := http.DetectContentType(data)
	switch {
	case contentType == "application/pdf":
		return ".pdf"
	case contentType == "application/zip":
		// The first zip entry of an EPUB is an uncompressed "mimetype" file.
		if bytes.Contains(data[:min(len(data), 128)], []byte("application/epub+zip")) {
			return ".epub"
		}
	case len(data) >= 68 && string(data[60:68]) == "BOOKMOBI":
		return ".mobi"
	case strings.HasPrefix(contentType, "text/plain"):
		return ".txt"
	}
	return ""
}

func writeAtomic(target string, data []byte) error {
	tmpFile, err := os.CreateTemp(filepath.Dir(target), ".upload_tmp_")
	if err != nil {
		return err
	}
	tmpPath := tmpFile.Name()
	defer func() {
		tmpFile.Close()
		os.Remove(tmpPath) // no-op after a successful rename
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return err
	}
	if err := tmpFile.Close(); err != nil {
		return err
	}

	return os.Rename(tmpPath, target)
}

// sanitizeFilename keeps the base name's letters, digits, dot, dash and
// underscore, lower-cased, and caps its length.
func sanitizeFilename(name string) string {
	name = path.Base(strings.ReplaceAll(name, `\`, "/"))

	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ':
			b.WriteByte('_')
		}
	}

	clean := strings.Trim(b.String(), ".")
	if clean == "" {
		clean = "file"
	}
	if len(clean) > 80 {
		clean = clean[len(clean)-80:]
	}
	return clean
}
