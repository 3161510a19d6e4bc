package receipt

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/scanearn/coinvault/internal/apperror"
)

const (
	DefaultMaxBytes = 5 << 20
	chunkSize       = 32 << 10
	sniffLen        = 512
)

// ErrNotFound is returned for unknown receipt references.
var ErrNotFound = apperror.New(apperror.KindNotFound, "receipt not found")

var allowedContentTypes = map[string]struct{}{
	"image/jpeg":      {},
	"image/png":       {},
	"image/webp":      {},
	"application/pdf": {},
}

// Receipt is the metadata of an uploaded payment proof. ID is the opaque blob reference.
type Receipt struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"owner_id"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	CreatedAt   time.Time `json:"created_at"`
}

// ProgressFunc receives upload progress in percent. Calls are monotonically
// non-decreasing and end with 100 when the upload succeeds.
type ProgressFunc func(percent int)

// Store persists receipt blobs.
type Store interface {
	Put(ctx context.Context, r Receipt, data []byte) error
	Get(ctx context.Context, id string) (Receipt, []byte, error)
	Meta(ctx context.Context, id string) (Receipt, error)
}

// Service validates and stores receipts.
type Service struct {
	store    Store
	maxBytes int64
}

// NewService builds a receipt service. maxBytes <= 0 selects DefaultMaxBytes.
func NewService(store Store, maxBytes int64) *Service {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Service{store: store, maxBytes: maxBytes}
}

// UploadInput describes a receipt upload. Size may be zero when unknown.
type UploadInput struct {
	OwnerID     string
	ContentType string
	Body        io.Reader
	Size        int64
}

type progressTracker struct {
	fn   ProgressFunc
	last int
}

func (p *progressTracker) report(pct int) {
	if p.fn == nil || pct < p.last {
		return
	}
	if pct > 100 {
		pct = 100
	}
	p.last = pct
	p.fn(pct)
}

// Upload reads the body, reporting progress, and stores it once fully received.
func (s *Service) Upload(ctx context.Context, in UploadInput, progress ProgressFunc) (Receipt, error) {
	contentType := strings.ToLower(strings.TrimSpace(strings.SplitN(in.ContentType, ";", 2)[0]))
	if _, ok := allowedContentTypes[contentType]; !ok {
		return Receipt{}, apperror.Validation("unsupported receipt type %q", in.ContentType)
	}
	if in.Size > s.maxBytes {
		return Receipt{}, apperror.Validation("receipt exceeds %d bytes", s.maxBytes)
	}
	if in.Body == nil {
		return Receipt{}, apperror.Validation("receipt body is required")
	}

	tracker := &progressTracker{fn: progress}
	tracker.report(0)

	var buf bytes.Buffer
	chunk := make([]byte, chunkSize)
	for {
		n, err := in.Body.Read(chunk)
		if n > 0 {
			buf.Write(chunk[:n])
			if int64(buf.Len()) > s.maxBytes {
				return Receipt{}, apperror.Validation("receipt exceeds %d bytes", s.maxBytes)
			}
			if in.Size > 0 {
				// 100 is reserved for a completed store.
				tracker.report(min(int(int64(buf.Len())*99/in.Size), 99))
			}
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Receipt{}, apperror.Validation("read receipt: %v", err)
		}
	}
	if buf.Len() == 0 {
		return Receipt{}, apperror.Validation("receipt is empty")
	}
	sniffed, err := sniffContentType(buf.Bytes())
	if err != nil {
		return Receipt{}, err
	}
	if sniffed != contentType {
		return Receipt{}, apperror.Validation("receipt content is %s, declared %s", sniffed, contentType)
	}

	rec := Receipt{
		ID:          uuid.NewString(),
		OwnerID:     in.OwnerID,
		ContentType: contentType,
		Size:        int64(buf.Len()),
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.store.Put(ctx, rec, buf.Bytes()); err != nil {
		return Receipt{}, err
	}
	tracker.report(100)
	return rec, nil
}

// sniffContentType detects the type from the leading bytes and checks it
// against the allowlist.
func sniffContentType(data []byte) (string, error) {
	if len(data) > sniffLen {
		data = data[:sniffLen]
	}
	detected := strings.SplitN(http.DetectContentType(data), ";", 2)[0]
	if _, ok := allowedContentTypes[detected]; !ok {
		return "", apperror.Validation("unsupported receipt content %q", detected)
	}
	return detected, nil
}

// Meta returns receipt metadata.
func (s *Service) Meta(ctx context.Context, id string) (Receipt, error) {
	return s.store.Meta(ctx, id)
}

// Open returns the receipt and its content.
func (s *Service) Open(ctx context.Context, id string) (Receipt, []byte, error) {
	return s.store.Get(ctx, id)
}

type memoryStore struct {
	mu    sync.RWMutex
	metas map[string]Receipt
	blobs map[string][]byte
}

// NewMemoryStore builds an in-memory receipt store.
func NewMemoryStore() Store {
	return &memoryStore{metas: make(map[string]Receipt), blobs: make(map[string][]byte)}
}

func (m *memoryStore) Put(_ context.Context, r Receipt, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.metas[r.ID] = r
	m.blobs[r.ID] = append([]byte(nil), data...)
	return nil
}

func (m *memoryStore) Get(_ context.Context, id string) (Receipt, []byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.metas[id]
	if !ok {
		return Receipt{}, nil, ErrNotFound
	}
	return r, append([]byte(nil), m.blobs[id]...), nil
}

func (m *memoryStore) Meta(_ context.Context, id string) (Receipt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.metas[id]
	if !ok {
		return Receipt{}, ErrNotFound
	}
	return r, nil
}
