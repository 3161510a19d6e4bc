package receipt

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/scanearn/coinvault/internal/apperror"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func pngOf(size int) []byte {
	return append(append([]byte(nil), pngHeader...), bytes.Repeat([]byte("x"), size-len(pngHeader))...)
}

type failingStore struct{ Store }

func (failingStore) Put(context.Context, Receipt, []byte) error {
	return apperror.Backend("put receipt", errors.New("disk full"))
}

func TestUploadReportsMonotonicProgress(t *testing.T) {
	svc := NewService(NewMemoryStore(), 0)
	data := pngOf(100 << 10)

	var seen []int
	rec, err := svc.Upload(context.Background(), UploadInput{
		OwnerID:     "u1",
		ContentType: "image/png",
		Body:        bytes.NewReader(data),
		Size:        int64(len(data)),
	}, func(p int) { seen = append(seen, p) })
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	if len(seen) < 3 || seen[0] != 0 || seen[len(seen)-1] != 100 {
		t.Fatalf("unexpected progress sequence %v", seen)
	}
	for i := 1; i < len(seen); i++ {
		if seen[i] < seen[i-1] {
			t.Fatalf("progress decreased: %v", seen)
		}
	}

	meta, blob, err := svc.Open(context.Background(), rec.ID)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if meta.OwnerID != "u1" || len(blob) != len(data) {
		t.Fatalf("unexpected stored receipt %+v (%d bytes)", meta, len(blob))
	}
}

func TestUploadUnknownSizeStillEndsAt100(t *testing.T) {
	svc := NewService(NewMemoryStore(), 0)
	var seen []int
	if _, err := svc.Upload(context.Background(), UploadInput{
		OwnerID:     "u1",
		ContentType: "application/pdf",
		Body:        strings.NewReader("%PDF-1.4"),
	}, func(p int) { seen = append(seen, p) }); err != nil {
		t.Fatalf("upload: %v", err)
	}
	if len(seen) != 2 || seen[0] != 0 || seen[1] != 100 {
		t.Fatalf("unexpected progress %v", seen)
	}
}

func TestUploadValidation(t *testing.T) {
	svc := NewService(NewMemoryStore(), 16)
	ctx := context.Background()

	if _, err := svc.Upload(ctx, UploadInput{ContentType: "text/html", Body: strings.NewReader("x")}, nil); !errors.Is(err, apperror.ErrValidationFailed) {
		t.Fatalf("expected content type rejection, got %v", err)
	}

	var last int
	_, err := svc.Upload(ctx, UploadInput{ContentType: "image/jpeg", Body: strings.NewReader("\xff\xd8\xff" + strings.Repeat("x", 64))}, func(p int) { last = p })
	if !errors.Is(err, apperror.ErrValidationFailed) {
		t.Fatalf("expected size rejection, got %v", err)
	}
	if last == 100 {
		t.Fatalf("failed uploads must not report completion")
	}

	if _, err := svc.Meta(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestUploadUnderstatedSizeHoldsProgressBelow100(t *testing.T) {
	data := pngOf(96 << 10)

	var seen []int
	_, err := NewService(failingStore{NewMemoryStore()}, 0).Upload(context.Background(), UploadInput{
		OwnerID:     "u1",
		ContentType: "image/png",
		Body:        bytes.NewReader(data),
		Size:        1 << 10,
	}, func(p int) { seen = append(seen, p) })
	if !errors.Is(err, apperror.ErrBackendUnavailable) {
		t.Fatalf("expected store failure, got %v", err)
	}
	if len(seen) == 0 || seen[len(seen)-1] != 99 {
		t.Fatalf("expected progress to stop at 99, got %v", seen)
	}

	seen = nil
	if _, err := NewService(NewMemoryStore(), 0).Upload(context.Background(), UploadInput{
		OwnerID:     "u1",
		ContentType: "image/png",
		Body:        bytes.NewReader(data),
		Size:        1 << 10,
	}, func(p int) { seen = append(seen, p) }); err != nil {
		t.Fatalf("upload: %v", err)
	}
	for i, p := range seen[:len(seen)-1] {
		if p >= 100 {
			t.Fatalf("progress %d reached 100 before the store at step %d: %v", p, i, seen)
		}
	}
	if seen[len(seen)-1] != 100 {
		t.Fatalf("expected completion at 100, got %v", seen)
	}
}

func TestUploadChecksContentAgainstDeclaredType(t *testing.T) {
	svc := NewService(NewMemoryStore(), 0)
	ctx := context.Background()

	cases := []struct {
		name     string
		declared string
		body     string
	}{
		{name: "html posing as png", declared: "image/png", body: "<html><script>alert(1)</script></html>"},
		{name: "plain text posing as pdf", declared: "application/pdf", body: "just some text"},
		{name: "jpeg declared as png", declared: "image/png", body: "\xff\xd8\xff\xe0 jpeg body"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var last = -1
			_, err := svc.Upload(ctx, UploadInput{OwnerID: "u1", ContentType: tc.declared, Body: strings.NewReader(tc.body)}, func(p int) { last = p })
			if !errors.Is(err, apperror.ErrValidationFailed) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if last == 100 {
				t.Fatalf("rejected upload reported completion")
			}
		})
	}

	rec, err := svc.Upload(ctx, UploadInput{OwnerID: "u1", ContentType: "image/webp", Body: strings.NewReader("RIFF\x24\x00\x00\x00WEBPVP8 ")}, nil)
	if err != nil {
		t.Fatalf("webp upload: %v", err)
	}
	if rec.ContentType != "image/webp" {
		t.Fatalf("unexpected content type %q", rec.ContentType)
	}
}
