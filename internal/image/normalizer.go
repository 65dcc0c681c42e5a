// Package image normalizes user-supplied listing images: a fixed-width
// resize followed by lossy JPEG re-encoding, producing a self-contained
// payload suitable for upload or inline preview.
package image

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"strings"

	_ "image/gif"
	_ "image/png"

	"github.com/nfnt/resize"

	"github.com/brandlab/exchange/internal/domain"
)

const (
	// MaxUploadBytes is the input size ceiling. Inputs above it are rejected
	// before any decode work happens.
	MaxUploadBytes = 5 * 1024 * 1024

	// TargetWidth is the fixed output width; height scales proportionally.
	TargetWidth = 800

	// Quality is the JPEG re-encode quality.
	Quality = 70
)

// dataURLPrefix marks a normalized payload embedded as a data URL.
const dataURLPrefix = "data:image/jpeg;base64,"

// Normalizer rescales and re-encodes images. The zero value is not usable;
// call NewNormalizer.
type Normalizer struct {
	maxBytes    int64
	targetWidth uint
	quality     int
}

// NewNormalizer returns a Normalizer with the fixed production parameters.
func NewNormalizer() *Normalizer {
	return &Normalizer{
		maxBytes:    MaxUploadBytes,
		targetWidth: TargetWidth,
		quality:     Quality,
	}
}

// Normalize reads one image from r, which declares size bytes, and returns
// the normalized JPEG bytes. It rejects with domain.ErrFileTooLarge before
// decoding when size exceeds the ceiling, and produces exactly one output per
// input with no retries. The context is honoured between the decode and
// encode stages so a superseded request stops early.
func (n *Normalizer) Normalize(ctx context.Context, r io.Reader, size int64) ([]byte, error) {
	if size > n.maxBytes {
		return nil, fmt.Errorf("image: input %d bytes over %d ceiling: %w", size, n.maxBytes, domain.ErrFileTooLarge)
	}

	// The declared size is client-supplied; cap the actual read as well.
	limited := io.LimitReader(r, n.maxBytes+1)
	raw, err := io.ReadAll(limited)
	if err != nil {
		return nil, fmt.Errorf("image: read input: %w", err)
	}
	if int64(len(raw)) > n.maxBytes {
		return nil, fmt.Errorf("image: input over %d ceiling: %w", n.maxBytes, domain.ErrFileTooLarge)
	}

	src, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("image: decode: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return nil, errors.Join(domain.ErrContextDone, err)
	}

	// Uniform scale to the target width; height follows the aspect ratio.
	// Images narrower than the target are scaled up, matching the canvas
	// behaviour of the web client.
	scaled := resize.Resize(n.targetWidth, 0, src, resize.Lanczos3)

	var out bytes.Buffer
	if err := jpeg.Encode(&out, scaled, &jpeg.Options{Quality: n.quality}); err != nil {
		return nil, fmt.Errorf("image: encode jpeg: %w", err)
	}

	return out.Bytes(), nil
}

// NormalizeToDataURL normalizes and wraps the result as an embeddable data
// URL, the transient form the edit buffer holds before upload.
func (n *Normalizer) NormalizeToDataURL(ctx context.Context, r io.Reader, size int64) (string, error) {
	jpg, err := n.Normalize(ctx, r, size)
	if err != nil {
		return "", err
	}
	return EncodeDataURL(jpg), nil
}

// EncodeDataURL wraps normalized JPEG bytes as a data URL.
func EncodeDataURL(jpg []byte) string {
	return dataURLPrefix + base64.StdEncoding.EncodeToString(jpg)
}

// IsDataURL reports whether s is a local, not-yet-uploaded image payload as
// opposed to a stored retrieval URL.
func IsDataURL(s string) bool {
	return strings.HasPrefix(s, "data:")
}

// DecodeDataURL recovers the JPEG bytes from a data URL produced by
// EncodeDataURL.
func DecodeDataURL(s string) ([]byte, error) {
	idx := strings.Index(s, ",")
	if !strings.HasPrefix(s, "data:") || idx < 0 {
		return nil, fmt.Errorf("image: not a data url")
	}
	raw, err := base64.StdEncoding.DecodeString(s[idx+1:])
	if err != nil {
		return nil, fmt.Errorf("image: decode data url: %w", err)
	}
	return raw, nil
}
