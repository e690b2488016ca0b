package service

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"image"
	_ "image/gif" // Register GIF decoder
	"image/jpeg"
	_ "image/png" // Register PNG decoder
	"mime"
	"net/http"
	"strings"

	"glimpse/internal/config"
	"glimpse/internal/featureflags"
	"glimpse/internal/middleware"
	"glimpse/internal/observability"
	"glimpse/internal/storage"
	"glimpse/models"

	"github.com/chai2010/webp"
	"go.opentelemetry.io/otel/attribute"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // Register WebP decoder
)

const (
	DefaultMediaMaxDimension = 800
	DefaultMediaQuality      = 80
	DefaultMediaMaxUploadMB  = 10
)

// Upload purposes. They prefix object keys.
const (
	MediaPurposePost   = "posts"
	MediaPurposeAvatar = "avatars"
)

const (
	formatJPEG = "jpeg"
	formatWebP = "webp"
)

// UploadImageInput is a raw image as received from a multipart form.
type UploadImageInput struct {
	UserID      uint
	Purpose     string
	Filename    string
	ContentType string
	Content     []byte
}

// StoredImage describes the processed object written to storage.
type StoredImage struct {
	URL         string
	Key         string
	ContentType string
	Width       int
	Height      int
	SizeBytes   int
}

// ImageUploader turns an uploaded image into a hosted URL.
type ImageUploader interface {
	Upload(ctx context.Context, in UploadImageInput) (*StoredImage, error)
	// Discard deletes a stored image whose owning write did not happen.
	Discard(ctx context.Context, img *StoredImage) error
}

// releaseUpload discards img after a failed write unless some row already
// points at the same URL. Content-addressed keys are shared between rows.
func releaseUpload(ctx context.Context, media ImageUploader, img *StoredImage, refs func(context.Context, string) (int64, error)) {
	n, err := refs(ctx, img.URL)
	if err != nil {
		middleware.Logger.WarnContext(ctx, "media reference check failed, keeping object",
			"key", img.Key, "error", err)
		return
	}
	if n > 0 {
		return
	}
	if err := media.Discard(ctx, img); err != nil {
		middleware.Logger.WarnContext(ctx, "failed to discard orphaned media", "key", img.Key, "error", err)
	}
}

// MediaService resizes uploads to fit a square bound, re-encodes them and
// writes them to the configured object store under a content hash.
type MediaService struct {
	store          storage.ObjectStore
	flags          *featureflags.Set
	maxUploadBytes int64
	maxDimension   int
	quality        int
	format         string
}

func NewMediaService(store storage.ObjectStore, cfg *config.Config, flags *featureflags.Set) *MediaService {
	s := &MediaService{
		store:          store,
		flags:          flags,
		maxUploadBytes: DefaultMediaMaxUploadMB << 20,
		maxDimension:   DefaultMediaMaxDimension,
		quality:        DefaultMediaQuality,
		format:         formatJPEG,
	}
	if cfg != nil {
		if cfg.MediaMaxUploadMB > 0 {
			s.maxUploadBytes = int64(cfg.MediaMaxUploadMB) << 20
		}
		if cfg.MediaMaxDimension > 0 {
			s.maxDimension = cfg.MediaMaxDimension
		}
		if cfg.MediaQuality > 0 && cfg.MediaQuality <= 100 {
			s.quality = cfg.MediaQuality
		}
		if cfg.MediaFormat == formatWebP {
			s.format = formatWebP
		}
	}
	return s
}

func (s *MediaService) Upload(ctx context.Context, in UploadImageInput) (*StoredImage, error) {
	span, ctx := observability.NewSpan(ctx, "media.upload",
		attribute.String("media.purpose", in.Purpose),
		attribute.Int("media.input_bytes", len(in.Content)),
	)
	defer span.End()

	if len(in.Content) == 0 {
		return nil, models.NewValidationError("Image Required")
	}
	if int64(len(in.Content)) > s.maxUploadBytes {
		return nil, models.NewValidationError(fmt.Sprintf("File too large (max %dMB)", s.maxUploadBytes>>20))
	}
	if !isAllowedImageMIME(http.DetectContentType(in.Content)) {
		return nil, models.NewValidationError("Invalid image type")
	}

	decoded, _, err := image.Decode(bytes.NewReader(in.Content))
	if err != nil {
		return nil, models.NewValidationError("Invalid image file")
	}
	resized := resizeToFit(decoded, s.maxDimension, s.maxDimension)

	format := s.format
	if in.Purpose == MediaPurposeAvatar && s.flags.Enabled(featureflags.AvatarWebP, in.UserID) {
		format = formatWebP
	}
	encoded, contentType, ext, err := s.encode(resized, format)
	if err != nil {
		span.SetError(err)
		return nil, models.NewInternalError(err)
	}

	purpose := in.Purpose
	if purpose == "" {
		purpose = MediaPurposePost
	}
	sum := sha256.Sum256(encoded)
	hash := hex.EncodeToString(sum[:])
	key := fmt.Sprintf("%s/%s/%s.%s", purpose, hash[:2], hash, ext)

	url, err := s.store.Put(ctx, key, contentType, encoded)
	if err != nil {
		span.SetError(err)
		return nil, models.NewInternalError(err)
	}
	observability.MediaUploadBytes.Observe(float64(len(encoded)))

	b := resized.Bounds()
	span.AddAttributes(attribute.String("media.key", key), attribute.Int("media.output_bytes", len(encoded)))
	return &StoredImage{
		URL:         url,
		Key:         key,
		ContentType: contentType,
		Width:       b.Dx(),
		Height:      b.Dy(),
		SizeBytes:   len(encoded),
	}, nil
}

func (s *MediaService) Discard(ctx context.Context, img *StoredImage) error {
	if img == nil || img.Key == "" {
		return nil
	}
	return s.store.Remove(ctx, img.Key)
}

func (s *MediaService) encode(img image.Image, format string) (data []byte, contentType, ext string, err error) {
	buf := bytes.NewBuffer(nil)
	if format == formatWebP {
		if err := webp.Encode(buf, img, &webp.Options{Quality: float32(s.quality)}); err != nil {
			return nil, "", "", err
		}
		return buf.Bytes(), "image/webp", "webp", nil
	}
	if err := jpeg.Encode(buf, img, &jpeg.Options{Quality: s.quality}); err != nil {
		return nil, "", "", err
	}
	return buf.Bytes(), "image/jpeg", "jpg", nil
}

// resizeToFit scales src down, preserving aspect ratio, so both sides fit
// the bound. Smaller images are returned unchanged.
func resizeToFit(src image.Image, maxWidth, maxHeight int) image.Image {
	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= 0 || h <= 0 || (w <= maxWidth && h <= maxHeight) {
		return src
	}

	scale := min(float64(maxWidth)/float64(w), float64(maxHeight)/float64(h))
	newW := max(int(float64(w)*scale), 1)
	newH := max(int(float64(h)*scale), 1)

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, xdraw.Over, nil)
	return dst
}

func isAllowedImageMIME(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = contentType
	}
	switch strings.ToLower(mediaType) {
	case "image/jpeg", "image/png", "image/gif", "image/webp":
		return true
	default:
		return false
	}
}
