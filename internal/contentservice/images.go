package contentservice

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"path"
	"slices"
	"strings"
	"unicode"

	"github.com/starford/hugopub/internal/apperr"
	"github.com/starford/hugopub/internal/models"
)

// MaxImageSize is the upload limit for a single image.
const MaxImageSize = 10 << 20

// ImageURLPrefix is where the site serves images from ImageDir.
const ImageURLPrefix = "/images/"

// ImageExtensions lists accepted image extensions without the dot.
var ImageExtensions = []string{"png", "jpg", "jpeg", "gif", "webp", "svg", "bmp"}

var mimeToExt = map[string]string{
	"image/png":     "png",
	"image/jpeg":    "jpg",
	"image/gif":     "gif",
	"image/webp":    "webp",
	"image/svg+xml": "svg",
	"image/bmp":     "bmp",
}

// ExtForMIME maps an image content type to its extension.
func ExtForMIME(mime string) string {
	return mimeToExt[strings.TrimSpace(strings.Split(mime, ";")[0])]
}

// ImageName derives the stored file name of an upload: customName plus
// the original extension, or "<unix>-<filename>" without one.
func ImageName(filename, customName string, unix int64) (string, string, error) {
	lower := strings.ToLower(path.Base(filename))
	ext := strings.TrimPrefix(path.Ext(lower), ".")
	if !slices.Contains(ImageExtensions, ext) {
		return "", "", apperr.Validation("unsupported image format")
	}

	var name string
	if custom := strings.TrimSpace(customName); custom != "" {
		name = custom
		if !strings.HasSuffix(strings.ToLower(name), "."+ext) {
			name += "." + ext
		}
	} else {
		name = fmt.Sprintf("%d-%s", unix, lower)
	}

	name = sanitizeImageName(name)
	if strings.Trim(name, ".-") == "" || strings.HasPrefix(name, ".") {
		return "", "", apperr.Validation("invalid image name")
	}
	return name, ext, nil
}

// sanitizeImageName maps spaces and underscores to dashes and drops every
// rune that is not a letter, digit, dot or dash.
func sanitizeImageName(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r == ' ' || r == '_':
			b.WriteRune('-')
		case r == '.' || r == '-' || unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ValidateImageBytes checks that data looks like an image of type ext.
func ValidateImageBytes(data []byte, ext string) error {
	if ext == "svg" {
		prefix := data[:min(len(data), 1024)]
		if !bytes.Contains(prefix, []byte("<svg")) {
			return apperr.Validation("content does not appear to be a valid SVG")
		}
		return nil
	}

	detected := http.DetectContentType(data)
	got := ExtForMIME(detected)
	if ext == "jpeg" {
		ext = "jpg"
	}
	if got != ext {
		return apperr.Validation(fmt.Sprintf("content does not match extension .%s (detected %s)", ext, detected))
	}
	return nil
}

// SaveImage validates and commits an uploaded image under ImageDir.
func (s *Service) SaveImage(_ context.Context, filename, customName string, data []byte) (*models.UploadImageResponse, error) {
	if len(data) == 0 {
		return nil, apperr.Validation("empty file")
	}
	if len(data) > MaxImageSize {
		return nil, apperr.Validation(fmt.Sprintf("image too large: max %d bytes", MaxImageSize))
	}

	name, ext, err := ImageName(filename, customName, s.now().Unix())
	if err != nil {
		return nil, err
	}
	if err := ValidateImageBytes(data, ext); err != nil {
		return nil, err
	}

	if _, err := s.store.Save(path.Join(s.cfg.ImageDir, name), data, "Upload image: "+name); err != nil {
		return nil, err
	}
	return &models.UploadImageResponse{
		Envelope: models.Envelope{Success: true},
		Filename: name,
		URL:      ImageURLPrefix + name,
	}, nil
}

// ReadImage returns a stored image by its plain file name.
func (s *Service) ReadImage(name string) ([]byte, error) {
	if name == "" || name != path.Base(name) || strings.HasPrefix(name, ".") || strings.Contains(name, `\`) {
		return nil, apperr.Validation("invalid image name")
	}
	return s.store.Read(path.Join(s.cfg.ImageDir, name))
}
