package admin

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
)

const (
	DefaultMaxImageBytes int64 = 10 << 20

	mimeJPEG = "image/jpeg"
	mimePNG  = "image/png"
	mimeWebP = "image/webp"
)

var defaultImageTypes = []string{mimeJPEG, mimePNG, mimeWebP}

// aliases browsers still send for allowed types.
var mimeAliases = map[string]string{
	"image/jpg":   mimeJPEG,
	"image/pjpeg": mimeJPEG,
}

// ImagePolicy bounds product images: a size ceiling and an allow-list of
// MIME types checked against both the declared type and the content.
type ImagePolicy struct {
	MaxBytes int64
	Allowed  []string
}

func NewImagePolicy(maxBytes int64) ImagePolicy {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxImageBytes
	}
	return ImagePolicy{MaxBytes: maxBytes, Allowed: append([]string(nil), defaultImageTypes...)}
}

// ImageUpload is one selected file. Size is the declared length, checked
// before any content is read.
type ImageUpload struct {
	Filename     string
	DeclaredType string
	Size         int64
	Content      io.Reader
}

// Validate returns the image bytes and their canonical MIME type.
func (p ImagePolicy) Validate(upload ImageUpload) ([]byte, string, error) {
	if upload.Size > p.MaxBytes {
		return nil, "", p.tooLarge()
	}

	declared, err := normalizeMimeType(upload.DeclaredType)
	if err != nil || !p.allows(declared) {
		return nil, "", p.unsupported(upload.DeclaredType)
	}
	if upload.Content == nil {
		return nil, "", pkgerrors.New(pkgerrors.CodeValidation, "image content is empty")
	}

	data, err := io.ReadAll(io.LimitReader(upload.Content, p.MaxBytes+1))
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "image could not be read")
	}
	if int64(len(data)) > p.MaxBytes {
		return nil, "", p.tooLarge()
	}
	if len(data) == 0 {
		return nil, "", pkgerrors.New(pkgerrors.CodeValidation, "image content is empty")
	}

	detected := mimetype.Detect(data)
	actual := ""
	for _, allowed := range p.Allowed {
		if detected.Is(allowed) {
			actual = allowed
			break
		}
	}
	if actual == "" {
		return nil, "", p.unsupported(detected.String())
	}
	return data, actual, nil
}

// Accept validates upload and returns it as a data URI.
func (p ImagePolicy) Accept(upload ImageUpload) (string, error) {
	data, mimeType, err := p.Validate(upload)
	if err != nil {
		return "", err
	}
	return EncodeDataURI(mimeType, data), nil
}

func (p ImagePolicy) allows(mimeType string) bool {
	for _, allowed := range p.Allowed {
		if allowed == mimeType {
			return true
		}
	}
	return false
}

func (p ImagePolicy) tooLarge() *pkgerrors.Error {
	return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("image is too large, the maximum size is %d MB", p.MaxBytes>>20)).
		WithDetails(map[string]string{"image": "too large"})
}

func (p ImagePolicy) unsupported(got string) *pkgerrors.Error {
	return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unsupported image type, upload %s", p.description())).
		WithDetails(map[string]string{"image": strings.TrimSpace(got)})
}

func (p ImagePolicy) description() string {
	names := make([]string, 0, len(p.Allowed))
	for _, allowed := range p.Allowed {
		names = append(names, strings.ToUpper(strings.TrimPrefix(allowed, "image/")))
	}
	switch len(names) {
	case 0:
		return "an approved image"
	case 1:
		return names[0]
	default:
		return fmt.Sprintf("%s or %s", strings.Join(names[:len(names)-1], ", "), names[len(names)-1])
	}
}

func normalizeMimeType(value string) (string, error) {
	clean := strings.TrimSpace(value)
	if clean == "" {
		return "", fmt.Errorf("mime type required")
	}
	mediaType, _, err := mime.ParseMediaType(clean)
	if err != nil {
		return "", fmt.Errorf("mime type invalid: %w", err)
	}
	mediaType = strings.ToLower(mediaType)
	if canonical, ok := mimeAliases[mediaType]; ok {
		return canonical, nil
	}
	return mediaType, nil
}

// EncodeDataURI renders data as data:<mime>;base64,<payload>.
func EncodeDataURI(mimeType string, data []byte) string {
	var b bytes.Buffer
	b.Grow(len(mimeType) + 13 + base64.StdEncoding.EncodedLen(len(data)))
	b.WriteString("data:")
	b.WriteString(mimeType)
	b.WriteString(";base64,")
	b.WriteString(base64.StdEncoding.EncodeToString(data))
	return b.String()
}
