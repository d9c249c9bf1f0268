// File: internal/imaging/validate.go
package imaging

import (
	"fmt"
	"image"
	"os"
	"strings"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/xkilldash9x/crosspost-cli/api/schemas"
)

// ValidationError carries the catalog error code for a rejected image.
type ValidationError struct {
	Code    string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func reject(code, format string, args ...any) *ValidationError {
	return &ValidationError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Validate checks an image against a platform's constraints before dispatch:
// existence, file size, decodable format and pixel dimensions. Resizing or
// re-encoding is out of scope here; the check only prevents doomed uploads.
func Validate(path string, specs schemas.PlatformSpecs) error {
	info, err := os.Stat(path)
	if err != nil {
		return reject(schemas.ErrImgNotFound, "image %q does not exist", path)
	}

	maxBytes := int64(specs.MaxFileSizeMB * 1024 * 1024)
	if maxBytes > 0 && info.Size() > maxBytes {
		return reject(schemas.ErrImgTooLarge, "image is %.1f MB, limit for %s is %.1f MB",
			float64(info.Size())/(1024*1024), specs.PlatformName, specs.MaxFileSizeMB)
	}

	f, err := os.Open(path)
	if err != nil {
		return reject(schemas.ErrImgNotFound, "image %q could not be opened", path)
	}
	defer f.Close()

	cfg, format, err := image.DecodeConfig(f)
	if err != nil {
		return reject(schemas.ErrImgCorrupt, "image %q could not be decoded", path)
	}

	if len(specs.SupportedFormats) > 0 && !formatSupported(format, specs.SupportedFormats) {
		return reject(schemas.ErrImgInvalidFormat, "%s does not accept %s images",
			specs.PlatformName, strings.ToUpper(format))
	}

	if (specs.MaxImageWidth > 0 && cfg.Width > specs.MaxImageWidth) ||
		(specs.MaxImageHeight > 0 && cfg.Height > specs.MaxImageHeight) {
		return reject(schemas.ErrImgTooLarge, "image is %dx%d, limit for %s is %dx%d",
			cfg.Width, cfg.Height, specs.PlatformName, specs.MaxImageWidth, specs.MaxImageHeight)
	}
	return nil
}

func formatSupported(format string, supported []string) bool {
	name := strings.ToUpper(format)
	if name == "JPG" {
		name = "JPEG"
	}
	for _, s := range supported {
		if strings.ToUpper(s) == name {
			return true
		}
	}
	return false
}
