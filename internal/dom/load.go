package dom

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"
	"github.com/microcosm-cc/bluemonday"
	"github.com/saintfish/chardet"
	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"
)

// MaxHTMLSize limits HTML input to 10MB to prevent memory exhaustion
const MaxHTMLSize = 10 * 1024 * 1024

var (
	// ErrEmpty is returned for empty input.
	ErrEmpty = errors.New("dom: html content required")
	// ErrTooLarge is returned when input exceeds the configured limit.
	ErrTooLarge = errors.New("dom: html exceeds maximum size")
	// ErrUnsupported is returned for binary or non-text input.
	ErrUnsupported = errors.New("dom: unsupported content type")
)

// LoadOptions controls how raw input becomes a Document.
type LoadOptions struct {
	MaxBytes int64
	Sanitize bool
}

// DefaultLoadOptions returns the limits used by the service.
func DefaultLoadOptions() LoadOptions {
	return LoadOptions{MaxBytes: MaxHTMLSize}
}

// Parse parses a markup string with default options.
func Parse(markup string) (*Document, error) {
	return Load(strings.NewReader(markup), DefaultLoadOptions())
}

// Load reads, validates, decodes and parses markup.
func Load(r io.Reader, opts LoadOptions) (*Document, error) {
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = MaxHTMLSize
	}

	data, err := io.ReadAll(io.LimitReader(r, opts.MaxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read html: %w", err)
	}
	if err := Validate(data, opts.MaxBytes); err != nil {
		return nil, err
	}

	decoded, err := decode(data)
	if err != nil {
		return nil, err
	}

	if opts.Sanitize {
		decoded = sanitizer().SanitizeReader(decoded)
	}

	root, err := html.Parse(decoded)
	if err != nil {
		return nil, fmt.Errorf("failed to parse html: %w", err)
	}
	return NewDocument(root), nil
}

// Validate checks size and content type of raw input.
func Validate(data []byte, maxBytes int64) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return ErrEmpty
	}
	if int64(len(data)) > maxBytes {
		return fmt.Errorf("%w of %d bytes", ErrTooLarge, maxBytes)
	}
	mtype := mimetype.Detect(data)
	for m := mtype; m != nil; m = m.Parent() {
		if m.Is("text/plain") {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrUnsupported, mtype.String())
}

// DetectCharset detects and returns charset from HTML bytes
func DetectCharset(data []byte) string {
	if utf8.Valid(data) {
		return "utf-8"
	}
	detector := chardet.NewTextDetector()
	result, err := detector.DetectBest(data)
	if err != nil || result == nil {
		return "utf-8"
	}
	return strings.ToLower(result.Charset)
}

func decode(data []byte) (io.Reader, error) {
	cs := DetectCharset(data)
	if cs == "utf-8" {
		return bytes.NewReader(data), nil
	}
	r, err := charset.NewReader(bytes.NewReader(data), "text/html; charset="+cs)
	if err != nil {
		// Fallback to direct parsing
		return bytes.NewReader(data), nil
	}
	return r, nil
}

func sanitizer() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowAttrs("class", "title", "hidden", "aria-hidden", "contenteditable").Globally()
	p.AllowStyles("position", "display", "font-weight", "visibility").Globally()
	return p
}
