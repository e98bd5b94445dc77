// Package textenc turns file bytes of unknown charset into UTF-8 text.
package textenc

import (
	"bytes"
	"fmt"
	"io"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

type Result struct {
	Encoding string `json:"encoding"`
	HasBOM   bool   `json:"has_bom"`
}

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

const sampleSize = 8192

// Detect guesses the charset of data. Anything that is neither UTF-8 nor
// UTF-16 is treated as windows-1252, which decodes every byte.
func Detect(data []byte) Result {
	switch {
	case bytes.HasPrefix(data, bomUTF8):
		return Result{Encoding: "utf-8", HasBOM: true}
	case bytes.HasPrefix(data, bomUTF16LE):
		return Result{Encoding: "utf-16le", HasBOM: true}
	case bytes.HasPrefix(data, bomUTF16BE):
		return Result{Encoding: "utf-16be", HasBOM: true}
	}

	sample := data
	if len(sample) > sampleSize {
		sample = trimToRuneBoundary(sample[:sampleSize])
	}

	if utf8.Valid(sample) && bytes.IndexByte(sample, 0) < 0 {
		return Result{Encoding: "utf-8"}
	}

	if enc := guessUTF16(sample); enc != "" {
		return Result{Encoding: enc}
	}

	return Result{Encoding: "windows-1252"}
}

// trimToRuneBoundary drops a multi-byte sequence cut off by sampling.
func trimToRuneBoundary(b []byte) []byte {
	for i := 0; i < utf8.UTFMax && len(b) > 0; i++ {
		r, size := utf8.DecodeLastRune(b)
		if r != utf8.RuneError || size > 1 {
			return b
		}
		b = b[:len(b)-1]
	}
	return b
}

func guessUTF16(data []byte) string {
	if len(data) < 2 || len(data)%2 != 0 {
		return ""
	}

	pairs := len(data) / 2
	evenNulls, oddNulls := 0, 0
	for i := 0; i+1 < len(data); i += 2 {
		if data[i] == 0 {
			evenNulls++
		}
		if data[i+1] == 0 {
			oddNulls++
		}
	}

	switch {
	case float64(oddNulls)/float64(pairs) > 0.75:
		return "utf-16le"
	case float64(evenNulls)/float64(pairs) > 0.75:
		return "utf-16be"
	}
	return ""
}

func lookup(name string) (encoding.Encoding, error) {
	switch name {
	case "utf-8", "ascii":
		return nil, nil
	case "utf-16le":
		return unicode.UTF16(unicode.LittleEndian, unicode.UseBOM), nil
	case "utf-16be":
		return unicode.UTF16(unicode.BigEndian, unicode.UseBOM), nil
	case "windows-1252":
		return charmap.Windows1252, nil
	}

	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, fmt.Errorf("unsupported encoding %q", name)
	}
	return enc, nil
}

// ToUTF8 decodes data from the named charset, or from the detected one when
// name is empty or "auto". Invalid sequences become U+FFFD.
func ToUTF8(data []byte, name string) (string, Result, error) {
	var detected Result
	if name == "" || name == "auto" {
		detected = Detect(data)
	} else {
		detected = Result{Encoding: name}
		if name == "utf-8" {
			detected.HasBOM = bytes.HasPrefix(data, bomUTF8)
		}
	}

	enc, err := lookup(detected.Encoding)
	if err != nil {
		return "", detected, err
	}

	if enc == nil {
		if detected.HasBOM {
			data = data[len(bomUTF8):]
		}
		return string(bytes.ToValidUTF8(data, []byte("\uFFFD"))), detected, nil
	}

	out, err := io.ReadAll(transform.NewReader(bytes.NewReader(data), enc.NewDecoder()))
	if err != nil {
		return "", detected, fmt.Errorf("failed to decode %s: %w", detected.Encoding, err)
	}

	return string(bytes.ToValidUTF8(out, []byte("\uFFFD"))), detected, nil
}
