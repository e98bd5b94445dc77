// Package convert applies Morse translation to files on disk.
package convert

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/alucardeht/morse-mcp/internal/morse"
	"github.com/alucardeht/morse-mcp/internal/textenc"
)

type Mode string

const (
	ModeEncode Mode = "encode"
	ModeDecode Mode = "decode"
)

var ErrUnknownMode = errors.New("unknown mode")

func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeEncode:
		return ModeEncode, nil
	case ModeDecode:
		return ModeDecode, nil
	}
	return "", fmt.Errorf("%w %q (want encode or decode)", ErrUnknownMode, s)
}

// Extension is appended to encoded outputs and stripped from decoded ones.
const Extension = ".morse"

func (m Mode) Apply(text string) string {
	if m == ModeDecode {
		return morse.Decode(text)
	}
	return morse.Encode(text)
}

// OutputName derives the file name written for src in mode m.
func (m Mode) OutputName(src string) string {
	base := filepath.Base(src)
	if m == ModeEncode {
		return base + Extension
	}
	if trimmed := strings.TrimSuffix(base, Extension); trimmed != base && trimmed != "" {
		return trimmed
	}
	return base + ".txt"
}

type Options struct {
	// Encoding of the source file; empty means detect.
	Encoding string
	// MaxBytes caps the source size. Zero disables the cap.
	MaxBytes int64
}

type Result struct {
	Source      string `json:"source"`
	Destination string `json:"destination"`
	Mode        Mode   `json:"mode"`
	Encoding    string `json:"encoding"`
	InputBytes  int64  `json:"input_bytes"`
	OutputBytes int64  `json:"output_bytes"`
}

// ReadText loads path as UTF-8, honouring opts.
func ReadText(path string, opts Options) (string, textenc.Result, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", textenc.Result{}, err
	}
	if info.IsDir() {
		return "", textenc.Result{}, fmt.Errorf("%s is a directory", path)
	}
	if opts.MaxBytes > 0 && info.Size() > opts.MaxBytes {
		return "", textenc.Result{}, fmt.Errorf("file too large: %d bytes (max %d)", info.Size(), opts.MaxBytes)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", textenc.Result{}, err
	}

	return textenc.ToUTF8(data, opts.Encoding)
}

// File translates src into dst. Output is always UTF-8 and replaces dst
// atomically.
func File(src, dst string, mode Mode, opts Options) (*Result, error) {
	text, detected, err := ReadText(src, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", src, err)
	}

	out := mode.Apply(text)
	if err := WriteAtomic(dst, []byte(out)); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", dst, err)
	}

	return &Result{
		Source:      src,
		Destination: dst,
		Mode:        mode,
		Encoding:    detected.Encoding,
		InputBytes:  int64(len(text)),
		OutputBytes: int64(len(out)),
	}, nil
}

func WriteAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		os.Remove(tmpName)
		return err
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

// IsWithin reports whether path is dir or lies below it.
func IsWithin(path, dir string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
