package files

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/alucardeht/morse-mcp/internal/convert"
	"github.com/alucardeht/morse-mcp/internal/tools"
)

const defaultGlobLimit = 1000

func GetTools(maxBytes int64) []tools.Tool {
	return []tools.Tool{
		&TranslateFileTool{maxBytes: maxBytes},
		&TranslateGlobTool{maxBytes: maxBytes},
	}
}

type TranslateFileRequest struct {
	Path       string `json:"path"`
	Mode       string `json:"mode"`
	OutputPath string `json:"output_path,omitempty"`
	Encoding   string `json:"encoding,omitempty"`
}

type TranslateFileTool struct {
	maxBytes int64
}

func (t *TranslateFileTool) Name() string {
	return "morse_translate_file"
}

func (t *TranslateFileTool) Description() string {
	return `Encode a text file to Morse or decode a Morse file to text.

The source charset is detected (UTF-8, UTF-16, legacy code pages) unless
"encoding" is given. With output_path the result is written there as UTF-8;
without it the translated content is returned.`
}

func (t *TranslateFileTool) Title() string {
	return "Translate File"
}

func (t *TranslateFileTool) Annotations() map[string]bool {
	return tools.SafeWriteAnnotations()
}

func (t *TranslateFileTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"path": {
				"type": "string",
				"description": "Source file"
			},
			"mode": {
				"type": "string",
				"enum": ["encode", "decode"],
				"description": "encode: text to Morse, decode: Morse to text"
			},
			"output_path": {
				"type": "string",
				"description": "Where to write the result (optional)"
			},
			"encoding": {
				"type": "string",
				"description": "Source charset, e.g. utf-8, utf-16le, iso-8859-2, shift_jis (default: auto)"
			}
		},
		"required": ["path", "mode"]
	}`)
}

func (t *TranslateFileTool) Execute(ctx context.Context, input json.RawMessage) (interface{}, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	var req TranslateFileRequest
	if err := json.Unmarshal(input, &req); err != nil {
		return nil, tools.NewInvalidParamsError(err)
	}
	if req.Path == "" {
		return nil, tools.NewInvalidParamsError(fmt.Errorf("path is required"))
	}

	mode, err := convert.ParseMode(req.Mode)
	if err != nil {
		return nil, tools.NewInvalidParamsError(err)
	}

	opts := convert.Options{Encoding: req.Encoding, MaxBytes: t.maxBytes}

	if req.OutputPath == "" {
		text, detected, err := convert.ReadText(filepath.Clean(req.Path), opts)
		if err != nil {
			return nil, fmt.Errorf("failed to read file: %w", err)
		}
		return map[string]interface{}{
			"source":   req.Path,
			"mode":     mode,
			"encoding": detected.Encoding,
			"content":  mode.Apply(text),
		}, nil
	}

	res, err := convert.File(filepath.Clean(req.Path), filepath.Clean(req.OutputPath), mode, opts)
	if err != nil {
		return nil, err
	}
	return res, nil
}

type TranslateGlobRequest struct {
	Root      string `json:"root"`
	Pattern   string `json:"pattern"`
	Mode      string `json:"mode"`
	OutputDir string `json:"output_dir"`
	Encoding  string `json:"encoding,omitempty"`
	Limit     int    `json:"limit,omitempty"`
}

type GlobFailure struct {
	Source string `json:"source"`
	Error  string `json:"error"`
}

type TranslateGlobResponse struct {
	Matched   int               `json:"matched"`
	Converted []*convert.Result `json:"converted"`
	Failed    []GlobFailure     `json:"failed"`
	Truncated bool              `json:"truncated"`
}

type TranslateGlobTool struct {
	maxBytes int64
}

func (t *TranslateGlobTool) Name() string {
	return "morse_translate_glob"
}

func (t *TranslateGlobTool) Description() string {
	return `Translate every file under root matching a glob pattern.

Patterns support ** (e.g. "**/*.txt"). Outputs mirror the source layout
inside output_dir: encoded files get a .morse suffix, decoded files lose it.`
}

func (t *TranslateGlobTool) Title() string {
	return "Translate Files by Pattern"
}

func (t *TranslateGlobTool) Annotations() map[string]bool {
	return tools.SafeWriteAnnotations()
}

func (t *TranslateGlobTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"root": {
				"type": "string",
				"description": "Directory to search"
			},
			"pattern": {
				"type": "string",
				"description": "Glob relative to root, e.g. **/*.txt"
			},
			"mode": {
				"type": "string",
				"enum": ["encode", "decode"]
			},
			"output_dir": {
				"type": "string",
				"description": "Directory receiving the translated files"
			},
			"encoding": {
				"type": "string",
				"description": "Source charset (default: auto)"
			},
			"limit": {
				"type": "integer",
				"description": "Max files to convert (default: 1000)",
				"minimum": 1
			}
		},
		"required": ["root", "pattern", "mode", "output_dir"]
	}`)
}

func (t *TranslateGlobTool) Execute(ctx context.Context, input json.RawMessage) (interface{}, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	var req TranslateGlobRequest
	if err := json.Unmarshal(input, &req); err != nil {
		return nil, tools.NewInvalidParamsError(err)
	}
	if req.Root == "" || req.OutputDir == "" {
		return nil, tools.NewInvalidParamsError(fmt.Errorf("root and output_dir are required"))
	}
	if !doublestar.ValidatePattern(req.Pattern) {
		return nil, tools.NewInvalidParamsError(fmt.Errorf("invalid pattern %q", req.Pattern))
	}

	mode, err := convert.ParseMode(req.Mode)
	if err != nil {
		return nil, tools.NewInvalidParamsError(err)
	}

	root, err := filepath.Abs(req.Root)
	if err != nil {
		return nil, tools.NewInvalidParamsError(fmt.Errorf("invalid root: %w", err))
	}
	outputDir, err := filepath.Abs(req.OutputDir)
	if err != nil {
		return nil, tools.NewInvalidParamsError(fmt.Errorf("invalid output_dir: %w", err))
	}
	if root == outputDir {
		return nil, tools.NewInvalidParamsError(fmt.Errorf("output_dir must differ from root"))
	}

	limit := req.Limit
	if limit <= 0 {
		limit = defaultGlobLimit
	}

	matches, err := doublestar.Glob(os.DirFS(root), filepath.ToSlash(req.Pattern), doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("glob failed: %w", err)
	}

	resp := TranslateGlobResponse{
		Matched:   len(matches),
		Converted: make([]*convert.Result, 0),
		Failed:    make([]GlobFailure, 0),
	}

	opts := convert.Options{Encoding: req.Encoding, MaxBytes: t.maxBytes}

	for i, rel := range matches {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if i >= limit {
			resp.Truncated = true
			break
		}

		src := filepath.Join(root, filepath.FromSlash(rel))
		if convert.IsWithin(src, outputDir) {
			continue
		}
		dst := filepath.Join(outputDir, filepath.Dir(filepath.FromSlash(rel)), mode.OutputName(rel))

		res, err := convert.File(src, dst, mode, opts)
		if err != nil {
			resp.Failed = append(resp.Failed, GlobFailure{Source: src, Error: err.Error()})
			continue
		}
		resp.Converted = append(resp.Converted, res)
	}

	return resp, nil
}
