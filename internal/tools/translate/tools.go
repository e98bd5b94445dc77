package translate

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/alucardeht/morse-mcp/internal/logger"
	"github.com/alucardeht/morse-mcp/internal/morse"
	"github.com/alucardeht/morse-mcp/internal/tools"
	"github.com/alucardeht/morse-mcp/internal/tools/history"
)

var log = logger.ForComponent("translate")

// Recorder persists completed translations. *history.Store satisfies it.
type Recorder interface {
	Record(ctx context.Context, direction history.Direction, input, output string) (*history.Entry, error)
}

type Options struct {
	MaxInputBytes int
	Recorder      Recorder
}

func GetTools(opts Options) []tools.Tool {
	return []tools.Tool{
		&EncodeTool{opts: opts},
		&DecodeTool{opts: opts},
		&ValidateTool{opts: opts},
		&AlphabetTool{},
	}
}

func record(ctx context.Context, opts Options, direction history.Direction, input, output string) {
	if opts.Recorder == nil || input == "" {
		return
	}
	if _, err := opts.Recorder.Record(ctx, direction, input, output); err != nil {
		log.Warn("failed to record translation", "direction", direction, "error", err)
	}
}

type EncodeTool struct {
	opts Options
}

func (t *EncodeTool) Name() string {
	return "morse_encode"
}

func (t *EncodeTool) Description() string {
	return `Encode text to International Morse Code.

Letters are case-insensitive. Codes are separated by one space and words by
"/". Characters without a Morse code are kept as-is and listed in
"unsupported".`
}

func (t *EncodeTool) Title() string {
	return "Text to Morse"
}

func (t *EncodeTool) Annotations() map[string]bool {
	return tools.ReadOnlyAnnotations()
}

func (t *EncodeTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"text": {
				"type": "string",
				"description": "Text to encode"
			}
		},
		"required": ["text"]
	}`)
}

func (t *EncodeTool) Execute(ctx context.Context, input json.RawMessage) (interface{}, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	var req struct {
		Text *string `json:"text"`
	}
	if err := json.Unmarshal(input, &req); err != nil {
		return nil, tools.NewInvalidParamsError(err)
	}
	if req.Text == nil {
		return nil, tools.NewInvalidParamsError(fmt.Errorf("text is required"))
	}
	text := *req.Text
	if err := tools.CheckInputSize("text", text, t.opts.MaxInputBytes); err != nil {
		return nil, err
	}

	encoded := morse.Encode(text)
	record(ctx, t.opts, history.DirectionEncode, text, encoded)

	unsupported := make([]string, 0)
	for _, r := range morse.Unsupported(text) {
		unsupported = append(unsupported, string(r))
	}

	return map[string]interface{}{
		"morse":       encoded,
		"unsupported": unsupported,
	}, nil
}

type DecodeTool struct {
	opts Options
}

func (t *DecodeTool) Name() string {
	return "morse_decode"
}

func (t *DecodeTool) Description() string {
	return `Decode International Morse Code to text.

Separate codes with a single space and words with "/". Tokens that are not
valid codes are kept as-is and listed in "unknown_codes".`
}

func (t *DecodeTool) Title() string {
	return "Morse to Text"
}

func (t *DecodeTool) Annotations() map[string]bool {
	return tools.ReadOnlyAnnotations()
}

func (t *DecodeTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"morse": {
				"type": "string",
				"description": "Morse code using '.', '-', single spaces and '/'"
			}
		},
		"required": ["morse"]
	}`)
}

func (t *DecodeTool) Execute(ctx context.Context, input json.RawMessage) (interface{}, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	var req struct {
		Morse *string `json:"morse"`
	}
	if err := json.Unmarshal(input, &req); err != nil {
		return nil, tools.NewInvalidParamsError(err)
	}
	if req.Morse == nil {
		return nil, tools.NewInvalidParamsError(fmt.Errorf("morse is required"))
	}
	code := *req.Morse
	if err := tools.CheckInputSize("morse", code, t.opts.MaxInputBytes); err != nil {
		return nil, err
	}

	decoded := morse.Decode(code)
	record(ctx, t.opts, history.DirectionDecode, code, decoded)

	unknown := morse.UnknownCodes(code)
	if unknown == nil {
		unknown = []string{}
	}

	return map[string]interface{}{
		"text":          decoded,
		"valid":         morse.IsValid(code),
		"unknown_codes": unknown,
	}, nil
}

type ValidateTool struct {
	opts Options
}

func (t *ValidateTool) Name() string {
	return "morse_validate"
}

func (t *ValidateTool) Description() string {
	return "Check that a string only contains Morse symbols ('.', '-', whitespace, '/'). Does not check that the codes exist."
}

func (t *ValidateTool) Title() string {
	return "Validate Morse"
}

func (t *ValidateTool) Annotations() map[string]bool {
	return tools.ReadOnlyAnnotations()
}

func (t *ValidateTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"morse": {
				"type": "string",
				"description": "String to check"
			}
		},
		"required": ["morse"]
	}`)
}

func (t *ValidateTool) Execute(ctx context.Context, input json.RawMessage) (interface{}, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	var req struct {
		Morse *string `json:"morse"`
	}
	if err := json.Unmarshal(input, &req); err != nil {
		return nil, tools.NewInvalidParamsError(err)
	}
	if req.Morse == nil {
		return nil, tools.NewInvalidParamsError(fmt.Errorf("morse is required"))
	}
	if err := tools.CheckInputSize("morse", *req.Morse, t.opts.MaxInputBytes); err != nil {
		return nil, err
	}

	return map[string]interface{}{
		"valid": morse.IsValid(*req.Morse),
	}, nil
}

type AlphabetTool struct{}

func (t *AlphabetTool) Name() string {
	return "morse_alphabet"
}

func (t *AlphabetTool) Description() string {
	return "List every character the Morse tools understand with its code"
}

func (t *AlphabetTool) Title() string {
	return "Morse Alphabet"
}

func (t *AlphabetTool) Annotations() map[string]bool {
	return tools.ReadOnlyAnnotations()
}

func (t *AlphabetTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {}
	}`)
}

func (t *AlphabetTool) Execute(ctx context.Context, input json.RawMessage) (interface{}, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	symbols := morse.Alphabet()
	return map[string]interface{}{
		"total":          len(symbols),
		"word_separator": morse.WordSeparator,
		"symbols":        symbols,
	}, nil
}
