package files

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/alucardeht/morse-mcp/internal/convert"
	"github.com/alucardeht/morse-mcp/internal/tools"
)

func TestGetTools(t *testing.T) {
	list := GetTools(0)

	names := []string{"morse_translate_file", "morse_translate_glob"}
	if len(list) != len(names) {
		t.Fatalf("expected %d tools, got %d", len(names), len(list))
	}
	for i, name := range names {
		if list[i].Name() != name {
			t.Errorf("expected %q, got %q", name, list[i].Name())
		}
		if _, ok := list[i].(tools.AnnotatedTool); !ok {
			t.Errorf("%s should carry annotations", name)
		}
	}
}

func TestTranslateFileReturnsContent(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	src := filepath.Join(dir, "sos.txt")
	os.WriteFile(src, []byte("sos"), 0644)

	tool := &TranslateFileTool{}
	data, _ := json.Marshal(TranslateFileRequest{Path: src, Mode: "encode"})
	result, err := tool.Execute(ctx, data)
	if err != nil {
		t.Fatalf("translate failed: %v", err)
	}

	m := result.(map[string]interface{})
	if m["content"] != "... --- ..." {
		t.Errorf("unexpected content %q", m["content"])
	}
	if _, err := os.Stat(src + convert.Extension); !os.IsNotExist(err) {
		t.Error("no file should be written without output_path")
	}
}

func TestTranslateFileWritesOutput(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	src := filepath.Join(dir, "in.morse")
	dst := filepath.Join(dir, "out", "in.txt")
	os.WriteFile(src, []byte(".... ../- .... . .-. ."), 0644)

	tool := &TranslateFileTool{}
	data, _ := json.Marshal(TranslateFileRequest{Path: src, Mode: "decode", OutputPath: dst})
	result, err := tool.Execute(ctx, data)
	if err != nil {
		t.Fatalf("translate failed: %v", err)
	}

	res := result.(*convert.Result)
	if res.Destination != dst {
		t.Errorf("expected destination %s, got %s", dst, res.Destination)
	}

	content, _ := os.ReadFile(dst)
	if string(content) != "HI THERE" {
		t.Errorf("expected HI THERE, got %q", content)
	}
}

func TestTranslateFileValidation(t *testing.T) {
	ctx := context.Background()
	tool := &TranslateFileTool{}

	for _, req := range []TranslateFileRequest{
		{Mode: "encode"},
		{Path: "/tmp/x", Mode: "sideways"},
	} {
		data, _ := json.Marshal(req)
		_, err := tool.Execute(ctx, data)
		if tools.ErrorCode(err) != tools.CodeInvalidParams {
			t.Errorf("%+v: expected invalid params, got %v", req, err)
		}
	}
}

func TestTranslateFileSizeLimit(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "big.txt")
	os.WriteFile(src, []byte("0123456789"), 0644)

	tool := &TranslateFileTool{maxBytes: 4}
	data, _ := json.Marshal(TranslateFileRequest{Path: src, Mode: "encode"})
	if _, err := tool.Execute(context.Background(), data); err == nil {
		t.Error("expected size limit error")
	}
}

func TestTranslateGlob(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	out := filepath.Join(root, "out")

	os.MkdirAll(filepath.Join(root, "sub"), 0755)
	os.MkdirAll(out, 0755)
	os.WriteFile(filepath.Join(root, "a.txt"), []byte("a"), 0644)
	os.WriteFile(filepath.Join(root, "sub", "b.txt"), []byte("b"), 0644)
	os.WriteFile(filepath.Join(root, "c.md"), []byte("c"), 0644)
	os.WriteFile(filepath.Join(out, "old.txt"), []byte("old"), 0644)

	tool := &TranslateGlobTool{}
	data, _ := json.Marshal(TranslateGlobRequest{
		Root:      root,
		Pattern:   "**/*.txt",
		Mode:      "encode",
		OutputDir: out,
	})

	result, err := tool.Execute(ctx, data)
	if err != nil {
		t.Fatalf("glob failed: %v", err)
	}

	resp := result.(TranslateGlobResponse)
	if resp.Matched != 3 {
		t.Errorf("expected 3 matches, got %d", resp.Matched)
	}
	if len(resp.Converted) != 2 {
		t.Fatalf("expected 2 conversions, got %d", len(resp.Converted))
	}
	if len(resp.Failed) != 0 {
		t.Errorf("unexpected failures: %+v", resp.Failed)
	}

	content, err := os.ReadFile(filepath.Join(out, "sub", "b.txt.morse"))
	if err != nil {
		t.Fatalf("expected mirrored output: %v", err)
	}
	if string(content) != "-..." {
		t.Errorf("expected -..., got %q", content)
	}
	if _, err := os.Stat(filepath.Join(out, "out")); !os.IsNotExist(err) {
		t.Error("files already inside output_dir must not be converted again")
	}
}

func TestTranslateGlobRelativeRoot(t *testing.T) {
	root := t.TempDir()
	out := filepath.Join(root, "out")
	os.MkdirAll(out, 0755)
	os.WriteFile(filepath.Join(root, "a.txt"), []byte("a"), 0644)
	os.WriteFile(filepath.Join(out, "old.txt"), []byte("old"), 0644)
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(root); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chdir(wd) })

	tool := &TranslateGlobTool{}
	data, _ := json.Marshal(TranslateGlobRequest{
		Root:      ".",
		Pattern:   "**/*.txt",
		Mode:      "encode",
		OutputDir: out,
	})

	result, err := tool.Execute(context.Background(), data)
	if err != nil {
		t.Fatalf("glob failed: %v", err)
	}

	resp := result.(TranslateGlobResponse)
	if len(resp.Converted) != 1 {
		t.Fatalf("expected only a.txt to be converted, got %d", len(resp.Converted))
	}
	if _, err := os.Stat(filepath.Join(out, "out")); !os.IsNotExist(err) {
		t.Error("outputs under a relative root must not be converted again")
	}
}

func TestTranslateGlobLimitAndValidation(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	for _, name := range []string{"1.txt", "2.txt", "3.txt"} {
		os.WriteFile(filepath.Join(root, name), []byte(name), 0644)
	}

	tool := &TranslateGlobTool{}
	data, _ := json.Marshal(TranslateGlobRequest{
		Root: root, Pattern: "*.txt", Mode: "encode", OutputDir: filepath.Join(t.TempDir(), "o"), Limit: 2,
	})
	result, err := tool.Execute(ctx, data)
	if err != nil {
		t.Fatalf("glob failed: %v", err)
	}
	resp := result.(TranslateGlobResponse)
	if !resp.Truncated || len(resp.Converted) != 2 {
		t.Errorf("expected 2 conversions and truncation, got %d/%v", len(resp.Converted), resp.Truncated)
	}

	for _, req := range []TranslateGlobRequest{
		{Root: root, Pattern: "[", Mode: "encode", OutputDir: "/tmp/o"},
		{Root: root, Pattern: "*.txt", Mode: "encode", OutputDir: root},
		{Root: root, Pattern: "*.txt", Mode: "flip", OutputDir: "/tmp/o"},
		{Pattern: "*.txt", Mode: "encode"},
	} {
		data, _ := json.Marshal(req)
		if _, err := tool.Execute(ctx, data); tools.ErrorCode(err) != tools.CodeInvalidParams {
			t.Errorf("%+v: expected invalid params, got %v", req, err)
		}
	}
}
