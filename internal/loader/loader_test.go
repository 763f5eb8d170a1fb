package loader

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/salafibot/salafibot/internal/command"
)

func commandSource(pkg, name, reply string) string {
	return fmt.Sprintf(`package %s

import "context"

var Data = map[string]any{
	"name":        %q,
	"description": "test command",
}

func Execute(ctx context.Context, opts map[string]string) (string, error) {
	return %q + opts["suffix"], nil
}
`, pkg, name, reply)
}

func writeFile(t *testing.T, root, rel, content string) string {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func newTestLoader(root string) *Loader {
	return New(root, NewInterpreter(nil))
}

func TestLoadSkipsMalformedFile(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "utility/ping.go", commandSource("utility", "ping", "Pong!"))
	writeFile(t, root, "utility/broken.go", `package utility

var Data = map[string]any{"name": "broken", "description": "no handler"}
`)

	res, err := newTestLoader(root).Load(context.Background(), "")
	require.NoError(t, err)

	require.Len(t, res.Loaded, 1)
	assert.Equal(t, "ping", res.Loaded[0].Name)
	assert.Equal(t, "utility", res.Loaded[0].Module)

	require.Len(t, res.Failed, 1)
	assert.Equal(t, "utility/broken.go", res.Failed[0].File)
	assert.Contains(t, res.Failed[0].Reason, "Execute")
}

func TestLoadedHandlerRuns(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "utility/ping.go", commandSource("utility", "ping", "Pong"))

	res, err := newTestLoader(root).Load(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, res.Loaded, 1)

	def := res.Loaded[0]
	out, err := def.Handler(context.Background(), map[string]string{"suffix": "!"})
	require.NoError(t, err)
	assert.Equal(t, "Pong!", out)
	assert.Equal(t, "test command", def.Schema.Description)
}

func TestLoadCollectsImportFailures(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "bad/syntax.go", "package bad\n\nfunc {")
	writeFile(t, root, "bad/forbidden.go", `package bad

import (
	"context"
	"os"
)

var Data = map[string]any{"name": "forbidden"}

func Execute(ctx context.Context, opts map[string]string) (string, error) {
	return os.Getenv("HOME"), nil
}
`)
	writeFile(t, root, "bad/signature.go", `package bad

var Data = map[string]any{"name": "signature"}

func Execute(s string) string { return s }
`)
	writeFile(t, root, "bad/badname.go", commandSource("bad", "Not A Name", "x"))
	writeFile(t, root, "good/ping.go", commandSource("good", "ping", "Pong!"))

	res, err := newTestLoader(root).Load(context.Background(), "")
	require.NoError(t, err)

	assert.Equal(t, []string{"ping"}, res.Names())
	require.Len(t, res.Failed, 4)

	reasons := map[string]string{}
	for _, f := range res.Failed {
		reasons[f.File] = f.Reason
	}
	assert.Contains(t, reasons["bad/forbidden.go"], "forbidden import")
	assert.Contains(t, reasons["bad/forbidden.go"], "os")
	assert.Contains(t, reasons["bad/signature.go"], "incorrect signature")
	assert.Contains(t, reasons["bad/badname.go"], "invalid command schema")
	assert.Contains(t, reasons, "bad/syntax.go")
}

func TestLoadTargetFilter(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "utility/ping.go", commandSource("utility", "ping", "Pong!"))
	writeFile(t, root, "islamic/basmalah.go", commandSource("islamic", "basmalah", "Bismillah"))

	res, err := newTestLoader(root).Load(context.Background(), "basmalah")
	require.NoError(t, err)
	assert.Equal(t, []string{"basmalah"}, res.Names())
	assert.Empty(t, res.Failed)

	res, err = newTestLoader(root).Load(context.Background(), "missing")
	require.NoError(t, err)
	assert.Empty(t, res.Loaded)
}

func TestLoadDuplicateNamesFirstWins(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a/ping.go", commandSource("a", "ping", "first"))
	writeFile(t, root, "b/ping.go", commandSource("b", "ping", "second"))

	res, err := newTestLoader(root).Load(context.Background(), "")
	require.NoError(t, err)

	require.Len(t, res.Loaded, 1)
	assert.Equal(t, "a", res.Loaded[0].Module)
	require.Len(t, res.Failed, 1)
	assert.Equal(t, "b/ping.go", res.Failed[0].File)
	assert.Contains(t, res.Failed[0].Reason, "a/ping.go")
}

func TestLoadRootMissing(t *testing.T) {
	_, err := newTestLoader(filepath.Join(t.TempDir(), "nope")).Load(context.Background(), "")
	assert.ErrorIs(t, err, ErrRootMissing)

	file := writeFile(t, t.TempDir(), "file.txt", "x")
	_, err = newTestLoader(file).Load(context.Background(), "")
	assert.ErrorIs(t, err, ErrRootMissing)
}

// recordingImporter returns a definition named after the file without interpreting it.
type recordingImporter struct {
	seen []string
}

func (r *recordingImporter) Import(_ context.Context, path string) (*command.Definition, error) {
	r.seen = append(r.seen, path)
	name := strings.TrimSuffix(filepath.Base(path), ".go")
	return &command.Definition{Name: name}, nil
}

func TestFilesLexicalOrderAndSkips(t *testing.T) {
	root := t.TempDir()
	for _, rel := range []string{
		"zeta/b.go", "zeta/a.go", "alpha/c.go",
		"alpha/c_test.go", "alpha/.hidden.go", "alpha/_draft.go", "alpha/notes.md",
		"_disabled/x.go", ".git/y.go",
	} {
		writeFile(t, root, rel, "package x")
	}
	writeFile(t, root, "toplevel.go", "package x")

	imp := &recordingImporter{}
	res, err := New(root, imp).Load(context.Background(), "")
	require.NoError(t, err)

	assert.Equal(t, []string{"c", "a", "b"}, res.Names())
	assert.Equal(t, "alpha", res.Loaded[0].Module)
	assert.Equal(t, "zeta", res.Loaded[2].Module)
}

func TestScanStopsEarly(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "m/a.go", "package x")
	writeFile(t, root, "m/b.go", "package x")
	writeFile(t, root, "m/c.go", "package x")

	imp := &recordingImporter{}
	_, err := New(root, imp).Scan(context.Background(), func(def *command.Definition) bool {
		return def.Name == "b"
	})
	require.NoError(t, err)
	assert.Len(t, imp.seen, 2)
}

func TestScanHonoursCancellation(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "m/a.go", "package x")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(root, &recordingImporter{}).Scan(ctx, func(*command.Definition) bool { return false })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestReimportSeesChangedSource(t *testing.T) {
	root := t.TempDir()
	path := writeFile(t, root, "utility/ping.go", commandSource("utility", "ping", "v1"))
	imp := NewInterpreter(nil)

	def, err := imp.Import(context.Background(), path)
	require.NoError(t, err)
	out, _ := def.Handler(context.Background(), nil)
	assert.Equal(t, "v1", out)

	writeFile(t, root, "utility/ping.go", commandSource("utility", "ping", "v2"))
	def, err = imp.Import(context.Background(), path)
	require.NoError(t, err)
	out, _ = def.Handler(context.Background(), nil)
	assert.Equal(t, "v2", out)
}
