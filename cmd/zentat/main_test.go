package main

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/GriffinCanCode/zentat/internal/rates"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func testOptions(t *testing.T) options {
	t.Helper()
	ratesFile := filepath.Join(t.TempDir(), "rates.json")
	require.NoError(t, rates.SaveFile(ratesFile, rates.Table{
		Rates:     map[string]float64{"USD": 0.5, "EUR": 0.25},
		UpdatedAt: time.Now(),
		Source:    "file",
	}))
	return options{
		RatesFile: ratesFile,
		Unit:      "ZEC",
		Jobs:      2,
	}
}

func TestNewConverterNeedsRates(t *testing.T) {
	_, err := newConverter(context.Background(), options{}, zaptest.NewLogger(t))
	assert.EqualError(t, err, "no rates: pass -rates or -fetch")

	_, err = newConverter(context.Background(), options{RatesFile: filepath.Join(t.TempDir(), "absent.json")}, zaptest.NewLogger(t))
	assert.Error(t, err)
}

func TestConvertFile(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "page.html")
	out := filepath.Join(dir, "converted.html")
	writeFile(t, in, `<html><body><p>Price: $100</p><p>€8</p></body></html>`)

	c, err := newConverter(context.Background(), testOptions(t), zaptest.NewLogger(t))
	require.NoError(t, err)

	n, err := c.convertFile(context.Background(), in, out)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	got := readFile(t, out)
	assert.Contains(t, got, "Price: 50.00 ZEC")
	assert.Contains(t, got, "2.000 ZEC")
	assert.Contains(t, got, `title="Original: Price: $100"`)
}

func TestConvertFileWithSettings(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "page.html")
	out := filepath.Join(dir, "converted.html")
	settingsFile := filepath.Join(dir, "settings.toml")
	writeFile(t, in, `<p>$100</p><p>€8</p>`)
	writeFile(t, settingsFile, "currencies = [\"EUR\"]\nprecision = 0\n")

	opts := testOptions(t)
	opts.SettingsFile = settingsFile
	c, err := newConverter(context.Background(), opts, zaptest.NewLogger(t))
	require.NoError(t, err)

	n, err := c.convertFile(context.Background(), in, out)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got := readFile(t, out)
	assert.Contains(t, got, "<p>$100</p>")
	assert.Contains(t, got, ">2 ZEC</p>")
}

func TestConvertTree(t *testing.T) {
	in := t.TempDir()
	out := t.TempDir()
	writeFile(t, filepath.Join(in, "a.html"), `<p>$100</p>`)
	writeFile(t, filepath.Join(in, "sub", "b.HTM"), `<p>Was €8</p>`)
	writeFile(t, filepath.Join(in, "notes.txt"), `$5`)

	c, err := newConverter(context.Background(), testOptions(t), zaptest.NewLogger(t))
	require.NoError(t, err)
	require.NoError(t, c.convertTree(context.Background(), in, out))

	assert.Contains(t, readFile(t, filepath.Join(out, "a.html")), "50.00 ZEC")
	assert.Contains(t, readFile(t, filepath.Join(out, "sub", "b.HTM")), "Was 2.000 ZEC")
	assert.NoFileExists(t, filepath.Join(out, "notes.txt"))

	assert.Error(t, c.convertTree(context.Background(), in, "-"))
}

func TestConvertTreeCompressed(t *testing.T) {
	in := t.TempDir()
	out := t.TempDir()
	writeFile(t, filepath.Join(in, "a.html"), `<p>$100</p>`)

	opts := testOptions(t)
	opts.Compress = true
	c, err := newConverter(context.Background(), opts, zaptest.NewLogger(t))
	require.NoError(t, err)
	require.NoError(t, c.convertTree(context.Background(), in, out))

	f, err := os.Open(filepath.Join(out, "a.html.gz"))
	require.NoError(t, err)
	defer f.Close()
	zr, err := gzip.NewReader(f)
	require.NoError(t, err)
	defer zr.Close()

	data, err := io.ReadAll(zr)
	require.NoError(t, err)
	assert.Contains(t, string(data), "50.00 ZEC")
}

func TestCollect(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "z.html"), "")
	writeFile(t, filepath.Join(root, "a", "b.xhtml"), "")
	writeFile(t, filepath.Join(root, "a", "c.css"), "")

	files, err := collect(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join("a", "b.xhtml"), "z.html"}, files)
}

func TestRunRejectsMissingInput(t *testing.T) {
	opts := testOptions(t)
	opts.In = filepath.Join(t.TempDir(), "missing.html")
	assert.Error(t, run(context.Background(), opts, zaptest.NewLogger(t)))
}
