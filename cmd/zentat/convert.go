package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charlievieth/fastwalk"
	"github.com/klauspost/compress/gzip"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/GriffinCanCode/zentat/internal/dom"
	"github.com/GriffinCanCode/zentat/internal/session"
)

var timeNow = time.Now

// htmlExts are the extensions converted in directory mode.
var htmlExts = map[string]bool{".html": true, ".htm": true, ".xhtml": true}

// convertStream converts one document from r and writes it to out.
func (c *converter) convertStream(ctx context.Context, r io.Reader, out string) (int, error) {
	doc, err := dom.Load(r, c.cfg.Load)
	if err != nil {
		return 0, err
	}
	snap, err := session.Convert(ctx, doc, c.opts.Host, c.rates, c.settings, c.cfg, c.logger, nil)
	if err != nil {
		return 0, err
	}
	if err := c.write(out, snap.HTML); err != nil {
		return 0, err
	}
	return snap.Converted, nil
}

// convertFile converts the document at in and writes it to out.
func (c *converter) convertFile(ctx context.Context, in, out string) (int, error) {
	f, err := os.Open(in)
	if err != nil {
		return 0, fmt.Errorf("failed to open input: %w", err)
	}
	defer f.Close()
	return c.convertStream(ctx, f, out)
}

// convertTree converts every HTML file under root into the same relative
// path under outDir.
func (c *converter) convertTree(ctx context.Context, root, outDir string) error {
	if outDir == "" || outDir == "-" {
		return fmt.Errorf("directory input needs an output directory")
	}

	files, err := collect(ctx, root)
	if err != nil {
		return err
	}

	var total atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(c.opts.Jobs, 1))
	for _, rel := range files {
		g.Go(func() error {
			dst := filepath.Join(outDir, rel)
			if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
				return err
			}
			n, err := c.convertFile(gctx, filepath.Join(root, rel), dst)
			if err != nil {
				return fmt.Errorf("%s: %w", rel, err)
			}
			total.Add(int64(n))
			c.logger.Debug("Converted", zap.String("file", rel), zap.Int("elements", n))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	c.logger.Info("Converted tree",
		zap.String("root", root),
		zap.Int("files", len(files)),
		zap.Int64("elements", total.Load()),
	)
	return nil
}

// collect returns the HTML files under root as sorted relative paths.
func collect(ctx context.Context, root string) ([]string, error) {
	var (
		mu    sync.Mutex
		files []string
	)
	conf := fastwalk.Config{Follow: false}
	err := fastwalk.Walk(&conf, root, func(p string, d os.DirEntry, err error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err != nil || d.IsDir() {
			return nil
		}
		if !htmlExts[strings.ToLower(filepath.Ext(p))] {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return nil
		}
		mu.Lock()
		files = append(files, rel)
		mu.Unlock()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk failed: %w", err)
	}
	sort.Strings(files)
	return files, nil
}

// write stores markup at out, or stdout for "-", gzip compressed on request.
func (c *converter) write(out, markup string) (err error) {
	var w io.Writer = os.Stdout
	if out != "-" && out != "" {
		if c.opts.Compress && !strings.HasSuffix(out, ".gz") {
			out += ".gz"
		}
		f, err := os.Create(out)
		if err != nil {
			return fmt.Errorf("failed to create output: %w", err)
		}
		defer func() {
			if cerr := f.Close(); err == nil {
				err = cerr
			}
		}()
		w = f
	}

	if !c.opts.Compress {
		_, err = io.WriteString(w, markup)
		return err
	}
	gz := gzip.NewWriter(w)
	if _, err := io.WriteString(gz, markup); err != nil {
		gz.Close()
		return err
	}
	return gz.Close()
}
