package xsg

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/ginty-lab/ephus/internal/decode"
	"github.com/ginty-lab/ephus/internal/fsutil"
	"github.com/ginty-lab/ephus/internal/matfile"
)

// Ext is the file extension of XSG files.
const Ext = ".xsg"

// Parser reads XSG files from a filesystem.
type Parser struct {
	FS      fsutil.FileSystem
	Builder *Builder
}

// NewParser returns a Parser. A nil fs reads from the OS filesystem and a
// nil builder uses DefaultOptions.
func NewParser(fs fsutil.FileSystem, b *Builder) *Parser {
	if fs == nil {
		fs = fsutil.OSFileSystem{}
	}
	if b == nil {
		b = defaultBuilder
	}
	return &Parser{FS: fs, Builder: b}
}

var defaultParser = NewParser(nil, nil)

// ParseFile parses path from the OS filesystem with DefaultOptions.
func ParseFile(path string) (*Record, error) {
	return defaultParser.ParseFile(path)
}

// ParseHeader decodes only the header of path from the OS filesystem.
func ParseHeader(path string) (decode.Value, error) {
	return defaultParser.ParseHeader(path)
}

func (p *Parser) load(path string, names ...string) (*matfile.File, error) {
	raw, err := p.FS.ReadFile(path)
	if err != nil {
		return nil, err
	}
	f, err := matfile.Parse(raw, names...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// ParseFile reads and builds the record stored in path. The record's
// SourceName is path.
func (p *Parser) ParseFile(path string) (*Record, error) {
	f, err := p.load(path, "header", "data")
	if err != nil {
		return nil, err
	}
	header, ok := f.Var("header")
	if !ok {
		return nil, fmt.Errorf("%s: %w", path, missing("header"))
	}
	data, ok := f.Var("data")
	if !ok {
		return nil, fmt.Errorf("%s: %w", path, missing("data"))
	}
	r, err := p.Builder.Build(decode.Decode(header), decode.Decode(data), path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return r, nil
}

// ParseHeader decodes the header of path without loading the data
// section or reconstructing stimuli.
func (p *Parser) ParseHeader(path string) (decode.Value, error) {
	f, err := p.load(path, "header")
	if err != nil {
		return nil, err
	}
	header, ok := f.Var("header")
	if !ok {
		return nil, fmt.Errorf("%s: %w", path, missing("header"))
	}
	return decode.Decode(header), nil
}

// ParseMetadata reads only the required header metadata of path.
func (p *Parser) ParseMetadata(path string) (Metadata, error) {
	h, err := p.ParseHeader(path)
	if err != nil {
		return Metadata{}, err
	}
	md, err := ReadMetadata(h)
	if err != nil {
		return Metadata{}, fmt.Errorf("%s: %w", path, err)
	}
	return md, nil
}

// FindFiles lists the XSG files under root.
func (p *Parser) FindFiles(root string) ([]string, error) {
	return p.FS.Find(root, Ext)
}

// ParseFiles parses paths concurrently with at most workers files in
// flight (unbounded if workers < 1). Records are returned in the order of
// paths. The first failure cancels the remaining work and is returned.
func (p *Parser) ParseFiles(ctx context.Context, paths []string, workers int) ([]*Record, error) {
	return parallel(ctx, paths, workers, p.ParseFile)
}

// ParseMetadataFiles reads the header metadata of paths concurrently, like
// ParseFiles.
func (p *Parser) ParseMetadataFiles(ctx context.Context, paths []string, workers int) ([]Metadata, error) {
	return parallel(ctx, paths, workers, p.ParseMetadata)
}

func parallel[T any](ctx context.Context, paths []string, workers int, fn func(string) (T, error)) ([]T, error) {
	out := make([]T, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}
	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			v, err := fn(path)
			if err != nil {
				return err
			}
			out[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
