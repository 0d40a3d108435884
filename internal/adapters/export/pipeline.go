// Package export turns a render context into artifacts: SVG markup bound to
// one resource representation, or a PNG bitmap painted from the same tree.
package export

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/disintegration/imaging"

	"github.com/okian/aol-b30/internal/adapters/host"
	"github.com/okian/aol-b30/internal/domain/model"
	"github.com/okian/aol-b30/internal/domain/resource"
	"github.com/okian/aol-b30/internal/domain/scene"
	"github.com/okian/aol-b30/pkg/logger"
	"github.com/okian/aol-b30/pkg/metrics"
)

const (
	fileNamePrefix = "AOL-b30-"
	fileNameLayout = "2006-2006/01/02 15-04-05"
)

// FileName names an export taken at t, without extension.
func FileName(t time.Time) string {
	return fileNamePrefix + t.Format(fileNameLayout)
}

// Sink receives exported artifacts.
type Sink interface {
	ExportAsImage(ctx context.Context, blob host.Blob, opts host.ExportOptions) error
}

// Artifact is one rendered export.
type Artifact struct {
	Data     []byte
	MIME     string
	Filename string
	Format   Format
}

// Pipeline renders and delivers exports.
type Pipeline struct {
	raster *Rasterizer
	sink   Sink
	now    func() time.Time
	logger logger.Logger
}

// NewPipeline creates a pipeline. sink may be nil when only Render is used.
func NewPipeline(resolver *resource.Resolver, sink Sink, opts ...Option) *Pipeline {
	p := &Pipeline{
		sink:   sink,
		now:    time.Now,
		logger: logger.OrNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.raster = NewRasterizer(resolver, p.logger)
	return p
}

// Markup composes rc and serialises it with the hrefs of rc.Kind.
func (p *Pipeline) Markup(rc model.RenderContext) ([]byte, error) {
	root, err := scene.Compose(rc)
	if err != nil {
		return nil, err
	}
	return Markup(root)
}

// Bitmap paints rc into a PNG. Resources are read through their ephemeral
// handles whatever rc.Kind says.
func (p *Pipeline) Bitmap(ctx context.Context, rc model.RenderContext) ([]byte, error) {
	root, err := scene.Compose(rc.WithKind(resource.Ephemeral))
	if err != nil {
		return nil, err
	}
	img, err := p.raster.Rasterize(ctx, root)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// Render produces the artifact for format f.
func (p *Pipeline) Render(ctx context.Context, rc model.RenderContext, f Format) (Artifact, error) {
	start := time.Now()
	var (
		data []byte
		err  error
	)
	if f == FormatPNG {
		data, err = p.Bitmap(ctx, rc)
	} else {
		data, err = p.Markup(rc.WithKind(f.Kind()))
	}
	metrics.RecordRender(f.String(), time.Since(start), err)
	if err != nil {
		return Artifact{}, fmt.Errorf("render %s: %w", f, err)
	}
	return Artifact{
		Data:     data,
		MIME:     f.MIME(),
		Filename: FileName(p.now()) + f.Ext(),
		Format:   f,
	}, nil
}

// Export renders f and hands it to the sink.
func (p *Pipeline) Export(ctx context.Context, rc model.RenderContext, f Format) (Artifact, error) {
	if p.sink == nil {
		return Artifact{}, fmt.Errorf("export: no sink configured")
	}
	a, err := p.Render(ctx, rc, f)
	if err != nil {
		return Artifact{}, err
	}
	if err := p.sink.ExportAsImage(ctx, host.Blob{Data: a.Data, Type: a.MIME}, host.ExportOptions{Filename: a.Filename}); err != nil {
		return Artifact{}, fmt.Errorf("export %s: %w", a.Filename, err)
	}
	p.logger.Info(ctx, "scoreboard exported",
		logger.String("format", f.String()),
		logger.String("file", a.Filename),
		logger.Int("bytes", len(a.Data)),
	)
	return a, nil
}
