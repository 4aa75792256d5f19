package navigation

import (
	"time"

	"github.com/gamemachine/ainav/internal/metrics"
	"github.com/gamemachine/ainav/recast"

	"go.uber.org/zap"
)

// Builder builds tile blobs and records build metrics.
type Builder struct {
	b   *recast.Builder
	log *zap.Logger
}

func NewBuilder(log *zap.Logger) *Builder {
	if log == nil {
		log = zap.NewNop()
	}
	b := recast.NewBuilder()
	b.SetLogger(log)
	return &Builder{b: b, log: log}
}

func (b *Builder) SetSettings(s recast.BuildSettings) { b.b.SetSettings(s) }

func (b *Builder) Settings() recast.BuildSettings { return b.b.Settings() }

// BuildNavmesh builds the tile described by the current settings. The
// result is never nil; check Success and Error.
func (b *Builder) BuildNavmesh(verts []float32, tris []int, areas []uint8) *recast.GeneratedData {
	start := time.Now()
	res := b.b.BuildNavmesh(verts, tris, areas)
	metrics.ObserveBuild(res.Success, time.Since(start))
	return res
}

// BuildTiles builds every tile covering geom, see recast.Builder.BuildTiles.
func (b *Builder) BuildTiles(geom *recast.InputGeom, fn func(recast.TileResult) bool) (built, failed int) {
	start := time.Now()
	last := start
	built, failed = b.b.BuildTiles(geom, func(tr recast.TileResult) bool {
		now := time.Now()
		metrics.ObserveBuild(true, now.Sub(last))
		last = now
		return fn(tr)
	})
	if failed > 0 {
		// Failed tiles never reach fn, spread the rest of the time over them.
		per := time.Since(last) / time.Duration(failed)
		for i := 0; i < failed; i++ {
			metrics.ObserveBuild(false, per)
		}
	}
	b.log.Info("tiles built",
		zap.Int("built", built), zap.Int("failed", failed), zap.Duration("took", time.Since(start)))
	return built, failed
}
