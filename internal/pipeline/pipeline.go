package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Gpanazio/brickreview-sub001/internal/domain"
	"github.com/Gpanazio/brickreview-sub001/internal/media"
	"github.com/Gpanazio/brickreview-sub001/internal/metrics"
)

// VideoStore is the persistence surface the pipeline needs.
type VideoStore interface {
	GetByID(ctx context.Context, id int64) (*domain.VideoAsset, error)
	ClaimProcessing(ctx context.Context, id int64) error
	SetStatus(ctx context.Context, id int64, status domain.VideoStatus) error
	CommitAssets(ctx context.Context, id int64, commit *domain.AssetCommit) error
}

// FailureStore records failed runs for later inspection.
type FailureStore interface {
	Create(ctx context.Context, failure *domain.ProcessingFailure) error
}

// ObjectStore moves files between local disk and the media bucket.
type ObjectStore interface {
	Download(ctx context.Context, key, destPath string) error
	Upload(ctx context.Context, srcPath, key string) (string, error)
	PublicURL(key string) string
}

// Transcoder produces the derivative assets from a local source file.
type Transcoder interface {
	Probe(ctx context.Context, inputPath string) (*media.Metadata, error)
	ExtractThumbnail(ctx context.Context, inputPath, outputPath string, duration float64) error
	GenerateProxy(ctx context.Context, inputPath, outputPath string) error
	GenerateStreamingHigh(ctx context.Context, inputPath, outputPath string, targetBitrateKbps int) error
	GenerateSpriteSheet(ctx context.Context, inputPath, outputPath string, duration float64, opts media.SpriteOptions) (*media.SpriteSheet, error)
}

// Options configures a Pipeline.
type Options struct {
	WorkdirRoot        string
	MaxParallelUploads int
	Sprite             media.SpriteOptions
}

// Pipeline runs the full processing flow for one video: claim, download,
// probe, generate derivatives, upload, commit.
type Pipeline struct {
	videos     VideoStore
	failures   FailureStore
	store      ObjectStore
	transcoder Transcoder
	opts       Options
	logger     *zap.Logger
	metrics    *metrics.Metrics
}

// New creates a pipeline. Metrics may be nil in tests.
func New(videos VideoStore, failures FailureStore, store ObjectStore, transcoder Transcoder, opts Options, logger *zap.Logger, m *metrics.Metrics) *Pipeline {
	if opts.MaxParallelUploads < 1 {
		opts.MaxParallelUploads = 1
	}
	return &Pipeline{
		videos:     videos,
		failures:   failures,
		store:      store,
		transcoder: transcoder,
		opts:       opts,
		logger:     logger,
		metrics:    m,
	}
}

// Run processes one video end to end. On a stage failure the video is marked
// failed, a failure row is written, and the error is returned so the queue
// layer can apply its retry policy. A claim that loses to a concurrent run
// returns domain.ErrAlreadyProcessing without touching the record.
func (p *Pipeline) Run(ctx context.Context, videoID int64) error {
	if p.metrics != nil {
		p.metrics.IncrementJobsActive()
		defer p.metrics.DecrementJobsActive()
	}

	err := p.run(ctx, videoID)
	if err == nil {
		if p.metrics != nil {
			p.metrics.IncrementJobsTotal("ready")
		}
		return nil
	}

	var pe *domain.PipelineError
	if !errors.As(err, &pe) {
		// Claim contention or a missing record. Another run owns the
		// video, so its status is not ours to change.
		return err
	}

	p.logger.Error("pipeline run failed",
		zap.Int64("video_id", videoID),
		zap.String("stage", string(pe.Stage)),
		zap.Error(err))

	if p.metrics != nil {
		p.metrics.IncrementJobsTotal("failed")
		p.metrics.IncrementStageFailures(string(pe.Stage))
	}

	// Best effort: the original failure is what callers need to see even
	// if the bookkeeping writes fail too. The writes run on a detached
	// context because the failure may itself be the caller's cancellation
	// (shutdown, activity timeout), and a record left at processing could
	// never be re-dispatched.
	writeCtx := context.WithoutCancel(ctx)
	if statusErr := p.videos.SetStatus(writeCtx, videoID, domain.StatusFailed); statusErr != nil {
		p.logger.Error("failed to mark video failed",
			zap.Int64("video_id", videoID), zap.Error(statusErr))
	}
	if recordErr := p.failures.Create(writeCtx, &domain.ProcessingFailure{
		VideoID: videoID,
		Stage:   pe.Stage,
		Message: pe.Err.Error(),
	}); recordErr != nil {
		p.logger.Error("failed to record processing failure",
			zap.Int64("video_id", videoID), zap.Error(recordErr))
	}

	return err
}

func (p *Pipeline) run(ctx context.Context, videoID int64) error {
	if err := p.videos.ClaimProcessing(ctx, videoID); err != nil {
		return err
	}

	video, err := p.videos.GetByID(ctx, videoID)
	if err != nil {
		return domain.NewPipelineError(domain.StageDownload, videoID, err)
	}

	ws := media.NewWorkspace(p.opts.WorkdirRoot)
	if err := ws.Create(); err != nil {
		return domain.NewPipelineError(domain.StageDownload, videoID, err)
	}
	defer func() {
		if err := ws.Cleanup(); err != nil {
			p.logger.Warn("workspace cleanup failed",
				zap.String("workspace", ws.Root()), zap.Error(err))
		}
	}()

	logger := p.logger.With(
		zap.Int64("video_id", videoID),
		zap.Int64("project_id", video.ProjectID),
		zap.String("run_id", ws.RunID().String()))

	sourcePath := ws.Path("source" + sourceExt(video.Filename))
	if err := p.timed(domain.StageDownload, func() error {
		return p.store.Download(ctx, video.SourceKey, sourcePath)
	}); err != nil {
		return domain.NewPipelineError(domain.StageDownload, videoID, err)
	}

	var meta *media.Metadata
	if err := p.timed(domain.StageProbe, func() error {
		var probeErr error
		meta, probeErr = p.transcoder.Probe(ctx, sourcePath)
		return probeErr
	}); err != nil {
		return domain.NewPipelineError(domain.StageProbe, videoID, err)
	}
	if meta.Duration <= 0 {
		return domain.NewPipelineError(domain.StageProbe, videoID,
			fmt.Errorf("source reports non-positive duration %.3f", meta.Duration))
	}

	policy := domain.ClassifyBitrate(meta.Height, meta.BitrateKbps())
	logger.Info("source probed",
		zap.Float64("duration", meta.Duration),
		zap.Int("width", meta.Width),
		zap.Int("height", meta.Height),
		zap.Int("bitrate_kbps", meta.BitrateKbps()),
		zap.String("tier", string(policy.Tier)),
		zap.Bool("needs_high_bitrate", policy.NeedsHighBitrate))

	keys := NewKeySet(video.ProjectID, ws.RunID())

	out, err := p.generate(ctx, ws, sourcePath, meta, policy, keys)
	if err != nil {
		return domain.NewPipelineError(domain.StageTrans, videoID, err)
	}

	commit, err := p.upload(ctx, out, keys, policy)
	if err != nil {
		return domain.NewPipelineError(domain.StageUpload, videoID, err)
	}

	commit.Duration = meta.Duration
	commit.Width = meta.Width
	commit.Height = meta.Height
	commit.FPS = meta.FPS
	commit.BitrateBps = meta.BitrateBps

	if err := p.timed(domain.StageCommit, func() error {
		return p.videos.CommitAssets(ctx, videoID, commit)
	}); err != nil {
		return domain.NewPipelineError(domain.StageCommit, videoID, err)
	}

	logger.Info("video ready")
	return nil
}

// generated holds the local paths produced by the transcode stage.
type generated struct {
	thumbnail   string
	proxy       string
	sprite      string
	spriteIndex string
	highBitrate string
}

func (p *Pipeline) generate(ctx context.Context, ws *media.Workspace, sourcePath string, meta *media.Metadata, policy domain.PolicyResult, keys KeySet) (*generated, error) {
	out := &generated{
		thumbnail:   ws.Path("thumbnail.jpg"),
		proxy:       ws.Path("proxy.mp4"),
		sprite:      ws.Path("sprite.jpg"),
		spriteIndex: ws.Path("sprite.vtt"),
	}

	err := p.timed(domain.StageTrans, func() error {
		if err := p.transcoder.ExtractThumbnail(ctx, sourcePath, out.thumbnail, meta.Duration); err != nil {
			return fmt.Errorf("thumbnail: %w", err)
		}
		if err := p.transcoder.GenerateProxy(ctx, sourcePath, out.proxy); err != nil {
			return fmt.Errorf("proxy: %w", err)
		}

		sheet, err := p.transcoder.GenerateSpriteSheet(ctx, sourcePath, out.sprite, meta.Duration, p.opts.Sprite)
		if err != nil {
			return fmt.Errorf("sprite sheet: %w", err)
		}
		// The index references the sprite by its final public address,
		// known before the upload happens.
		if err := media.WriteSpriteIndex(out.spriteIndex, p.store.PublicURL(keys.Sprite), *sheet); err != nil {
			return fmt.Errorf("sprite index: %w", err)
		}

		if policy.NeedsHighBitrate {
			out.highBitrate = ws.Path("high.mp4")
			if err := p.transcoder.GenerateStreamingHigh(ctx, sourcePath, out.highBitrate, policy.TargetBitrateKbps); err != nil {
				return fmt.Errorf("streaming high: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (p *Pipeline) upload(ctx context.Context, out *generated, keys KeySet, policy domain.PolicyResult) (*domain.AssetCommit, error) {
	commit := &domain.AssetCommit{
		ThumbnailKey:   keys.Thumbnail,
		ProxyKey:       keys.Proxy,
		SpriteKey:      keys.Sprite,
		SpriteIndexKey: keys.SpriteIndex,
	}

	err := p.timed(domain.StageUpload, func() error {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(p.opts.MaxParallelUploads)

		g.Go(func() error {
			url, err := p.uploadOne(gctx, out.thumbnail, keys.Thumbnail)
			commit.ThumbnailURL = url
			return err
		})
		g.Go(func() error {
			url, err := p.uploadOne(gctx, out.proxy, keys.Proxy)
			commit.ProxyURL = url
			return err
		})
		g.Go(func() error {
			url, err := p.uploadOne(gctx, out.sprite, keys.Sprite)
			commit.SpriteURL = url
			return err
		})
		g.Go(func() error {
			url, err := p.uploadOne(gctx, out.spriteIndex, keys.SpriteIndex)
			commit.SpriteIndexURL = url
			return err
		})
		if out.highBitrate != "" {
			g.Go(func() error {
				url, err := p.uploadOne(gctx, out.highBitrate, keys.HighBitrate)
				if err == nil {
					key := keys.HighBitrate
					commit.HighBitrateKey = &key
					commit.HighBitrateURL = &url
				}
				return err
			})
		}

		return g.Wait()
	})
	if err != nil {
		return nil, err
	}
	return commit, nil
}

func (p *Pipeline) uploadOne(ctx context.Context, srcPath, key string) (string, error) {
	start := time.Now()
	url, err := p.store.Upload(ctx, srcPath, key)
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}
	if p.metrics != nil {
		p.metrics.RecordUploadDuration(time.Since(start).Seconds())
		if info, statErr := os.Stat(srcPath); statErr == nil {
			p.metrics.AddUploadBytes(float64(info.Size()))
		}
	}
	return url, nil
}

func (p *Pipeline) timed(stage domain.Stage, fn func() error) error {
	start := time.Now()
	err := fn()
	if p.metrics != nil && err == nil {
		p.metrics.RecordStageDuration(string(stage), time.Since(start).Seconds())
	}
	return err
}

func sourceExt(filename string) string {
	ext := filepath.Ext(filename)
	if ext == "" {
		return ".mp4"
	}
	return ext
}
