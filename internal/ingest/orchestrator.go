// Package ingest sequences validate → transcode → upload → persist for one
// photo upload.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"photo-feed/internal/apperror"
	"photo-feed/internal/domain/media"
	"photo-feed/internal/domain/photos"
	"photo-feed/internal/infra/objectstore"
	"photo-feed/internal/logging"

	"github.com/rs/zerolog"
)

type Transcoder interface {
	Validate(mimeType string, size int64) error
	Transcode(ctx context.Context, data []byte, mimeType string) (*media.Image, error)
}

type PhotoWriter interface {
	Create(ctx context.Context, p *photos.Photo) error
}

// Upload is one received file plus its optional metadata.
type Upload struct {
	Filename string
	MIMEType string
	// Size is the original upload size; zero means len(Data).
	Size        int64
	Data        []byte
	Title       *string
	Description *string
}

type Dependencies struct {
	Transcoder Transcoder
	Store      objectstore.Store
	Photos     PhotoWriter
	Folder     string
	Metrics    *Metrics
}

type Orchestrator struct {
	transcoder Transcoder
	store      objectstore.Store
	photos     PhotoWriter
	folder     string
	metrics    *Metrics
	log        zerolog.Logger
}

func New(deps Dependencies) (*Orchestrator, error) {
	if deps.Transcoder == nil || deps.Store == nil || deps.Photos == nil {
		return nil, errors.New("ingest: transcoder, store and photo writer are required")
	}
	folder := deps.Folder
	if folder == "" {
		folder = "photos"
	}
	return &Orchestrator{
		transcoder: deps.Transcoder,
		store:      deps.Store,
		photos:     deps.Photos,
		folder:     folder,
		metrics:    deps.Metrics,
		log:        logging.Component("ingest"),
	}, nil
}

// run tracks one upload through the state machine.
type run struct {
	o     *Orchestrator
	state State
	log   zerolog.Logger
}

func (r *run) step(ctx context.Context, stage Stage, fn func(context.Context) error) error {
	flow := stageFlow[stage]
	if r.state != flow.from {
		panic(fmt.Sprintf("ingest: stage %s entered from state %s", stage, r.state))
	}

	start := time.Now()
	err := ctx.Err()
	if err == nil {
		err = fn(ctx)
	}
	if err != nil {
		r.state = failureState(flow.from)
		r.o.metrics.observeStage(stage, "error", time.Since(start))
		r.o.metrics.incFailure(stage, string(apperror.KindOf(err)))
		r.log.Warn().Err(err).Str("stage", string(stage)).Str("state", string(r.state)).
			Str("kind", string(apperror.KindOf(err))).Msg("upload stopped")
		return &StageError{Stage: stage, State: r.state, Err: err}
	}

	r.state = flow.to
	r.o.metrics.observeStage(stage, "ok", time.Since(start))
	return nil
}

// Ingest runs the pipeline to completion or to the first failing stage. The
// photo row is written only after the upload succeeded, in a single insert,
// so a failure at any stage leaves no record behind.
func (o *Orchestrator) Ingest(ctx context.Context, up Upload) (*photos.Photo, error) {
	o.metrics.begin()
	defer o.metrics.end()

	size := up.Size
	if size == 0 {
		size = int64(len(up.Data))
	}
	r := &run{o: o, state: StateReceived, log: o.log.With().Str("filename", up.Filename).Int64("size", size).Logger()}

	err := r.step(ctx, StageValidate, func(context.Context) error {
		return o.transcoder.Validate(up.MIMEType, size)
	})
	if err != nil {
		return nil, err
	}

	var img *media.Image
	err = r.step(ctx, StageTranscode, func(ctx context.Context) error {
		var err error
		img, err = o.transcoder.Transcode(ctx, up.Data, up.MIMEType)
		if err != nil && apperror.KindOf(err) == apperror.KindInternal && ctx.Err() == nil {
			err = apperror.Wrap(apperror.KindProcessing, "Failed to process image", err)
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	var obj *objectstore.Object
	err = r.step(ctx, StageUpload, func(ctx context.Context) error {
		var err error
		obj, err = o.store.Put(ctx, o.folder, img)
		if err != nil && ctx.Err() == nil && !apperror.Is(err, apperror.KindStorageUnavailable) {
			err = apperror.Wrap(apperror.KindStorageUnavailable, "Failed to upload image", err)
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	photo := &photos.Photo{
		Title:        resolveTitle(up.Title, up.Filename),
		Description:  trimmedOrNil(up.Description),
		ImageURL:     obj.URL,
		ThumbnailURL: obj.ThumbnailURL,
		ObjectKey:    obj.Key,
		FileSize:     obj.Size,
		MIMEType:     img.MIMEType,
		Width:        &obj.Width,
		Height:       &obj.Height,
	}
	err = r.step(ctx, StagePersist, func(ctx context.Context) error {
		if err := o.photos.Create(ctx, photo); err != nil {
			if !apperror.Is(err, apperror.KindPersistence) {
				err = apperror.Wrap(apperror.KindPersistence, "Failed to save photo", err)
			}
			return err
		}
		return nil
	})
	if err != nil {
		r.log.Error().Str("object_key", obj.Key).Str("thumbnail_key", obj.ThumbnailKey).
			Msg("uploaded objects orphaned after persist failure")
		return nil, err
	}

	r.log.Info().Str("photo_id", photo.ID).Int("width", obj.Width).Int("height", obj.Height).Msg("photo ingested")
	return photo, nil
}

// DefaultTitle is the filename without directories or its final extension.
func DefaultTitle(filename string) string {
	base := filename
	if i := strings.LastIndexAny(base, `/\`); i >= 0 {
		base = base[i+1:]
	}
	return strings.TrimSpace(strings.TrimSuffix(base, path.Ext(base)))
}

func resolveTitle(explicit *string, filename string) *string {
	if t := trimmedOrNil(explicit); t != nil {
		return t
	}
	if t := DefaultTitle(filename); t != "" {
		return &t
	}
	return nil
}

func trimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	if t == "" {
		return nil
	}
	return &t
}
