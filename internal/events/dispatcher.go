package events

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"course-localization-service/internal/models"
	"course-localization-service/internal/schema"
	"course-localization-service/internal/service/pipeline"
)

// UploadHandler runs the batch pipeline for one uploaded object.
type UploadHandler interface {
	HandleUpload(ctx context.Context, objectPath string) (*pipeline.Report, error)
}

// ErrBusy is returned by TryDispatchEvent when every run slot is taken.
var ErrBusy = errors.New("all pipeline run slots are busy")

// Dispatcher turns trigger payloads into pipeline runs. Runs are fire and
// forget: the trigger is accepted once the payload is valid and a run slot
// is free, and run failures are only logged.
type Dispatcher struct {
	handler   UploadHandler
	validator *schema.Validator
	slots     chan struct{}
	wg        sync.WaitGroup
}

// NewDispatcher creates a dispatcher running at most maxRuns pipeline runs
// at once; values below 1 mean 1. validator may be nil.
func NewDispatcher(handler UploadHandler, validator *schema.Validator, maxRuns int) *Dispatcher {
	return &Dispatcher{
		handler:   handler,
		validator: validator,
		slots:     make(chan struct{}, max(maxRuns, 1)),
	}
}

// Dispatch parses payload as an upload event and starts a pipeline run in
// the background, blocking while all run slots are taken. The run is
// detached from ctx so a consumer shutting down does not abort a run
// halfway through.
func (d *Dispatcher) Dispatch(ctx context.Context, source string, payload []byte) error {
	ev, err := models.ParseUploadEvent(payload)
	if err != nil {
		return fmt.Errorf("%w: %v", schema.ErrInvalid, err)
	}
	return d.DispatchEvent(ctx, source, ev)
}

// DispatchEvent starts a pipeline run for an already decoded event. It
// waits for a free run slot and returns ctx.Err() if ctx ends first.
func (d *Dispatcher) DispatchEvent(ctx context.Context, source string, ev models.UploadEvent) error {
	if err := d.validate(ev); err != nil {
		return err
	}
	select {
	case d.slots <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	d.start(ctx, source, ev)
	return nil
}

// TryDispatchEvent is DispatchEvent without waiting: it returns ErrBusy
// when no run slot is free.
func (d *Dispatcher) TryDispatchEvent(ctx context.Context, source string, ev models.UploadEvent) error {
	if err := d.validate(ev); err != nil {
		return err
	}
	select {
	case d.slots <- struct{}{}:
	default:
		return ErrBusy
	}
	d.start(ctx, source, ev)
	return nil
}

func (d *Dispatcher) validate(ev models.UploadEvent) error {
	if d.validator == nil {
		return nil
	}
	return d.validator.Validate(ev)
}

// start runs ev in a slot the caller already holds.
func (d *Dispatcher) start(ctx context.Context, source string, ev models.UploadEvent) {
	runCtx := context.WithoutCancel(ctx)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() { <-d.slots }()
		d.run(runCtx, source, ev)
	}()
}

func (d *Dispatcher) run(ctx context.Context, source string, ev models.UploadEvent) {
	logger := log.With().
		Str("source", source).
		Str("bucket", ev.Bucket).
		Str("object", ev.Name).
		Logger()

	report, err := d.handler.HandleUpload(ctx, ev.Name)
	switch {
	case err == nil && report != nil && report.Skipped:
		logger.Debug().Err(report.SkipReason).Msg("Upload ignored")
	case err != nil && report == nil:
		logger.Error().Err(err).Msg("Localization run failed")
	case err != nil:
		logger.Warn().
			Err(err).
			Str("courseId", report.CourseID).
			Str("status", report.Status()).
			Msg("Localization run completed with failures")
	default:
		logger.Info().
			Str("courseId", report.CourseID).
			Str("status", report.Status()).
			Msg("Localization run completed")
	}
}

// Wait blocks until all dispatched runs have finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
