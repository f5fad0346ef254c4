package cleaning

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"

	"pricing-pipeline/internal/artifact"
	"pricing-pipeline/pkg/models"
)

// JobType identifies this step in run records and artifact metadata.
const JobType = "basic_cleaning"

const instrumentationName = "pricing-pipeline/internal/cleaning"

var (
	tracer = otel.Tracer(instrumentationName)
	meter  = otel.Meter(instrumentationName)
)

// Config is the configuration of one run of the step.
type Config struct {
	InputArtifact     string
	OutputArtifact    string
	OutputType        string
	OutputDescription string
	MinPrice          float64
	MaxPrice          float64
}

// Bounds returns the price range of the run.
func (c Config) Bounds() Bounds {
	return Bounds{Min: c.MinPrice, Max: c.MaxPrice}
}

// Validate checks the string arguments. The bounds are not checked against
// each other: MinPrice > MaxPrice yields an empty dataset.
func (c Config) Validate() error {
	var errs []error
	if _, err := artifact.ParseRef(c.InputArtifact); err != nil {
		errs = append(errs, fmt.Errorf("input_artifact: %w", err))
	}
	if err := artifact.ValidateName(c.OutputArtifact); err != nil {
		errs = append(errs, fmt.Errorf("output_artifact: %w", err))
	}
	if c.OutputType == "" {
		errs = append(errs, errors.New("output_type is required"))
	}
	if c.OutputDescription == "" {
		errs = append(errs, errors.New("output_description is required"))
	}
	return errors.Join(errs...)
}

// Run records one execution of the step.
type Run struct {
	ID        string
	JobType   string
	Config    Config
	StartedAt time.Time
}

// NewRun starts a run record for cfg.
func NewRun(cfg Config) *Run {
	return &Run{
		ID:        uuid.New().String(),
		JobType:   JobType,
		Config:    cfg,
		StartedAt: time.Now().UTC(),
	}
}

// Metadata is the run configuration attached to the output artifact.
func (r *Run) Metadata() map[string]string {
	return map[string]string{
		"run_id":     r.ID,
		"job_type":   r.JobType,
		"started_at": r.StartedAt.Format(time.RFC3339),
		"min_price":  strconv.FormatFloat(r.Config.MinPrice, 'g', -1, 64),
		"max_price":  strconv.FormatFloat(r.Config.MaxPrice, 'g', -1, 64),
	}
}

// Stats summarizes what Clean did.
type Stats struct {
	RowsIn    int
	RowsOut   int
	NullDates int
}

// Clean drops rows outside b and normalizes last_review. The input table is
// not modified.
func Clean(t *Table, b Bounds) (*Table, Stats, error) {
	stats := Stats{RowsIn: t.Len()}

	// both columns are required even when filtering leaves no rows
	if _, err := t.Column(LastReviewColumn); err != nil {
		return nil, stats, err
	}
	out, err := FilterPrice(t, b)
	if err != nil {
		return nil, stats, err
	}
	stats.NullDates, err = NormalizeDates(out, LastReviewColumn)
	if err != nil {
		return nil, stats, err
	}
	stats.RowsOut = out.Len()
	return out, stats, nil
}

// Logger defines the logging interface compatible with the application logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
}

// Job runs the step against an artifact store.
type Job struct {
	store  artifact.Store
	logger Logger

	rowsIn    metric.Int64Counter
	rowsOut   metric.Int64Counter
	nullDates metric.Int64Counter
}

// NewJob creates a Job.
func NewJob(store artifact.Store, logger Logger) (*Job, error) {
	rowsIn, err := meter.Int64Counter("cleaning.rows_in", metric.WithDescription("Rows read from the input artifact"))
	if err != nil {
		return nil, err
	}
	rowsOut, err := meter.Int64Counter("cleaning.rows_out", metric.WithDescription("Rows written to the output artifact"))
	if err != nil {
		return nil, err
	}
	nullDates, err := meter.Int64Counter("cleaning.null_dates", metric.WithDescription("last_review values that could not be parsed"))
	if err != nil {
		return nil, err
	}
	return &Job{
		store:     store,
		logger:    logger,
		rowsIn:    rowsIn,
		rowsOut:   rowsOut,
		nullDates: nullDates,
	}, nil
}

// Run downloads cfg.InputArtifact, cleans it and publishes the result as
// cfg.OutputArtifact. It returns once the store reports the new version as
// committed. Nothing is retried.
func (j *Job) Run(ctx context.Context, cfg Config) (_ *models.ArtifactVersion, err error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	run := NewRun(cfg)

	ctx, span := tracer.Start(ctx, "cleaning.run")
	span.SetAttributes(
		attribute.String("run.id", run.ID),
		attribute.String("artifact.input", cfg.InputArtifact),
		attribute.String("artifact.output", cfg.OutputArtifact),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	inputRef, err := artifact.ParseRef(cfg.InputArtifact)
	if err != nil {
		return nil, err
	}

	j.logger.Info("Getting raw data from the artifact store", "artifact", inputRef.String(), "run_id", run.ID)
	localPath, err := j.store.Resolve(ctx, inputRef)
	if err != nil {
		return nil, err
	}

	table, err := ReadCSVFile(localPath)
	if err != nil {
		return nil, err
	}

	j.logger.Info("Removing outliers", "min_price", cfg.MinPrice, "max_price", cfg.MaxPrice)
	cleaned, stats, err := Clean(table, cfg.Bounds())
	if err != nil {
		return nil, err
	}
	j.logger.Info("Cleaned dataset",
		"rows_in", stats.RowsIn,
		"rows_out", stats.RowsOut,
		"null_last_review", stats.NullDates,
	)

	attrs := metric.WithAttributes(attribute.String("artifact.output", cfg.OutputArtifact))
	j.rowsIn.Add(ctx, int64(stats.RowsIn), attrs)
	j.rowsOut.Add(ctx, int64(stats.RowsOut), attrs)
	j.nullDates.Add(ctx, int64(stats.NullDates), attrs)

	tempDir, err := os.MkdirTemp("", "basic-cleaning-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tempDir)

	exportPath := filepath.Join(tempDir, cfg.OutputArtifact)
	if err := WriteCSVFile(exportPath, cleaned); err != nil {
		return nil, fmt.Errorf("failed to export %s: %w", cfg.OutputArtifact, err)
	}

	out := artifact.New(cfg.OutputArtifact, cfg.OutputType, cfg.OutputDescription)
	out.AddFile(exportPath)
	out.Use(inputRef)
	for k, v := range run.Metadata() {
		out.Metadata[k] = v
	}
	out.Metadata["rows_in"] = strconv.Itoa(stats.RowsIn)
	out.Metadata["rows_out"] = strconv.Itoa(stats.RowsOut)

	j.logger.Info("Uploading cleaned dataset to the artifact store", "artifact", cfg.OutputArtifact)
	version, err := j.store.Publish(ctx, out)
	if err != nil {
		return nil, err
	}
	j.logger.Debug("Waiting for upload to commit", "ref", version.Ref())
	if err := j.store.Wait(ctx, version); err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.String("artifact.version", version.Ref()))
	j.logger.Info("Published cleaned dataset", "ref", version.Ref(), "digest", version.Digest)
	return version, nil
}
