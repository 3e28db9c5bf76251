// Package cleanup removes expired stories and the media objects they reference.
package cleanup

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/serroba/ollo/internal/analytics"
	"github.com/serroba/ollo/internal/blob"
	"github.com/serroba/ollo/internal/messaging"
	"github.com/serroba/ollo/internal/story"
	"go.uber.org/zap"
)

var (
	ErrQuery = errors.New("cleanup: query expired stories")
	ErrBatch = errors.New("cleanup: batch delete stories")
)

// Records is the subset of story.Repository the job needs. It only ever deletes.
type Records interface {
	FindExpired(ctx context.Context, now time.Time) ([]*story.Story, error)
	DeleteBatch(ctx context.Context, ids []string) error
}

// Report describes one run.
type Report struct {
	RunID        string
	Deleted      []string
	BlobsDeleted int
	BlobFailures int
	StartedAt    time.Time
	FinishedAt   time.Time
}

// Job deletes expired stories in one batch, then their blobs one by one.
type Job struct {
	records Records
	blobs   blob.Store
	publish messaging.Publish[analytics.StoriesPurgedEvent]
	now     func() time.Time
	logger  *zap.Logger
}

// Option configures a Job.
type Option func(*Job)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(j *Job) {
		j.now = now
	}
}

// WithLogger sets the job logger.
func WithLogger(logger *zap.Logger) Option {
	return func(j *Job) {
		j.logger = logger
	}
}

// WithPublisher publishes a StoriesPurgedEvent after every run that deleted stories.
func WithPublisher(publish messaging.Publish[analytics.StoriesPurgedEvent]) Option {
	return func(j *Job) {
		j.publish = publish
	}
}

// NewJob creates a cleanup job.
func NewJob(records Records, blobs blob.Store, opts ...Option) *Job {
	j := &Job{
		records: records,
		blobs:   blobs,
		publish: messaging.Discard[analytics.StoriesPurgedEvent](),
		now:     time.Now,
		logger:  zap.NewNop(),
	}

	for _, opt := range opts {
		opt(j)
	}

	return j
}

// Run performs one cleanup pass. Only the query and the batch delete can fail
// the run; blob failures are logged and counted in the report.
func (j *Job) Run(ctx context.Context) (*Report, error) {
	report := &Report{
		RunID:     uuid.NewString(),
		StartedAt: j.now(),
	}

	expired, err := j.records.FindExpired(ctx, report.StartedAt)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrQuery, err)
	}

	if len(expired) == 0 {
		report.FinishedAt = j.now()
		j.logger.Info("no expired stories", zap.String("run_id", report.RunID))

		return report, nil
	}

	ids := make([]string, len(expired))
	for i, s := range expired {
		ids[i] = s.ID
	}

	if err := j.records.DeleteBatch(ctx, ids); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBatch, err)
	}

	report.Deleted = ids

	for _, s := range expired {
		if s.MediaRef == "" {
			continue
		}

		if err := j.deleteBlob(ctx, s.MediaRef); err != nil {
			report.BlobFailures++

			j.logger.Warn("failed to delete story media",
				zap.String("run_id", report.RunID),
				zap.String("story_id", s.ID),
				zap.String("media_ref", s.MediaRef),
				zap.Error(err),
			)

			continue
		}

		report.BlobsDeleted++
	}

	report.FinishedAt = j.now()

	j.logger.Info("expired stories deleted",
		zap.String("run_id", report.RunID),
		zap.Int("stories", len(report.Deleted)),
		zap.Int("blobs_deleted", report.BlobsDeleted),
		zap.Int("blob_failures", report.BlobFailures),
	)

	if err := j.publish(ctx, &analytics.StoriesPurgedEvent{
		RunID:        report.RunID,
		StoryIDs:     report.Deleted,
		BlobsDeleted: report.BlobsDeleted,
		BlobFailures: report.BlobFailures,
		StartedAt:    report.StartedAt,
		FinishedAt:   report.FinishedAt,
	}); err != nil {
		j.logger.Error("failed to publish stories purged event",
			zap.String("run_id", report.RunID),
			zap.Error(err),
		)
	}

	return report, nil
}

// deleteBlob treats an already-missing object as deleted.
func (j *Job) deleteBlob(ctx context.Context, ref string) error {
	path, err := blob.ObjectPath(ref)
	if err != nil {
		return err
	}

	if err := j.blobs.Delete(ctx, path); err != nil && !errors.Is(err, blob.ErrNotFound) {
		return err
	}

	return nil
}
