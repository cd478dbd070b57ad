// Package ingest moves fetched comments and survey responses into the store.
package ingest

import (
	"context"
	"fmt"

	"persona-stack/agents/persona-research/sheets"
	"persona-stack/agents/persona-research/youtube"
	"persona-stack/internal/models"

	"go.uber.org/zap"
)

type Store interface {
	IngestItem(ctx context.Context, item *models.ContentItem, force bool) (models.IngestOutcome, error)
	UpsertVideo(ctx context.Context, v *models.Video) error
	UpsertSurvey(ctx context.Context, sv *models.Survey) error
	CountItems(ctx context.Context, ref models.SourceRef) (int, error)
}

type VideoFetcher interface {
	GetVideo(ctx context.Context, videoID string) (*models.Video, error)
	FetchComments(ctx context.Context, opts youtube.FetchOptions) (*youtube.FetchResult, error)
}

type SurveyReader interface {
	SpreadsheetInfo(ctx context.Context, spreadsheetID string) (*sheets.SpreadsheetInfo, error)
	ReadResponses(ctx context.Context, spreadsheetID, rng string) (*sheets.Responses, error)
}

// Report summarizes one import. Fetch problems that left a partial result are
// carried in FetchErr rather than failing the import.
type Report struct {
	Source   models.SourceRef
	Fetched  int
	Imported int
	Skipped  int
	Partial  bool
	Cursor   string
	FetchErr error
}

type Ingester struct {
	store   Store
	videos  VideoFetcher
	surveys SurveyReader
	logger  *zap.Logger
}

// New builds an Ingester. Either fetcher may be nil when its source type is
// not configured.
func New(store Store, videos VideoFetcher, surveys SurveyReader, logger *zap.Logger) *Ingester {
	return &Ingester{
		store:   store,
		videos:  videos,
		surveys: surveys,
		logger:  logger.Named("ingest"),
	}
}

// Ingest stores one item, skipping it when the external ID already exists
// and force is false.
func (i *Ingester) Ingest(ctx context.Context, item *models.ContentItem, force bool) (models.IngestOutcome, error) {
	return i.store.IngestItem(ctx, item, force)
}

// IngestAll stores every item under ref. An item that fails to store aborts
// the run, since it points at a storage problem rather than bad content.
func (i *Ingester) IngestAll(ctx context.Context, ref models.SourceRef, items []*models.ContentItem, force bool) (*Report, error) {
	report := &Report{Source: ref, Fetched: len(items)}
	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		item.Source = ref
		outcome, err := i.Ingest(ctx, item, force)
		if err != nil {
			return report, fmt.Errorf("ingest %s: %w", item.ExternalID, err)
		}
		switch outcome {
		case models.Imported:
			report.Imported++
		case models.Skipped:
			report.Skipped++
		}
	}
	return report, nil
}

type VideoOptions struct {
	Limit     int
	Force     bool
	ProductID *int64
	PageToken string
}

// ImportVideo fetches a video's metadata and comments and ingests them.
func (i *Ingester) ImportVideo(ctx context.Context, urlOrID string, opts VideoOptions) (*models.Video, *Report, error) {
	if i.videos == nil {
		return nil, nil, fmt.Errorf("youtube fetcher is not configured")
	}
	videoID, err := youtube.ExtractVideoID(urlOrID)
	if err != nil {
		return nil, nil, err
	}

	video, err := i.videos.GetVideo(ctx, videoID)
	if err != nil {
		return nil, nil, err
	}
	video.ProductID = opts.ProductID
	if err := i.store.UpsertVideo(ctx, video); err != nil {
		return nil, nil, err
	}

	result, err := i.videos.FetchComments(ctx, youtube.FetchOptions{
		VideoID:   videoID,
		Limit:     opts.Limit,
		PageToken: opts.PageToken,
	})
	if err != nil {
		return video, nil, err
	}

	report, err := i.IngestAll(ctx, video.Ref(), result.Items, opts.Force)
	if err != nil {
		return video, report, err
	}
	report.Partial = result.Partial
	report.Cursor = result.Cursor
	report.FetchErr = result.Err

	i.logger.Info("Imported video comments",
		zap.String("video_id", videoID),
		zap.Int64("source_id", video.ID),
		zap.Int("imported", report.Imported),
		zap.Int("skipped", report.Skipped),
		zap.Bool("partial", report.Partial))
	return video, report, nil
}

type SurveyOptions struct {
	Title       string
	Description string
	FormURL     string
	Range       string
	Force       bool
	ProductID   *int64
}

// ImportSurvey reads a form's response sheet, ingests every row and
// refreshes the survey's response count.
func (i *Ingester) ImportSurvey(ctx context.Context, sheetURL string, opts SurveyOptions) (*models.Survey, *Report, error) {
	if i.surveys == nil {
		return nil, nil, fmt.Errorf("sheets reader is not configured")
	}
	spreadsheetID, err := sheets.ExtractSpreadsheetID(sheetURL)
	if err != nil {
		return nil, nil, err
	}

	title := opts.Title
	if title == "" {
		info, err := i.surveys.SpreadsheetInfo(ctx, spreadsheetID)
		if err != nil {
			return nil, nil, err
		}
		title = info.Title
	}

	responses, err := i.surveys.ReadResponses(ctx, spreadsheetID, opts.Range)
	if err != nil {
		return nil, nil, err
	}

	survey := &models.Survey{
		SpreadsheetID: spreadsheetID,
		Title:         title,
		Description:   opts.Description,
		FormURL:       opts.FormURL,
		ProductID:     opts.ProductID,
	}
	if err := i.store.UpsertSurvey(ctx, survey); err != nil {
		return nil, nil, err
	}

	report, err := i.IngestAll(ctx, survey.Ref(), responses.Items, opts.Force)
	if err != nil {
		return survey, report, err
	}

	count, err := i.store.CountItems(ctx, survey.Ref())
	if err != nil {
		return survey, report, err
	}
	survey.ResponsesCount = count
	if err := i.store.UpsertSurvey(ctx, survey); err != nil {
		return survey, report, err
	}

	i.logger.Info("Imported survey responses",
		zap.String("spreadsheet_id", spreadsheetID),
		zap.Int64("source_id", survey.ID),
		zap.Int("imported", report.Imported),
		zap.Int("skipped", report.Skipped))
	return survey, report, nil
}
