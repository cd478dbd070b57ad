package ingest

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"persona-stack/agents/persona-research/sheets"
	"persona-stack/agents/persona-research/youtube"
	"persona-stack/internal/models"
	"persona-stack/shared/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeVideos struct {
	result *youtube.FetchResult
	opts   youtube.FetchOptions
}

func (f *fakeVideos) GetVideo(ctx context.Context, videoID string) (*models.Video, error) {
	return &models.Video{VideoID: videoID, Title: "Launch video"}, nil
}

func (f *fakeVideos) FetchComments(ctx context.Context, opts youtube.FetchOptions) (*youtube.FetchResult, error) {
	f.opts = opts
	// Hand out fresh copies so repeated imports behave like new fetches.
	items := make([]*models.ContentItem, len(f.result.Items))
	for i, it := range f.result.Items {
		c := *it
		items[i] = &c
	}
	r := *f.result
	r.Items = items
	return &r, nil
}

type fakeSurveys struct {
	responses *sheets.Responses
}

func (f *fakeSurveys) SpreadsheetInfo(ctx context.Context, id string) (*sheets.SpreadsheetInfo, error) {
	return &sheets.SpreadsheetInfo{ID: id, Title: "Course survey"}, nil
}

func (f *fakeSurveys) ReadResponses(ctx context.Context, id, rng string) (*sheets.Responses, error) {
	return f.responses, nil
}

func newStore(t *testing.T) *storage.Store {
	t.Helper()
	s, err := storage.OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func comments(ids ...string) []*models.ContentItem {
	var items []*models.ContentItem
	for _, id := range ids {
		items = append(items, &models.ContentItem{ExternalID: id, Author: "Ana", RawText: "comment " + id + " with enough text to analyze"})
	}
	return items
}

func TestImportVideoDedup(t *testing.T) {
	store := newStore(t)
	videos := &fakeVideos{result: &youtube.FetchResult{Items: comments("c1", "c2", "c3")}}
	ing := New(store, videos, nil, zap.NewNop())
	ctx := context.Background()

	video, report, err := ing.ImportVideo(ctx, "https://youtu.be/dQw4w9WgXcQ", VideoOptions{Limit: 50})
	require.NoError(t, err)
	assert.Equal(t, "dQw4w9WgXcQ", video.VideoID)
	assert.Equal(t, 50, videos.opts.Limit)
	assert.Equal(t, 3, report.Imported)
	assert.Equal(t, 0, report.Skipped)

	_, report, err = ing.ImportVideo(ctx, "dQw4w9WgXcQ", VideoOptions{})
	require.NoError(t, err)
	assert.Equal(t, 0, report.Imported)
	assert.Equal(t, 3, report.Skipped)

	count, err := store.CountItems(ctx, video.Ref())
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	_, report, err = ing.ImportVideo(ctx, "dQw4w9WgXcQ", VideoOptions{Force: true})
	require.NoError(t, err)
	assert.Equal(t, 3, report.Imported)

	count, err = store.CountItems(ctx, video.Ref())
	require.NoError(t, err)
	assert.Equal(t, 3, count, "force replaces rather than duplicates")
}

func TestImportVideoPartialFetch(t *testing.T) {
	store := newStore(t)
	pageErr := errors.New("quota exceeded")
	videos := &fakeVideos{result: &youtube.FetchResult{Items: comments("c1"), Partial: true, Err: pageErr, Cursor: "p2"}}
	ing := New(store, videos, nil, zap.NewNop())

	_, report, err := ing.ImportVideo(context.Background(), "dQw4w9WgXcQ", VideoOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Imported)
	assert.True(t, report.Partial)
	assert.Equal(t, "p2", report.Cursor)
	assert.ErrorIs(t, report.FetchErr, pageErr)
}

func TestImportVideoErrors(t *testing.T) {
	store := newStore(t)

	_, _, err := New(store, nil, nil, zap.NewNop()).ImportVideo(context.Background(), "dQw4w9WgXcQ", VideoOptions{})
	assert.Error(t, err, "missing fetcher")

	ing := New(store, &fakeVideos{result: &youtube.FetchResult{}}, nil, zap.NewNop())
	_, _, err = ing.ImportVideo(context.Background(), "not a url", VideoOptions{})
	assert.Error(t, err)
}

func TestImportSurvey(t *testing.T) {
	store := newStore(t)
	product := &models.Product{Name: "Focus Course"}
	require.NoError(t, store.CreateProduct(context.Background(), product))

	surveys := &fakeSurveys{responses: &sheets.Responses{Items: []*models.ContentItem{
		{ExternalID: "r1", CombinedText: "Q: a long enough answer here"},
		{ExternalID: "r2", CombinedText: "Q: another long enough answer"},
	}}}
	ing := New(store, nil, surveys, zap.NewNop())

	survey, report, err := ing.ImportSurvey(context.Background(),
		"https://docs.google.com/spreadsheets/d/sheet-xyz/edit",
		SurveyOptions{ProductID: &product.ID})
	require.NoError(t, err)
	assert.Equal(t, "Course survey", survey.Title)
	assert.Equal(t, 2, report.Imported)

	stored, err := store.GetSurvey(context.Background(), survey.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stored.ResponsesCount)
	require.NotNil(t, stored.ProductID)
	assert.Equal(t, product.ID, *stored.ProductID)
}

func TestIngestAllStopsOnCancel(t *testing.T) {
	store := newStore(t)
	ing := New(store, nil, nil, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ing.IngestAll(ctx, models.SourceRef{Type: models.SourceYouTube, ID: 1}, comments("c1"), false)
	assert.ErrorIs(t, err, context.Canceled)
}
