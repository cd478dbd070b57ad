package youtube

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"persona-stack/internal/models"

	"go.uber.org/zap"
	"google.golang.org/api/youtube/v3"
)

type FetchOptions struct {
	VideoID string
	// Limit caps the number of threads fetched. Zero means no limit.
	Limit int
	// PageToken resumes a previous fetch.
	PageToken string
}

type FetchResult struct {
	Items []*models.ContentItem
	// Cursor is the page token to resume from. Empty when the source is exhausted.
	Cursor string
	// Partial is set when a page failed and pagination stopped early.
	Partial bool
	Err     error
}

// Pager walks the comment threads of one video page by page.
type Pager struct {
	client  *Client
	videoID string
	limit   int
	cursor  string
	fetched int
	done    bool
}

func (c *Client) Comments(opts FetchOptions) *Pager {
	return &Pager{
		client:  c,
		videoID: opts.VideoID,
		limit:   opts.Limit,
		cursor:  opts.PageToken,
	}
}

func (p *Pager) Done() bool     { return p.done }
func (p *Pager) Cursor() string { return p.cursor }

// Next fetches the next page. On error the cursor still points at the
// failed page so a later call can resume.
func (p *Pager) Next(ctx context.Context) ([]*models.ContentItem, error) {
	if p.done {
		return nil, nil
	}

	size := p.client.pageSize
	if p.limit > 0 {
		remaining := p.limit - p.fetched
		if remaining <= 0 {
			p.done = true
			return nil, nil
		}
		if remaining < size {
			size = remaining
		}
	}

	if err := p.client.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	call := p.client.service.CommentThreads.List([]string{"snippet", "replies"}).
		VideoId(p.videoID).
		MaxResults(int64(size)).
		Order("time").
		TextFormat("plainText").
		Context(ctx)
	if p.cursor != "" {
		call = call.PageToken(p.cursor)
	}

	resp, err := call.Do()
	if err != nil {
		return nil, fmt.Errorf("failed to list comment threads for %s: %w", p.videoID, err)
	}

	items := make([]*models.ContentItem, 0, len(resp.Items))
	for _, thread := range resp.Items {
		if item := threadToItem(thread); item != nil {
			items = append(items, item)
		}
	}
	p.fetched += len(resp.Items)
	p.cursor = resp.NextPageToken
	if p.cursor == "" || (p.limit > 0 && p.fetched >= p.limit) {
		p.done = true
	}
	return items, nil
}

// FetchComments drains the pager. A failed page ends pagination and the items
// gathered so far are returned with Partial set.
func (c *Client) FetchComments(ctx context.Context, opts FetchOptions) (*FetchResult, error) {
	if opts.VideoID == "" {
		return nil, fmt.Errorf("video ID is required")
	}

	pager := c.Comments(opts)
	result := &FetchResult{}

	for !pager.Done() {
		items, err := pager.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			c.logger.Warn("Comment page failed, keeping partial results",
				zap.String("video_id", opts.VideoID),
				zap.Int("fetched", len(result.Items)),
				zap.Error(err))
			result.Partial = true
			result.Err = err
			break
		}
		result.Items = append(result.Items, items...)
	}

	result.Cursor = pager.Cursor()
	if pager.Done() {
		result.Cursor = ""
	}

	c.logger.Info("Fetched comments",
		zap.String("video_id", opts.VideoID),
		zap.Int("count", len(result.Items)),
		zap.Bool("partial", result.Partial))
	return result, nil
}

type reply struct {
	ID          string `json:"id"`
	Author      string `json:"author"`
	Text        string `json:"text"`
	LikeCount   int64  `json:"like_count"`
	PublishedAt string `json:"published_at"`
}

func threadToItem(thread *youtube.CommentThread) *models.ContentItem {
	if thread.Snippet == nil || thread.Snippet.TopLevelComment == nil || thread.Snippet.TopLevelComment.Snippet == nil {
		return nil
	}
	top := thread.Snippet.TopLevelComment.Snippet

	item := &models.ContentItem{
		ExternalID: thread.Id,
		Author:     top.AuthorDisplayName,
		RawText:    top.TextOriginal,
		LikeCount:  top.LikeCount,
		ReplyCount: thread.Snippet.TotalReplyCount,
	}
	if item.RawText == "" {
		item.RawText = top.TextDisplay
	}
	if top.AuthorChannelId != nil {
		item.AuthorChannelID = top.AuthorChannelId.Value
	}
	if publishedAt, err := time.Parse(time.RFC3339, top.PublishedAt); err == nil {
		item.PublishedAt = publishedAt
	}

	if thread.Replies != nil && len(thread.Replies.Comments) > 0 {
		replies := make([]reply, 0, len(thread.Replies.Comments))
		for _, c := range thread.Replies.Comments {
			if c.Snippet == nil {
				continue
			}
			replies = append(replies, reply{
				ID:          c.Id,
				Author:      c.Snippet.AuthorDisplayName,
				Text:        c.Snippet.TextOriginal,
				LikeCount:   c.Snippet.LikeCount,
				PublishedAt: c.Snippet.PublishedAt,
			})
		}
		if data, err := json.Marshal(replies); err == nil {
			item.Replies = data
		}
	}

	return item
}
