package youtube

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"persona-stack/internal/models"
	"persona-stack/shared/config"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"golang.org/x/time/rate"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

// MaxPageSize is the largest page the commentThreads endpoint accepts.
const MaxPageSize = 100

var ErrVideoNotFound = errors.New("video not found")

type Client struct {
	service     *youtube.Service
	config      *config.YouTubeConfig
	oauthConfig *oauth2.Config
	token       *oauth2.Token
	limiter     *rate.Limiter
	pageSize    int
	logger      *zap.Logger
}

// NewClient authenticates with the API key when one is configured and falls
// back to the OAuth device flow otherwise.
func NewClient(ctx context.Context, cfg *config.YouTubeConfig, pipeline config.PipelineConfig, logger *zap.Logger) (*Client, error) {
	logger = logger.Named("youtube")

	if cfg.APIKey != "" {
		service, err := youtube.NewService(ctx, option.WithAPIKey(cfg.APIKey))
		if err != nil {
			return nil, fmt.Errorf("failed to create YouTube service: %w", err)
		}
		c := NewClientWithService(service, pipeline.PageSize, pipeline.PageDelay, logger)
		c.config = cfg
		return c, nil
	}

	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, errors.New("youtube credentials missing: set YOUTUBE_API_KEY or GOOGLE_CLIENT_ID/GOOGLE_CLIENT_SECRET")
	}

	// Create OAuth2 config for the device authorization flow.
	oauthConfig := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Scopes:       []string{"https://www.googleapis.com/auth/youtube.force-ssl"},
		Endpoint:     google.Endpoint,
	}

	token, err := getToken(ctx, oauthConfig, cfg.TokenFile, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to get OAuth token: %w", err)
	}

	// Create token source that auto-refreshes and saves token
	tokenSource := &tokenSaver{
		config:    oauthConfig,
		token:     token,
		tokenFile: cfg.TokenFile,
		logger:    logger,
	}

	httpClient := oauth2.NewClient(ctx, tokenSource)

	service, err := youtube.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("failed to create YouTube service: %w", err)
	}

	c := NewClientWithService(service, pipeline.PageSize, pipeline.PageDelay, logger)
	c.config = cfg
	c.oauthConfig = oauthConfig
	c.token = token
	return c, nil
}

// NewClientWithService wraps an already configured service.
func NewClientWithService(service *youtube.Service, pageSize int, pageDelay time.Duration, logger *zap.Logger) *Client {
	if pageSize <= 0 || pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	limit := rate.Inf
	if pageDelay > 0 {
		limit = rate.Every(pageDelay)
	}
	return &Client{
		service:  service,
		limiter:  rate.NewLimiter(limit, 1),
		pageSize: pageSize,
		logger:   logger,
	}
}

// tokenSaver wraps an oauth2.TokenSource to automatically save refreshed tokens.
type tokenSaver struct {
	config    *oauth2.Config
	token     *oauth2.Token
	tokenFile string
	logger    *zap.Logger
	mu        sync.Mutex
}

// Token implements oauth2.TokenSource, persisting any refreshed token.
func (ts *tokenSaver) Token() (*oauth2.Token, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	newToken, err := ts.config.TokenSource(context.Background(), ts.token).Token()
	if err != nil {
		return nil, err
	}

	if newToken.AccessToken != ts.token.AccessToken {
		ts.logger.Info("Token refreshed, saving to file", zap.String("file", ts.tokenFile))
		ts.token = newToken
		if err := saveToken(ts.tokenFile, newToken); err != nil {
			ts.logger.Warn("Failed to save refreshed token", zap.Error(err))
		}
	}

	return newToken, nil
}

// getToken loads a token from disk, keeping expired tokens that carry a
// refresh token, and only starts the device flow when nothing usable exists.
func getToken(ctx context.Context, config *oauth2.Config, tokenFile string, logger *zap.Logger) (*oauth2.Token, error) {
	tok, err := tokenFromFile(tokenFile)
	if err == nil {
		if tok.RefreshToken != "" {
			logger.Info("Loaded token from file", zap.Time("expires", tok.Expiry))
			return tok, nil
		}
		if tok.Valid() {
			return tok, nil
		}
	}

	logger.Info("Getting new token from web")
	tok, err = getTokenFromWeb(ctx, config, logger)
	if err != nil {
		return nil, err
	}

	if err := saveToken(tokenFile, tok); err != nil {
		logger.Warn("Failed to save token", zap.Error(err))
	}
	return tok, nil
}

func getTokenFromWeb(ctx context.Context, config *oauth2.Config, logger *zap.Logger) (*oauth2.Token, error) {
	tok, err := getTokenWithDeviceFlow(ctx, config)
	if err == nil {
		return tok, nil
	}

	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) && retrieveErr.Response != nil {
		logger.Error("Device authorization response failed",
			zap.String("status", retrieveErr.Response.Status),
			zap.String("body", strings.TrimSpace(string(retrieveErr.Body))))
	} else {
		logger.Error("Device authorization flow failed", zap.Error(err))
	}

	return nil, fmt.Errorf("device authorization failed: %w. Ensure your OAuth client is created as 'TVs and Limited Input devices' and that the YouTube Data API v3 is enabled", err)
}

func getTokenWithDeviceFlow(ctx context.Context, config *oauth2.Config) (*oauth2.Token, error) {
	resp, err := config.DeviceAuth(ctx, oauth2.AccessTypeOffline)
	if err != nil {
		return nil, fmt.Errorf("unable to start device authorization: %w", err)
	}

	fmt.Printf("\n%s\n", strings.Repeat("=", 80))
	fmt.Printf("YOUTUBE DEVICE AUTHORIZATION REQUIRED\n")
	fmt.Printf("%s\n", strings.Repeat("=", 80))
	fmt.Printf("1. Visit %s in your browser (any device works).\n", resp.VerificationURI)
	fmt.Printf("2. Enter this code when prompted: %s\n\n", resp.UserCode)
	if completeURL := strings.TrimSpace(resp.VerificationURIComplete); completeURL != "" {
		fmt.Printf("   Or open directly: %s\n\n", completeURL)
	}
	fmt.Printf("Waiting for authorization to complete... (Ctrl+C to cancel)\n")
	fmt.Printf("%s\n", strings.Repeat("-", 80))

	tok, err := config.DeviceAccessToken(ctx, resp, oauth2.AccessTypeOffline)
	if err != nil {
		return nil, fmt.Errorf("device authorization did not complete: %w", err)
	}

	fmt.Printf("\nAuthorization successful.\n%s\n\n", strings.Repeat("=", 80))
	return tok, nil
}

func tokenFromFile(file string) (*oauth2.Token, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	tok := &oauth2.Token{}
	err = json.NewDecoder(f).Decode(tok)
	return tok, err
}

func saveToken(path string, token *oauth2.Token) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("unable to create token directory: %w", err)
		}
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("unable to cache oauth token: %w", err)
	}
	defer f.Close()

	if err := json.NewEncoder(f).Encode(token); err != nil {
		return fmt.Errorf("failed to encode oauth token: %w", err)
	}
	return nil
}

// RefreshToken refreshes and persists the OAuth token when it is close to
// expiry. It is a no-op for API-key clients.
func (c *Client) RefreshToken(ctx context.Context) error {
	if c.oauthConfig == nil || c.token == nil {
		return nil
	}

	newToken, err := c.oauthConfig.TokenSource(ctx, c.token).Token()
	if err != nil {
		return fmt.Errorf("failed to refresh token: %w", err)
	}

	if newToken.AccessToken != c.token.AccessToken {
		c.logger.Info("Token refreshed, saving to file")
		c.token = newToken
		if err := saveToken(c.config.TokenFile, newToken); err != nil {
			return fmt.Errorf("failed to save refreshed token: %w", err)
		}
	} else {
		c.logger.Debug("Token still valid", zap.Time("expires", c.token.Expiry))
	}

	return nil
}

var durationPattern = regexp.MustCompile(`PT(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?`)

// parseDurationSeconds converts an ISO 8601 duration such as PT1M30S.
func parseDurationSeconds(duration string) int {
	matches := durationPattern.FindStringSubmatch(duration)
	if len(matches) == 0 {
		return 0
	}

	var total int
	for i, unit := range []int{3600, 60, 1} {
		if matches[i+1] == "" {
			continue
		}
		if n, err := strconv.Atoi(matches[i+1]); err == nil {
			total += n * unit
		}
	}
	return total
}

var videoIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?:youtube\.com/watch\?(?:.*&)?v=)([A-Za-z0-9_-]{11})`),
	regexp.MustCompile(`youtu\.be/([A-Za-z0-9_-]{11})`),
	regexp.MustCompile(`youtube\.com/(?:embed|v|shorts)/([A-Za-z0-9_-]{11})`),
}

var bareVideoID = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

// ExtractVideoID accepts watch, short, embed and v/ URLs or a bare video ID.
func ExtractVideoID(input string) (string, error) {
	input = strings.TrimSpace(input)
	for _, re := range videoIDPatterns {
		if m := re.FindStringSubmatch(input); m != nil {
			return m[1], nil
		}
	}
	if bareVideoID.MatchString(input) {
		return input, nil
	}
	return "", fmt.Errorf("invalid YouTube URL or video ID: %q", input)
}

// GetVideo returns metadata for one video.
func (c *Client) GetVideo(ctx context.Context, videoID string) (*models.Video, error) {
	resp, err := c.service.Videos.List([]string{"snippet", "contentDetails", "statistics"}).
		Id(videoID).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get video %s: %w", videoID, err)
	}
	if len(resp.Items) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrVideoNotFound, videoID)
	}

	item := resp.Items[0]
	video := &models.Video{
		VideoID: item.Id,
		URL:     fmt.Sprintf("https://www.youtube.com/watch?v=%s", item.Id),
	}
	if item.Snippet != nil {
		video.Title = item.Snippet.Title
		video.Description = item.Snippet.Description
		video.ChannelTitle = item.Snippet.ChannelTitle
		if publishedAt, err := time.Parse(time.RFC3339, item.Snippet.PublishedAt); err == nil {
			video.PublishedAt = publishedAt
		}
	}
	if item.ContentDetails != nil {
		video.Duration = item.ContentDetails.Duration
		video.DurationSeconds = parseDurationSeconds(item.ContentDetails.Duration)
	}
	if item.Statistics != nil {
		video.ViewCount = int64(item.Statistics.ViewCount)
		video.LikeCount = int64(item.Statistics.LikeCount)
		video.CommentCount = int64(item.Statistics.CommentCount)
	}
	return video, nil
}
