package youtube

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

func TestTokenSaver(t *testing.T) {
	tempDir := t.TempDir()
	tokenFile := filepath.Join(tempDir, "test_token.json")

	originalToken := &oauth2.Token{
		AccessToken:  "original-access-token",
		RefreshToken: "test-refresh-token",
		Expiry:       time.Now().Add(-time.Hour),
	}

	if err := saveToken(tokenFile, originalToken); err != nil {
		t.Fatalf("Failed to save original token: %v", err)
	}

	savedToken, err := tokenFromFile(tokenFile)
	if err != nil {
		t.Fatalf("Failed to load saved token: %v", err)
	}

	if savedToken.RefreshToken != originalToken.RefreshToken {
		t.Errorf("Refresh token mismatch: got %s, want %s", savedToken.RefreshToken, originalToken.RefreshToken)
	}

	info, err := os.Stat(tokenFile)
	if err != nil {
		t.Fatalf("Failed to stat token file: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("Token file has incorrect permissions: %v, want 0600", info.Mode().Perm())
	}
}

func TestGetToken(t *testing.T) {
	tempDir := t.TempDir()
	tokenFile := filepath.Join(tempDir, "test_token.json")

	// Device authorization is always rejected so no test reaches Google.
	deviceAuth := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid_client"}`))
	}))
	defer deviceAuth.Close()

	oauthConfig := &oauth2.Config{
		ClientID:     "test-client-id",
		ClientSecret: "test-client-secret",
		Endpoint: oauth2.Endpoint{
			AuthURL:       deviceAuth.URL + "/auth",
			TokenURL:      deviceAuth.URL + "/token",
			DeviceAuthURL: deviceAuth.URL + "/device/code",
		},
	}

	t.Run("LoadExistingValidToken", func(t *testing.T) {
		validToken := &oauth2.Token{
			AccessToken:  "valid-access-token",
			RefreshToken: "valid-refresh-token",
			Expiry:       time.Now().Add(time.Hour),
		}
		if err := saveToken(tokenFile, validToken); err != nil {
			t.Fatalf("Failed to save token: %v", err)
		}

		token, err := getToken(context.Background(), oauthConfig, tokenFile, zap.NewNop())
		if err != nil {
			t.Fatalf("Failed to get token: %v", err)
		}
		if token.AccessToken != validToken.AccessToken {
			t.Errorf("Access token mismatch: got %s, want %s", token.AccessToken, validToken.AccessToken)
		}
	})

	t.Run("LoadExpiredTokenWithRefresh", func(t *testing.T) {
		expiredToken := &oauth2.Token{
			AccessToken:  "expired-access-token",
			RefreshToken: "valid-refresh-token",
			Expiry:       time.Now().Add(-time.Hour),
		}
		if err := saveToken(tokenFile, expiredToken); err != nil {
			t.Fatalf("Failed to save token: %v", err)
		}

		token, err := getToken(context.Background(), oauthConfig, tokenFile, zap.NewNop())
		if err != nil {
			t.Fatalf("Failed to get token: %v", err)
		}
		if token.RefreshToken != expiredToken.RefreshToken {
			t.Errorf("Refresh token mismatch: got %s, want %s", token.RefreshToken, expiredToken.RefreshToken)
		}
	})

	t.Run("NoTokenFile", func(t *testing.T) {
		os.Remove(tokenFile)

		_, err := getToken(context.Background(), oauthConfig, tokenFile, zap.NewNop())
		if err == nil {
			t.Fatal("Expected error when no token file exists and device authorization fails")
		}
		if !strings.Contains(err.Error(), "device authorization failed") {
			t.Errorf("unexpected error: %v", err)
		}
	})
}

func TestTokenFromFile(t *testing.T) {
	tempDir := t.TempDir()
	tokenFile := filepath.Join(tempDir, "test_token.json")

	t.Run("ValidTokenFile", func(t *testing.T) {
		testToken := &oauth2.Token{
			AccessToken:  "test-access-token",
			RefreshToken: "test-refresh-token",
			TokenType:    "Bearer",
			Expiry:       time.Now().Add(time.Hour),
		}

		data, _ := json.Marshal(testToken)
		if err := os.WriteFile(tokenFile, data, 0600); err != nil {
			t.Fatalf("Failed to write token file: %v", err)
		}

		token, err := tokenFromFile(tokenFile)
		if err != nil {
			t.Fatalf("Failed to read token from file: %v", err)
		}
		if token.AccessToken != testToken.AccessToken {
			t.Errorf("Access token mismatch: got %s, want %s", token.AccessToken, testToken.AccessToken)
		}
	})

	t.Run("NonExistentFile", func(t *testing.T) {
		if _, err := tokenFromFile(filepath.Join(tempDir, "nonexistent.json")); err == nil {
			t.Error("Expected error for non-existent file")
		}
	})

	t.Run("InvalidJSON", func(t *testing.T) {
		if err := os.WriteFile(tokenFile, []byte("invalid json"), 0600); err != nil {
			t.Fatalf("Failed to write file: %v", err)
		}
		if _, err := tokenFromFile(tokenFile); err == nil {
			t.Error("Expected error for invalid JSON")
		}
	})
}

func TestSaveTokenNestedDirectory(t *testing.T) {
	tokenFile := filepath.Join(t.TempDir(), "nested", "dir", "token.json")

	if err := saveToken(tokenFile, &oauth2.Token{AccessToken: "nested-access"}); err != nil {
		t.Fatalf("Failed to save token to nested directory: %v", err)
	}
	if err := saveToken(tokenFile, &oauth2.Token{AccessToken: "second-token"}); err != nil {
		t.Fatalf("Failed to overwrite token: %v", err)
	}

	saved, err := tokenFromFile(tokenFile)
	if err != nil {
		t.Fatalf("Failed to read saved token: %v", err)
	}
	if saved.AccessToken != "second-token" {
		t.Errorf("Token was not overwritten: got %s", saved.AccessToken)
	}
}

func TestTokenSaverConcurrency(t *testing.T) {
	ts := &tokenSaver{
		config: &oauth2.Config{ClientID: "test"},
		token: &oauth2.Token{
			AccessToken:  "initial",
			RefreshToken: "refresh",
		},
		tokenFile: filepath.Join(t.TempDir(), "concurrent_token.json"),
		logger:    zap.NewNop(),
	}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tok, err := ts.Token()
			if err != nil {
				t.Errorf("Token() error = %v", err)
				return
			}
			if tok.AccessToken != "initial" {
				t.Errorf("Token() = %s, want initial", tok.AccessToken)
			}
		}()
	}
	wg.Wait()
}

func TestParseDurationSeconds(t *testing.T) {
	tests := []struct {
		name     string
		duration string
		expected int
	}{
		{"Empty", "", 0},
		{"Seconds only", "PT45S", 45},
		{"Minutes only", "PT2M", 120},
		{"Hours only", "PT1H", 3600},
		{"Minutes and seconds", "PT1M30S", 90},
		{"Full format", "PT2H15M30S", 8130},
		{"Invalid format", "invalid", 0},
		{"No time components", "PT", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if result := parseDurationSeconds(tt.duration); result != tt.expected {
				t.Errorf("parseDurationSeconds(%s) = %d, want %d", tt.duration, result, tt.expected)
			}
		})
	}
}

func TestExtractVideoID(t *testing.T) {
	tests := []struct {
		input   string
		want    string
		wantErr bool
	}{
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ", false},
		{"https://www.youtube.com/watch?feature=share&v=dQw4w9WgXcQ&t=10", "dQw4w9WgXcQ", false},
		{"https://youtu.be/dQw4w9WgXcQ?si=abc", "dQw4w9WgXcQ", false},
		{"https://www.youtube.com/embed/dQw4w9WgXcQ", "dQw4w9WgXcQ", false},
		{"https://www.youtube.com/v/dQw4w9WgXcQ", "dQw4w9WgXcQ", false},
		{"https://www.youtube.com/shorts/dQw4w9WgXcQ", "dQw4w9WgXcQ", false},
		{"  dQw4w9WgXcQ ", "dQw4w9WgXcQ", false},
		{"https://example.com/video", "", true},
		{"short", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ExtractVideoID(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ExtractVideoID(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ExtractVideoID(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func newTestClient(t *testing.T, handler http.HandlerFunc, pageSize int) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	service, err := youtube.NewService(context.Background(),
		option.WithEndpoint(srv.URL+"/"),
		option.WithoutAuthentication(),
		option.WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}
	return NewClientWithService(service, pageSize, 0, zap.NewNop())
}

func thread(id, text string) map[string]any {
	return map[string]any{
		"id": id,
		"snippet": map[string]any{
			"totalReplyCount": 1,
			"topLevelComment": map[string]any{
				"id": id + "-top",
				"snippet": map[string]any{
					"authorDisplayName": "Ana",
					"authorChannelId":   map[string]any{"value": "UC123"},
					"textOriginal":      text,
					"likeCount":         3,
					"publishedAt":       "2026-01-02T03:04:05Z",
				},
			},
		},
		"replies": map[string]any{
			"comments": []any{
				map[string]any{"id": id + "-r1", "snippet": map[string]any{"authorDisplayName": "Luis", "textOriginal": "same here"}},
			},
		},
	}
}

func TestFetchCommentsPagination(t *testing.T) {
	var (
		mu         sync.Mutex
		maxResults []string
	)
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/commentThreads") {
			http.NotFound(w, r)
			return
		}
		mu.Lock()
		maxResults = append(maxResults, r.URL.Query().Get("maxResults"))
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Query().Get("pageToken") {
		case "":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"items":         []any{thread("t1", "first comment"), thread("t2", "second comment")},
				"nextPageToken": "p2",
			})
		case "p2":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"items":         []any{thread("t3", "third comment")},
				"nextPageToken": "p3",
			})
		default:
			t.Errorf("unexpected page token %q", r.URL.Query().Get("pageToken"))
		}
	}, 2)

	result, err := client.FetchComments(context.Background(), FetchOptions{VideoID: "dQw4w9WgXcQ", Limit: 3})
	if err != nil {
		t.Fatalf("FetchComments() error = %v", err)
	}

	if len(result.Items) != 3 {
		t.Fatalf("got %d items, want 3", len(result.Items))
	}
	if result.Partial {
		t.Error("result should not be partial")
	}
	if result.Cursor != "" {
		t.Errorf("Cursor = %q, want empty once the limit is reached", result.Cursor)
	}
	// Final page is clamped to the remaining count.
	if strings.Join(maxResults, ",") != "2,1" {
		t.Errorf("maxResults per page = %v, want [2 1]", maxResults)
	}

	first := result.Items[0]
	if first.ExternalID != "t1" || first.Author != "Ana" || first.AuthorChannelID != "UC123" {
		t.Errorf("unexpected mapping: %+v", first)
	}
	if first.LikeCount != 3 || first.ReplyCount != 1 {
		t.Errorf("unexpected counts: likes=%d replies=%d", first.LikeCount, first.ReplyCount)
	}
	if !first.PublishedAt.Equal(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)) {
		t.Errorf("PublishedAt = %v", first.PublishedAt)
	}
	if !strings.Contains(string(first.Replies), "same here") {
		t.Errorf("Replies = %s, want the reply text", first.Replies)
	}
}

func TestFetchCommentsPartialFailure(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("pageToken") == "p2" {
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte(`{"error":{"code":403,"message":"quotaExceeded"}}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"items":         []any{thread("t1", "first comment")},
			"nextPageToken": "p2",
		})
	}, 100)

	result, err := client.FetchComments(context.Background(), FetchOptions{VideoID: "dQw4w9WgXcQ"})
	if err != nil {
		t.Fatalf("FetchComments() should not fail on a page error: %v", err)
	}
	if !result.Partial || result.Err == nil {
		t.Fatalf("expected a partial result with the page error, got %+v", result)
	}
	if len(result.Items) != 1 {
		t.Errorf("got %d items, want the 1 fetched before the failure", len(result.Items))
	}
	if result.Cursor != "p2" {
		t.Errorf("Cursor = %q, want p2 so the fetch can resume", result.Cursor)
	}
}

func TestFetchCommentsRequiresVideoID(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	}, 100)

	if _, err := client.FetchComments(context.Background(), FetchOptions{}); err == nil {
		t.Error("expected an error for a missing video ID")
	}
}

func TestGetVideo(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("id") != "dQw4w9WgXcQ" {
			_ = json.NewEncoder(w).Encode(map[string]any{"items": []any{}})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"items": []any{map[string]any{
				"id": "dQw4w9WgXcQ",
				"snippet": map[string]any{
					"title":        "Launch video",
					"channelTitle": "Acme",
					"publishedAt":  "2026-01-01T00:00:00Z",
				},
				"contentDetails": map[string]any{"duration": "PT3M33S"},
				"statistics":     map[string]any{"viewCount": "1000", "likeCount": "50", "commentCount": "12"},
			}},
		})
	}, 100)

	video, err := client.GetVideo(context.Background(), "dQw4w9WgXcQ")
	if err != nil {
		t.Fatalf("GetVideo() error = %v", err)
	}
	if video.Title != "Launch video" || video.ChannelTitle != "Acme" {
		t.Errorf("unexpected snippet mapping: %+v", video)
	}
	if video.DurationSeconds != 213 || video.ViewCount != 1000 || video.CommentCount != 12 {
		t.Errorf("unexpected details: %+v", video)
	}
	if video.URL != "https://www.youtube.com/watch?v=dQw4w9WgXcQ" {
		t.Errorf("URL = %s", video.URL)
	}

	if _, err := client.GetVideo(context.Background(), "missingvid0"); err == nil {
		t.Error("expected ErrVideoNotFound")
	}
}

func TestRefreshTokenWithoutOAuth(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request to %s", r.URL.Path)
	}, 10)
	if err := client.RefreshToken(context.Background()); err != nil {
		t.Errorf("RefreshToken() error = %v, want nil for API-key clients", err)
	}
}
