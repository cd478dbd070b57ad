// Package sheets reads Google Forms responses from their linked spreadsheet.
package sheets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"persona-stack/internal/models"
	"persona-stack/shared/config"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// DefaultRange reads every answer column of the first sheet.
const DefaultRange = "A:Z"

var ErrNoResponses = errors.New("no responses found in sheet")

// Columns that carry submission metadata rather than answers.
var timestampHeaders = []string{"Timestamp", "Marca temporal"}
var emailHeaders = []string{"Email", "Email Address", "Correo electrónico", "Dirección de correo electrónico"}

type Client struct {
	service *sheets.Service
	logger  *zap.Logger
	now     func() time.Time
}

func NewClient(ctx context.Context, cfg *config.SheetsConfig, logger *zap.Logger) (*Client, error) {
	var opts []option.ClientOption
	switch {
	case cfg.CredentialsFile != "":
		opts = append(opts,
			option.WithCredentialsFile(cfg.CredentialsFile),
			option.WithScopes(sheets.SpreadsheetsReadonlyScope))
	case cfg.APIKey != "":
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	default:
		return nil, errors.New("sheets credentials missing: set GOOGLE_CREDENTIALS_FILE or an API key")
	}

	service, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Sheets service: %w", err)
	}
	return NewClientWithService(service, logger), nil
}

func NewClientWithService(service *sheets.Service, logger *zap.Logger) *Client {
	return &Client{
		service: service,
		logger:  logger.Named("sheets"),
		now:     time.Now,
	}
}

type SpreadsheetInfo struct {
	ID     string
	Title  string
	URL    string
	Sheets []string
}

func (c *Client) SpreadsheetInfo(ctx context.Context, spreadsheetID string) (*SpreadsheetInfo, error) {
	resp, err := c.service.Spreadsheets.Get(spreadsheetID).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get spreadsheet %s: %w", spreadsheetID, err)
	}

	info := &SpreadsheetInfo{ID: resp.SpreadsheetId, URL: resp.SpreadsheetUrl}
	if resp.Properties != nil {
		info.Title = resp.Properties.Title
	}
	for _, sheet := range resp.Sheets {
		if sheet.Properties != nil {
			info.Sheets = append(info.Sheets, sheet.Properties.Title)
		}
	}
	return info, nil
}

type Responses struct {
	Headers []string
	Items   []*models.ContentItem
}

// ReadResponses reads rng (first sheet when it names none) and converts each
// row after the header into a content item.
func (c *Client) ReadResponses(ctx context.Context, spreadsheetID, rng string) (*Responses, error) {
	if rng == "" {
		rng = DefaultRange
	}
	if !strings.Contains(rng, "!") {
		info, err := c.SpreadsheetInfo(ctx, spreadsheetID)
		if err != nil {
			return nil, err
		}
		if len(info.Sheets) > 0 {
			rng = fmt.Sprintf("'%s'!%s", info.Sheets[0], rng)
		}
	}

	resp, err := c.service.Spreadsheets.Values.Get(spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to read range %s: %w", rng, err)
	}
	if len(resp.Values) < 2 {
		return nil, ErrNoResponses
	}

	headers := make([]string, len(resp.Values[0]))
	for i, h := range resp.Values[0] {
		headers[i] = strings.TrimSpace(fmt.Sprint(h))
	}

	out := &Responses{Headers: headers}
	now := c.now()
	for i, row := range resp.Values[1:] {
		out.Items = append(out.Items, rowToItem(spreadsheetID, i, headers, row, now))
	}

	c.logger.Info("Read survey responses",
		zap.String("spreadsheet_id", spreadsheetID),
		zap.String("range", rng),
		zap.Int("responses", len(out.Items)))
	return out, nil
}

type answer struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

func rowToItem(spreadsheetID string, index int, headers []string, row []interface{}, now time.Time) *models.ContentItem {
	answers := make([]answer, len(headers))
	for i, h := range headers {
		var v string
		if i < len(row) && row[i] != nil {
			v = strings.TrimSpace(fmt.Sprint(row[i]))
		}
		answers[i] = answer{Question: h, Answer: v}
	}

	var (
		lines     []string
		timestamp string
		email     string
	)
	for _, a := range answers {
		switch {
		case contains(timestampHeaders, a.Question):
			if timestamp == "" {
				timestamp = a.Answer
			}
			continue
		case contains(emailHeaders, a.Question):
			if email == "" {
				email = a.Answer
			}
		}
		if a.Answer != "" {
			lines = append(lines, a.Question+": "+a.Answer)
		}
	}

	raw, _ := json.Marshal(answers)
	combined := strings.Join(lines, "\n")

	return &models.ContentItem{
		ExternalID:   responseID(spreadsheetID, index, raw),
		Author:       email,
		RawText:      combined,
		CombinedText: combined,
		PublishedAt:  parseTimestamp(timestamp, now),
		Replies:      raw,
	}
}

// responseID is stable for the same row content at the same position.
func responseID(spreadsheetID string, index int, raw []byte) string {
	name := spreadsheetID + "_" + strconv.Itoa(index) + "_" + string(raw)
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(name)).String()
}

var slashTimestamp = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{4})\s+(\d{1,2}):(\d{2}):(\d{2})$`)

var fallbackLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// parseTimestamp reads Forms timestamps written in either d/m/Y or m/d/Y.
// When both leading numbers are 12 or less the day-first reading wins.
func parseTimestamp(s string, now time.Time) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return now
	}

	if m := slashTimestamp.FindStringSubmatch(s); m != nil {
		first, _ := strconv.Atoi(m[1])
		second, _ := strconv.Atoi(m[2])
		layout := "2/1/2006 15:04:05"
		if first <= 12 && second > 12 {
			layout = "1/2/2006 15:04:05"
		}
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
		return now
	}

	for _, layout := range fallbackLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return now
}

var (
	spreadsheetIDPattern = regexp.MustCompile(`/spreadsheets/d/([a-zA-Z0-9-_]+)`)
	bareSpreadsheetID    = regexp.MustCompile(`^[a-zA-Z0-9_-]{20,}$`)
)

// ExtractSpreadsheetID pulls the ID out of a docs.google.com spreadsheet URL
// or accepts a bare spreadsheet ID.
func ExtractSpreadsheetID(url string) (string, error) {
	if m := spreadsheetIDPattern.FindStringSubmatch(url); m != nil {
		return m[1], nil
	}
	if id := strings.TrimSpace(url); bareSpreadsheetID.MatchString(id) {
		return id, nil
	}
	return "", fmt.Errorf("invalid Google Sheets URL or ID: %q", url)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}
