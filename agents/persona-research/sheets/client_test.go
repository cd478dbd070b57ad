package sheets

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

func TestExtractSpreadsheetID(t *testing.T) {
	id, err := ExtractSpreadsheetID("https://docs.google.com/spreadsheets/d/1AbC-d_EF23/edit#gid=0")
	require.NoError(t, err)
	assert.Equal(t, "1AbC-d_EF23", id)

	id, err = ExtractSpreadsheetID("1BxiMVs0XRA5nFMdKvBdBZjgmUUqptlbs74OgvE2upms")
	require.NoError(t, err)
	assert.Equal(t, "1BxiMVs0XRA5nFMdKvBdBZjgmUUqptlbs74OgvE2upms", id)

	for _, bad := range []string{
		"https://docs.google.com/forms/d/e/xyz/viewform",
		"short-id",
		"https://example.com/not/a/sheet/at/all",
	} {
		_, err = ExtractSpreadsheetID(bad)
		assert.Error(t, err, bad)
	}
}

func TestParseTimestamp(t *testing.T) {
	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		input string
		want  time.Time
	}{
		{"DayFirstUnambiguous", "25/03/2026 14:05:09", time.Date(2026, 3, 25, 14, 5, 9, 0, time.UTC)},
		{"MonthFirstUnambiguous", "03/25/2026 14:05:09", time.Date(2026, 3, 25, 14, 5, 9, 0, time.UTC)},
		{"AmbiguousDefaultsToDayFirst", "04/03/2026 9:00:00", time.Date(2026, 3, 4, 9, 0, 0, 0, time.UTC)},
		{"RFC3339", "2026-02-01T10:00:00Z", time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)},
		{"DateOnly", "2026-02-01", time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)},
		{"Empty", "", now},
		{"Garbage", "yesterday-ish", now},
		{"InvalidDate", "31/02/2026 10:00:00", now},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.want.Equal(parseTimestamp(tt.input, now)), "parseTimestamp(%q) = %v", tt.input, parseTimestamp(tt.input, now))
		})
	}
}

func TestRowToItem(t *testing.T) {
	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	headers := []string{"Marca temporal", "Correo electrónico", "¿Qué te frena?", "¿Qué buscas?"}
	row := []interface{}{"25/03/2026 14:05:09", "ana@example.com", "El precio", ""}

	item := rowToItem("sheet1", 0, headers, row, now)

	assert.Equal(t, "ana@example.com", item.Author)
	assert.Equal(t, "Correo electrónico: ana@example.com\n¿Qué te frena?: El precio", item.CombinedText)
	assert.NotContains(t, item.CombinedText, "Marca temporal")
	assert.Equal(t, time.Date(2026, 3, 25, 14, 5, 9, 0, time.UTC), item.PublishedAt)

	again := rowToItem("sheet1", 0, headers, row, now)
	assert.Equal(t, item.ExternalID, again.ExternalID, "ID must be deterministic")

	other := rowToItem("sheet1", 1, headers, row, now)
	assert.NotEqual(t, item.ExternalID, other.ExternalID, "row index is part of the ID")

	short := rowToItem("sheet1", 2, headers, []interface{}{"bad date"}, now)
	assert.Equal(t, "", short.CombinedText)
	assert.Equal(t, now, short.PublishedAt)
}

func TestReadResponses(t *testing.T) {
	var valuesPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.Contains(r.URL.Path, "/values/"):
			valuesPath = r.URL.Path
			_ = json.NewEncoder(w).Encode(map[string]any{
				"range": "'Form Responses 1'!A1:Z3",
				"values": [][]any{
					{"Timestamp", "Email", "What is your biggest challenge?"},
					{"3/25/2026 10:00:00", "a@example.com", "Finding time to study every day"},
					{"3/26/2026 11:00:00", "b@example.com", "Staying motivated"},
				},
			})
		default:
			_ = json.NewEncoder(w).Encode(map[string]any{
				"spreadsheetId":  "sheet-xyz",
				"spreadsheetUrl": "https://docs.google.com/spreadsheets/d/sheet-xyz/edit",
				"properties":     map[string]any{"title": "Course survey"},
				"sheets": []any{
					map[string]any{"properties": map[string]any{"title": "Form Responses 1"}},
				},
			})
		}
	}))
	defer srv.Close()

	service, err := sheets.NewService(context.Background(),
		option.WithEndpoint(srv.URL+"/"),
		option.WithoutAuthentication(),
		option.WithHTTPClient(srv.Client()))
	require.NoError(t, err)

	client := NewClientWithService(service, zap.NewNop())

	info, err := client.SpreadsheetInfo(context.Background(), "sheet-xyz")
	require.NoError(t, err)
	assert.Equal(t, "Course survey", info.Title)
	assert.Equal(t, []string{"Form Responses 1"}, info.Sheets)

	resp, err := client.ReadResponses(context.Background(), "sheet-xyz", "")
	require.NoError(t, err)
	assert.Contains(t, valuesPath, "Form Responses 1", "range should be qualified with the first sheet")
	require.Len(t, resp.Items, 2)
	assert.Equal(t, []string{"Timestamp", "Email", "What is your biggest challenge?"}, resp.Headers)
	assert.Equal(t, "a@example.com", resp.Items[0].Author)
	assert.Contains(t, resp.Items[0].CombinedText, "What is your biggest challenge?: Finding time to study every day")
	assert.Equal(t, time.Date(2026, 3, 25, 10, 0, 0, 0, time.UTC), resp.Items[0].PublishedAt)
}
