package mediathek

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"medow/pkg/models"
)

// Field is a searchable film attribute
type Field string

const (
	FieldChannel     Field = "channel"
	FieldTopic       Field = "topic"
	FieldTitle       Field = "title"
	FieldDescription Field = "description"
)

type SortField string

const (
	SortByTimestamp SortField = "timestamp"
	SortByDuration  SortField = "duration"
	SortByChannel   SortField = "channel"
)

type SortOrder string

const (
	Ascending  SortOrder = "asc"
	Descending SortOrder = "desc"
)

// QueryBuilder collects query options. Nothing is sent until Do is called.
type QueryBuilder struct {
	client  *Client
	request queryRequest
}

func (q *QueryBuilder) IncludeFuture(include bool) *QueryBuilder {
	q.request.Future = include
	return q
}

func (q *QueryBuilder) SortBy(field SortField) *QueryBuilder {
	q.request.SortBy = field
	return q
}

func (q *QueryBuilder) SortOrder(order SortOrder) *QueryBuilder {
	q.request.SortOrder = order
	return q
}

func (q *QueryBuilder) Size(n int) *QueryBuilder {
	q.request.Size = n
	return q
}

func (q *QueryBuilder) Offset(n int) *QueryBuilder {
	q.request.Offset = n
	return q
}

// DurationMin drops results shorter than d
func (q *QueryBuilder) DurationMin(d time.Duration) *QueryBuilder {
	secs := int64(d.Seconds())
	q.request.DurationMin = &secs
	return q
}

// DurationMax drops results longer than d
func (q *QueryBuilder) DurationMax(d time.Duration) *QueryBuilder {
	secs := int64(d.Seconds())
	q.request.DurationMax = &secs
	return q
}

// Do sends the query and returns the reported total and the result window
func (q *QueryBuilder) Do(ctx context.Context) (*models.QueryResult, error) {
	return q.client.execute(ctx, q.request)
}

type queryRequest struct {
	Queries     []queryClause `json:"queries"`
	SortBy      SortField     `json:"sortBy,omitempty"`
	SortOrder   SortOrder     `json:"sortOrder,omitempty"`
	Future      bool          `json:"future"`
	Offset      int           `json:"offset"`
	Size        int           `json:"size"`
	DurationMin *int64        `json:"duration_min,omitempty"`
	DurationMax *int64        `json:"duration_max,omitempty"`
}

type queryClause struct {
	Fields []string `json:"fields"`
	Query  string   `json:"query"`
}

type queryResponse struct {
	Result *queryResult    `json:"result"`
	Err    json.RawMessage `json:"err"`
}

type queryResult struct {
	Results   []wireFilm `json:"results"`
	QueryInfo struct {
		TotalResults     int    `json:"totalResults"`
		ResultCount      int    `json:"resultCount"`
		SearchEngineTime string `json:"searchEngineTime"`
	} `json:"queryInfo"`
}

type wireFilm struct {
	ID          string  `json:"id"`
	Channel     string  `json:"channel"`
	Topic       string  `json:"topic"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Timestamp   flexInt `json:"timestamp"`
	Duration    flexInt `json:"duration"`
	Size        flexInt `json:"size"`
	URLWebsite  string  `json:"url_website"`
	URLSubtitle string  `json:"url_subtitle"`
	URLVideo    string  `json:"url_video"`
	URLVideoLow *string `json:"url_video_low"`
	URLVideoHD  *string `json:"url_video_hd"`
}

// flexInt accepts a JSON number, a quoted number or an empty string.
// The index emits "" for unknown durations and sizes.
type flexInt struct {
	Value int64
	Valid bool
}

func (f *flexInt) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = flexInt{}
		return nil
	}
	raw := string(data)
	if data[0] == '"' {
		unquoted, err := strconv.Unquote(raw)
		if err != nil {
			return err
		}
		raw = strings.TrimSpace(unquoted)
		if raw == "" {
			*f = flexInt{}
			return nil
		}
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		fv, ferr := strconv.ParseFloat(raw, 64)
		if ferr != nil {
			return fmt.Errorf("invalid integer %s: %w", string(data), err)
		}
		v = int64(fv)
	}
	*f = flexInt{Value: v, Valid: true}
	return nil
}

func (r *queryResponse) errorMessage() string {
	raw := bytes.TrimSpace(r.Err)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	var messages []string
	if err := json.Unmarshal(raw, &messages); err == nil {
		return strings.Join(messages, "; ")
	}
	var message string
	if err := json.Unmarshal(raw, &message); err == nil {
		return message
	}
	return string(raw)
}

func (r *queryResult) toModel() *models.QueryResult {
	films := make([]models.Film, 0, len(r.Results))
	for _, w := range r.Results {
		film := models.Film{
			ID:          w.ID,
			Channel:     w.Channel,
			Topic:       w.Topic,
			Title:       w.Title,
			Description: w.Description,
			Timestamp:   w.Timestamp.Value,
			Size:        w.Size.Value,
			URLWebsite:  w.URLWebsite,
			URLSubtitle: w.URLSubtitle,
			URLVideo:    w.URLVideo,
			URLVideoLow: nonEmpty(w.URLVideoLow),
			URLVideoHD:  nonEmpty(w.URLVideoHD),
		}
		if w.Duration.Valid {
			d := time.Duration(w.Duration.Value) * time.Second
			film.Duration = &d
		}
		films = append(films, film)
	}
	return &models.QueryResult{
		Total:            r.QueryInfo.TotalResults,
		ResultCount:      r.QueryInfo.ResultCount,
		SearchEngineTime: r.QueryInfo.SearchEngineTime,
		Results:          films,
	}
}

func nonEmpty(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}

func fieldNames(fields []Field) []string {
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = string(f)
	}
	return names
}
