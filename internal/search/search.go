package search

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"medow/internal/logger"
	"medow/internal/mediathek"
	"medow/internal/metrics"
	"medow/internal/pagination"
	"medow/internal/utils"
	"medow/pkg/models"
)

// Request describes one round trip against the search service
type Request struct {
	Fields        []mediathek.Field
	Text          string
	IncludeFuture bool
	SortBy        mediathek.SortField
	SortOrder     mediathek.SortOrder
	Size          int
	Offset        int
}

// Service runs a search request and reports the total match count together
// with the requested window of results.
type Service interface {
	Execute(ctx context.Context, req Request) (*models.QueryResult, error)
}

// ServiceFactory creates the search service on first use. A failure is
// reported as a fetch error and retried on the next fetch.
type ServiceFactory func() (Service, error)

// Window receives a complete replacement of the displayed results
type Window interface {
	Replace(total, offset int, items []models.SearchItem)
}

type Orchestrator struct {
	factory ServiceFactory
	policy  QualityPolicy

	mu      sync.Mutex
	service Service

	log zerolog.Logger
}

func NewOrchestrator(factory ServiceFactory, policy QualityPolicy) *Orchestrator {
	return &Orchestrator{
		factory: factory,
		policy:  policy,
		log:     logger.WithComponent("search"),
	}
}

// NewRequest builds the window request sent for every fetch: topic or title
// match, no future broadcasts, newest first.
func NewRequest(queryText string, offset int) Request {
	return Request{
		Fields:        []mediathek.Field{mediathek.FieldTopic, mediathek.FieldTitle},
		Text:          queryText,
		IncludeFuture: false,
		SortBy:        mediathek.SortByTimestamp,
		SortOrder:     mediathek.Descending,
		Size:          pagination.PageSize,
		Offset:        offset,
	}
}

// FetchWindow fetches one page of results starting at offset and replaces
// the window with it. On any failure the window is left untouched and the
// error is recorded in status; status may be nil.
func (o *Orchestrator) FetchWindow(ctx context.Context, window Window, status *Status, queryText string, offset int) error {
	if status == nil {
		status = NewStatus()
	}
	if offset < 0 {
		offset = 0
	}

	start := time.Now()
	done := metrics.FetchStarted()
	status.beginLoading()
	defer status.endLoading()

	o.log.Debug().Str("query", queryText).Int("offset", offset).Msg("fetching result window")

	service, err := o.serviceFor()
	if err != nil {
		done(metrics.OutcomeClientError)
		err = fmt.Errorf("failed to create search client: %w", err)
		status.setError(err.Error())
		logger.LogOperation("search", start, err)
		return err
	}

	result, err := service.Execute(ctx, NewRequest(queryText, offset))
	if err != nil {
		if errors.Is(err, context.Canceled) {
			done(metrics.OutcomeCanceled)
			return err
		}
		done(metrics.OutcomeQueryError)
		err = fmt.Errorf("search for %q failed: %w", queryText, err)
		status.setError(err.Error())
		logger.LogOperation("search", start, err)
		return err
	}

	items := MapFilms(result.Results, o.policy)

	// a superseded fetch must not overwrite the newer window
	if err := ctx.Err(); err != nil {
		done(metrics.OutcomeCanceled)
		return err
	}

	if expected := expectedItems(result.Total, offset); len(items) != expected {
		o.log.Warn().
			Int("total", result.Total).
			Int("offset", offset).
			Int("items", len(items)).
			Int("expected", expected).
			Msg("service returned an inconsistent window")
	}

	window.Replace(result.Total, offset, items)
	status.clearError()
	done(metrics.OutcomeSuccess)

	o.log.Debug().
		Int("total", result.Total).
		Int("items", len(items)).
		Dur("elapsed", time.Since(start)).
		Msg("result window replaced")
	return nil
}

func (o *Orchestrator) serviceFor() (Service, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.service != nil {
		return o.service, nil
	}
	service, err := o.factory()
	if err != nil {
		return nil, err
	}
	o.service = service
	return service, nil
}

func expectedItems(total, offset int) int {
	p := pagination.Pagination{Total: total, Offset: offset}
	return p.ItemsOnPage()
}

// MapFilms converts raw results to display items in service order
func MapFilms(films []models.Film, policy QualityPolicy) []models.SearchItem {
	items := make([]models.SearchItem, 0, len(films))
	for _, film := range films {
		items = append(items, MapFilm(film, policy))
	}
	return items
}

func MapFilm(film models.Film, policy QualityPolicy) models.SearchItem {
	videoURL, quality := policy.Select(film)
	return models.SearchItem{
		Selected:  false,
		Title:     film.Title,
		Topic:     film.Topic,
		Channel:   film.Channel,
		Timestamp: utils.TimestampToGermanDate(film.Timestamp),
		Duration:  utils.FormatDuration(film.Duration),
		Quality:   quality,
		VideoURL:  videoURL,
	}
}

// MediathekService adapts the MediathekViewWeb client to Service
type MediathekService struct {
	Client *mediathek.Client
}

func (m MediathekService) Execute(ctx context.Context, req Request) (*models.QueryResult, error) {
	return m.Client.Query(req.Fields, req.Text).
		IncludeFuture(req.IncludeFuture).
		SortBy(req.SortBy).
		SortOrder(req.SortOrder).
		Size(req.Size).
		Offset(req.Offset).
		Do(ctx)
}

// NewMediathekFactory returns a factory building a client from cfg
func NewMediathekFactory(cfg *models.Config) ServiceFactory {
	return func() (Service, error) {
		client, err := mediathek.New(cfg.UserAgent,
			mediathek.WithBaseURL(cfg.APIURL),
			mediathek.WithTimeout(cfg.Timeout),
			mediathek.WithRateLimit(cfg.RequestsPerSecond),
		)
		if err != nil {
			return nil, err
		}
		return MediathekService{Client: client}, nil
	}
}
