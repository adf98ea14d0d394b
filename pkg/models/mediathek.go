package models

import "time"

// Film is a single raw result as returned by the MediathekViewWeb API.
type Film struct {
	ID          string
	Channel     string
	Topic       string
	Title       string
	Description string
	Timestamp   int64
	Duration    *time.Duration
	Size        int64
	URLWebsite  string
	URLSubtitle string
	URLVideo    string
	URLVideoLow *string
	URLVideoHD  *string
}

type QueryResult struct {
	Total            int
	ResultCount      int
	SearchEngineTime string
	Results          []Film
}
