package models

const (
	QualityHD = "HD"
	QualitySD = "SD"
	QualityLQ = "LQ"
)

// SearchItem is one search hit as shown in the result table.
type SearchItem struct {
	Selected  bool   `json:"selected"`
	Title     string `json:"title"`
	Topic     string `json:"topic"`
	Channel   string `json:"channel"`
	Timestamp string `json:"timestamp"`
	Duration  string `json:"duration"`
	Quality   string `json:"quality"`
	VideoURL  string `json:"video_url"`
}
