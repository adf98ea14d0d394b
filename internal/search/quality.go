package search

import (
	"fmt"

	"medow/pkg/models"
)

// QualityPolicy decides which video variant of a film is offered
type QualityPolicy string

const (
	// SDFirst picks the standard URL whenever present, even if an HD
	// variant exists.
	SDFirst QualityPolicy = "sd-first"
	// HDFirst picks the HD variant when present.
	HDFirst QualityPolicy = "hd-first"
)

func ParseQualityPolicy(s string) (QualityPolicy, error) {
	switch QualityPolicy(s) {
	case "", SDFirst:
		return SDFirst, nil
	case HDFirst:
		return HDFirst, nil
	}
	return "", fmt.Errorf("unknown quality policy %q (want %s or %s)", s, SDFirst, HDFirst)
}

// Select returns the chosen URL and its quality label. Without SD or HD the
// low quality URL is used, or "" when that is absent too.
func (p QualityPolicy) Select(film models.Film) (string, string) {
	hasSD := film.URLVideo != ""
	hasHD := film.URLVideoHD != nil

	if p == HDFirst && hasHD {
		return *film.URLVideoHD, models.QualityHD
	}
	if hasSD {
		return film.URLVideo, models.QualitySD
	}
	if hasHD {
		return *film.URLVideoHD, models.QualityHD
	}
	if film.URLVideoLow != nil {
		return *film.URLVideoLow, models.QualityLQ
	}
	return "", models.QualityLQ
}
