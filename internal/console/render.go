package console

import (
	"fmt"
	"io"
	"strings"

	"medow/internal/pagination"
	"medow/internal/search"
	"medow/internal/utils"
	"medow/pkg/models"
)

type column struct {
	title string
	width int
	value func(models.SearchItem) string
}

var columns = []column{
	{"Title", 40, func(i models.SearchItem) string { return i.Title }},
	{"Topic", 24, func(i models.SearchItem) string { return i.Topic }},
	{"Channel", 8, func(i models.SearchItem) string { return i.Channel }},
	{"Date", 10, func(i models.SearchItem) string { return i.Timestamp }},
	{"Duration", 8, func(i models.SearchItem) string { return i.Duration }},
	{"Q", 2, func(i models.SearchItem) string { return i.Quality }},
}

func checkbox(checked bool) string {
	if checked {
		return "[x]"
	}
	return "[ ]"
}

// RenderPage writes the result table of page followed by its info line
func RenderPage(w io.Writer, page pagination.Pagination) {
	var b strings.Builder

	b.WriteString(utils.PadRight("#", 4))
	b.WriteString(checkbox(page.AllSelected()))
	for _, c := range columns {
		b.WriteString(" ")
		b.WriteString(utils.PadRight(c.title, c.width))
	}
	b.WriteString("\n")

	if len(page.Items) == 0 {
		b.WriteString("    (no results)\n")
	}
	for i, item := range page.Items {
		b.WriteString(utils.PadRight(fmt.Sprintf("%d", i+1), 4))
		b.WriteString(checkbox(item.Selected))
		for _, c := range columns {
			b.WriteString(" ")
			b.WriteString(utils.PadRight(utils.Truncate(c.value(item), c.width), c.width))
		}
		b.WriteString("\n")
	}

	b.WriteString(page.Info())
	b.WriteString("\n")
	io.WriteString(w, b.String())
}

// RenderStatus writes the loading and error banner, if any
func RenderStatus(w io.Writer, status search.StatusSnapshot) {
	if status.IsLoading {
		fmt.Fprintln(w, "Loading…")
	}
	if status.LastError != "" {
		fmt.Fprintf(w, "Error: %s\n", status.LastError)
	}
}

// RenderSelection lists the selected items with the URL that would be fetched
func RenderSelection(w io.Writer, items []models.SearchItem) {
	if len(items) == 0 {
		fmt.Fprintln(w, "Nothing selected")
		return
	}
	for _, item := range items {
		url := item.VideoURL
		if url == "" {
			url = "(no video url)"
		}
		fmt.Fprintf(w, "%s - %s [%s] %s\n", item.Topic, item.Title, item.Quality, url)
	}
}
