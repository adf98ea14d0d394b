package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"medow/internal/logger"
	"medow/internal/search"
	"medow/internal/worker"
)

// Browser is the interactive terminal loop over one search session. Input
// is read concurrently with fetches, so a new command supersedes a fetch
// that is still outstanding.
type Browser struct {
	session *search.Session
	runner  *worker.Runner
	in      io.Reader
	out     io.Writer
	log     zerolog.Logger

	loadingShown bool
}

func NewBrowser(session *search.Session, runner *worker.Runner, in io.Reader, out io.Writer) *Browser {
	return &Browser{
		session: session,
		runner:  runner,
		in:      in,
		out:     out,
		log:     logger.WithComponent("console"),
	}
}

// Run reads commands until q, end of input or ctx is done. A non-empty
// initialQuery is searched before the first command.
func (b *Browser) Run(ctx context.Context, initialQuery string) error {
	done := make(chan struct{})
	defer close(done)
	lines := b.readLines(done)

	status := b.session.Status()
	status.SetView(search.ViewSearch)

	var pending <-chan worker.Outcome
	if initialQuery != "" {
		pending = b.fetch(func(ctx context.Context) error {
			return b.session.Search(ctx, initialQuery)
		})
	} else {
		fmt.Fprintln(b.out, helpText)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-status.Changes():
			b.showLoading(status.Snapshot())

		case outcome := <-pending:
			pending = nil
			b.report(outcome)

		case line, ok := <-lines:
			if !ok {
				lines = nil
				break
			}
			cmd, err := ParseCommand(line)
			if err != nil {
				fmt.Fprintln(b.out, err)
				break
			}
			if cmd.Kind == CmdQuit {
				return nil
			}
			if next := b.execute(cmd); next != nil {
				pending = next
			}
		}

		if lines == nil && pending == nil {
			return nil
		}
	}
}

func (b *Browser) readLines(done <-chan struct{}) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(b.in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-done:
				return
			}
		}
		if err := scanner.Err(); err != nil {
			b.log.Warn().Err(err).Msg("reading input failed")
		}
	}()
	return lines
}

// execute runs cmd and returns the outcome channel when it started a fetch
func (b *Browser) execute(cmd Command) <-chan worker.Outcome {
	switch cmd.Kind {
	case CmdSearch:
		return b.fetch(func(ctx context.Context) error { return b.session.Search(ctx, cmd.Query) })
	case CmdNext:
		return b.fetch(b.session.Next)
	case CmdPrevious:
		return b.fetch(b.session.Previous)
	case CmdReload:
		return b.fetch(b.session.Reload)
	case CmdGoTo:
		return b.fetch(func(ctx context.Context) error { return b.session.GoToPage(ctx, cmd.Index) })
	case CmdToggle:
		page := b.session.Page()
		i := cmd.Index - 1
		if i >= len(page.Items) {
			fmt.Fprintf(b.out, "no row %d on this page\n", cmd.Index)
			return nil
		}
		if err := b.session.SetSelected(i, !page.Items[i].Selected); err != nil {
			fmt.Fprintln(b.out, err)
			return nil
		}
		b.render()
	case CmdToggleAll:
		page := b.session.Page()
		b.session.SelectAll(!page.AllSelected())
		b.render()
	case CmdSelection:
		b.session.Status().SetView(search.ViewDownload)
		RenderSelection(b.out, b.session.Selected())
	case CmdHelp:
		fmt.Fprintln(b.out, helpText)
	}
	return nil
}

func (b *Browser) fetch(task worker.Task) <-chan worker.Outcome {
	return b.runner.Submit(task)
}

// showLoading prints the loading banner once per stretch of loading
func (b *Browser) showLoading(status search.StatusSnapshot) {
	if status.IsLoading && !b.loadingShown {
		fmt.Fprintln(b.out, "Loading…")
	}
	b.loadingShown = status.IsLoading
}

func (b *Browser) report(outcome worker.Outcome) {
	if outcome.Superseded || errors.Is(outcome.Err, context.Canceled) {
		return
	}
	switch {
	case errors.Is(outcome.Err, search.ErrNoQuery),
		errors.Is(outcome.Err, search.ErrNoNextPage),
		errors.Is(outcome.Err, search.ErrNoPreviousPage),
		errors.Is(outcome.Err, search.ErrPageOutOfRange):
		fmt.Fprintln(b.out, outcome.Err)
		return
	}
	b.log.Debug().Dur("elapsed", outcome.Elapsed).Msg("fetch finished")
	b.render()
}

func (b *Browser) render() {
	b.session.Status().SetView(search.ViewSearch)
	if query := b.session.Query(); query != "" {
		fmt.Fprintf(b.out, "Results for %q\n", query)
	}
	RenderPage(b.out, b.session.Page())
	RenderStatus(b.out, b.session.Status().Snapshot())
}
