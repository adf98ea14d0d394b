package console

import (
	"fmt"
	"strconv"
	"strings"

	"medow/internal/utils"
)

type CommandKind int

const (
	CmdSearch CommandKind = iota
	CmdNext
	CmdPrevious
	CmdGoTo
	CmdReload
	CmdToggle
	CmdToggleAll
	CmdSelection
	CmdHelp
	CmdQuit
)

// Command is one parsed line of browse input
type Command struct {
	Kind  CommandKind
	Query string
	Index int
}

const helpText = `Commands:
  /<text>   search for text in topic and title
  n         next page
  p         previous page
  g <page>  go to page
  r         reload the current page
  s <row>   toggle selection of a row
  a         toggle selection of the whole page
  l         list selected items
  h         show this help
  q         quit`

// ParseCommand parses one input line. Row and page numbers are 1-indexed.
func ParseCommand(line string) (Command, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return Command{}, fmt.Errorf("empty command, type h for help")
	}

	if strings.HasPrefix(line, "/") {
		return Command{Kind: CmdSearch, Query: utils.NormalizeQuery(line[1:])}, nil
	}

	fields := strings.Fields(line)
	name, args := fields[0], fields[1:]

	simple := map[string]CommandKind{
		"n": CmdNext,
		"p": CmdPrevious,
		"r": CmdReload,
		"a": CmdToggleAll,
		"l": CmdSelection,
		"h": CmdHelp,
		"?": CmdHelp,
		"q": CmdQuit,
	}
	if kind, ok := simple[name]; ok {
		if len(args) != 0 {
			return Command{}, fmt.Errorf("%s takes no arguments", name)
		}
		return Command{Kind: kind}, nil
	}

	switch name {
	case "g", "s":
		if len(args) != 1 {
			return Command{}, fmt.Errorf("%s needs exactly one number", name)
		}
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 1 {
			return Command{}, fmt.Errorf("invalid number %q", args[0])
		}
		kind := CmdGoTo
		if name == "s" {
			kind = CmdToggle
		}
		return Command{Kind: kind, Index: n}, nil
	}

	return Command{}, fmt.Errorf("unknown command %q, type h for help", name)
}
