package tui

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

type commandKind int

const (
	cmdClear commandKind = iota
	cmdRegen
	cmdPDF
	cmdUpload
	cmdFollowup
	cmdCopy
	cmdExport
	cmdSettings
	cmdHelp
	cmdQuit
)

// slashCommand is a parsed "/name args" input line
type slashCommand struct {
	kind commandKind
	n    int    // 1-based message or follow-up number, 0 when absent
	arg  string // path for upload and export
}

var errUnknownCommand = errors.New("unknown command")

const helpText = `Commands:
  /clear          start over
  /regen [n]      regenerate the last answer, or message n
  /pdf            toggle asking the uploaded documents
  /upload <path>  index a PDF
  /f <n>          ask follow-up n of the latest answer
  /copy           copy the latest answer
  /export <path>  save the transcript (.md or .json)
  /settings       edit the API key, model and system prompt
  /help           show this help
  /quit           exit`

// isCommand reports whether input should be parsed as a slash command
func isCommand(input string) bool {
	return strings.HasPrefix(input, "/")
}

// parseCommand parses a slash command line
func parseCommand(input string) (slashCommand, error) {
	fields := strings.Fields(strings.TrimSpace(input))
	if len(fields) == 0 || !isCommand(fields[0]) {
		return slashCommand{}, errUnknownCommand
	}

	name := strings.ToLower(fields[0])
	rest := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(input), fields[0]))

	switch name {
	case "/clear":
		return slashCommand{kind: cmdClear}, nil
	case "/regen", "/regenerate":
		if rest == "" {
			return slashCommand{kind: cmdRegen}, nil
		}
		n, err := parsePositive(rest)
		if err != nil {
			return slashCommand{}, fmt.Errorf("%s: %w", name, err)
		}
		return slashCommand{kind: cmdRegen, n: n}, nil
	case "/pdf":
		return slashCommand{kind: cmdPDF}, nil
	case "/upload":
		if rest == "" {
			return slashCommand{}, errors.New("/upload: missing file path")
		}
		return slashCommand{kind: cmdUpload, arg: rest}, nil
	case "/f", "/followup":
		n, err := parsePositive(rest)
		if err != nil {
			return slashCommand{}, fmt.Errorf("%s: %w", name, err)
		}
		return slashCommand{kind: cmdFollowup, n: n}, nil
	case "/copy":
		return slashCommand{kind: cmdCopy}, nil
	case "/export":
		if rest == "" {
			return slashCommand{}, errors.New("/export: missing file path")
		}
		return slashCommand{kind: cmdExport, arg: rest}, nil
	case "/settings", "/config":
		return slashCommand{kind: cmdSettings}, nil
	case "/help", "/?":
		return slashCommand{kind: cmdHelp}, nil
	case "/quit", "/exit", "/q":
		return slashCommand{kind: cmdQuit}, nil
	default:
		return slashCommand{}, fmt.Errorf("%w: %s (try /help)", errUnknownCommand, fields[0])
	}
}

func parsePositive(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 {
		return 0, fmt.Errorf("expected a positive number, got %q", s)
	}
	return n, nil
}
