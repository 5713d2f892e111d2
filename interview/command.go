package interview

import "strings"

// Command is the classification of one user input.
type Command int

const (
	// CommandAnswer is literal answer text.
	CommandAnswer Command = iota
	CommandExit
	CommandBack
	CommandSkip
	CommandRestart
)

var commandNames = map[string]Command{
	"exit":    CommandExit,
	"back":    CommandBack,
	"skip":    CommandSkip,
	"restart": CommandRestart,
}

// ParseCommand classifies input. Commands match case-insensitively after
// trimming; anything else is an answer.
func ParseCommand(input string) Command {
	if c, ok := commandNames[strings.ToLower(strings.TrimSpace(input))]; ok {
		return c
	}
	return CommandAnswer
}

func (c Command) String() string {
	switch c {
	case CommandExit:
		return "exit"
	case CommandBack:
		return "back"
	case CommandSkip:
		return "skip"
	case CommandRestart:
		return "restart"
	default:
		return "answer"
	}
}
