package shell

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrEmptyCommand   = errors.New("empty command")
	ErrUnknownCommand = errors.New("unknown command")
	ErrWrongArgs      = errors.New("wrong number of arguments")
)

// Command is a parsed line of input. Name is always lower case
type Command struct {
	Name string
	Args []string
}

// Parse splits a line into a command and its arguments. Keys are single words, while the value of a put is
// the rest of the line after the key, so it may contain spaces. Spaces between the key and the value only
// separate them, and spaces at the end of the line are dropped
func Parse(line string) (Command, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return Command{}, ErrEmptyCommand
	}
	name, rest, _ := strings.Cut(line, " ")
	name = strings.ToLower(name)
	rest = strings.TrimLeft(rest, " ")

	spec, ok := commands[name]
	if !ok {
		return Command{}, fmt.Errorf("%w '%s'", ErrUnknownCommand, name)
	}

	var args []string
	switch {
	case spec.restIsValue:
		key, value, found := strings.Cut(rest, " ")
		value = strings.TrimLeft(value, " ")
		if key == "" || !found {
			return Command{}, fmt.Errorf("%w for '%s' command", ErrWrongArgs, name)
		}
		args = []string{key, value}
	default:
		args = strings.Fields(rest)
	}
	if len(args) != spec.args {
		return Command{}, fmt.Errorf("%w for '%s' command", ErrWrongArgs, name)
	}
	if spec.subcommand != "" && strings.ToLower(args[0]) != spec.subcommand {
		return Command{}, fmt.Errorf("%w '%s %s'", ErrUnknownCommand, name, args[0])
	}
	return Command{Name: name, Args: args}, nil
}
