// Package shell implements the line oriented command interpreter used by the bitcask CLI
package shell

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ananthvk/bitcask"
)

// maxLineSize limits the length of a single command (and hence the size of a value)
const maxLineSize = 16 * 1024 * 1024

// Store is the subset of the datastore used by the shell
type Store interface {
	Get(key []byte) ([]byte, error)
	Put(key []byte, value []byte) error
	Remove(key []byte) error
	ListKeys() ([]string, error)
	Merge() error
	Size() int
}

type commandFunc func(args []string, store Store) (string, error)

type commandSpec struct {
	args        int
	restIsValue bool
	subcommand  string
	handler     commandFunc
}

var commands = map[string]commandSpec{
	"put":    {args: 2, restIsValue: true, handler: handlePut},
	"get":    {args: 1, handler: handleGet},
	"remove": {args: 1, handler: handleRemove},
	"list":   {args: 1, subcommand: "keys", handler: handleListKeys},
	"size":   {args: 0, handler: handleSize},
	"merge":  {args: 0, handler: handleMerge},
	"exit":   {args: 0},
}

func handlePut(args []string, store Store) (string, error) {
	if err := store.Put([]byte(args[0]), []byte(args[1])); err != nil {
		return "", err
	}
	return "OK", nil
}

func handleGet(args []string, store Store) (string, error) {
	value, err := store.Get([]byte(args[0]))
	if errors.Is(err, bitcask.ErrKeyNotFound) {
		return "(nil)", nil
	}
	if err != nil {
		return "", err
	}
	return string(value), nil
}

func handleRemove(args []string, store Store) (string, error) {
	if err := store.Remove([]byte(args[0])); err != nil {
		return "", err
	}
	return "OK", nil
}

func handleListKeys(args []string, store Store) (string, error) {
	keys, err := store.ListKeys()
	if err != nil {
		return "", err
	}
	if len(keys) == 0 {
		return "(empty)", nil
	}
	return strings.Join(keys, "\n"), nil
}

func handleSize(args []string, store Store) (string, error) {
	return fmt.Sprintf("%d", store.Size()), nil
}

func handleMerge(args []string, store Store) (string, error) {
	if err := store.Merge(); err != nil {
		return "", err
	}
	return "OK", nil
}

// Execute runs a single line against the store and returns the text to print. exit is true if the line asked
// the shell to stop. Errors are reported in the output, so that the caller can keep reading commands
func Execute(line string, store Store) (output string, exit bool) {
	cmd, err := Parse(line)
	if errors.Is(err, ErrEmptyCommand) {
		return "", false
	}
	if err != nil {
		return fmt.Sprintf("(error) %s", err), false
	}
	if cmd.Name == "exit" {
		return "", true
	}
	output, err = commands[cmd.Name].handler(cmd.Args, store)
	if err != nil {
		return fmt.Sprintf("(error) %s: %s", strings.ToUpper(cmd.Name), err), false
	}
	return output, false
}

// Shell reads commands from in and writes results to out until exit or the end of input
type Shell struct {
	store  Store
	in     io.Reader
	out    io.Writer
	prompt string
}

func New(store Store, in io.Reader, out io.Writer) *Shell {
	return &Shell{store: store, in: in, out: out, prompt: "> "}
}

// WithPrompt sets the prompt printed before each command, an empty prompt disables it
func (s *Shell) WithPrompt(prompt string) *Shell {
	s.prompt = prompt
	return s
}

// Run processes commands until exit or the end of input. It only returns an error if reading the input
// or writing the output fails
func (s *Shell) Run() error {
	scanner := bufio.NewScanner(s.in)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	s.printPrompt()
	for scanner.Scan() {
		output, exit := Execute(scanner.Text(), s.store)
		if exit {
			return nil
		}
		if output != "" {
			if _, err := fmt.Fprintln(s.out, output); err != nil {
				return err
			}
		}
		s.printPrompt()
	}
	return scanner.Err()
}

func (s *Shell) printPrompt() {
	if s.prompt != "" {
		fmt.Fprint(s.out, s.prompt)
	}
}
