package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/poiesic/docchat/chat"
	"github.com/poiesic/docchat/core"
)

// asker is the part of *chat.Service the REPL needs.
type asker interface {
	Ask(ctx context.Context, history []core.Message, input string) chat.Result
}

// runREPL reads questions line by line from in until EOF, "exit" or the
// context ends. The history grows only with answered questions.
func runREPL(ctx context.Context, svc asker, in io.Reader, out io.Writer) error {
	var history []core.Message
	scanner := bufio.NewScanner(in)
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}

		input := strings.TrimSpace(scanner.Text())
		switch strings.ToLower(input) {
		case "":
			continue
		case "exit", "quit":
			return nil
		}

		result := svc.Ask(ctx, history, input)
		if result.OK {
			history = append(history, result.Messages...)
		}
		fmt.Fprintln(out, result.Answer)
	}
}

func printHits(out io.Writer, results []*core.SearchResult) error {
	if len(results) == 0 {
		_, err := fmt.Fprintln(out, "No matching chunks")
		return err
	}
	for i, r := range results {
		c := r.Chunk
		if _, err := fmt.Fprintf(out, "%d. [%.4f] %s (chunk %d)\n%s\n\n",
			i+1, r.Score, c.Path, c.Position, excerpt(c.Content, 300)); err != nil {
			return err
		}
	}
	return nil
}

func excerpt(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
