package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/rs/zerolog/log"

	"pizzeria-rag/internal/llmservice"
)

const (
	Banner = "Assistant RAG Pizzeria. Tape 'exit', 'quit' ou 'stop' pour quitter."
	Prompt = "Vous: "
)

// Answerer is satisfied by *rag.Pipeline.
type Answerer interface {
	Answer(ctx context.Context, question string) (string, error)
}

// Renderer turns an answer into terminal text.
type Renderer func(content string) string

// Glamour renders Markdown for the terminal and falls back to the raw text.
func Glamour(content string) string {
	md, err := glamour.Render(content, "auto")
	if err != nil {
		return content
	}
	return strings.TrimSpace(md)
}

func Plain(content string) string { return content }

type Console struct {
	in     io.Reader
	out    io.Writer
	render Renderer
}

func New(in io.Reader, out io.Writer, render Renderer) *Console {
	if render == nil {
		render = Plain
	}
	return &Console{in: in, out: out, render: render}
}

// Run reads questions line by line until an exit word, EOF or a context
// cancellation. Generation failures reported by the model server are shown as
// the answer; any other error stops the loop.
func (c *Console) Run(ctx context.Context, answerer Answerer) error {
	fmt.Fprintln(c.out, Banner)
	scanner := bufio.NewScanner(c.in)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		fmt.Fprint(c.out, Prompt)
		if !scanner.Scan() {
			fmt.Fprintln(c.out)
			return scanner.Err()
		}

		question := strings.TrimSpace(scanner.Text())
		if question == "" {
			continue
		}
		if IsExit(question) {
			fmt.Fprintln(c.out, "Au revoir !")
			return nil
		}

		answer, err := answerer.Answer(ctx, question)
		if err != nil {
			var statusErr *llmservice.StatusError
			if !errors.As(err, &statusErr) {
				return err
			}
			log.Warn().Int("status", statusErr.StatusCode).Msg("generation failed")
			answer = statusErr.Error()
		}
		fmt.Fprintf(c.out, "Assistant: %s\n\n", c.render(answer))
	}
}

func IsExit(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "exit", "quit", "stop":
		return true
	}
	return false
}
