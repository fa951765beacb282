package web

import (
	"bytes"
	"context"
	"errors"
	"html/template"
	"strings"
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"github.com/yuin/goldmark"

	"pizzeria-rag/internal/llmservice"
	"pizzeria-rag/internal/models"
)

// Querier is satisfied by *rag.Pipeline.
type Querier interface {
	Query(ctx context.Context, question string) (*models.PromptResponse, error)
}

type AskRequest struct {
	Question string `json:"question"`
}

type AskResponse struct {
	Answer  string   `json:"answer"`
	Sources []string `json:"sources"`
}

// Server keeps one transcript for the whole process.
type Server struct {
	app     *fiber.App
	querier Querier
	title   string
	md      goldmark.Markdown

	mu    sync.Mutex
	turns []models.Turn
}

func NewServer(querier Querier, title string) *Server {
	s := &Server{
		app:     fiber.New(fiber.Config{DisableStartupMessage: true}),
		querier: querier,
		title:   title,
		md:      goldmark.New(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.app.Get("/", s.Index)
	s.app.Get("/health", s.Health)
	s.app.Post("/chat", s.Chat)
	s.app.Post("/reset", s.Reset)
	s.app.Post("/api/ask", s.Ask)
}

func (s *Server) App() *fiber.App { return s.app }

func (s *Server) Listen(addr string) error {
	log.Info().Str("addr", addr).Msg("web chat listening")
	return s.app.Listen(addr)
}

func (s *Server) Shutdown() error { return s.app.Shutdown() }

func (s *Server) Health(c *fiber.Ctx) error {
	return c.SendString("ok")
}

func (s *Server) Index(c *fiber.Ctx) error {
	data := pageData{Title: s.title}
	for _, t := range s.Transcript() {
		data.Turns = append(data.Turns, turnView{Question: t.Question, Answer: s.renderAnswer(t.Answer)})
	}

	var buf bytes.Buffer
	if err := page.Execute(&buf, data); err != nil {
		return err
	}
	c.Type("html", "utf-8")
	return c.Send(buf.Bytes())
}

// Chat answers the form message synchronously and redirects back to the page.
func (s *Server) Chat(c *fiber.Ctx) error {
	question := strings.TrimSpace(c.FormValue("message"))
	if question != "" {
		answer, err := s.answer(c.UserContext(), question)
		if err != nil {
			log.Error().Err(err).Str("question", question).Msg("failed to answer")
			answer = "Erreur : " + err.Error()
		}
		s.mu.Lock()
		s.turns = append(s.turns, models.Turn{Question: question, Answer: answer})
		s.mu.Unlock()
	}
	return c.Redirect("/", fiber.StatusSeeOther)
}

func (s *Server) Reset(c *fiber.Ctx) error {
	s.mu.Lock()
	s.turns = nil
	s.mu.Unlock()
	return c.Redirect("/", fiber.StatusSeeOther)
}

func (s *Server) Ask(c *fiber.Ctx) error {
	var req AskRequest
	if err := c.BodyParser(&req); err != nil || strings.TrimSpace(req.Question) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": `invalid request, expected JSON: {"question":"..."}`})
	}

	res, err := s.querier.Query(c.UserContext(), strings.TrimSpace(req.Question))
	if err != nil {
		var statusErr *llmservice.StatusError
		if errors.As(err, &statusErr) {
			return c.JSON(AskResponse{Answer: statusErr.Error(), Sources: []string{}})
		}
		log.Error().Err(err).Msg("failed to answer")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	sources := make([]string, len(res.Matches))
	for i, m := range res.Matches {
		sources[i] = m.Content
	}
	return c.JSON(AskResponse{Answer: res.Content, Sources: sources})
}

// Transcript returns a copy of the turns so far.
func (s *Server) Transcript() []models.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Turn, len(s.turns))
	copy(out, s.turns)
	return out
}

// answer maps a model server failure to its message so it shows up in the chat.
func (s *Server) answer(ctx context.Context, question string) (string, error) {
	res, err := s.querier.Query(ctx, question)
	if err != nil {
		var statusErr *llmservice.StatusError
		if errors.As(err, &statusErr) {
			return statusErr.Error(), nil
		}
		return "", err
	}
	return res.Content, nil
}

func (s *Server) renderAnswer(answer string) template.HTML {
	var buf bytes.Buffer
	if err := s.md.Convert([]byte(answer), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(answer))
	}
	return template.HTML(buf.String())
}
