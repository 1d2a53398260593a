// Package terminal runs the riddle game as a line-oriented console session.
package terminal

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/gokatarajesh/riddle-gift/internal/game"
	"github.com/gokatarajesh/riddle-gift/internal/llm"
)

// Game is the part of the controller a console session drives.
type Game interface {
	State(ctx context.Context, playerID string) (game.View, error)
	RevealHint(ctx context.Context, playerID string) (game.View, error)
	SubmitAnswer(ctx context.Context, playerID, answer string, onDelta llm.DeltaFunc) (game.Outcome, error)
	AskAssistant(ctx context.Context, playerID, query string, onDelta llm.DeltaFunc) (string, error)
	Reset(ctx context.Context, playerID string) (game.View, error)
}

// Console commands. Anything else is an answer.
const (
	CmdHint   = ":pista"
	CmdGenie  = ":genio"
	CmdReset  = ":reiniciar"
	CmdHelp   = ":ayuda"
	CmdQuit   = ":salir"
	genieName = "El Genio"
)

// Session plays one player's game over a reader and a writer.
type Session struct {
	game     Game
	playerID string

	stdinReader  *bufio.Reader
	stdoutWriter io.Writer
	bold         *color.Color
	italic       *color.Color
	green        *color.Color
	red          *color.Color
	magenta      *color.Color
}

// NewSession wires a console session for playerID.
func NewSession(g Game, playerID string, in io.Reader, out io.Writer) *Session {
	return &Session{
		game:         g,
		playerID:     playerID,
		stdinReader:  bufio.NewReader(in),
		stdoutWriter: out,
		bold:         color.New(color.Bold),
		italic:       color.New(color.Italic),
		green:        color.New(color.FgGreen, color.Bold),
		red:          color.New(color.FgRed, color.Bold),
		magenta:      color.New(color.FgMagenta),
	}
}

// Run loops until the player quits, input ends, or ctx is cancelled.
func (s *Session) Run(ctx context.Context) error {
	view, err := s.game.State(ctx, s.playerID)
	if err != nil {
		return fmt.Errorf("load state: %w", err)
	}
	if view.Welcome {
		s.bold.Fprintf(s.stdoutWriter, "¡Bienvenida al juego de acertijos!\n")
	}
	s.printHelp()
	s.printView(view)

	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		fmt.Fprint(s.stdoutWriter, "> ")
		line, err := s.stdinReader.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("read input: %w", err)
		}
		eof := errors.Is(err, io.EOF)

		line = strings.TrimSpace(line)
		if line == "" {
			if eof {
				fmt.Fprintln(s.stdoutWriter)
				return nil
			}
			continue
		}

		quit, err := s.handle(ctx, line)
		if err != nil {
			return err
		}
		if quit || eof {
			return nil
		}
	}
}

// handle runs one input line. Game errors are shown and the loop continues;
// only I/O failures are returned.
func (s *Session) handle(ctx context.Context, line string) (bool, error) {
	command, rest, _ := strings.Cut(line, " ")
	switch strings.ToLower(command) {
	case CmdQuit:
		fmt.Fprintln(s.stdoutWriter, "¡Hasta la próxima!")
		return true, nil
	case CmdHelp:
		s.printHelp()
	case CmdHint:
		view, err := s.game.RevealHint(ctx, s.playerID)
		if err != nil {
			s.printError(err)
			return false, nil
		}
		s.printView(view)
	case CmdGenie:
		s.magenta.Fprintf(s.stdoutWriter, "%s: ", genieName)
		_, err := s.game.AskAssistant(ctx, s.playerID, strings.TrimSpace(rest), s.write)
		fmt.Fprintln(s.stdoutWriter)
		if err != nil {
			s.printError(err)
		}
	case CmdReset:
		view, err := s.game.Reset(ctx, s.playerID)
		if err != nil {
			s.printError(err)
			return false, nil
		}
		fmt.Fprintln(s.stdoutWriter, "Progreso reiniciado.")
		s.printView(view)
	default:
		return s.answer(ctx, line)
	}
	return false, nil
}

// answer streams the grader's remark as it arrives and prints the verdict
// once grading is done.
func (s *Session) answer(ctx context.Context, answer string) (bool, error) {
	streamed := false
	outcome, err := s.game.SubmitAnswer(ctx, s.playerID, answer, func(delta string) error {
		streamed = true
		_, err := s.italic.Fprint(s.stdoutWriter, delta)
		return err
	})
	if streamed {
		fmt.Fprintln(s.stdoutWriter)
	}
	if err != nil {
		s.printError(err)
		return false, nil
	}
	if outcome.Correct {
		s.green.Fprintln(s.stdoutWriter, "¡CORRECTO!")
	} else {
		s.red.Fprintln(s.stdoutWriter, "INCORRECTO")
	}
	if !streamed && outcome.Feedback != "" {
		s.italic.Fprintln(s.stdoutWriter, outcome.Feedback)
	}
	fmt.Fprintln(s.stdoutWriter)
	s.printView(outcome.View)
	return false, nil
}

func (s *Session) write(delta string) error {
	_, err := io.WriteString(s.stdoutWriter, delta)
	return err
}

func (s *Session) printHelp() {
	fmt.Fprintf(s.stdoutWriter, "Escribí tu respuesta, o usá %s, %s [pregunta], %s, %s o %s.\n",
		CmdHint, CmdGenie, CmdReset, CmdHelp, CmdQuit)
}

func (s *Session) printError(err error) {
	s.red.Fprintln(s.stdoutWriter, game.Message(err))
}

func (s *Session) printView(view game.View) {
	if view.Complete {
		s.printReward(view)
		return
	}
	if view.Question == nil {
		return
	}
	s.bold.Fprintf(s.stdoutWriter, "Acertijo %d de %d\n", view.Position, view.Total)
	fmt.Fprintln(s.stdoutWriter, view.Question.Prompt)
	for i, hint := range view.Question.RevealedHints {
		s.italic.Fprintf(s.stdoutWriter, "  Pista %d: %s\n", i+1, hint)
	}
	if !view.HasMoreHints() {
		fmt.Fprintln(s.stdoutWriter, "  (no quedan más pistas)")
	}
}

func (s *Session) printReward(view game.View) {
	s.green.Fprintln(s.stdoutWriter, "¡Completaste todos los acertijos!")
	if view.Reward == nil {
		return
	}
	s.bold.Fprintln(s.stdoutWriter, view.Reward.Title)
	if view.Reward.Message != "" {
		fmt.Fprintln(s.stdoutWriter, view.Reward.Message)
	}
	for _, section := range view.Reward.Sections {
		s.bold.Fprintln(s.stdoutWriter, section.Heading)
		for _, item := range section.Items {
			fmt.Fprintf(s.stdoutWriter, "  - %s\n", item)
		}
	}
}
