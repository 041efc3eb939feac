package captcha

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/term"
)

// ConsolePrompter asks on a terminal. It blocks until a line is read or ctx
// is done.
type ConsolePrompter struct {
	In  io.Reader
	Out io.Writer

	once   sync.Once
	reader *bufio.Reader
}

// NewConsolePrompter prompts on stdin/stdout.
func NewConsolePrompter() *ConsolePrompter {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		slog.Warn("stdin is not a terminal; manual captcha answers will be read from it anyway")
	}
	return &ConsolePrompter{In: os.Stdin, Out: os.Stdout}
}

func (p *ConsolePrompter) Prompt(ctx context.Context, imagePath string) (string, error) {
	p.once.Do(func() { p.reader = bufio.NewReader(p.In) })

	fmt.Fprintf(p.Out, "Automatic captcha recognition failed.\nOpen the image at %s\nEnter captcha: ", imagePath)

	type line struct {
		text string
		err  error
	}
	ch := make(chan line, 1)
	go func() {
		s, err := p.reader.ReadString('\n')
		if errors.Is(err, io.EOF) && s != "" {
			err = nil
		}
		ch <- line{s, err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case l := <-ch:
		if l.err != nil {
			return "", fmt.Errorf("read captcha answer: %w", l.err)
		}
		return strings.TrimSpace(l.text), nil
	}
}

// PendingPrompt is a manual entry request waiting for an answer.
type PendingPrompt struct {
	ID        string    `json:"id"`
	ImagePath string    `json:"imagePath"`
	Since     time.Time `json:"since"`
}

// ErrNoPending is returned by Answer when nothing is waiting.
var ErrNoPending = errors.New("no captcha is waiting for an answer")

// ChannelPrompter parks each prompt until Answer is called, letting a remote
// surface (HTTP, MCP) supply the text. At most one prompt is pending because
// runs are sequential.
type ChannelPrompter struct {
	mu      sync.Mutex
	pending *PendingPrompt
	answer  chan string
}

func NewChannelPrompter() *ChannelPrompter {
	return &ChannelPrompter{}
}

func (p *ChannelPrompter) Prompt(ctx context.Context, imagePath string) (string, error) {
	ch := make(chan string, 1)

	p.mu.Lock()
	if p.pending != nil {
		p.mu.Unlock()
		return "", errors.New("another captcha is already waiting for an answer")
	}
	p.pending = &PendingPrompt{ID: uuid.NewString(), ImagePath: imagePath, Since: time.Now()}
	p.answer = ch
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.pending = nil
		p.answer = nil
		p.mu.Unlock()
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case text := <-ch:
		return text, nil
	}
}

// Pending returns the waiting prompt, if any.
func (p *ChannelPrompter) Pending() (PendingPrompt, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pending == nil {
		return PendingPrompt{}, false
	}
	return *p.pending, true
}

// Answer delivers text to the waiting prompt. id must match the pending
// prompt unless it is empty.
func (p *ChannelPrompter) Answer(id, text string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pending == nil {
		return ErrNoPending
	}
	if id != "" && id != p.pending.ID {
		return fmt.Errorf("captcha %s is not pending", id)
	}
	select {
	case p.answer <- strings.TrimSpace(text):
		return nil
	default:
		return errors.New("captcha already answered")
	}
}
