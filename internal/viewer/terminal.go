package viewer

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"docflow/internal/pdf"
)

// Fetcher downloads the content behind a document URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (io.ReadCloser, error)
}

// Screen is a text Container.
type Screen struct {
	mu    sync.Mutex
	lines []string
}

func (s *Screen) Clear() {
	s.mu.Lock()
	s.lines = nil
	s.mu.Unlock()
}

func (s *Screen) Printf(format string, args ...any) {
	s.mu.Lock()
	s.lines = append(s.lines, fmt.Sprintf(format, args...))
	s.mu.Unlock()
}

func (s *Screen) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return strings.Join(s.lines, "\n")
}

// TerminalEngine renders a textual summary of a PDF instead of its pages.
type TerminalEngine struct {
	Fetcher Fetcher
}

func (e *TerminalEngine) Load(ctx context.Context, container Container, opts Options) (any, error) {
	rc, err := e.Fetcher.Fetch(ctx, opts.URL)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	content, info, err := pdf.Read(rc)
	if err != nil {
		return nil, err
	}

	doc := &TerminalDocument{Info: info, Toolbar: opts.Toolbar, content: content}
	if screen, ok := container.(*Screen); ok {
		doc.screen = screen
		screen.Printf("pages:   %d", info.Pages)
		screen.Printf("size:    %d bytes", info.Size)
		screen.Printf("toolbar: %s", strings.Join(opts.Toolbar, " "))
	}
	return doc, nil
}

// TerminalDocument is a loaded widget instance.
type TerminalDocument struct {
	Info    pdf.Info
	Toolbar []string

	mu      sync.Mutex
	content []byte
	screen  *Screen
}

// WriteTo copies the PDF bytes to w.
func (d *TerminalDocument) WriteTo(w io.Writer) (int64, error) {
	d.mu.Lock()
	content := d.content
	d.mu.Unlock()
	if content == nil {
		return 0, fmt.Errorf("document already disposed")
	}
	return io.Copy(w, bytes.NewReader(content))
}

func (d *TerminalDocument) Dispose() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.content = nil
	if d.screen != nil {
		d.screen.Clear()
	}
	return nil
}
