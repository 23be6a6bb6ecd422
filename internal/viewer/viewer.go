// Package viewer mounts a PDF rendering widget for one document at a time
// and tears it down through whatever disposal method the widget offers.
package viewer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"docflow/internal/model"
)

// Options are handed to the rendering widget.
type Options struct {
	URL     string
	Toolbar []string
}

// Engine creates a widget instance inside a container.
type Engine interface {
	Load(ctx context.Context, container Container, opts Options) (any, error)
}

// Container hosts the widget.
type Container interface {
	Clear()
}

// Disposal capabilities a widget instance may expose. The first one found,
// in this order, is used.
type (
	Disposer  interface{ Dispose() error }
	Closer    interface{ Close() error }
	Destroyer interface{ Destroy() error }
	Unloader  interface{ Unload() error }
)

var ErrNoContainer = errors.New("viewer: container not available")

type Viewer struct {
	engine    Engine
	container Container
	baseURL   string
	logger    *slog.Logger

	mu       sync.Mutex
	instance any
	doc      *model.Document
	err      error
}

func New(engine Engine, container Container, baseURL string, logger *slog.Logger) *Viewer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Viewer{engine: engine, container: container, baseURL: baseURL, logger: logger}
}

// Open replaces any mounted widget with one showing doc, with the toolbar
// for role.
func (v *Viewer) Open(ctx context.Context, doc model.Document, role model.Role) error {
	v.Dispose()

	if v.container == nil {
		v.setErr(ErrNoContainer)
		return ErrNoContainer
	}
	opts := Options{URL: DocumentURL(v.baseURL, doc), Toolbar: ToolbarItems(role)}
	v.logger.Debug("viewer_load", "document_id", doc.ID, "url", opts.URL)

	inst, err := v.engine.Load(ctx, v.container, opts)
	if err != nil {
		err = fmt.Errorf("load document %s: %w", doc.ID, err)
		v.setErr(err)
		v.logger.Error("viewer_load_failed", "document_id", doc.ID, "error", err.Error())
		return err
	}

	v.mu.Lock()
	v.instance = inst
	v.doc = &doc
	v.err = nil
	v.mu.Unlock()
	return nil
}

func (v *Viewer) setErr(err error) {
	v.mu.Lock()
	v.err = err
	v.mu.Unlock()
}

// Instance is the mounted widget, or nil.
func (v *Viewer) Instance() any {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.instance
}

// Err is the last load failure.
func (v *Viewer) Err() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.err
}

// Dispose unmounts the widget. Failures are logged; the instance is
// forgotten either way.
func (v *Viewer) Dispose() {
	v.mu.Lock()
	inst := v.instance
	v.instance = nil
	v.doc = nil
	v.mu.Unlock()

	if inst == nil {
		return
	}
	if err := v.teardown(inst); err != nil {
		v.logger.Error("viewer_dispose_failed", "error", err.Error())
	}
}

func (v *Viewer) teardown(inst any) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("widget teardown panicked: %v", r)
		}
	}()

	switch w := inst.(type) {
	case Disposer:
		return w.Dispose()
	case Closer:
		return w.Close()
	case Destroyer:
		return w.Destroy()
	case Unloader:
		return w.Unload()
	}
	v.logger.Warn("viewer_no_dispose_method")
	if v.container != nil {
		v.container.Clear()
	}
	return nil
}
