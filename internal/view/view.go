// Package view holds the per-session state behind the dashboard pages:
// the last fetched collections, patched locally after each change, plus the
// banners and submit flag of each page.
package view

import (
	"errors"
	"sync"
	"time"

	"github.com/erazemk/stockboard/internal/backend"
	"github.com/erazemk/stockboard/internal/model"
)

// Flash is a one-shot pair of banners shown on the next render.
type Flash struct {
	Error   string
	Success string
}

// page is the state shared by every view: banners and the submitting flag.
type page struct {
	mu         sync.Mutex
	flash      Flash
	submitting bool
}

// BeginSubmit marks the view busy. It returns false if a submit is already
// in flight, in which case the caller must not proceed.
func (p *page) BeginSubmit() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.submitting {
		return false
	}
	p.submitting = true
	return true
}

// EndSubmit clears the busy flag.
func (p *page) EndSubmit() {
	p.mu.Lock()
	p.submitting = false
	p.mu.Unlock()
}

// Submitting reports whether a submit is in flight.
func (p *page) Submitting() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.submitting
}

// Fail sets the error banner and clears the success one.
func (p *page) Fail(msg string) {
	p.mu.Lock()
	p.flash = Flash{Error: msg}
	p.mu.Unlock()
}

// Succeed sets the success banner and clears the error one.
func (p *page) Succeed(msg string) {
	p.mu.Lock()
	p.flash = Flash{Success: msg}
	p.mu.Unlock()
}

// TakeFlash returns the pending banners and clears them.
func (p *page) TakeFlash() Flash {
	p.mu.Lock()
	defer p.mu.Unlock()
	f := p.flash
	p.flash = Flash{}
	return f
}

// Busy is the banner shown when a second submit arrives while one is running.
const Busy = "Another change is still being saved. Wait for it to finish."

// Describe turns an error from a form or backend call into a banner text.
// Backend messages are shown as sent; fallback covers everything else.
func Describe(err error, fallback string) string {
	var verr *model.ValidationError
	if errors.As(err, &verr) {
		return verr.Message
	}

	var herr *backend.HTTPError
	if errors.As(err, &herr) && herr.Detail != "" {
		return herr.Detail
	}

	var nerr *backend.NetworkError
	if errors.As(err, &nerr) {
		if nerr.Timeout {
			return "The API did not respond in time. Try again."
		}
		return "Could not connect to the API. Check that it is running."
	}

	return fallback
}

// Workspace is the view state of one browser session.
type Workspace struct {
	Products  *ProductsView
	Inventory *InventoryView

	lastUsed time.Time
}

// Registry hands out workspaces by session id. It is safe for concurrent use.
type Registry struct {
	mu         sync.Mutex
	workspaces map[string]*Workspace
	now        func() time.Time
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{workspaces: make(map[string]*Workspace), now: time.Now}
}

// Get returns the workspace for a session, creating it if needed.
func (r *Registry) Get(sessionID string) *Workspace {
	r.mu.Lock()
	defer r.mu.Unlock()

	ws, ok := r.workspaces[sessionID]
	if !ok {
		ws = &Workspace{Products: &ProductsView{}, Inventory: &InventoryView{}}
		r.workspaces[sessionID] = ws
	}
	ws.lastUsed = r.now()
	return ws
}

// Drop forgets a session's workspace.
func (r *Registry) Drop(sessionID string) {
	r.mu.Lock()
	delete(r.workspaces, sessionID)
	r.mu.Unlock()
}

// Sweep drops workspaces unused for longer than maxAge and returns how many
// were removed.
func (r *Registry) Sweep(maxAge time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-maxAge)
	n := 0
	for id, ws := range r.workspaces {
		if ws.lastUsed.Before(cutoff) {
			delete(r.workspaces, id)
			n++
		}
	}
	return n
}

// Len returns the number of live workspaces.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.workspaces)
}
