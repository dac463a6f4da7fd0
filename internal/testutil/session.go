// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/kusari-oss/cadsmith/internal/sandbox"
)

// FakeDocument is an in-memory host document
type FakeDocument struct {
	mu           sync.Mutex
	name         string
	objects      []string
	active       string
	RecomputeErr error
	Recomputes   int
}

// NewFakeDocument creates a document holding objects
func NewFakeDocument(name string, objects ...string) *FakeDocument {
	return &FakeDocument{name: name, objects: append([]string(nil), objects...)}
}

// Name implements sandbox.Document
func (d *FakeDocument) Name() string { return d.name }

// ObjectNames implements sandbox.Document
func (d *FakeDocument) ObjectNames() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.objects...)
}

// ActiveObject implements sandbox.Document
func (d *FakeDocument) ActiveObject() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.active
}

// Recompute implements sandbox.Document
func (d *FakeDocument) Recompute() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Recomputes++
	return d.RecomputeErr
}

// AddObject creates an object and makes it active
func (d *FakeDocument) AddObject(name string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.objects = append(d.objects, name)
	d.active = name
}

// SetActiveObject marks an object label as active
func (d *FakeDocument) SetActiveObject(label string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.active = label
}

// ScriptFunc simulates a macro against the session
type ScriptFunc func(s *FakeSession, body string) ([]string, error)

// FakeSession is an in-memory host session that also behaves like a GUI host
type FakeSession struct {
	mu     sync.Mutex
	docs   map[string]*FakeDocument
	active string
	owner  bool

	Script        ScriptFunc
	RunCalls      int
	OffOwnerCalls int
	GUISyncs      []string
	Refreshes     int
	RefreshErr    error
	RefreshPanics bool
}

// NewFakeSession creates a session; onOwnerThread fixes what OnOwnerThread reports
func NewFakeSession(onOwnerThread bool, docs ...*FakeDocument) *FakeSession {
	s := &FakeSession{docs: map[string]*FakeDocument{}, owner: onOwnerThread}
	for _, d := range docs {
		s.docs[d.Name()] = d
	}
	return s
}

// SetOwnerThread changes what OnOwnerThread reports
func (s *FakeSession) SetOwnerThread(owner bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.owner = owner
}

// OnOwnerThread implements sandbox.Session
func (s *FakeSession) OnOwnerThread() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.owner
}

// ActiveDocument implements sandbox.Session
func (s *FakeSession) ActiveDocument() sandbox.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d, ok := s.docs[s.active]; ok {
		return d
	}
	return nil
}

// Document implements sandbox.Session
func (s *FakeSession) Document(name string) sandbox.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d, ok := s.docs[name]; ok {
		return d
	}
	return nil
}

// Doc returns the concrete document for assertions
func (s *FakeSession) Doc(name string) *FakeDocument {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.docs[name]
}

// ActiveName returns the active document name
func (s *FakeSession) ActiveName() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// NewDocument implements sandbox.Session
func (s *FakeSession) NewDocument(name string) (sandbox.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.docs[name]; exists {
		return nil, fmt.Errorf("document %s already exists", name)
	}
	d := NewFakeDocument(name)
	s.docs[name] = d
	return d, nil
}

// SetActiveDocument implements sandbox.Session
func (s *FakeSession) SetActiveDocument(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[name]; !ok {
		return fmt.Errorf("no document named %s", name)
	}
	s.active = name
	return nil
}

// RunScript implements sandbox.Session
func (s *FakeSession) RunScript(body, _ string) ([]string, error) {
	s.mu.Lock()
	s.RunCalls++
	if !s.owner {
		s.OffOwnerCalls++
	}
	script := s.Script
	s.mu.Unlock()

	if script == nil {
		return []string{"ok"}, nil
	}
	return script(s, body)
}

// SyncActiveDocument implements sandbox.GUISession
func (s *FakeSession) SyncActiveDocument(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.GUISyncs = append(s.GUISyncs, name)
	return nil
}

// RefreshView implements sandbox.GUISession
func (s *FakeSession) RefreshView() error {
	s.mu.Lock()
	s.Refreshes++
	panics, err := s.RefreshPanics, s.RefreshErr
	s.mu.Unlock()
	if panics {
		panic("view is gone")
	}
	return err
}

// InlineDispatcher runs requests synchronously, marking the session as being on
// its owner thread for the duration of each request
type InlineDispatcher struct {
	Session *FakeSession
	Calls   int
}

// Invoke implements sandbox.Dispatcher
func (d *InlineDispatcher) Invoke(ctx context.Context, fn func()) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.Calls++
	if d.Session != nil {
		d.Session.SetOwnerThread(true)
		defer d.Session.SetOwnerThread(false)
	}
	fn()
	return nil
}
