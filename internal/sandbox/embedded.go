// SPDX-License-Identifier: Apache-2.0

package sandbox

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kusari-oss/cadsmith/internal/core/models"
)

// Session is a live CAD host. Apart from OnOwnerThread, its methods may only
// be called from the host's owner thread.
type Session interface {
	// OnOwnerThread reports whether the caller is on the host's owner thread
	OnOwnerThread() bool
	// ActiveDocument returns the active document or nil
	ActiveDocument() Document
	// Document returns the registered document with that name or nil
	Document(name string) Document
	NewDocument(name string) (Document, error)
	SetActiveDocument(name string) error
	// RunScript executes a macro and returns the output it printed. On failure
	// the output produced so far is still returned, and the error is usually a *ScriptError.
	RunScript(body, path string) ([]string, error)
}

// Document is a host document holding model objects
type Document interface {
	Name() string
	ObjectNames() []string
	// ActiveObject returns the label of the active object or ""
	ActiveObject() string
	Recompute() error
}

// GUISession is implemented by sessions that also drive a user interface
type GUISession interface {
	SyncActiveDocument(name string) error
	RefreshView() error
}

// ScriptError is a failure raised by the macro itself
type ScriptError struct {
	Message   string
	Traceback []string
}

func (e *ScriptError) Error() string {
	return e.Message
}

func (e *Engine) runEmbedded(ctx context.Context, scriptBody, scriptPath string) models.ScriptExecutionResult {
	var result models.ScriptExecutionResult
	work := func() {
		result = e.executeInSession(scriptBody, scriptPath)
	}

	switch {
	case e.session.OnOwnerThread():
		work()
	case e.dispatcher != nil:
		if err := e.dispatcher.Invoke(ctx, work); err != nil {
			result = models.ScriptExecutionResult{Error: fmt.Sprintf("could not reach the FreeCAD session: %v", err)}
		}
	default:
		e.logger.Warn("not on the FreeCAD owner thread and no dispatcher configured, executing directly")
		work()
	}

	if !result.Success && result.Error == "" {
		result.Error = "embedded execution did not complete"
	}
	result.ScriptPath = scriptPath
	result.Strategy = models.StrategyEmbedded
	return result
}

func (e *Engine) executeInSession(scriptBody, scriptPath string) models.ScriptExecutionResult {
	doc, err := e.ensureProjectDocument()
	if err != nil {
		return models.ScriptExecutionResult{Error: fmt.Sprintf("failed to prepare project document: %v", err)}
	}

	before := make(map[string]struct{})
	for _, name := range doc.ObjectNames() {
		before[name] = struct{}{}
	}

	output, runErr := e.callScript(scriptBody, scriptPath)
	e.refresh(doc)

	result := models.ScriptExecutionResult{
		OutputLog:       output,
		AffectedObjects: affectedObjects(before, doc),
	}
	if runErr != nil {
		var scriptErr *ScriptError
		if errors.As(runErr, &scriptErr) {
			result.OutputLog = append(result.OutputLog, scriptErr.Traceback...)
		}
		result.Error = runErr.Error()
		return result
	}
	result.Success = true
	return result
}

// callScript runs the macro, turning a panic in the session into an error
func (e *Engine) callScript(scriptBody, scriptPath string) (output []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("FreeCAD session panicked: %v", r)
		}
	}()
	return e.session.RunScript(scriptBody, scriptPath)
}

// ensureProjectDocument makes the named project document exist and be active.
// An active document only counts if it carries the project name; otherwise a
// registered document with that name is reused, or a new one is created.
func (e *Engine) ensureProjectDocument() (Document, error) {
	name := e.cfg.ProjectDocument

	var doc Document
	if active := e.session.ActiveDocument(); active != nil && active.Name() == name {
		doc = active
	} else if existing := e.session.Document(name); existing != nil {
		doc = existing
	} else {
		created, err := e.session.NewDocument(name)
		if err != nil {
			return nil, fmt.Errorf("error creating document %s: %w", name, err)
		}
		doc = created
	}

	if err := e.session.SetActiveDocument(doc.Name()); err != nil {
		return nil, fmt.Errorf("error activating document %s: %w", doc.Name(), err)
	}
	if gui, ok := e.session.(GUISession); ok {
		if err := gui.SyncActiveDocument(doc.Name()); err != nil {
			e.logger.Debug("failed to sync GUI active document", "document", doc.Name(), "error", err)
		}
	}
	return doc, nil
}

// refresh recomputes the active document and redraws the view. Failures are
// logged and dropped so they never mask the execution result.
func (e *Engine) refresh(doc Document) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Debug("view refresh panicked", "panic", r)
		}
	}()

	target := e.session.ActiveDocument()
	if target == nil {
		target = doc
	}
	if err := target.Recompute(); err != nil {
		e.logger.Debug("failed to recompute active document", "error", err)
	}
	if gui, ok := e.session.(GUISession); ok {
		if err := gui.RefreshView(); err != nil {
			e.logger.Debug("failed to refresh FreeCAD view", "error", err)
		}
	}
}

// affectedObjects lists objects created by the macro, or the active object when none were
func affectedObjects(before map[string]struct{}, doc Document) []string {
	var created []string
	for _, name := range doc.ObjectNames() {
		if _, seen := before[name]; !seen {
			created = append(created, name)
		}
	}
	if len(created) > 0 {
		return created
	}
	if active := strings.TrimSpace(doc.ActiveObject()); active != "" {
		return []string{active}
	}
	return nil
}
