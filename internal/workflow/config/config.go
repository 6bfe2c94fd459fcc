// Package config loads and hot-reloads Workflow Engine (C8) step
// configurations: JSON documents with an ordered array of steps, each
// bearing an id, name, optional delay, prompts, verification, and
// dependencies.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	apperrors "github.com/agentmux/agentmux-core/internal/common/errors"
	"github.com/agentmux/agentmux-core/internal/common/logger"
)

// Well-known workflow config file names, recognized by convention.
const (
	BuildSpecConfigFile  = "build_spec_prompt.json"
	BuildTasksConfigFile = "build_tasks_prompt.json"
)

// Verification describes how a step's completion is checked.
type Verification struct {
	Type  string   `json:"type"` // e.g. "file_exists", "none"
	Paths []string `json:"paths"`
}

// Step is one unit of a workflow configuration.
type Step struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	DelayMinutes int          `json:"delayMinutes"`
	Prompts      []string     `json:"prompts"`
	Verification Verification `json:"verification"`
	Dependencies []string     `json:"dependencies"`
}

// Workflow is a named, ordered sequence of steps.
type Workflow struct {
	Name  string `json:"name"`
	Steps []Step `json:"steps"`
}

// StepByID returns the step with the given id, or false.
func (w *Workflow) StepByID(id string) (Step, bool) {
	for _, s := range w.Steps {
		if s.ID == id {
			return s, true
		}
	}
	return Step{}, false
}

// Position returns the index of the step with the given id, or -1.
func (w *Workflow) Position(id string) int {
	for i, s := range w.Steps {
		if s.ID == id {
			return i
		}
	}
	return -1
}

// Loader watches a directory of workflow JSON files and keeps parsed
// Workflow values current as those files change on disk.
type Loader struct {
	dir string
	log *logger.Logger

	mu        sync.RWMutex
	workflows map[string]*Workflow // file name -> parsed workflow

	watcher *fsnotify.Watcher
}

// New builds a Loader rooted at dir, performing an initial load. Loading
// fails only if dir exists but a present config file cannot be parsed;
// a missing directory is not an error (Load returns an empty set).
func New(dir string, log *logger.Logger) (*Loader, error) {
	l := &Loader{dir: dir, log: log.WithFields(zap.String("component", "workflow-config-loader")), workflows: make(map[string]*Workflow)}
	if err := l.loadAll(); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *Loader) loadAll() error {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return apperrors.StorageError("failed to list workflow config directory", err)
	}

	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		if err := l.loadFile(e.Name()); err != nil {
			return err
		}
	}
	return nil
}

func (l *Loader) loadFile(name string) error {
	path := filepath.Join(l.dir, name)
	data, err := os.ReadFile(path)
	if err != nil {
		return apperrors.StorageError("failed to read workflow config "+name, err)
	}

	var wf Workflow
	if err := json.Unmarshal(data, &wf); err != nil {
		return apperrors.InvalidInput(fmt.Sprintf("workflow config %s is not valid JSON: %v", name, err))
	}
	if wf.Name == "" {
		wf.Name = strings.TrimSuffix(name, ".json")
	}

	l.mu.Lock()
	l.workflows[name] = &wf
	l.mu.Unlock()
	return nil
}

// Get returns the workflow loaded from the given config file name, or
// a NotFound error if it has not been (successfully) loaded.
func (l *Loader) Get(fileName string) (*Workflow, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	wf, ok := l.workflows[fileName]
	if !ok {
		return nil, apperrors.NotFound("workflow config", fileName)
	}
	return wf, nil
}

// Watch starts an fsnotify watch on the config directory, reloading any
// changed *.json file in place. It runs until stopCh closes.
func (l *Loader) Watch(stopCh <-chan struct{}) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return apperrors.Internal("failed to start workflow config watcher", err)
	}
	if err := watcher.Add(l.dir); err != nil {
		watcher.Close()
		if os.IsNotExist(err) {
			return nil
		}
		return apperrors.Internal("failed to watch workflow config directory", err)
	}
	l.watcher = watcher

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-stopCh:
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !strings.HasSuffix(ev.Name, ".json") {
					continue
				}
				name := filepath.Base(ev.Name)
				if ev.Op&(fsnotify.Write|fsnotify.Create) != 0 {
					if err := l.loadFile(name); err != nil {
						l.log.Warn("failed to reload workflow config", zap.String("file", name), zap.Error(err))
					} else {
						l.log.Info("reloaded workflow config", zap.String("file", name))
					}
				}
				if ev.Op&fsnotify.Remove != 0 {
					l.mu.Lock()
					delete(l.workflows, name)
					l.mu.Unlock()
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				l.log.Warn("workflow config watcher error", zap.Error(err))
			}
		}
	}()
	return nil
}
