// Package taskregistry implements the Task Registry (C4): the in-memory,
// Storage-backed ledger linking a task file's current path to its
// assignment.
package taskregistry

import (
	"fmt"
	"path/filepath"

	"github.com/google/uuid"

	apperrors "github.com/agentmux/agentmux-core/internal/common/errors"
	"github.com/agentmux/agentmux-core/internal/common/logger"
	"github.com/agentmux/agentmux-core/internal/models"
	"github.com/agentmux/agentmux-core/internal/taskfolder"
	v1 "github.com/agentmux/agentmux-core/pkg/api/v1"
)

// Storage is the persistence surface the registry depends on.
type Storage interface {
	ListInProgressTasks() ([]*models.InProgressTask, error)
	GetInProgressTaskByPath(path string) (*models.InProgressTask, error)
	SaveInProgressTask(t *models.InProgressTask) error
	DeleteInProgressTask(id string) error
	DeleteInProgressTaskByPath(path string) error
}

// Registry manages Task Registry entries.
type Registry struct {
	store  Storage
	folder *taskfolder.Store
	log    *logger.Logger
}

// New builds a Task Registry over store and folder.
func New(store Storage, folder *taskfolder.Store, log *logger.Logger) *Registry {
	return &Registry{store: store, folder: folder, log: log}
}

// AssignTask appends a new registry entry with status assigned.
func (r *Registry) AssignTask(projectID, filePath, taskName string, role v1.Role, memberID, sessionID string) (*models.InProgressTask, error) {
	if _, err := r.store.GetInProgressTaskByPath(filePath); err == nil {
		return nil, apperrors.Conflict(fmt.Sprintf("task file %s is already assigned", filePath))
	}

	entry := &models.InProgressTask{
		ID:                uuid.New().String(),
		ProjectID:         projectID,
		TaskFilePath:       filePath,
		TaskName:          taskName,
		TargetRole:        role,
		AssignedMemberID:  memberID,
		AssignedSessionID: sessionID,
		Status:            v1.RegistryStatusAssigned,
		Priority:          v1.PriorityMedium,
	}
	if err := r.store.SaveInProgressTask(entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// UpdateStatus transitions an entry's status. A transition to done removes
// the entry entirely rather than persisting a terminal state.
func (r *Registry) UpdateStatus(entryID string, newStatus v1.RegistryEntryStatus, reason string) error {
	entries, err := r.store.ListInProgressTasks()
	if err != nil {
		return err
	}
	var entry *models.InProgressTask
	for _, e := range entries {
		if e.ID == entryID {
			entry = e
			break
		}
	}
	if entry == nil {
		return apperrors.NotFound("registry entry", entryID)
	}

	if string(newStatus) == "done" {
		return r.store.DeleteInProgressTask(entryID)
	}

	entry.Status = newStatus
	entry.BlockReason = reason
	return r.store.SaveInProgressTask(entry)
}

// RemoveTask deletes a registry entry.
func (r *Registry) RemoveTask(entryID string) error {
	return r.store.DeleteInProgressTask(entryID)
}

// GetOpenTasks returns every open task under projectPath, ordered by
// milestone then filename prefix.
func (r *Registry) GetOpenTasks(projectPath string) ([]*models.TaskFileInfo, error) {
	return r.folder.ListByStatus(projectPath, v1.TaskStatusOpen)
}

// SyncWithFileSystem reconciles the registry against the task-folder tree:
// entries whose file is no longer under in_progress/ (moved to done/ or any
// other status folder, or vanished) are removed; orphan in_progress/ files
// without entries are recorded as pending_assignment.
func (r *Registry) SyncWithFileSystem(projectPath, projectID string) error {
	entries, err := r.store.ListInProgressTasks()
	if err != nil {
		return err
	}

	inProgressFiles, err := r.folder.ListByStatus(projectPath, v1.TaskStatusInProgress)
	if err != nil {
		return err
	}
	inProgressByPath := make(map[string]*models.TaskFileInfo, len(inProgressFiles))
	for _, f := range inProgressFiles {
		inProgressByPath[filepath.Clean(f.FilePath)] = f
	}

	for _, e := range entries {
		if _, stillInProgress := inProgressByPath[filepath.Clean(e.TaskFilePath)]; !stillInProgress {
			if err := r.store.DeleteInProgressTask(e.ID); err != nil {
				return err
			}
			continue
		}
		delete(inProgressByPath, filepath.Clean(e.TaskFilePath))
	}

	for path, info := range inProgressByPath {
		if _, err := taskfolder.MilestoneIDFromPath(path); err != nil {
			r.log.Warn("skipping orphan in-progress file with unparsable path")
			continue
		}
		orphan := &models.InProgressTask{
			ID:           uuid.New().String(),
			ProjectID:    projectID,
			TaskFilePath: path,
			TaskName:     info.Title,
			TargetRole:   info.TargetRole,
			Status:       v1.RegistryStatusPendingAssignment,
			Priority:     info.Priority,
		}
		if orphan.Priority == "" {
			orphan.Priority = v1.PriorityMedium
		}
		if err := r.store.SaveInProgressTask(orphan); err != nil {
			return err
		}
	}

	return nil
}
