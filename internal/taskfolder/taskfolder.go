// Package taskfolder implements the Task-Folder Store (C3): the on-disk
// state machine for markdown task files under a project's
// .agentmux/tasks/<milestone>/<status>/ tree.
package taskfolder

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	apperrors "github.com/agentmux/agentmux-core/internal/common/errors"
	"github.com/agentmux/agentmux-core/internal/common/logger"
	"github.com/agentmux/agentmux-core/internal/models"
	v1 "github.com/agentmux/agentmux-core/pkg/api/v1"
)

// Statuses is the fixed, ordered set of task-folder status directories.
var Statuses = []v1.TaskStatus{
	v1.TaskStatusOpen,
	v1.TaskStatusInProgress,
	v1.TaskStatusDone,
	v1.TaskStatusBlocked,
}

var milestonePattern = regexp.MustCompile(`^m\d+_.*$`)

// Store manages task markdown files under a project's .agentmux/tasks tree.
type Store struct {
	log *logger.Logger
}

// New builds a Task-Folder Store.
func New(log *logger.Logger) *Store {
	return &Store{log: log}
}

// tasksRoot returns <projectPath>/.agentmux/tasks.
func tasksRoot(projectPath string) string {
	return filepath.Join(projectPath, ".agentmux", "tasks")
}

// EnsureMilestoneFolders creates the four status folders for milestoneID
// under projectPath, if absent.
func (s *Store) EnsureMilestoneFolders(projectPath, milestoneID string) error {
	if !milestonePattern.MatchString(milestoneID) {
		return apperrors.InvalidInput(fmt.Sprintf("milestone id %q must match m<N>_<slug>", milestoneID))
	}
	base := filepath.Join(tasksRoot(projectPath), milestoneID)
	for _, status := range Statuses {
		if err := os.MkdirAll(filepath.Join(base, string(status)), 0o755); err != nil {
			return apperrors.StorageError("failed to create task status folder", err)
		}
	}
	return nil
}

// parsedPath describes the milestone/status/filename parsed out of a task
// file's path under .agentmux/tasks.
type parsedPath struct {
	milestone string
	status    v1.TaskStatus
	filename  string
}

// parsePath validates that path is under some
// .agentmux/tasks/<milestone>/<status>/<file> and extracts its parts.
func parsePath(path string) (*parsedPath, error) {
	clean := filepath.ToSlash(filepath.Clean(path))
	parts := strings.Split(clean, "/")
	if len(parts) < 4 {
		return nil, apperrors.InvalidInput("task path is not under a recognized .agentmux/tasks/<milestone>/<status>/ folder")
	}
	filename := parts[len(parts)-1]
	status := v1.TaskStatus(parts[len(parts)-2])
	milestone := parts[len(parts)-3]

	if parts[len(parts)-4] != "tasks" {
		return nil, apperrors.InvalidInput("task path is not under a recognized .agentmux/tasks/<milestone>/<status>/ folder")
	}
	if !milestonePattern.MatchString(milestone) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("milestone segment %q does not match m<N>_<slug>", milestone))
	}
	if !isStatus(status) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("status segment %q is not a recognized task status", status))
	}
	return &parsedPath{milestone: milestone, status: status, filename: filename}, nil
}

func isStatus(s v1.TaskStatus) bool {
	for _, st := range Statuses {
		if st == s {
			return true
		}
	}
	return false
}

// MoveTaskToStatus atomically moves the task file at currentPath into
// targetStatus's folder, returning the new path. A move into the task's
// current status is a no-op returning currentPath unchanged. A move of a
// non-existent file fails with NotFound.
func (s *Store) MoveTaskToStatus(currentPath string, targetStatus v1.TaskStatus) (string, error) {
	parsed, err := parsePath(currentPath)
	if err != nil {
		return "", err
	}
	if !isStatus(targetStatus) {
		return "", apperrors.InvalidInput(fmt.Sprintf("target status %q is not recognized", targetStatus))
	}

	if _, err := os.Stat(currentPath); err != nil {
		if os.IsNotExist(err) {
			return "", apperrors.NotFound("task file", currentPath)
		}
		return "", apperrors.StorageError("failed to stat task file", err)
	}

	if parsed.status == targetStatus {
		return currentPath, nil
	}

	dir := filepath.Dir(filepath.Dir(currentPath))
	newPath := filepath.Join(dir, string(targetStatus), parsed.filename)

	if err := os.MkdirAll(filepath.Dir(newPath), 0o755); err != nil {
		return "", apperrors.MoveFailed(fmt.Sprintf("failed to create target folder: %v", err))
	}

	if err := os.Rename(currentPath, newPath); err != nil {
		if copyErr := copyThenDelete(currentPath, newPath); copyErr != nil {
			return "", apperrors.MoveFailed(fmt.Sprintf("failed to move task file: %v", copyErr))
		}
	}

	if _, err := os.Stat(newPath); err != nil {
		return "", apperrors.MoveFailed("move did not verify: target file missing after move")
	}

	return newPath, nil
}

// copyThenDelete is the rename fallback for cross-device moves.
func copyThenDelete(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Remove(src)
}

// ListByStatus enumerates task files for every milestone at the given
// status, ordered by milestone then filename.
func (s *Store) ListByStatus(projectPath string, status v1.TaskStatus) ([]*models.TaskFileInfo, error) {
	root := tasksRoot(projectPath)
	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, apperrors.StorageError("failed to list milestones", err)
	}

	var milestones []string
	for _, e := range entries {
		if e.IsDir() && milestonePattern.MatchString(e.Name()) {
			milestones = append(milestones, e.Name())
		}
	}
	sortStrings(milestones)

	var out []*models.TaskFileInfo
	for _, milestone := range milestones {
		dir := filepath.Join(root, milestone, string(status))
		files, err := os.ReadDir(dir)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, apperrors.StorageError("failed to list task files", err)
		}
		var names []string
		for _, f := range files {
			if !f.IsDir() && strings.HasSuffix(f.Name(), ".md") {
				names = append(names, f.Name())
			}
		}
		sortStrings(names)

		for _, name := range names {
			path := filepath.Join(dir, name)
			info, err := s.ParseFile(path)
			if err != nil {
				s.log.Warn("skipping unparsable task file", zap.String("path", path), zap.Error(err))
				continue
			}
			out = append(out, info)
		}
	}
	return out, nil
}

func sortStrings(ss []string) {
	for i := 1; i < len(ss); i++ {
		for j := i; j > 0 && ss[j-1] > ss[j]; j-- {
			ss[j-1], ss[j] = ss[j], ss[j-1]
		}
	}
}

// ParseFile reads path and extracts its frontmatter into a TaskFileInfo.
func (s *Store) ParseFile(path string) (*models.TaskFileInfo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.StorageError("failed to read task file", err)
	}

	fm, err := parseFrontmatter(data)
	if err != nil {
		return nil, apperrors.InvalidInput(fmt.Sprintf("task file %s: %v", path, err))
	}
	if fm.Priority == "" {
		fm.Priority = v1.PriorityMedium
	}
	if fm.Status == "" {
		if parsed, perr := parsePath(path); perr == nil {
			fm.Status = parsed.status
		}
	}

	return &models.TaskFileInfo{TaskFrontmatter: *fm, FilePath: path}, nil
}

const frontmatterDelim = "---"

// parseFrontmatter extracts and decodes the YAML block bounded by two "---"
// lines at the top of a task markdown file.
func parseFrontmatter(data []byte) (*models.TaskFrontmatter, error) {
	text := string(data)
	lines := strings.Split(text, "\n")
	if len(lines) == 0 || strings.TrimSpace(lines[0]) != frontmatterDelim {
		return nil, fmt.Errorf("missing frontmatter delimiter")
	}

	end := -1
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == frontmatterDelim {
			end = i
			break
		}
	}
	if end == -1 {
		return nil, fmt.Errorf("unterminated frontmatter block")
	}

	block := strings.Join(lines[1:end], "\n")
	var fm models.TaskFrontmatter
	if err := yaml.Unmarshal([]byte(block), &fm); err != nil {
		return nil, fmt.Errorf("invalid frontmatter yaml: %w", err)
	}
	return &fm, nil
}

// MilestoneIDFromPath extracts the milestone segment from a task path, for
// callers (e.g. the Task Registry sync) that only need that piece.
func MilestoneIDFromPath(path string) (string, error) {
	p, err := parsePath(path)
	if err != nil {
		return "", err
	}
	return p.milestone, nil
}

// StatusFromPath extracts the status segment from a task path.
func StatusFromPath(path string) (v1.TaskStatus, error) {
	p, err := parsePath(path)
	if err != nil {
		return "", err
	}
	return p.status, nil
}

// NextFilenamePrefix returns a zero-padded 2-digit ordering prefix one past
// the highest existing prefix among names, for synthesizing new task files.
func NextFilenamePrefix(names []string) string {
	max := 0
	for _, n := range names {
		parts := strings.SplitN(n, "_", 2)
		if len(parts) == 0 {
			continue
		}
		if v, err := strconv.Atoi(parts[0]); err == nil && v > max {
			max = v
		}
	}
	return fmt.Sprintf("%02d", max+1)
}
