package storage

import (
	"database/sql"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	apperrors "github.com/agentmux/agentmux-core/internal/common/errors"
	"github.com/agentmux/agentmux-core/internal/models"
	v1 "github.com/agentmux/agentmux-core/pkg/api/v1"
)

// TicketIndex is a sqlite-backed cache over task-folder files, letting
// getTickets(projectPath, filter) answer without re-walking the filesystem
// on every call. It is a cache, not a source of truth: the Task-Folder
// Store's files remain authoritative and RefreshProject repopulates it.
type TicketIndex struct {
	db *sql.DB
}

// NewTicketIndex opens (creating if absent) the ticket index database at
// homeDir/tickets.db using the pure-Go sqlite driver, so the module stays
// cgo-free.
func NewTicketIndex(homeDir string) (*TicketIndex, error) {
	dbPath := filepath.Join(homeDir, "tickets.db")
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=foreign_keys(on)")
	if err != nil {
		return nil, apperrors.StorageError("failed to open ticket index", err)
	}
	db.SetMaxOpenConns(1)

	idx := &TicketIndex{db: db}
	if err := idx.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return idx, nil
}

func (t *TicketIndex) initSchema() error {
	const schema = `
	CREATE TABLE IF NOT EXISTS tickets (
		project_path TEXT NOT NULL,
		file_path    TEXT NOT NULL,
		id           TEXT NOT NULL,
		title        TEXT NOT NULL DEFAULT '',
		status       TEXT NOT NULL DEFAULT '',
		priority     TEXT NOT NULL DEFAULT '',
		target_role  TEXT NOT NULL DEFAULT '',
		milestone_id TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (project_path, file_path)
	);
	CREATE INDEX IF NOT EXISTS idx_tickets_project_status ON tickets(project_path, status);
	CREATE INDEX IF NOT EXISTS idx_tickets_project_role ON tickets(project_path, target_role);
	`
	if _, err := t.db.Exec(schema); err != nil {
		return apperrors.StorageError("failed to initialize ticket index schema", err)
	}
	return nil
}

// Close closes the underlying database handle.
func (t *TicketIndex) Close() error { return t.db.Close() }

// RefreshProject replaces the cached rows for projectPath with the given
// freshly-scanned tickets, inside one transaction.
func (t *TicketIndex) RefreshProject(projectPath string, tickets []*models.TaskFileInfo) error {
	tx, err := t.db.Begin()
	if err != nil {
		return apperrors.StorageError("failed to begin ticket refresh", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM tickets WHERE project_path = ?`, projectPath); err != nil {
		return apperrors.StorageError("failed to clear ticket index", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO tickets
		(project_path, file_path, id, title, status, priority, target_role, milestone_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return apperrors.StorageError("failed to prepare ticket insert", err)
	}
	defer stmt.Close()

	for _, tk := range tickets {
		if _, err := stmt.Exec(projectPath, tk.FilePath, tk.ID, tk.Title,
			string(tk.Status), string(tk.Priority), string(tk.TargetRole), tk.MilestoneID); err != nil {
			return apperrors.StorageError("failed to index ticket "+tk.FilePath, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return apperrors.StorageError("failed to commit ticket refresh", err)
	}
	return nil
}

// TicketFilter narrows GetTickets to a subset of a project's cached tickets.
// Zero-valued fields are not applied.
type TicketFilter struct {
	Status     v1.TaskStatus
	TargetRole v1.Role
	MilestoneID string
}

// GetTickets scans the cached ticket index for projectPath, applying filter.
func (t *TicketIndex) GetTickets(projectPath string, filter TicketFilter) ([]*models.TaskFileInfo, error) {
	query := strings.Builder{}
	query.WriteString(`SELECT file_path, id, title, status, priority, target_role, milestone_id
		FROM tickets WHERE project_path = ?`)
	args := []interface{}{projectPath}

	if filter.Status != "" {
		query.WriteString(` AND status = ?`)
		args = append(args, string(filter.Status))
	}
	if filter.TargetRole != "" {
		query.WriteString(` AND target_role = ?`)
		args = append(args, string(filter.TargetRole))
	}
	if filter.MilestoneID != "" {
		query.WriteString(` AND milestone_id = ?`)
		args = append(args, filter.MilestoneID)
	}
	query.WriteString(` ORDER BY file_path`)

	rows, err := t.db.Query(query.String(), args...)
	if err != nil {
		return nil, apperrors.StorageError("failed to query ticket index", err)
	}
	defer rows.Close()

	var out []*models.TaskFileInfo
	for rows.Next() {
		var tk models.TaskFileInfo
		if err := rows.Scan(&tk.FilePath, &tk.ID, &tk.Title, &tk.Status, &tk.Priority, &tk.TargetRole, &tk.MilestoneID); err != nil {
			return nil, apperrors.StorageError("failed to scan ticket row", err)
		}
		out = append(out, &tk)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.StorageError("failed to iterate ticket rows", err)
	}
	return out, nil
}

// GetTickets is the Store-level convenience wrapper spec.md describes as
// getTickets(projectPath, filter).
func (s *Store) GetTickets(projectPath string, filter TicketFilter) ([]*models.TaskFileInfo, error) {
	return s.tickets.GetTickets(projectPath, filter)
}

// RefreshTickets repopulates the ticket index for projectPath.
func (s *Store) RefreshTickets(projectPath string, tickets []*models.TaskFileInfo) error {
	return s.tickets.RefreshProject(projectPath, tickets)
}

