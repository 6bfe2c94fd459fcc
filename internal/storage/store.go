package storage

import "github.com/agentmux/agentmux-core/internal/common/logger"

// Store is the process-wide snapshot home: one struct gathering every
// per-entity snapshot file plus the sqlite ticket index cache. Components
// depend on Store through narrower interfaces defined alongside them
// (e.g. orchestrator.TeamStore) rather than importing this package
// directly, following the teacher's interface-at-point-of-use convention.
type Store struct {
	homeDir string
	log     *logger.Logger

	teams     *snapshotFile // teams.json
	projects  *snapshotFile // projects.json
	schedules *snapshotFile // scheduled_messages.json
	delivery  *snapshotFile // delivery_log.json
	registry  *snapshotFile // in_progress_tasks.json
	runtime   *snapshotFile // runtime.json
	orch      *snapshotFile // orchestrator.json

	tickets *TicketIndex
}

// New builds a Store rooted at homeDir, opening (but not yet populating)
// the sqlite ticket index at homeDir/tickets.db.
func New(homeDir string, log *logger.Logger) (*Store, error) {
	tickets, err := NewTicketIndex(homeDir)
	if err != nil {
		return nil, err
	}
	return &Store{
		homeDir:   homeDir,
		log:       log,
		teams:     newSnapshotFile(homeDir, "teams.json"),
		projects:  newSnapshotFile(homeDir, "projects.json"),
		schedules: newSnapshotFile(homeDir, "scheduled_messages.json"),
		delivery:  newSnapshotFile(homeDir, "delivery_log.json"),
		registry:  newSnapshotFile(homeDir, "in_progress_tasks.json"),
		runtime:   newSnapshotFile(homeDir, "runtime.json"),
		orch:      newSnapshotFile(homeDir, "orchestrator.json"),
		tickets:   tickets,
	}, nil
}

// Close releases the sqlite ticket index connection.
func (s *Store) Close() error {
	if s.tickets != nil {
		return s.tickets.Close()
	}
	return nil
}
