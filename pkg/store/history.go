package store

import (
	"sync"
	"time"

	"github.com/ClausMunch/PIMMeUpScotty/pkg/models"
)

// HistoryStore holds per-role activation records in memory. Persistence is a
// separate concern: the orchestrator loads a RunState once at run start and
// saves it once at run end (see file.go).
type HistoryStore struct {
	mu    sync.RWMutex
	state *models.RunState
}

func NewHistoryStore(state *models.RunState) *HistoryStore {
	if state == nil {
		state = models.NewRunState()
	}
	if state.ActivationHistory == nil {
		state.ActivationHistory = map[models.RoleKind]map[string]*models.RoleHistoryRecord{}
	}
	for _, kind := range []models.RoleKind{models.RoleKindDirectory, models.RoleKindResource} {
		if state.ActivationHistory[kind] == nil {
			state.ActivationHistory[kind] = map[string]*models.RoleHistoryRecord{}
		}
	}
	return &HistoryStore{state: state}
}

func (s *HistoryStore) Get(kind models.RoleKind, key string) (*models.RoleHistoryRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, exists := s.state.ActivationHistory[kind][key]
	if !exists {
		return nil, false
	}
	copied := *record
	return &copied, true
}

// RecordSuccess marks an activation as granted for durationHours starting at
// now. Any confirmed working duration is preferable to unknown, so the first
// success always sets OptimalDurationHours; afterwards it only increases.
func (s *HistoryStore) RecordSuccess(kind models.RoleKind, key string, durationHours int, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record := s.ensureRecord(kind, key)
	expires := now.Add(time.Duration(durationHours) * time.Hour)
	record.LastActivatedAt = &now
	record.ExpiresAt = &expires
	record.ConsecutiveFailures = 0
	record.TotalActivations++
	if durationHours > record.OptimalDurationHours {
		record.OptimalDurationHours = durationHours
	}
}

func (s *HistoryStore) RecordFailure(kind models.RoleKind, key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record := s.ensureRecord(kind, key)
	record.ConsecutiveFailures++
	record.TotalFailures++
}

func (s *HistoryStore) SetUserID(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.UserID = userID
}

func (s *HistoryStore) SetPreferences(prefs models.Preferences) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Preferences = prefs
}

func (s *HistoryStore) MarkRun(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.LastRun = &now
}

// State returns the underlying RunState for persistence. Callers must not
// mutate it while the store is in use.
func (s *HistoryStore) State() *models.RunState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *HistoryStore) ensureRecord(kind models.RoleKind, key string) *models.RoleHistoryRecord {
	byKey, exists := s.state.ActivationHistory[kind]
	if !exists {
		byKey = map[string]*models.RoleHistoryRecord{}
		s.state.ActivationHistory[kind] = byKey
	}
	record, exists := byKey[key]
	if !exists {
		record = &models.RoleHistoryRecord{}
		byKey[key] = record
	}
	return record
}
