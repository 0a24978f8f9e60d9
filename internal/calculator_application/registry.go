package calculatorapplication

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Структура для хранения открытых рабочих пространств, безопасная для конкурентного доступа
type SafeWorkspaceMap struct {
	Workspace_map  map[string]*Workspace
	WorkspaceMutex sync.RWMutex
}

func (m *SafeWorkspaceMap) Write(w *Workspace) {
	m.WorkspaceMutex.Lock()
	defer m.WorkspaceMutex.Unlock()
	m.Workspace_map[w.ID()] = w
}

// Read отмечает использование под той же блокировкой, поэтому выгрузка не заберет
// пространство, которое только что выдали запросу
func (m *SafeWorkspaceMap) Read(id string) (*Workspace, bool) {
	m.WorkspaceMutex.RLock()
	defer m.WorkspaceMutex.RUnlock()
	w, ok := m.Workspace_map[id]
	if ok {
		w.touch()
	}
	return w, ok
}

func (m *SafeWorkspaceMap) Len() int {
	m.WorkspaceMutex.RLock()
	defer m.WorkspaceMutex.RUnlock()
	return len(m.Workspace_map)
}

type OpenFunc func(ctx context.Context, id string) (*Workspace, error)

// Manager открывает рабочие пространства по идентификатору сессии и выгружает простаивающие
type Manager struct {
	workspaces SafeWorkspaceMap
	openMu     sync.Mutex
	open       OpenFunc
	idleTTL    time.Duration
	cron       *cron.Cron
	log        *slog.Logger
}

func NewManager(open OpenFunc, idleTTL time.Duration, log *slog.Logger) *Manager {
	return &Manager{
		workspaces: SafeWorkspaceMap{Workspace_map: make(map[string]*Workspace)},
		open:       open,
		idleTTL:    idleTTL,
		log:        log,
	}
}

func (m *Manager) Get(ctx context.Context, id string) (*Workspace, error) {
	if w, ok := m.workspaces.Read(id); ok {
		return w, nil
	}

	// открываем под отдельным мьютексом, чтобы одна сессия не загрузилась дважды
	m.openMu.Lock()
	defer m.openMu.Unlock()
	if w, ok := m.workspaces.Read(id); ok {
		return w, nil
	}
	w, err := m.open(ctx, id)
	if err != nil {
		return nil, err
	}
	m.workspaces.Write(w)
	m.log.Debug("workspace opened", "session", id)
	return w, nil
}

func (m *Manager) Len() int { return m.workspaces.Len() }

// Evict выгружает из памяти сессии, которые не использовались дольше idleTTL.
// Пространство, занятое запросом, остается до следующего прохода.
func (m *Manager) Evict(now time.Time) int {
	cutoff := now.Add(-m.idleTTL)
	m.workspaces.WorkspaceMutex.Lock()
	defer m.workspaces.WorkspaceMutex.Unlock()

	evicted := 0
	for id, w := range m.workspaces.Workspace_map {
		// все изменения уже в хранилище, при следующем запросе сессия загрузится заново
		if w.idleSince(cutoff) {
			delete(m.workspaces.Workspace_map, id)
			evicted++
		}
	}
	if evicted > 0 {
		m.log.Info("idle workspaces evicted", "count", evicted)
	}
	return evicted
}

// StartEviction запускает выгрузку по расписанию cron
func (m *Manager) StartEviction(schedule string) error {
	m.cron = cron.New(cron.WithLocation(time.UTC))
	if _, err := m.cron.AddFunc(schedule, func() { m.Evict(time.Now()) }); err != nil {
		return err
	}
	m.cron.Start()
	m.log.Info("workspace eviction scheduled", "schedule", schedule)
	return nil
}

func (m *Manager) Stop() {
	if m.cron != nil {
		<-m.cron.Stop().Done()
	}
}
