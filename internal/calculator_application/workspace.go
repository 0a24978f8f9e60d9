package calculatorapplication

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ERRORIK404/custom_calc/pkg/evaluator"
	"github.com/ERRORIK404/custom_calc/pkg/formulas"
	"github.com/ERRORIK404/custom_calc/pkg/history"
	"github.com/ERRORIK404/custom_calc/pkg/preprocessor"
	"github.com/ERRORIK404/custom_calc/pkg/session"
	structs "github.com/ERRORIK404/custom_calc/pkg/structs"
)

// Store — постоянное хранилище рабочих пространств (реализуется database.DB)
type Store interface {
	AddHistoryEntry(ctx context.Context, sessionID string, item structs.HistoryItem) error
	DeleteHistoryEntry(ctx context.Context, sessionID, id string) error
	ClearHistory(ctx context.Context, sessionID string) error
	GetHistory(ctx context.Context, sessionID string) ([]structs.HistoryItem, error)

	SaveFormula(ctx context.Context, sessionID string, formula structs.CustomFormula) error
	DeleteFormula(ctx context.Context, sessionID, id string) error
	GetFormulas(ctx context.Context, sessionID string) ([]structs.CustomFormula, error)

	GetValue(ctx context.Context, sessionID, key string) ([]byte, error)
	PutValue(ctx context.Context, sessionID, key string, value []byte) error
}

type WorkspaceOptions struct {
	DisplayLogSize int
	AngleMode      structs.AngleMode
	// Формулы, которые получает новая сессия
	Presets []structs.CustomFormula
}

// Workspace — все состояние одной сессии калькулятора.
// Каждое действие пользователя выполняется целиком под мьютексом.
type Workspace struct {
	mu        sync.Mutex
	id        string
	session   *session.Session
	history   *history.Log
	formulas  *formulas.Store
	evaluator evaluator.Evaluator
	store     Store
	log       *slog.Logger
	// unix nano, читается менеджером без мьютекса
	lastSeen atomic.Int64
}

// OpenWorkspace загружает историю, формулы и значения переменных.
// Пока загрузка не закончилась, рабочее пространство никому не доступно.
func OpenWorkspace(ctx context.Context, id string, ev evaluator.Evaluator, store Store, opts WorkspaceOptions, log *slog.Logger) (*Workspace, error) {
	w := &Workspace{
		id:        id,
		session:   session.New(opts.DisplayLogSize, opts.AngleMode),
		evaluator: ev,
		store:     store,
		log:       log.With("session", id),
	}
	w.touch()

	items, err := store.GetHistory(ctx, id)
	if err != nil {
		return nil, err
	}
	w.history = history.New(items...)

	saved, err := store.GetFormulas(ctx, id)
	if err != nil {
		return nil, err
	}
	raw, err := store.GetValue(ctx, id, formulas.VariableValuesKey)
	if err != nil {
		return nil, err
	}

	values := formulas.NewVariableValues()
	corrupt := false
	if err := values.Load(raw); err != nil {
		w.log.Warn("stored variable values are corrupt, starting empty", "error", err)
		corrupt = true
	}
	w.formulas = formulas.NewStore(values)
	pruned := w.formulas.Load(saved)

	switch {
	case raw == nil:
		// новая сессия: раздаем предустановленные формулы
		for _, preset := range opts.Presets {
			saved, err := w.formulas.Save(preset)
			if err != nil {
				w.log.Warn("preset formula skipped", "formula", preset.ID, "error", err)
				continue
			}
			w.persistFormula(ctx, saved)
		}
		w.persistValues(ctx)
	case pruned || corrupt:
		w.persistValues(ctx)
	}
	return w, nil
}

func (w *Workspace) ID() string { return w.id }

func (w *Workspace) touch() { w.lastSeen.Store(time.Now().UnixNano()) }

func (w *Workspace) LastSeen() time.Time { return time.Unix(0, w.lastSeen.Load()) }

// idleSince: пространство никем не занято и не использовалось с cutoff
func (w *Workspace) idleSince(cutoff time.Time) bool {
	if !w.mu.TryLock() {
		return false
	}
	defer w.mu.Unlock()
	return w.LastSeen().Before(cutoff)
}

func (w *Workspace) Snapshot() structs.Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.touch()
	return w.snapshot()
}

func (w *Workspace) snapshot() structs.Snapshot {
	return structs.Snapshot{
		Input:             w.session.Input(),
		Result:            w.session.Result(),
		ResultUnit:        w.session.ResultUnit(),
		DisplayLines:      w.session.DisplayLines(),
		PreviousAnswer:    w.session.PreviousAnswer(),
		AngleMode:         w.session.AngleMode(),
		SelectedFormulaID: w.formulas.Selected(),
		History:           w.history.Recent(),
		Formulas:          w.formulas.List(),
	}
}

// Press обрабатывает нажатие кнопки, "=" запускает вычисление
func (w *Workspace) Press(ctx context.Context, button string) (structs.Snapshot, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.touch()

	action, err := w.session.Press(button)
	if err != nil {
		return w.snapshot(), err
	}
	if action == session.ActionEvaluate {
		w.calculate(ctx, w.session.Input(), "")
	}
	return w.snapshot(), nil
}

// Calculate заменяет ввод выражением и вычисляет его
func (w *Workspace) Calculate(ctx context.Context, input string) structs.Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.touch()

	w.session.SetInput(input)
	w.calculate(ctx, input, "")
	return w.snapshot()
}

// UseFormula подставляет значения переменных и вычисляет формулу с ее единицей
func (w *Workspace) UseFormula(ctx context.Context, id string) (structs.Snapshot, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.touch()

	expression, formula, err := w.formulas.Expand(id)
	if err != nil {
		return w.snapshot(), err
	}
	w.session.SetInput(expression)
	w.calculate(ctx, expression, formula.ResultUnit)
	return w.snapshot(), nil
}

func (w *Workspace) calculate(ctx context.Context, input, unit string) {
	expression := preprocessor.Preprocess(input, w.session.AngleMode(), w.session.PreviousAnswer())
	result, err := w.evaluator.Evaluate(ctx, expression)
	if err != nil {
		w.log.Debug("calculation error", "input", input, "expression", expression, "error", err)
		w.session.Fail()
		return
	}

	w.session.Succeed(input, result, unit)
	item := structs.NewHistoryItem(input, result, unit)
	w.history.Append(item)
	w.formulas.ClearSelection()
	if err := w.store.AddHistoryEntry(ctx, w.id, item); err != nil {
		w.log.Error("history entry not saved", "error", err)
	}
}

func (w *Workspace) Clear() structs.Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.touch()

	w.session.Clear()
	return w.snapshot()
}

func (w *Workspace) History() []structs.HistoryItem {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.history.Recent()
}

func (w *Workspace) DeleteHistory(ctx context.Context, id string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.touch()

	if err := w.history.Delete(id); err != nil {
		return err
	}
	if err := w.store.DeleteHistoryEntry(ctx, w.id, id); err != nil {
		w.log.Error("history entry not deleted from store", "id", id, "error", err)
	}
	return nil
}

func (w *Workspace) ClearHistory(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.touch()

	w.history.Clear()
	if err := w.store.ClearHistory(ctx, w.id); err != nil {
		w.log.Error("history not cleared in store", "error", err)
	}
}

// RecallHistory возвращает запись истории в ввод
func (w *Workspace) RecallHistory(id string) (structs.Snapshot, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.touch()

	item, err := w.history.Find(id)
	if err != nil {
		return w.snapshot(), err
	}
	w.session.Recall(item)
	return w.snapshot(), nil
}

func (w *Workspace) Formulas() []structs.CustomFormula {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.formulas.List()
}

func (w *Workspace) SaveFormula(ctx context.Context, formula structs.CustomFormula) (structs.CustomFormula, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.touch()

	saved, err := w.formulas.Save(formula)
	if err != nil {
		return structs.CustomFormula{}, err
	}
	w.persistFormula(ctx, saved)
	w.persistValues(ctx)
	return saved, nil
}

func (w *Workspace) DeleteFormula(ctx context.Context, id string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.touch()

	if err := w.formulas.Delete(id); err != nil {
		return err
	}
	if err := w.store.DeleteFormula(ctx, w.id, id); err != nil {
		w.log.Error("formula not deleted from store", "formula", id, "error", err)
	}
	w.persistValues(ctx)
	return nil
}

func (w *Workspace) SelectFormula(id string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.touch()
	return w.formulas.Select(id)
}

func (w *Workspace) ClearSelection() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.touch()
	w.formulas.ClearSelection()
}

func (w *Workspace) SetVariable(ctx context.Context, formulaID, variableID, value string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.touch()

	if err := w.formulas.SetVariable(formulaID, variableID, value); err != nil {
		return err
	}
	w.persistValues(ctx)
	return nil
}

func (w *Workspace) VariableValues() structs.VariableValueMap {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.formulas.Values().Map()
}

func (w *Workspace) persistFormula(ctx context.Context, formula structs.CustomFormula) {
	if err := w.store.SaveFormula(ctx, w.id, formula); err != nil {
		w.log.Error("formula not saved", "formula", formula.ID, "error", err)
	}
}

// persistValues перезаписывает карту значений целиком
func (w *Workspace) persistValues(ctx context.Context) {
	raw, err := w.formulas.Values().Marshal()
	if err != nil {
		w.log.Error("variable values not encoded", "error", err)
		return
	}
	if err := w.store.PutValue(ctx, w.id, formulas.VariableValuesKey, raw); err != nil {
		w.log.Error("variable values not saved", "error", err)
	}
}
