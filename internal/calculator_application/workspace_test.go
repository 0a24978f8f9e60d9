package calculatorapplication

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"

	"github.com/ERRORIK404/custom_calc/pkg/evaluator"
	"github.com/ERRORIK404/custom_calc/pkg/formulas"
	locerr "github.com/ERRORIK404/custom_calc/pkg/local_errors"
	"github.com/ERRORIK404/custom_calc/pkg/logger"
	"github.com/ERRORIK404/custom_calc/pkg/session"
	structs "github.com/ERRORIK404/custom_calc/pkg/structs"
)

// memoryStore хранит все в памяти, вместо SQLite
type memoryStore struct {
	mu       sync.Mutex
	history  map[string][]structs.HistoryItem
	formulas map[string][]structs.CustomFormula
	values   map[string][]byte
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		history:  map[string][]structs.HistoryItem{},
		formulas: map[string][]structs.CustomFormula{},
		values:   map[string][]byte{},
	}
}

func (m *memoryStore) AddHistoryEntry(ctx context.Context, sessionID string, item structs.HistoryItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.history[sessionID] = append(m.history[sessionID], item)
	return nil
}

func (m *memoryStore) DeleteHistoryEntry(ctx context.Context, sessionID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := m.history[sessionID]
	for i, item := range items {
		if item.ID == id {
			m.history[sessionID] = append(items[:i:i], items[i+1:]...)
			return nil
		}
	}
	return locerr.ErrHistoryItemNotFound
}

func (m *memoryStore) ClearHistory(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.history, sessionID)
	return nil
}

func (m *memoryStore) GetHistory(ctx context.Context, sessionID string) ([]structs.HistoryItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]structs.HistoryItem(nil), m.history[sessionID]...), nil
}

func (m *memoryStore) SaveFormula(ctx context.Context, sessionID string, formula structs.CustomFormula) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := m.formulas[sessionID]
	for i := range list {
		if list[i].ID == formula.ID {
			list[i] = formula
			return nil
		}
	}
	m.formulas[sessionID] = append(list, formula)
	return nil
}

func (m *memoryStore) DeleteFormula(ctx context.Context, sessionID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := m.formulas[sessionID]
	for i := range list {
		if list[i].ID == id {
			m.formulas[sessionID] = append(list[:i:i], list[i+1:]...)
			return nil
		}
	}
	return locerr.ErrFormulaNotFound
}

func (m *memoryStore) GetFormulas(ctx context.Context, sessionID string) ([]structs.CustomFormula, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]structs.CustomFormula(nil), m.formulas[sessionID]...), nil
}

func (m *memoryStore) GetValue(ctx context.Context, sessionID, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.values[sessionID+"/"+key], nil
}

func (m *memoryStore) PutValue(ctx context.Context, sessionID, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[sessionID+"/"+key] = append([]byte(nil), value...)
	return nil
}

func (m *memoryStore) storedValues(sessionID string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return string(m.values[sessionID+"/"+formulas.VariableValuesKey])
}

var kineticEnergy = structs.CustomFormula{
	ID:         "ke",
	Name:       "Kinetic energy",
	Formula:    "0.5*m*v^2",
	Variables:  []structs.Variable{{ID: "m", Name: "m"}, {ID: "v", Name: "v"}},
	ResultUnit: "J",
}

func openTestWorkspace(t *testing.T, store *memoryStore, presets ...structs.CustomFormula) *Workspace {
	t.Helper()
	opts := WorkspaceOptions{
		DisplayLogSize: session.DefaultDisplayLogSize,
		AngleMode:      structs.Degrees,
		Presets:        presets,
	}
	w, err := OpenWorkspace(context.Background(), "s1", evaluator.NewLocal(evaluator.DefaultPrecision), store, opts, logger.Discard())
	if err != nil {
		t.Fatalf("OpenWorkspace: %v", err)
	}
	return w
}

func press(t *testing.T, w *Workspace, buttons ...string) structs.Snapshot {
	t.Helper()
	var snap structs.Snapshot
	for _, b := range buttons {
		var err error
		snap, err = w.Press(context.Background(), b)
		if err != nil {
			t.Fatalf("Press(%q): %v", b, err)
		}
	}
	return snap
}

func TestSqrtWithAndWithoutParentheses(t *testing.T) {
	w := openTestWorkspace(t, newMemoryStore())
	ctx := context.Background()

	if got := w.Calculate(ctx, "sqrt9").Result; got != "3" {
		t.Errorf("sqrt9 = %q, want 3", got)
	}
	if got := w.Calculate(ctx, "sqrt(9)").Result; got != "3" {
		t.Errorf("sqrt(9) = %q, want 3", got)
	}
}

func TestTrigonometryInDegrees(t *testing.T) {
	w := openTestWorkspace(t, newMemoryStore())

	snap := press(t, w, "sin", "9", "0", ")", "=")
	if snap.Result != "1" {
		t.Errorf("sin(90) in degrees = %q, want 1", snap.Result)
	}

	press(t, w, "DEG")
	snap = w.Calculate(context.Background(), "cos(0)")
	if snap.AngleMode != structs.Radians || snap.Result != "1" {
		t.Errorf("cos(0) in radians: %+v", snap)
	}
}

func TestPreviousAnswerReuse(t *testing.T) {
	w := openTestWorkspace(t, newMemoryStore())

	// без предыдущего ответа кнопка Ans ничего не добавляет
	snap := press(t, w, "Ans")
	if snap.Input != "" {
		t.Fatalf("Ans without previous answer appended %q", snap.Input)
	}

	press(t, w, "2", "+", "3", "=")
	snap = press(t, w, "Ans", "×", "2", "=")
	if snap.Result != "10" {
		t.Errorf("Ans*2 = %q, want 10", snap.Result)
	}
	if snap.PreviousAnswer == nil || *snap.PreviousAnswer != "10" {
		t.Errorf("previous answer not updated: %v", snap.PreviousAnswer)
	}
	if snap.Input != "" {
		t.Errorf("input not cleared after success: %q", snap.Input)
	}
}

func TestDisplayLogIsBounded(t *testing.T) {
	w := openTestWorkspace(t, newMemoryStore())
	ctx := context.Background()

	var snap structs.Snapshot
	for i := 1; i <= 7; i++ {
		snap = w.Calculate(ctx, strconv.Itoa(i)+"+0")
	}
	if len(snap.DisplayLines) != session.DefaultDisplayLogSize {
		t.Fatalf("display lines = %d", len(snap.DisplayLines))
	}
	if snap.DisplayLines[0] != "3+0 = 3" || snap.DisplayLines[4] != "7+0 = 7" {
		t.Errorf("unexpected display lines: %q", snap.DisplayLines)
	}
	if len(snap.History) != 7 {
		t.Errorf("history = %d, want 7", len(snap.History))
	}
}

func TestFailureLeavesStateUntouched(t *testing.T) {
	store := newMemoryStore()
	w := openTestWorkspace(t, store)
	ctx := context.Background()
	w.Calculate(ctx, "1+1")

	for _, input := range []string{"1/0", "2+", "(1+2"} {
		snap := w.Calculate(ctx, input)
		if snap.Result != session.ErrorResult {
			t.Errorf("%q: result = %q, want %q", input, snap.Result, session.ErrorResult)
		}
		if snap.Input != input {
			t.Errorf("%q: input changed to %q", input, snap.Input)
		}
		if len(snap.History) != 1 {
			t.Errorf("%q: history grew to %d", input, len(snap.History))
		}
		if snap.DisplayLines[len(snap.DisplayLines)-1] != "1+1 = 2" || snap.DisplayLines[len(snap.DisplayLines)-2] != "" {
			t.Errorf("%q: display log changed: %q", input, snap.DisplayLines)
		}
		if snap.PreviousAnswer == nil || *snap.PreviousAnswer != "2" {
			t.Errorf("%q: previous answer changed", input)
		}
	}
	if items, _ := store.GetHistory(ctx, "s1"); len(items) != 1 {
		t.Errorf("store history = %d, want 1", len(items))
	}
}

func TestEqualsOnEmptyInputDoesNothing(t *testing.T) {
	w := openTestWorkspace(t, newMemoryStore())
	snap := press(t, w, "=")
	if snap.Result != "" || len(snap.History) != 0 {
		t.Errorf("empty evaluation changed state: %+v", snap)
	}
}

func TestUnknownButton(t *testing.T) {
	w := openTestWorkspace(t, newMemoryStore())
	if _, err := w.Press(context.Background(), "%"); !errors.Is(err, locerr.ErrUnknownButton) {
		t.Errorf("Press(%%) error = %v", err)
	}
}

func TestClearResetsEverything(t *testing.T) {
	w := openTestWorkspace(t, newMemoryStore())
	press(t, w, "4", "=", "1")

	snap := press(t, w, "C")
	if snap.Input != "" || snap.Result != "" || snap.PreviousAnswer != nil {
		t.Errorf("clear left state: %+v", snap)
	}
	for _, line := range snap.DisplayLines {
		if line != "" {
			t.Errorf("display log not cleared: %q", snap.DisplayLines)
		}
	}
	// история переживает очистку
	if len(snap.History) != 1 {
		t.Errorf("history = %d, want 1", len(snap.History))
	}
}

func TestHistoryDeleteClearAndRecall(t *testing.T) {
	store := newMemoryStore()
	w := openTestWorkspace(t, store)
	ctx := context.Background()
	for _, in := range []string{"1+1", "2+2", "3+3"} {
		w.Calculate(ctx, in)
	}

	items := w.History()
	if items[0].Expression != "3+3" {
		t.Fatalf("history must be newest first, got %q", items[0].Expression)
	}
	if err := w.DeleteHistory(ctx, items[1].ID); err != nil {
		t.Fatalf("DeleteHistory: %v", err)
	}
	items = w.History()
	if len(items) != 2 || items[0].Expression != "3+3" || items[1].Expression != "1+1" {
		t.Errorf("unexpected history after delete: %+v", items)
	}
	if err := w.DeleteHistory(ctx, "missing"); !errors.Is(err, locerr.ErrHistoryItemNotFound) {
		t.Errorf("delete missing: %v", err)
	}

	snap, err := w.RecallHistory(items[1].ID)
	if err != nil {
		t.Fatalf("RecallHistory: %v", err)
	}
	if snap.Input != "1+1" || snap.Result != "2" {
		t.Errorf("recall: %+v", snap)
	}

	w.ClearHistory(ctx)
	if len(w.History()) != 0 {
		t.Error("history not cleared")
	}
	if stored, _ := store.GetHistory(ctx, "s1"); len(stored) != 0 {
		t.Errorf("store history = %d after clear", len(stored))
	}
}

func TestHistorySurvivesReopen(t *testing.T) {
	store := newMemoryStore()
	w := openTestWorkspace(t, store)
	w.Calculate(context.Background(), "6*7")

	reopened := openTestWorkspace(t, store)
	items := reopened.History()
	if len(items) != 1 || items[0].Result != "42" {
		t.Errorf("history after reopen: %+v", items)
	}
}

func TestFormulaLifecycle(t *testing.T) {
	store := newMemoryStore()
	w := openTestWorkspace(t, store)
	ctx := context.Background()

	saved, err := w.SaveFormula(ctx, kineticEnergy)
	if err != nil {
		t.Fatalf("SaveFormula: %v", err)
	}
	if err := w.SelectFormula(saved.ID); err != nil {
		t.Fatalf("SelectFormula: %v", err)
	}
	if err := w.SetVariable(ctx, saved.ID, "m", "2"); err != nil {
		t.Fatalf("SetVariable m: %v", err)
	}
	if err := w.SetVariable(ctx, saved.ID, "v", "3"); err != nil {
		t.Fatalf("SetVariable v: %v", err)
	}

	snap, err := w.UseFormula(ctx, saved.ID)
	if err != nil {
		t.Fatalf("UseFormula: %v", err)
	}
	if snap.Result != "9" || snap.ResultUnit != "J" {
		t.Errorf("formula result = %q %q, want 9 J", snap.Result, snap.ResultUnit)
	}
	if snap.SelectedFormulaID != "" {
		t.Errorf("selection kept after evaluation: %q", snap.SelectedFormulaID)
	}
	if snap.History[0].Unit != "J" {
		t.Errorf("history unit = %q", snap.History[0].Unit)
	}

	// следующее обычное вычисление сбрасывает единицу
	if snap := w.Calculate(ctx, "1+1"); snap.ResultUnit != "" {
		t.Errorf("unit kept after plain calculation: %q", snap.ResultUnit)
	}

	if err := w.SelectFormula(saved.ID); err != nil {
		t.Fatal(err)
	}
	if err := w.DeleteFormula(ctx, saved.ID); err != nil {
		t.Fatalf("DeleteFormula: %v", err)
	}
	if sel := w.Snapshot().SelectedFormulaID; sel != "" {
		t.Errorf("selection survived delete: %q", sel)
	}
	if _, ok := w.VariableValues()[saved.ID]; ok {
		t.Error("values bucket survived delete")
	}
	if got := store.storedValues("s1"); got != "{}" {
		t.Errorf("stored values = %s, want {}", got)
	}
	if list, _ := store.GetFormulas(ctx, "s1"); len(list) != 0 {
		t.Errorf("store formulas = %d after delete", len(list))
	}
}

func TestFormulaErrors(t *testing.T) {
	w := openTestWorkspace(t, newMemoryStore())
	ctx := context.Background()

	if _, err := w.UseFormula(ctx, "missing"); !errors.Is(err, locerr.ErrFormulaNotFound) {
		t.Errorf("UseFormula missing: %v", err)
	}
	if err := w.SetVariable(ctx, "missing", "x", "1"); !errors.Is(err, locerr.ErrFormulaNotFound) {
		t.Errorf("SetVariable missing: %v", err)
	}
	if _, err := w.SaveFormula(ctx, structs.CustomFormula{Formula: "(1+2"}); !errors.Is(err, locerr.ErrInvalidFormula) {
		t.Errorf("SaveFormula unbalanced: %v", err)
	}

	// формула с незаданной переменной вычисляется с ошибкой
	saved, err := w.SaveFormula(ctx, kineticEnergy)
	if err != nil {
		t.Fatal(err)
	}
	snap, err := w.UseFormula(ctx, saved.ID)
	if err != nil {
		t.Fatalf("UseFormula: %v", err)
	}
	if snap.Result != session.ErrorResult || len(snap.History) != 0 {
		t.Errorf("unbound formula: %+v", snap)
	}
}

func TestPresetsSeedNewSessionOnly(t *testing.T) {
	store := newMemoryStore()
	w := openTestWorkspace(t, store, kineticEnergy)
	if list := w.Formulas(); len(list) != 1 || list[0].ID != "ke" {
		t.Fatalf("presets not seeded: %+v", list)
	}
	if err := w.DeleteFormula(context.Background(), "ke"); err != nil {
		t.Fatal(err)
	}

	// удаленная формула не возвращается при повторном открытии
	reopened := openTestWorkspace(t, store, kineticEnergy)
	if list := reopened.Formulas(); len(list) != 0 {
		t.Errorf("preset reseeded: %+v", list)
	}
}

func TestCorruptValuesAreReset(t *testing.T) {
	store := newMemoryStore()
	store.PutValue(context.Background(), "s1", formulas.VariableValuesKey, []byte("{not json"))

	w := openTestWorkspace(t, store)
	if len(w.VariableValues()) != 0 {
		t.Errorf("values = %v, want empty", w.VariableValues())
	}
	if got := store.storedValues("s1"); got != "{}" {
		t.Errorf("corrupt values not rewritten: %s", got)
	}
}

func TestOrphanValuesArePruned(t *testing.T) {
	store := newMemoryStore()
	ctx := context.Background()
	store.SaveFormula(ctx, "s1", kineticEnergy)
	store.PutValue(ctx, "s1", formulas.VariableValuesKey, []byte(`{"ke":{"m":"1"},"gone":{"x":"2"}}`))

	w := openTestWorkspace(t, store)
	values := w.VariableValues()
	if _, ok := values["gone"]; ok {
		t.Error("orphan bucket kept")
	}
	if values["ke"]["m"] != "1" {
		t.Errorf("values = %v", values)
	}
	if got := store.storedValues("s1"); got != `{"ke":{"m":"1"}}` {
		t.Errorf("stored values = %s", got)
	}
}

func TestLargePreviousAnswerReuse(t *testing.T) {
	w := openTestWorkspace(t, newMemoryStore())
	ctx := context.Background()

	if snap := w.Calculate(ctx, "10^20"); snap.Result != "100000000000000000000" {
		t.Fatalf("10^20 = %q", snap.Result)
	}
	snap := w.Calculate(ctx, "Ans+1")
	if snap.Result != "100000000000000000000" {
		t.Errorf("Ans+1 = %q, want 100000000000000000000", snap.Result)
	}
	if len(snap.History) != 2 {
		t.Errorf("history = %d, want 2", len(snap.History))
	}
}
