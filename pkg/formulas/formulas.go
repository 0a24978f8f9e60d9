package formulas

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	locerr "github.com/ERRORIK404/custom_calc/pkg/local_errors"
	"github.com/ERRORIK404/custom_calc/pkg/preprocessor"
	structs "github.com/ERRORIK404/custom_calc/pkg/structs"
)

// Store — пользовательские формулы в порядке создания, выбранная формула и значения переменных
type Store struct {
	formulas []structs.CustomFormula
	selected string
	values   *VariableValues
}

func NewStore(values *VariableValues) *Store {
	if values == nil {
		values = NewVariableValues()
	}
	return &Store{values: values}
}

// Load заменяет содержимое и удаляет значения переменных несуществующих формул.
// Возвращает true, если значения были удалены.
func (s *Store) Load(formulas []structs.CustomFormula) bool {
	s.formulas = append([]structs.CustomFormula(nil), formulas...)
	s.selected = ""
	return s.PruneOrphans()
}

// PruneOrphans возвращает true, если что-то было удалено
func (s *Store) PruneOrphans() bool {
	pruned := false
	for formulaID := range s.values.values {
		if s.index(formulaID) < 0 {
			s.values.Remove(formulaID)
			pruned = true
		}
	}
	return pruned
}

func (s *Store) Values() *VariableValues { return s.values }

func (s *Store) List() []structs.CustomFormula {
	return append([]structs.CustomFormula(nil), s.formulas...)
}

func (s *Store) index(id string) int {
	for i, f := range s.formulas {
		if f.ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) Get(id string) (structs.CustomFormula, error) {
	i := s.index(id)
	if i < 0 {
		return structs.CustomFormula{}, fmt.Errorf("%w: %s", locerr.ErrFormulaNotFound, id)
	}
	return s.formulas[i], nil
}

func Validate(f structs.CustomFormula) error {
	if strings.TrimSpace(f.Formula) == "" {
		return fmt.Errorf("%w: %v", locerr.ErrInvalidFormula, locerr.ErrEmptyExpression)
	}
	if !preprocessor.IsValidParentheses(f.Formula) {
		return fmt.Errorf("%w: %v", locerr.ErrInvalidFormula, locerr.ErrIncorrectBracketPlacement)
	}
	seen := map[string]bool{}
	for _, v := range f.Variables {
		if v.ID == "" || v.Name == "" {
			return fmt.Errorf("%w: variable without id or name", locerr.ErrInvalidFormula)
		}
		if seen[v.ID] {
			return fmt.Errorf("%w: duplicate variable %s", locerr.ErrInvalidFormula, v.ID)
		}
		seen[v.ID] = true
	}
	return nil
}

// Save вставляет новую формулу в конец или заменяет существующую на ее месте
func (s *Store) Save(f structs.CustomFormula) (structs.CustomFormula, error) {
	if f.ID == "" {
		f.ID = structs.GenerateID()
	}
	if err := Validate(f); err != nil {
		return structs.CustomFormula{}, err
	}
	i := s.index(f.ID)
	if i < 0 {
		s.formulas = append(s.formulas, f)
		return f, nil
	}
	// значения удаленных из формулы переменных больше не нужны
	declared := map[string]bool{}
	for _, v := range f.Variables {
		declared[v.ID] = true
	}
	for _, v := range s.formulas[i].Variables {
		if !declared[v.ID] {
			s.values.removeVariable(f.ID, v.ID)
		}
	}
	s.formulas[i] = f
	return f, nil
}

// Delete удаляет формулу вместе со значениями ее переменных и снимает выбор с нее
func (s *Store) Delete(id string) error {
	i := s.index(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", locerr.ErrFormulaNotFound, id)
	}
	s.formulas = append(s.formulas[:i:i], s.formulas[i+1:]...)
	s.values.Remove(id)
	if s.selected == id {
		s.selected = ""
	}
	return nil
}

func (s *Store) Select(id string) error {
	if s.index(id) < 0 {
		return fmt.Errorf("%w: %s", locerr.ErrFormulaNotFound, id)
	}
	s.selected = id
	return nil
}

func (s *Store) ClearSelection() { s.selected = "" }

func (s *Store) Selected() string { return s.selected }

func (s *Store) SetVariable(formulaID, variableID, value string) error {
	f, err := s.Get(formulaID)
	if err != nil {
		return err
	}
	for _, v := range f.Variables {
		if v.ID == variableID {
			return s.values.Set(formulaID, variableID, value)
		}
	}
	return fmt.Errorf("%w: unknown variable %s", locerr.ErrInvalidFormula, variableID)
}

// Expand подставляет значения переменных в шаблон формулы.
// Переменные без значения остаются как есть и провалятся при вычислении.
func (s *Store) Expand(id string) (string, structs.CustomFormula, error) {
	f, err := s.Get(id)
	if err != nil {
		return "", structs.CustomFormula{}, err
	}
	return Substitute(f.Formula, f.Variables, s.values.Bucket(id)), f, nil
}

// Substitute за один проход заменяет имена переменных на "(значение)".
// Имя должно стоять целиком: соседние буквы, цифры и "_" (в том числе не ASCII) его не пропускают.
// Подставленные значения повторно не разбираются.
func Substitute(template string, variables []structs.Variable, bound map[string]string) string {
	values := map[string]string{}
	var names []string
	for _, v := range variables {
		value := strings.TrimSpace(bound[v.ID])
		if value == "" {
			continue
		}
		if _, ok := values[v.Name]; ok {
			continue
		}
		values[v.Name] = "(" + value + ")"
		names = append(names, regexp.QuoteMeta(v.Name))
	}
	if len(names) == 0 {
		return template
	}
	// длинные имена раньше, иначе "a" перехватит "ab"
	sort.Slice(names, func(i, j int) bool { return len(names[i]) > len(names[j]) })
	placeholder := regexp.MustCompile(strings.Join(names, "|"))

	var out strings.Builder
	last := 0
	for _, loc := range placeholder.FindAllStringIndex(template, -1) {
		start, end := loc[0], loc[1]
		if !wholeName(template, start, end) {
			continue
		}
		out.WriteString(template[last:start])
		out.WriteString(values[template[start:end]])
		last = end
	}
	out.WriteString(template[last:])
	return out.String()
}

func isNamePart(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

func wholeName(s string, start, end int) bool {
	if start > 0 {
		if r, _ := utf8.DecodeLastRuneInString(s[:start]); isNamePart(r) {
			return false
		}
	}
	if end < len(s) {
		if r, _ := utf8.DecodeRuneInString(s[end:]); isNamePart(r) {
			return false
		}
	}
	return true
}
