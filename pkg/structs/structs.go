package structs

import (
	"time"

	"github.com/google/uuid"
)

func GenerateID() string {
	return uuid.NewString()
}

// Режим углов для тригонометрии
type AngleMode string

const (
	Degrees AngleMode = "deg"
	Radians AngleMode = "rad"
)

func (m AngleMode) Toggle() AngleMode {
	if m == Degrees {
		return Radians
	}
	return Degrees
}

func (m AngleMode) String() string {
	if m == Degrees {
		return "DEG"
	}
	return "RAD"
}

func ParseAngleMode(s string) AngleMode {
	if s == string(Radians) {
		return Radians
	}
	return Degrees
}

// Запись истории вычислений
type HistoryItem struct {
	ID         string    `json:"id"`
	Expression string    `json:"expression"`
	Result     string    `json:"result"`
	Unit       string    `json:"unit,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

func NewHistoryItem(expression, result, unit string) HistoryItem {
	return HistoryItem{
		ID:         GenerateID(),
		Expression: expression,
		Result:     result,
		Unit:       unit,
		Timestamp:  time.Now(),
	}
}

type Variable struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
}

// Пользовательская формула: шаблон с переменными и единицей результата
type CustomFormula struct {
	ID         string     `json:"id" yaml:"id"`
	Name       string     `json:"name,omitempty" yaml:"name,omitempty"`
	Formula    string     `json:"formula" yaml:"formula"`
	Variables  []Variable `json:"variables" yaml:"variables"`
	ResultUnit string     `json:"resultUnit,omitempty" yaml:"result_unit,omitempty"`
}

// formulaId -> (variableId -> значение)
type VariableValueMap map[string]map[string]string

func (m VariableValueMap) Clone() VariableValueMap {
	out := make(VariableValueMap, len(m))
	for formulaID, bucket := range m {
		copied := make(map[string]string, len(bucket))
		for k, v := range bucket {
			copied[k] = v
		}
		out[formulaID] = copied
	}
	return out
}

// Снимок состояния сессии, который отдается клиенту
type Snapshot struct {
	Input             string          `json:"input"`
	Result            string          `json:"result"`
	ResultUnit        string          `json:"resultUnit,omitempty"`
	DisplayLines      []string        `json:"displayLines"`
	PreviousAnswer    *string         `json:"previousAnswer"`
	AngleMode         AngleMode       `json:"angleMode"`
	SelectedFormulaID string          `json:"selectedFormulaId,omitempty"`
	History           []HistoryItem   `json:"history,omitempty"`
	Formulas          []CustomFormula `json:"formulas,omitempty"`
}
