package formulas

import (
	"encoding/json"
	"fmt"

	locerr "github.com/ERRORIK404/custom_calc/pkg/local_errors"
	structs "github.com/ERRORIK404/custom_calc/pkg/structs"
)

// Ключ, под которым значения переменных лежат в хранилище
const VariableValuesKey = "calculator_variable_values"

// VariableValues — значения переменных по формулам.
// До Load запись запрещена, чтобы изменение не обогнало начальную загрузку.
type VariableValues struct {
	values structs.VariableValueMap
	loaded bool
}

func NewVariableValues() *VariableValues {
	return &VariableValues{values: structs.VariableValueMap{}}
}

// Load разбирает сохраненный JSON. Пустой ввод дает пустую карту.
// Битый JSON тоже дает пустую карту, ошибка возвращается для лога.
func (v *VariableValues) Load(raw []byte) error {
	v.loaded = true
	v.values = structs.VariableValueMap{}
	if len(raw) == 0 {
		return nil
	}
	var parsed structs.VariableValueMap
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return fmt.Errorf("parse %s: %w", VariableValuesKey, err)
	}
	for formulaID, bucket := range parsed {
		if bucket != nil {
			v.values[formulaID] = bucket
		}
	}
	return nil
}

func (v *VariableValues) Loaded() bool { return v.loaded }

func (v *VariableValues) Set(formulaID, variableID, value string) error {
	if !v.loaded {
		return locerr.ErrValuesNotLoaded
	}
	bucket, ok := v.values[formulaID]
	if !ok {
		bucket = map[string]string{}
		v.values[formulaID] = bucket
	}
	bucket[variableID] = value
	return nil
}

// Bucket возвращает копию значений одной формулы
func (v *VariableValues) Bucket(formulaID string) map[string]string {
	out := map[string]string{}
	for k, val := range v.values[formulaID] {
		out[k] = val
	}
	return out
}

func (v *VariableValues) Remove(formulaID string) {
	delete(v.values, formulaID)
}

func (v *VariableValues) removeVariable(formulaID, variableID string) {
	if bucket, ok := v.values[formulaID]; ok {
		delete(bucket, variableID)
	}
}

func (v *VariableValues) Has(formulaID string) bool {
	_, ok := v.values[formulaID]
	return ok
}

func (v *VariableValues) Map() structs.VariableValueMap {
	return v.values.Clone()
}

// Marshal сериализует карту целиком, запись всегда полная
func (v *VariableValues) Marshal() ([]byte, error) {
	return json.Marshal(v.values)
}
