package formulas

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	structs "github.com/ERRORIK404/custom_calc/pkg/structs"
)

type presetFile struct {
	Formulas []structs.CustomFormula `yaml:"formulas"`
}

// DecodePreset читает набор формул из YAML и проверяет каждую
func DecodePreset(r io.Reader) ([]structs.CustomFormula, error) {
	var preset presetFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&preset); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("decode formulas preset: %w", err)
	}
	seen := map[string]bool{}
	for i, f := range preset.Formulas {
		if f.ID == "" {
			return nil, fmt.Errorf("formula #%d: missing id", i+1)
		}
		if seen[f.ID] {
			return nil, fmt.Errorf("formula #%d: duplicate id %q", i+1, f.ID)
		}
		seen[f.ID] = true
		if err := Validate(f); err != nil {
			return nil, fmt.Errorf("formula %q: %w", f.ID, err)
		}
	}
	return preset.Formulas, nil
}

func LoadPresetFile(path string) ([]structs.CustomFormula, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return DecodePreset(f)
}

func EncodePreset(w io.Writer, formulas []structs.CustomFormula) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(presetFile{Formulas: formulas}); err != nil {
		return err
	}
	return enc.Close()
}
