package session

import (
	"fmt"

	locerr "github.com/ERRORIK404/custom_calc/pkg/local_errors"
	"github.com/ERRORIK404/custom_calc/pkg/preprocessor"
)

type Button struct {
	ID    string `json:"id"`
	Value string `json:"value"`
}

// Что должен сделать вызывающий после нажатия
type Action int

const (
	ActionNone Action = iota
	ActionEvaluate
)

var layout = [][]Button{
	{{"leftParen", "("}, {"rightParen", ")"}, {"sqrt", "sqrt"}, {"deg", "DEG"}},
	{{"sin", "sin"}, {"cos", "cos"}, {"tan", "tan"}, {"divide", "÷"}},
	{{"7", "7"}, {"8", "8"}, {"9", "9"}, {"multiply", "×"}},
	{{"4", "4"}, {"5", "5"}, {"6", "6"}, {"minus", "-"}},
	{{"1", "1"}, {"2", "2"}, {"3", "3"}, {"plus", "+"}},
	{{"0", "0"}, {"decimal", "."}, {"equals", "="}, {"clear", "C"}},
	{{"pi", "π"}, {"e", "e"}, {"ans", "Ans"}, {"power", "^"}},
}

// Layout возвращает сетку кнопок калькулятора
func Layout() [][]Button {
	out := make([][]Button, len(layout))
	for i, row := range layout {
		out[i] = append([]Button(nil), row...)
	}
	return out
}

// Press применяет нажатие кнопки к сессии.
// Для "=" с непустым вводом возвращает ActionEvaluate, само вычисление делает вызывающий.
func (s *Session) Press(button string) (Action, error) {
	switch button {
	case "":
		return ActionNone, nil
	case "C":
		s.Clear()
	case "DEG":
		s.ToggleAngleMode()
	case "DEL":
		s.Backspace()
	case "=":
		if s.input != "" {
			return ActionEvaluate, nil
		}
	case "×", "*":
		s.Append("*")
	case "÷", "/":
		s.Append("/")
	case "π", "pi":
		s.Append("pi")
	case "e", "sqrt", "+", "-", "^", ".", "(", ")":
		s.Append(button)
	case preprocessor.AnswerToken:
		if s.previousAnswer != nil {
			s.Append(preprocessor.AnswerToken)
		}
	case "sin", "cos", "tan":
		s.Append(button + "(")
	default:
		if len(button) == 1 && button[0] >= '0' && button[0] <= '9' {
			s.Append(button)
			return ActionNone, nil
		}
		return ActionNone, fmt.Errorf("%w: %q", locerr.ErrUnknownButton, button)
	}
	return ActionNone, nil
}
