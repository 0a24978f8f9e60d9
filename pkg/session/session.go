package session

import (
	"fmt"

	structs "github.com/ERRORIK404/custom_calc/pkg/structs"
)

// Результат, который показывается при ошибке вычисления
const ErrorResult = "Error"

const DefaultDisplayLogSize = 5

// Session хранит буфер ввода, последний результат, ленту последних вычислений и Ans.
// Состояния неявные: пустой ввод и результат, редактирование, вычислено.
type Session struct {
	input          string
	displayLog     []string
	maxLines       int
	result         string
	resultUnit     string
	previousAnswer *string
	angleMode      structs.AngleMode
}

func New(maxLines int, mode structs.AngleMode) *Session {
	if maxLines <= 0 {
		maxLines = DefaultDisplayLogSize
	}
	return &Session{maxLines: maxLines, angleMode: mode}
}

func (s *Session) Input() string                { return s.input }
func (s *Session) Result() string               { return s.result }
func (s *Session) ResultUnit() string           { return s.resultUnit }
func (s *Session) AngleMode() structs.AngleMode { return s.angleMode }

func (s *Session) PreviousAnswer() *string {
	if s.previousAnswer == nil {
		return nil
	}
	answer := *s.previousAnswer
	return &answer
}

func (s *Session) DisplayLog() []string {
	out := make([]string, len(s.displayLog))
	copy(out, s.displayLog)
	return out
}

// DisplayLines дополняет ленту пустыми строками сверху до maxLines
func (s *Session) DisplayLines() []string {
	lines := make([]string, s.maxLines-len(s.displayLog), s.maxLines)
	return append(lines, s.displayLog...)
}

func (s *Session) SetInput(input string) { s.input = input }

func (s *Session) Append(token string) { s.input += token }

func (s *Session) Backspace() {
	if s.input == "" {
		return
	}
	runes := []rune(s.input)
	s.input = string(runes[:len(runes)-1])
}

func (s *Session) ToggleAngleMode() { s.angleMode = s.angleMode.Toggle() }

// Clear сбрасывает все, включая Ans
func (s *Session) Clear() {
	s.input = ""
	s.result = ""
	s.resultUnit = ""
	s.displayLog = nil
	s.previousAnswer = nil
}

// Succeed фиксирует успешное вычисление
func (s *Session) Succeed(expression, result, unit string) {
	line := fmt.Sprintf("%s = %s", expression, result)
	if unit != "" {
		line += " " + unit
	}
	s.displayLog = append(s.displayLog, line)
	if len(s.displayLog) > s.maxLines {
		s.displayLog = append([]string(nil), s.displayLog[len(s.displayLog)-s.maxLines:]...)
	}
	s.result = result
	s.resultUnit = unit
	answer := result
	s.previousAnswer = &answer
	s.input = ""
}

// Fail не трогает ввод и ленту, чтобы пользователь мог исправить выражение
func (s *Session) Fail() {
	s.result = ErrorResult
	s.resultUnit = ""
}

// Recall возвращает запись истории в ввод и результат
func (s *Session) Recall(item structs.HistoryItem) {
	s.input = item.Expression
	s.result = item.Result
	s.resultUnit = item.Unit
}
