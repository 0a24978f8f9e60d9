package preprocessor

import (
	"regexp"
	"strings"

	structs "github.com/ERRORIK404/custom_calc/pkg/structs"
)

// Токен предыдущего ответа в пользовательском вводе
const AnswerToken = "Ans"

// sqrt без скобок над числом или над группой в скобках
var bareSqrt = regexp.MustCompile(`sqrt\s*(\d+(\.\d+)?|\([^)]+\))`)

var degreeRewriter = strings.NewReplacer(
	"sin(", "sin(pi/180*",
	"cos(", "cos(pi/180*",
	"tan(", "tan(pi/180*",
)

// Preprocess переводит ввод с кнопок в строку для вычислителя.
// Порядок: Ans, затем sqrt, затем перевод градусов в радианы.
// Ничего не валидирует, ошибки всплывают при вычислении.
func Preprocess(input string, mode structs.AngleMode, previousAnswer *string) string {
	expression := SubstituteAnswer(input, previousAnswer)
	return Normalize(expression, mode)
}

// Normalize выполняет все преобразования, кроме подстановки Ans
func Normalize(expression string, mode structs.AngleMode) string {
	expression = NormalizeSqrt(expression)
	if mode == structs.Degrees {
		expression = DegreesToRadians(expression)
	}
	return expression
}

func SubstituteAnswer(expression string, previousAnswer *string) string {
	answer := "0"
	if previousAnswer != nil && *previousAnswer != "" {
		answer = *previousAnswer
	}
	return strings.ReplaceAll(expression, AnswerToken, answer)
}

func NormalizeSqrt(expression string) string {
	return bareSqrt.ReplaceAllString(expression, "sqrt($1)")
}

// Вычислитель работает в радианах, поэтому домножаем аргумент на pi/180
func DegreesToRadians(expression string) string {
	return degreeRewriter.Replace(expression)
}

// Функция для проверки правильности расставления скобок
func IsValidParentheses(expression string) bool {
	depth := 0
	for _, char := range expression {
		switch char {
		case '(':
			depth++
		case ')':
			if depth == 0 {
				return false
			}
			depth--
		}
	}
	return depth == 0
}
