package evaluator

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/expr-lang/expr"

	locerr "github.com/ERRORIK404/custom_calc/pkg/local_errors"
)

// Evaluator принимает уже подготовленное выражение и возвращает отформатированный результат
type Evaluator interface {
	Evaluate(ctx context.Context, expression string) (string, error)
}

type Local struct {
	precision int
	options   []expr.Option
}

func NewLocal(precision int) *Local {
	l := &Local{precision: precision}
	l.options = append([]expr.Option{expr.Env(constants())}, functions()...)
	return l
}

func constants() map[string]any {
	return map[string]any{
		"pi": math.Pi,
		"e":  math.E,
	}
}

func unary(name string, fn func(float64) float64) expr.Option {
	return expr.Function(name, func(params ...any) (any, error) {
		if len(params) != 1 {
			return nil, fmt.Errorf("%s expects 1 argument, got %d", name, len(params))
		}
		x, err := toFloat(params[0])
		if err != nil {
			return nil, err
		}
		return fn(x), nil
	})
}

func functions() []expr.Option {
	return []expr.Option{
		unary("sqrt", math.Sqrt),
		unary("cbrt", math.Cbrt),
		unary("sin", math.Sin),
		unary("cos", math.Cos),
		unary("tan", math.Tan),
		unary("exp", math.Exp),
		unary("log", math.Log),
		unary("log10", math.Log10),
	}
}

func (l *Local) Evaluate(ctx context.Context, expression string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	value, err := l.Value(expression)
	if err != nil {
		return "", err
	}
	return Format(value, l.precision), nil
}

// Value вычисляет выражение без форматирования
func (l *Local) Value(expression string) (float64, error) {
	if strings.TrimSpace(expression) == "" {
		return 0, locerr.ErrEmptyExpression
	}
	program, err := expr.Compile(floatLiterals(expression), l.options...)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", locerr.ErrEvaluation, err)
	}
	out, err := expr.Run(program, constants())
	if err != nil {
		return 0, fmt.Errorf("%w: %v", locerr.ErrEvaluation, err)
	}
	value, err := toFloat(out)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, fmt.Errorf("%w: %v", locerr.ErrNonNumericResult, value)
	}
	return value, nil
}

// Идентификаторы забираются целиком, чтобы не тронуть цифры в log10
var literalToken = regexp.MustCompile(`[\p{L}_][\p{L}\p{N}_]*|[0-9.]+([eE][+-]?[0-9]+)?`)

// floatLiterals дописывает ".0" к целым литералам: вся арифметика идет во float64,
// без переполнения int и без ошибки на литералах длиннее int64
func floatLiterals(expression string) string {
	return literalToken.ReplaceAllStringFunc(expression, func(token string) string {
		if strings.Trim(token, "0123456789") != "" {
			return token
		}
		return token + ".0"
	})
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int8:
		return float64(n), nil
	case int16:
		return float64(n), nil
	case int32:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case uint:
		return float64(n), nil
	case uint8:
		return float64(n), nil
	case uint16:
		return float64(n), nil
	case uint32:
		return float64(n), nil
	case uint64:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("%w: %T", locerr.ErrNonNumericResult, v)
	}
}
