package localerrors

import (
	"errors"
)

var (
	ErrEmptyExpression           = errors.New("empty expression")
	ErrIncorrectBracketPlacement = errors.New("incorrect placement of brackets")
	ErrEvaluation                = errors.New("evaluation failed")
	ErrNonNumericResult          = errors.New("expression result is not a finite number")
	ErrUnknownButton             = errors.New("unknown button")
	ErrFormulaNotFound           = errors.New("formula not found")
	ErrInvalidFormula            = errors.New("invalid formula")
	ErrHistoryItemNotFound       = errors.New("history item not found")
	ErrValuesNotLoaded           = errors.New("variable values are not loaded yet")
	ErrInvalidToken              = errors.New("invalid session token")
)
