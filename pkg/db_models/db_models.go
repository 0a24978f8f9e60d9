package db_models

type HistoryEntry struct {
	ID         string
	SessionID  string
	Expression string
	Result     string
	Unit       string
	CreatedAt  int64 // unix nano
}

type FormulaEntry struct {
	SessionID string
	ID        string
	Position  int
	Body      string // JSON формулы
}

type KVEntry struct {
	SessionID string
	Key       string
	Value     string
}
