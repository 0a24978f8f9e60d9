package history

import (
	"fmt"

	locerr "github.com/ERRORIK404/custom_calc/pkg/local_errors"
	structs "github.com/ERRORIK404/custom_calc/pkg/structs"
)

// Log — история вычислений. Хранится в порядке добавления, показывается от новых к старым.
type Log struct {
	items []structs.HistoryItem
}

func New(items ...structs.HistoryItem) *Log {
	return &Log{items: append([]structs.HistoryItem(nil), items...)}
}

func (l *Log) Append(item structs.HistoryItem) {
	l.items = append(l.items, item)
}

func (l *Log) Len() int { return len(l.items) }

// Items возвращает копию в порядке добавления
func (l *Log) Items() []structs.HistoryItem {
	return append([]structs.HistoryItem(nil), l.items...)
}

// Recent возвращает записи от самой новой к самой старой
func (l *Log) Recent() []structs.HistoryItem {
	out := make([]structs.HistoryItem, len(l.items))
	for i, item := range l.items {
		out[len(l.items)-1-i] = item
	}
	return out
}

func (l *Log) Find(id string) (structs.HistoryItem, error) {
	for _, item := range l.items {
		if item.ID == id {
			return item, nil
		}
	}
	return structs.HistoryItem{}, fmt.Errorf("%w: %s", locerr.ErrHistoryItemNotFound, id)
}

// Delete удаляет ровно одну запись, порядок остальных не меняется
func (l *Log) Delete(id string) error {
	for i, item := range l.items {
		if item.ID == id {
			l.items = append(l.items[:i:i], l.items[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: %s", locerr.ErrHistoryItemNotFound, id)
}

func (l *Log) Clear() {
	l.items = nil
}
