package resource

import (
	"sync"

	"github.com/mbolis/quick-fields/model"
)

// ErrorList is the process-wide list of API errors waiting to be shown.
type ErrorList struct {
	mu     sync.Mutex
	errors []*model.APIError
}

func (l *ErrorList) Push(err *model.APIError) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errors = append(l.errors, err)
}

// All returns a copy of the recorded errors, oldest first.
func (l *ErrorList) All() []*model.APIError {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]*model.APIError{}, l.errors...)
}

func (l *ErrorList) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.errors)
}

func (l *ErrorList) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errors = nil
}
