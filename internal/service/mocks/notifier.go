package mocks

import (
	"questboard/internal/model"

	"github.com/stretchr/testify/mock"
)

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(telegramID int64, event model.Event) {
	m.Called(telegramID, event)
}

// EventsFor returns the types of events delivered to telegramID, in order.
func (m *MockNotifier) EventsFor(telegramID int64) []string {
	var types []string
	for _, call := range m.Calls {
		if call.Method != "Notify" {
			continue
		}
		if id, ok := call.Arguments.Get(0).(int64); ok && id == telegramID {
			types = append(types, call.Arguments.Get(1).(model.Event).Type)
		}
	}
	return types
}
