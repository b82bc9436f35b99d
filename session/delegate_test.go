package session

import (
	"net/http"
	"testing"
)

// sliceDelegate is a delegate value of a non-comparable type.
type sliceDelegate struct {
	events []string
}

func (sliceDelegate) DidBecomeInvalid(error) {}
func (sliceDelegate) DidReceiveResponse(*Task, *http.Response) {}
func (sliceDelegate) DidComplete(*Task, error) {}

func TestNewDelegates(t *testing.T) {
	shared := &recorder{}
	value := sliceDelegate{events: []string{"a"}}

	tests := map[string]struct {
		task TaskDelegate
		sess SessionDelegate
		want int
	}{
		"none":                  {},
		"taskOnly":              {task: shared, want: 1},
		"sessionOnly":           {sess: shared, want: 1},
		"samePointer":           {task: shared, sess: shared, want: 1},
		"distinct":              {task: &recorder{}, sess: shared, want: 2},
		"nonComparableValue":    {task: value, sess: value, want: 2},
		"nonComparableSessOnly": {sess: value, want: 1},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			if got := len(newDelegates(tc.task, tc.sess)); got != tc.want {
				t.Errorf("expected %d delegates, got %d", tc.want, got)
			}
		})
	}
}

func TestDataTask_NonComparableDelegate(t *testing.T) {
	d := sliceDelegate{events: []string{"a"}}
	s := newTestSession(t, SessionDelegateOf(d), TaskDelegateOf(d))

	if _, err := s.DataTask(t.Context(), NewRequest("http://example.invalid", http.MethodGet), nil); err != nil {
		t.Fatalf("creating task: %v", err)
	}
}
