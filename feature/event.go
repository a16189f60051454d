package feature

import (
	"fmt"
	"strings"
)

// Event is an indicator column that is 1.0 in the months an event is active, such as a yearly
// promotion, and 0.0 elsewhere
type Event struct {
	Name string `json:"name"`
}

// NewEvent creates a new event instance given a name. The name is lower cased and spaces are
// replaced with underscores.
func NewEvent(name string) *Event {
	return &Event{sanitize(name)}
}

// String returns the string representation of the event feature
func (e Event) String() string {
	return fmt.Sprintf("event_%s", e.Name)
}

// Get returns the value of an arbitrary label and returns the value along with whether
// the label exists
func (e Event) Get(label string) (string, bool) {
	switch strings.ToLower(label) {
	case "name":
		return e.Name, true
	}
	return "", false
}

// Type returns the type of this feature
func (e Event) Type() FeatureType {
	return FeatureTypeEvent
}

// Decode converts the feature into a map of label values
func (e Event) Decode() map[string]string {
	return map[string]string{"name": e.Name}
}
