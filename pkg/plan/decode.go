package plan

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrInvalidDocument = errors.New("invalid plan document")

type rawPlan struct {
	Phases             json.RawMessage `json:"phases"`
	Weeks              json.RawMessage `json:"weeks"`
	AdditionalFeatures json.RawMessage `json:"additional_features"`
}

type rawTask struct {
	Id          flexString      `json:"id"`
	Description string          `json:"description"`
	Status      string          `json:"status"`
	StartedAt   flexString      `json:"started_at"`
	CompletedAt flexString      `json:"completed_at"`
	Subtasks    json.RawMessage `json:"subtasks"`
}

type rawPhase struct {
	Name   string          `json:"name"`
	Status string          `json:"status"`
	Weeks  flexString      `json:"weeks"`
	Tasks  json.RawMessage `json:"tasks"`
}

type rawWeek struct {
	Focus  string          `json:"focus"`
	Status string          `json:"status"`
	Tasks  json.RawMessage `json:"tasks"`
}

type rawFeature struct {
	Name        string     `json:"name"`
	Status      string     `json:"status"`
	StartedAt   flexString `json:"started_at"`
	CompletedAt flexString `json:"completed_at"`
}

// flexString accepts a JSON string or number and keeps its text.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	*f = flexString(strings.TrimSpace(string(data)))
	return nil
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTimestamp parses the timestamp formats found in plan documents.
// Values without an offset are read as UTC. An empty or unparseable value
// yields nil.
func ParseTimestamp(value string) *time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return &t
		}
	}
	return nil
}

// Decode parses a plan document and detects its shape. A document that is
// valid JSON but matches neither shape decodes to a plan of Kind Unknown.
func Decode(data []byte) (Plan, error) {
	if !json.Valid(data) {
		return Plan{}, ErrInvalidDocument
	}
	var p Plan
	if trimmed := bytes.TrimSpace(data); trimmed[0] != '{' {
		return p, nil
	}
	var raw rawPlan
	if err := json.Unmarshal(data, &raw); err != nil {
		return Plan{}, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}

	if phases, ok := rawArray(raw.Phases); ok && len(phases) > 0 {
		p.Kind = PhaseBased
		for i, item := range phases {
			var rp rawPhase
			if err := json.Unmarshal(item, &rp); err != nil {
				p.Skipped = append(p.Skipped, fmt.Sprintf("phase #%d: %v", i+1, err))
				continue
			}
			p.Phases = append(p.Phases, Phase{
				Name:   rp.Name,
				Status: rp.Status,
				Weeks:  string(rp.Weeks),
				Tasks:  decodeTasks(rp.Tasks, fmt.Sprintf("phase %q", rp.Name), true, &p.Skipped),
			})
		}
	} else if weeks, ok := decodeWeeks(raw.Weeks, &p.Skipped); ok && len(weeks) > 0 {
		p.Kind = WeekBased
		p.Weeks = weeks
	}

	if features, ok := rawArray(raw.AdditionalFeatures); ok {
		for i, item := range features {
			var rf rawFeature
			if err := json.Unmarshal(item, &rf); err != nil {
				p.Skipped = append(p.Skipped, fmt.Sprintf("additional feature #%d: %v", i+1, err))
				continue
			}
			p.AdditionalFeatures = append(p.AdditionalFeatures, Feature{
				Name:        rf.Name,
				Status:      rf.Status,
				StartedAt:   ParseTimestamp(string(rf.StartedAt)),
				CompletedAt: ParseTimestamp(string(rf.CompletedAt)),
			})
		}
	}

	return p, nil
}

func rawArray(raw json.RawMessage) ([]json.RawMessage, bool) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, false
	}
	var items []json.RawMessage
	if err := json.Unmarshal(trimmed, &items); err != nil {
		return nil, false
	}
	return items, true
}

// decodeWeeks walks the weeks object token by token so keys keep their
// document order.
func decodeWeeks(raw json.RawMessage, skipped *[]string) ([]Week, bool) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, false
	}
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	if _, err := dec.Token(); err != nil {
		return nil, false
	}

	var weeks []Week
	for dec.More() {
		keyToken, err := dec.Token()
		if err != nil {
			return weeks, true
		}
		key, _ := keyToken.(string)

		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return weeks, true
		}
		var rw rawWeek
		if err := json.Unmarshal(value, &rw); err != nil {
			*skipped = append(*skipped, fmt.Sprintf("week %q: %v", key, err))
			continue
		}
		weeks = append(weeks, Week{
			Key:    key,
			Focus:  rw.Focus,
			Status: rw.Status,
			Tasks:  decodeTasks(rw.Tasks, fmt.Sprintf("week %q", key), true, skipped),
		})
	}
	return weeks, true
}

// decodeTasks decodes tasks one at a time so a malformed task is skipped
// without losing its siblings. Subtasks below the first level are ignored.
func decodeTasks(raw json.RawMessage, parent string, withSubtasks bool, skipped *[]string) []Task {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	items, ok := rawArray(trimmed)
	if !ok {
		*skipped = append(*skipped, fmt.Sprintf("%s: tasks is not an array", parent))
		return nil
	}
	if len(items) == 0 {
		return nil
	}
	tasks := make([]Task, 0, len(items))
	for i, item := range items {
		var rt rawTask
		if err := json.Unmarshal(item, &rt); err != nil {
			*skipped = append(*skipped, fmt.Sprintf("%s task #%d: %v", parent, i+1, err))
			continue
		}
		task := Task{
			Id:          string(rt.Id),
			Description: rt.Description,
			Status:      rt.Status,
			StartedAt:   ParseTimestamp(string(rt.StartedAt)),
			CompletedAt: ParseTimestamp(string(rt.CompletedAt)),
		}
		if withSubtasks {
			task.Subtasks = decodeTasks(rt.Subtasks, fmt.Sprintf("%s task #%d", parent, i+1), false, skipped)
		}
		tasks = append(tasks, task)
	}
	return tasks
}
