package plan

import "time"

// Kind discriminates the two supported plan document shapes.
type Kind int

const (
	Unknown Kind = iota
	PhaseBased
	WeekBased
)

func (k Kind) String() string {
	switch k {
	case PhaseBased:
		return "phases"
	case WeekBased:
		return "weeks"
	default:
		return "unknown"
	}
}

const (
	// StatusDone marks a finished task, subtask, phase or week.
	StatusDone = "done"
	// StatusCompleted marks a finished additional feature.
	StatusCompleted = "completed"
)

type Plan struct {
	Kind               Kind
	Phases             []Phase
	Weeks              []Week // document order
	AdditionalFeatures []Feature
	// Skipped lists sections that could not be decoded and were left out.
	Skipped []string
}

type Phase struct {
	Name   string
	Status string
	// Weeks is the declared week range, e.g. "1-2". May be empty.
	Weeks string
	Tasks []Task
}

type Week struct {
	Key    string // e.g. "week3"
	Focus  string
	Status string
	Tasks  []Task
}

type Task struct {
	Id          string
	Description string
	Status      string
	StartedAt   *time.Time
	CompletedAt *time.Time
	// Subtasks is only one level deep; subtasks never carry subtasks of their own.
	Subtasks []Task
}

func (t Task) IsDone() bool {
	return t.Status == StatusDone
}

// Feature is an ad hoc item tracked outside the phase schedule.
type Feature struct {
	Name        string
	Status      string
	StartedAt   *time.Time
	CompletedAt *time.Time
}

// Section is the shape-independent view of a phase or a week.
type Section struct {
	Key    string
	Title  string
	Status string
	Tasks  []Task
}

// Sections returns the plan's phases or weeks in document order.
// Unknown plans have no sections.
func (p Plan) Sections() []Section {
	switch p.Kind {
	case PhaseBased:
		sections := make([]Section, 0, len(p.Phases))
		for _, phase := range p.Phases {
			sections = append(sections, Section{
				Key:    phase.Name,
				Title:  phase.Name,
				Status: phase.Status,
				Tasks:  phase.Tasks,
			})
		}
		return sections
	case WeekBased:
		sections := make([]Section, 0, len(p.Weeks))
		for _, week := range p.Weeks {
			sections = append(sections, Section{
				Key:    week.Key,
				Title:  week.Focus,
				Status: week.Status,
				Tasks:  week.Tasks,
			})
		}
		return sections
	default:
		return nil
	}
}
