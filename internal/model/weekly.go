package model

import (
	"fmt"
	"strings"
	"time"
)

// Weekday is one of the seven fixed planner keys.
type Weekday string

const (
	Monday    Weekday = "monday"
	Tuesday   Weekday = "tuesday"
	Wednesday Weekday = "wednesday"
	Thursday  Weekday = "thursday"
	Friday    Weekday = "friday"
	Saturday  Weekday = "saturday"
	Sunday    Weekday = "sunday"
)

// Weekdays in planner column order.
var Weekdays = []Weekday{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}

var weekdayLabels = map[Weekday]string{
	Monday:    "Segunda-feira",
	Tuesday:   "Terça-feira",
	Wednesday: "Quarta-feira",
	Thursday:  "Quinta-feira",
	Friday:    "Sexta-feira",
	Saturday:  "Sábado",
	Sunday:    "Domingo",
}

var weekdayAliases = map[string]Weekday{
	"segunda": Monday,
	"terça":   Tuesday,
	"terca":   Tuesday,
	"quarta":  Wednesday,
	"quinta":  Thursday,
	"sexta":   Friday,
	"sábado":  Saturday,
	"sabado":  Saturday,
	"domingo": Sunday,
}

func (d Weekday) Valid() bool {
	_, ok := weekdayLabels[d]
	return ok
}

func (d Weekday) Label() string {
	if l, ok := weekdayLabels[d]; ok {
		return l
	}
	return string(d)
}

// ParseWeekday accepts English keys and Portuguese day names with or without
// the "-feira" suffix, case-insensitively.
func ParseWeekday(s string) (Weekday, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	if d := Weekday(key); d.Valid() {
		return d, nil
	}
	key = strings.TrimSuffix(key, "-feira")
	key = strings.TrimSuffix(key, " feira")
	if d, ok := weekdayAliases[key]; ok {
		return d, nil
	}
	return "", fmt.Errorf("unknown weekday %q", s)
}

// Allocation references a task assigned to a weekday. Legacy snapshot objects
// decode into it keeping only the id.
type Allocation struct {
	TaskID     string    `json:"id"`
	AssignedAt time.Time `json:"assignedAt,omitempty"`
}

type WeeklyPlan map[Weekday][]Allocation

func NewWeeklyPlan() WeeklyPlan {
	p := make(WeeklyPlan, len(Weekdays))
	for _, d := range Weekdays {
		p[d] = []Allocation{}
	}
	return p
}

// Normalize drops unknown day keys and makes sure all seven days exist.
func (p WeeklyPlan) Normalize() WeeklyPlan {
	out := NewWeeklyPlan()
	for _, d := range Weekdays {
		if allocs, ok := p[d]; ok && allocs != nil {
			out[d] = append([]Allocation{}, allocs...)
		}
	}
	return out
}

func (p WeeklyPlan) Clone() WeeklyPlan {
	return p.Normalize()
}

// Find returns the day holding the task, if any.
func (p WeeklyPlan) Find(taskID string) (Weekday, bool) {
	for _, d := range Weekdays {
		for _, a := range p[d] {
			if a.TaskID == taskID {
				return d, true
			}
		}
	}
	return "", false
}

func (p WeeklyPlan) AllocatedIDs() map[string]Weekday {
	out := make(map[string]Weekday)
	for _, d := range Weekdays {
		for _, a := range p[d] {
			out[a.TaskID] = d
		}
	}
	return out
}

func (p WeeklyPlan) Count() int {
	n := 0
	for _, d := range Weekdays {
		n += len(p[d])
	}
	return n
}
