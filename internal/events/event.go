package events

import (
	"encoding/json"
	"time"
)

// 事件主题
const (
	TopicProjectsChanged = "projects.changed"
	TopicWeeklyChanged   = "weekly.changed"
	TopicStatusRollover  = "status.rollover"
	TopicTaskOverdue     = "task.overdue"
)

var AllTopics = []string{TopicProjectsChanged, TopicWeeklyChanged, TopicStatusRollover, TopicTaskOverdue}

// 通用 Event
type Event struct {
	Type       string          `json:"type"`
	Data       json.RawMessage `json:"data"`
	OccurredAt time.Time       `json:"occurredAt"`
}

func NewEvent(eventType string, payload any) (Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	return Event{Type: eventType, Data: data, OccurredAt: time.Now().UTC()}, nil
}

// Decode unmarshals the payload into out.
func (e Event) Decode(out any) error {
	return json.Unmarshal(e.Data, out)
}

type ProjectsChangedPayload struct {
	Reason    string   `json:"reason"`
	ProjectID string   `json:"projectId,omitempty"`
	TaskIDs   []string `json:"taskIds,omitempty"`
}

type WeeklyChangedPayload struct {
	Reason string `json:"reason"`
	Day    string `json:"day,omitempty"`
	TaskID string `json:"taskId,omitempty"`
}

type StatusRolloverPayload struct {
	Date    string `json:"date"`
	Changed int    `json:"changed"`
}

type TaskOverduePayload struct {
	TaskID      string `json:"taskId"`
	TaskName    string `json:"taskName"`
	ProjectID   string `json:"projectId"`
	ProjectName string `json:"projectName"`
	Responsible string `json:"responsible"`
	EndDate     string `json:"endDate"`
}
