package spreadsheet

import (
	"strings"
)

// Field is one of the five project-sheet columns.
type Field string

const (
	FieldProject     Field = "project"
	FieldTask        Field = "task"
	FieldResponsible Field = "responsible"
	FieldStart       Field = "start"
	FieldEnd         Field = "end"
)

// Fields in positional-default order.
var Fields = []Field{FieldProject, FieldTask, FieldResponsible, FieldStart, FieldEnd}

// keywords are matched as case-insensitive substrings of the header.
var keywords = map[Field][]string{
	FieldProject:     {"projeto", "project"},
	FieldTask:        {"etapa", "task", "tarefa"},
	FieldResponsible: {"responsável", "responsavel", "responsible"},
	FieldStart:       {"início", "inicio", "start"},
	FieldEnd:         {"fim", "end"},
}

// ColumnRule pins a field to a header name or a zero-based column index.
type ColumnRule struct {
	Header string `yaml:"header" json:"header,omitempty"`
	Index  *int   `yaml:"index" json:"index,omitempty"`
}

// ColumnMapping is the declarative column configuration of the project
// sheet. Fields without a rule fall back to keywords, then position.
type ColumnMapping map[Field]ColumnRule

// Resolve assigns a column index to every field. Per field the order is:
// explicit header, explicit index, keyword match, positional default.
func (m ColumnMapping) Resolve(headers []string) map[Field]int {
	lower := make([]string, len(headers))
	for i, h := range headers {
		lower[i] = strings.ToLower(strings.TrimSpace(h))
	}

	out := make(map[Field]int, len(Fields))
	claimed := make(map[int]bool)

	for _, f := range Fields {
		rule, ok := m[f]
		if !ok || rule.Header == "" {
			continue
		}
		want := strings.ToLower(strings.TrimSpace(rule.Header))
		for i, h := range lower {
			if h == want {
				out[f] = i
				claimed[i] = true
				break
			}
		}
	}

	for _, f := range Fields {
		if _, done := out[f]; done {
			continue
		}
		if rule, ok := m[f]; ok && rule.Index != nil && *rule.Index >= 0 {
			out[f] = *rule.Index
			claimed[*rule.Index] = true
		}
	}

	// each header feeds at most one field
	for i, h := range lower {
		if h == "" || claimed[i] {
			continue
		}
		for _, f := range Fields {
			if _, done := out[f]; done {
				continue
			}
			if matchesKeyword(h, f) {
				out[f] = i
				claimed[i] = true
				break
			}
		}
	}

	for pos, f := range Fields {
		if _, done := out[f]; !done {
			out[f] = pos
		}
	}
	return out
}

func matchesKeyword(header string, f Field) bool {
	for _, kw := range keywords[f] {
		if strings.Contains(header, kw) {
			return true
		}
	}
	return false
}

type sheetKind int

const (
	sheetOther sheetKind = iota
	sheetProjects
	sheetTasks
	sheetWeekly
)

// classifySheet detects the sheet role from its name.
func classifySheet(name string) sheetKind {
	n := strings.ToLower(name)
	switch {
	case strings.Contains(n, "projeto") || strings.Contains(n, "project"):
		return sheetProjects
	case strings.Contains(n, "etapa") || strings.Contains(n, "task"):
		return sheetTasks
	case strings.Contains(n, "semana") || strings.Contains(n, "week"):
		return sheetWeekly
	}
	return sheetOther
}
