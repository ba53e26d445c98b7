package formatting

import "github.com/Freeeeeet/servicejobs/internal/model"

// StatusDisplay - эмодзи и подпись статуса
type StatusDisplay struct {
	Emoji string
	Text  string
}

func OccurrenceStatus(status model.OccurrenceStatus) StatusDisplay {
	displays := map[model.OccurrenceStatus]StatusDisplay{
		model.OccurrenceScheduled:  {"🗓", "Scheduled"},
		model.OccurrenceInProgress: {"🔧", "In progress"},
		model.OccurrenceCompleted:  {"✅", "Completed"},
		model.OccurrenceCancelled:  {"❌", "Cancelled"},
	}

	if display, ok := displays[status]; ok {
		return display
	}

	return StatusDisplay{"❓", "Unknown"}
}

func Priority(p model.JobPriority) StatusDisplay {
	displays := map[model.JobPriority]StatusDisplay{
		model.PriorityLow:    {"🔵", "Low"},
		model.PriorityNormal: {"🟢", "Normal"},
		model.PriorityHigh:   {"🟠", "High"},
		model.PriorityUrgent: {"🔴", "Urgent"},
	}

	if display, ok := displays[p]; ok {
		return display
	}

	return StatusDisplay{"⚪️", string(p)}
}
