package tools

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/phbpx/delta-agent/llm"
)

const slotDays = 3

var slotTimes = []string{"10:00 AM", "2:00 PM"}

// AvailableSlots offers two fixed times on each of the next three days.
type AvailableSlots struct {
	now func() time.Time
}

func (AvailableSlots) Spec() llm.ToolSpec {
	return llm.ToolSpec{
		Name: "get_available_slots_tool",
		Description: "Retrieves available discovery call time slots. " +
			"Use this when the user asks about availability or wants to book.",
	}
}

func (t AvailableSlots) Call(ctx context.Context, _ json.RawMessage) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	today := t.now()
	slots := make([]string, 0, slotDays*len(slotTimes))
	for i := 1; i <= slotDays; i++ {
		date := today.AddDate(0, 0, i).Format("2006-01-02")
		for _, at := range slotTimes {
			slots = append(slots, date+" at "+at)
		}
	}

	return "Available slots:\n" + strings.Join(slots, "\n"), nil
}
