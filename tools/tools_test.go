package tools_test

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	deltabot "github.com/phbpx/delta-agent"
	"github.com/phbpx/delta-agent/tools"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var uuidPattern = regexp.MustCompile(`[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}`)

type fakeLeads struct {
	leads    []deltabot.Lead
	bookings []deltabot.Booking
	err      error
}

func (f *fakeLeads) Create(_ context.Context, lead deltabot.Lead) error {
	if f.err != nil {
		return f.err
	}
	f.leads = append(f.leads, lead)
	return nil
}

func (f *fakeLeads) Book(_ context.Context, booking deltabot.Booking) error {
	if f.err != nil {
		return f.err
	}
	f.bookings = append(f.bookings, booking)
	return nil
}

func (f *fakeLeads) StatusCheck(context.Context) error {
	return f.err
}

func fixedNow() time.Time {
	return time.Date(2026, time.October, 19, 15, 4, 5, 0, time.UTC)
}

func TestRegistrySpecs(t *testing.T) {
	r := tools.Default(&fakeLeads{}, fixedNow)

	specs := r.Specs()
	require.Len(t, specs, 3)
	assert.Equal(t, "save_lead_tool", specs[0].Name)
	assert.Equal(t, "get_available_slots_tool", specs[1].Name)
	assert.Equal(t, "book_call_tool", specs[2].Name)

	assert.Equal(t, []string{"name", "email"}, specs[0].Required())
	assert.Empty(t, specs[1].Params)
	assert.Equal(t, []string{"name", "email", "selected_time"}, specs[2].Required())
}

func TestRegistryUnknownTool(t *testing.T) {
	r := tools.Default(&fakeLeads{}, fixedNow)

	_, err := r.Call(context.Background(), "delete_everything", "{}")
	assert.ErrorIs(t, err, tools.ErrUnknownTool)
}

func TestSaveLead(t *testing.T) {
	leads := &fakeLeads{}
	r := tools.Default(leads, fixedNow)

	out, err := r.Call(context.Background(), "save_lead_tool", `{"name":"Ada Lovelace","email":"ada@example.com"}`)
	require.NoError(t, err)

	require.Len(t, leads.leads, 1)
	lead := leads.leads[0]
	assert.Equal(t, "Successfully saved lead for Ada Lovelace. ID: "+lead.ID, out)
	assert.Regexp(t, uuidPattern, lead.ID)
	assert.Equal(t, deltabot.DefaultLeadDetails, lead.Details)
	assert.Equal(t, fixedNow(), lead.CreatedAt)

	// Every call gets a fresh identifier.
	_, err = r.Call(context.Background(), "save_lead_tool", `{"name":"Ada Lovelace","email":"ada@example.com","details":"Wants SEO"}`)
	require.NoError(t, err)
	require.Len(t, leads.leads, 2)
	assert.NotEqual(t, leads.leads[0].ID, leads.leads[1].ID)
	assert.Equal(t, "Wants SEO", leads.leads[1].Details)
}

func TestSaveLeadInvalidArguments(t *testing.T) {
	leads := &fakeLeads{}
	r := tools.Default(leads, fixedNow)

	for _, args := range []string{
		`{"name":"Ada"`,
		`{"name":"Ada"}`,
		`{"name":42,"email":"ada@example.com"}`,
		``,
	} {
		_, err := r.Call(context.Background(), "save_lead_tool", args)
		assert.ErrorIs(t, err, deltabot.ErrInvalidArguments, "args %q", args)
	}
	assert.Empty(t, leads.leads)
}

func TestSaveLeadStoreError(t *testing.T) {
	r := tools.Default(&fakeLeads{err: errors.New("connection refused")}, fixedNow)

	out, err := r.Call(context.Background(), "save_lead_tool", `{"name":"Ada","email":"ada@example.com"}`)
	require.NoError(t, err)
	assert.Equal(t, "Error saving lead: connection refused", out)
}

func TestAvailableSlots(t *testing.T) {
	r := tools.Default(&fakeLeads{}, fixedNow)

	out, err := r.Call(context.Background(), "get_available_slots_tool", "")
	require.NoError(t, err)

	want := "Available slots:\n" +
		"2026-10-20 at 10:00 AM\n" +
		"2026-10-20 at 2:00 PM\n" +
		"2026-10-21 at 10:00 AM\n" +
		"2026-10-21 at 2:00 PM\n" +
		"2026-10-22 at 10:00 AM\n" +
		"2026-10-22 at 2:00 PM"
	assert.Equal(t, want, out)
}

func TestBookCall(t *testing.T) {
	leads := &fakeLeads{}
	r := tools.Default(leads, fixedNow)

	out, err := r.Call(context.Background(), "book_call_tool",
		`{"name":"Ada","email":"ada@example.com","selected_time":"2026-10-20 at 10:00 AM"}`)
	require.NoError(t, err)

	require.Len(t, leads.bookings, 1)
	booking := leads.bookings[0]
	assert.Equal(t, "Booking confirmed for Ada at 2026-10-20 at 10:00 AM. Reference: "+booking.ID, out)
	assert.Regexp(t, uuidPattern, booking.ID)
	assert.Equal(t, deltabot.DefaultBookingIntent, booking.Intent)
	assert.Equal(t, deltabot.BookingConfirmed, booking.Status)
}

func TestBookCallInvalidArguments(t *testing.T) {
	leads := &fakeLeads{}
	r := tools.Default(leads, fixedNow)

	_, err := r.Call(context.Background(), "book_call_tool", `{"name":"Ada","email":"ada@example.com"}`)
	require.ErrorIs(t, err, deltabot.ErrInvalidArguments)
	assert.Contains(t, err.Error(), "selected_time")
	assert.Empty(t, leads.bookings)
}

func TestBookCallStoreError(t *testing.T) {
	r := tools.Default(&fakeLeads{err: errors.New("timeout")}, fixedNow)

	out, err := r.Call(context.Background(), "book_call_tool",
		`{"name":"Ada","email":"ada@example.com","selected_time":"tomorrow 2pm","intent":"Ads audit"}`)
	require.NoError(t, err)
	assert.Equal(t, "Error booking call: timeout", out)
}
