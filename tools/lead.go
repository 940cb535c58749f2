package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	deltabot "github.com/phbpx/delta-agent"
	"github.com/phbpx/delta-agent/llm"
)

type SaveLead struct {
	leads deltabot.LeadService
	now   func() time.Time
}

type saveLeadArgs struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Details string `json:"details"`
}

func (SaveLead) Spec() llm.ToolSpec {
	return llm.ToolSpec{
		Name: "save_lead_tool",
		Description: "Saves a user's contact information (lead) to the database. " +
			"Use this when the user provides their name and email address.",
		Params: []llm.Param{
			{Name: "name", Description: "The user's full name.", Required: true},
			{Name: "email", Description: "The user's email address.", Required: true},
			{Name: "details", Description: "Context about the inquiry. Defaults to \"General Inquiry\"."},
		},
	}
}

func (t SaveLead) Call(ctx context.Context, raw json.RawMessage) (string, error) {
	var args saveLeadArgs
	if err := decodeArgs(raw, &args); err != nil {
		return "", err
	}
	if err := required([2]string{"name", args.Name}, [2]string{"email", args.Email}); err != nil {
		return "", err
	}
	if args.Details == "" {
		args.Details = deltabot.DefaultLeadDetails
	}

	lead := deltabot.Lead{
		ID:        uuid.NewString(),
		Name:      args.Name,
		Email:     args.Email,
		Details:   args.Details,
		CreatedAt: t.now().UTC(),
	}

	if err := t.leads.Create(ctx, lead); err != nil {
		return fmt.Sprintf("Error saving lead: %s", err), nil
	}
	return fmt.Sprintf("Successfully saved lead for %s. ID: %s", lead.Name, lead.ID), nil
}

type BookCall struct {
	leads deltabot.LeadService
	now   func() time.Time
}

type bookCallArgs struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	SelectedTime string `json:"selected_time"`
	Intent       string `json:"intent"`
}

func (BookCall) Spec() llm.ToolSpec {
	return llm.ToolSpec{
		Name: "book_call_tool",
		Description: "Books a meeting. Use this ONLY after the user selects a specific time. " +
			"Requires name, email, and the chosen time string.",
		Params: []llm.Param{
			{Name: "name", Description: "The attendee's full name.", Required: true},
			{Name: "email", Description: "The attendee's email address.", Required: true},
			{Name: "selected_time", Description: "The slot the user picked, as offered.", Required: true},
			{Name: "intent", Description: "What will be discussed. Defaults to \"Discovery Call\"."},
		},
	}
}

func (t BookCall) Call(ctx context.Context, raw json.RawMessage) (string, error) {
	var args bookCallArgs
	if err := decodeArgs(raw, &args); err != nil {
		return "", err
	}
	err := required(
		[2]string{"name", args.Name},
		[2]string{"email", args.Email},
		[2]string{"selected_time", args.SelectedTime},
	)
	if err != nil {
		return "", err
	}
	if args.Intent == "" {
		args.Intent = deltabot.DefaultBookingIntent
	}

	booking := deltabot.Booking{
		ID:           uuid.NewString(),
		Name:         args.Name,
		Email:        args.Email,
		SelectedTime: args.SelectedTime,
		Intent:       args.Intent,
		Status:       deltabot.BookingConfirmed,
		CreatedAt:    t.now().UTC(),
	}

	if err := t.leads.Book(ctx, booking); err != nil {
		return fmt.Sprintf("Error booking call: %s", err), nil
	}
	return fmt.Sprintf("Booking confirmed for %s at %s. Reference: %s", booking.Name, booking.SelectedTime, booking.ID), nil
}
