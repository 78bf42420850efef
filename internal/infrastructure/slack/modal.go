package slack

import (
	"encoding/json"
	"errors"
	"fmt"
	"remindme/internal/domain/gateway"
	"strconv"

	"github.com/slack-go/slack"
)

// Interaction identifiers registered with the Slack app.
const (
	ShortcutCallbackID   = "remind_me_callback"
	SubmissionCallbackID = "relative_time_submission"
	selectActionID       = "static_select-action"
)

// Block ids of the delay selects.
const (
	MinutesBlockID = "minutes"
	HoursBlockID   = "hours"
	DaysBlockID    = "days"
)

// DelayBlockIDs lists the delay select blocks in display order.
var DelayBlockIDs = []string{MinutesBlockID, HoursBlockID, DaysBlockID}

type delaySelect struct {
	blockID string
	label   string
	limit   int // exclusive
}

var delaySelects = []delaySelect{
	{blockID: MinutesBlockID, label: "Minutes", limit: 60},
	{blockID: HoursBlockID, label: "Hours", limit: 24},
	{blockID: DaysBlockID, label: "Days", limit: 15},
}

// modalMetadata is carried in the view's private_metadata.
type modalMetadata struct {
	ChannelID string `json:"channel_id"`
	MessageID string `json:"message_id"`
}

// Submission is a parsed delay picker submission.
type Submission struct {
	Ref     gateway.ContentRef
	Minutes int
	Hours   int
	Days    int
}

// AllZero reports whether no delay was chosen.
func (s Submission) AllZero() bool {
	return s.Minutes == 0 && s.Hours == 0 && s.Days == 0
}

// ReminderModal builds the delay picker for the message identified by ref.
func ReminderModal(ref gateway.ContentRef) (slack.ModalViewRequest, error) {
	metadata, err := json.Marshal(modalMetadata{ChannelID: ref.ChannelID, MessageID: ref.MessageTs})
	if err != nil {
		return slack.ModalViewRequest{}, fmt.Errorf("failed to encode modal metadata: %w", err)
	}

	blocks := []slack.Block{
		slack.NewHeaderBlock(plainText("Relative Time")),
	}
	for _, sel := range delaySelects {
		blocks = append(blocks, numberSelectBlock(sel))
	}

	return slack.ModalViewRequest{
		Type:            slack.VTModal,
		CallbackID:      SubmissionCallbackID,
		PrivateMetadata: string(metadata),
		Title:           plainText("Remind Me"),
		Submit:          plainText("Submit"),
		Close:           plainText("Cancel"),
		Blocks:          slack.Blocks{BlockSet: blocks},
	}, nil
}

// ParseSubmission reads the chosen delay and the target message from a submitted view.
func ParseSubmission(view slack.View) (Submission, error) {
	var metadata modalMetadata
	if err := json.Unmarshal([]byte(view.PrivateMetadata), &metadata); err != nil {
		return Submission{}, fmt.Errorf("invalid private metadata: %w", err)
	}
	if view.State == nil {
		return Submission{}, errors.New("view has no state")
	}

	values := make(map[string]int, len(delaySelects))
	for _, sel := range delaySelects {
		action, ok := view.State.Values[sel.blockID][selectActionID]
		if !ok {
			return Submission{}, fmt.Errorf("missing value for %s", sel.blockID)
		}
		n, err := strconv.Atoi(action.SelectedOption.Value)
		if err != nil || n < 0 || n >= sel.limit {
			return Submission{}, fmt.Errorf("invalid value %q for %s", action.SelectedOption.Value, sel.blockID)
		}
		values[sel.blockID] = n
	}

	return Submission{
		Ref:     gateway.ContentRef{ChannelID: metadata.ChannelID, MessageTs: metadata.MessageID},
		Minutes: values[MinutesBlockID],
		Hours:   values[HoursBlockID],
		Days:    values[DaysBlockID],
	}, nil
}

func numberSelectBlock(sel delaySelect) *slack.InputBlock {
	options := make([]*slack.OptionBlockObject, sel.limit)
	for i := range options {
		v := strconv.Itoa(i)
		options[i] = slack.NewOptionBlockObject(v, plainText(v), nil)
	}
	element := slack.NewOptionsSelectBlockElement(slack.OptTypeStatic, plainText(sel.label), selectActionID, options...)
	element.InitialOption = options[0]
	return slack.NewInputBlock(sel.blockID, plainText(sel.label), nil, element)
}

func plainText(text string) *slack.TextBlockObject {
	return slack.NewTextBlockObject(slack.PlainTextType, text, false, false)
}
