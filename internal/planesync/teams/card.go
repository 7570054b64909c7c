package teams

import (
	"fmt"

	"github.com/petr-muller/planesync/internal/mappings"
	"github.com/petr-muller/planesync/internal/planesync/selection"
)

const (
	attachmentContentType = "application/vnd.microsoft.card.adaptive"
	cardSchema            = "http://adaptivecards.io/schemas/adaptive-card.json"
	cardVersion           = "1.2"
)

// Message is the webhook body carrying a single Adaptive Card
type Message struct {
	Type        string       `json:"type"`
	Attachments []Attachment `json:"attachments"`
}

// Attachment wraps the card
type Attachment struct {
	ContentType string `json:"contentType"`
	Content     Card   `json:"content"`
}

// Card is an Adaptive Card
type Card struct {
	Schema  string    `json:"$schema"`
	Type    string    `json:"type"`
	Version string    `json:"version"`
	Body    []Element `json:"body"`
}

// Element is any Adaptive Card element used by the notification. Only the
// fields relevant to the element type are set.
type Element struct {
	Type                string    `json:"type"`
	Text                string    `json:"text,omitempty"`
	Size                string    `json:"size,omitempty"`
	Weight              string    `json:"weight,omitempty"`
	Color               string    `json:"color,omitempty"`
	HorizontalAlignment string    `json:"horizontalAlignment,omitempty"`
	Spacing             string    `json:"spacing,omitempty"`
	Wrap                bool      `json:"wrap,omitempty"`
	Style               string    `json:"style,omitempty"`
	Bleed               bool      `json:"bleed,omitempty"`
	Width               string    `json:"width,omitempty"`
	Items               []Element `json:"items,omitempty"`
	Columns             []Element `json:"columns,omitempty"`
	SelectAction        *Action   `json:"selectAction,omitempty"`
}

// Action opens a URL when a row is clicked
type Action struct {
	Type string `json:"type"`
	URL  string `json:"url"`
}

// NewMessage renders a payload as a Teams message. A nil style uses the default colors.
func NewMessage(payload selection.Payload, style *mappings.CardStyle) Message {
	if style == nil {
		style = mappings.NewCardStyle()
	}

	header := Element{
		Type:  "Container",
		Style: "emphasis",
		Bleed: true,
		Items: []Element{{
			Type:                "TextBlock",
			Text:                "🎯 " + payload.Title,
			Size:                "large",
			Weight:              "bolder",
			Color:               "accent",
			HorizontalAlignment: "center",
			Spacing:             "large",
			Wrap:                true,
		}},
	}

	entries := payload.Entries
	if len(entries) > selection.MaxEntries {
		entries = entries[:selection.MaxEntries]
	}
	rows := make([]Element, 0, len(entries))
	for i, entry := range entries {
		rows = append(rows, row(i, entry, style))
	}

	return Message{
		Type: "message",
		Attachments: []Attachment{{
			ContentType: attachmentContentType,
			Content: Card{
				Schema:  cardSchema,
				Type:    "AdaptiveCard",
				Version: cardVersion,
				Body: []Element{
					header,
					{Type: "Container", Bleed: true, Items: rows},
				},
			},
		}},
	}
}

func row(i int, entry selection.Entry, style *mappings.CardStyle) Element {
	return Element{
		Type:    "ColumnSet",
		Spacing: "medium",
		Columns: []Element{
			column("50px", Element{
				Type:                "TextBlock",
				Text:                fmt.Sprintf("#%d", i+1),
				Color:               "accent",
				Weight:              "bolder",
				HorizontalAlignment: "left",
			}),
			column("100px", Element{
				Type:                "TextBlock",
				Text:                fmt.Sprintf("[%s]", entry.Priority),
				Color:               style.ColorForPriority(entry.Priority),
				Weight:              "bolder",
				HorizontalAlignment: "left",
			}),
			column("stretch", Element{
				Type:                "TextBlock",
				Text:                fmt.Sprintf("%s (**%s**)", entry.Title, style.StateName(entry.State)),
				Wrap:                true,
				HorizontalAlignment: "left",
			}),
		},
		SelectAction: &Action{Type: "Action.OpenUrl", URL: entry.URL},
	}
}

func column(width string, text Element) Element {
	return Element{Type: "Column", Width: width, Items: []Element{text}}
}
