package config

import (
	"fmt"

	"github.com/derailed/tcell/v2"
)

// Color represents a color in the application
type Color string

const (
	// DefaultColor represents a default color
	DefaultColor Color = "default"

	// TransparentColor represents the terminal bg color
	TransparentColor Color = "-"
)

// NewColor returns a new color
func NewColor(c string) Color {
	return Color(c)
}

// String returns color as string
func (c Color) String() string {
	if c.isHex() {
		return string(c)
	}
	if c == DefaultColor || c == TransparentColor {
		return "-"
	}
	col := c.Color().TrueColor().Hex()
	if col < 0 {
		return "-"
	}
	return fmt.Sprintf("#%06x", col)
}

func (c Color) isHex() bool {
	return len(c) == 7 && c[0] == '#'
}

// Color returns a view color
func (c Color) Color() tcell.Color {
	if c == DefaultColor || c == TransparentColor || c == "" {
		return tcell.ColorDefault
	}
	return tcell.GetColor(string(c)).TrueColor()
}

// BodyColors defines colors for the screen background and text
type BodyColors struct {
	FgColor Color `yaml:"fgColor"`
	BgColor Color `yaml:"bgColor"`
}

// FrameColors defines colors for panel borders and titles
type FrameColors struct {
	BorderColor Color `yaml:"borderColor"`
	FocusColor  Color `yaml:"focusColor"`
	TitleColor  Color `yaml:"titleColor"`
}

// ChatColors defines colors for chat bubbles
type ChatColors struct {
	UserColor        Color `yaml:"userColor"`
	AssistantColor   Color `yaml:"assistantColor"`
	PlaceholderColor Color `yaml:"placeholderColor"`
}

// InboxColors defines colors for the email list and details
type InboxColors struct {
	SubjectColor  Color `yaml:"subjectColor"`
	SenderColor   Color `yaml:"senderColor"`
	SelectedColor Color `yaml:"selectedColor"`
	ReplyColor    Color `yaml:"replyColor"`
}

// StatusColors defines colors for the activity log and busy indicator
type StatusColors struct {
	ActivityColor Color `yaml:"activityColor"`
	BusyColor     Color `yaml:"busyColor"`
	ErrorColor    Color `yaml:"errorColor"`
}

// ColorsConfig defines the complete color configuration
type ColorsConfig struct {
	Body   BodyColors   `yaml:"body"`
	Frame  FrameColors  `yaml:"frame"`
	Chat   ChatColors   `yaml:"chat"`
	Inbox  InboxColors  `yaml:"inbox"`
	Status StatusColors `yaml:"status"`
}

// DefaultColors returns the default color configuration
func DefaultColors() *ColorsConfig {
	return &ColorsConfig{
		Body: BodyColors{
			FgColor: NewColor("#f8f8f2"),
			BgColor: NewColor("#282a36"),
		},
		Frame: FrameColors{
			BorderColor: NewColor("#44475a"),
			FocusColor:  NewColor("#6272a4"),
			TitleColor:  NewColor("#f1fa8c"),
		},
		Chat: ChatColors{
			UserColor:        NewColor("#8be9fd"),
			AssistantColor:   NewColor("#f8f8f2"),
			PlaceholderColor: NewColor("#6272a4"),
		},
		Inbox: InboxColors{
			SubjectColor:  NewColor("#f8f8f2"),
			SenderColor:   NewColor("#bd93f9"),
			SelectedColor: NewColor("#44475a"),
			ReplyColor:    NewColor("#50fa7b"),
		},
		Status: StatusColors{
			ActivityColor: NewColor("#6272a4"),
			BusyColor:     NewColor("#ffb86c"),
			ErrorColor:    NewColor("#ff5555"),
		},
	}
}
