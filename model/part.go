package model

// Part represents a segment of message content. Concrete part types implement
// the unexported isPart marker, closing the set.
type Part interface{ isPart() }

// TextPart is plain text.
type TextPart struct {
	Text string
}

func (TextPart) isPart() {}

// ActionCallPart is a model request to invoke an action.
type ActionCallPart struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
	// Arguments is the raw JSON argument object as produced by the model.
	Arguments string `json:"arguments,omitempty"`
}

func (ActionCallPart) isPart() {}

// ActionResultPart feeds the outcome of an action call back to the model.
type ActionResultPart struct {
	ID      string `json:"id,omitempty"` // Matches the originating ActionCallPart ID
	Name    string `json:"name"`
	Content string `json:"content"`
	IsError bool   `json:"is_error,omitempty"`
}

func (ActionResultPart) isPart() {}

// Roles used in messages.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Message holds a role and ordered parts.
type Message struct {
	Role  string `json:"role"`
	Parts []Part `json:"parts"`
}

// UserText builds a user message with a single text part.
func UserText(text string) Message {
	return Message{Role: RoleUser, Parts: []Part{TextPart{Text: text}}}
}

// AssistantText builds an assistant message with a single text part.
func AssistantText(text string) Message {
	return Message{Role: RoleAssistant, Parts: []Part{TextPart{Text: text}}}
}

// Text concatenates the text parts of the message.
func (m Message) Text() string {
	var s string
	for _, p := range m.Parts {
		if tp, ok := p.(TextPart); ok {
			s += tp.Text
		}
	}
	return s
}
