// Package jrchat defines the messages exchanged between a chat surface and the jrchat host.
// Messages are JSON objects tagged by "command", sent one per frame.
package jrchat

// Message kinds sent from the host to the surface.
const (
	KindResponse = "response"
	KindError    = "error"
	KindFileList = "fileList"
)

// Message kinds sent from the surface to the host.
const (
	KindPrompt          = "prompt"
	KindRequestFileList = "requestFileList"
)

// Error codes carried on "error" messages.
const (
	CodeNotConfigured  = "not_configured"
	CodeTransportError = "transport_error"
	CodeProtocolError  = "protocol_error"
)

// Role identifies the author of a conversation message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Envelope is a single message on the surface/host channel.
type Envelope struct {
	// Command is the message kind.
	Command string `json:"command,omitempty"`
	// Type is an alternative tag some surfaces use instead of Command.
	Type string `json:"type,omitempty"`
	// Text is the prompt, answer, or error description.
	Text string `json:"text,omitempty"`
	// Files maps a workspace path to file context attached to a prompt.
	Files map[string]FileContext `json:"files,omitempty"`
	// Prefix is the partial path typed after "@" in a file list request.
	Prefix string `json:"prefix,omitempty"`
	// Payload is the list of matching paths in a file list reply.
	Payload []string `json:"payload,omitempty"`
	// Code is a machine-readable error class (e.g. "not_configured").
	Code string `json:"code,omitempty"`
}

// Kind returns the message kind, preferring Command over Type.
func (e *Envelope) Kind() string {
	if e.Command != "" {
		return e.Command
	}
	return e.Type
}

// FileContext is the content of a file referenced from a prompt.
type FileContext struct {
	Content  string `json:"content"`
	Language string `json:"language,omitempty"`
}

// Message is one entry of a conversation.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// ConversationState is the ordered history shown by a surface.
type ConversationState struct {
	Messages []Message `json:"messages"`
}

// Response builds a successful answer message.
func Response(text string) Envelope {
	return Envelope{Command: KindResponse, Text: text}
}

// Error builds an error message.
func Error(code, text string) Envelope {
	return Envelope{Command: KindError, Code: code, Text: text}
}

// FileList builds a file suggestion reply. An empty list omits the payload field.
func FileList(paths []string) Envelope {
	return Envelope{Command: KindFileList, Payload: paths}
}

// Prompt builds a prompt message.
func Prompt(text string, files map[string]FileContext) Envelope {
	return Envelope{Command: KindPrompt, Text: text, Files: files}
}

// RequestFileList builds a file suggestion request.
func RequestFileList(prefix string) Envelope {
	return Envelope{Command: KindRequestFileList, Prefix: prefix}
}
