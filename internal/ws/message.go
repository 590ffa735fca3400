package ws

// Incoming command types. Outgoing frame types live in the event package.
const (
	CmdMessageSend    = "message.send"
	CmdMessageDelete  = "message.delete"
	CmdMessageForward = "message.forward"
	CmdReactionAdd    = "reaction.add"
	CmdReactionRemove = "reaction.remove"
	CmdReactionUpdate = "reaction.update"
	CmdTyping         = "typing"
)

// Command is the decoded form of a client frame. Fields are a union over all
// command types; handlers validate what they need.
type Command struct {
	Type        string   `json:"type"`
	ChatID      string   `json:"chat_id,omitempty"`
	MessageID   string   `json:"message_id,omitempty"`
	MessageIDs  []string `json:"message_ids,omitempty"`
	ReactionID  string   `json:"reaction_id,omitempty"`
	Content     string   `json:"content,omitempty"`
	MessageType string   `json:"message_type,omitempty"`
	FileURL     string   `json:"file_url,omitempty"`
	ReplyToID   string   `json:"reply_to_id,omitempty"`
	DeleteType  string   `json:"delete_type,omitempty"`
	Emoji       string   `json:"emoji,omitempty"`
	IsTyping    bool     `json:"is_typing,omitempty"`
}
