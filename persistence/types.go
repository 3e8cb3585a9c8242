package persistence

import "time"

// Peer is a remote party the core has discovered or paired with.
type Peer struct {
	ID          string    `gorm:"column:id;primaryKey"`
	DisplayName string    `gorm:"column:display_name"`
	Address     string    `gorm:"column:address"`
	Trusted     bool      `gorm:"column:trusted"`
	LastSeen    time.Time `gorm:"column:last_seen"`
	Fingerprint string    `gorm:"column:fingerprint"`
}

// TableName pins the GORM table name independent of struct naming.
func (Peer) TableName() string { return "devices" }

// MessageStatus is the lifecycle state of a persisted message. Status
// is monotonic: Sent < Delivered < Read.
type MessageStatus string

const (
	MessageSent      MessageStatus = "sent"
	MessageDelivered MessageStatus = "delivered"
	MessageRead      MessageStatus = "read"
)

// rank orders MessageStatus for monotonicity checks.
func (s MessageStatus) rank() int {
	switch s {
	case MessageSent:
		return 0
	case MessageDelivered:
		return 1
	case MessageRead:
		return 2
	default:
		return -1
	}
}

// Message is one append-only row in a conversation's history.
type Message struct {
	ID             string        `gorm:"column:id;primaryKey"`
	ConversationID string        `gorm:"column:conversation_id;index:idx_messages_conversation"`
	SenderID       string        `gorm:"column:sender_id"`
	ReceiverID     string        `gorm:"column:receiver_id"`
	Payload        []byte        `gorm:"column:payload"`
	Timestamp      time.Time     `gorm:"column:timestamp"`
	Status         MessageStatus `gorm:"column:status;check:status IN ('sent','delivered','read')"`
}

// TableName pins the GORM table name independent of struct naming.
func (Message) TableName() string { return "messages" }

// FileStatus is the lifecycle state of a file-transfer record. Once
// Complete or Failed it is terminal.
type FileStatus string

const (
	FilePending    FileStatus = "pending"
	FileInProgress FileStatus = "in_progress"
	FileComplete   FileStatus = "complete"
	FileFailed     FileStatus = "failed"
)

// FileTransfer is one file-transfer record, in flight or concluded.
type FileTransfer struct {
	ID         string     `gorm:"column:id;primaryKey"`
	SenderID   string     `gorm:"column:sender_id"`
	ReceiverID string     `gorm:"column:receiver_id"`
	Filename   string     `gorm:"column:filename"`
	TotalSize  int64      `gorm:"column:total_size"`
	SentSize   int64      `gorm:"column:sent_size"`
	Checksum   string     `gorm:"column:checksum"`
	LocalPath  string     `gorm:"column:local_path"`
	Timestamp  time.Time  `gorm:"column:timestamp"`
	Status     FileStatus `gorm:"column:status;check:status IN ('pending','in_progress','complete','failed')"`
}

// TableName pins the GORM table name independent of struct naming.
func (FileTransfer) TableName() string { return "files" }

// Settings is the persisted settings record, serialized as JSON and
// stored encrypted under the OS config directory.
type Settings struct {
	TrustedPeerIDs []string `json:"trusted_peer_ids"`
}

// schemaVersion tracks the applied forward-only migration, driving
// the schema_version table per the persistence contract.
type schemaVersion struct {
	Version int `gorm:"column:version;primaryKey"`
}

func (schemaVersion) TableName() string { return "schema_version" }
