package amqp

import (
	"encoding/json"
	"errors"
	"time"
)

// RoutingKeyLedgerChanged is used for ledger change notifications. Each
// listener binds its own exclusive queue to it, so every server instance
// sees every change.
const RoutingKeyLedgerChanged = "ledger.changed"

// ChangeKindImport marks a bulk import; ID is empty and Count holds the
// number of stored records.
const ChangeKindImport = "import"

// RenderJobMessage asks a worker to render one invoice with one template.
// The worker loads both from the ledger, so the message stays small.
type RenderJobMessage struct {
	JobID       string    `json:"job_id"`
	InvoiceID   string    `json:"invoice_id"`
	TemplateID  string    `json:"template_id"`
	RequestedAt time.Time `json:"requested_at"`
}

func NewRenderJobMessage(jobID, invoiceID, templateID string) *RenderJobMessage {
	return &RenderJobMessage{
		JobID:       jobID,
		InvoiceID:   invoiceID,
		TemplateID:  templateID,
		RequestedAt: time.Now().UTC(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *RenderJobMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// RenderJobMessageFromJSON creates a message from JSON bytes
func RenderJobMessageFromJSON(data []byte) (*RenderJobMessage, error) {
	var msg RenderJobMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// LedgerChangedMessage announces a new invoice or expense, or a bulk import.
type LedgerChangedMessage struct {
	Kind      string    `json:"kind"`
	ID        string    `json:"id,omitempty"`
	Count     int       `json:"count"`
	Timestamp time.Time `json:"timestamp"`
}

func NewLedgerChangedMessage(kind, id string) *LedgerChangedMessage {
	return &LedgerChangedMessage{Kind: kind, ID: id, Count: 1, Timestamp: time.Now().UTC()}
}

func NewLedgerImportMessage(count int) *LedgerChangedMessage {
	return &LedgerChangedMessage{Kind: ChangeKindImport, Count: count, Timestamp: time.Now().UTC()}
}

func (m *LedgerChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func LedgerChangedMessageFromJSON(data []byte) (*LedgerChangedMessage, error) {
	var msg LedgerChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Kind == "" {
		return nil, errors.New("ledger change without kind")
	}
	return &msg, nil
}
