package dispatch

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"

	"github.com/clinicore/clinicore-backend/pkg/enums"
	errs "github.com/clinicore/clinicore-backend/pkg/errors"
)

const (
	// EventName identifies the outbound event kind on the wire.
	EventName = "messages.upsert"

	remoteJidSuffix = "@s.whatsapp.net"
	localTimeLayout = "2006-01-02 15:04:05"
)

var saoPaulo = mustLoadLocation("America/Sao_Paulo")

func mustLoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(fmt.Sprintf("loading timezone %s: %v", name, err))
	}
	return loc
}

// MessageKey identifies the message within the downstream messaging relay.
// RemoteJid is the lead's phone rendered as a relay address; it is empty when
// the lead has no phone on file.
type MessageKey struct {
	RemoteJid string `json:"remoteJid"`
	FromMe    bool   `json:"fromMe"`
	ID        string `json:"id"`
}

// MessageBody carries the message content and its type token.
type MessageBody struct {
	Conversation string `json:"conversation"`
	MessageType  string `json:"messageType"`
}

// EventOrigin carries tenancy metadata so the downstream can scope processing.
type EventOrigin struct {
	ClinicID  string `json:"clinicId"`
	LeadID    string `json:"leadId"`
	AIEnabled bool   `json:"aiEnabled"`
}

// OutboundEvent is the normalized payload POSTed to the downstream webhook.
// It is built fresh per invocation and never persisted.
type OutboundEvent struct {
	Event            string      `json:"event"`
	Instance         string      `json:"instance"`
	Key              MessageKey  `json:"key"`
	PushName         *string     `json:"pushName"`
	Message          MessageBody `json:"message"`
	MessageTimestamp int64       `json:"messageTimestamp"`
	Origin           EventOrigin `json:"origin"`
	TimestampSP      string      `json:"timestamp_sp"`
}

// BuildInput is everything the payload builder needs: the chat message fields
// plus the routing key and lead contact details fetched from the directory.
type BuildInput struct {
	MessageID   uuid.UUID
	LeadID      uuid.UUID
	ClinicID    uuid.UUID
	Content     string
	MessageType enums.MessageType
	CreatedAt   time.Time
	AIEnabled   bool

	RoutingKey string
	LeadPhone  *string
	LeadName   *string
}

// BuildEvent shapes a chat message into an OutboundEvent. It is pure: no I/O,
// no side effects. An empty routing key is a configuration error and the
// caller must not proceed to delivery.
func BuildEvent(in BuildInput) (*OutboundEvent, error) {
	instance := strings.TrimSpace(in.RoutingKey)
	if instance == "" {
		return nil, errs.New(errs.CodeValidation, "clinic has no messaging instance configured")
	}

	return &OutboundEvent{
		Event:    EventName,
		Instance: instance,
		Key: MessageKey{
			RemoteJid: FormatRemoteJid(in.LeadPhone),
			FromMe:    true,
			ID:        in.MessageID.String(),
		},
		PushName: in.LeadName,
		Message: MessageBody{
			Conversation: in.Content,
			MessageType:  string(in.MessageType.OrDefault()),
		},
		MessageTimestamp: in.CreatedAt.UnixMilli() / 1000,
		Origin: EventOrigin{
			ClinicID:  in.ClinicID.String(),
			LeadID:    in.LeadID.String(),
			AIEnabled: in.AIEnabled,
		},
		TimestampSP: in.CreatedAt.In(saoPaulo).Format(localTimeLayout),
	}, nil
}

// FormatRemoteJid strips everything but digits from the raw phone and appends
// the relay domain suffix. A missing phone yields "" rather than an error.
func FormatRemoteJid(phone *string) string {
	if phone == nil {
		return ""
	}
	var digits strings.Builder
	for _, r := range *phone {
		if unicode.IsDigit(r) {
			digits.WriteRune(r)
		}
	}
	if digits.Len() == 0 {
		return ""
	}
	return digits.String() + remoteJidSuffix
}
