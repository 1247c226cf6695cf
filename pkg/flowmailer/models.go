package flowmailer

import (
	"strings"
	"time"
)

// MessageType is the channel a message is sent over.
type MessageType string

// Message types.
const (
	MessageTypeEmail  MessageType = "EMAIL"
	MessageTypeSMS    MessageType = "SMS"
	MessageTypeLetter MessageType = "LETTER"
)

// Header is a custom message header.
type Header struct {
	Name  string `json:"name"  yaml:"name"`
	Value string `json:"value" yaml:"value"`
}

// Attachment is a file attached to a submitted message.
type Attachment struct {
	Content     string `json:"content"               yaml:"content"`
	ContentID   string `json:"contentId,omitempty"   yaml:"contentId,omitempty"`
	ContentType string `json:"contentType"           yaml:"contentType"`
	Disposition string `json:"disposition,omitempty" yaml:"disposition,omitempty"`
	Filename    string `json:"filename"              yaml:"filename"`
}

// SubmitMessage is the body of a message submission.
type SubmitMessage struct {
	MessageType      MessageType    `json:"messageType"                yaml:"messageType"`
	SenderAddress    string         `json:"senderAddress"              yaml:"senderAddress"`
	SenderName       string         `json:"senderName,omitempty"       yaml:"senderName,omitempty"`
	RecipientAddress string         `json:"recipientAddress"           yaml:"recipientAddress"`
	RecipientName    string         `json:"recipientName,omitempty"    yaml:"recipientName,omitempty"`
	Subject          string         `json:"subject,omitempty"          yaml:"subject,omitempty"`
	Text             string         `json:"text,omitempty"             yaml:"text,omitempty"`
	HTML             string         `json:"html,omitempty"             yaml:"html,omitempty"`
	FlowSelector     string         `json:"flowSelector,omitempty"     yaml:"flowSelector,omitempty"`
	Data             map[string]any `json:"data,omitempty"             yaml:"data,omitempty"`
	Tags             []string       `json:"tags,omitempty"             yaml:"tags,omitempty"`
	Headers          []Header       `json:"headers,omitempty"          yaml:"headers,omitempty"`
	Attachments      []Attachment   `json:"attachments,omitempty"      yaml:"attachments,omitempty"`
	DeliveryNotify   string         `json:"deliveryNotificationType,omitempty" yaml:"deliveryNotificationType,omitempty"`
	ScheduleAt       *time.Time     `json:"scheduleAt,omitempty"       yaml:"scheduleAt,omitempty"`
}

// Address is a sender or recipient of a message.
type Address struct {
	Address string `json:"address"        yaml:"address"`
	Name    string `json:"name,omitempty" yaml:"name,omitempty"`
}

// FlowRef is the flow a message was processed by.
type FlowRef struct {
	ID          string `json:"id"                    yaml:"id"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// Message is a submitted message as reported by the API.
type Message struct {
	ID               string     `json:"id"                         yaml:"id"`
	MessageType      string     `json:"messageType"                yaml:"messageType"`
	Status           string     `json:"status"                     yaml:"status"`
	Subject          string     `json:"subject,omitempty"          yaml:"subject,omitempty"`
	Source           *FlowRef   `json:"source,omitempty"           yaml:"source,omitempty"`
	Flow             *FlowRef   `json:"flow,omitempty"             yaml:"flow,omitempty"`
	Sender           *Address   `json:"sender,omitempty"           yaml:"sender,omitempty"`
	Recipient        *Address   `json:"recipient,omitempty"        yaml:"recipient,omitempty"`
	Submitted        *time.Time `json:"submitted,omitempty"        yaml:"submitted,omitempty"`
	BackendDone      *time.Time `json:"backendDone,omitempty"      yaml:"backendDone,omitempty"`
	Headers          []Header   `json:"headers,omitempty"          yaml:"headers,omitempty"`
	OnlineLink       string     `json:"onlineLink,omitempty"       yaml:"onlineLink,omitempty"`
	Tags             []string   `json:"tags,omitempty"             yaml:"tags,omitempty"`
	MessageIDHeader  string     `json:"messageIdHeader,omitempty"  yaml:"messageIdHeader,omitempty"`
	TransactionID    string     `json:"transactionId,omitempty"    yaml:"transactionId,omitempty"`
	MessageDetailsLn string     `json:"messageDetailsLink,omitempty" yaml:"messageDetailsLink,omitempty"`
}

// MessageEvent is a delivery, open, click or bounce event of a message.
type MessageEvent struct {
	ID         string            `json:"id"                   yaml:"id"`
	MessageID  string            `json:"messageId"            yaml:"messageId"`
	Type       string            `json:"type"                 yaml:"type"`
	Received   *time.Time        `json:"received,omitempty"   yaml:"received,omitempty"`
	Inserted   *time.Time        `json:"inserted,omitempty"   yaml:"inserted,omitempty"`
	Snippet    string            `json:"snippet,omitempty"    yaml:"snippet,omitempty"`
	MTA        string            `json:"mta,omitempty"        yaml:"mta,omitempty"`
	Data       map[string]string `json:"data,omitempty"       yaml:"data,omitempty"`
	UserAgent  string            `json:"userAgent,omitempty"  yaml:"userAgent,omitempty"`
	RemoteAddr string            `json:"remoteAddr,omitempty" yaml:"remoteAddr,omitempty"`
}

// FlowStep is one processing step of a flow.
type FlowStep struct {
	ID       string         `json:"id,omitempty"       yaml:"id,omitempty"`
	Type     string         `json:"type"               yaml:"type"`
	Template *FlowRef       `json:"template,omitempty" yaml:"template,omitempty"`
	Options  map[string]any `json:"options,omitempty"  yaml:"options,omitempty"`
}

// Flow is a message processing flow.
type Flow struct {
	ID          string     `json:"id,omitempty"          yaml:"id,omitempty"`
	Description string     `json:"description"           yaml:"description"`
	TemplateID  string     `json:"templateId,omitempty"  yaml:"templateId,omitempty"`
	Steps       []FlowStep `json:"steps,omitempty"       yaml:"steps,omitempty"`
}

// DNSRecord is a record the customer must publish for a sender domain.
type DNSRecord struct {
	Name   string   `json:"name"             yaml:"name"`
	Type   string   `json:"type"             yaml:"type"`
	Value  string   `json:"value"            yaml:"value"`
	Status string   `json:"status,omitempty" yaml:"status,omitempty"`
	Errors []string `json:"errors,omitempty" yaml:"errors,omitempty"`
}

// SenderDomain is a domain messages may be sent from.
type SenderDomain struct {
	ID           string      `json:"id,omitempty"           yaml:"id,omitempty"`
	SenderDomain string      `json:"senderDomain"           yaml:"senderDomain"`
	ReturnPath   string      `json:"returnPathDomain"       yaml:"returnPathDomain"`
	WebDomain    string      `json:"webDomain,omitempty"    yaml:"webDomain,omitempty"`
	DNSRecords   []DNSRecord `json:"dnsRecords,omitempty"   yaml:"dnsRecords,omitempty"`
}

// Template is a message template.
type Template struct {
	ID          string `json:"id,omitempty"          yaml:"id,omitempty"`
	Description string `json:"description"           yaml:"description"`
	MimeType    string `json:"mimeType"              yaml:"mimeType"`
	TemplateEng string `json:"templateEngine"        yaml:"templateEngine"`
	Data        string `json:"data"                  yaml:"data"`
}

// ErrorsEnvelope is the body of 400 and 403 responses.
type ErrorsEnvelope struct {
	AllErrors []EnvelopeError `json:"allErrors"`
}

// EnvelopeError is a single structural error.
type EnvelopeError struct {
	ObjectName     string `json:"objectName"`
	Field          string `json:"field"`
	DefaultMessage string `json:"defaultMessage"`
	Code           string `json:"code"`
	Arguments      []any  `json:"arguments"`
	RejectedValue  any    `json:"rejectedValue"`
}

var modelRegistry = map[string]string{
	"attachment":    "Attachment",
	"flow":          "Flow",
	"flowstep":      "FlowStep",
	"header":        "Header",
	"message":       "Message",
	"messageevent":  "MessageEvent",
	"senderdomain":  "SenderDomain",
	"submitmessage": "SubmitMessage",
	"template":      "Template",
}

// ResolveModel maps an error object name onto a known model name.
func ResolveModel(objectName string) (string, bool) {
	model, ok := modelRegistry[strings.ToLower(objectName)]

	return model, ok
}
