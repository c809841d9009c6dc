package service

// 实时事件类型
const (
	EventAttachmentCreated    = "attachment.created"
	EventTranscriptionUpdated = "attachment.transcription_updated"
	EventSubmissionCreated    = "submission.created"
	EventSubmissionPromoted   = "submission.promoted"
	EventCardMoved            = "card.moved"
)

// Event 广播给实时通道的领域事件
type Event struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// EventPublisher 实时事件发布器，由 WebSocket Hub 实现
type EventPublisher interface {
	Publish(event Event)
}
