package store

import (
	"context"

	"github.com/kushagraameta123/RETINALAI-sub000/internal/shared/errors"
	"github.com/kushagraameta123/RETINALAI-sub000/internal/shared/events"
	"github.com/kushagraameta123/RETINALAI-sub000/internal/shared/metrics"
	"github.com/kushagraameta123/RETINALAI-sub000/internal/shared/types"
)

// Messaging operations. These are store methods rather than generic calls
// because a message append touches two collections: the message itself and
// the conversation's lastMessage cache. Both writes happen under the store's
// single critical section so the cache can never be observed stale.

// StartConversation creates a thread between a doctor and a patient.
func (s *Store) StartConversation(ctx context.Context, doctorID, patientID types.ID) (*Conversation, error) {
	conv := &Conversation{
		DoctorID:  doctorID,
		PatientID: patientID,
		Status:    ConversationStatusActive,
	}
	return Create(ctx, s, Conversations, conv)
}

// AppendMessage appends a message to a conversation and refreshes the
// conversation's cached lastMessage and lastMessageTime in the same critical
// section. Returns the stored message.
func (s *Store) AppendMessage(ctx context.Context, conversationID, senderID types.ID, senderType SenderType, content, messageType string) (*Message, error) {
	var queued []queuedEvent
	defer s.publishQueued(ctx, &queued)
	s.mu.Lock()
	defer s.mu.Unlock()

	conversations, err := readCollection[*Conversation](ctx, s, CollectionConversations)
	if err != nil {
		return nil, err
	}
	convIdx := -1
	for i, c := range conversations {
		if c.ID == conversationID {
			convIdx = i
			break
		}
	}
	if convIdx < 0 {
		return nil, errors.NotFound(CollectionConversations, conversationID.String())
	}

	now := s.now()
	msg := &Message{
		ID:             types.NewEntityID(Messages.Prefix),
		ConversationID: conversationID,
		SenderID:       senderID,
		SenderType:     senderType,
		Content:        content,
		MessageType:    messageType,
		Timestamp:      now,
		ReadBy:         []ReadReceipt{},
	}

	messages, err := readCollection[*Message](ctx, s, CollectionMessages)
	if err != nil {
		return nil, err
	}
	messages = append(messages, msg)
	if err := writeCollection(ctx, s, CollectionMessages, messages); err != nil {
		return nil, err
	}

	conv := conversations[convIdx]
	conv.LastMessage = content
	conv.LastMessageTime = now
	conv.UpdatedAt = now
	if err := writeCollection(ctx, s, CollectionConversations, conversations); err != nil {
		return nil, err
	}

	metrics.RecordMessageSent(string(senderType))
	queued = append(queued,
		queuedEvent{CollectionMessages, events.VerbCreated, msg},
		queuedEvent{CollectionConversations, events.VerbUpdated, conv})
	return msg, nil
}

// readerFor resolves the participant acting as the given role in a thread.
// Threads hold exactly one doctor and one patient; clinicians read on the
// doctor side.
func readerFor(conv *Conversation, role Role) types.ID {
	if role == RolePatient {
		return conv.PatientID
	}
	return conv.DoctorID
}

// MarkMessagesAsRead stamps a read receipt for the viewing role's participant
// on every message in the conversation sent by the other side. A user never
// gets a second receipt on the same message, so repeated calls are no-ops.
// Returns the number of newly marked messages.
func (s *Store) MarkMessagesAsRead(ctx context.Context, conversationID types.ID, role Role) (int, error) {
	var queued []queuedEvent
	defer s.publishQueued(ctx, &queued)
	s.mu.Lock()
	defer s.mu.Unlock()

	conversations, err := readCollection[*Conversation](ctx, s, CollectionConversations)
	if err != nil {
		return 0, err
	}
	var conv *Conversation
	for _, c := range conversations {
		if c.ID == conversationID {
			conv = c
			break
		}
	}
	if conv == nil {
		return 0, errors.NotFound(CollectionConversations, conversationID.String())
	}

	reader := readerFor(conv, role)
	otherSide := SenderDoctor
	if role != RolePatient {
		otherSide = SenderPatient
	}

	messages, err := readCollection[*Message](ctx, s, CollectionMessages)
	if err != nil {
		return 0, err
	}

	marked := 0
	now := s.now()
	for _, m := range messages {
		if m.ConversationID != conversationID || m.SenderType != otherSide {
			continue
		}
		if m.ReadByUser(reader) {
			continue
		}
		m.ReadBy = append(m.ReadBy, ReadReceipt{UserID: reader, ReadAt: now})
		marked++
	}
	if marked == 0 {
		return 0, nil
	}

	if err := writeCollection(ctx, s, CollectionMessages, messages); err != nil {
		return 0, err
	}
	queued = append(queued, queuedEvent{CollectionMessages, events.VerbUpdated, map[string]any{
		"conversationId": conversationID,
		"markedRead":     marked,
		"role":           role,
	}})
	return marked, nil
}
