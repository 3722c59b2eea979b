package service

import (
	"context"
	"time"

	"ai-consultation-be/internal/dto"
	"ai-consultation-be/internal/pkg/logger"
	"ai-consultation-be/pkg/consultation"
	"ai-consultation-be/pkg/conversation"
)

// SessionManager is the part of *conversation.Manager the service drives.
type SessionManager interface {
	Continue(ctx context.Context, id, query string) (conversation.Reply, error)
	Get(ctx context.Context, id string) (*consultation.Session, error)
}

type IConversationService interface {
	Continue(ctx context.Context, req *dto.ContinueConversationRequest) (*dto.ContinueConversationResponse, error)
	GetSession(ctx context.Context, id string) (*dto.SessionResponse, error)
}

type conversationService struct {
	manager SessionManager
	onTurn  func()
	logger  logger.ILogger
	now     func() time.Time
}

// NewConversationService builds the service. onTurn, if set, runs once per
// answered query.
func NewConversationService(manager SessionManager, onTurn func(), logger logger.ILogger) IConversationService {
	return &conversationService{
		manager: manager,
		onTurn:  onTurn,
		logger:  logger,
		now:     time.Now,
	}
}

func (s *conversationService) Continue(ctx context.Context, req *dto.ContinueConversationRequest) (*dto.ContinueConversationResponse, error) {
	start := s.now()

	reply, err := s.manager.Continue(ctx, req.SessionId, req.Query)
	if err != nil {
		return nil, err
	}
	if s.onTurn != nil {
		s.onTurn()
	}

	s.logger.Debug("SESSION", "Conversation continued", map[string]interface{}{
		"session_id":    reply.SessionID,
		"turn_count":    reply.TurnCount,
		"findings_used": reply.FindingsUsed,
		"created":       reply.Created,
	})

	return &dto.ContinueConversationResponse{
		SessionId:             reply.SessionID,
		Response:              reply.Text,
		TurnCount:             reply.TurnCount,
		FindingsUsed:          reply.FindingsUsed,
		Created:               reply.Created,
		ProcessingTimeSeconds: s.now().Sub(start).Seconds(),
	}, nil
}

func (s *conversationService) GetSession(ctx context.Context, id string) (*dto.SessionResponse, error) {
	sess, err := s.manager.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	turns := sess.Turns
	if turns == nil {
		turns = []consultation.Turn{}
	}
	return &dto.SessionResponse{
		SessionId:  sess.ID,
		Turns:      turns,
		CreatedAt:  sess.CreatedAt,
		LastAccess: sess.LastAccess,
	}, nil
}
