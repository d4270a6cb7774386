package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/glazeops/internal/clock"
	"github.com/smallbiznis/glazeops/internal/whatsapp/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

type QuickReplyParams struct {
	fx.In

	DB    *gorm.DB
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  domain.Repository
}

type QuickReplyService struct {
	db    *gorm.DB
	genID *snowflake.Node
	clock clock.Clock
	repo  domain.Repository
}

func NewQuickReplyService(p QuickReplyParams) domain.QuickReplyService {
	return &QuickReplyService{db: p.DB, genID: p.GenID, clock: p.Clock, repo: p.Repo}
}

func (s *QuickReplyService) List(ctx context.Context) ([]domain.QuickReply, error) {
	items, err := s.repo.ListQuickReplies(ctx, s.db)
	if err != nil {
		return nil, err
	}
	out := make([]domain.QuickReply, 0, len(items))
	for _, item := range items {
		out = append(out, *item)
	}
	return out, nil
}

func (s *QuickReplyService) Create(ctx context.Context, req domain.CreateQuickReplyRequest) (domain.QuickReply, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return domain.QuickReply{}, domain.ErrInvalidTitle
	}
	body := strings.TrimSpace(req.Body)
	if err := validateBody(body); err != nil {
		return domain.QuickReply{}, err
	}
	reply := domain.QuickReply{
		ID:        s.genID.Generate(),
		Title:     title,
		Body:      body,
		Shortcut:  strings.TrimPrefix(strings.ToLower(strings.TrimSpace(req.Shortcut)), "/"),
		CreatedAt: s.clock.Now(),
	}
	if err := s.repo.InsertQuickReply(ctx, s.db, &reply); err != nil {
		return domain.QuickReply{}, err
	}
	return reply, nil
}

func (s *QuickReplyService) Delete(ctx context.Context, rawID string) error {
	id, err := parseID(rawID)
	if err != nil {
		return err
	}
	deleted, err := s.repo.DeleteQuickReply(ctx, s.db, id)
	if err != nil {
		return err
	}
	if !deleted {
		return domain.ErrQuickReplyNotFound
	}
	return nil
}
