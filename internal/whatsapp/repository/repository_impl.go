package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/glazeops/internal/whatsapp/domain"
	"gorm.io/gorm"
)

const (
	conversationColumns = `id, customer_id, phone, status, unread_count, last_message_at, created_at, updated_at`
	messageColumns      = `id, conversation_id, direction, body, status, external_id, sent_by, error_message, created_at`
	contactColumns      = `id, list_id, name, phone, tags, custom_fields, created_at`
	campaignColumns     = `id, name, list_id, template, status, created_by, started_at, completed_at, created_at, updated_at`
	recipientColumns    = `id, campaign_id, contact_id, phone, body, status, external_id, error_message,
		sent_at, delivered_at, read_at, created_at, updated_at`
	contactListSelect = `SELECT l.id, l.name, l.description, l.created_at, l.updated_at,
		(SELECT COUNT(1) FROM whatsapp_contacts c WHERE c.list_id = l.id) AS contact_count
		FROM whatsapp_contact_lists l`
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertConversation(ctx context.Context, db *gorm.DB, c *domain.Conversation) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`INSERT INTO whatsapp_conversations (`+conversationColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (customer_id) DO NOTHING`,
		c.ID,
		c.CustomerID,
		c.Phone,
		c.Status,
		c.UnreadCount,
		c.LastMessageAt,
		c.CreatedAt,
		c.UpdatedAt,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) FindConversation(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Conversation, error) {
	return findOne[domain.Conversation](ctx, db,
		`SELECT `+conversationColumns+` FROM whatsapp_conversations WHERE id = ?`,
		func(c *domain.Conversation) snowflake.ID { return c.ID }, id)
}

func (r *repo) FindConversationByCustomer(ctx context.Context, db *gorm.DB, customerID snowflake.ID) (*domain.Conversation, error) {
	return findOne[domain.Conversation](ctx, db,
		`SELECT `+conversationColumns+` FROM whatsapp_conversations WHERE customer_id = ?`,
		func(c *domain.Conversation) snowflake.ID { return c.ID }, customerID)
}

func (r *repo) ListConversations(ctx context.Context, db *gorm.DB, filter domain.ListConversationFilter) ([]*domain.Conversation, error) {
	var items []*domain.Conversation
	stmt := db.WithContext(ctx).Model(&domain.Conversation{})
	if filter.Status != "" {
		stmt = stmt.Where("status = ?", filter.Status)
	}
	if filter.After > 0 {
		stmt = stmt.Where("id < ?", filter.After)
	}
	if filter.Limit > 0 {
		stmt = stmt.Limit(filter.Limit + 1)
	}
	if err := stmt.Order("id desc").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) TouchConversation(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time, inbound bool) error {
	unread := 0
	if inbound {
		unread = 1
	}
	return db.WithContext(ctx).Exec(
		`UPDATE whatsapp_conversations
		 SET last_message_at = ?, unread_count = unread_count + ?, status = ?, updated_at = ?
		 WHERE id = ?`,
		at,
		unread,
		domain.ConversationOpen,
		at,
		id,
	).Error
}

func (r *repo) MarkConversationRead(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE whatsapp_conversations SET unread_count = 0, updated_at = ? WHERE id = ?`,
		at,
		id,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) InsertMessage(ctx context.Context, db *gorm.DB, m *domain.Message) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO whatsapp_messages (`+messageColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID,
		m.ConversationID,
		m.Direction,
		m.Body,
		m.Status,
		m.ExternalID,
		m.SentBy,
		m.ErrorMessage,
		m.CreatedAt,
	).Error
}

func (r *repo) FindMessageByExternalID(ctx context.Context, db *gorm.DB, externalID string) (*domain.Message, error) {
	return findOne[domain.Message](ctx, db,
		`SELECT `+messageColumns+` FROM whatsapp_messages WHERE external_id = ? ORDER BY id LIMIT 1`,
		func(m *domain.Message) snowflake.ID { return m.ID }, externalID)
}

func (r *repo) ListMessages(ctx context.Context, db *gorm.DB, conversationID snowflake.ID, filter domain.PageFilter) ([]*domain.Message, error) {
	var items []*domain.Message
	stmt := db.WithContext(ctx).Model(&domain.Message{}).Where("conversation_id = ?", conversationID)
	if filter.After > 0 {
		stmt = stmt.Where("id < ?", filter.After)
	}
	if filter.Limit > 0 {
		stmt = stmt.Limit(filter.Limit + 1)
	}
	if err := stmt.Order("id desc").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// RecentMessages returns up to limit messages, oldest first.
func (r *repo) RecentMessages(ctx context.Context, db *gorm.DB, conversationID snowflake.ID, limit int) ([]*domain.Message, error) {
	var items []*domain.Message
	err := db.WithContext(ctx).Raw(
		`SELECT `+messageColumns+` FROM whatsapp_messages
		 WHERE conversation_id = ?
		 ORDER BY id DESC
		 LIMIT ?`,
		conversationID,
		limit,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
		items[i], items[j] = items[j], items[i]
	}
	return items, nil
}

func (r *repo) UpdateMessageDelivery(ctx context.Context, db *gorm.DB, id snowflake.ID, u domain.DeliveryUpdate) error {
	return db.WithContext(ctx).Exec(
		`UPDATE whatsapp_messages SET status = ?, external_id = ?, error_message = ? WHERE id = ?`,
		u.Status,
		u.ExternalID,
		u.ErrorMessage,
		id,
	).Error
}

func (r *repo) AdvanceMessageStatus(ctx context.Context, db *gorm.DB, externalID string, u domain.DeliveryUpdate) (int64, error) {
	from := domain.AdvanceableFrom(u.Status)
	if len(from) == 0 {
		return 0, nil
	}
	res := db.WithContext(ctx).Exec(
		`UPDATE whatsapp_messages
		 SET status = ?, error_message = COALESCE(?, error_message)
		 WHERE external_id = ? AND status IN ?`,
		u.Status,
		u.ErrorMessage,
		externalID,
		from,
	)
	return res.RowsAffected, res.Error
}

func (r *repo) InsertQuickReply(ctx context.Context, db *gorm.DB, q *domain.QuickReply) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO whatsapp_quick_replies (id, title, body, shortcut, created_at) VALUES (?, ?, ?, ?, ?)`,
		q.ID,
		q.Title,
		q.Body,
		q.Shortcut,
		q.CreatedAt,
	).Error
}

func (r *repo) FindQuickReply(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.QuickReply, error) {
	return findOne[domain.QuickReply](ctx, db,
		`SELECT id, title, body, shortcut, created_at FROM whatsapp_quick_replies WHERE id = ?`,
		func(q *domain.QuickReply) snowflake.ID { return q.ID }, id)
}

func (r *repo) ListQuickReplies(ctx context.Context, db *gorm.DB) ([]*domain.QuickReply, error) {
	var items []*domain.QuickReply
	err := db.WithContext(ctx).Raw(
		`SELECT id, title, body, shortcut, created_at FROM whatsapp_quick_replies ORDER BY title, id`,
	).Scan(&items).Error
	return items, err
}

func (r *repo) DeleteQuickReply(ctx context.Context, db *gorm.DB, id snowflake.ID) (bool, error) {
	return deleteByID(ctx, db, `DELETE FROM whatsapp_quick_replies WHERE id = ?`, id)
}

func (r *repo) InsertContactList(ctx context.Context, db *gorm.DB, l *domain.ContactList) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO whatsapp_contact_lists (id, name, description, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		l.ID,
		l.Name,
		l.Description,
		l.CreatedAt,
		l.UpdatedAt,
	).Error
}

func (r *repo) UpdateContactList(ctx context.Context, db *gorm.DB, l *domain.ContactList) error {
	return db.WithContext(ctx).Exec(
		`UPDATE whatsapp_contact_lists SET name = ?, description = ?, updated_at = ? WHERE id = ?`,
		l.Name,
		l.Description,
		l.UpdatedAt,
		l.ID,
	).Error
}

func (r *repo) FindContactList(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.ContactList, error) {
	return findOne[domain.ContactList](ctx, db, contactListSelect+` WHERE l.id = ?`,
		func(l *domain.ContactList) snowflake.ID { return l.ID }, id)
}

func (r *repo) ListContactLists(ctx context.Context, db *gorm.DB, filter domain.PageFilter) ([]*domain.ContactList, error) {
	query := contactListSelect
	args := []any{}
	if filter.After > 0 {
		query += ` WHERE l.id < ?`
		args = append(args, filter.After)
	}
	query += ` ORDER BY l.id DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit+1)
	}
	var items []*domain.ContactList
	if err := db.WithContext(ctx).Raw(query, args...).Scan(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// DeleteContactList removes the list and its contacts. Callers run it inside
// a transaction.
func (r *repo) DeleteContactList(ctx context.Context, db *gorm.DB, id snowflake.ID) (bool, error) {
	if err := db.WithContext(ctx).Exec(`DELETE FROM whatsapp_contacts WHERE list_id = ?`, id).Error; err != nil {
		return false, err
	}
	return deleteByID(ctx, db, `DELETE FROM whatsapp_contact_lists WHERE id = ?`, id)
}

func (r *repo) CountCampaignsByList(ctx context.Context, db *gorm.DB, listID snowflake.ID) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Raw(`SELECT COUNT(1) FROM whatsapp_campaigns WHERE list_id = ?`, listID).Scan(&count).Error
	return count, err
}

func (r *repo) InsertContact(ctx context.Context, db *gorm.DB, c *domain.Contact) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO whatsapp_contacts (`+contactColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.ID,
		c.ListID,
		c.Name,
		c.Phone,
		c.Tags,
		c.CustomFields,
		c.CreatedAt,
	).Error
}

func (r *repo) ListContacts(ctx context.Context, db *gorm.DB, listID snowflake.ID, filter domain.PageFilter) ([]*domain.Contact, error) {
	query := `SELECT ` + contactColumns + ` FROM whatsapp_contacts WHERE list_id = ?`
	args := []any{listID}
	if filter.After > 0 {
		query += ` AND id < ?`
		args = append(args, filter.After)
	}
	query += ` ORDER BY id DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit+1)
	}
	var items []*domain.Contact
	if err := db.WithContext(ctx).Raw(query, args...).Scan(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// AllContacts returns every contact of a list in insertion order.
func (r *repo) AllContacts(ctx context.Context, db *gorm.DB, listID snowflake.ID) ([]*domain.Contact, error) {
	var items []*domain.Contact
	err := db.WithContext(ctx).Raw(
		`SELECT `+contactColumns+` FROM whatsapp_contacts WHERE list_id = ? ORDER BY id`,
		listID,
	).Scan(&items).Error
	return items, err
}

func (r *repo) DeleteContact(ctx context.Context, db *gorm.DB, listID, id snowflake.ID) (bool, error) {
	res := db.WithContext(ctx).Exec(`DELETE FROM whatsapp_contacts WHERE id = ? AND list_id = ?`, id, listID)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) InsertCampaign(ctx context.Context, db *gorm.DB, c *domain.Campaign) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO whatsapp_campaigns (`+campaignColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID,
		c.Name,
		c.ListID,
		c.Template,
		c.Status,
		c.CreatedBy,
		c.StartedAt,
		c.CompletedAt,
		c.CreatedAt,
		c.UpdatedAt,
	).Error
}

func (r *repo) FindCampaign(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Campaign, error) {
	return findOne[domain.Campaign](ctx, db,
		`SELECT `+campaignColumns+` FROM whatsapp_campaigns WHERE id = ?`,
		func(c *domain.Campaign) snowflake.ID { return c.ID }, id)
}

func (r *repo) ListCampaigns(ctx context.Context, db *gorm.DB, filter domain.PageFilter) ([]*domain.Campaign, error) {
	var items []*domain.Campaign
	stmt := db.WithContext(ctx).Model(&domain.Campaign{})
	if filter.After > 0 {
		stmt = stmt.Where("id < ?", filter.After)
	}
	if filter.Limit > 0 {
		stmt = stmt.Limit(filter.Limit + 1)
	}
	if err := stmt.Order("id desc").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// StartCampaign moves a draft or paused campaign to sending. It reports false
// when another caller got there first or the campaign already finished.
func (r *repo) StartCampaign(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE whatsapp_campaigns
		 SET status = ?, started_at = COALESCE(started_at, ?), updated_at = ?
		 WHERE id = ? AND status IN ?`,
		domain.CampaignSending,
		at,
		at,
		id,
		[]string{domain.CampaignDraft, domain.CampaignPaused},
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) FinishCampaign(ctx context.Context, db *gorm.DB, id snowflake.ID, status string, at time.Time) error {
	var completedAt *time.Time
	if status == domain.CampaignCompleted {
		completedAt = &at
	}
	return db.WithContext(ctx).Exec(
		`UPDATE whatsapp_campaigns SET status = ?, completed_at = ?, updated_at = ? WHERE id = ? AND status = ?`,
		status,
		completedAt,
		at,
		id,
		domain.CampaignSending,
	).Error
}

// EnsureCampaignMessage inserts the recipient row unless one already exists
// for (campaign, contact) and returns the stored row either way.
func (r *repo) EnsureCampaignMessage(ctx context.Context, db *gorm.DB, m *domain.CampaignMessage) (*domain.CampaignMessage, error) {
	err := db.WithContext(ctx).Exec(
		`INSERT INTO whatsapp_campaign_messages (`+recipientColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (campaign_id, contact_id) DO NOTHING`,
		m.ID,
		m.CampaignID,
		m.ContactID,
		m.Phone,
		m.Body,
		m.Status,
		m.ExternalID,
		m.ErrorMessage,
		m.SentAt,
		m.DeliveredAt,
		m.ReadAt,
		m.CreatedAt,
		m.UpdatedAt,
	).Error
	if err != nil {
		return nil, err
	}
	return findOne[domain.CampaignMessage](ctx, db,
		`SELECT `+recipientColumns+` FROM whatsapp_campaign_messages WHERE campaign_id = ? AND contact_id = ?`,
		func(m *domain.CampaignMessage) snowflake.ID { return m.ID }, m.CampaignID, m.ContactID)
}

func (r *repo) ListCampaignMessages(ctx context.Context, db *gorm.DB, campaignID snowflake.ID, filter domain.PageFilter) ([]*domain.CampaignMessage, error) {
	var items []*domain.CampaignMessage
	stmt := db.WithContext(ctx).Model(&domain.CampaignMessage{}).Where("campaign_id = ?", campaignID)
	if filter.After > 0 {
		stmt = stmt.Where("id < ?", filter.After)
	}
	if filter.Limit > 0 {
		stmt = stmt.Limit(filter.Limit + 1)
	}
	if err := stmt.Order("id desc").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) UpdateCampaignMessageDelivery(ctx context.Context, db *gorm.DB, id snowflake.ID, u domain.DeliveryUpdate) error {
	var sentAt *time.Time
	if u.Status == domain.StatusSent {
		sentAt = &u.At
	}
	return db.WithContext(ctx).Exec(
		`UPDATE whatsapp_campaign_messages
		 SET status = ?, external_id = ?, error_message = ?, sent_at = ?, updated_at = ?
		 WHERE id = ?`,
		u.Status,
		u.ExternalID,
		u.ErrorMessage,
		sentAt,
		u.At,
		id,
	).Error
}

func (r *repo) AdvanceCampaignMessageStatus(ctx context.Context, db *gorm.DB, externalID string, u domain.DeliveryUpdate) (int64, error) {
	from := domain.AdvanceableFrom(u.Status)
	if len(from) == 0 {
		return 0, nil
	}

	var res *gorm.DB
	switch u.Status {
	case domain.StatusDelivered:
		res = db.WithContext(ctx).Exec(
			`UPDATE whatsapp_campaign_messages
			 SET status = ?, delivered_at = ?, updated_at = ?
			 WHERE external_id = ? AND status IN ?`,
			u.Status, u.At, u.At, externalID, from,
		)
	case domain.StatusRead:
		res = db.WithContext(ctx).Exec(
			`UPDATE whatsapp_campaign_messages
			 SET status = ?, read_at = ?, delivered_at = COALESCE(delivered_at, ?), updated_at = ?
			 WHERE external_id = ? AND status IN ?`,
			u.Status, u.At, u.At, u.At, externalID, from,
		)
	default:
		res = db.WithContext(ctx).Exec(
			`UPDATE whatsapp_campaign_messages
			 SET status = ?, error_message = COALESCE(?, error_message), updated_at = ?
			 WHERE external_id = ? AND status IN ?`,
			u.Status, u.ErrorMessage, u.At, externalID, from,
		)
	}
	return res.RowsAffected, res.Error
}

func (r *repo) CampaignStatusCounts(ctx context.Context, db *gorm.DB, campaignID snowflake.ID) (map[string]int64, error) {
	var rows []struct {
		Status string
		Count  int64
	}
	err := db.WithContext(ctx).Raw(
		`SELECT status, COUNT(1) AS count
		 FROM whatsapp_campaign_messages
		 WHERE campaign_id = ?
		 GROUP BY status`,
		campaignID,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

func (r *repo) InsertSuggestion(ctx context.Context, db *gorm.DB, s *domain.Suggestion) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO whatsapp_ai_suggestions (
			id, conversation_id, customer_id, provider, model, suggested_response,
			confidence_score, needs_escalation, requires_approval, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID,
		s.ConversationID,
		s.CustomerID,
		s.Provider,
		s.Model,
		s.SuggestedResponse,
		s.ConfidenceScore,
		s.NeedsEscalation,
		s.RequiresApproval,
		s.CreatedAt,
	).Error
}

func (r *repo) ListSuggestions(ctx context.Context, db *gorm.DB, conversationID snowflake.ID, limit int) ([]*domain.Suggestion, error) {
	var items []*domain.Suggestion
	err := db.WithContext(ctx).Raw(
		`SELECT id, conversation_id, customer_id, provider, model, suggested_response,
			confidence_score, needs_escalation, requires_approval, created_at
		 FROM whatsapp_ai_suggestions
		 WHERE conversation_id = ?
		 ORDER BY id DESC
		 LIMIT ?`,
		conversationID,
		limit,
	).Scan(&items).Error
	return items, err
}

func findOne[T any](ctx context.Context, db *gorm.DB, query string, id func(*T) snowflake.ID, args ...any) (*T, error) {
	var item T
	if err := db.WithContext(ctx).Raw(query, args...).Scan(&item).Error; err != nil {
		return nil, err
	}
	if id(&item) == 0 {
		return nil, nil
	}
	return &item, nil
}

func deleteByID(ctx context.Context, db *gorm.DB, query string, id snowflake.ID) (bool, error) {
	res := db.WithContext(ctx).Exec(query, id)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
