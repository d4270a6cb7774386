package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/glazeops/internal/clock"
	customerrepo "github.com/smallbiznis/glazeops/internal/customer/repository"
	customersvc "github.com/smallbiznis/glazeops/internal/customer/service"
	"github.com/smallbiznis/glazeops/internal/testutil"
	"github.com/smallbiznis/glazeops/internal/whatsapp/domain"
	"github.com/smallbiznis/glazeops/internal/whatsapp/realtime"
	"github.com/smallbiznis/glazeops/internal/whatsapp/repository"
	"github.com/smallbiznis/glazeops/pkg/db/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type sentText struct {
	To   string
	Body string
}

type fakeSender struct {
	mu   sync.Mutex
	sent []sentText
	err  error
	seq  int
}

func (f *fakeSender) SendText(_ context.Context, to, body string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.seq++
	f.sent = append(f.sent, sentText{To: to, Body: body})
	return "wamid.out" + strings.Repeat("x", f.seq), nil
}

type fixture struct {
	db     *gorm.DB
	node   *snowflake.Node
	repo   domain.Repository
	hub    *realtime.Hub
	sender *fakeSender
	svc    domain.ConversationService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.SetupTestDB(t)
	node := testutil.NewNode(t)
	clk := clockAt()
	repo := repository.Provide()
	customers := customerrepo.Provide()
	hub := realtime.NewHub()
	sender := &fakeSender{}

	customerSvc := customersvc.New(customersvc.Params{
		DB:    db,
		Log:   testutil.Logger(),
		GenID: node,
		Clock: clk,
		Repo:  customers,
	})

	svc := NewConversationService(Params{
		DB:          db,
		Log:         testutil.Logger(),
		GenID:       node,
		Clock:       clk,
		Repo:        repo,
		Customers:   customers,
		CustomerSvc: customerSvc,
		Sender:      sender,
		Hub:         hub,
	})
	return &fixture{db: db, node: node, repo: repo, hub: hub, sender: sender, svc: svc}
}

func clockAt() clock.Clock {
	return clock.NewFakeClock(time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC))
}

func nextEvent(t *testing.T, sub *realtime.Subscription) realtime.Event {
	t.Helper()
	select {
	case evt := <-sub.Events():
		return evt
	case <-time.After(time.Second):
		t.Fatal("no event published")
		return realtime.Event{}
	}
}

func TestUpsertConversationIsPerCustomer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	customerID := testutil.SeedCustomer(t, f.db, f.node, "Rashid")

	first, err := f.svc.Upsert(ctx, domain.UpsertConversationRequest{CustomerID: customerID.String()})
	require.NoError(t, err)
	assert.Equal(t, "+971500000001", first.Phone)
	assert.Equal(t, domain.ConversationOpen, first.Status)

	again, err := f.svc.Upsert(ctx, domain.UpsertConversationRequest{CustomerID: customerID.String()})
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)

	_, err = f.svc.Upsert(ctx, domain.UpsertConversationRequest{CustomerID: f.node.Generate().String()})
	assert.ErrorIs(t, err, domain.ErrCustomerNotFound)

	_, err = f.svc.Upsert(ctx, domain.UpsertConversationRequest{CustomerID: "abc"})
	assert.ErrorIs(t, err, domain.ErrInvalidID)
}

func TestSendStoresSentMessageAndPublishes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	customerID := testutil.SeedCustomer(t, f.db, f.node, "Rashid")
	conversation, err := f.svc.Upsert(ctx, domain.UpsertConversationRequest{CustomerID: customerID.String()})
	require.NoError(t, err)

	sub, backlog, err := f.hub.Subscribe(conversation.ID.String())
	require.NoError(t, err)
	defer sub.Close()
	assert.Empty(t, backlog)

	agent := f.node.Generate()
	msg, err := f.svc.Send(ctx, domain.SendMessageRequest{
		ConversationID: conversation.ID.String(),
		Body:           "  Your quotation is attached  ",
		SentBy:         &agent,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSent, msg.Status)
	assert.Equal(t, "Your quotation is attached", msg.Body)
	require.NotNil(t, msg.ExternalID)
	assert.Equal(t, "wamid.outx", *msg.ExternalID)
	require.Len(t, f.sender.sent, 1)
	assert.Equal(t, "+971500000001", f.sender.sent[0].To)

	created := nextEvent(t, sub)
	assert.Equal(t, realtime.EventMessageCreated, created.Type)
	assert.Equal(t, domain.StatusPending, created.Message.Status)
	updated := nextEvent(t, sub)
	assert.Equal(t, realtime.EventMessageUpdated, updated.Type)
	assert.Equal(t, domain.StatusSent, updated.Message.Status)

	stored, err := f.repo.FindMessageByExternalID(ctx, f.db, "wamid.outx")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, msg.ID, stored.ID)
	require.NotNil(t, stored.SentBy)
	assert.Equal(t, agent, *stored.SentBy)

	refreshed, err := f.svc.Get(ctx, conversation.ID.String())
	require.NoError(t, err)
	assert.NotNil(t, refreshed.LastMessageAt)
	assert.Zero(t, refreshed.UnreadCount)
}

func TestSendFailureIsRecordedOnMessage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	customerID := testutil.SeedCustomer(t, f.db, f.node, "Rashid")
	conversation, err := f.svc.Upsert(ctx, domain.UpsertConversationRequest{CustomerID: customerID.String()})
	require.NoError(t, err)

	f.sender.err = errors.New("send_failed: recipient not reachable")
	msg, err := f.svc.Send(ctx, domain.SendMessageRequest{ConversationID: conversation.ID.String(), Body: "hello"})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, msg.Status)
	require.NotNil(t, msg.ErrorMessage)
	assert.Contains(t, *msg.ErrorMessage, "not reachable")
	assert.Nil(t, msg.ExternalID)

	page, err := f.svc.ListMessages(ctx, domain.ListMessageRequest{ConversationID: conversation.ID.String()})
	require.NoError(t, err)
	require.Len(t, page.Messages, 1)
	assert.Equal(t, domain.StatusFailed, page.Messages[0].Status)
}

func TestSendValidatesBody(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	customerID := testutil.SeedCustomer(t, f.db, f.node, "Rashid")
	conversation, err := f.svc.Upsert(ctx, domain.UpsertConversationRequest{CustomerID: customerID.String()})
	require.NoError(t, err)
	id := conversation.ID.String()

	_, err = f.svc.Send(ctx, domain.SendMessageRequest{ConversationID: id, Body: "   "})
	assert.ErrorIs(t, err, domain.ErrEmptyBody)

	_, err = f.svc.Send(ctx, domain.SendMessageRequest{ConversationID: id, Body: strings.Repeat("a", domain.MaxBodyLength+1)})
	assert.ErrorIs(t, err, domain.ErrBodyTooLong)

	_, err = f.svc.Send(ctx, domain.SendMessageRequest{ConversationID: id, QuickReplyID: f.node.Generate().String()})
	assert.ErrorIs(t, err, domain.ErrQuickReplyNotFound)

	_, err = f.svc.Send(ctx, domain.SendMessageRequest{ConversationID: f.node.Generate().String(), Body: "hi"})
	assert.ErrorIs(t, err, domain.ErrConversationNotFound)

	assert.Empty(t, f.sender.sent)
}

func TestSendUsesQuickReplyBody(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	customerID := testutil.SeedCustomer(t, f.db, f.node, "Rashid")
	conversation, err := f.svc.Upsert(ctx, domain.UpsertConversationRequest{CustomerID: customerID.String()})
	require.NoError(t, err)

	replies := NewQuickReplyService(QuickReplyParams{
		DB:    f.db,
		GenID: f.node,
		Clock: clockAt(),
		Repo:  f.repo,
	})
	reply, err := replies.Create(ctx, domain.CreateQuickReplyRequest{Title: "Hours", Body: "We are open 8am to 6pm, Saturday to Thursday."})
	require.NoError(t, err)

	msg, err := f.svc.Send(ctx, domain.SendMessageRequest{ConversationID: conversation.ID.String(), QuickReplyID: reply.ID.String()})
	require.NoError(t, err)
	assert.Equal(t, reply.Body, msg.Body)
}

func TestReceiveInboundCreatesCustomerAndDedupes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	inbound := domain.InboundMessage{
		From:        "971501112233",
		ProfileName: "Huda",
		Body:        "Can you quote a shower screen?",
		ExternalID:  "wamid.in1",
		Timestamp:   time.Date(2026, 3, 2, 8, 30, 0, 0, time.UTC),
	}

	msg, err := f.svc.ReceiveInbound(ctx, inbound)
	require.NoError(t, err)
	assert.Equal(t, domain.DirectionInbound, msg.Direction)
	assert.Equal(t, domain.StatusReceived, msg.Status)
	assert.Equal(t, inbound.Timestamp, msg.CreatedAt.UTC())

	again, err := f.svc.ReceiveInbound(ctx, inbound)
	require.NoError(t, err)
	assert.Equal(t, msg.ID, again.ID)
	assert.Equal(t, int64(1), testutil.Count(t, f.db, "whatsapp_messages", ""))

	customer, err := customerrepo.Provide().FindByPhone(ctx, f.db, "+971501112233")
	require.NoError(t, err)
	require.NotNil(t, customer)
	assert.Equal(t, "Huda", customer.Name)

	conversation, err := f.svc.Get(ctx, msg.ConversationID.String())
	require.NoError(t, err)
	assert.Equal(t, customer.ID, conversation.CustomerID)
	assert.Equal(t, 1, conversation.UnreadCount)

	second := inbound
	second.ExternalID = "wamid.in2"
	second.Body = "Also a mirror"
	next, err := f.svc.ReceiveInbound(ctx, second)
	require.NoError(t, err)
	assert.Equal(t, msg.ConversationID, next.ConversationID)

	read, err := f.svc.MarkRead(ctx, conversation.ID.String())
	require.NoError(t, err)
	assert.Zero(t, read.UnreadCount)

	_, err = f.svc.ReceiveInbound(ctx, domain.InboundMessage{From: " ", Body: "x", ExternalID: "wamid.in3"})
	assert.ErrorIs(t, err, domain.ErrInvalidPhone)
}

func TestApplyStatusNeverRegresses(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	customerID := testutil.SeedCustomer(t, f.db, f.node, "Rashid")
	conversation, err := f.svc.Upsert(ctx, domain.UpsertConversationRequest{CustomerID: customerID.String()})
	require.NoError(t, err)
	msg, err := f.svc.Send(ctx, domain.SendMessageRequest{ConversationID: conversation.ID.String(), Body: "hello"})
	require.NoError(t, err)
	externalID := *msg.ExternalID

	require.NoError(t, f.svc.ApplyStatus(ctx, domain.StatusUpdate{ExternalID: externalID, Status: domain.StatusRead}))
	require.NoError(t, f.svc.ApplyStatus(ctx, domain.StatusUpdate{ExternalID: externalID, Status: domain.StatusDelivered}))

	stored, err := f.repo.FindMessageByExternalID(ctx, f.db, externalID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, domain.StatusRead, stored.Status)

	require.NoError(t, f.svc.ApplyStatus(ctx, domain.StatusUpdate{ExternalID: "wamid.unknown", Status: domain.StatusDelivered}))
	assert.ErrorIs(t, f.svc.ApplyStatus(ctx, domain.StatusUpdate{Status: domain.StatusRead}), domain.ErrInvalidPayload)
}

func TestListConversationsPaginates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for _, from := range []string{"971501000001", "971501000002", "971501000003"} {
		_, err := f.svc.ReceiveInbound(ctx, domain.InboundMessage{From: from, Body: "hi", ExternalID: "wamid." + from})
		require.NoError(t, err)
	}

	page, err := f.svc.List(ctx, domain.ListConversationRequest{Pagination: pagination.Pagination{PageSize: 2}})
	require.NoError(t, err)
	require.Len(t, page.Conversations, 2)
	require.True(t, page.HasMore)

	rest, err := f.svc.List(ctx, domain.ListConversationRequest{Pagination: pagination.Pagination{PageSize: 2, PageToken: page.NextPageToken}})
	require.NoError(t, err)
	require.Len(t, rest.Conversations, 1)
	assert.False(t, rest.HasMore)
}
