package handlers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sabordigital/zappedido/internal/conversation"
	"github.com/sabordigital/zappedido/internal/domain"
	"github.com/sabordigital/zappedido/internal/messages"
	"github.com/sabordigital/zappedido/internal/order"
	"github.com/sabordigital/zappedido/internal/payment"
)

const testPhone = "5585999998888"

const sampleSummary = "Resumo do pedido 🛒\n" +
	"- 2x Pizza Calabresa - R$ 30,00\n" +
	"- 1x Suco de Laranja - R$ 5,00\n" +
	"Total: R$ 65,00"

type testCtx struct {
	phone string
	text  string
	sent  []string
}

func (c *testCtx) Ctx() context.Context { return context.Background() }
func (c *testCtx) UserID() string       { return c.phone }
func (c *testCtx) MessageID() string    { return "wamid.test" }
func (c *testCtx) ProfileName() string  { return "Maria" }
func (c *testCtx) Text() string         { return c.text }

func (c *testCtx) Send(text string) error {
	c.sent = append(c.sent, text)
	return nil
}

func (c *testCtx) lastSent() string {
	if len(c.sent) == 0 {
		return ""
	}
	return c.sent[len(c.sent)-1]
}

type flowBackend struct {
	mu            sync.Mutex
	createErr     error
	created       []order.CreateRequest
	paymentStatus string
	orderStatus   string
}

func (b *flowBackend) CreateOrder(ctx context.Context, req order.CreateRequest) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.createErr != nil {
		return "", b.createErr
	}
	b.created = append(b.created, req)
	return "order-123", nil
}

func (b *flowBackend) GetPaymentStatus(ctx context.Context, orderID string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.paymentStatus == "" {
		return order.PaymentPending, nil
	}
	return b.paymentStatus, nil
}

func (b *flowBackend) GetOrderStatus(ctx context.Context, orderID string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.orderStatus == "" {
		return "preparing", nil
	}
	return b.orderStatus, nil
}

type flowLinks struct {
	err error
}

func (l *flowLinks) GenerateLink(ctx context.Context, req payment.LinkRequest) (*payment.Link, error) {
	if l.err != nil {
		return nil, l.err
	}
	return &payment.Link{URL: "https://pay.example/abc", ExpiresAt: time.Now().Add(time.Hour)}, nil
}

type flowSender struct {
	mu   sync.Mutex
	sent []string
}

func (s *flowSender) SendText(ctx context.Context, to, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, text)
	return nil
}

func (s *flowSender) all() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.sent...)
}

type flowCustomers struct {
	profile *domain.Customer
	orders  int
}

func (c *flowCustomers) GetOrCreate(ctx context.Context, phone string) (*domain.Customer, error) {
	if c.profile == nil {
		return &domain.Customer{Phone: phone}, nil
	}
	return c.profile, nil
}

func (c *flowCustomers) RememberDetails(ctx context.Context, phone, fullName, email string) error {
	return nil
}

func (c *flowCustomers) RememberAddress(ctx context.Context, phone, address string) error {
	return nil
}

func (c *flowCustomers) RecordOrder(ctx context.Context, phone string) error {
	c.orders++
	return nil
}

func flowLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestDeps(t *testing.T) (Deps, *flowBackend, *flowSender) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	storage := conversation.NewRedisStorage(client, flowLogger(), time.Hour)
	fsm := conversation.NewMachine(storage, flowLogger(), client)

	backend := &flowBackend{}
	sender := &flowSender{}

	deps := Deps{
		FSM:        fsm,
		Backend:    backend,
		Links:      &flowLinks{},
		Customers:  &flowCustomers{},
		Fees:       order.NewFeeCalculator(8, 80),
		Sender:     sender,
		MenuURL:    "https://menu.example",
		MaxRetries: 3,
		Log:        flowLogger(),
	}

	return deps, backend, sender
}

func handlerFor(d Deps, s conversation.State) Handler {
	switch s {
	case conversation.StateIdle:
		return NewIdle(d)
	case conversation.StateConfirmingOrder:
		return NewConfirmingOrder(d)
	case conversation.StateProvidingDetails:
		return NewProvidingDetails(d)
	case conversation.StateConfirmingAddress:
		return NewConfirmingAddress(d)
	case conversation.StateSelectingPayment:
		return NewSelectingPayment(d)
	case conversation.StateWaitingPayment:
		return NewWaitingPayment(d)
	case conversation.StateOrderConfirmed:
		return NewOrderConfirmed(d)
	case conversation.StateEditingOrder:
		return NewEditingOrder(d)
	case conversation.StateTrackingOrder:
		return NewTrackingOrder(d)
	case conversation.StateCustomerSupport:
		return NewCustomerSupport(d)
	}
	return nil
}

// step routes one message the way the dispatcher would.
func step(t *testing.T, d Deps, text string) *testCtx {
	t.Helper()

	state := conversation.StateIdle
	if conv, err := d.FSM.Get(context.Background(), testPhone); err == nil && conv != nil {
		state = conv.CurrentState
	}

	c := &testCtx{phone: testPhone, text: text}
	require.NoError(t, handlerFor(d, state)(c))
	return c
}

func currentState(t *testing.T, d Deps) conversation.State {
	t.Helper()

	conv, err := d.FSM.Get(context.Background(), testPhone)
	require.NoError(t, err)
	return conv.CurrentState
}

func advanceToPaymentSelection(t *testing.T, d Deps) {
	t.Helper()

	step(t, d, sampleSummary)
	step(t, d, "sim")
	step(t, d, "Maria Silva")
	step(t, d, "maria@example.com")
	step(t, d, "Rua das Flores, 123, Centro")
	require.Equal(t, conversation.StateSelectingPayment, currentState(t, d))
}

func TestFlowHappyPathDigitalPayment(t *testing.T) {
	d, backend, _ := newTestDeps(t)

	c := step(t, d, sampleSummary)
	assert.Equal(t, conversation.StateConfirmingOrder, currentState(t, d))
	assert.Contains(t, c.lastSent(), "R$ 65,00")

	c = step(t, d, "sim")
	assert.Equal(t, conversation.StateProvidingDetails, currentState(t, d))
	assert.Equal(t, messages.AskName, c.lastSent())

	c = step(t, d, "Maria Silva")
	assert.Equal(t, conversation.StateProvidingDetails, currentState(t, d))
	assert.Equal(t, messages.AskEmail, c.lastSent())

	c = step(t, d, "maria@example.com")
	assert.Equal(t, conversation.StateConfirmingAddress, currentState(t, d))
	assert.Equal(t, messages.AskAddress, c.lastSent())

	c = step(t, d, "Rua das Flores, 123, Centro")
	assert.Equal(t, conversation.StateSelectingPayment, currentState(t, d))
	// 65 subtotal + 8 delivery
	assert.Contains(t, c.lastSent(), "R$ 73,00")
	assert.Contains(t, c.lastSent(), "PIX")

	c = step(t, d, "1")
	assert.Equal(t, conversation.StateWaitingPayment, currentState(t, d))
	assert.Contains(t, c.lastSent(), "https://pay.example/abc")

	require.Len(t, backend.created, 1)
	created := backend.created[0]
	assert.Equal(t, "Maria Silva", created.CustomerName)
	assert.Equal(t, "maria@example.com", created.CustomerEmail)
	assert.Equal(t, "pix", created.PaymentType)
	assert.True(t, created.Total.Equal(created.Subtotal.Add(created.DeliveryFee)))

	// user pings while waiting; payment already approved upstream
	backend.mu.Lock()
	backend.paymentStatus = order.PaymentApproved
	backend.mu.Unlock()

	c = step(t, d, "e aí?")
	assert.Equal(t, conversation.StateOrderConfirmed, currentState(t, d))
	assert.Equal(t, messages.PaymentApproved, c.lastSent())
}

func TestFlowCashPaymentWithChange(t *testing.T) {
	d, backend, _ := newTestDeps(t)
	advanceToPaymentSelection(t, d)

	c := step(t, d, "dinheiro")
	assert.Equal(t, conversation.StateSelectingPayment, currentState(t, d))
	assert.Equal(t, messages.AskPaymentChange, c.lastSent())

	c = step(t, d, "R$ 100,00")
	assert.Equal(t, conversation.StateOrderConfirmed, currentState(t, d))
	// change over the 73,00 total
	assert.Contains(t, c.lastSent(), "R$ 27,00")

	require.Len(t, backend.created, 1)
	assert.Equal(t, "cash", backend.created[0].PaymentType)
}

func TestFlowCashChangeBelowTotalRejected(t *testing.T) {
	d, _, _ := newTestDeps(t)
	advanceToPaymentSelection(t, d)

	step(t, d, "dinheiro")
	c := step(t, d, "R$ 40,00")

	assert.Equal(t, conversation.StateSelectingPayment, currentState(t, d))
	assert.Contains(t, c.lastSent(), "maior ou igual")
}

func TestFlowRetryExhaustionEscalates(t *testing.T) {
	d, _, _ := newTestDeps(t)

	step(t, d, sampleSummary)
	require.Equal(t, conversation.StateConfirmingOrder, currentState(t, d))

	step(t, d, "hã?")
	step(t, d, "o quê?")
	c := step(t, d, "não sei")

	assert.Equal(t, conversation.StateCustomerSupport, currentState(t, d))
	assert.Equal(t, messages.Escalated, c.lastSent())
}

func TestFlowValidInputResetsRetries(t *testing.T) {
	d, _, _ := newTestDeps(t)

	step(t, d, sampleSummary)
	step(t, d, "sim")

	// two bad names, then a good one: the accepted capture must reset the
	// counter even though the state does not change
	step(t, d, "M4ria")
	step(t, d, "123")
	c := step(t, d, "Maria Silva")
	require.Equal(t, messages.AskEmail, c.lastSent())

	step(t, d, "not-an-email")
	c = step(t, d, "also not")

	// four failures in total, yet never three in a row
	assert.Equal(t, conversation.StateProvidingDetails, currentState(t, d))
	assert.NotEqual(t, messages.Escalated, c.lastSent())
}

func TestFlowInvalidEmailReprompts(t *testing.T) {
	d, _, _ := newTestDeps(t)

	step(t, d, sampleSummary)
	step(t, d, "sim")
	step(t, d, "Maria Silva")

	c := step(t, d, "not-an-email")
	assert.Equal(t, conversation.StateProvidingDetails, currentState(t, d))
	assert.NotEqual(t, messages.AskEmail, c.lastSent())
	assert.NotEmpty(t, c.lastSent())
}

func TestFlowEditOrder(t *testing.T) {
	d, _, _ := newTestDeps(t)

	step(t, d, sampleSummary)
	c := step(t, d, "editar")
	assert.Equal(t, conversation.StateEditingOrder, currentState(t, d))
	assert.Equal(t, messages.AskOrderEdit, c.lastSent())

	newSummary := "Resumo do pedido 🛒\n- 1x Pizza Margherita - R$ 40,00\nTotal: R$ 40,00"
	c = step(t, d, newSummary)
	assert.Equal(t, conversation.StateConfirmingOrder, currentState(t, d))
	assert.Contains(t, c.lastSent(), "R$ 40,00")
}

func TestFlowEditOrderBackKeepsDraft(t *testing.T) {
	d, _, _ := newTestDeps(t)

	step(t, d, sampleSummary)
	step(t, d, "editar")
	c := step(t, d, "voltar")

	assert.Equal(t, conversation.StateConfirmingOrder, currentState(t, d))
	assert.Contains(t, c.lastSent(), "R$ 65,00")
}

func TestFlowReturningCustomerSkipsDetails(t *testing.T) {
	d, _, _ := newTestDeps(t)
	d.Customers = &flowCustomers{profile: &domain.Customer{
		Phone:       testPhone,
		FullName:    "Maria Silva",
		Email:       "maria@example.com",
		LastAddress: "Rua das Flores, 123, Centro",
	}}

	step(t, d, sampleSummary)
	c := step(t, d, "sim")

	assert.Equal(t, conversation.StateConfirmingAddress, currentState(t, d))
	assert.Contains(t, c.lastSent(), "Rua das Flores, 123, Centro")

	conv, err := d.FSM.Get(context.Background(), testPhone)
	require.NoError(t, err)
	require.NotNil(t, conv.Context.Personal)
	assert.Equal(t, "Maria Silva", conv.Context.Personal.Name)
}

func TestFlowOrderCreateFailureStaysSelecting(t *testing.T) {
	d, backend, _ := newTestDeps(t)
	advanceToPaymentSelection(t, d)

	backend.createErr = errors.New("backend down")
	c := step(t, d, "pix")

	assert.Equal(t, conversation.StateSelectingPayment, currentState(t, d))
	assert.Equal(t, messages.OrderCreateFailed, c.lastSent())
}

func TestFlowLinkFailureStaysSelectingAndReusesOrder(t *testing.T) {
	d, backend, _ := newTestDeps(t)
	advanceToPaymentSelection(t, d)

	d.Links = &flowLinks{err: errors.New("gateway down")}
	c := step(t, d, "pix")
	assert.Equal(t, conversation.StateSelectingPayment, currentState(t, d))
	assert.Equal(t, messages.PaymentLinkFailed, c.lastSent())
	require.Len(t, backend.created, 1)

	d.Links = &flowLinks{}
	c = step(t, d, "pix")
	assert.Equal(t, conversation.StateWaitingPayment, currentState(t, d))
	// retry must not create a second backend order
	assert.Len(t, backend.created, 1)
}

func TestFlowDeliveryFeeAppliedOnce(t *testing.T) {
	d, _, _ := newTestDeps(t)
	advanceToPaymentSelection(t, d)

	conv, err := d.FSM.Get(context.Background(), testPhone)
	require.NoError(t, err)

	draft := conv.Context.Order
	require.True(t, draft.FeeApplied)
	total := draft.Total

	// a repeated address confirmation must not charge the fee twice
	draft.ApplyDeliveryFee(d.Fees.Fee(draft.Subtotal))
	assert.True(t, draft.Total.Equal(total))
}

func TestPaymentOutcomeApproved(t *testing.T) {
	d, _, sender := newTestDeps(t)
	advanceToPaymentSelection(t, d)
	step(t, d, "pix")
	require.Equal(t, conversation.StateWaitingPayment, currentState(t, d))

	paymentOutcome(d, testPhone)(payment.ResultApproved)

	assert.Equal(t, conversation.StateOrderConfirmed, currentState(t, d))
	sent := sender.all()
	require.NotEmpty(t, sent)
	assert.Equal(t, messages.PaymentApproved, sent[len(sent)-1])
}

func TestPaymentOutcomeRejectedReturnsToSelection(t *testing.T) {
	d, _, sender := newTestDeps(t)
	advanceToPaymentSelection(t, d)
	step(t, d, "pix")

	paymentOutcome(d, testPhone)(payment.ResultRejected)

	assert.Equal(t, conversation.StateSelectingPayment, currentState(t, d))
	sent := sender.all()
	require.NotEmpty(t, sent)
	assert.True(t, strings.Contains(sent[len(sent)-1], "não foi aprovado"))
}

func TestPaymentOutcomeTimeoutEscalates(t *testing.T) {
	d, _, sender := newTestDeps(t)
	advanceToPaymentSelection(t, d)
	step(t, d, "pix")

	paymentOutcome(d, testPhone)(payment.ResultTimeout)

	assert.Equal(t, conversation.StateCustomerSupport, currentState(t, d))
	sent := sender.all()
	require.NotEmpty(t, sent)
	assert.Equal(t, messages.PaymentTimeout, sent[len(sent)-1])
}

func TestFlowTrackingDeliveredClearsConversation(t *testing.T) {
	d, backend, _ := newTestDeps(t)
	advanceToPaymentSelection(t, d)
	step(t, d, "dinheiro")
	step(t, d, "R$ 100,00")
	require.Equal(t, conversation.StateOrderConfirmed, currentState(t, d))

	step(t, d, "quero acompanhar")
	require.Equal(t, conversation.StateTrackingOrder, currentState(t, d))

	backend.mu.Lock()
	backend.orderStatus = "delivered"
	backend.mu.Unlock()

	c := step(t, d, "e aí?")
	assert.Equal(t, messages.DeliveredThanks, c.lastSent())

	_, err := d.FSM.Get(context.Background(), testPhone)
	assert.ErrorIs(t, err, conversation.ErrNotFound)
}

func TestCommandCancelClearsFromAnyState(t *testing.T) {
	d, _, _ := newTestDeps(t)
	advanceToPaymentSelection(t, d)

	c := &testCtx{phone: testPhone, text: "cancelar"}
	require.NoError(t, NewCancel(d)(c))

	assert.Equal(t, messages.Cancelled, c.lastSent())
	_, err := d.FSM.Get(context.Background(), testPhone)
	assert.ErrorIs(t, err, conversation.ErrNotFound)
}

func TestCommandStatusWithoutOrder(t *testing.T) {
	d, _, _ := newTestDeps(t)

	c := &testCtx{phone: testPhone, text: "status"}
	require.NoError(t, NewStatus(d)(c))

	assert.Equal(t, messages.NoActiveOrder, c.lastSent())
}

func TestCommandSupportEscalates(t *testing.T) {
	d, _, _ := newTestDeps(t)
	step(t, d, sampleSummary)

	c := &testCtx{phone: testPhone, text: "atendente"}
	require.NoError(t, NewSupport(d)(c))

	assert.Equal(t, conversation.StateCustomerSupport, currentState(t, d))
	assert.Equal(t, messages.Escalated, c.lastSent())
}

func TestFlowNumberedConfirmationChoices(t *testing.T) {
	t.Run("1 confirms", func(t *testing.T) {
		d, _, _ := newTestDeps(t)
		step(t, d, sampleSummary)

		c := step(t, d, "1")
		assert.Equal(t, conversation.StateProvidingDetails, currentState(t, d))
		assert.Equal(t, messages.AskName, c.lastSent())
	})

	t.Run("2 edits", func(t *testing.T) {
		d, _, _ := newTestDeps(t)
		step(t, d, sampleSummary)

		c := step(t, d, "2")
		assert.Equal(t, conversation.StateEditingOrder, currentState(t, d))
		assert.Equal(t, messages.AskOrderEdit, c.lastSent())
	})

	t.Run("3 cancels", func(t *testing.T) {
		d, _, _ := newTestDeps(t)
		step(t, d, sampleSummary)

		c := step(t, d, "3")
		assert.Equal(t, messages.Cancelled, c.lastSent())
		_, err := d.FSM.Get(context.Background(), testPhone)
		assert.ErrorIs(t, err, conversation.ErrNotFound)
	})
}

func TestCommandMenuFromSupportReturnsToStart(t *testing.T) {
	d, _, _ := newTestDeps(t)
	step(t, d, sampleSummary)
	require.NoError(t, NewSupport(d)(&testCtx{phone: testPhone, text: "atendente"}))
	require.Equal(t, conversation.StateCustomerSupport, currentState(t, d))

	c := &testCtx{phone: testPhone, text: "menu"}
	require.NoError(t, NewMenuLink(d)(c))

	assert.Contains(t, c.lastSent(), messages.MainMenu)
	_, err := d.FSM.Get(context.Background(), testPhone)
	assert.ErrorIs(t, err, conversation.ErrNotFound)
}

func TestCommandMenuOutsideSupportKeepsConversation(t *testing.T) {
	d, _, _ := newTestDeps(t)
	step(t, d, sampleSummary)

	c := &testCtx{phone: testPhone, text: "cardapio"}
	require.NoError(t, NewMenuLink(d)(c))

	assert.Contains(t, c.lastSent(), d.MenuURL)
	assert.Equal(t, conversation.StateConfirmingOrder, currentState(t, d))
}

func TestFlowEditedSummaryIsSanitized(t *testing.T) {
	d, _, _ := newTestDeps(t)

	step(t, d, sampleSummary)
	step(t, d, "editar")

	tainted := "Resumo do pedido 🛒\n- 1x Pizza <Margherita> - R$ 40,00\nTotal: R$ 40,00"
	step(t, d, tainted)

	require.Equal(t, conversation.StateConfirmingOrder, currentState(t, d))
	conv, err := d.FSM.Get(context.Background(), testPhone)
	require.NoError(t, err)
	require.Len(t, conv.Context.Order.Items, 1)
	assert.Equal(t, "Pizza Margherita", conv.Context.Order.Items[0].Name)
}
