// Package notify maps order-state transitions to outbound WhatsApp
// messages.
//
// Freshly created orders get a delayed send: the creation notice waits a
// configurable window (default 35s) so an operator can still cancel or
// accept the order without the customer seeing a stale message. At most
// one pending notification exists per order; a later transition cancels
// or supersedes it. Messages for the same order go out in transition
// order; delivery is best-effort with no retries.
package notify

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/oaddad/nucleo-backend/internal/domain"
	"github.com/oaddad/nucleo-backend/internal/gateway"
	"github.com/oaddad/nucleo-backend/internal/repo"
)

// DefaultDelay is the delayed-send window for creation notices.
const DefaultDelay = 35 * time.Second

// deliveryTemplates maps statuses to customer messages for delivery
// orders. {codigo} and {endereco} are substituted at send time. Statuses
// absent from the table emit nothing.
var deliveryTemplates = map[domain.OrderStatus]string{
	domain.StatusAwaitingAccept: "Pedido Criado #{codigo}! Recebemos seu pedido, aguardando confirmação.",
	domain.StatusAccepted:       "Pedido #{codigo} Aceito! Já em produção.",
	domain.StatusInProduction:   "Pedido #{codigo} em Produção!",
	domain.StatusReady:          "Pedido #{codigo} Pronto! Aguardando entregador.",
	domain.StatusInBag:          "Pedido #{codigo} na Bag do Entregador!",
	domain.StatusEnRoute:        "Pedido #{codigo} em Rota de Entrega!",
	domain.StatusDelivered:      "Pedido #{codigo} Entregue!",
}

// pickupTemplates is the table for pickup orders.
var pickupTemplates = map[domain.OrderStatus]string{
	domain.StatusAwaitingAccept: "Pedido Criado #{codigo}! Recebemos seu pedido, aguardando confirmação.",
	domain.StatusAccepted:       "Pedido #{codigo} Aceito! Em produção.",
	domain.StatusInProduction:   "Pedido #{codigo} em Produção!",
	domain.StatusReady:          "Pedido #{codigo} Pronto! Pode retirar em {endereco}.",
	domain.StatusPickedUp:       "Pedido #{codigo} Retirado!",
}

// pendingSend is a scheduled creation notice awaiting its window.
type pendingSend struct {
	timer *time.Timer
	seq   uint64
}

// Notifier listens for order transitions and pushes customer messages
// through the gateway. It satisfies services.TransitionListener.
type Notifier struct {
	db     *gorm.DB
	sender gateway.Sender
	// Delay is the delayed-send window for creation notices. Zero means
	// DefaultDelay.
	Delay time.Duration

	mu      sync.Mutex
	pending map[string]*pendingSend
	// tails chains sends per order: each send waits for the previous one
	// to finish, so a superseding transition cannot overtake a creation
	// notice already in flight.
	tails map[string]chan struct{}
	seq   uint64
}

// New constructs a Notifier with the default delay.
func New(db *gorm.DB, sender gateway.Sender) *Notifier {
	return &Notifier{
		db:      db,
		sender:  sender,
		Delay:   DefaultDelay,
		pending: make(map[string]*pendingSend),
		tails:   make(map[string]chan struct{}),
	}
}

// OrderTransitioned schedules or sends the message for a transition. The
// previous pending notification for the order, if any, is dropped first.
func (n *Notifier) OrderTransitioned(o *domain.Order, next domain.OrderStatus) {
	n.cancelPending(o.ID)

	text, ok := n.render(o, next)
	if !ok {
		return
	}

	if next == domain.StatusAwaitingAccept {
		n.schedule(o, text)
		return
	}
	n.send(o, text)
}

// Stop drops all pending notifications. Used on shutdown.
func (n *Notifier) Stop() {
	n.mu.Lock()
	defer n.mu.Unlock()
	for id, p := range n.pending {
		p.timer.Stop()
		delete(n.pending, id)
	}
}

// PendingCount reports how many delayed sends are waiting.
func (n *Notifier) PendingCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.pending)
}

// render picks and fills the template for the order's delivery type.
func (n *Notifier) render(o *domain.Order, next domain.OrderStatus) (string, bool) {
	table := deliveryTemplates
	if o.DeliveryType == domain.DeliveryTypePickup {
		table = pickupTemplates
	}
	tmpl, ok := table[next]
	if !ok {
		return "", false
	}
	text := strings.ReplaceAll(tmpl, "{codigo}", o.Code)
	if strings.Contains(text, "{endereco}") {
		addr, err := repo.GetSetting(context.Background(), n.db, domain.SettingCompanyAddress)
		if err != nil {
			addr = ""
		}
		text = strings.ReplaceAll(text, "{endereco}", addr)
	}
	return text, true
}

// schedule installs the delayed creation notice for the order.
func (n *Notifier) schedule(o *domain.Order, text string) {
	delay := n.Delay
	if delay <= 0 {
		delay = DefaultDelay
	}

	n.mu.Lock()
	n.seq++
	seq := n.seq
	p := &pendingSend{seq: seq}
	p.timer = time.AfterFunc(delay, func() {
		// Fire only if this entry still owns the slot; a later
		// transition may have superseded it between timer expiry and
		// lock acquisition. Claiming the chain slot under the same lock
		// keeps a racing transition ordered behind this send.
		n.mu.Lock()
		current, ok := n.pending[o.ID]
		if !ok || current.seq != seq {
			n.mu.Unlock()
			return
		}
		delete(n.pending, o.ID)
		prev, done := n.claimTailLocked(o.ID)
		n.mu.Unlock()
		n.deliver(prev, done, o, text)
	})
	n.pending[o.ID] = p
	n.mu.Unlock()
}

// cancelPending drops the order's pending notification if one exists.
func (n *Notifier) cancelPending(orderID string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if p, ok := n.pending[orderID]; ok {
		p.timer.Stop()
		delete(n.pending, orderID)
	}
}

// send pushes the message through the gateway behind the order's send
// chain.
func (n *Notifier) send(o *domain.Order, text string) {
	n.mu.Lock()
	prev, done := n.claimTailLocked(o.ID)
	n.mu.Unlock()
	n.deliver(prev, done, o, text)
}

// claimTailLocked appends a slot to the order's send chain and returns the
// previous tail to wait on. Caller holds n.mu; done must be handed to
// deliver, which closes it.
func (n *Notifier) claimTailLocked(orderID string) (prev, done chan struct{}) {
	prev = n.tails[orderID]
	done = make(chan struct{})
	n.tails[orderID] = done
	return prev, done
}

// deliver waits for the order's previous send to finish, pushes the
// message, then releases its chain slot. Failures are logged, never
// retried.
func (n *Notifier) deliver(prev, done chan struct{}, o *domain.Order, text string) {
	defer func() {
		n.mu.Lock()
		if n.tails[o.ID] == done {
			delete(n.tails, o.ID)
		}
		n.mu.Unlock()
		close(done)
	}()
	if prev != nil {
		<-prev
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := n.sender.SendText(ctx, o.CustomerPhone, text); err != nil {
		log.Warn().
			Err(err).
			Str("order_id", o.ID).
			Str("order_code", o.Code).
			Msg("order notification send failed")
		return
	}
	log.Debug().
		Str("order_id", o.ID).
		Str("order_code", o.Code).
		Str("status", string(o.Status)).
		Msg("order notification sent")
}
