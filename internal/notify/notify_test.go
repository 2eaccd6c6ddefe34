package notify

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/oaddad/nucleo-backend/internal/domain"
	"github.com/oaddad/nucleo-backend/internal/repo"
)

type fakeSender struct {
	mu    sync.Mutex
	texts []string
	// gate, when set, blocks the next SendText until closed. Consumed
	// once.
	gate chan struct{}
}

func (f *fakeSender) SendText(ctx context.Context, phoneRaw, text string) error {
	f.mu.Lock()
	gate := f.gate
	f.gate = nil
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.texts = append(f.texts, text)
	return nil
}

func (f *fakeSender) SendAudio(ctx context.Context, phoneRaw string, media []byte, mime string) error {
	return nil
}

func (f *fakeSender) sent() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.texts))
	copy(out, f.texts)
	return out
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := repo.OpenSQLite(filepath.Join(t.TempDir(), "notify_test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func testOrder(dt domain.DeliveryType) *domain.Order {
	return &domain.Order{
		ID:            "order-1",
		Code:          "P042",
		CustomerPhone: "5534996727535",
		DeliveryType:  dt,
		Status:        domain.StatusAwaitingAccept,
	}
}

func newTestNotifier(t *testing.T, delay time.Duration) (*Notifier, *fakeSender) {
	t.Helper()
	sender := &fakeSender{}
	n := New(openTestDB(t), sender)
	n.Delay = delay
	t.Cleanup(n.Stop)
	return n, sender
}

func TestCreationNoticeDelayed(t *testing.T) {
	n, sender := newTestNotifier(t, 40*time.Millisecond)
	o := testOrder(domain.DeliveryTypeDelivery)

	n.OrderTransitioned(o, domain.StatusAwaitingAccept)
	if got := sender.sent(); len(got) != 0 {
		t.Fatalf("creation notice sent before the window: %v", got)
	}
	if n.PendingCount() != 1 {
		t.Fatalf("pending = %d; want 1", n.PendingCount())
	}

	waitFor(t, func() bool { return len(sender.sent()) == 1 })
	if got := sender.sent()[0]; !strings.Contains(got, "#P042") || !strings.Contains(got, "aguardando confirmação") {
		t.Errorf("unexpected creation notice: %q", got)
	}
	if n.PendingCount() != 0 {
		t.Errorf("pending should be empty after fire, got %d", n.PendingCount())
	}
}

func TestFastAcceptSupersedesCreationNotice(t *testing.T) {
	// Scenario: the order is accepted before the delayed window elapses;
	// the customer must see exactly one message, for the accept.
	n, sender := newTestNotifier(t, 80*time.Millisecond)
	o := testOrder(domain.DeliveryTypeDelivery)

	n.OrderTransitioned(o, domain.StatusAwaitingAccept)
	time.Sleep(10 * time.Millisecond)
	n.OrderTransitioned(o, domain.StatusAccepted)

	// Wait past the original window to prove the creation notice never
	// fires.
	time.Sleep(150 * time.Millisecond)

	got := sender.sent()
	if len(got) != 1 {
		t.Fatalf("sent %d messages, want exactly 1: %v", len(got), got)
	}
	if got[0] != "Pedido #P042 Aceito! Já em produção." {
		t.Errorf("unexpected message: %q", got[0])
	}
}

func TestCancelDropsPendingAndEmitsNothing(t *testing.T) {
	n, sender := newTestNotifier(t, 80*time.Millisecond)
	o := testOrder(domain.DeliveryTypeDelivery)

	n.OrderTransitioned(o, domain.StatusAwaitingAccept)
	n.OrderTransitioned(o, domain.StatusCancelled)

	time.Sleep(150 * time.Millisecond)
	if got := sender.sent(); len(got) != 0 {
		t.Fatalf("cancelled order must emit nothing, got %v", got)
	}
	if n.PendingCount() != 0 {
		t.Errorf("pending should be empty, got %d", n.PendingCount())
	}
}

func TestPickupReadyIncludesAddress(t *testing.T) {
	n, sender := newTestNotifier(t, time.Minute)
	if err := repo.SetSetting(context.Background(), n.db, domain.SettingCompanyAddress, "Rua das Flores, 10"); err != nil {
		t.Fatalf("seed address: %v", err)
	}
	o := testOrder(domain.DeliveryTypePickup)

	n.OrderTransitioned(o, domain.StatusReady)
	got := sender.sent()
	if len(got) != 1 {
		t.Fatalf("sent %d messages, want 1", len(got))
	}
	if got[0] != "Pedido #P042 Pronto! Pode retirar em Rua das Flores, 10." {
		t.Errorf("unexpected message: %q", got[0])
	}
}

func TestDeliveryOnlyStatusesSilentForPickup(t *testing.T) {
	n, sender := newTestNotifier(t, time.Minute)
	o := testOrder(domain.DeliveryTypePickup)

	n.OrderTransitioned(o, domain.StatusInBag)
	n.OrderTransitioned(o, domain.StatusEnRoute)
	n.OrderTransitioned(o, domain.StatusDelivered)
	if got := sender.sent(); len(got) != 0 {
		t.Fatalf("pickup orders must not get delivery-leg messages: %v", got)
	}
}

func TestLifecycleMessagesInTransitionOrder(t *testing.T) {
	n, sender := newTestNotifier(t, 10*time.Millisecond)
	o := testOrder(domain.DeliveryTypeDelivery)

	n.OrderTransitioned(o, domain.StatusAwaitingAccept)
	waitFor(t, func() bool { return len(sender.sent()) == 1 })

	for _, st := range []domain.OrderStatus{
		domain.StatusAccepted,
		domain.StatusInProduction,
		domain.StatusReady,
		domain.StatusInBag,
		domain.StatusEnRoute,
		domain.StatusDelivered,
	} {
		n.OrderTransitioned(o, st)
	}

	got := sender.sent()
	wantOrder := []string{"Criado", "Aceito", "Produção", "Pronto", "Bag", "Rota", "Entregue"}
	if len(got) != len(wantOrder) {
		t.Fatalf("sent %d messages, want %d: %v", len(got), len(wantOrder), got)
	}
	for i, frag := range wantOrder {
		if !strings.Contains(got[i], frag) {
			t.Errorf("message %d = %q; want fragment %q", i, got[i], frag)
		}
	}
}

func TestInFlightCreationNoticeBlocksNextSend(t *testing.T) {
	// Scenario: the creation-notice timer has already claimed its send and
	// is blocked inside the gateway call when the accept transition fires.
	// The accept message must wait for the notice, not overtake it.
	n, sender := newTestNotifier(t, 10*time.Millisecond)
	gate := make(chan struct{})
	sender.gate = gate
	o := testOrder(domain.DeliveryTypeDelivery)

	n.OrderTransitioned(o, domain.StatusAwaitingAccept)
	waitFor(t, func() bool { return n.PendingCount() == 0 })

	acceptDone := make(chan struct{})
	go func() {
		n.OrderTransitioned(o, domain.StatusAccepted)
		close(acceptDone)
	}()

	select {
	case <-acceptDone:
		t.Fatal("accept message overtook the in-flight creation notice")
	case <-time.After(50 * time.Millisecond):
	}

	close(gate)
	<-acceptDone

	got := sender.sent()
	if len(got) != 2 {
		t.Fatalf("sent %d messages, want 2: %v", len(got), got)
	}
	if !strings.Contains(got[0], "Criado") || !strings.Contains(got[1], "Aceito") {
		t.Errorf("messages out of transition order: %v", got)
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}
