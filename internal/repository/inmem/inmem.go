// Package inmem provides map-backed implementations of the repository
// interfaces. They mirror the Postgres semantics, including the conditional
// stock updates, and back the service and handler tests.
package inmem

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/farmstore/backend/internal/entity"
	"github.com/farmstore/backend/internal/repository"
)

// Store holds every collection behind one mutex so cross-collection
// operations (order creation reserving stock) stay atomic, matching the
// transactional Postgres implementations.
type Store struct {
	mu            sync.Mutex
	users         map[string]*entity.User
	products      map[string]*entity.Product
	orders        map[string]*entity.Order
	notifications map[string]*entity.Notification
	carts         map[string][]entity.CartLine
	events        map[string][]entity.EventRecord
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		users:         make(map[string]*entity.User),
		products:      make(map[string]*entity.Product),
		orders:        make(map[string]*entity.Order),
		notifications: make(map[string]*entity.Notification),
		carts:         make(map[string][]entity.CartLine),
		events:        make(map[string][]entity.EventRecord),
	}
}

func (s *Store) Users() repository.UserRepository                 { return (*userRepo)(s) }
func (s *Store) Products() repository.ProductRepository           { return (*productRepo)(s) }
func (s *Store) Orders() repository.OrderRepository               { return (*orderRepo)(s) }
func (s *Store) Notifications() repository.NotificationRepository { return (*notificationRepo)(s) }
func (s *Store) Carts() repository.CartStore                      { return (*cartStore)(s) }
func (s *Store) Events() repository.EventLog                      { return (*eventLog)(s) }

// --- users ---

type userRepo Store

func (r *userRepo) Create(_ context.Context, u *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.users {
		if existing.Email == u.Email {
			return entity.ErrEmailTaken
		}
	}
	cp := *u
	r.users[u.ID] = &cp
	return nil
}

func (r *userRepo) FindByID(_ context.Context, id string) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return nil, entity.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *userRepo) FindByEmail(_ context.Context, email string) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, entity.ErrNotFound
}

func (r *userRepo) UpdateAddress(_ context.Context, id string, addr *entity.Address) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return entity.ErrNotFound
	}
	u.Address = addr
	return nil
}

func (r *userRepo) FindAdmins(ctx context.Context) ([]entity.User, error) {
	return r.find(func(u *entity.User) bool { return u.Role == entity.RoleAdmin })
}

func (r *userRepo) FindAll(ctx context.Context) ([]entity.User, error) {
	return r.find(func(*entity.User) bool { return true })
}

func (r *userRepo) find(match func(*entity.User) bool) ([]entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var users []entity.User
	for _, u := range r.users {
		if match(u) {
			users = append(users, *u)
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].CreatedAt.Before(users[j].CreatedAt) })
	return users, nil
}

// --- products ---

type productRepo Store

func (r *productRepo) FindActive(_ context.Context) ([]entity.Product, error) {
	return r.find(func(p *entity.Product) bool { return p.IsActive })
}

func (r *productRepo) FindAll(_ context.Context) ([]entity.Product, error) {
	return r.find(func(*entity.Product) bool { return true })
}

func (r *productRepo) find(match func(*entity.Product) bool) ([]entity.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var products []entity.Product
	for _, p := range r.products {
		if match(p) {
			products = append(products, *p)
		}
	}
	sort.Slice(products, func(i, j int) bool { return products[i].Name < products[j].Name })
	return products, nil
}

func (r *productRepo) FindByID(_ context.Context, id string) (*entity.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.products[id]
	if !ok {
		return nil, entity.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *productRepo) FindByNameSize(_ context.Context, name, size string) (*entity.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, p := range r.products {
		if p.IsActive && p.Name == name && p.Size == size {
			cp := *p
			return &cp, nil
		}
	}
	return nil, entity.ErrNotFound
}

func (r *productRepo) Create(_ context.Context, p *entity.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cp := *p
	r.products[p.ID] = &cp
	return nil
}

func (r *productRepo) Update(_ context.Context, p *entity.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.products[p.ID]
	if !ok {
		return entity.ErrNotFound
	}
	sold := current.Sold
	cp := *p
	cp.Sold = sold
	r.products[p.ID] = &cp
	return nil
}

func (r *productRepo) Deactivate(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.products[id]
	if !ok {
		return entity.ErrNotFound
	}
	p.IsActive = false
	return nil
}

func (r *productRepo) DecrementStock(_ context.Context, id string, qty int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return (*Store)(r).decrementLocked(id, qty)
}

func (r *productRepo) RestoreStock(_ context.Context, id string, qty int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return (*Store)(r).restoreLocked(id, qty)
}

func (r *productRepo) Seed(ctx context.Context, products []entity.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.products) > 0 {
		return nil
	}
	for _, p := range products {
		cp := p
		r.products[p.ID] = &cp
	}
	return nil
}

func (s *Store) decrementLocked(id string, qty int) error {
	p, ok := s.products[id]
	if !ok {
		return fmt.Errorf("product %s: %w", id, entity.ErrNotFound)
	}
	if p.Stock < qty {
		return fmt.Errorf("product %s: %w", id, entity.ErrInsufficientStock)
	}
	p.Stock -= qty
	p.Sold += qty
	return nil
}

func (s *Store) restoreLocked(id string, qty int) error {
	p, ok := s.products[id]
	if !ok {
		return fmt.Errorf("product %s: %w", id, entity.ErrNotFound)
	}
	p.Stock += qty
	p.Sold -= qty
	if p.Sold < 0 {
		p.Sold = 0
	}
	return nil
}

// --- orders ---

type orderRepo Store

func (r *orderRepo) Create(_ context.Context, o *entity.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Reserve stock first; undo on failure so a rejected order leaves no
	// trace, like the Postgres transaction.
	var reserved []entity.OrderItem
	for _, item := range o.Items {
		if err := (*Store)(r).decrementLocked(item.ProductID, item.Quantity); err != nil {
			for _, done := range reserved {
				(*Store)(r).restoreLocked(done.ProductID, done.Quantity)
			}
			return err
		}
		reserved = append(reserved, item)
	}

	cp := *o
	cp.Items = append([]entity.OrderItem(nil), o.Items...)
	r.orders[o.ID] = &cp
	return nil
}

func (r *orderRepo) FindByID(_ context.Context, id string) (*entity.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.orders[id]
	if !ok {
		return nil, entity.ErrNotFound
	}
	return copyOrder(o), nil
}

func (r *orderRepo) FindByUser(_ context.Context, userID string) ([]entity.Order, error) {
	return r.find(func(o *entity.Order) bool { return o.UserID == userID })
}

func (r *orderRepo) FindAll(_ context.Context, f repository.OrderFilter) ([]entity.Order, error) {
	return r.find(func(o *entity.Order) bool {
		if f.Status != "" && o.Status != f.Status {
			return false
		}
		if f.ShippingMethod != "" && o.ShippingMethod != f.ShippingMethod {
			return false
		}
		if f.Search != "" && !strings.Contains(strings.ToLower(o.ID), strings.ToLower(f.Search)) {
			return false
		}
		return true
	})
}

func (r *orderRepo) FindStale(_ context.Context, cutoff time.Time) ([]entity.Order, error) {
	return r.find(func(o *entity.Order) bool {
		return o.Status == entity.StatusPlaced && o.CreatedAt.Before(cutoff)
	})
}

func (r *orderRepo) find(match func(*entity.Order) bool) ([]entity.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var orders []entity.Order
	for _, o := range r.orders {
		if match(o) {
			orders = append(orders, *copyOrder(o))
		}
	}
	sort.Slice(orders, func(i, j int) bool { return orders[i].CreatedAt.After(orders[j].CreatedAt) })
	return orders, nil
}

func (r *orderRepo) UpdateStatus(_ context.Context, id, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.orders[id]
	if !ok {
		return entity.ErrNotFound
	}
	o.Status = status
	return nil
}

func (r *orderRepo) ApplyItemMutation(_ context.Context, m repository.ItemMutation) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.orders[m.OrderID]
	if !ok || m.ItemIndex < 0 || m.ItemIndex >= len(o.Items) {
		return entity.ErrNotFound
	}

	var applied []repository.StockOp
	for _, op := range m.StockOps {
		var err error
		if op.Restore {
			err = (*Store)(r).restoreLocked(op.ProductID, op.Qty)
		} else {
			err = (*Store)(r).decrementLocked(op.ProductID, op.Qty)
		}
		if err != nil {
			for _, done := range applied {
				if done.Restore {
					(*Store)(r).decrementLocked(done.ProductID, done.Qty)
				} else {
					(*Store)(r).restoreLocked(done.ProductID, done.Qty)
				}
			}
			return err
		}
		applied = append(applied, op)
	}

	o.Items[m.ItemIndex] = m.Item
	o.Total = m.NewTotal
	o.Status = m.NewStatus
	return nil
}

func copyOrder(o *entity.Order) *entity.Order {
	cp := *o
	cp.Items = append([]entity.OrderItem(nil), o.Items...)
	return &cp
}

// --- notifications ---

type notificationRepo Store

func (r *notificationRepo) Create(_ context.Context, n *entity.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cp := *n
	r.notifications[n.ID] = &cp
	return nil
}

func (r *notificationRepo) FindByUser(_ context.Context, userID string, unreadOnly bool, limit int) ([]entity.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var notifs []entity.Notification
	for _, n := range r.notifications {
		if n.UserID != userID {
			continue
		}
		if unreadOnly && n.IsRead {
			continue
		}
		notifs = append(notifs, *n)
	}
	sort.Slice(notifs, func(i, j int) bool { return notifs[i].CreatedAt.After(notifs[j].CreatedAt) })
	if limit > 0 && len(notifs) > limit {
		notifs = notifs[:limit]
	}
	return notifs, nil
}

func (r *notificationRepo) MarkRead(_ context.Context, id, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	n, ok := r.notifications[id]
	if !ok || n.UserID != userID {
		return entity.ErrNotFound
	}
	n.IsRead = true
	return nil
}

func (r *notificationRepo) MarkAllRead(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, n := range r.notifications {
		if n.UserID == userID {
			n.IsRead = true
		}
	}
	return nil
}

// --- carts ---

type cartStore Store

func (s *cartStore) Get(_ context.Context, userID string) ([]entity.CartLine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	lines, ok := s.carts[userID]
	if !ok {
		return []entity.CartLine{}, nil
	}
	return append([]entity.CartLine(nil), lines...), nil
}

func (s *cartStore) Put(_ context.Context, userID string, lines []entity.CartLine) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.carts[userID] = append([]entity.CartLine(nil), lines...)
	return nil
}

func (s *cartStore) Clear(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.carts, userID)
	return nil
}

// --- event log ---

type eventLog Store

func (l *eventLog) Append(_ context.Context, orderID string, events []entity.Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, event := range events {
		payload, err := json.Marshal(event)
		if err != nil {
			return fmt.Errorf("failed to marshal event %s: %w", event.EventType(), err)
		}
		l.events[orderID] = append(l.events[orderID], entity.EventRecord{
			ID:        uuid.NewString(),
			OrderID:   orderID,
			EventType: event.EventType(),
			Payload:   payload,
			CreatedAt: time.Now(),
		})
	}
	return nil
}

func (l *eventLog) FindByOrder(_ context.Context, orderID string) ([]entity.EventRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	return append([]entity.EventRecord(nil), l.events[orderID]...), nil
}
