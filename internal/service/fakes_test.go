package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"childsubs/internal/models"
)

var errStore = errors.New("store unavailable")

// fakeUsers is an in-memory UserStore
type fakeUsers struct {
	mu       sync.Mutex
	nextID   int64
	users    map[int64]*models.User
	sessions map[string]*models.Session
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{users: map[int64]*models.User{}, sessions: map[string]*models.Session{}}
}

func (f *fakeUsers) add(email, name string) *models.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	u := &models.User{ID: f.nextID, Email: email, Name: name, IsAdmin: f.nextID == 1}
	f.users[u.ID] = u
	return u
}

func (f *fakeUsers) CreateUser(ctx context.Context, email, passwordHash, name string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	u := &models.User{ID: f.nextID, Email: email, PasswordHash: passwordHash, Name: name, IsAdmin: len(f.users) == 0}
	f.users[u.ID] = u
	cp := *u
	return &cp, nil
}

func (f *fakeUsers) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeUsers) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, nil
}

func (f *fakeUsers) GetUserByOAuth(ctx context.Context, provider, subject string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.OAuthProvider == provider && u.OAuthSubject == subject {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeUsers) LinkOAuthProvider(ctx context.Context, userID int64, provider, subject string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userID]
	if !ok {
		return errStore
	}
	u.OAuthProvider = provider
	u.OAuthSubject = subject
	return nil
}

func (f *fakeUsers) CreateSession(ctx context.Context, sessionID string, userID int64, expiresAt time.Time) (*models.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := &models.Session{ID: sessionID, UserID: userID, ExpiresAt: expiresAt, CreatedAt: time.Now()}
	f.sessions[sessionID] = s
	cp := *s
	return &cp, nil
}

func (f *fakeUsers) GetSession(ctx context.Context, sessionID string) (*models.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.sessions[sessionID]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, nil
}

func (f *fakeUsers) DeleteSession(ctx context.Context, sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.sessions, sessionID)
	return nil
}

func (f *fakeUsers) DeleteExpiredSessions(ctx context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for id, s := range f.sessions {
		if s.IsExpired() {
			delete(f.sessions, id)
			n++
		}
	}
	return n, nil
}

// fakeChildren is an in-memory ChildStore. owners backs the admin join.
type fakeChildren struct {
	mu       sync.Mutex
	nextID   int64
	children map[int64]*models.Child
	owners   map[int64]models.User
	listErr  error
}

func newFakeChildren() *fakeChildren {
	return &fakeChildren{children: map[int64]*models.Child{}, owners: map[int64]models.User{}}
}

func (f *fakeChildren) CreateChild(ctx context.Context, child *models.Child) (*models.Child, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	c := *child
	c.ID = f.nextID
	c.Status = models.ChildStatusPublish
	c.CreatedAt = time.Now()
	f.children[c.ID] = &c
	cp := c
	return &cp, nil
}

func (f *fakeChildren) GetChildByID(ctx context.Context, id int64) (*models.Child, error) {
	c, err := f.GetChildByIDIncludingTrash(ctx, id)
	if c == nil || err != nil || c.IsTrashed() {
		return nil, err
	}
	return c, nil
}

func (f *fakeChildren) GetChildByIDIncludingTrash(ctx context.Context, id int64) (*models.Child, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.children[id]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, nil
}

func (f *fakeChildren) sorted() []models.Child {
	out := make([]models.Child, 0, len(f.children))
	for _, c := range f.children {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (f *fakeChildren) ListChildrenByOwner(ctx context.Context, ownerID int64) ([]models.Child, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []models.Child
	for _, c := range f.sorted() {
		if c.OwnerID == ownerID && !c.IsTrashed() {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeChildren) ListAllChildrenWithOwners(ctx context.Context) ([]models.ChildWithOwner, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.ChildWithOwner
	all := f.sorted()
	for i := len(all) - 1; i >= 0; i-- {
		c := all[i]
		if c.IsTrashed() {
			continue
		}
		owner := f.owners[c.OwnerID]
		out = append(out, models.ChildWithOwner{Child: c, OwnerName: owner.Name, OwnerEmail: owner.Email})
	}
	return out, nil
}

func (f *fakeChildren) UpdateChild(ctx context.Context, child *models.Child) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.children[child.ID]
	if !ok || c.IsTrashed() {
		return nil
	}
	c.Name, c.DateOfBirth, c.Gender, c.Age, c.Club = child.Name, child.DateOfBirth, child.Gender, child.Age, child.Club
	return nil
}

func (f *fakeChildren) TrashChild(ctx context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.children[id]; ok {
		c.Status = models.ChildStatusTrash
	}
	return nil
}

// fakeProducts is an in-memory ProductStore
type fakeProducts struct {
	mu       sync.Mutex
	nextID   int64
	products map[int64]*models.Product
}

func newFakeProducts() *fakeProducts {
	return &fakeProducts{products: map[int64]*models.Product{}}
}

func (f *fakeProducts) CreateProduct(ctx context.Context, p *models.Product) (*models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	cp := *p
	cp.ID = f.nextID
	f.products[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (f *fakeProducts) GetProductByID(ctx context.Context, id int64) (*models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.products[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, nil
}

func (f *fakeProducts) filter(keep func(models.Product) bool) []models.Product {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Product
	for _, p := range f.products {
		if keep(*p) {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (f *fakeProducts) ListProducts(ctx context.Context) ([]models.Product, error) {
	return f.filter(func(p models.Product) bool { return p.ParentID == nil }), nil
}

func (f *fakeProducts) ListVariations(ctx context.Context, parentID int64) ([]models.Product, error) {
	return f.filter(func(p models.Product) bool { return p.ParentID != nil && *p.ParentID == parentID }), nil
}

func (f *fakeProducts) CountProducts(ctx context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.products), nil
}

// fakeCart is an in-memory CartStore resolving lines against products
type fakeCart struct {
	mu       sync.Mutex
	nextID   int64
	items    []models.CartItem
	products *fakeProducts
	clearErr error
}

func newFakeCart(products *fakeProducts) *fakeCart {
	return &fakeCart{products: products}
}

func (f *fakeCart) AddItem(ctx context.Context, userID, productID int64, variationID *int64, quantity int) (*models.CartItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	item := models.CartItem{ID: f.nextID, UserID: userID, ProductID: productID, VariationID: variationID, Quantity: quantity}
	f.items = append(f.items, item)
	return &item, nil
}

func (f *fakeCart) RemoveItem(ctx context.Context, userID, itemID int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, item := range f.items {
		if item.ID == itemID && item.UserID == userID {
			f.items = append(f.items[:i], f.items[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeCart) ClearCart(ctx context.Context, userID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.clearErr != nil {
		return f.clearErr
	}
	kept := f.items[:0]
	for _, item := range f.items {
		if item.UserID != userID {
			kept = append(kept, item)
		}
	}
	f.items = kept
	return nil
}

func (f *fakeCart) ListLines(ctx context.Context, userID int64) ([]models.CartLine, error) {
	f.mu.Lock()
	items := append([]models.CartItem(nil), f.items...)
	f.mu.Unlock()

	var lines []models.CartLine
	for _, item := range items {
		if item.UserID != userID {
			continue
		}
		product, _ := f.products.GetProductByID(ctx, item.ProductID)
		line := models.CartLine{Item: item, Product: *product}
		if item.VariationID != nil {
			line.Variation, _ = f.products.GetProductByID(ctx, *item.VariationID)
		}
		lines = append(lines, line)
	}
	return lines, nil
}

// fakeMeta is a per-owner key/value map shared by the order and subscription fakes
type fakeMeta struct {
	mu     sync.Mutex
	values map[int64]map[string]string
	setErr error
}

func (m *fakeMeta) GetMeta(ctx context.Context, id int64, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.values[id][key], nil
}

func (m *fakeMeta) SetMeta(ctx context.Context, id int64, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return m.setErr
	}
	if m.values == nil {
		m.values = map[int64]map[string]string{}
	}
	if m.values[id] == nil {
		m.values[id] = map[string]string{}
	}
	m.values[id][key] = value
	return nil
}

// fakeOrders is an in-memory OrderStore
type fakeOrders struct {
	fakeMeta
	nextID int64
	orders map[int64]*models.Order
	items  map[int64][]models.OrderItem
}

func newFakeOrders() *fakeOrders {
	return &fakeOrders{orders: map[int64]*models.Order{}, items: map[int64][]models.OrderItem{}}
}

func (f *fakeOrders) CreateOrder(ctx context.Context, order *models.Order, items []models.OrderItem) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	o := *order
	o.ID = f.nextID
	o.CreatedAt = time.Now()
	f.orders[o.ID] = &o
	for _, item := range items {
		item.OrderID = o.ID
		f.items[o.ID] = append(f.items[o.ID], item)
	}
	cp := o
	return &cp, nil
}

func (f *fakeOrders) GetOrderByID(ctx context.Context, id int64) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if o, ok := f.orders[id]; ok {
		cp := *o
		return &cp, nil
	}
	return nil, nil
}

func (f *fakeOrders) GetOrderItems(ctx context.Context, orderID int64) ([]models.OrderItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.items[orderID], nil
}

// fakeSubscriptions is an in-memory SubscriptionStore
type fakeSubscriptions struct {
	fakeMeta
	nextID int64
	subs   []models.Subscription
}

func newFakeSubscriptions() *fakeSubscriptions {
	return &fakeSubscriptions{}
}

func (f *fakeSubscriptions) CreateSubscription(ctx context.Context, s *models.Subscription) (*models.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	sub := *s
	sub.ID = f.nextID
	sub.CreatedAt = time.Now()
	f.subs = append(f.subs, sub)
	return &sub, nil
}

func (f *fakeSubscriptions) ListSubscriptions(ctx context.Context) ([]models.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.Subscription, 0, len(f.subs))
	for i := len(f.subs) - 1; i >= 0; i-- {
		out = append(out, f.subs[i])
	}
	return out, nil
}

func (f *fakeSubscriptions) ListSubscriptionsByOrder(ctx context.Context, orderID int64) ([]models.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Subscription
	for _, s := range f.subs {
		if s.OrderID == orderID {
			out = append(out, s)
		}
	}
	return out, nil
}

// fakeNotifier records order confirmations
type fakeNotifier struct {
	mu   sync.Mutex
	sent []OrderConfirmation
	err  error
}

func (f *fakeNotifier) SendOrderConfirmation(ctx context.Context, c OrderConfirmation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, c)
	return f.err
}

// store wires every fake together the way cmd/server wires the repositories
type store struct {
	users    *fakeUsers
	children *fakeChildren
	products *fakeProducts
	cart     *fakeCart
	orders   *fakeOrders
	subs     *fakeSubscriptions
	notifier *fakeNotifier

	childSvc    *ChildService
	commerceSvc *CommerceService
	subSvc      *SubscriptionService
	checkoutSvc *CheckoutService
	adminSvc    *AdminService
}

func newStore() *store {
	logger := zap.NewNop()
	s := &store{
		users:    newFakeUsers(),
		children: newFakeChildren(),
		products: newFakeProducts(),
		orders:   newFakeOrders(),
		subs:     newFakeSubscriptions(),
		notifier: &fakeNotifier{},
	}
	s.cart = newFakeCart(s.products)
	s.childSvc = NewChildService(s.children, logger)
	s.commerceSvc = NewCommerceService(s.products, s.cart, logger)
	s.subSvc = NewSubscriptionService(s.orders, s.subs, logger)
	s.checkoutSvc = NewCheckoutService(s.childSvc, s.commerceSvc, s.commerceSvc, s.orders, s.subSvc, s.notifier, logger)
	s.adminSvc = NewAdminService(s.children, s.subs)
	return s
}

// parent registers a user and makes them visible to the admin join
func (s *store) parent(email, name string) *models.User {
	u := s.users.add(email, name)
	s.children.owners[u.ID] = *u
	return u
}

func (s *store) product(name string, typ models.ProductType, price string, parent *models.Product) *models.Product {
	in := ProductInput{Name: name, Type: string(typ), Price: price}
	if parent != nil {
		in.ParentID = parent.ID
	}
	p, err := s.commerceSvc.CreateProduct(context.Background(), in)
	if err != nil {
		panic(err)
	}
	return p
}
