package service

import (
	"context"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"childsubs/internal/models"
)

// checkoutFixture is a store with one parent and a small catalogue
type checkoutFixture struct {
	*store
	parent     *models.User
	membership *models.Product
	kitBag     *models.Product
	coaching   *models.Product
	weekly     *models.Product
}

func newCheckoutFixture(t *testing.T) *checkoutFixture {
	t.Helper()
	s := newStore()
	f := &checkoutFixture{store: s, parent: s.parent("parent@example.com", "Pat")}
	f.membership = s.product("Club Membership", models.ProductSubscription, "25.00", nil)
	f.kitBag = s.product("Kit Bag", models.ProductSimple, "15.00", nil)
	f.coaching = s.product("Coaching", models.ProductVariableSubscription, "0", nil)
	weekly, err := s.commerceSvc.CreateProduct(context.Background(), ProductInput{
		Name:            "Weekly",
		Type:            string(models.ProductSubscriptionVariation),
		ParentID:        f.coaching.ID,
		Price:           "9.99",
		BillingPeriod:   "week",
		BillingInterval: 1,
	})
	require.NoError(t, err)
	f.weekly = weekly
	return f
}

func (f *checkoutFixture) addChild(t *testing.T, ownerID int64, name string) *models.Child {
	t.Helper()
	c, err := f.childSvc.CreateChild(context.Background(), ownerID, ChildInput{Name: name})
	require.NoError(t, err)
	return c
}

func (f *checkoutFixture) addToCart(t *testing.T, product, variation *models.Product) {
	t.Helper()
	var variationID int64
	if variation != nil {
		variationID = variation.ID
	}
	_, err := f.commerceSvc.AddToCart(context.Background(), f.parent.ID, product.ID, variationID, 1)
	require.NoError(t, err)
}

func validForm(childID int64) CheckoutForm {
	return CheckoutForm{BillingName: "Pat Parent", BillingEmail: "parent@example.com", ChildID: strconv.FormatInt(childID, 10)}
}

func TestCheckoutService_ChildField(t *testing.T) {
	tests := []struct {
		name      string
		children  []string
		cart      func(f *checkoutFixture, t *testing.T)
		wantField bool
	}{
		{
			name:     "children and subscription",
			children: []string{"Alice", "Bob"},
			cart: func(f *checkoutFixture, t *testing.T) {
				f.addToCart(t, f.membership, nil)
			},
			wantField: true,
		},
		{
			name:     "subscription variation counts",
			children: []string{"Alice"},
			cart: func(f *checkoutFixture, t *testing.T) {
				f.addToCart(t, f.coaching, f.weekly)
			},
			wantField: true,
		},
		{
			name:     "mixed cart",
			children: []string{"Alice"},
			cart: func(f *checkoutFixture, t *testing.T) {
				f.addToCart(t, f.kitBag, nil)
				f.addToCart(t, f.membership, nil)
			},
			wantField: true,
		},
		{
			name:     "no children",
			children: nil,
			cart: func(f *checkoutFixture, t *testing.T) {
				f.addToCart(t, f.membership, nil)
			},
			wantField: false,
		},
		{
			name:     "no subscription in cart",
			children: []string{"Alice"},
			cart: func(f *checkoutFixture, t *testing.T) {
				f.addToCart(t, f.kitBag, nil)
			},
			wantField: false,
		},
		{
			name:      "empty cart",
			children:  []string{"Alice"},
			cart:      func(f *checkoutFixture, t *testing.T) {},
			wantField: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newCheckoutFixture(t)
			var created []*models.Child
			for _, name := range tt.children {
				created = append(created, f.addChild(t, f.parent.ID, name))
			}
			tt.cart(f, t)

			field, err := f.checkoutSvc.ChildField(context.Background(), f.parent.ID)
			require.NoError(t, err)
			if !tt.wantField {
				assert.Nil(t, field)
				return
			}

			require.NotNil(t, field)
			assert.Equal(t, ChildFieldKey, field.Key)
			assert.Equal(t, ChildFieldLabel, field.Label)
			assert.Equal(t, ChildFieldPlaceholder, field.Placeholder)
			assert.True(t, field.Required)
			require.Len(t, field.Options, len(created))
			for i, c := range created {
				assert.Equal(t, strconv.FormatInt(c.ID, 10), field.Options[i].Value)
				assert.Equal(t, c.Name, field.Options[i].Label)
			}
		})
	}
}

func TestCheckoutService_ChildFieldExcludesOtherParentsAndTrash(t *testing.T) {
	ctx := context.Background()
	f := newCheckoutFixture(t)
	other := f.parent2(t)

	keep := f.addChild(t, f.parent.ID, "Alice")
	gone := f.addChild(t, f.parent.ID, "Bob")
	f.addChild(t, other.ID, "Stranger")
	require.NoError(t, f.childSvc.TrashChild(ctx, gone.ID, f.parent.ID))
	f.addToCart(t, f.membership, nil)

	field, err := f.checkoutSvc.ChildField(ctx, f.parent.ID)
	require.NoError(t, err)
	require.NotNil(t, field)
	require.Len(t, field.Options, 1)
	assert.Equal(t, strconv.FormatInt(keep.ID, 10), field.Options[0].Value)
}

func (f *checkoutFixture) parent2(t *testing.T) *models.User {
	t.Helper()
	return f.store.parent("other@example.com", "Other")
}

func TestCheckoutService_Validate(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name        string
		withChild   bool
		withSub     bool
		form        func(own, foreign int64) CheckoutForm
		wantNotices []string
	}{
		{
			name:      "child selected",
			withChild: true,
			withSub:   true,
			form:      func(own, _ int64) CheckoutForm { return validForm(own) },
		},
		{
			name:        "no child selected",
			withChild:   true,
			withSub:     true,
			form:        func(_, _ int64) CheckoutForm { return validForm(0) },
			wantNotices: []string{NoticeSelectChild},
		},
		{
			name:      "garbage child id",
			withChild: true,
			withSub:   true,
			form: func(_, _ int64) CheckoutForm {
				form := validForm(0)
				form.ChildID = "abc"
				return form
			},
			wantNotices: []string{NoticeInvalidChild},
		},
		{
			name:      "empty child id",
			withChild: true,
			withSub:   true,
			form: func(_, _ int64) CheckoutForm {
				form := validForm(0)
				form.ChildID = " "
				return form
			},
			wantNotices: []string{NoticeSelectChild},
		},
		{
			name:        "another parent's child",
			withChild:   true,
			withSub:     true,
			form:        func(_, foreign int64) CheckoutForm { return validForm(foreign) },
			wantNotices: []string{NoticeInvalidChild},
		},
		{
			name:      "field absent, nothing required",
			withChild: true,
			withSub:   false,
			form:      func(_, _ int64) CheckoutForm { return validForm(0) },
		},
		{
			name:      "no children, nothing required",
			withChild: false,
			withSub:   true,
			form:      func(_, _ int64) CheckoutForm { return validForm(0) },
		},
		{
			name:      "billing details missing",
			withChild: true,
			withSub:   true,
			form: func(_, _ int64) CheckoutForm {
				return CheckoutForm{BillingEmail: "not-an-email"}
			},
			wantNotices: []string{NoticeBillingName, NoticeBillingEmail, NoticeSelectChild},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newCheckoutFixture(t)
			other := f.parent2(t)
			var own int64
			if tt.withChild {
				own = f.addChild(t, f.parent.ID, "Alice").ID
			}
			foreign := f.addChild(t, other.ID, "Stranger").ID
			if tt.withSub {
				f.addToCart(t, f.membership, nil)
			} else {
				f.addToCart(t, f.kitBag, nil)
			}

			notices, err := f.checkoutSvc.Validate(ctx, f.parent.ID, tt.form(own, foreign))
			require.NoError(t, err)

			var got []string
			for _, n := range notices {
				assert.Equal(t, "error", n.Type)
				got = append(got, n.Message)
			}
			assert.Equal(t, tt.wantNotices, got)
		})
	}
}

func TestCheckoutService_PlaceOrderCopiesChildToOrderAndSubscriptions(t *testing.T) {
	ctx := context.Background()
	f := newCheckoutFixture(t)
	f.addChild(t, f.parent.ID, "Alice")
	bob := f.addChild(t, f.parent.ID, "Bob")

	f.addToCart(t, f.membership, nil)
	f.addToCart(t, f.coaching, f.weekly)
	f.addToCart(t, f.kitBag, nil)

	result, err := f.checkoutSvc.PlaceOrder(ctx, f.parent.ID, validForm(bob.ID))
	require.NoError(t, err)
	require.Empty(t, result.Notices)
	require.NotNil(t, result.Order)

	order := result.Order
	assert.Equal(t, models.OrderStatusProcessing, order.Status)
	assert.Equal(t, "49.99", order.Total.StringFixed(2))

	childID, _ := f.orders.GetMeta(ctx, order.ID, models.MetaChildID)
	childName, _ := f.orders.GetMeta(ctx, order.ID, models.MetaChildName)
	assert.Equal(t, strconv.FormatInt(bob.ID, 10), childID)
	assert.Equal(t, "Bob", childName)

	require.Len(t, result.Subscriptions, 2, "one subscription per subscription line")
	for _, sub := range result.Subscriptions {
		assert.Equal(t, order.ID, sub.OrderID)
		subChildID, _ := f.subs.GetMeta(ctx, sub.ID, models.MetaChildID)
		subChildName, _ := f.subs.GetMeta(ctx, sub.ID, models.MetaChildName)
		assert.Equal(t, childID, subChildID)
		assert.Equal(t, childName, subChildName)
	}
	assert.Equal(t, f.weekly.ID, result.Subscriptions[1].ProductID, "variation is the billed product")
	assert.Equal(t, "week", result.Subscriptions[1].BillingPeriod)

	items, _ := f.orders.GetOrderItems(ctx, order.ID)
	require.Len(t, items, 3)
	assert.Equal(t, "Coaching - Weekly", items[1].Name)

	lines, _ := f.cart.ListLines(ctx, f.parent.ID)
	assert.Empty(t, lines, "cart is emptied after the order")

	require.Len(t, f.notifier.sent, 1)
	assert.Equal(t, "Bob", f.notifier.sent[0].ChildName)
	assert.Equal(t, 2, f.notifier.sent[0].Subscriptions)
}

func TestCheckoutService_ChildNameIsSnapshotAtOrderTime(t *testing.T) {
	ctx := context.Background()
	f := newCheckoutFixture(t)
	alice := f.addChild(t, f.parent.ID, "Alice")

	f.addToCart(t, f.membership, nil)
	f.addToCart(t, f.coaching, f.weekly)

	result, err := f.checkoutSvc.PlaceOrder(ctx, f.parent.ID, validForm(alice.ID))
	require.NoError(t, err)
	require.Empty(t, result.Notices)
	require.Len(t, result.Subscriptions, 2)

	_, err = f.childSvc.UpdateChild(ctx, alice.ID, f.parent.ID, ChildInput{Name: "Alicia"})
	require.NoError(t, err)

	orderName, _ := f.orders.GetMeta(ctx, result.Order.ID, models.MetaChildName)
	assert.Equal(t, "Alice", orderName, "order keeps the name chosen at checkout")
	for _, sub := range result.Subscriptions {
		subName, _ := f.subs.GetMeta(ctx, sub.ID, models.MetaChildName)
		assert.Equal(t, "Alice", subName)
	}

	details, err := f.checkoutSvc.OrderForUser(ctx, result.Order.ID, f.parent.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alice", details.ChildName)

	// The admin column reads the live record
	rows, err := f.adminSvc.SubscriptionRows(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	for _, row := range rows {
		assert.Equal(t, "Alicia", row.AssignedChild)
		assert.Equal(t, alice.ID, row.ChildID)
	}
}

func TestCheckoutService_PlaceOrderBlockedWithoutChild(t *testing.T) {
	ctx := context.Background()
	f := newCheckoutFixture(t)
	f.addChild(t, f.parent.ID, "Alice")
	f.addToCart(t, f.membership, nil)

	result, err := f.checkoutSvc.PlaceOrder(ctx, f.parent.ID, validForm(0))
	require.NoError(t, err)
	require.Nil(t, result.Order)
	require.Len(t, result.Notices, 1)
	assert.Equal(t, NoticeSelectChild, result.Notices[0].Message)

	assert.Empty(t, f.orders.orders, "no order is created")
	lines, _ := f.cart.ListLines(ctx, f.parent.ID)
	assert.Len(t, lines, 1, "cart is kept for the retry")
}

func TestCheckoutService_PlaceOrderWithoutChildField(t *testing.T) {
	ctx := context.Background()
	f := newCheckoutFixture(t)
	f.addToCart(t, f.membership, nil)

	result, err := f.checkoutSvc.PlaceOrder(ctx, f.parent.ID, validForm(0))
	require.NoError(t, err)
	require.NotNil(t, result.Order)
	require.Len(t, result.Subscriptions, 1)

	childID, _ := f.orders.GetMeta(ctx, result.Order.ID, models.MetaChildID)
	assert.Empty(t, childID)
	subChildID, _ := f.subs.GetMeta(ctx, result.Subscriptions[0].ID, models.MetaChildID)
	assert.Empty(t, subChildID)
}

func TestCheckoutService_PlaceOrderEmptyCart(t *testing.T) {
	f := newCheckoutFixture(t)
	_, err := f.checkoutSvc.PlaceOrder(context.Background(), f.parent.ID, validForm(0))
	assert.ErrorIs(t, err, ErrEmptyCart)
}

func TestCheckoutService_PlaceOrderToleratesSideEffectFailures(t *testing.T) {
	ctx := context.Background()
	f := newCheckoutFixture(t)
	f.addToCart(t, f.kitBag, nil)
	f.cart.clearErr = errStore
	f.notifier.err = errStore

	result, err := f.checkoutSvc.PlaceOrder(ctx, f.parent.ID, validForm(0))
	require.NoError(t, err)
	assert.NotNil(t, result.Order)
	assert.Empty(t, result.Subscriptions)
}

func TestCheckoutService_OrderForUser(t *testing.T) {
	ctx := context.Background()
	f := newCheckoutFixture(t)
	alice := f.addChild(t, f.parent.ID, "Alice")
	f.addToCart(t, f.membership, nil)

	result, err := f.checkoutSvc.PlaceOrder(ctx, f.parent.ID, validForm(alice.ID))
	require.NoError(t, err)

	details, err := f.checkoutSvc.OrderForUser(ctx, result.Order.ID, f.parent.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alice", details.ChildName)
	assert.Equal(t, strconv.FormatInt(alice.ID, 10), details.ChildID)
	assert.Len(t, details.Items, 1)
	assert.Len(t, details.Subscriptions, 1)

	other := f.parent2(t)
	_, err = f.checkoutSvc.OrderForUser(ctx, result.Order.ID, other.ID)
	assert.ErrorIs(t, err, ErrOrderNotFound)

	_, err = f.checkoutSvc.OrderForUser(ctx, 999, f.parent.ID)
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestSubscriptionService_OnSubscriptionCreated(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name      string
		orderMeta map[string]string
		noOrder   bool
		wantID    string
		wantName  string
	}{
		{
			name:      "copies both keys",
			orderMeta: map[string]string{models.MetaChildID: "12", models.MetaChildName: "Alice"},
			wantID:    "12",
			wantName:  "Alice",
		},
		{
			name:      "zero id skipped",
			orderMeta: map[string]string{models.MetaChildID: "0", models.MetaChildName: "Alice"},
		},
		{
			name:      "missing name skipped",
			orderMeta: map[string]string{models.MetaChildID: "12"},
		},
		{
			name:      "missing id skipped",
			orderMeta: map[string]string{models.MetaChildName: "Alice"},
		},
		{
			name:    "order gone",
			noOrder: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newStore()
			orderID := int64(42)
			if !tt.noOrder {
				order, err := s.orders.CreateOrder(ctx, &models.Order{UserID: 1, Status: models.OrderStatusProcessing}, nil)
				require.NoError(t, err)
				orderID = order.ID
				for k, v := range tt.orderMeta {
					require.NoError(t, s.orders.SetMeta(ctx, orderID, k, v))
				}
			}

			err := s.subSvc.OnSubscriptionCreated(ctx, 7, orderID)
			require.NoError(t, err)

			gotID, _ := s.subs.GetMeta(ctx, 7, models.MetaChildID)
			gotName, _ := s.subs.GetMeta(ctx, 7, models.MetaChildName)
			assert.Equal(t, tt.wantID, gotID)
			assert.Equal(t, tt.wantName, gotName)
		})
	}
}

func TestSubscriptionService_CreateFromOrderSurvivesMetaFailure(t *testing.T) {
	ctx := context.Background()
	s := newStore()
	order, err := s.orders.CreateOrder(ctx, &models.Order{UserID: 1}, nil)
	require.NoError(t, err)
	require.NoError(t, s.orders.SetMeta(ctx, order.ID, models.MetaChildID, "3"))
	require.NoError(t, s.orders.SetMeta(ctx, order.ID, models.MetaChildName, "Cara"))
	s.subs.setErr = errStore

	line := models.CartLine{
		Item:    models.CartItem{Quantity: 1},
		Product: models.Product{ID: 5, Type: models.ProductSubscription, BillingPeriod: "month", BillingInterval: 1},
	}
	sub, err := s.subSvc.CreateFromOrder(ctx, order, line)
	require.NoError(t, err)
	assert.Equal(t, int64(5), sub.ProductID)
	assert.Equal(t, models.SubscriptionStatusActive, sub.Status)
}
