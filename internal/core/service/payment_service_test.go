package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/cashflow/payment-lifecycle/internal/core"
	"github.com/cashflow/payment-lifecycle/internal/core/service"
	"github.com/cashflow/payment-lifecycle/internal/port/input"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type paymentFixture struct {
	repo  *memoryPaymentRepo
	cache *fakeCache
	msg   *fakeMessaging
	svc   input.PaymentService
}

func newPaymentFixture() *paymentFixture {
	f := &paymentFixture{
		repo:  newMemoryPaymentRepo(),
		cache: newFakeCache(),
		msg:   &fakeMessaging{},
	}
	f.svc = service.NewPaymentService(f.repo, f.msg, f.cache, 0)
	return f
}

func validInitiate() input.InitiatePaymentRequest {
	return input.InitiatePaymentRequest{
		Amount:        decimal.NewFromInt(10000),
		Currency:      core.CurrencyKES,
		PaymentMethod: core.PaymentMethodMobileMoney,
		CustomerPhone: "+254700000000",
		CustomerEmail: "customer@example.com",
	}
}

// seed initiates a payment and walks it to status via the update path
func (f *paymentFixture) seed(t *testing.T, status core.PaymentStatus) *core.Payment {
	t.Helper()
	ctx := context.Background()
	p, err := f.svc.InitiatePayment(ctx, validInitiate())
	require.NoError(t, err)

	path := map[core.PaymentStatus][]core.PaymentStatus{
		core.PaymentStatusInitiated: nil,
		core.PaymentStatusPending:   {core.PaymentStatusPending},
		core.PaymentStatusSuccess:   {core.PaymentStatusPending, core.PaymentStatusSuccess},
		core.PaymentStatusFailed:    {core.PaymentStatusPending, core.PaymentStatusFailed},
	}[status]
	for _, s := range path {
		p, err = f.svc.UpdatePaymentStatus(ctx, p.Reference, input.UpdateStatusRequest{Status: s})
		require.NoError(t, err)
	}
	return p
}

func webhook(ref string, status core.PaymentStatus, txn string) input.WebhookRequest {
	return input.WebhookRequest{
		PaymentReference:      ref,
		Status:                status,
		ProviderTransactionID: txn,
		Timestamp:             time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestInitiatePayment_CreatesInitiatedPaymentWithFreshReference(t *testing.T) {
	f := newPaymentFixture()
	ctx := context.Background()

	first, err := f.svc.InitiatePayment(ctx, validInitiate())
	require.NoError(t, err)
	second, err := f.svc.InitiatePayment(ctx, validInitiate())
	require.NoError(t, err)

	assert.Equal(t, core.PaymentStatusInitiated, first.Status)
	assert.True(t, first.Amount.Equal(decimal.NewFromInt(10000)))
	assert.Equal(t, core.CurrencyKES, first.Currency)
	assert.NotEqual(t, first.Reference, second.Reference)
	_, err = uuid.Parse(first.Reference)
	assert.NoError(t, err)

	events := f.msg.published()
	require.Len(t, events, 2)
	assert.Equal(t, core.EventSourceInitiate, events[0].Source)
	assert.Equal(t, core.PaymentStatusInitiated, events[0].Status)
}

func TestInitiatePayment_RejectsInvalidInput(t *testing.T) {
	cases := map[string]func(*input.InitiatePaymentRequest){
		"zero amount":     func(r *input.InitiatePaymentRequest) { r.Amount = decimal.Zero },
		"negative amount": func(r *input.InitiatePaymentRequest) { r.Amount = decimal.NewFromInt(-5) },
		"currency":        func(r *input.InitiatePaymentRequest) { r.Currency = "EUR" },
		"payment method":  func(r *input.InitiatePaymentRequest) { r.PaymentMethod = "CARD" },
		"phone":           func(r *input.InitiatePaymentRequest) { r.CustomerPhone = "0700-abc" },
		"email":           func(r *input.InitiatePaymentRequest) { r.CustomerEmail = "not-an-email" },
		"sub-cent amount": func(r *input.InitiatePaymentRequest) { r.Amount = decimal.RequireFromString("10.005") },
	}

	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			f := newPaymentFixture()
			req := validInitiate()
			mutate(&req)

			_, err := f.svc.InitiatePayment(context.Background(), req)
			assert.ErrorIs(t, err, core.ErrInvalidInput)
			assert.Empty(t, f.msg.published())
		})
	}
}

func TestInitiatePayment_ReferenceCollisionIsInternal(t *testing.T) {
	f := newPaymentFixture()
	repo := &collidingRepo{memoryPaymentRepo: f.repo}
	svc := service.NewPaymentService(repo, nil, f.cache, 0)

	_, err := svc.InitiatePayment(context.Background(), validInitiate())
	require.Error(t, err)
	assert.NotErrorIs(t, err, core.ErrDuplicateReference)
	assert.Contains(t, err.Error(), "failed to create payment")
}

type collidingRepo struct {
	*memoryPaymentRepo
}

func (r *collidingRepo) Create(context.Context, *core.Payment) error {
	return core.ErrDuplicateReference
}

func TestGetPaymentByReference_NotFound(t *testing.T) {
	f := newPaymentFixture()

	_, err := f.svc.GetPaymentByReference(context.Background(), "nonexistent")
	assert.ErrorIs(t, err, core.ErrPaymentNotFound)
}

func TestUpdatePaymentStatus_LifecycleScenario(t *testing.T) {
	f := newPaymentFixture()
	ctx := context.Background()

	p, err := f.svc.InitiatePayment(ctx, validInitiate())
	require.NoError(t, err)
	require.Equal(t, core.PaymentStatusInitiated, p.Status)

	p, err = f.svc.UpdatePaymentStatus(ctx, p.Reference, input.UpdateStatusRequest{Status: core.PaymentStatusPending})
	require.NoError(t, err)
	assert.Equal(t, core.PaymentStatusPending, p.Status)

	p, err = f.svc.UpdatePaymentStatus(ctx, p.Reference, input.UpdateStatusRequest{
		Status:                core.PaymentStatusSuccess,
		ProviderTransactionID: "TXN123456789",
	})
	require.NoError(t, err)
	assert.Equal(t, core.PaymentStatusSuccess, p.Status)
	assert.Equal(t, "TXN123456789", p.ProviderTransactionID)

	_, err = f.svc.UpdatePaymentStatus(ctx, p.Reference, input.UpdateStatusRequest{Status: core.PaymentStatusPending})
	var invalid *core.InvalidTransitionError
	require.True(t, errors.As(err, &invalid))
	assert.Equal(t, core.PaymentStatusSuccess, invalid.Current)
	assert.Equal(t, core.PaymentStatusPending, invalid.Requested)

	assert.Equal(t, core.PaymentStatusSuccess, f.repo.get(p.Reference).Status)
}

func TestUpdatePaymentStatus_KeepsProviderTransactionWhenOmitted(t *testing.T) {
	f := newPaymentFixture()
	ctx := context.Background()
	p := f.seed(t, core.PaymentStatusInitiated)

	_, err := f.svc.UpdatePaymentStatus(ctx, p.Reference, input.UpdateStatusRequest{
		Status:                core.PaymentStatusPending,
		ProviderTransactionID: "TXN-1",
	})
	require.NoError(t, err)

	updated, err := f.svc.UpdatePaymentStatus(ctx, p.Reference, input.UpdateStatusRequest{Status: core.PaymentStatusSuccess})
	require.NoError(t, err)
	assert.Equal(t, "TXN-1", updated.ProviderTransactionID)
}

func TestUpdatePaymentStatus_SelfLoopOnTerminalIsAllowed(t *testing.T) {
	f := newPaymentFixture()
	p := f.seed(t, core.PaymentStatusFailed)

	updated, err := f.svc.UpdatePaymentStatus(context.Background(), p.Reference, input.UpdateStatusRequest{Status: core.PaymentStatusFailed})
	require.NoError(t, err)
	assert.Equal(t, core.PaymentStatusFailed, updated.Status)
}

func TestUpdatePaymentStatus_UnknownReference(t *testing.T) {
	f := newPaymentFixture()

	_, err := f.svc.UpdatePaymentStatus(context.Background(), "missing", input.UpdateStatusRequest{Status: core.PaymentStatusPending})
	assert.ErrorIs(t, err, core.ErrPaymentNotFound)
}

func TestUpdatePaymentStatus_UnknownStatus(t *testing.T) {
	f := newPaymentFixture()
	p := f.seed(t, core.PaymentStatusInitiated)

	_, err := f.svc.UpdatePaymentStatus(context.Background(), p.Reference, input.UpdateStatusRequest{Status: "REFUNDED"})
	assert.ErrorIs(t, err, core.ErrInvalidInput)
}

func TestUpdatePaymentStatus_ConcurrentTerminalWritesOnlyOneWins(t *testing.T) {
	for i := 0; i < 20; i++ {
		f := newPaymentFixture()
		p := f.seed(t, core.PaymentStatusPending)

		var wg sync.WaitGroup
		results := make([]error, 2)
		targets := []core.PaymentStatus{core.PaymentStatusSuccess, core.PaymentStatusFailed}
		for j, target := range targets {
			wg.Add(1)
			go func(j int, target core.PaymentStatus) {
				defer wg.Done()
				_, results[j] = f.svc.UpdatePaymentStatus(context.Background(), p.Reference, input.UpdateStatusRequest{Status: target})
			}(j, target)
		}
		wg.Wait()

		succeeded := 0
		for j, err := range results {
			if err == nil {
				succeeded++
				assert.Equal(t, targets[j], f.repo.get(p.Reference).Status)
				continue
			}
			assert.True(t, errors.Is(err, core.ErrConcurrentUpdate) || core.IsInvalidTransition(err), "unexpected error: %v", err)
		}
		assert.Equal(t, 1, succeeded)
	}
}

func TestProcessWebhook_AppliesTransitionAndMarksKey(t *testing.T) {
	f := newPaymentFixture()
	ctx := context.Background()
	p := f.seed(t, core.PaymentStatusPending)

	outcome, err := f.svc.ProcessWebhook(ctx, webhook(p.Reference, core.PaymentStatusSuccess, "TXN-1"))
	require.NoError(t, err)
	assert.True(t, outcome.Success)
	assert.Equal(t, service.WebhookProcessed, outcome.Message)
	assert.Equal(t, p.Reference, outcome.PaymentReference)

	stored := f.repo.get(p.Reference)
	assert.Equal(t, core.PaymentStatusSuccess, stored.Status)
	assert.Equal(t, "TXN-1", stored.ProviderTransactionID)

	ttl, ok := f.cache.ttl("webhook:" + p.Reference + ":TXN-1")
	require.True(t, ok)
	assert.Equal(t, 24*time.Hour, ttl)

	events := f.msg.published()
	last := events[len(events)-1]
	assert.Equal(t, core.EventSourceWebhook, last.Source)
	assert.Equal(t, core.PaymentStatusPending, last.PreviousStatus)
	assert.Equal(t, core.PaymentStatusSuccess, last.Status)
	assert.Equal(t, time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC), last.OccurredAt)
}

func TestProcessWebhook_IdenticalRedeliveryIsIdempotent(t *testing.T) {
	f := newPaymentFixture()
	ctx := context.Background()
	p := f.seed(t, core.PaymentStatusPending)
	req := webhook(p.Reference, core.PaymentStatusSuccess, "TXN-1")

	first, err := f.svc.ProcessWebhook(ctx, req)
	require.NoError(t, err)
	afterFirst := f.repo.get(p.Reference)
	savesAfterFirst := f.repo.saveCount()

	second, err := f.svc.ProcessWebhook(ctx, req)
	require.NoError(t, err)

	assert.True(t, first.Success)
	assert.True(t, second.Success)
	assert.Equal(t, service.WebhookAlreadyProcessed, second.Message)

	afterSecond := f.repo.get(p.Reference)
	assert.Equal(t, afterFirst.Status, afterSecond.Status)
	assert.Equal(t, afterFirst.ProviderTransactionID, afterSecond.ProviderTransactionID)
	assert.Equal(t, afterFirst.UpdatedAt, afterSecond.UpdatedAt)
	assert.Equal(t, savesAfterFirst, f.repo.saveCount())
}

func TestProcessWebhook_CachedKeyShortCircuitsBeforeStore(t *testing.T) {
	f := newPaymentFixture()
	require.NoError(t, f.cache.Set(context.Background(), "webhook:ghost:TXN-9", []byte("1"), time.Hour))

	outcome, err := f.svc.ProcessWebhook(context.Background(), webhook("ghost", core.PaymentStatusSuccess, "TXN-9"))
	require.NoError(t, err)
	assert.Equal(t, service.WebhookAlreadyProcessed, outcome.Message)
}

func TestProcessWebhook_TerminalMatchWithNewTransactionID(t *testing.T) {
	f := newPaymentFixture()
	ctx := context.Background()
	p := f.seed(t, core.PaymentStatusPending)

	_, err := f.svc.ProcessWebhook(ctx, webhook(p.Reference, core.PaymentStatusSuccess, "TXN-1"))
	require.NoError(t, err)
	before := f.repo.get(p.Reference)
	saves := f.repo.saveCount()
	published := len(f.msg.published())

	outcome, err := f.svc.ProcessWebhook(ctx, webhook(p.Reference, core.PaymentStatusSuccess, "TXN-2"))
	require.NoError(t, err)
	assert.True(t, outcome.Success)
	assert.Equal(t, service.WebhookAlreadyInState, outcome.Message)

	after := f.repo.get(p.Reference)
	assert.Equal(t, before, after)
	assert.Equal(t, "TXN-1", after.ProviderTransactionID)
	assert.Equal(t, saves, f.repo.saveCount())
	assert.Len(t, f.msg.published(), published)

	_, marked := f.cache.ttl("webhook:" + p.Reference + ":TXN-2")
	assert.True(t, marked)
}

func TestProcessWebhook_GenuineConflictIsRejected(t *testing.T) {
	f := newPaymentFixture()
	ctx := context.Background()
	p := f.seed(t, core.PaymentStatusSuccess)
	entries := f.cache.size()

	_, err := f.svc.ProcessWebhook(ctx, webhook(p.Reference, core.PaymentStatusFailed, "TXN-3"))
	require.Error(t, err)
	assert.True(t, core.IsInvalidTransition(err))

	assert.Equal(t, core.PaymentStatusSuccess, f.repo.get(p.Reference).Status)
	assert.Equal(t, entries, f.cache.size(), "a rejected webhook must not write an idempotency marker")
}

func TestProcessWebhook_RejectedWebhookDoesNotPoisonLaterDelivery(t *testing.T) {
	f := newPaymentFixture()
	ctx := context.Background()
	p := f.seed(t, core.PaymentStatusInitiated)

	_, err := f.svc.ProcessWebhook(ctx, webhook(p.Reference, core.PaymentStatusSuccess, "TXN-1"))
	require.True(t, core.IsInvalidTransition(err))

	_, err = f.svc.UpdatePaymentStatus(ctx, p.Reference, input.UpdateStatusRequest{Status: core.PaymentStatusPending})
	require.NoError(t, err)

	outcome, err := f.svc.ProcessWebhook(ctx, webhook(p.Reference, core.PaymentStatusSuccess, "TXN-1"))
	require.NoError(t, err)
	assert.Equal(t, service.WebhookProcessed, outcome.Message)
	assert.Equal(t, core.PaymentStatusSuccess, f.repo.get(p.Reference).Status)
}

func TestProcessWebhook_UnknownPayment(t *testing.T) {
	f := newPaymentFixture()

	_, err := f.svc.ProcessWebhook(context.Background(), webhook("nonexistent", core.PaymentStatusSuccess, "TXN-1"))
	assert.ErrorIs(t, err, core.ErrPaymentNotFound)
	assert.Equal(t, 0, f.cache.size())
}

func TestProcessWebhook_CacheFailuresDegradeToMiss(t *testing.T) {
	f := newPaymentFixture()
	ctx := context.Background()
	p := f.seed(t, core.PaymentStatusPending)
	f.cache.getErr = errors.New("cache down")
	f.cache.setErr = errors.New("cache down")

	outcome, err := f.svc.ProcessWebhook(ctx, webhook(p.Reference, core.PaymentStatusFailed, "TXN-1"))
	require.NoError(t, err)
	assert.Equal(t, service.WebhookProcessed, outcome.Message)

	outcome, err = f.svc.ProcessWebhook(ctx, webhook(p.Reference, core.PaymentStatusFailed, "TXN-1"))
	require.NoError(t, err)
	assert.Equal(t, service.WebhookAlreadyInState, outcome.Message)
}

func TestProcessWebhook_PublishFailureDoesNotFailWebhook(t *testing.T) {
	f := newPaymentFixture()
	ctx := context.Background()
	p := f.seed(t, core.PaymentStatusPending)
	f.msg.publishFn = func(core.PaymentEvent) error { return errors.New("broker unavailable") }

	outcome, err := f.svc.ProcessWebhook(ctx, webhook(p.Reference, core.PaymentStatusSuccess, "TXN-1"))
	require.NoError(t, err)
	assert.Equal(t, service.WebhookProcessed, outcome.Message)
	assert.Equal(t, core.PaymentStatusSuccess, f.repo.get(p.Reference).Status)
}

func TestProcessWebhook_NonTerminalSelfLoopIsReapplied(t *testing.T) {
	f := newPaymentFixture()
	p := f.seed(t, core.PaymentStatusPending)

	outcome, err := f.svc.ProcessWebhook(context.Background(), webhook(p.Reference, core.PaymentStatusPending, "TXN-7"))
	require.NoError(t, err)
	assert.Equal(t, service.WebhookProcessed, outcome.Message)
	assert.Equal(t, "TXN-7", f.repo.get(p.Reference).ProviderTransactionID)
}

func TestInitiatePayment_AcceptsTwoDecimalPlaces(t *testing.T) {
	f := newPaymentFixture()
	req := validInitiate()
	req.Amount = decimal.RequireFromString("10.500")

	p, err := f.svc.InitiatePayment(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, p.Amount.Equal(decimal.RequireFromString("10.5")))
}

// slowFindRepo holds every load long enough for concurrent callers to read
// the same version
type slowFindRepo struct {
	*memoryPaymentRepo
	delay time.Duration
}

func (r *slowFindRepo) FindByReference(ctx context.Context, reference string) (*core.Payment, error) {
	time.Sleep(r.delay)
	return r.memoryPaymentRepo.FindByReference(ctx, reference)
}

func TestProcessWebhook_ConcurrentDuplicateDeliveriesBothSucceed(t *testing.T) {
	f := newPaymentFixture()
	p := f.seed(t, core.PaymentStatusPending)
	saves := f.repo.saveCount()
	svc := service.NewPaymentService(&slowFindRepo{memoryPaymentRepo: f.repo, delay: 20 * time.Millisecond}, f.msg, f.cache, 0)

	var wg sync.WaitGroup
	outcomes := make([]*input.WebhookOutcome, 2)
	errs := make([]error, 2)
	for i := range outcomes {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			outcomes[i], errs[i] = svc.ProcessWebhook(context.Background(), webhook(p.Reference, core.PaymentStatusSuccess, "TXN-1"))
		}(i)
	}
	wg.Wait()

	processed := 0
	for i := range outcomes {
		require.NoError(t, errs[i])
		assert.True(t, outcomes[i].Success)
		if outcomes[i].Message == service.WebhookProcessed {
			processed++
		} else {
			assert.Contains(t, []string{service.WebhookAlreadyProcessed, service.WebhookAlreadyInState}, outcomes[i].Message)
		}
	}
	assert.Equal(t, 1, processed)
	assert.Equal(t, saves+1, f.repo.saveCount())
	assert.Equal(t, core.PaymentStatusSuccess, f.repo.get(p.Reference).Status)
}

func TestProcessWebhook_ConcurrentConflictingDeliveriesRejectLoser(t *testing.T) {
	f := newPaymentFixture()
	p := f.seed(t, core.PaymentStatusPending)
	svc := service.NewPaymentService(&slowFindRepo{memoryPaymentRepo: f.repo, delay: 20 * time.Millisecond}, f.msg, f.cache, 0)

	var wg sync.WaitGroup
	targets := []core.PaymentStatus{core.PaymentStatusSuccess, core.PaymentStatusFailed}
	errs := make([]error, len(targets))
	for i, target := range targets {
		wg.Add(1)
		go func(i int, target core.PaymentStatus) {
			defer wg.Done()
			_, errs[i] = svc.ProcessWebhook(context.Background(), webhook(p.Reference, target, "TXN-"+string(target)))
		}(i, target)
	}
	wg.Wait()

	succeeded := 0
	for i, err := range errs {
		if err == nil {
			succeeded++
			assert.Equal(t, targets[i], f.repo.get(p.Reference).Status)
			continue
		}
		assert.True(t, core.IsInvalidTransition(err), "unexpected error: %v", err)
	}
	assert.Equal(t, 1, succeeded)
}
