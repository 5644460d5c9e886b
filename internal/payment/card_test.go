package payment

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/example/lottomart/internal/gateway"
)

func testOrder() Order {
	return Order{
		OrderID:   "ord-1",
		GameID:    "game-1",
		GameName:  "Powerball",
		Lines:     3,
		AmountUSD: 18.00,
	}
}

func validCard() CardFields {
	return CardFields{
		Number:      "4242 4242 4242 4242",
		HolderName:  "Somchai P",
		ExpiryMonth: 12,
		ExpiryYear:  time.Now().Year()%100 + 1,
		CVV:         "123",
	}
}

type recordingVault struct {
	entries []VaultEntry
}

func (v *recordingVault) Save(entry VaultEntry) error {
	v.entries = append(v.entries, entry)
	return nil
}

func TestValidateCardFields(t *testing.T) {
	yy := time.Now().Year() % 100

	cases := []struct {
		name   string
		mutate func(*CardFields)
		field  string
	}{
		{"twelve digit number", func(f *CardFields) { f.Number = "424242424242" }, "card_number"},
		{"twenty digit number", func(f *CardFields) { f.Number = "42424242424242424242" }, "card_number"},
		{"letters in number", func(f *CardFields) { f.Number = "4242abcd42424242" }, "card_number"},
		{"month zero", func(f *CardFields) { f.ExpiryMonth = 0 }, "expiry_month"},
		{"month thirteen", func(f *CardFields) { f.ExpiryMonth = 13 }, "expiry_month"},
		{"year in the past", func(f *CardFields) { f.ExpiryYear = yy - 1 }, "expiry_year"},
		{"year too far out", func(f *CardFields) { f.ExpiryYear = yy + 21 }, "expiry_year"},
		{"two digit cvv", func(f *CardFields) { f.CVV = "12" }, "cvv"},
		{"five digit cvv", func(f *CardFields) { f.CVV = "12345" }, "cvv"},
		{"blank holder", func(f *CardFields) { f.HolderName = "   " }, "holder_name"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fields := validCard()
			tc.mutate(&fields)
			err := ValidateCardFields(fields)
			require.Error(t, err)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			require.Equal(t, tc.field, verr.Field)
		})
	}

	accepts := []struct {
		name   string
		mutate func(*CardFields)
	}{
		{"thirteen digit number", func(f *CardFields) { f.Number = "4242424242424" }},
		{"nineteen digit number", func(f *CardFields) { f.Number = "4242424242424242424" }},
		{"spaced number", func(f *CardFields) { f.Number = "4242 4242 4242 4242" }},
		{"month one", func(f *CardFields) { f.ExpiryMonth = 1 }},
		{"month twelve", func(f *CardFields) { f.ExpiryMonth = 12 }},
		{"current year", func(f *CardFields) { f.ExpiryYear = yy }},
		{"three digit cvv", func(f *CardFields) { f.CVV = "123" }},
		{"four digit cvv", func(f *CardFields) { f.CVV = "1234" }},
	}
	for _, tc := range accepts {
		t.Run(tc.name, func(t *testing.T) {
			fields := validCard()
			tc.mutate(&fields)
			require.NoError(t, ValidateCardFields(fields))
		})
	}
}

func TestCardDriverChargeSucceedsOnce(t *testing.T) {
	var successes, cancels atomic.Int32
	var gotTxn atomic.Value

	vault := &recordingVault{}
	d, err := NewCardDriver(testOrder(), CardDeps{Charger: gateway.NewSandbox(), Vault: vault}, Callbacks{
		OnSuccess: func(txnID string) { successes.Add(1); gotTxn.Store(txnID) },
		OnCancel:  func() { cancels.Add(1) },
	})
	require.NoError(t, err)
	require.Equal(t, StateAwaitingAction, d.State())

	require.NoError(t, d.Submit(validCard(), true))

	require.Equal(t, StateSucceeded, d.State())
	require.Equal(t, int32(1), successes.Load())
	require.Equal(t, int32(0), cancels.Load())
	require.Contains(t, gotTxn.Load().(string), "ch_")

	require.Len(t, vault.entries, 1)
	require.Equal(t, "VISA", vault.entries[0].Brand)
	require.Equal(t, "4242", vault.entries[0].Last4)

	// A second submission after the terminal outcome is refused.
	require.ErrorIs(t, d.Submit(validCard(), false), ErrInvalidState)
	require.Equal(t, int32(1), successes.Load())

	// Cancel after success must not fire OnCancel.
	d.Cancel()
	require.Equal(t, int32(0), cancels.Load())
}

func TestCardDriverDeclineReturnsToForm(t *testing.T) {
	var successes atomic.Int32
	d, err := NewCardDriver(testOrder(), CardDeps{Charger: gateway.NewSandbox()}, Callbacks{
		OnSuccess: func(string) { successes.Add(1) },
	})
	require.NoError(t, err)

	declined := validCard()
	declined.Number = "4000000000000002"
	err = d.Submit(declined, false)
	require.Error(t, err)
	require.True(t, gateway.IsRejection(err))

	// Back to the form with a message; a fresh attempt still works.
	require.Equal(t, StateAwaitingAction, d.State())
	require.NotEmpty(t, d.Snapshot().Message)
	require.Equal(t, int32(0), successes.Load())

	require.NoError(t, d.Submit(validCard(), false))
	require.Equal(t, int32(1), successes.Load())
}

func TestCardDriverSavedCardCharge(t *testing.T) {
	var successes atomic.Int32
	d, err := NewCardDriver(testOrder(), CardDeps{Charger: gateway.NewSandbox()}, Callbacks{
		OnSuccess: func(string) { successes.Add(1) },
	})
	require.NoError(t, err)

	err = d.PayWithSaved(SavedCardRef{})
	require.True(t, IsValidation(err))

	require.NoError(t, d.PayWithSaved(SavedCardRef{ID: "card-1", Last4: "4242"}))
	require.Equal(t, int32(1), successes.Load())
}

func TestCardDriverTeardownSilencesCallbacks(t *testing.T) {
	var fired atomic.Int32
	d, err := NewCardDriver(testOrder(), CardDeps{Charger: gateway.NewSandbox()}, Callbacks{
		OnSuccess: func(string) { fired.Add(1) },
		OnCancel:  func() { fired.Add(1) },
	})
	require.NoError(t, err)

	d.Teardown()
	require.ErrorIs(t, d.Submit(validCard(), false), ErrInvalidState)
	d.Cancel()
	require.Equal(t, int32(0), fired.Load())
}

func TestCardDriverCancelFiresOnce(t *testing.T) {
	var cancels atomic.Int32
	d, err := NewCardDriver(testOrder(), CardDeps{Charger: gateway.NewSandbox()}, Callbacks{
		OnCancel: func() { cancels.Add(1) },
	})
	require.NoError(t, err)

	d.Cancel()
	d.Cancel()
	require.Equal(t, StateCancelled, d.State())
	require.Equal(t, int32(1), cancels.Load())
}

func TestNewCardDriverRejectsBadOrder(t *testing.T) {
	order := testOrder()
	order.AmountUSD = 0
	_, err := NewCardDriver(order, CardDeps{Charger: gateway.NewSandbox()}, Callbacks{})
	require.True(t, IsValidation(err))
}
