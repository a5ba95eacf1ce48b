package ledger

import (
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/riteshkumar/ledger-assistant/internal/errors"
	"github.com/riteshkumar/ledger-assistant/internal/models"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func demoRates() models.RateTable {
	return models.RateTable{
		models.USD: dec("32.5"),
		models.EUR: dec("35.5"),
		models.XAU: dec("2150"),
	}
}

func newEngine(t *testing.T) *Engine {
	t.Helper()
	fixed := time.Date(2025, time.January, 2, 3, 4, 5, 0, time.UTC)
	return NewEngine(NewDemoStore(), WithClock(func() time.Time { return fixed }))
}

func mustAccount(t *testing.T, e *Engine, id string) models.Account {
	t.Helper()
	a, err := e.Account(id)
	if err != nil {
		t.Fatalf("Account(%s): %v", id, err)
	}
	return a
}

func assertHome(t *testing.T, e *Engine, id, want string) {
	t.Helper()
	if got := mustAccount(t, e, id).HomeBalance; !got.Equal(dec(want)) {
		t.Fatalf("%s home balance = %s, want %s", id, got, want)
	}
}

func assertNonNegative(t *testing.T, e *Engine) {
	t.Helper()
	for _, a := range e.Accounts() {
		if a.HomeBalance.IsNegative() {
			t.Fatalf("%s has negative home balance %s", a.ID, a.HomeBalance)
		}
		for d, v := range a.ForeignBalances {
			if v.IsNegative() {
				t.Fatalf("%s has negative %s balance %s", a.ID, d, v)
			}
		}
	}
}

func TestDeposit(t *testing.T) {
	e := newEngine(t)

	r, err := e.Deposit("user1", dec("250.5"))
	if err != nil {
		t.Fatalf("Deposit: %v", err)
	}
	if !r.Account.HomeBalance.Equal(dec("5250.5")) {
		t.Errorf("returned balance = %s", r.Account.HomeBalance)
	}
	if !r.Before.HomeBalance.Equal(dec("5000")) {
		t.Errorf("before balance = %s", r.Before.HomeBalance)
	}
	tx := r.Transaction
	if tx.Kind != models.KindDeposit || tx.FromDenomination != models.TRY || tx.ToDenomination != models.TRY {
		t.Errorf("unexpected record %+v", tx)
	}
	if !tx.Amount.Equal(dec("250.5")) || tx.ID == "" || tx.Seq == 0 {
		t.Errorf("unexpected record %+v", tx)
	}
	if tx.Description != "Deposit of 250.50 TRY" {
		t.Errorf("description = %q", tx.Description)
	}
	assertHome(t, e, "user1", "5250.5")
}

func TestDepositFailures(t *testing.T) {
	e := newEngine(t)

	for _, amt := range []string{"0", "-1", "0.001", "0.0049"} {
		if _, err := e.Deposit("user1", dec(amt)); errors.Classify(err) != "invalid_amount" {
			t.Errorf("Deposit(%s) err = %v, want ErrInvalidAmount", amt, err)
		}
		if _, err := e.Withdraw("user1", dec(amt)); errors.Classify(err) != "invalid_amount" {
			t.Errorf("Withdraw(%s) err = %v, want ErrInvalidAmount", amt, err)
		}
	}
	if len(mustAccount(t, e, "user1").History) != 1 {
		t.Error("rejected amounts left records behind")
	}
	if _, err := e.Deposit("nobody", dec("1")); !errors.IsNotFound(err) {
		t.Errorf("Deposit(nobody) err = %v, want ErrAccountNotFound", err)
	}
	assertHome(t, e, "user1", "5000")
}

// Scenario A
func TestWithdrawInsufficientFunds(t *testing.T) {
	e := newEngine(t)

	if _, err := e.Withdraw("user1", dec("6000")); !errors.IsInsufficientFunds(err) {
		t.Fatalf("err = %v, want ErrInsufficientFunds", err)
	}
	assertHome(t, e, "user1", "5000")
	if h, _ := e.History("user1", 0); len(h) != 1 {
		t.Fatalf("history grew on failure: %d", len(h))
	}
}

func TestWithdrawExactBalance(t *testing.T) {
	e := newEngine(t)

	r, err := e.Withdraw("user1", dec("5000"))
	if err != nil {
		t.Fatalf("Withdraw: %v", err)
	}
	if !r.Account.HomeBalance.IsZero() || r.Transaction.Kind != models.KindWithdraw {
		t.Fatalf("unexpected receipt %+v", r)
	}
	if _, err := e.Withdraw("user1", dec("0.01")); !errors.IsInsufficientFunds(err) {
		t.Fatalf("err = %v, want ErrInsufficientFunds", err)
	}
	if _, err := e.Withdraw("user1", dec("0")); errors.Classify(err) != "invalid_amount" {
		t.Fatalf("err = %v, want ErrInvalidAmount", err)
	}
	assertNonNegative(t, e)
}

// Scenario B
func TestTransfer(t *testing.T) {
	e := newEngine(t)

	r, err := e.Transfer("user1", "user2", dec("1000"))
	if err != nil {
		t.Fatalf("Transfer: %v", err)
	}
	assertHome(t, e, "user1", "4000")
	assertHome(t, e, "user2", "4000")

	h1, _ := e.History("user1", 0)
	h2, _ := e.History("user2", 0)
	if h1[0].Kind != models.KindTransferSent || !h1[0].Amount.Equal(dec("1000")) {
		t.Fatalf("user1 newest record %+v", h1[0])
	}
	if h2[0].Kind != models.KindTransferReceived || !h2[0].Amount.Equal(dec("1000")) {
		t.Fatalf("user2 newest record %+v", h2[0])
	}
	if h1[0].ID == h2[0].ID {
		t.Fatal("both sides share a transaction id")
	}
	if h1[0].Description != "Transfer to Ayşe Demir" || h2[0].Description != "Transfer from Ahmet Yılmaz" {
		t.Fatalf("descriptions %q / %q", h1[0].Description, h2[0].Description)
	}
	if h1[0].CounterpartyID != "user2" || h2[0].CounterpartyID != "user1" {
		t.Fatal("counterparty ids not set")
	}
	if r.Sent.ID != h1[0].ID || r.Received.ID != h2[0].ID {
		t.Fatal("receipt does not match recorded history")
	}
	if !r.FromBefore.HomeBalance.Equal(dec("5000")) || !r.ToBefore.HomeBalance.Equal(dec("3000")) {
		t.Fatal("before snapshots wrong")
	}
}

func TestTransferConservation(t *testing.T) {
	e := newEngine(t)
	before := mustAccount(t, e, "user1").HomeBalance.Add(mustAccount(t, e, "user2").HomeBalance)

	for _, amt := range []string{"0.01", "123.456", "999.99"} {
		if _, err := e.Transfer("user2", "user1", dec(amt)); err != nil {
			t.Fatalf("Transfer(%s): %v", amt, err)
		}
	}
	after := mustAccount(t, e, "user1").HomeBalance.Add(mustAccount(t, e, "user2").HomeBalance)
	if !before.Equal(after) {
		t.Fatalf("total changed: %s -> %s", before, after)
	}
}

// Scenario E and the other transfer failures; none may change anything.
func TestTransferFailuresAreAtomic(t *testing.T) {
	e := newEngine(t)
	u1 := mustAccount(t, e, "user1")
	u2 := mustAccount(t, e, "user2")

	cases := []struct {
		name     string
		from, to string
		amount   string
		want     string
	}{
		{"same account", "user1", "user1", "100", "same_account"},
		{"zero", "user1", "user2", "0", "invalid_amount"},
		{"negative", "user1", "user2", "-5", "invalid_amount"},
		{"below a cent", "user1", "user2", "0.004", "invalid_amount"},
		{"insufficient", "user1", "user2", "5000.01", "insufficient_funds"},
		{"unknown source", "ghost", "user2", "1", "account_not_found"},
		{"unknown destination", "user1", "ghost", "1", "account_not_found"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := e.Transfer(tc.from, tc.to, dec(tc.amount))
			if got := errors.Classify(err); got != tc.want {
				t.Fatalf("err = %v (%s), want %s", err, got, tc.want)
			}
		})
	}

	if !reflect.DeepEqual(u1, mustAccount(t, e, "user1")) || !reflect.DeepEqual(u2, mustAccount(t, e, "user2")) {
		t.Fatal("failed transfers changed account state")
	}
}

// Scenario C
func TestExchangeBuy(t *testing.T) {
	e := newEngine(t)

	r, err := e.Exchange("user1", models.TRY, models.USD, dec("10"), demoRates())
	if err != nil {
		t.Fatalf("Exchange: %v", err)
	}
	if !r.Account.HomeBalance.Equal(dec("4675")) {
		t.Fatalf("home = %s, want 4675", r.Account.HomeBalance)
	}
	if !r.Account.Balance(models.USD).Equal(dec("110")) {
		t.Fatalf("USD = %s, want 110", r.Account.Balance(models.USD))
	}
	tx := r.Transaction
	if tx.Kind != "BUY_USD" || tx.FromDenomination != models.TRY || tx.ToDenomination != models.USD {
		t.Fatalf("unexpected record %+v", tx)
	}
	if !tx.Amount.Equal(dec("325")) || !tx.CounterAmount.Equal(dec("10")) || !tx.Rate.Valid || !tx.Rate.Decimal.Equal(dec("32.5")) {
		t.Fatalf("unexpected amounts %+v", tx)
	}
	if tx.Description != "Bought 10.0000 USD" {
		t.Errorf("description = %q", tx.Description)
	}
}

func TestExchangeBuyIntoEmptyDenomination(t *testing.T) {
	store := NewStore([]models.Account{{ID: "a", Name: "A", HomeBalance: dec("100")}})
	e := NewEngine(store)
	rates := models.RateTable{"CHF": dec("40")}

	r, err := e.Exchange("a", models.TRY, "CHF", dec("2.5"), rates)
	if err != nil {
		t.Fatalf("Exchange: %v", err)
	}
	if !r.Account.Balance("CHF").Equal(dec("2.5")) || !r.Account.HomeBalance.IsZero() {
		t.Fatalf("unexpected balances %+v", r.Account)
	}
}

// Scenario D
func TestExchangeUnknownDenomination(t *testing.T) {
	e := newEngine(t)
	before := mustAccount(t, e, "user1")

	rates := models.RateTable{models.USD: dec("32.5")}
	if _, err := e.Exchange("user1", models.TRY, models.EUR, dec("1"), rates); !errors.IsUnknownDenomination(err) {
		t.Fatalf("err = %v, want ErrUnknownDenomination", err)
	}
	if !reflect.DeepEqual(before, mustAccount(t, e, "user1")) {
		t.Fatal("state changed")
	}
}

func TestExchangeFailuresAreAtomic(t *testing.T) {
	e := newEngine(t)
	before := mustAccount(t, e, "user1")

	cases := []struct {
		name     string
		from, to models.Denomination
		amount   string
		rates    models.RateTable
		want     string
	}{
		{"buy too much gold", models.TRY, models.XAU, "3", demoRates(), "insufficient_funds"},
		{"sell more than held", models.USD, models.TRY, "100.0001", demoRates(), "insufficient_funds"},
		{"sell absent", "CHF", models.TRY, "1", models.RateTable{"CHF": dec("40")}, "insufficient_funds"},
		{"zero amount", models.TRY, models.USD, "0", demoRates(), "invalid_amount"},
		{"quantity rounds to zero", models.TRY, models.USD, "0.00001", demoRates(), "invalid_amount"},
		{"cost rounds to zero", models.TRY, models.USD, "0.0001", demoRates(), "invalid_amount"},
		{"home to home", models.TRY, models.TRY, "1", demoRates(), "unsupported_exchange"},
		{"foreign to foreign", models.USD, models.EUR, "1", demoRates(), "unsupported_exchange"},
		{"zero rate", models.TRY, models.USD, "1", models.RateTable{models.USD: decimal.Zero}, "invalid_rate"},
		{"sell unknown", models.EUR, models.TRY, "1", models.RateTable{}, "unknown_denomination"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := e.Exchange("user1", tc.from, tc.to, dec(tc.amount), tc.rates)
			if got := errors.Classify(err); got != tc.want {
				t.Fatalf("err = %v (%s), want %s", err, got, tc.want)
			}
		})
	}

	if _, err := e.Exchange("ghost", models.TRY, models.USD, dec("1"), demoRates()); !errors.IsNotFound(err) {
		t.Fatalf("err = %v, want ErrAccountNotFound", err)
	}
	if !reflect.DeepEqual(before, mustAccount(t, e, "user1")) {
		t.Fatal("failed exchanges changed account state")
	}
}

func TestExchangeSell(t *testing.T) {
	e := newEngine(t)

	r, err := e.Exchange("user1", models.EUR, models.TRY, dec("10"), demoRates())
	if err != nil {
		t.Fatalf("Exchange: %v", err)
	}
	if !r.Account.HomeBalance.Equal(dec("5355")) || !r.Account.Balance(models.EUR).Equal(dec("240")) {
		t.Fatalf("unexpected balances %+v", r.Account)
	}
	tx := r.Transaction
	if tx.Kind != "SELL_EUR" || !tx.Amount.Equal(dec("10")) || !tx.CounterAmount.Equal(dec("355")) {
		t.Fatalf("unexpected record %+v", tx)
	}
}

func TestGoldRoundTrip(t *testing.T) {
	e := newEngine(t)
	rates := models.RateTable{models.XAU: dec("2150.123457")}
	grams := dec("1.333333")
	before := mustAccount(t, e, "user1")

	if _, err := e.Exchange("user1", models.TRY, models.XAU, grams, rates); err != nil {
		t.Fatalf("buy: %v", err)
	}
	r, err := e.Exchange("user1", models.XAU, models.TRY, grams, rates)
	if err != nil {
		t.Fatalf("sell: %v", err)
	}
	if !r.Account.HomeBalance.Equal(before.HomeBalance) {
		t.Fatalf("home %s, want %s", r.Account.HomeBalance, before.HomeBalance)
	}
	if !r.Account.Balance(models.XAU).Equal(before.Balance(models.XAU)) {
		t.Fatalf("gold %s, want %s", r.Account.Balance(models.XAU), before.Balance(models.XAU))
	}
}

func TestRecordsAreRoundedBalancesAreNot(t *testing.T) {
	e := newEngine(t)
	rates := models.RateTable{models.USD: dec("32.123")}

	r, err := e.Exchange("user1", models.TRY, models.USD, dec("0.33333"), rates)
	if err != nil {
		t.Fatalf("Exchange: %v", err)
	}
	// 0.33333 * 32.123 = 10.70756...
	if !r.Transaction.Amount.Equal(dec("10.71")) {
		t.Errorf("record amount = %s, want 10.71", r.Transaction.Amount)
	}
	if !r.Transaction.CounterAmount.Equal(dec("0.3333")) {
		t.Errorf("record counter amount = %s, want 0.3333", r.Transaction.CounterAmount)
	}
	want := dec("5000").Sub(dec("0.33333").Mul(dec("32.123")))
	if !r.Account.HomeBalance.Equal(want) {
		t.Errorf("balance = %s, want full precision %s", r.Account.HomeBalance, want)
	}
}

func TestHistoryOrdering(t *testing.T) {
	e := newEngine(t)

	if _, err := e.Deposit("user1", dec("1")); err != nil {
		t.Fatal(err)
	}
	if _, err := e.Withdraw("user1", dec("2")); err != nil {
		t.Fatal(err)
	}
	if _, err := e.Exchange("user1", models.TRY, models.EUR, dec("1"), demoRates()); err != nil {
		t.Fatal(err)
	}

	h, err := e.History("user1", 0)
	if err != nil {
		t.Fatal(err)
	}
	kinds := []models.TransactionKind{h[0].Kind, h[1].Kind, h[2].Kind, h[3].Kind}
	want := []models.TransactionKind{"BUY_EUR", models.KindWithdraw, models.KindDeposit, models.KindDeposit}
	if !reflect.DeepEqual(kinds, want) {
		t.Fatalf("kinds = %v, want %v", kinds, want)
	}
	if h[3].ID != "t1" {
		t.Fatalf("oldest record should be the seed, got %s", h[3].ID)
	}
	if !(h[0].Seq > h[1].Seq && h[1].Seq > h[2].Seq) {
		t.Fatalf("sequence not monotonic: %d %d %d", h[0].Seq, h[1].Seq, h[2].Seq)
	}

	recent, _ := e.History("user1", 2)
	if len(recent) != 2 || recent[0].ID != h[0].ID {
		t.Fatalf("limited history = %+v", recent)
	}
}

func TestResetIsIdempotent(t *testing.T) {
	e := newEngine(t)
	seed := e.Accounts()

	if _, err := e.Transfer("user1", "user2", dec("10")); err != nil {
		t.Fatal(err)
	}
	if _, err := e.Exchange("user2", models.TRY, models.XAU, dec("1"), demoRates()); err != nil {
		t.Fatal(err)
	}

	e.Reset()
	once := e.Accounts()
	e.Reset()
	twice := e.Accounts()

	if !reflect.DeepEqual(seed, once) || !reflect.DeepEqual(once, twice) {
		t.Fatal("reset did not restore the seed state")
	}
}

func TestConcurrentOppositeTransfers(t *testing.T) {
	e := NewEngine(NewDemoStore())
	const n = 200

	var wg sync.WaitGroup
	wg.Add(2 * n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			if _, err := e.Transfer("user1", "user2", dec("1")); err != nil {
				t.Errorf("user1->user2: %v", err)
			}
		}()
		go func() {
			defer wg.Done()
			if _, err := e.Transfer("user2", "user1", dec("1")); err != nil {
				t.Errorf("user2->user1: %v", err)
			}
		}()
	}
	wg.Wait()

	assertHome(t, e, "user1", "5000")
	assertHome(t, e, "user2", "3000")
	h, _ := e.History("user1", 0)
	if len(h) != 2*n+1 {
		t.Fatalf("history len = %d, want %d", len(h), 2*n+1)
	}
}

func TestConcurrentWithdrawalsNeverOverdraw(t *testing.T) {
	store := NewStore([]models.Account{{ID: "a", Name: "A", HomeBalance: dec("100")}})
	e := NewEngine(store)

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < 150; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := e.Withdraw("a", dec("1")); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			} else if !errors.IsInsufficientFunds(err) {
				t.Errorf("unexpected error %v", err)
			}
		}()
	}
	wg.Wait()

	if succeeded != 100 {
		t.Fatalf("succeeded = %d, want 100", succeeded)
	}
	assertNonNegative(t, e)
}

func TestConcurrentResetAndOperations(t *testing.T) {
	e := NewEngine(NewDemoStore())

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = e.Transfer("user1", "user2", dec("1"))
		}()
		go func() {
			defer wg.Done()
			e.Reset()
		}()
	}
	wg.Wait()
	assertNonNegative(t, e)

	total := mustAccount(t, e, "user1").HomeBalance.Add(mustAccount(t, e, "user2").HomeBalance)
	if !total.Equal(dec("8000")) {
		t.Fatalf("total = %s, want 8000", total)
	}
}
