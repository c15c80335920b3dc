package bond_test

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/bond-engine/bond"
	"github.com/warp/bond-engine/generic"
	"github.com/warp/bond-engine/rates"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func date(y int, m time.Month, d int) generic.Date { return generic.NewDate(y, m, d) }

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func years(n int) generic.Offset  { return generic.MustOffset(generic.Years(n)) }
func months(n int) generic.Offset { return generic.MustOffset(generic.Months(n)) }

func publishedRates(t *testing.T) *rates.Store {
	t.Helper()
	s := rates.NewStore()
	require.NoError(t, rates.LoadPublished(s))
	return s
}

// baseTerms mirrors a 1-year yearly CPI bond bought on 2025-01-01.
func baseTerms() bond.Terms {
	terms := bond.DefaultTerms()
	terms.Maturity = years(1)
	terms.InitialRate = dec("5.0")
	terms.Source = rates.GUSCPI
	terms.Premium = dec("1.0")
	terms.BuyDate = date(2025, time.January, 1)
	return terms
}

func build(t *testing.T, store bond.RateSource, terms bond.Terms, till generic.Date) *bond.Ledger {
	t.Helper()
	b, err := bond.New(terms, store)
	require.NoError(t, err)
	l, err := b.BuildUntil(till)
	require.NoError(t, err)
	return l
}

func row(t *testing.T, l *bond.Ledger, instance, period int, d generic.Date) bond.Row {
	t.Helper()
	r, ok := l.At(instance, period, d)
	require.True(t, ok, "no row (%d, %d, %s)", instance, period, d)
	return r
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, got.Equal(dec(want)), "want %s, got %s", want, got)
}

// assertRounded compares at 2 places, the precision bond tables are published in.
func assertRounded(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, generic.RoundCapital(got).Equal(dec(want)), "want %s, got %s (%s)", want, generic.RoundCapital(got), got)
}

func sumInterest(rows []bond.Row) decimal.Decimal {
	sum := decimal.Zero
	for _, r := range rows {
		sum = sum.Add(r.Interest)
	}
	return sum
}

// =============================================================================
// CONSTRUCTION
// =============================================================================

func TestNew_Validation(t *testing.T) {
	store := rates.NewStore()

	tests := []struct {
		name   string
		modify func(*bond.Terms)
		target error
	}{
		{"missing maturity", func(tm *bond.Terms) { tm.Maturity = generic.Offset{} }, generic.ErrConstruction},
		{"maturity with days", func(tm *bond.Terms) { tm.Maturity = generic.Offset{Days: 10} }, generic.ErrConstruction},
		{"daily resets", func(tm *bond.Terms) { tm.Period = generic.PeriodDaily }, generic.ErrUnsupportedPeriod},
		{"missing source", func(tm *bond.Terms) { tm.Source = "" }, generic.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			terms := baseTerms()
			tt.modify(&terms)
			_, err := bond.New(terms, store)
			assert.ErrorIs(t, err, tt.target)
			assert.True(t, generic.IsClientError(err))
		})
	}

	_, err := bond.New(baseTerms(), nil)
	assert.ErrorIs(t, err, generic.ErrValidation, "rate source is required")
}

func TestNew_Defaults(t *testing.T) {
	terms := bond.Terms{Maturity: years(1), Source: rates.NBPREF}

	b, err := bond.New(terms, rates.NewStore())
	require.NoError(t, err)

	assert.Equal(t, generic.PeriodYearly, b.Terms().Period)
	assert.Equal(t, generic.Today(), b.Terms().BuyDate)
	assertDecimal(t, "100", b.Terms().InitialCapital)

	defaults := bond.DefaultTerms()
	assertDecimal(t, "0.1", defaults.ContinuationPremium)
	assertDecimal(t, "100", defaults.InitialCapital)
	assert.Equal(t, generic.PeriodYearly, defaults.Period)
}

func TestBond_MaturityDate(t *testing.T) {
	store := rates.NewStore()
	for _, tt := range []struct {
		maturity generic.Offset
		want     generic.Date
	}{
		{months(3), date(2025, time.April, 1)},
		{years(1), date(2026, time.January, 1)},
		{generic.MustOffset(generic.Years(1), generic.Months(3)), date(2026, time.April, 1)},
	} {
		terms := baseTerms()
		terms.Maturity = tt.maturity
		b, err := bond.New(terms, store)
		require.NoError(t, err)
		assert.Equal(t, tt.want, b.MaturityDate(), tt.maturity.String())
	}
}

func TestBuild_HorizonBeforeBuyDateRejected(t *testing.T) {
	b, err := bond.New(baseTerms(), publishedRates(t))
	require.NoError(t, err)

	_, err = b.BuildUntil(date(2024, time.May, 24))
	assert.ErrorIs(t, err, generic.ErrValidation)
	assert.Contains(t, err.Error(), "later than buy date")

	// A negative offset lands before the buy date too
	_, err = b.BuildFor(years(-1))
	assert.ErrorIs(t, err, generic.ErrValidation)
	assert.Contains(t, err.Error(), "later than buy date")

	_, err = b.Build(bond.Horizon{})
	assert.ErrorIs(t, err, generic.ErrValidation)
	assert.Nil(t, b.Ledger())
}

func TestBuild_DistantHorizonRejected(t *testing.T) {
	b, err := bond.New(baseTerms(), publishedRates(t))
	require.NoError(t, err)

	// Rejected before any row is allocated
	_, err = b.BuildUntil(date(9999, time.December, 31))
	assert.ErrorIs(t, err, generic.ErrValidation)
	assert.Contains(t, err.Error(), "100y")

	_, err = b.BuildFor(years(101))
	assert.ErrorIs(t, err, generic.ErrValidation)
	assert.Nil(t, b.Ledger())

	// The limit itself is accepted; it fails later on missing rates
	_, err = b.BuildFor(bond.MaxHorizon)
	assert.ErrorIs(t, err, generic.ErrRateNotAvailable)
}

// =============================================================================
// INDEX
// =============================================================================

func TestBuild_IndexHasOverlappingPeriods(t *testing.T) {
	// GIVEN: A 1-year yearly bond bought 2023-01-01
	// WHEN: Building until 2025-01-01
	// THEN: Two instances, each period's last day repeats as the next first day

	terms := baseTerms()
	terms.BuyDate = date(2023, time.January, 1)
	l := build(t, publishedRates(t), terms, date(2025, time.January, 1))

	assert.Equal(t, []int{1, 2}, l.Instances())
	assert.Len(t, l.Group(1, 1), 366)
	assert.Len(t, l.Group(2, 1), 367, "2024 is a leap year")
	assert.Equal(t, date(2025, time.January, 1), l.LastDate())

	_, ok := l.At(1, 1, date(2024, time.January, 1))
	assert.True(t, ok)
	_, ok = l.At(2, 1, date(2024, time.January, 1))
	assert.True(t, ok)
	_, ok = l.At(2, 1, date(2024, time.February, 29))
	assert.True(t, ok)

	groups := l.Groups()
	require.Len(t, groups, 2)
	assert.Equal(t, generic.Period{Start: date(2024, time.January, 1), End: date(2025, time.January, 1)}, groups[1].Span)
}

func TestBuild_MonthEndBuyDate(t *testing.T) {
	// GIVEN: A 1-year monthly bond bought on the 31st
	// WHEN: Building one instance
	// THEN: Period starts clamp from the buy date and ends clamp from the
	// period start, so short months leave gaps and a one-day last period

	terms := baseTerms()
	terms.BuyDate = date(2023, time.January, 31)
	terms.Source = rates.NBPREF
	terms.Period = generic.PeriodMonthly
	l := build(t, publishedRates(t), terms, date(2024, time.January, 31))

	groups := l.Groups()
	require.Len(t, groups, 13)
	span := func(y1 int, m1 time.Month, d1, y2 int, m2 time.Month, d2 int) generic.Period {
		return generic.Period{Start: date(y1, m1, d1), End: date(y2, m2, d2)}
	}
	assert.Equal(t, span(2023, time.January, 31, 2023, time.February, 28), groups[0].Span)
	assert.Equal(t, span(2023, time.February, 28, 2023, time.March, 28), groups[1].Span)
	assert.Equal(t, span(2023, time.March, 31, 2023, time.April, 30), groups[2].Span)
	assert.Equal(t, span(2023, time.November, 30, 2023, time.December, 30), groups[10].Span)
	assert.Equal(t, span(2023, time.December, 31, 2024, time.January, 31), groups[11].Span)
	assert.Equal(t, span(2024, time.January, 31, 2024, time.January, 31), groups[12].Span)

	// Days between a clamped end and the next start belong to no period
	for _, g := range groups {
		assert.False(t, g.Span.Contains(date(2023, time.March, 29)), "period %d", g.Period)
	}
	assert.Len(t, l.Group(1, 13), 1)
	assert.Equal(t, []int{1}, l.Instances())
}

func TestBuild_ExtendsExistingLedger(t *testing.T) {
	terms := baseTerms()
	terms.BuyDate = date(2020, time.January, 1)
	terms.InitialRate = dec("6.0")
	terms.Premium = dec("0.5")
	terms.Capitalization = true
	terms.EarlyBuyoutCost = dec("2.0")

	b, err := bond.New(terms, publishedRates(t))
	require.NoError(t, err)

	first, err := b.BuildFor(years(2))
	require.NoError(t, err)
	assert.Equal(t, date(2022, time.January, 1), first.LastDate())

	second, err := b.BuildFor(years(4))
	require.NoError(t, err)
	assert.Equal(t, date(2024, time.January, 1), second.LastDate())
	assert.Equal(t, []int{1, 2, 3, 4}, second.Instances())
	extended := second.Rows()
	for i, old := range first.Rows() {
		now := extended[i]
		require.Equal(t, old.Key, now.Key)
		require.True(t, old.SumInterest.Equal(now.SumInterest), "sum_interest changed on %v", old.Key)
	}
	assert.Equal(t, date(2022, time.January, 1), first.LastDate(), "first ledger is not mutated")

	// A covered horizon keeps the index.
	third, err := b.BuildUntil(date(2021, time.June, 1))
	require.NoError(t, err)
	assert.Equal(t, second.Len(), third.Len())
}

func TestBuild_FailedBuildKeepsPreviousLedger(t *testing.T) {
	// GIVEN: A variable bond with rates published until early 2026
	// WHEN: Building past the end of the CPI data
	// THEN: The build fails with a lookup error and the last ledger survives

	terms := baseTerms()
	terms.BuyDate = date(2024, time.January, 1)
	b, err := bond.New(terms, publishedRates(t))
	require.NoError(t, err)

	ok, err := b.BuildUntil(date(2025, time.June, 1))
	require.NoError(t, err)

	_, err = b.BuildUntil(date(2030, time.January, 1))
	require.ErrorIs(t, err, generic.ErrRateNotAvailable)
	var lookupErr *rates.LookupError
	assert.True(t, errors.As(err, &lookupErr))
	assert.Same(t, ok, b.Ledger())
}

// =============================================================================
// RATES
// =============================================================================

func TestRates_InitialRateOnlyForFirstPeriod(t *testing.T) {
	terms := baseTerms()
	terms.Maturity = years(2)
	terms.BuyDate = date(2023, time.January, 1)

	l := build(t, publishedRates(t), terms, terms.MaturityDate())

	assertDecimal(t, "5", row(t, l, 1, 1, date(2023, time.January, 1)).Rate)
	assertDecimal(t, "5", row(t, l, 1, 1, date(2023, time.December, 31)).Rate)
	// CPI for 2023-11 (6.6) read two months before 2024-01-01, plus premium.
	assertDecimal(t, "7.6", row(t, l, 1, 2, date(2024, time.January, 1)).Rate)
	assertDecimal(t, "7.6", row(t, l, 1, 2, date(2025, time.January, 1)).Rate)
}

func TestRates_ConstantRatePerInstance(t *testing.T) {
	store := publishedRates(t)
	terms := baseTerms()
	terms.BuyDate = date(2022, time.January, 1)
	terms.Premium = decimal.Zero
	terms.ConstantRate = true
	terms.Source = rates.NBPREF

	l := build(t, store, terms, date(2025, time.January, 1))

	for _, r := range l.Instance(1) {
		assertDecimal(t, "5", r.Rate)
	}
	second, err := store.Rate(rates.NBPREF, date(2023, time.January, 1))
	require.NoError(t, err)
	for _, r := range l.Instance(2) {
		require.True(t, r.Rate.Equal(second))
	}
	for _, r := range l.Instance(3) {
		assertDecimal(t, "5.75", r.Rate)
	}
}

// =============================================================================
// CAPITAL AND INTEREST
// =============================================================================

func TestInterest_FirstDayOfPeriodIsZero(t *testing.T) {
	terms := baseTerms()
	terms.BuyDate = date(2023, time.January, 1)
	terms.Source = rates.NBPREF
	terms.Capitalization = true

	l := build(t, publishedRates(t), terms, date(2025, time.February, 1))

	daily := generic.RoundInterest(dec("5").Div(dec("365")))
	assertDecimal(t, "0", row(t, l, 1, 1, date(2023, time.January, 1)).Interest)
	assertDecimal(t, daily.String(), row(t, l, 1, 1, date(2023, time.June, 6)).Interest)
	assertDecimal(t, "0.01369863", row(t, l, 1, 1, date(2023, time.December, 31)).Interest)
	assertDecimal(t, "0", row(t, l, 2, 1, date(2024, time.January, 1)).Interest)
}

func TestCapital_CapitalizedIntoNextPeriod(t *testing.T) {
	terms := baseTerms()
	terms.Maturity = years(2)
	terms.BuyDate = date(2022, time.January, 1)
	terms.Source = rates.NBPREF
	terms.Capitalization = true

	l := build(t, publishedRates(t), terms, date(2024, time.February, 1))

	assertDecimal(t, "100", row(t, l, 1, 1, date(2023, time.January, 1)).Capital)
	assertDecimal(t, "105", row(t, l, 1, 2, date(2023, time.January, 1)).Capital)
	assertDecimal(t, "105", row(t, l, 1, 2, date(2023, time.December, 31)).Capital)
}

func TestCapital_WithoutCapitalizationStaysFlat(t *testing.T) {
	terms := baseTerms()
	terms.BuyDate = date(2022, time.January, 1)
	terms.Source = rates.NBPREF

	l := build(t, publishedRates(t), terms, date(2024, time.February, 1))

	for _, r := range l.Rows() {
		require.True(t, r.Capital.Equal(dec("100")), "capital on %s", r.Date)
	}
	assertDecimal(t, "5", l.SumInterest(1, 1).Round(6))
	assertDecimal(t, "5", row(t, l, 1, 1, date(2023, time.January, 1)).SumInterest.Round(6))
}

func TestCapitalAndInterest_MonthlyAcrossInstances(t *testing.T) {
	terms := baseTerms()
	terms.BuyDate = date(2022, time.January, 1)
	terms.Source = rates.NBPREF
	terms.Period = generic.PeriodMonthly
	terms.Capitalization = true
	terms.InitialRate = dec("6.0")
	terms.Premium = dec("0.5")

	l := build(t, publishedRates(t), terms, date(2024, time.December, 31))

	first := row(t, l, 1, 1, date(2022, time.January, 3))
	assertDecimal(t, "6", first.Rate)
	assertDecimal(t, "100", first.Capital)
	assertDecimal(t, "0.01612903", first.Interest)

	second := row(t, l, 2, 1, date(2023, time.January, 3))
	assertDecimal(t, "7.25", second.Rate)
	// Capital resets every instance.
	assertDecimal(t, "100", second.Capital)
	assertDecimal(t, "0.01948925", second.Interest)

	// Period 12 capital is period 11 capital plus its rounded interest.
	december := row(t, l, 1, 12, date(2022, time.December, 3))
	prev := row(t, l, 1, 11, date(2022, time.November, 30)).Capital
	assertDecimal(t, "7.25", december.Rate)
	assertDecimal(t, generic.RoundCapital(prev.Add(l.SumInterest(1, 11))).String(), december.Capital)
	assertDecimal(t, "105.26", december.Capital)
	assertDecimal(t, "0.02051438", december.Interest)

	late := row(t, l, 2, 12, date(2023, time.December, 15))
	assertDecimal(t, "6.25", late.Rate)
	assertDecimal(t, "106.69", late.Capital)
	assertDecimal(t, "0.01792507", late.Interest)
}

// =============================================================================
// EARLY BUYOUT AND CONTINUATION
// =============================================================================

func TestEarlyBuyoutCost_CappedBySumInterest(t *testing.T) {
	terms := baseTerms()
	terms.BuyDate = date(2022, time.January, 1)
	terms.EarlyBuyoutCost = dec("2.0")

	l := build(t, publishedRates(t), terms, date(2024, time.December, 31))

	for _, k := range []bond.Key{
		{Instance: 1, Period: 1, Date: date(2022, time.December, 2)},
		{Instance: 2, Period: 1, Date: date(2023, time.December, 2)},
		{Instance: 3, Period: 1, Date: date(2024, time.December, 2)},
	} {
		r, ok := l.Get(k)
		require.True(t, ok)
		require.True(t, r.EarlyBuyoutCost.Valid)
		assertDecimal(t, "2", r.EarlyBuyoutCost.Decimal)
	}
	for _, d := range []generic.Date{date(2022, 1, 3), date(2023, 1, 3), date(2024, 1, 3)} {
		r := row(t, l, d.Year()-2021, 1, d)
		require.True(t, r.EarlyBuyoutCost.Valid)
		assertDecimal(t, r.SumInterest.String(), r.EarlyBuyoutCost.Decimal)
	}
}

func TestEarlyBuyoutCost_NotApplicableWindows(t *testing.T) {
	// GIVEN: Early buyout blocked in the first 7 and last 20 days
	// WHEN: Building three yearly instances
	// THEN: Those days are null in every instance, the rest is capped

	terms := baseTerms()
	terms.BuyDate = date(2022, time.January, 1)
	terms.EarlyBuyoutCost = dec("2.0")
	terms.MarkEarlyBuyoutNotApplicable = true

	l := build(t, publishedRates(t), terms, date(2024, time.December, 31))

	for instance, end := range map[int]generic.Date{
		1: date(2023, time.January, 1),
		2: date(2024, time.January, 1),
		3: date(2025, time.January, 1),
	} {
		start := end.Sub(years(1))

		assert.False(t, row(t, l, instance, 1, start).EarlyBuyoutCost.Valid, "too early on %s", start)
		assert.False(t, row(t, l, instance, 1, start.AddDays(6)).EarlyBuyoutCost.Valid)
		firstOpen := row(t, l, instance, 1, start.AddDays(7))
		require.True(t, firstOpen.EarlyBuyoutCost.Valid, "open on %s", start.AddDays(7))
		assertDecimal(t, firstOpen.SumInterest.String(), firstOpen.EarlyBuyoutCost.Decimal)

		lastOpen := row(t, l, instance, 1, end.AddDays(-20))
		require.True(t, lastOpen.EarlyBuyoutCost.Valid, "open on %s", end.AddDays(-20))
		assertDecimal(t, "2", lastOpen.EarlyBuyoutCost.Decimal)
		assert.False(t, row(t, l, instance, 1, end.AddDays(-19)).EarlyBuyoutCost.Valid, "too late on %s", end.AddDays(-19))
		assert.False(t, row(t, l, instance, 1, end).EarlyBuyoutCost.Valid)
	}
}

func TestContinuationPremium_FirstDayOfRollover(t *testing.T) {
	terms := baseTerms()
	terms.BuyDate = date(2023, time.January, 1)
	terms.Source = rates.NBPREF

	l := build(t, publishedRates(t), terms, date(2025, time.February, 1))

	assertDecimal(t, "0", row(t, l, 1, 1, date(2024, time.January, 1)).ContinuationPremium)
	assertDecimal(t, "0.1", row(t, l, 2, 1, date(2024, time.January, 1)).ContinuationPremium)
	assertDecimal(t, "0.1", row(t, l, 3, 1, date(2025, time.January, 1)).ContinuationPremium)
	assertDecimal(t, "0", row(t, l, 1, 1, date(2023, time.December, 31)).ContinuationPremium)

	total := decimal.Zero
	for _, r := range l.Rows() {
		total = total.Add(r.ContinuationPremium)
	}
	assertDecimal(t, "0.2", total)
}

func TestBuild_FullLedgerFirstPeriods(t *testing.T) {
	terms := baseTerms()
	terms.Maturity = years(2)
	terms.BuyDate = date(2020, time.January, 1)
	terms.Capitalization = true
	terms.InitialRate = dec("6.0")
	terms.Premium = dec("0.5")
	terms.EarlyBuyoutCost = dec("2.0")

	b, err := bond.New(terms, publishedRates(t))
	require.NoError(t, err)
	l, err := b.BuildFor(years(4))
	require.NoError(t, err)

	assert.Equal(t, []int{1, 2}, l.Instances())
	assert.Equal(t, date(2024, time.January, 1), l.LastDate())

	first := row(t, l, 1, 1, date(2020, time.January, 1))
	assertDecimal(t, "6", first.Rate)
	assertDecimal(t, "100", first.Capital)
	assertDecimal(t, "0", first.Interest)
	assertDecimal(t, "0", first.SumInterest)
	assertDecimal(t, "0", first.EarlyBuyoutCost.Decimal)

	second := row(t, l, 1, 1, date(2020, time.January, 2))
	// 6% of 100 over 366 days.
	assertDecimal(t, "0.01639344", second.Interest)
	assertDecimal(t, "0.01639344", second.SumInterest)
	assertDecimal(t, "0.01639344", second.EarlyBuyoutCost.Decimal)

	boundary := row(t, l, 1, 1, date(2021, time.January, 1))
	assertRounded(t, "6.00", boundary.SumInterest)
	assertRounded(t, "2.00", boundary.EarlyBuyoutCost.Decimal)

	next := row(t, l, 1, 2, date(2021, time.January, 1))
	// CPI for 2020-11 (3.0) plus premium.
	assertDecimal(t, "3.5", next.Rate)
	assertDecimal(t, "106", next.Capital)
	assertDecimal(t, "0", next.Interest)
	assertRounded(t, "6.00", next.SumInterest)

	day2 := row(t, l, 1, 2, date(2021, time.January, 2))
	assertDecimal(t, "0.01016438", day2.Interest)
	assertRounded(t, "6.01", day2.SumInterest)
	assertDecimal(t, "2", day2.EarlyBuyoutCost.Decimal)
}
