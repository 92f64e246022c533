package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestApplyPaymentTransitionStampsPayTimeOnce(t *testing.T) {
	t0 := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	t1 := t0.Add(time.Hour)

	fact := PaymentFact{RowID: 1, PaidFlag: FlagNone, RegistryFlag: FlagNone}

	fact = ApplyPaymentTransition(fact, FlagYes, "", "ivanov", t0)
	assert.Equal(t, FlagYes, fact.PaidFlag)
	if assert.NotNil(t, fact.PayTime) {
		assert.Equal(t, t0, *fact.PayTime)
	}

	fact = ApplyPaymentTransition(fact, FlagYes, "", "ivanov", t1)
	if assert.NotNil(t, fact.PayTime) {
		assert.Equal(t, t0, *fact.PayTime, "repeated confirmation keeps the original stamp")
	}
}

func TestApplyPaymentTransitionClearsPayTimeOnWithdraw(t *testing.T) {
	t0 := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	fact := PaymentFact{RowID: 1, PaidFlag: FlagNone, RegistryFlag: FlagNone}
	fact = ApplyPaymentTransition(fact, FlagYes, "", "ivanov", t0)
	fact = ApplyPaymentTransition(fact, FlagNo, "", "ivanov", t0.Add(time.Minute))

	assert.Equal(t, FlagNo, fact.PaidFlag)
	assert.Nil(t, fact.PayTime)
}

func TestApplyPaymentTransitionRegistryAgreement(t *testing.T) {
	t0 := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	t1 := t0.Add(time.Hour)

	fact := PaymentFact{RowID: 1, PaidFlag: FlagNone, RegistryFlag: FlagNone}

	fact = ApplyPaymentTransition(fact, "", FlagYes, "petrova", t0)
	assert.Equal(t, FlagYes, fact.RegistryFlag)
	assert.Equal(t, "petrova", fact.AgreedBy)
	if assert.NotNil(t, fact.AgreeTime) {
		assert.Equal(t, t0, *fact.AgreeTime)
	}

	fact = ApplyPaymentTransition(fact, "", FlagReset, "sidorov", t1)
	assert.Equal(t, FlagReset, fact.RegistryFlag)
	assert.Equal(t, "sidorov", fact.AgreedBy)
	if assert.NotNil(t, fact.AgreeTime) {
		assert.Equal(t, t0, *fact.AgreeTime, "reset keeps the first agreement stamp")
	}

	fact = ApplyPaymentTransition(fact, "", FlagNo, "sidorov", t1)
	assert.Equal(t, FlagNo, fact.RegistryFlag)
	assert.Nil(t, fact.AgreeTime)
	assert.Empty(t, fact.AgreedBy)
}

func TestApplyPaymentTransitionEmptyFlagsLeaveFactUntouched(t *testing.T) {
	t0 := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	stamp := t0.Add(-time.Hour)

	fact := PaymentFact{
		RowID:        7,
		PaidFlag:     FlagYes,
		RegistryFlag: FlagYes,
		PayTime:      &stamp,
		AgreeTime:    &stamp,
		AgreedBy:     "petrova",
	}

	next := ApplyPaymentTransition(fact, "", "", "ivanov", t0)
	assert.Equal(t, fact, next)
}

func TestApplyPaymentTransitionPaidAndRegistryTogether(t *testing.T) {
	t0 := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	fact := PaymentFact{RowID: 3, PaidFlag: FlagNone, RegistryFlag: FlagNone}
	fact = ApplyPaymentTransition(fact, FlagYes, FlagYes, "petrova", t0)

	assert.True(t, fact.Paid())
	assert.Equal(t, FlagYes, fact.RegistryFlag)
	assert.NotNil(t, fact.PayTime)
	assert.NotNil(t, fact.AgreeTime)
}
