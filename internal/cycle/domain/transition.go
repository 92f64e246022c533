package domain

import "time"

// ApplyPaymentTransition folds a paid/registry update into an existing
// payment fact and returns the resulting fact.
//
// The paid timestamp is idempotent: the first transition to paid stamps
// PayTime and repeated confirmations keep the original stamp, while any
// non-paid value clears it. The registry agreement keeps its first
// timestamp across yes and reset, and a registry "no" withdraws it.
func ApplyPaymentTransition(fact PaymentFact, paidFlag, registryFlag, actor string, now time.Time) PaymentFact {
	if paidFlag != "" {
		switch paidFlag {
		case FlagYes:
			if fact.PayTime == nil {
				stamp := now
				fact.PayTime = &stamp
			}
		default:
			fact.PayTime = nil
		}
		fact.PaidFlag = paidFlag
	}

	if registryFlag != "" {
		switch registryFlag {
		case FlagYes, FlagReset:
			if fact.AgreeTime == nil {
				stamp := now
				fact.AgreeTime = &stamp
			}
			fact.AgreedBy = actor
		case FlagNo:
			fact.AgreeTime = nil
			fact.AgreedBy = ""
		}
		fact.RegistryFlag = registryFlag
	}

	return fact
}
