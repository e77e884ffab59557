package lifecycle

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrTerminalState     = errors.New("order is already completed or cancelled")
	ErrPaymentRequired   = errors.New("payment must be confirmed first")
	ErrUnknownStatus     = errors.New("unknown status")
	ErrUnknownTrigger    = errors.New("unknown trigger")
)

type Trigger string

const (
	// TriggerVerifyPayment marks the payment as paid and confirms an order
	// still waiting on payment.
	TriggerVerifyPayment Trigger = "verify_payment"
	// TriggerVerifyAndStart is the staff verify-payment action: paid plus a
	// direct move to preparing in the same write.
	TriggerVerifyAndStart Trigger = "verify_and_start"
	TriggerAdvance        Trigger = "advance"
	TriggerCancel         Trigger = "cancel"
	TriggerSetPayment     Trigger = "set_payment"
)

// State is the slice of an order the machine decides on.
type State struct {
	Status        Status
	PaymentStatus PaymentStatus
	PaymentMethod PaymentMethod
}

type Command struct {
	Trigger Trigger
	Target  Status        // TriggerAdvance
	Payment PaymentStatus // TriggerSetPayment
}

// Effects lists the side effects the caller owes after persisting an Outcome.
type Effects struct {
	DeductIngredients  bool
	RestoreInventory   bool
	SetCompletedTime   bool
	RecordCancellation bool
	RecordPayment      bool
}

type Outcome struct {
	State
	Effects
	StatusChanged  bool
	PaymentChanged bool
}

func (o Outcome) Changed() bool {
	return o.StatusChanged || o.PaymentChanged
}

// InitialStatus picks the creation status. E-wallet orders always wait for a
// receipt check; cash orders only when the counter verifies them at the POS.
func InitialStatus(method PaymentMethod, requirePOSVerification bool) Status {
	if requirePOSVerification || method != MethodCash {
		return StatusPendingVerification
	}
	return StatusPending
}

// Apply computes the next state for cmd. It never mutates cur and performs no I/O.
func Apply(cur State, cmd Command) (Outcome, error) {
	cur = State{
		Status:        NormalizeStatus(string(cur.Status)),
		PaymentStatus: NormalizePaymentStatus(string(cur.PaymentStatus)),
		PaymentMethod: NormalizePaymentMethod(string(cur.PaymentMethod)),
	}

	var (
		out Outcome
		err error
	)
	switch cmd.Trigger {
	case TriggerVerifyPayment:
		out, err = verify(cur, false)
	case TriggerVerifyAndStart:
		out, err = verify(cur, true)
	case TriggerAdvance:
		out, err = advance(cur, NormalizeStatus(string(cmd.Target)))
	case TriggerCancel:
		out, err = cancel(cur)
	case TriggerSetPayment:
		out, err = setPayment(cur, NormalizePaymentStatus(string(cmd.Payment)))
	default:
		return Outcome{State: cur}, fmt.Errorf("%w: %q", ErrUnknownTrigger, cmd.Trigger)
	}
	if err != nil {
		return Outcome{State: cur}, err
	}

	out.StatusChanged = out.Status != cur.Status
	out.PaymentChanged = out.PaymentStatus != cur.PaymentStatus
	return out, nil
}

func verify(cur State, start bool) (Outcome, error) {
	if cur.Status == StatusCancelled {
		return Outcome{}, ErrTerminalState
	}
	next := cur
	next.PaymentStatus = PaymentPaid

	switch {
	case cur.Status.AwaitingPayment() && start:
		next.Status = StatusPreparing
	case cur.Status.AwaitingPayment():
		next.Status = StatusPaymentConfirmed
	case cur.Status == StatusPaymentConfirmed && start:
		next.Status = StatusPreparing
	}
	// preparing, ready and completed keep their status: payment may lag the kitchen for cash.

	return Outcome{
		State:   next,
		Effects: Effects{RecordPayment: cur.PaymentStatus != PaymentPaid},
	}, nil
}

func advance(cur State, target Status) (Outcome, error) {
	if !target.Valid() {
		return Outcome{}, fmt.Errorf("%w: %q", ErrUnknownStatus, target)
	}
	if target == StatusCancelled {
		return cancel(cur)
	}
	if target == cur.Status {
		return Outcome{State: cur}, nil
	}
	if cur.Status.Terminal() {
		return Outcome{}, ErrTerminalState
	}
	if target.Rank() < cur.Status.Rank() {
		return Outcome{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, cur.Status, target)
	}

	paid := cur.PaymentStatus == PaymentPaid
	switch {
	case target == StatusPaymentConfirmed && !paid:
		return Outcome{}, fmt.Errorf("%w: %s -> %s", ErrPaymentRequired, cur.Status, target)
	case target.Rank() >= StatusPreparing.Rank() && target != StatusCompleted && !paid && cur.PaymentMethod != MethodCash:
		return Outcome{}, fmt.Errorf("%w: %s -> %s", ErrPaymentRequired, cur.Status, target)
	}

	next := cur
	next.Status = target
	var eff Effects

	readyRank := StatusReady.Rank()
	if cur.Status.Rank() < readyRank && target.Rank() >= readyRank {
		eff.DeductIngredients = true
	}
	if target == StatusCompleted {
		eff.SetCompletedTime = true
		if !paid {
			// completion settles cash orders
			next.PaymentStatus = PaymentPaid
			eff.RecordPayment = true
		}
	}
	return Outcome{State: next, Effects: eff}, nil
}

func cancel(cur State) (Outcome, error) {
	if cur.Status.Terminal() {
		return Outcome{}, ErrTerminalState
	}
	next := cur
	next.Status = StatusCancelled
	return Outcome{
		State: next,
		Effects: Effects{
			RestoreInventory:   true,
			RecordCancellation: true,
		},
	}, nil
}

func setPayment(cur State, p PaymentStatus) (Outcome, error) {
	if !p.Valid() {
		return Outcome{}, fmt.Errorf("%w: payment status %q", ErrUnknownStatus, p)
	}
	if p == PaymentPaid {
		return verify(cur, false)
	}
	if cur.Status.Terminal() {
		return Outcome{}, ErrTerminalState
	}
	next := cur
	next.PaymentStatus = p
	return Outcome{State: next}, nil
}
