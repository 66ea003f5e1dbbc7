package checkout

import "fmt"

type State int

const (
	Collecting State = iota
	SubmittingOrder
	RequestingIntent
	ConfirmingPayment
	Finalizing
	Completed
)

func (s State) String() string {
	switch s {
	case Collecting:
		return "collecting"
	case SubmittingOrder:
		return "submitting_order"
	case RequestingIntent:
		return "requesting_intent"
	case ConfirmingPayment:
		return "confirming_payment"
	case Finalizing:
		return "finalizing"
	case Completed:
		return "completed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// validTransitions defines the checkout state machine. Every in-flight state
// may abort back to Collecting. Collecting may skip ahead when an earlier
// attempt already created the order or captured the payment.
var validTransitions = map[State][]State{
	Collecting:        {SubmittingOrder, RequestingIntent, Finalizing},
	SubmittingOrder:   {RequestingIntent, Collecting},
	RequestingIntent:  {ConfirmingPayment, Collecting},
	ConfirmingPayment: {Finalizing, Collecting},
	Finalizing:        {Completed, Collecting},
	Completed:         {Collecting},
}

func canTransition(from, to State) bool {
	for _, s := range validTransitions[from] {
		if s == to {
			return true
		}
	}

	return false
}
