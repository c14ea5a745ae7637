package core

const (
	IntentExpense      IntentKind = "expense"
	IntentIncome       IntentKind = "income"
	IntentSetBalance   IntentKind = "set_balance"
	IntentShowBalance  IntentKind = "show_balance"
	IntentResetBalance IntentKind = "reset_balance"
	IntentUnrecognized IntentKind = "unrecognized"
)

type IntentKind string

// Intent is the structured reading of one chat message. Which fields are
// meaningful depends on Kind:
//
//	expense       Amount, Wallet, Category
//	income        Amount, Wallet
//	set_balance   Bank, Cash
//
// A nil amount means the classifier did not supply one. An empty Wallet
// means unset.
type Intent struct {
	Kind     IntentKind
	Amount   *Money
	Wallet   Wallet
	Category string
	Bank     *Money
	Cash     *Money
}

// ParseIntentKind maps a classifier label to a kind; anything unknown is
// IntentUnrecognized.
func ParseIntentKind(s string) IntentKind {
	switch k := IntentKind(s); k {
	case IntentExpense, IntentIncome, IntentSetBalance, IntentShowBalance, IntentResetBalance:
		return k
	default:
		return IntentUnrecognized
	}
}

func (k IntentKind) String() string {
	return string(k)
}
