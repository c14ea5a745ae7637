package core

import "sort"

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name   string
	Amount Money
}

// WalletAmount represents an amount aggregated by wallet.
type WalletAmount struct {
	Wallet Wallet
	Amount Money
}

// SortCategoryAmounts orders by amount descending, then by name.
func SortCategoryAmounts(cs []CategoryAmount) {
	sort.SliceStable(cs, func(i, j int) bool {
		if cs[i].Amount.Cents != cs[j].Amount.Cents {
			return cs[i].Amount.Cents > cs[j].Amount.Cents
		}
		return cs[i].Name < cs[j].Name
	})
}

// SortWalletAmounts orders bank before cash.
func SortWalletAmounts(ws []WalletAmount) {
	sort.SliceStable(ws, func(i, j int) bool {
		return ws[i].Wallet < ws[j].Wallet
	})
}
