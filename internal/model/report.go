package model

// WalletReport is everything the spreadsheet report needs about one wallet.
type WalletReport struct {
	Wallet     Wallet
	Summary    PortfolioSummary
	Operations []Operation
	Tax        TaxReport
}
