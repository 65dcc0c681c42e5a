package domain

import "time"

// TransactionType is the kind of simulated wallet operation.
type TransactionType string

const (
	TxBuy      TransactionType = "Buy"
	TxSell     TransactionType = "Sell"
	TxTransfer TransactionType = "Transfer"
)

// Transaction is one entry in the simulated wallet's history.
type Transaction struct {
	ID      string          `json:"id"`
	Type    TransactionType `json:"type"`
	Token   string          `json:"token"`
	Amount  float64         `json:"amount"`
	Address string          `json:"address,omitempty"`
	Date    time.Time       `json:"date"`
	Status  string          `json:"status"`
}
