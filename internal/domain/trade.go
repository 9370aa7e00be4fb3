package domain

import "time"

// Trade records one order's execution in a committed clearing round.
type Trade struct {
	TradeID    string
	OrderID    string
	Side       Side
	Price      int64
	Quantity   int64
	ExecutedAt time.Time
}
