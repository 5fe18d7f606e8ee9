package domain

import "time"

// CollateralAccount holds funds a renter has deposited with the session
// manager as rental collateral. Balance is the total held in custody for the
// account; Locked is the portion escrowed under active rentals. Only
// Balance - Locked may be withdrawn.
type CollateralAccount struct {
	Account   Account   `json:"account"`
	Balance   int64     `json:"balance"`
	Locked    int64     `json:"locked"`
	UpdatedOn time.Time `json:"updated_on"`
}

// Free is the withdrawable portion of the balance.
func (c *CollateralAccount) Free() int64 {
	return c.Balance - c.Locked
}
