package domain

import "fmt"

// Account is an opaque account identifier on the external balance ledger.
type Account string

// SessionManagerAccount is the identity under which the rental session
// manager acts when writing reputation outcomes.
const SessionManagerAccount Account = "svc:session-manager"

func (a Account) IsZero() bool {
	return a == ""
}

// AssetRef identifies a non-fungible asset by collection and item id.
type AssetRef struct {
	Collection string `json:"collection"`
	ItemID     uint64 `json:"item_id"`
}

func (a AssetRef) String() string {
	return fmt.Sprintf("%s/%d", a.Collection, a.ItemID)
}
