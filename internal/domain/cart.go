package domain

import "time"

type Cart struct {
	ID        string     `bson:"_id,omitempty"`
	OwnerID   string     `bson:"owner_id"`
	Lines     []CartLine `bson:"lines"`
	CreatedAt time.Time  `bson:"created_at"`
	UpdatedAt time.Time  `bson:"updated_at"`
}

// CartLine is one product entry in a cart. UnitPrice is snapshotted at
// add-time so the summary stays stable while the customer shops.
type CartLine struct {
	ProductID int64     `bson:"product_id" json:"product_id"`
	Quantity  int32     `bson:"quantity" json:"quantity"`
	UnitPrice int64     `bson:"unit_price" json:"unit_price"`
	AddedAt   time.Time `bson:"added_at" json:"added_at"`
}

// Line returns the cart line for the given product, or nil.
func (c *Cart) Line(productID int64) *CartLine {
	for i := range c.Lines {
		if c.Lines[i].ProductID == productID {
			return &c.Lines[i]
		}
	}
	return nil
}

// RemoveLine drops the line for the given product if present.
func (c *Cart) RemoveLine(productID int64) {
	for i := range c.Lines {
		if c.Lines[i].ProductID == productID {
			c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
			return
		}
	}
}
