package product

import (
	"bytes"
	"encoding/json"
	"errors"
)

var ErrProductNotFound = errors.New("product not found")

// Product is the catalog entry as served by the storefront API.
type Product struct {
	ID          string  `json:"_id"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Price       float64 `json:"price"`
	Image       string  `json:"image,omitempty"`
	Stock       int     `json:"stock,omitempty"`
}

// Ref is a tagged product reference. The API returns either a populated
// product object or a bare ID string in the same field, depending on
// whether the server populated the relation. Both forms decode into Ref;
// ID is always set, Product only for the populated form.
type Ref struct {
	ID      string
	Product *Product
}

// NewRef builds a reference-only Ref.
func NewRef(id string) Ref {
	return Ref{ID: id}
}

// FullRef builds a populated Ref.
func FullRef(p Product) Ref {
	return Ref{ID: p.ID, Product: &p}
}

// Matches reports whether the reference points at productID. This is the
// single resolution point for object-or-ID matching; callers must not
// inspect the wire form themselves.
func (r Ref) Matches(productID string) bool {
	return r.ID == productID
}

// IsFull reports whether the referenced product is populated.
func (r Ref) IsFull() bool {
	return r.Product != nil
}

func (r Ref) MarshalJSON() ([]byte, error) {
	if r.Product != nil {
		return json.Marshal(r.Product)
	}
	return json.Marshal(r.ID)
}

func (r *Ref) UnmarshalJSON(data []byte) error {
	// Object form first, then bare ID, mirroring the server's two shapes.
	if bytes.HasPrefix(bytes.TrimSpace(data), []byte("{")) {
		var p Product
		if err := json.Unmarshal(data, &p); err != nil {
			return err
		}
		r.ID = p.ID
		r.Product = &p
		return nil
	}
	var id string
	if err := json.Unmarshal(data, &id); err != nil {
		return err
	}
	r.ID = id
	r.Product = nil
	return nil
}
