package models

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
)

type Status string

const (
	StatusPending        Status = "pending"
	StatusPreparing      Status = "preparing"
	StatusOutForDelivery Status = "out-for-delivery"
	StatusDelivered      Status = "delivered"
)

// Settable reports whether an update may move an order into s.
// Delivered is terminal and can't be set through the API.
func (s Status) Settable() bool {
	switch s {
	case StatusPending, StatusPreparing, StatusOutForDelivery:
		return true
	}
	return false
}

type Order struct {
	ID           string `json:"id"`
	DeliverTo    string `json:"deliverTo"`
	MobileNumber string `json:"mobileNumber"`
	Status       Status `json:"status"`
	Dishes       []Dish `json:"dishes" swaggertype:"array,object"`
}

// Clone returns a copy that shares no dish storage with o.
func (o Order) Clone() Order {
	if o.Dishes != nil {
		dishes := make([]Dish, len(o.Dishes))
		for i, d := range o.Dishes {
			dishes[i] = d.Clone()
		}
		o.Dishes = dishes
	}
	return o
}

// Dish is kept exactly as the client sent it. Only quantity is interpreted;
// every other member is stored and returned untouched.
type Dish map[string]json.RawMessage

// maxSafeInteger is the largest integer a JSON number carries exactly.
const maxSafeInteger = 1<<53 - 1

func (d Dish) Clone() Dish {
	if d == nil {
		return nil
	}
	c := make(Dish, len(d))
	for k, v := range d {
		c[k] = append(json.RawMessage(nil), v...)
	}
	return c
}

// Quantity accepts JSON number literals with no fractional part, so 2 and 2.0
// are both 2. Strings, null, fractions and values beyond the safe integer
// range are rejected.
func (d Dish) Quantity() (int, bool) {
	raw := bytes.TrimSpace(d["quantity"])
	if len(raw) == 0 || raw[0] == '"' {
		return 0, false
	}
	f, err := strconv.ParseFloat(string(raw), 64)
	if err != nil || f != math.Trunc(f) || math.Abs(f) > maxSafeInteger {
		return 0, false
	}
	return int(f), true
}

// OrderInput is the "data" member of a create or update request. Dishes stay
// raw until validation so that "missing", "not a list" and "empty" can be
// told apart.
type OrderInput struct {
	ID           string          `json:"id,omitempty"`
	DeliverTo    string          `json:"deliverTo"`
	MobileNumber string          `json:"mobileNumber"`
	Status       Status          `json:"status,omitempty"`
	Dishes       json.RawMessage `json:"dishes,omitempty" swaggertype:"array,object"`
}

type OrderRequest struct {
	Data OrderInput `json:"data"`
}

type DataResponse struct {
	Data any `json:"data"`
}
