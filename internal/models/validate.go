package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

const (
	MsgDeliverToRequired    = "Order must include a deliverTo"
	MsgMobileNumberRequired = "Order must include a mobileNumber"
	MsgDishRequired         = "Order must include a dish"
	MsgDishesEmpty          = "Order must include at least one dish"
	MsgStatusInvalid        = "Order must have a status of pending, preparing, out-for-delivery, delivered"
	MsgDeliveredImmutable   = "A delivered order cannot be changed"
	MsgDeleteNotPending     = "An order cannot be deleted unless it is pending"
)

// ValidateFields checks the fields shared by create and update and returns the
// decoded dishes. It stops at the first failing rule; for dishes that is the
// lowest failing index.
func (in OrderInput) ValidateFields() ([]Dish, error) {
	if in.DeliverTo == "" {
		return nil, NewBadRequest(MsgDeliverToRequired)
	}
	if in.MobileNumber == "" {
		return nil, NewBadRequest(MsgMobileNumberRequired)
	}
	if falsy(in.Dishes) {
		return nil, NewBadRequest(MsgDishRequired)
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(in.Dishes, &raw); err != nil || len(raw) == 0 {
		return nil, NewBadRequest(MsgDishesEmpty)
	}

	dishes := make([]Dish, len(raw))
	for i, r := range raw {
		err := json.Unmarshal(r, &dishes[i])
		if q, ok := dishes[i].Quantity(); err != nil || !ok || q <= 0 {
			return nil, NewBadRequest(fmt.Sprintf("Dish %d must have a quantity that is an integer greater than 0", i))
		}
	}
	return dishes, nil
}

// ValidateStatusChange checks an update against the route it was sent to and
// the order's current status.
func (in OrderInput) ValidateStatusChange(routeID string, current Status) error {
	if in.ID != "" && in.ID != routeID {
		return NewBadRequest(fmt.Sprintf("Order id does not match route id. Order: %s, Route: %s", in.ID, routeID))
	}
	if !in.Status.Settable() {
		return NewBadRequest(MsgStatusInvalid)
	}
	if current == StatusDelivered {
		return NewBadRequest(MsgDeliveredImmutable)
	}
	return nil
}

func (o Order) ValidateDeletion() error {
	if o.Status != StatusPending {
		return NewBadRequest(MsgDeleteNotPending)
	}
	return nil
}

// falsy mirrors how the public API has always treated an absent dishes value:
// missing, null, false, 0 and "" all count as not supplied.
func falsy(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return true
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return true
	}
	switch t := v.(type) {
	case nil:
		return true
	case bool:
		return !t
	case float64:
		return t == 0
	case string:
		return t == ""
	}
	return false
}
