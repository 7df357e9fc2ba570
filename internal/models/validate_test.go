package models

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validInput() OrderInput {
	return OrderInput{
		DeliverTo:    "308 Negra Arroyo Lane",
		MobileNumber: "(505) 143-3369",
		Dishes:       json.RawMessage(`[{"id":"d1","name":"Dolcelatte","price":19,"quantity":2}]`),
	}
}

func requireBadRequest(t *testing.T, err error, message string) {
	t.Helper()
	require.Error(t, err)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, message, apiErr.Message)
}

func TestValidateFields_Valid(t *testing.T) {
	dishes, err := validInput().ValidateFields()
	require.NoError(t, err)
	require.Len(t, dishes, 1)
	assert.JSONEq(t, `"d1"`, string(dishes[0]["id"]))
	assert.JSONEq(t, `"Dolcelatte"`, string(dishes[0]["name"]))
	assert.JSONEq(t, `19`, string(dishes[0]["price"]))

	q, ok := dishes[0].Quantity()
	assert.True(t, ok)
	assert.Equal(t, 2, q)
}

func TestValidateFields_KeepsDishVerbatim(t *testing.T) {
	in := validInput()
	in.Dishes = json.RawMessage(`[{"id":7,"name":"Pie","notes":"no nuts","price":"9.99","discount":0,"quantity":1}]`)

	dishes, err := in.ValidateFields()
	require.NoError(t, err)

	out, err := json.Marshal(dishes)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":7,"name":"Pie","notes":"no nuts","price":"9.99","discount":0,"quantity":1}]`, string(out))
}

func TestValidateFields_QuantityRange(t *testing.T) {
	tests := []struct {
		quantity string
		valid    bool
	}{
		{"3000000000", true},
		{"9007199254740991", true},
		{"1e3", true},
		{"9007199254740993", false},
		{"1e20", false},
	}

	for _, tt := range tests {
		t.Run(tt.quantity, func(t *testing.T) {
			in := validInput()
			in.Dishes = json.RawMessage(`[{"quantity":` + tt.quantity + `}]`)

			_, err := in.ValidateFields()
			if tt.valid {
				assert.NoError(t, err)
				return
			}
			requireBadRequest(t, err, "Dish 0 must have a quantity that is an integer greater than 0")
		})
	}
}

func TestValidateFields_Rules(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(in *OrderInput)
		message string
	}{
		{"missing deliverTo", func(in *OrderInput) { in.DeliverTo = "" }, MsgDeliverToRequired},
		{"missing mobileNumber", func(in *OrderInput) { in.MobileNumber = "" }, MsgMobileNumberRequired},
		{"deliverTo checked before mobileNumber", func(in *OrderInput) { in.DeliverTo, in.MobileNumber = "", "" }, MsgDeliverToRequired},
		{"missing dishes", func(in *OrderInput) { in.Dishes = nil }, MsgDishRequired},
		{"null dishes", func(in *OrderInput) { in.Dishes = json.RawMessage(`null`) }, MsgDishRequired},
		{"empty string dishes", func(in *OrderInput) { in.Dishes = json.RawMessage(`""`) }, MsgDishRequired},
		{"empty dishes", func(in *OrderInput) { in.Dishes = json.RawMessage(`[]`) }, MsgDishesEmpty},
		{"dishes not a list", func(in *OrderInput) { in.Dishes = json.RawMessage(`{"quantity":1}`) }, MsgDishesEmpty},
		{"zero quantity", func(in *OrderInput) { in.Dishes = json.RawMessage(`[{"quantity":0}]`) }, "Dish 0 must have a quantity that is an integer greater than 0"},
		{"negative quantity", func(in *OrderInput) { in.Dishes = json.RawMessage(`[{"quantity":-1}]`) }, "Dish 0 must have a quantity that is an integer greater than 0"},
		{"missing quantity", func(in *OrderInput) { in.Dishes = json.RawMessage(`[{"name":"x"}]`) }, "Dish 0 must have a quantity that is an integer greater than 0"},
		{"string quantity", func(in *OrderInput) { in.Dishes = json.RawMessage(`[{"quantity":"2"}]`) }, "Dish 0 must have a quantity that is an integer greater than 0"},
		{"fractional quantity", func(in *OrderInput) { in.Dishes = json.RawMessage(`[{"quantity":1},{"quantity":1.5}]`) }, "Dish 1 must have a quantity that is an integer greater than 0"},
		{"dish not an object", func(in *OrderInput) { in.Dishes = json.RawMessage(`[{"quantity":1},3]`) }, "Dish 1 must have a quantity that is an integer greater than 0"},
		{"first failing dish reported", func(in *OrderInput) { in.Dishes = json.RawMessage(`[{"quantity":1},{"quantity":0},{"quantity":-4}]`) }, "Dish 1 must have a quantity that is an integer greater than 0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validInput()
			tt.mutate(&in)
			_, err := in.ValidateFields()
			requireBadRequest(t, err, tt.message)
		})
	}
}

func TestValidateFields_WholeFloatQuantity(t *testing.T) {
	in := validInput()
	in.Dishes = json.RawMessage(`[{"quantity":3.0}]`)

	dishes, err := in.ValidateFields()
	require.NoError(t, err)
	q, ok := dishes[0].Quantity()
	assert.True(t, ok)
	assert.Equal(t, 3, q)
}

func TestValidateStatusChange(t *testing.T) {
	tests := []struct {
		name    string
		in      OrderInput
		current Status
		message string
	}{
		{"valid without id", OrderInput{Status: StatusPreparing}, StatusPending, ""},
		{"valid with matching id", OrderInput{ID: "abc", Status: StatusOutForDelivery}, StatusPreparing, ""},
		{"id mismatch", OrderInput{ID: "other", Status: StatusPending}, StatusPending, "Order id does not match route id. Order: other, Route: abc"},
		{"missing status", OrderInput{}, StatusPending, MsgStatusInvalid},
		{"unknown status", OrderInput{Status: "cooking"}, StatusPending, MsgStatusInvalid},
		{"delivered is not settable", OrderInput{Status: StatusDelivered}, StatusPending, MsgStatusInvalid},
		{"current delivered", OrderInput{Status: StatusPending}, StatusDelivered, MsgDeliveredImmutable},
		{"id mismatch wins over delivered", OrderInput{ID: "other", Status: StatusPending}, StatusDelivered, "Order id does not match route id. Order: other, Route: abc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.in.ValidateStatusChange("abc", tt.current)
			if tt.message == "" {
				assert.NoError(t, err)
				return
			}
			requireBadRequest(t, err, tt.message)
		})
	}
}

func TestValidateDeletion(t *testing.T) {
	assert.NoError(t, Order{Status: StatusPending}.ValidateDeletion())

	for _, s := range []Status{StatusPreparing, StatusOutForDelivery, StatusDelivered} {
		requireBadRequest(t, Order{Status: s}.ValidateDeletion(), MsgDeleteNotPending)
	}
}

func TestOrderClone(t *testing.T) {
	o := Order{ID: "1", Dishes: []Dish{{"quantity": json.RawMessage(`1`)}}}
	c := o.Clone()
	c.Dishes[0]["quantity"] = json.RawMessage(`9`)
	c.Dishes[0]["name"] = json.RawMessage(`"x"`)

	assert.Equal(t, Order{ID: "1", Dishes: []Dish{{"quantity": json.RawMessage(`1`)}}}, o)
}
