package models

import (
	"fmt"
	"net/http"
)

// APIError is the body of every failed response and the value guards return
// to stop a request pipeline.
type APIError struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return e.Message
}

func NewBadRequest(message string) *APIError {
	return &APIError{Status: http.StatusBadRequest, Message: message}
}

func NewNotFound(message string) *APIError {
	return &APIError{Status: http.StatusNotFound, Message: message}
}

func NewMethodNotAllowed(method, path string) *APIError {
	return &APIError{
		Status:  http.StatusMethodNotAllowed,
		Message: fmt.Sprintf("%s not allowed for %s", method, path),
	}
}

func NewInternal() *APIError {
	return &APIError{
		Status:  http.StatusInternalServerError,
		Message: http.StatusText(http.StatusInternalServerError),
	}
}

type OrderNotFoundError struct {
	OrderID string
}

func (e OrderNotFoundError) Error() string {
	return "Order id does not exist: " + e.OrderID
}

type DatabaseError struct {
	Operation string
	Err       error
}

func (e DatabaseError) Error() string {
	return "database error during " + e.Operation + ": " + e.Err.Error()
}

func (e DatabaseError) Unwrap() error {
	return e.Err
}

type KafkaError struct {
	Operation string
	Err       error
}

func (e KafkaError) Error() string {
	return "kafka error during " + e.Operation + ": " + e.Err.Error()
}

func (e KafkaError) Unwrap() error {
	return e.Err
}
