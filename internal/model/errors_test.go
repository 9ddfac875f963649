package model

import (
	"errors"
	"fmt"
	"testing"
)

func TestNewAPIError_FallbackMessage(t *testing.T) {
	err := NewAPIError(500, "")
	if err.Message != DefaultErrorMessage {
		t.Errorf("Message = %q, want %q", err.Message, DefaultErrorMessage)
	}
	if err.Error() != "[500] server error" {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestIsUnauthorized(t *testing.T) {
	wrapped := fmt.Errorf("me: %w", NewAPIError(401, "invalid token"))
	if !IsUnauthorized(wrapped) {
		t.Error("ラップされた401は IsUnauthorized = true であるべき")
	}
	if IsUnauthorized(NewAPIError(500, "boom")) {
		t.Error("500は IsUnauthorized = false であるべき")
	}
	if IsUnauthorized(errors.New("dial tcp: refused")) {
		t.Error("通信エラーは IsUnauthorized = false であるべき")
	}
}

func TestIsNotFound(t *testing.T) {
	if !IsNotFound(fmt.Errorf("toggle: %w", ErrTodoNotFound)) {
		t.Error("ErrTodoNotFound は IsNotFound = true であるべき")
	}
	if !IsNotFound(NewAPIError(404, "")) {
		t.Error("404 は IsNotFound = true であるべき")
	}
	if IsNotFound(NewAPIError(400, "")) {
		t.Error("400 は IsNotFound = false であるべき")
	}
}
