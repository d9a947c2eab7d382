package transport

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

const (
	msgBadRequest     = "Invalid request parameters"
	msgLoginFailed    = "Login failed, please check your email and password"
	msgRegisterFailed = "Registration failed, please check your input"
	msgUnauthorized   = "Authentication failed"
	msgForbidden      = "You do not have permission to access this resource"
	msgNotFound       = "The requested resource does not exist"
	msgServerError    = "Internal server error"
	msgNetwork        = "Network connection failed"
	msgNetworkNotice  = "Network connection failed, please check your network"
	msgSessionExpired = "Session expired, please sign in again"
	msgSignInFirst    = "Please sign in first"
)

const (
	loginPath    = "/auth/login/"
	registerPath = "/auth/register/"
)

var loginPhrases = map[string]string{
	"Invalid credentials":       "Incorrect email or password, please try again",
	"Invalid email or password": "Incorrect email or password, please try again",
	"Email not found":           "This email is not registered",
	"Incorrect password":        "Incorrect password, please try again",
	"User not found":            "User does not exist",
	"Account disabled":          "This account has been disabled, please contact an administrator",
	"Account locked":            "This account is locked, please try again later",
	"Too many failed attempts":  "Too many failed attempts, please try again later",
}

var registerPhrases = map[string]string{
	"Email already exists":   "This email is already registered, please use another one",
	"Password too weak":      "Password is too weak, please choose a stronger one",
	"Invalid email format":   "Invalid email format",
	"Passwords do not match": "The two passwords do not match",
}

var fieldLabels = map[string]string{
	"email":            "Email",
	"password":         "Password",
	"password_confirm": "Confirm password",
	"username":         "Username",
	"phone":            "Phone",
	"name":             "Name",
}

// FieldLabel returns the display label for a backend field name.
func FieldLabel(field string) string {
	if label, ok := fieldLabels[field]; ok {
		return label
	}
	return field
}

// failureMessage picks the rejection message for a non-2xx response.
func failureMessage(path string, status int, body []byte) string {
	serverMsg := serverMessage(body)
	switch status {
	case http.StatusBadRequest:
		switch {
		case strings.Contains(path, loginPath):
			if serverMsg == "" {
				return msgLoginFailed
			}
			if m, ok := loginPhrases[serverMsg]; ok {
				return m
			}
			return serverMsg
		case strings.Contains(path, registerPath):
			if serverMsg != "" {
				if m, ok := registerPhrases[serverMsg]; ok {
					return m
				}
				return serverMsg
			}
			if fields := fieldErrors(body); len(fields) > 0 {
				return strings.Join(fields, "; ")
			}
			return msgRegisterFailed
		default:
			if serverMsg != "" {
				return serverMsg
			}
			if fields := fieldErrors(body); len(fields) > 0 {
				return strings.Join(fields, "; ")
			}
			return msgBadRequest
		}
	case http.StatusUnauthorized:
		if serverMsg != "" {
			return serverMsg
		}
		return msgUnauthorized
	case http.StatusForbidden:
		return msgForbidden
	case http.StatusNotFound:
		return msgNotFound
	case http.StatusUnprocessableEntity:
		if fields := fieldErrors(body); len(fields) > 0 {
			return strings.Join(fields, "; ")
		}
		if serverMsg != "" {
			return serverMsg
		}
		return msgBadRequest
	case http.StatusInternalServerError:
		return msgServerError
	default:
		if serverMsg != "" {
			return serverMsg
		}
		return fmt.Sprintf("Request failed (%d)", status)
	}
}

func serverMessage(body []byte) string {
	var probe struct {
		Message json.RawMessage `json:"message"`
		Detail  string          `json:"detail"`
	}
	if err := json.Unmarshal(body, &probe); err != nil {
		return ""
	}
	var msg string
	if err := json.Unmarshal(probe.Message, &msg); err == nil && msg != "" {
		return msg
	}
	return probe.Detail
}

// fieldErrors assembles "<Field>: <msg>" entries from a {field: [msgs]} body,
// keeping the server's key order.
func fieldErrors(body []byte) []string {
	dec := json.NewDecoder(bytes.NewReader(body))
	tok, err := dec.Token()
	if err != nil {
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil
	}
	var out []string
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return out
		}
		key, _ := keyTok.(string)
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return out
		}
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			continue
		}
		for _, item := range items {
			out = append(out, FieldLabel(key)+": "+rawText(item))
		}
	}
	return out
}

func rawText(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}
