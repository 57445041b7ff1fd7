package backend

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	jmespath "github.com/jmespath-community/go-jmespath"
)

// The auth and data services report errors in different shapes:
//
//	{"error":"invalid_grant","error_description":"Invalid login credentials"}
//	{"code":422,"error_code":"weak_password","msg":"Password should be at least 6 characters"}
//	{"code":"23505","message":"duplicate key value ...","details":"...","hint":null}
const (
	messageExpr = "error_description || msg || message || error"
	codeExpr    = "error_code || code || error"
)

// APIError is a non-2xx reply from the service.
type APIError struct {
	Status  int
	Code    string
	Message string
	Details string
	Hint    string
}

func (e *APIError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "backend status %d", e.Status)
	if e.Code != "" {
		fmt.Fprintf(&b, " (%s)", e.Code)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	return b.String()
}

// AsAPIError unwraps err to an *APIError.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

func decodeAPIError(status int, raw []byte) *APIError {
	e := &APIError{Status: status}

	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		e.Message = strings.TrimSpace(string(raw))
		if e.Message == "" {
			e.Message = http.StatusText(status)
		}
		return e
	}

	e.Message = searchString(messageExpr, doc)
	e.Code = searchString(codeExpr, doc)
	if obj, ok := doc.(map[string]any); ok {
		e.Details, _ = obj["details"].(string)
		e.Hint, _ = obj["hint"].(string)
	}
	if e.Message == "" {
		e.Message = http.StatusText(status)
	}
	return e
}

func searchString(expr string, doc any) string {
	v, err := jmespath.Search(expr, doc)
	if err != nil || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return fmt.Sprintf("%.0f", t)
	default:
		return fmt.Sprint(t)
	}
}
