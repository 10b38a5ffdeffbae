package log

import (
	"net/http"
	"time"
)

// Attribute keys shared by every component.
const (
	FieldComponent     = "component"
	FieldRequestID     = "request_id"
	FieldClientIP      = "client_ip"
	FieldMethod        = "method"
	FieldPath          = "path"
	FieldQuery         = "query"
	FieldStatusCode    = "status_code"
	FieldDuration      = "duration_ms"
	FieldUserAgent     = "user_agent"
	FieldSuccess       = "success"
	FieldError         = "error"
	FieldOperation     = "operation"
	FieldAction        = "action"
	FieldTransactionID = "transaction_id"
	FieldKind          = "kind"
	FieldAccount       = "account"
	FieldCategory      = "category"
	FieldAmount        = "amount"
	FieldCardName      = "card_name"
	FieldUsername      = "username"
	FieldBackend       = "backend"
	FieldCount         = "count"
	FieldReason        = "reason"
)

// Component names carried by Logger.WithComponent.
const (
	ComponentApp       = "app"
	ComponentHTTP      = "http"
	ComponentAPI       = "api"
	ComponentAMQP      = "amqp"
	ComponentWorker    = "worker"
	ComponentSheets    = "sheets"
	ComponentCache     = "cache"
	ComponentTrace     = "trace"
	ComponentBackend   = "backend"
	ComponentDashboard = "dashboard"
)

// Operation names logged under FieldOperation.
const (
	OpFetch    = "fetch"
	OpAppend   = "append"
	OpAddCard  = "add_card"
	OpDelete   = "delete_card"
	OpLogin    = "login"
	OpReset    = "reset_password"
	OpRefresh  = "refresh"
	OpShutdown = "shutdown"
)

// Fields collects key/value pairs in insertion order, ready to pass to any
// Logger method via Args.
type Fields []any

func (f Fields) add(key string, value any) Fields {
	return append(f, key, value)
}

func (f Fields) ClientIP(ip string) Fields { return f.add(FieldClientIP, ip) }

func (f Fields) Operation(op string) Fields { return f.add(FieldOperation, op) }

func (f Fields) Card(name string) Fields { return f.add(FieldCardName, name) }

// Err adds err's message; a nil error adds nothing.
func (f Fields) Err(err error) Fields {
	if err == nil {
		return f
	}
	return f.add(FieldError, err.Error())
}

// Transaction adds what may be logged about a ledger entry. Counterparty and
// description never reach the logs; an empty id is skipped.
func (f Fields) Transaction(id, kind, account, category string, amount float64) Fields {
	if id != "" {
		f = f.add(FieldTransactionID, id)
	}
	return f.add(FieldKind, kind).
		add(FieldAccount, account).
		add(FieldCategory, category).
		add(FieldAmount, amount)
}

// Request adds method, path and query, plus the user agent when set.
func (f Fields) Request(r *http.Request, withAgent bool) Fields {
	f = f.add(FieldMethod, r.Method).add(FieldPath, r.URL.Path).add(FieldQuery, r.URL.RawQuery)
	if ua := r.UserAgent(); withAgent && ua != "" {
		f = f.add(FieldUserAgent, ua)
	}
	return f
}

func (f Fields) Response(status int, elapsed time.Duration) Fields {
	return f.add(FieldStatusCode, status).
		add(FieldDuration, elapsed.Milliseconds()).
		add(FieldSuccess, status < http.StatusBadRequest)
}

// Args returns the pairs for a slog call.
func (f Fields) Args() []any { return f }
