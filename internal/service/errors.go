package service

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/Skotchmaster/shop_api/internal/models"
)

var (
	ErrUnauthenticated = errors.New("unauthenticated") // 401
	ErrForbidden       = errors.New("forbidden")       // 403
	ErrNotFound        = errors.New("not found")       // 404
	ErrValidation      = errors.New("validation")      // 400
	ErrConflict        = errors.New("conflict")        // 400, uniqueness
	ErrRestricted      = errors.New("restricted")      // 409, still referenced
)

// NonField collects errors that do not belong to a single input field.
const NonField = "non_field_errors"

// FieldErrors carries per-field messages. Kind is ErrValidation or ErrConflict.
type FieldErrors struct {
	Kind   error
	Fields map[string][]string
}

func (e *FieldErrors) Add(field, msg string) {
	if e.Fields == nil {
		e.Fields = make(map[string][]string)
	}
	e.Fields[field] = append(e.Fields[field], msg)
}

func (e *FieldErrors) Empty() bool { return len(e.Fields) == 0 }

func (e *FieldErrors) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+strings.Join(e.Fields[k], " "))
	}
	return fmt.Sprintf("%v: %s", e.Kind, strings.Join(parts, "; "))
}

func (e *FieldErrors) Unwrap() error { return e.Kind }

// orNil returns e as an error only when it holds messages.
func (e *FieldErrors) orNil() error {
	if e.Empty() {
		return nil
	}
	return e
}

func invalid(field, msg string) error {
	fe := &FieldErrors{Kind: ErrValidation}
	fe.Add(field, msg)
	return fe
}

func conflict(field, msg string) error {
	fe := &FieldErrors{Kind: ErrConflict}
	fe.Add(field, msg)
	return fe
}

const msgRequired = "This field is required."

// Caller is the authenticated principal of a request.
type Caller struct {
	UserID uint
	Role   models.Role
}

func authenticated(c Caller) error {
	if c.UserID == 0 {
		return ErrUnauthenticated
	}
	return nil
}

func requireAdmin(c Caller) error {
	if err := authenticated(c); err != nil {
		return err
	}
	switch c.Role {
	case models.RoleAdmin:
		return nil
	case models.RoleCustomer:
		return fmt.Errorf("%w: admin role required", ErrForbidden)
	default:
		return fmt.Errorf("%w: unknown role %q", ErrForbidden, c.Role)
	}
}

func requireCustomer(c Caller) error {
	if err := authenticated(c); err != nil {
		return err
	}
	switch c.Role {
	case models.RoleCustomer:
		return nil
	case models.RoleAdmin:
		return fmt.Errorf("%w: customer role required", ErrForbidden)
	default:
		return fmt.Errorf("%w: unknown role %q", ErrForbidden, c.Role)
	}
}

// seesEverything reports whether c may read inactive products and foreign orders.
func seesEverything(c Caller) bool {
	switch c.Role {
	case models.RoleAdmin:
		return true
	case models.RoleCustomer:
		return false
	default:
		return false
	}
}
