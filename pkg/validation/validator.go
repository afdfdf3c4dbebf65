package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/oksasatya/go-user-directory/pkg/apperror"
)

const (
	FieldName    = "name"
	FieldEmail   = "email"
	FieldAddress = "address"
	// FieldBody is reported when the request as a whole is unusable.
	FieldBody    = "body"
	FieldPayload = "payload"

	MsgNothingToUpdate = "At least one field must be provided for update"
	MsgInvalidID       = "Invalid user ID format"
)

var (
	personNameRe = regexp.MustCompile(`^[a-zA-Z\s]+$`)
	userEmailRe  = regexp.MustCompile(`^\w+([.-]?\w+)*@\w+([.-]?\w+)*(\.\w{2,3})+$`)
)

// rule binds a user field to its validator tag chain. Order matters: errors are
// reported in the same order so clients can highlight inputs top to bottom.
type rule struct {
	field string
	tag   string
}

var userRules = []rule{
	{field: FieldName, tag: "required,min=2,max=50,personname"},
	{field: FieldEmail, tag: "required,max=254,useremail"},
	{field: FieldAddress, tag: "required,min=5,max=200"},
}

var messages = map[string]map[string]string{
	FieldName: {
		"required":   "Name is required",
		"min":        "Name must be at least 2 characters long",
		"max":        "Name cannot exceed 50 characters",
		"personname": "Name can only contain letters and spaces",
	},
	FieldEmail: {
		"required":  "Email is required",
		"max":       "Email cannot exceed 254 characters",
		"useremail": "Please provide a valid email address",
	},
	FieldAddress: {
		"required": "Address is required",
		"min":      "Address must be at least 5 characters long",
		"max":      "Address cannot exceed 200 characters",
	},
}

var (
	once     sync.Once
	validate *validator.Validate
)

func engine() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		registerCustom(validate)
	})
	return validate
}

func registerCustom(v *validator.Validate) {
	_ = v.RegisterValidation("personname", func(fl validator.FieldLevel) bool {
		return personNameRe.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("useremail", func(fl validator.FieldLevel) bool {
		return userEmailRe.MatchString(fl.Field().String())
	})
}

// Init configures the validator used by Gin's binding so query/body structs
// report JSON or form names and can use the user-field validators.
func Init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			tag := fld.Tag.Get("json")
			if tag == "" {
				tag = fld.Tag.Get("form")
			}
			name := strings.SplitN(tag, ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		registerCustom(v)
	}
}

// UserFields is the full set of editable user fields.
type UserFields struct {
	Name    string
	Email   string
	Address string
}

// UserPatch holds the fields of a partial update; nil means "leave untouched".
type UserPatch struct {
	Name    *string
	Email   *string
	Address *string
}

// Empty reports whether no field is present.
func (p UserPatch) Empty() bool {
	return p.Name == nil && p.Email == nil && p.Address == nil
}

func NormalizeName(s string) string    { return strings.TrimSpace(s) }
func NormalizeEmail(s string) string   { return strings.ToLower(strings.TrimSpace(s)) }
func NormalizeAddress(s string) string { return strings.TrimSpace(s) }

func normalize(field, value string) string {
	switch field {
	case FieldEmail:
		return NormalizeEmail(value)
	case FieldName:
		return NormalizeName(value)
	default:
		return NormalizeAddress(value)
	}
}

// CheckField validates one normalized value and returns the message for the
// first rule it breaks, or "" when it is valid.
func CheckField(field, value string) string {
	for _, r := range userRules {
		if r.field != field {
			continue
		}
		err := engine().Var(value, r.tag)
		if err == nil {
			return ""
		}
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			if msg, ok := messages[field][verrs[0].Tag()]; ok {
				return msg
			}
			return formatFieldError(verrs[0])
		}
		return "is invalid"
	}
	return ""
}

// ValidateUser normalizes in and checks every field. All violations are returned.
func ValidateUser(in UserFields) (UserFields, []apperror.FieldError) {
	out := UserFields{
		Name:    NormalizeName(in.Name),
		Email:   NormalizeEmail(in.Email),
		Address: NormalizeAddress(in.Address),
	}
	values := map[string]string{FieldName: out.Name, FieldEmail: out.Email, FieldAddress: out.Address}
	var errs []apperror.FieldError
	for _, r := range userRules {
		if msg := CheckField(r.field, values[r.field]); msg != "" {
			errs = append(errs, apperror.FieldError{Field: r.field, Message: msg})
		}
	}
	return out, errs
}

// ValidatePatch normalizes the present fields of p and checks them with the same
// rules as ValidateUser. An empty patch is itself a violation.
func ValidatePatch(p UserPatch) (UserPatch, []apperror.FieldError) {
	if p.Empty() {
		return p, []apperror.FieldError{{Field: FieldBody, Message: MsgNothingToUpdate}}
	}
	present := []struct {
		field string
		value **string
	}{
		{FieldName, &p.Name},
		{FieldEmail, &p.Email},
		{FieldAddress, &p.Address},
	}
	var errs []apperror.FieldError
	for _, f := range present {
		if *f.value == nil {
			continue
		}
		v := normalize(f.field, **f.value)
		*f.value = &v
		if msg := CheckField(f.field, v); msg != "" {
			errs = append(errs, apperror.FieldError{Field: f.field, Message: msg})
		}
	}
	return p, errs
}

// IsValidID reports whether id has the shape of a store identifier.
func IsValidID(id string) bool {
	_, ok := CanonicalID(id)
	return ok
}

// CanonicalID returns id in the lowercase hyphenated form used by the store.
func CanonicalID(id string) (string, bool) {
	parsed, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return "", false
	}
	return parsed.String(), true
}

// ToDetails converts binding errors into field errors suitable for the errors
// array of the response envelope.
func ToDetails(err error) []apperror.FieldError {
	if err == nil {
		return nil
	}

	if errors.Is(err, io.EOF) {
		return []apperror.FieldError{{Field: FieldPayload, Message: "request body is required"}}
	}

	var ute *json.UnmarshalTypeError
	if errors.As(err, &ute) {
		field := ute.Field
		if field == "" {
			field = FieldPayload
		}
		return []apperror.FieldError{{Field: field, Message: fmt.Sprintf("must be a %s", ute.Type.Kind())}}
	}
	var se *json.SyntaxError
	if errors.As(err, &se) {
		return []apperror.FieldError{{Field: FieldPayload, Message: "invalid json"}}
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		out := make([]apperror.FieldError, 0, len(verrs))
		for _, fe := range verrs {
			out = append(out, apperror.FieldError{Field: fe.Field(), Message: formatFieldError(fe)})
		}
		return out
	}

	return []apperror.FieldError{{Field: FieldPayload, Message: "invalid payload"}}
}

func formatFieldError(fe validator.FieldError) string {
	param := fe.Param()
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email", "useremail":
		return "must be a valid email"
	case "personname":
		return "can only contain letters and spaces"
	case "uuid":
		return "must be a valid UUID"
	case "min":
		if isNumberKind(fe.Kind()) {
			return "must be at least " + param
		}
		return "must be at least " + param + " characters long"
	case "max":
		if isNumberKind(fe.Kind()) {
			return "must be at most " + param
		}
		return "must be at most " + param + " characters long"
	case "oneof":
		return "must be one of: " + strings.Join(strings.Fields(param), ", ")
	case "numeric", "number":
		return "must be numeric"
	default:
		if param != "" {
			return fmt.Sprintf("validation failed for '%s' with parameter '%s'", fe.Tag(), param)
		}
		return fmt.Sprintf("validation failed for '%s'", fe.Tag())
	}
}

func isNumberKind(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	default:
		return false
	}
}
