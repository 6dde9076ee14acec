package user

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

// Mode selects which rule set of the Payload schema applies.
type Mode string

const (
	// ModeCreate requires email, firstName and lastName.
	ModeCreate Mode = "create"
	// ModeUpdate makes every field optional.
	ModeUpdate Mode = "update"
)

// ValidationError describes the first rule a request body violated.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// payloadPaths lists every request field in declaration order. Nested
// social links follow the social object itself.
var payloadPaths = jsonPaths(reflect.TypeOf(Payload{}), "")

// Validator checks payloads against the create or update rules.
type Validator struct {
	modes map[Mode]*validator.Validate
}

func NewValidator() *Validator {
	return &Validator{
		modes: map[Mode]*validator.Validate{
			ModeCreate: newModeValidator(ModeCreate),
			ModeUpdate: newModeValidator(ModeUpdate),
		},
	}
}

func newModeValidator(mode Mode) *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.SetTagName(string(mode))
	v.RegisterTagNameFunc(jsonName)
	if err := v.RegisterValidation("tld", hasTLD); err != nil {
		panic(err)
	}
	return v
}

// Validate returns nil or a *ValidationError for the first failing field,
// in declaration order. A field sent with the wrong type fails before its
// rules are looked at. Unknown fields never reach the payload.
func (v *Validator) Validate(p Payload, mode Mode) error {
	validate, ok := v.modes[mode]
	if !ok {
		return fmt.Errorf("unknown validation mode %q", mode)
	}

	failed := make(map[string]string, len(p.rejected))
	for path, msg := range p.rejected {
		failed[path] = msg
	}

	if err := validate.Struct(p); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return err
		}
		for _, fe := range fieldErrs {
			path := fieldPath(fe)
			if _, seen := failed[path]; !seen {
				failed[path] = messageFor(path, fe.Tag())
			}
		}
	}

	for _, path := range payloadPaths {
		if msg, ok := failed[path]; ok {
			return &ValidationError{Field: path, Message: msg}
		}
	}
	return nil
}

// DecodePayload unmarshals a request body. An empty body is an empty object.
// Only a body that is not a JSON object fails here; field level problems
// are left for Validate.
func DecodePayload(body []byte, decode func([]byte, any) error) (Payload, error) {
	var p Payload
	if len(bytes.TrimSpace(body)) == 0 {
		return p, nil
	}
	if decode == nil {
		decode = json.Unmarshal
	}
	if err := decode(body, &p); err != nil {
		return Payload{}, decodeError(err)
	}
	return p, nil
}

// UnmarshalJSON keeps decoding past a field of the wrong type or an explicit
// null, recording it against the field path instead.
func (p *Payload) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	*p = Payload{}
	p.Email = p.stringField(fields, "email", "email")
	p.FirstName = p.stringField(fields, "firstName", "firstName")
	p.LastName = p.stringField(fields, "lastName", "lastName")

	raw, ok := fields["social"]
	if !ok {
		return nil
	}
	var links map[string]json.RawMessage
	if isNull(raw) || json.Unmarshal(raw, &links) != nil {
		p.reject("social", "must be of type object")
		return nil
	}
	p.Social = &Social{
		Facebook: p.stringField(links, "facebook", "social.facebook"),
		Twitter:  p.stringField(links, "twitter", "social.twitter"),
		Github:   p.stringField(links, "github", "social.github"),
		Website:  p.stringField(links, "website", "social.website"),
	}
	return nil
}

func (p *Payload) stringField(fields map[string]json.RawMessage, key, path string) *string {
	raw, ok := fields[key]
	if !ok {
		return nil
	}
	var s string
	if isNull(raw) || json.Unmarshal(raw, &s) != nil {
		p.reject(path, "must be a string")
		return nil
	}
	return &s
}

func (p *Payload) reject(path, rule string) {
	if p.rejected == nil {
		p.rejected = make(map[string]string)
	}
	p.rejected[path] = fmt.Sprintf("%q %s", path, rule)
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

func decodeError(err error) *ValidationError {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return &ValidationError{Message: "request body must be a JSON object"}
	}
	return &ValidationError{Message: "request body must be valid JSON"}
}

// hasTLD requires the domain of an address to end in a label of at least
// two letters. The email rule alone accepts "a@b.c".
func hasTLD(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	domain := s[strings.LastIndexByte(s, '@')+1:]
	dot := strings.LastIndexByte(domain, '.')
	if dot < 0 {
		return false
	}

	tld := domain[dot+1:]
	if len(tld) < 2 {
		return false
	}
	for _, r := range tld {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}

func jsonName(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	return name
}

func jsonPaths(t reflect.Type, prefix string) []string {
	var paths []string
	for i := 0; i < t.NumField(); i++ {
		fld := t.Field(i)
		name := jsonName(fld)
		if !fld.IsExported() || name == "" {
			continue
		}

		path := prefix + name
		paths = append(paths, path)

		ft := fld.Type
		if ft.Kind() == reflect.Ptr {
			ft = ft.Elem()
		}
		if ft.Kind() == reflect.Struct {
			paths = append(paths, jsonPaths(ft, path+".")...)
		}
	}
	return paths
}

func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func messageFor(path, tag string) string {
	switch tag {
	case "required":
		return fmt.Sprintf("%q is required", path)
	case "email", "tld":
		return fmt.Sprintf("%q must be a valid email", path)
	case "min":
		return fmt.Sprintf("%q is not allowed to be empty", path)
	case "url":
		return fmt.Sprintf("%q must be a valid uri", path)
	default:
		return fmt.Sprintf("%q failed on the %q rule", path, tag)
	}
}
