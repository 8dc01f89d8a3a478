package leads

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// Contact is a contact-form submission.
type Contact struct {
	FullName     string `json:"fullName"`
	ContactEmail string `json:"contactEmail"`
	ContactNo    string `json:"contactNo"`
	Interest     string `json:"interest"`
}

// FieldError describes one invalid field.
type FieldError struct {
	Field   string
	Message string
}

var contactSchema = gojsonschema.NewGoLoader(map[string]interface{}{
	"type": "object",
	"properties": map[string]interface{}{
		"fullName":     map[string]interface{}{"type": "string", "minLength": 1, "maxLength": 200},
		"contactEmail": map[string]interface{}{"type": "string", "format": "email", "maxLength": 254},
		"contactNo":    map[string]interface{}{"type": "string", "pattern": PhonePattern},
		"interest":     map[string]interface{}{"type": "string", "maxLength": 2000},
	},
	"required": []string{"fullName", "contactNo"},
})

// Normalize trims every field in place.
func (c *Contact) Normalize() {
	c.FullName = strings.TrimSpace(c.FullName)
	c.ContactEmail = strings.TrimSpace(c.ContactEmail)
	c.ContactNo = strings.TrimSpace(c.ContactNo)
	c.Interest = strings.TrimSpace(c.Interest)
}

// ValidateContact checks a normalized submission. The email is optional but
// must be well formed when given.
func ValidateContact(c Contact) ([]FieldError, error) {
	doc := map[string]interface{}{
		"contactNo": c.ContactNo,
		"interest":  c.Interest,
	}
	if c.FullName != "" {
		doc["fullName"] = c.FullName
	}
	if c.ContactEmail != "" {
		doc["contactEmail"] = c.ContactEmail
	}

	result, err := gojsonschema.Validate(contactSchema, gojsonschema.NewGoLoader(doc))
	if err != nil {
		return nil, fmt.Errorf("contact validation: %w", err)
	}
	if result.Valid() {
		return nil, nil
	}

	fieldErrs := make([]FieldError, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		field := desc.Field()
		if desc.Type() == "required" {
			if p, ok := desc.Details()["property"].(string); ok {
				field = p
			}
		}
		fieldErrs = append(fieldErrs, FieldError{Field: field, Message: desc.Description()})
	}
	return fieldErrs, nil
}
