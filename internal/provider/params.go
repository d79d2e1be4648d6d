package provider

import (
	"bytes"
	"encoding/json"
	"errors"

	"github.com/go-playground/validator/v10"
)

// validate is shared by all adapters; validator.Validate is safe for
// concurrent use.
var validate = validator.New()

// decodeParams maps loosely-typed request parameters onto a provider's typed
// parameter struct and validates it against the struct's schema tags.
// Violations come back as validation-kind errors.
func decodeParams(params map[string]any, dst any) error {
	encoded, err := json.Marshal(params)
	if err != nil {
		return Validationf("parameters are not encodable: %v", err)
	}
	dec := json.NewDecoder(bytes.NewReader(encoded))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return Validationf("parameters do not match schema: %v", err)
	}
	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return Validationf("invalid parameters: %v", verrs)
		}
		return Validationf("invalid parameters: %v", err)
	}
	return nil
}
