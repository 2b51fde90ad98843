package twilio

import (
	"net/url"
	"strings"

	"github.com/twilio/twilio-go/client"
)

// SignatureHeader carries Twilio's request signature.
const SignatureHeader = "X-Twilio-Signature"

// Validator checks that inbound webhooks were signed with the account's
// auth token. Twilio signs the public URL it called, so requests are
// validated against baseURL joined with the request path.
type Validator struct {
	rv      client.RequestValidator
	baseURL string
}

func NewValidator(authToken, baseURL string) *Validator {
	return &Validator{
		rv:      client.NewRequestValidator(authToken),
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}
}

// Validate reports whether signature matches the form posted to path.
func (v *Validator) Validate(path string, form url.Values, signature string) bool {
	if signature == "" {
		return false
	}
	params := make(map[string]string, len(form))
	for k, vals := range form {
		if len(vals) > 0 {
			params[k] = vals[0]
		}
	}
	return v.rv.Validate(v.baseURL+path, params, signature)
}
