package restface

import (
	"encoding/base64"

	"github.com/google/uuid"
)

// RequestInterceptor modifies a resolved template before it is sent.
// Interceptors run once per call, in registration order.
type RequestInterceptor interface {
	Apply(t *Template) error
}

type InterceptorFunc func(t *Template) error

func (f InterceptorFunc) Apply(t *Template) error {
	return f(t)
}

// StaticHeader sets a header on every request.
func StaticHeader(name string, values ...string) RequestInterceptor {
	return InterceptorFunc(func(t *Template) error {
		t.SetHeader(name, values...)
		return nil
	})
}

// BasicAuth sets Authorization header with HTTP basic credentials.
func BasicAuth(username, password string) RequestInterceptor {
	token := base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
	return StaticHeader("Authorization", "Basic "+token)
}

// RequestID sets a random UUID in the header unless the request already
// has one.
func RequestID(header string) RequestInterceptor {
	return InterceptorFunc(func(t *Template) error {
		if len(t.Header(header)) != 0 {
			return nil
		}
		id, err := uuid.NewRandom()
		if err != nil {
			return err
		}
		t.SetHeader(header, id.String())
		return nil
	})
}
