package restface

import (
	"log"
	"net/http"

	"github.com/go-playground/validator/v10"
)

type Config struct {
	errorf func(format string, args ...interface{})

	client  HttpClient
	maxBody int64

	Contract        Contract
	Encoder         Encoder
	Decoder         Decoder
	ErrorDecoder    ErrorDecoder
	QueryMapEncoder QueryMapEncoder
	Interceptors    []RequestInterceptor
	NewRetryer      func() Retryer

	// ErrorStatusThreshold is the lowest status passed to ErrorDecoder.
	ErrorStatusThreshold int

	Decode404             bool
	DoNotCloseAfterDecode bool
	ValidateBodies        bool
	Propagation           PropagationPolicy

	retryPolicy *RetryPolicy
	validate    *validator.Validate
}

func NewDefaultConfig() *Config {
	return &Config{
		errorf:               log.Printf,
		Contract:             DefaultContract{},
		Encoder:              JsonEncoder{},
		Decoder:              JsonDecoder{},
		ErrorDecoder:         DefaultErrorDecoder{},
		QueryMapEncoder:      NewSchemaQueryMapEncoder(),
		NewRetryer:           DefaultRetryPolicy.NewRetryer,
		ErrorStatusThreshold: http.StatusBadRequest,
		validate:             validator.New(),
	}
}

type Option func(*Config)

func ErrorLogger(logger func(format string, args ...interface{})) Option {
	return func(config *Config) {
		config.errorf = logger
	}
}

// CustomClient replaces the HTTP client. Default is a plain
// *http.Client, which follows redirects.
func CustomClient(client HttpClient) Option {
	return func(config *Config) {
		config.client = client
	}
}

// MaxBody limits the size of response bodies. 0 means no limit.
func MaxBody(maxBody int64) Option {
	return func(config *Config) {
		config.maxBody = maxBody
	}
}

// Authorization sets Authorization header of all requests.
func Authorization(authorization string) Option {
	return WithInterceptor(StaticHeader("Authorization", authorization))
}

func WithEncoder(encoder Encoder) Option {
	return func(config *Config) {
		config.Encoder = encoder
	}
}

func WithDecoder(decoder Decoder) Option {
	return func(config *Config) {
		config.Decoder = decoder
	}
}

func WithErrorDecoder(errorDecoder ErrorDecoder) Option {
	return func(config *Config) {
		config.ErrorDecoder = errorDecoder
	}
}

func WithQueryMapEncoder(encoder QueryMapEncoder) Option {
	return func(config *Config) {
		config.QueryMapEncoder = encoder
	}
}

// WithRetryer sets the factory of retryers. It is called once per call.
func WithRetryer(newRetryer func() Retryer) Option {
	return func(config *Config) {
		config.NewRetryer = newRetryer
		config.retryPolicy = nil
	}
}

// WithRetryPolicy uses the default backoff retryer with the policy.
// The policy is validated by NewClient.
func WithRetryPolicy(policy RetryPolicy) Option {
	return func(config *Config) {
		config.retryPolicy = &policy
		config.NewRetryer = policy.NewRetryer
	}
}

// WithInterceptor appends request interceptors.
func WithInterceptor(interceptors ...RequestInterceptor) Option {
	return func(config *Config) {
		config.Interceptors = append(config.Interceptors, interceptors...)
	}
}

// Decode404 makes methods with a result return its zero value on 404.
func Decode404() Option {
	return func(config *Config) {
		config.Decode404 = true
	}
}

// DoNotCloseAfterDecode leaves closing of response bodies to Decoder.
func DoNotCloseAfterDecode() Option {
	return func(config *Config) {
		config.DoNotCloseAfterDecode = true
	}
}

func ErrorStatusThreshold(status int) Option {
	return func(config *Config) {
		config.ErrorStatusThreshold = status
	}
}

func Propagation(policy PropagationPolicy) Option {
	return func(config *Config) {
		config.Propagation = policy
	}
}

func CustomContract(contract Contract) Option {
	return func(config *Config) {
		config.Contract = contract
	}
}

// ValidateBodies checks struct bodies with `validate` tags
// of github.com/go-playground/validator before encoding them.
func ValidateBodies() Option {
	return func(config *Config) {
		config.ValidateBodies = true
	}
}
