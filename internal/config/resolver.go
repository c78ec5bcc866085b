package config

import (
	"os"
	"runtime"

	"github.com/Quanta-Naut/CivicBridge-App/internal/logger"
)

// EnvVar is the variable that selects the endpoint environment, both at
// build time (through BuildEnv) and at run time.
const EnvVar = "CIVIC_API_ENV"

// BuildEnv captures CIVIC_API_ENV as it was when the binary was built.
// Release scripts set it with
//
//	-ldflags "-X github.com/Quanta-Naut/CivicBridge-App/internal/config.BuildEnv=production"
//
// so that targets without a usable process environment (mobile) still
// pick the right endpoints.
var BuildEnv string

// Environment names a deployment environment.
type Environment string

const (
	Production   Environment = "production"
	Development  Environment = "development"
	LocalNetwork Environment = "local_network"
)

// Environments lists every known environment.
func Environments() []Environment {
	return []Environment{Production, Development, LocalNetwork}
}

// ParseEnvironment recognises exactly the three environment names.
func ParseEnvironment(s string) (Environment, bool) {
	switch Environment(s) {
	case Production, Development, LocalNetwork:
		return Environment(s), true
	}
	return "", false
}

// Tier identifies which precedence level selected the environment.
type Tier string

const (
	TierBuild    Tier = "build"
	TierRuntime  Tier = "runtime"
	TierPlatform Tier = "platform"
)

// Endpoint names accepted by Resolver.Endpoint.
const (
	NameIssuesAPI    = "issues_api"
	NameAuthBase     = "auth_base"
	NameSendOTP      = "send_otp"
	NameVerifyOTP    = "verify_otp"
	NameFirebaseAuth = "firebase_auth"
	NameProfile      = "profile"
)

// IsMobile reports whether goos is a mobile target.
func IsMobile(goos string) bool {
	return goos == "android" || goos == "ios"
}

// Selection is the outcome of resolution.
type Selection struct {
	Environment Environment
	Tier        Tier
}

// Resolver picks the active endpoint set. It holds no mutable state and is
// safe for concurrent use.
type Resolver struct {
	endpoints Endpoints
	buildEnv  string
	lookupEnv func(string) (string, bool)
	goos      string
	log       *logger.Logger
}

// Option customises a Resolver.
type Option func(*Resolver)

// WithBuildEnv overrides the build-time flag (defaults to BuildEnv).
func WithBuildEnv(value string) Option {
	return func(r *Resolver) { r.buildEnv = value }
}

// WithLookupEnv overrides the runtime environment lookup (defaults to os.LookupEnv).
func WithLookupEnv(lookup func(string) (string, bool)) Option {
	return func(r *Resolver) { r.lookupEnv = lookup }
}

// WithGOOS overrides the platform (defaults to runtime.GOOS).
func WithGOOS(goos string) Option {
	return func(r *Resolver) { r.goos = goos }
}

// WithLogger sets the logger (defaults to logger.Default()).
func WithLogger(log *logger.Logger) Option {
	return func(r *Resolver) { r.log = log }
}

// NewResolver creates a resolver over the loaded endpoints.
func NewResolver(endpoints Endpoints, opts ...Option) *Resolver {
	r := &Resolver{
		endpoints: endpoints,
		buildEnv:  BuildEnv,
		lookupEnv: os.LookupEnv,
		goos:      runtime.GOOS,
		log:       logger.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Endpoints returns all loaded endpoint sets.
func (r *Resolver) Endpoints() Endpoints {
	return r.endpoints
}

// Selection applies the precedence chain: build flag, runtime variable,
// platform default. Unrecognised values fall through to the next tier.
func (r *Resolver) Selection() Selection {
	if env, ok := ParseEnvironment(r.buildEnv); ok {
		return Selection{Environment: env, Tier: TierBuild}
	}
	if value, set := r.lookupEnv(EnvVar); set {
		if env, ok := ParseEnvironment(value); ok {
			return Selection{Environment: env, Tier: TierRuntime}
		}
	}
	if IsMobile(r.goos) {
		return Selection{Environment: Production, Tier: TierPlatform}
	}
	return Selection{Environment: Development, Tier: TierPlatform}
}

// Resolve returns the active endpoint set.
func (r *Resolver) Resolve() EndpointSet {
	return r.endpoints.Set(r.Selection().Environment)
}

// Endpoint returns one named URL from the active set. An unknown name
// returns the set's auth base URL rather than failing.
func (r *Resolver) Endpoint(name string) string {
	set := r.Resolve()
	switch name {
	case NameIssuesAPI:
		return set.IssuesAPI
	case NameAuthBase:
		return set.AuthBase
	case NameSendOTP:
		return set.SendOTP
	case NameVerifyOTP:
		return set.VerifyOTP
	case NameFirebaseAuth:
		return set.FirebaseAuth
	case NameProfile:
		return set.Profile
	default:
		r.log.Warn("config: unknown endpoint %q, falling back to auth_base", name)
		return set.AuthBase
	}
}
