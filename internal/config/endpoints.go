// Package config loads the remote endpoint sets and resolves which one the
// bridge talks to.
package config

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"net/url"
	"os"

	"github.com/tidwall/jsonc"

	"github.com/Quanta-Naut/CivicBridge-App/internal/logger"
)

//go:embed endpoints.jsonc
var embeddedEndpoints []byte

// fallbackBase is the server every fallback endpoint points at.
const fallbackBase = "http://localhost:5000"

// EndpointSet is the group of service URLs for one deployment environment.
type EndpointSet struct {
	IssuesAPI    string `json:"issues_api"`
	AuthBase     string `json:"auth_base"`
	SendOTP      string `json:"send_otp"`
	VerifyOTP    string `json:"verify_otp"`
	FirebaseAuth string `json:"firebase_auth"`
	Profile      string `json:"profile"`
}

// Endpoints holds the three endpoint sets loaded at start-up.
type Endpoints struct {
	Production   EndpointSet `json:"production"`
	Development  EndpointSet `json:"development"`
	LocalNetwork EndpointSet `json:"local_network"`
}

// Set returns the endpoint set for env. Unknown environments get the
// development set.
func (e Endpoints) Set(env Environment) EndpointSet {
	switch env {
	case Production:
		return e.Production
	case LocalNetwork:
		return e.LocalNetwork
	default:
		return e.Development
	}
}

// FallbackEndpoints returns the hard-coded localhost endpoints used when the
// endpoint asset cannot be loaded. All three environments share them.
func FallbackEndpoints() Endpoints {
	set := EndpointSet{
		IssuesAPI:    fallbackBase + "/api/issues",
		AuthBase:     fallbackBase,
		SendOTP:      fallbackBase + "/auth/send-otp",
		VerifyOTP:    fallbackBase + "/auth/verify-otp",
		FirebaseAuth: fallbackBase + "/auth/firebase",
		Profile:      fallbackBase + "/auth/profile",
	}
	return Endpoints{Production: set, Development: set, LocalNetwork: set}
}

// Parse decodes an endpoint document. Comments and trailing commas are
// allowed. Every URL of every environment must be present and absolute.
func Parse(data []byte) (Endpoints, error) {
	var endpoints Endpoints
	if err := json.Unmarshal(jsonc.ToJSON(data), &endpoints); err != nil {
		return Endpoints{}, fmt.Errorf("failed to parse endpoint config: %w", err)
	}

	for _, env := range Environments() {
		if err := validateSet(endpoints.Set(env)); err != nil {
			return Endpoints{}, fmt.Errorf("invalid %s endpoints: %w", env, err)
		}
	}
	return endpoints, nil
}

func validateSet(set EndpointSet) error {
	fields := []struct {
		name  string
		value string
	}{
		{NameIssuesAPI, set.IssuesAPI},
		{NameAuthBase, set.AuthBase},
		{NameSendOTP, set.SendOTP},
		{NameVerifyOTP, set.VerifyOTP},
		{NameFirebaseAuth, set.FirebaseAuth},
		{NameProfile, set.Profile},
	}
	for _, f := range fields {
		if f.value == "" {
			return fmt.Errorf("%s is missing", f.name)
		}
		u, err := url.Parse(f.value)
		if err != nil {
			return fmt.Errorf("%s: %w", f.name, err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("%s: %q is not an http(s) URL", f.name, f.value)
		}
	}
	return nil
}

// Load parses the endpoint asset. An empty path selects the embedded asset;
// otherwise the file at path is read.
func Load(path string) (Endpoints, error) {
	data := embeddedEndpoints
	if path != "" {
		fileData, err := os.ReadFile(path)
		if err != nil {
			return Endpoints{}, fmt.Errorf("failed to read endpoint config: %w", err)
		}
		data = fileData
	}
	return Parse(data)
}

// LoadOrFallback is Load that never fails: a missing or malformed asset is
// logged and replaced by FallbackEndpoints.
func LoadOrFallback(path string, log *logger.Logger) Endpoints {
	endpoints, err := Load(path)
	if err != nil {
		log.Warn("config: %v", err)
		log.Warn("config: using fallback endpoints at %s", fallbackBase)
		return FallbackEndpoints()
	}
	log.Debug("config: endpoint configuration loaded")
	return endpoints
}
