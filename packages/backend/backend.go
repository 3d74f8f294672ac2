// Package backend selects and abstracts the HTTP engines that perform
// transactions. Two implementations exist: the full-featured native
// backend and the reduced restclient backend.
package backend

import (
	"context"
	"strings"

	"github.com/abdul-hamid-achik/gocurl/packages/backend/native"
	"github.com/abdul-hamid-achik/gocurl/packages/backend/restclient"
	"github.com/abdul-hamid-achik/gocurl/packages/request"
	"github.com/abdul-hamid-achik/gocurl/packages/response"
)

// DefaultName selects the backend used when none is requested. Builds
// can pin a different engine with the linker:
//
//	-ldflags "-X github.com/abdul-hamid-achik/gocurl/packages/backend.DefaultName=restclient"
var DefaultName = "native"

// Backend performs exactly one HTTP transaction per Execute call,
// redirects included.
type Backend interface {
	// Name identifies the implementation for version output and
	// selection errors.
	Name() string
	// Version reports the underlying engine version.
	Version() string
	// Execute performs the transaction described by d. Implementations
	// apply resolved credential and proxy values and never leave a
	// partially written output file behind on failure.
	Execute(ctx context.Context, d *request.Descriptor) (*response.Response, error)
}

var (
	_ Backend = (*native.Backend)(nil)
	_ Backend = (*restclient.Backend)(nil)
)

// Names lists the selectable backends.
func Names() []string {
	return []string{"native", "restclient"}
}

// Select returns the backend with the given name, or the build default
// when name is empty.
func Select(name string) (Backend, error) {
	if name == "" {
		name = DefaultName
	}
	switch strings.ToLower(name) {
	case "native":
		return native.New(), nil
	case "restclient":
		return restclient.New(), nil
	default:
		return nil, request.NewConfigError("unknown backend %q (available: %s)", name, strings.Join(Names(), ", "))
	}
}
