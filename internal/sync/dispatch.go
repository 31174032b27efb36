package sync

import (
	"context"
	"strings"

	"github.com/kbwebsolutions/datasender/pkg/enums"
	pkgerrors "github.com/kbwebsolutions/datasender/pkg/errors"
)

// Dispatcher executes one outbound call against the CRM.
type Dispatcher interface {
	Call(ctx context.Context, endpoint string, method enums.DispatchMethod, payload any, logLine string) error
}

// Router resolves dispatch paths into full CRM endpoints and forwards them
// to the client. The REST prefix is versioned so the CRM can roll its API
// without a deploy here.
type Router struct {
	baseURL    string
	apiVersion string
	client     Dispatcher
}

func NewRouter(baseURL, apiVersion string, client Dispatcher) (*Router, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "crm base url is required")
	}
	if strings.TrimSpace(apiVersion) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "crm api version is required")
	}
	if client == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "crm client is required")
	}
	return &Router{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiVersion: apiVersion,
		client:     client,
	}, nil
}

// Endpoint builds the full URL for a dispatch path.
func (r *Router) Endpoint(path string) string {
	return r.baseURL + "/services/data/" + r.apiVersion + path
}

// Send executes a single dispatch.
func (r *Router) Send(ctx context.Context, d *Dispatch) error {
	return r.client.Call(ctx, r.Endpoint(d.Path), d.Method, d.Record, d.LogLine)
}
