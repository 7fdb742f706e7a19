package app

import (
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"

	"github.com/upb/dashboard-guard/middleware"
	"github.com/upb/dashboard-guard/utils"
	"go.uber.org/zap"
)

// newUpstreamProxy forwards requests to the web application at rawURL
func newUpstreamProxy(rawURL string, logger *zap.Logger) (http.Handler, error) {
	target, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid upstream url: %w", err)
	}
	if target.Scheme == "" || target.Host == "" {
		return nil, fmt.Errorf("invalid upstream url %q: scheme and host are required", rawURL)
	}

	proxy := httputil.NewSingleHostReverseProxy(target)
	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		logger.Error("upstream request failed",
			zap.String("request_id", middleware.GetRequestIDFromContext(r.Context())),
			zap.String("path", r.URL.Path),
			zap.Error(err))
		_ = utils.WriteError(w, http.StatusBadGateway, "Upstream unavailable", nil)
	}

	return proxy, nil
}
