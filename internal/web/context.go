package web

import (
	"net/http"

	"github.com/JonMunkholm/donorcrm/internal/auth"
	"github.com/JonMunkholm/donorcrm/internal/core"
)

// requester returns the authenticated caller. The auth middleware always
// sets one on /api routes.
func requester(r *http.Request) core.Requester {
	req, _ := auth.RequesterFromContext(r.Context())
	return req
}
