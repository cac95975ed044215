package tenant

import (
	"strconv"

	"github.com/flowzap/flowzap-backend/lib/response"
	"github.com/getevo/evo/v2"
)

// HeaderCompanyID carries the tenant identity resolved by the upstream
// gateway. Authentication itself is out of this service's scope; every
// handler still requires the header so no query can run unscoped.
const HeaderCompanyID = "X-Company-ID"

// HeaderActorID optionally identifies the acting user or automation
const HeaderActorID = "X-Actor-ID"

// FromRequest extracts the company id from the request headers
func FromRequest(request *evo.Request) (uint, error) {
	raw := request.Header(HeaderCompanyID)
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return 0, response.ErrInvalidCompany
	}
	return uint(id), nil
}

// ActorFromRequest returns the acting identity, defaulting to "api"
func ActorFromRequest(request *evo.Request) string {
	if actor := request.Header(HeaderActorID); actor != "" {
		return actor
	}
	return "api"
}
