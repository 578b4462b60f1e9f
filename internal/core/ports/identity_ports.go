package ports

import (
	"net/http"

	"github.com/vncsmyrnk/pollvote/internal/core/domain"
)

// IdentityResolver never fails: requests without valid credentials resolve
// to an anonymous identity carrying the client address.
type IdentityResolver interface {
	Resolve(r *http.Request) domain.Identity
}

// PollPublisher fans poll changes out to live subscribers.
type PollPublisher interface {
	PublishPoll(poll *domain.Poll)
}
