package service

import (
	"fmt"

	"github.com/maheshrc27/feedqueue-api/internal/models"
)

// Transition is the outcome of a permitted post status change.
type Transition struct {
	// Redeploy means the feed must be republished now with the updated post.
	Redeploy bool
}

// EvaluateTransition decides whether a post may move to newStatus given its
// queue's deploy mode and whether the post is currently live. A nil newStatus
// clears any pending status.
//
//	                auto+published  auto+unpublished  manual+published  manual+unpublished
//	DEPUB_PENDING   redeploy        reject            mark only         reject
//	PUB_PENDING     reject          redeploy          no-op             no-op
//	none            reject          no-op             no-op             no-op
//
// The manual-queue no-op cells accept the request without redeploying.
func EvaluateTransition(isAutoDeploy, isPublished bool, newStatus *models.PostPubStatus) (Transition, error) {
	requested := models.PubStatusNone
	if newStatus != nil {
		requested = *newStatus
	}

	if isAutoDeploy {
		if isPublished {
			if requested == models.DepubPending {
				return Transition{Redeploy: true}, nil
			}
			return Transition{}, invalidTransition(isAutoDeploy, isPublished, requested)
		}
		switch requested {
		case models.PubPending:
			return Transition{Redeploy: true}, nil
		case models.DepubPending:
			return Transition{}, invalidTransition(isAutoDeploy, isPublished, requested)
		}
		return Transition{}, nil
	}

	if !isPublished && requested == models.DepubPending {
		return Transition{}, invalidTransition(isAutoDeploy, isPublished, requested)
	}
	return Transition{}, nil
}

func invalidTransition(isAutoDeploy, isPublished bool, requested models.PostPubStatus) error {
	mode := "manual"
	if isAutoDeploy {
		mode = "auto-deploy"
	}
	state := models.StatusUnpublished
	if isPublished {
		state = models.StatusPublished
	}
	target := string(requested)
	if target == "" {
		target = "NONE"
	}
	return invalid(ErrInvalidTransition, invalidTransitionCode,
		fmt.Sprintf("Invalid transition: %s post in %s queue cannot move to %s", state, mode, target))
}
