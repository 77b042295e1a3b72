package tasks

import (
	"fmt"

	"github.com/desertthunder/achieve/internal/models"
	"github.com/desertthunder/achieve/internal/shared"
)

// Feature is a group of operations enabled or disabled together.
type Feature int

const (
	FeatureAccount Feature = iota
	FeatureCategories
	FeatureImages
)

func (f Feature) String() string {
	switch f {
	case FeatureAccount:
		return "account"
	case FeatureCategories:
		return "categories"
	case FeatureImages:
		return "image requests"
	default:
		return ""
	}
}

// Authorize reports whether f is available.
//
// Local mode disables accounts. In remote mode, without a login both categories and image requests are disabled,
// and an artist login disables categories.
func Authorize(local bool, session models.Session, f Feature) error {
	switch {
	case local:
		if f == FeatureAccount {
			return fmt.Errorf("%w: %s", shared.ErrLocalMode, f)
		}
	case !session.LoggedIn:
		if f != FeatureAccount {
			return fmt.Errorf("%w: log in to use %s", shared.ErrNotAuthenticated, f)
		}
	case session.AccountType == models.AccountArtist:
		if f == FeatureCategories {
			return fmt.Errorf("%w: artist accounts cannot use %s", shared.ErrForbidden, f)
		}
	}
	return nil
}

// Features returns the availability of every feature, for menus.
func Features(local bool, session models.Session) map[Feature]bool {
	out := make(map[Feature]bool, 3)
	for _, f := range []Feature{FeatureAccount, FeatureCategories, FeatureImages} {
		out[f] = Authorize(local, session, f) == nil
	}
	return out
}
