package tasks

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/desertthunder/achieve/internal/models"
	"github.com/desertthunder/achieve/internal/repositories"
)

func TestDeleteCategory(t *testing.T) {
	ctx := context.Background()

	seedCategories := func(t *testing.T, f *fixture) {
		t.Helper()
		for _, in := range []NewAchievementInput{
			{Title: "a", Category: "Walking", MaxProg: 1},
			{Title: "b", Category: "Walking", MaxProg: 1},
			{Title: "c", Category: "Walking", MaxProg: 1},
			{Title: "a", Category: "Running", MaxProg: 1},
			{Title: "Walking", Category: "Archery", MaxProg: 1},
		} {
			if _, err := f.tracker.CreateAchievement(ctx, in); err != nil {
				t.Fatalf("failed to create: %v", err)
			}
		}
	}

	t.Run("removes exactly the category", func(t *testing.T) {
		f := newRemoteFixture(t)
		f.loginAs(t, "admin", models.AccountAdmin)
		seedCategories(t, f)
		f.dynamo.PageSize = 2

		progress := make(chan ProgressUpdate, 10)
		result, err := f.tracker.DeleteCategory(ctx, "Walking", progress)
		if err != nil {
			t.Fatalf("failed to delete category: %v", err)
		}
		close(progress)

		if len(result.Deleted) != 3 || len(result.Failed) != 0 {
			t.Errorf("unexpected result %+v", result)
		}
		if n := f.dynamo.Len(repositories.AchievementTable); n != 2 {
			t.Errorf("expected 2 achievements left, got %d", n)
		}

		categories, err := f.tracker.Categories(ctx)
		if err != nil {
			t.Fatalf("failed to list categories: %v", err)
		}
		for _, c := range categories {
			if c.Category == "Walking" {
				t.Error("Walking should be gone")
			}
		}

		var updates []ProgressUpdate
		for u := range progress {
			updates = append(updates, u)
		}
		if len(updates) != 4 || updates[0].Phase != ScanCategory || updates[3].Step != 3 || updates[3].Total != 3 {
			t.Errorf("unexpected progress updates %+v", updates)
		}
	})

	t.Run("per item failures are joined", func(t *testing.T) {
		f := newRemoteFixture(t)
		f.loginAs(t, "admin", models.AccountAdmin)
		seedCategories(t, f)

		boom := errors.New("throttled")
		f.dynamo.DeleteHook = func(key map[string]types.AttributeValue) error {
			if v, ok := key["title"].(*types.AttributeValueMemberS); ok && v.Value == "b" {
				return boom
			}
			return nil
		}

		result, err := f.tracker.DeleteCategory(ctx, "Walking", nil)
		if !errors.Is(err, boom) {
			t.Fatalf("expected joined error containing the failure, got %v", err)
		}
		if len(result.Deleted) != 2 || len(result.Failed) != 1 || result.Failed[0].Title != "b" {
			t.Errorf("unexpected result %+v", result)
		}
	})

	t.Run("cancelled context stops the cascade", func(t *testing.T) {
		f := newRemoteFixture(t)
		f.loginAs(t, "admin", models.AccountAdmin)
		seedCategories(t, f)

		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		result, err := f.tracker.DeleteCategory(cancelled, "Walking", nil)
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
		if len(result.Deleted) != 0 {
			t.Errorf("nothing should be deleted after cancel, got %v", result.Deleted)
		}
	})

	t.Run("empty category", func(t *testing.T) {
		tracker := newLocalTracker(t)
		result, err := tracker.DeleteCategory(ctx, "Nothing", nil)
		if err != nil || len(result.Deleted) != 0 {
			t.Errorf("expected no-op, got %+v (%v)", result, err)
		}
	})
}

func TestAuthorize(t *testing.T) {
	admin := models.Session{LoggedIn: true, Username: "root", AccountType: models.AccountAdmin}
	artist := models.Session{LoggedIn: true, Username: "ana", AccountType: models.AccountArtist}

	tc := []struct {
		name    string
		local   bool
		session models.Session
		want    map[Feature]bool
	}{
		{
			name:  "local",
			local: true,
			want:  map[Feature]bool{FeatureAccount: false, FeatureCategories: true, FeatureImages: true},
		},
		{
			name: "remote logged out",
			want: map[Feature]bool{FeatureAccount: true, FeatureCategories: false, FeatureImages: false},
		},
		{
			name:    "remote artist",
			session: artist,
			want:    map[Feature]bool{FeatureAccount: true, FeatureCategories: false, FeatureImages: true},
		},
		{
			name:    "remote admin",
			session: admin,
			want:    map[Feature]bool{FeatureAccount: true, FeatureCategories: true, FeatureImages: true},
		},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			got := Features(tt.local, tt.session)
			for f, want := range tt.want {
				if got[f] != want {
					t.Errorf("%s: got %v, want %v", f, got[f], want)
				}
			}
		})
	}
}
