package repositories

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/vidtube/backend/internal/models"
	"github.com/vidtube/backend/internal/readmodel"
)

func seedMemoryUser(t *testing.T, store *MemoryStore, username string) models.User {
	t.Helper()
	now := time.Now().UTC()
	user := models.User{ID: uuid.NewString(), Username: username, Email: username + "@example.com", FullName: username, CreatedAt: now, UpdatedAt: now}
	if err := store.Users.Create(context.Background(), user); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}

func seedMemoryVideo(t *testing.T, store *MemoryStore, ownerID, title string, at time.Time) models.Video {
	t.Helper()
	video := models.Video{ID: uuid.NewString(), OwnerID: ownerID, Title: title, IsPublished: true, CreatedAt: at, UpdatedAt: at}
	if err := store.Videos.Create(context.Background(), video); err != nil {
		t.Fatalf("create video: %v", err)
	}
	return video
}

func TestMemoryStore_ToggleIsAnInvolution(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	owner := seedMemoryUser(t, store, "owner")
	fan := seedMemoryUser(t, store, "fan")
	video := seedMemoryVideo(t, store, owner.ID, "clip", time.Now().UTC())
	target := models.LikeTarget{Kind: models.LikeVideo, ID: video.ID}

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	properties.Property("like state follows the parity of toggles", prop.ForAll(
		func(n int) bool {
			before, _ := store.Videos.Stats(ctx, video.ID, fan.ID)
			for range n {
				if _, err := store.Likes.Toggle(ctx, target, fan.ID); err != nil {
					return false
				}
			}
			after, _ := store.Videos.Stats(ctx, video.ID, fan.ID)
			if n%2 == 0 {
				return after.IsLiked == before.IsLiked && after.LikeCount == before.LikeCount
			}
			return after.IsLiked != before.IsLiked && after.LikeCount <= 1
		},
		gen.IntRange(0, 6),
	))

	properties.Property("subscription state follows the parity of toggles", prop.ForAll(
		func(n int) bool {
			before, _ := store.Users.ChannelProfile(ctx, owner.Username, fan.ID)
			for range n {
				if _, err := store.Subscriptions.Toggle(ctx, fan.ID, owner.ID); err != nil {
					return false
				}
			}
			after, _ := store.Users.ChannelProfile(ctx, owner.Username, fan.ID)
			if n%2 == 0 {
				return after.IsSubscribed == before.IsSubscribed
			}
			return after.IsSubscribed != before.IsSubscribed && after.SubscribersCount <= 1
		},
		gen.IntRange(0, 6),
	))

	properties.TestingRun(t)
}

func TestMemoryStore_DeleteVideoCascades(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	owner := seedMemoryUser(t, store, "owner")
	video := seedMemoryVideo(t, store, owner.ID, "doomed", time.Now().UTC())

	comment := models.Comment{ID: uuid.NewString(), VideoID: video.ID, OwnerID: owner.ID, Content: "first"}
	if err := store.Comments.Create(ctx, comment); err != nil {
		t.Fatalf("create comment: %v", err)
	}
	if _, err := store.Likes.Toggle(ctx, models.LikeTarget{Kind: models.LikeComment, ID: comment.ID}, owner.ID); err != nil {
		t.Fatalf("like comment: %v", err)
	}
	playlist := models.Playlist{ID: uuid.NewString(), OwnerID: owner.ID, Name: "mix", IsPublic: true}
	if err := store.Playlists.Create(ctx, playlist); err != nil {
		t.Fatalf("create playlist: %v", err)
	}
	if _, err := store.Playlists.AddVideo(ctx, playlist.ID, video.ID); err != nil {
		t.Fatalf("add video: %v", err)
	}

	if err := store.Videos.Delete(ctx, video.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if _, err := store.Comments.FindByID(ctx, comment.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected comment removed, got %v", err)
	}
	if n := len(store.Likes.d.likes); n != 0 {
		t.Fatalf("expected likes removed, found %d", n)
	}
	detail, err := store.Playlists.Detail(ctx, playlist.ID)
	if err != nil {
		t.Fatalf("playlist detail: %v", err)
	}
	if detail.TotalVideos != 0 {
		t.Fatalf("expected playlist emptied, got %d videos", detail.TotalVideos)
	}
}

func TestMemoryStore_ListMatchesPaginationContract(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	owner := seedMemoryUser(t, store, "creator")
	base := time.Now().UTC()
	for i := range 5 {
		seedMemoryVideo(t, store, owner.ID, "v", base.Add(time.Duration(i)*time.Second))
	}

	docs, total, err := store.Videos.List(ctx, readmodel.VideoQuery{
		PageRequest: readmodel.PageRequest{Page: 1, Limit: 2},
		Sort:        readmodel.DefaultSort,
	})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 5 || len(docs) != 2 {
		t.Fatalf("expected 2 of 5, got %d of %d", len(docs), total)
	}
	if !docs[0].CreatedAt.After(docs[1].CreatedAt) {
		t.Fatalf("expected newest first")
	}
}

func TestMemoryStore_WatchLaterProvisionedOnce(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	owner := seedMemoryUser(t, store, "owner")

	if _, err := store.Playlists.WatchLater(ctx, owner.ID, false); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found before first use, got %v", err)
	}
	first, err := store.Playlists.WatchLater(ctx, owner.ID, true)
	if err != nil {
		t.Fatalf("provision: %v", err)
	}
	second, err := store.Playlists.WatchLater(ctx, owner.ID, true)
	if err != nil || second.ID != first.ID {
		t.Fatalf("expected the same playlist, got %s vs %s (%v)", second.ID, first.ID, err)
	}
}

func TestMemoryStore_UserConflicts(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	alice := seedMemoryUser(t, store, "alice")
	bob := seedMemoryUser(t, store, "bob")

	if _, err := store.Users.UpdateAccount(ctx, bob.ID, "Bob", alice.Username, "bob@example.com"); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected conflict on taken username, got %v", err)
	}
	if _, err := store.Users.UpdateAccount(ctx, bob.ID, "Bobby", "bob", "bob@example.com"); err != nil {
		t.Fatalf("keeping own username must be allowed: %v", err)
	}
}
