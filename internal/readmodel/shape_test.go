package readmodel

import (
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/vidtube/backend/internal/models"
)

var (
	alice = models.User{ID: "u-alice", Username: "alice", FullName: "Alice A", Email: "alice@example.com", Avatar: "a.png", PasswordHash: "secret"}
	bob   = models.User{ID: "u-bob", Username: "bob", FullName: "Bob B", Avatar: "b.png"}
)

func TestCollapseOwner(t *testing.T) {
	if CollapseOwner(nil) != nil {
		t.Fatal("expected nil owner for no match")
	}
	owner := CollapseOwner([]models.User{alice})
	if owner == nil || owner.Username != "alice" || owner.Avatar != "a.png" {
		t.Fatalf("unexpected owner %+v", owner)
	}
}

func TestViewerFlagsAreFalseForAnonymous(t *testing.T) {
	video := models.Video{ID: "v1", OwnerID: alice.ID, IsPublished: true}
	likes := []models.Like{{Target: models.LikeTarget{Kind: models.LikeVideo, ID: "v1"}, LikedBy: ""}}
	subs := []models.Subscription{{SubscriberID: "", ChannelID: alice.ID}}

	detail := ShapeVideoDetail(video, []models.User{alice}, likes, subs, "")
	if detail.IsLiked || detail.Owner.IsSubscribed {
		t.Fatal("anonymous viewer must never be flagged")
	}

	comment := ShapeComment(models.Comment{ID: "c1"}, nil, nil, "")
	if comment.IsLiked || comment.Owner != nil {
		t.Fatalf("unexpected anonymous comment projection %+v", comment)
	}

	profile := ShapeChannelProfile(alice, subs, 0, "")
	if profile.IsSubscribed {
		t.Fatal("anonymous viewer must not be subscribed")
	}
}

func TestShapeVideoDetailForViewer(t *testing.T) {
	video := models.Video{ID: "v1", OwnerID: alice.ID}
	likes := []models.Like{
		{Target: models.LikeTarget{Kind: models.LikeVideo, ID: "v1"}, LikedBy: bob.ID},
		{Target: models.LikeTarget{Kind: models.LikeComment, ID: "v1"}, LikedBy: alice.ID},
		{Target: models.LikeTarget{Kind: models.LikeVideo, ID: "v2"}, LikedBy: alice.ID},
	}
	subs := []models.Subscription{{SubscriberID: bob.ID, ChannelID: alice.ID}}

	asBob := ShapeVideoDetail(video, []models.User{alice}, likes, subs, bob.ID)
	if !asBob.IsLiked || asBob.LikeCount != 1 {
		t.Fatalf("expected bob to like the video once, got %+v", asBob)
	}
	if asBob.Owner == nil || !asBob.Owner.IsSubscribed || asBob.Owner.SubscriberCount != 1 {
		t.Fatalf("unexpected owner projection %+v", asBob.Owner)
	}

	asAlice := ShapeVideoDetail(video, []models.User{alice}, likes, subs, alice.ID)
	if asAlice.IsLiked || asAlice.Owner.IsSubscribed {
		t.Fatalf("alice has not liked or subscribed: %+v", asAlice)
	}
}

func TestShapeChannelProfileCounts(t *testing.T) {
	subs := []models.Subscription{
		{SubscriberID: bob.ID, ChannelID: alice.ID},
		{SubscriberID: "u-carol", ChannelID: alice.ID},
		{SubscriberID: alice.ID, ChannelID: bob.ID},
	}
	profile := ShapeChannelProfile(alice, subs, 4, bob.ID)
	if profile.SubscribersCount != 2 || profile.ChannelsSubscribedToCount != 1 || profile.VideosCount != 4 {
		t.Fatalf("unexpected counts %+v", profile)
	}
	if !profile.IsSubscribed {
		t.Fatal("expected bob to be subscribed")
	}
}

func TestShapePlaylistDetailKeepsOrderAndSkipsMissing(t *testing.T) {
	playlist := models.Playlist{ID: "p1", OwnerID: alice.ID, VideoIDs: []string{"v3", "gone", "v1"}}
	videos := map[string]models.VideoSummary{
		"v1": {Video: models.Video{ID: "v1"}},
		"v3": {Video: models.Video{ID: "v3"}},
	}
	detail := ShapePlaylistDetail(playlist, []models.User{alice}, videos)
	if detail.TotalVideos != 2 || detail.Videos[0].ID != "v3" || detail.Videos[1].ID != "v1" {
		t.Fatalf("unexpected playlist detail %+v", detail)
	}
}

func TestShapeWatchHistory(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	entries := []models.WatchEntry{
		{VideoID: "v1", WatchedAt: base},
		{VideoID: "deleted", WatchedAt: base.Add(time.Minute)},
		{VideoID: "v2", WatchedAt: base.Add(2 * time.Minute)},
	}
	videos := map[string]models.VideoSummary{
		"v1": {Video: models.Video{ID: "v1"}},
		"v2": {Video: models.Video{ID: "v2"}},
	}

	items := ShapeWatchHistory(entries, videos)
	if len(items) != 2 {
		t.Fatalf("expected deleted video to be dropped, got %d items", len(items))
	}
	if items[0].Video.ID != "v2" || items[1].Video.ID != "v1" {
		t.Fatalf("expected newest first, got %s then %s", items[0].Video.ID, items[1].Video.ID)
	}
}

func TestShouldAppendHistory(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	entries := []models.WatchEntry{
		{VideoID: "v1", WatchedAt: base},
		{VideoID: "v2", WatchedAt: base.Add(time.Minute)},
	}
	if !ShouldAppendHistory(nil, "v1") {
		t.Fatal("empty history always appends")
	}
	if ShouldAppendHistory(entries, "v2") {
		t.Fatal("repeat of the latest entry must not append")
	}
	if !ShouldAppendHistory(entries, "v1") {
		t.Fatal("older entry should append again")
	}
}

func TestFilterVideosPaginatesOverTotal(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var rows []models.VideoSummary
	for i := 0; i < 5; i++ {
		rows = append(rows, models.VideoSummary{Video: models.Video{
			ID:          "v" + strconv.Itoa(i),
			OwnerID:     alice.ID,
			Title:       "clip " + strconv.Itoa(i),
			IsPublished: true,
			CreatedAt:   base.Add(time.Duration(i) * time.Hour),
		}})
	}

	q := ParseVideoQuery(url.Values{"page": {"1"}, "limit": {"2"}}, "")
	docs, total := FilterVideos(rows, q)
	if len(docs) != 2 || total != 5 {
		t.Fatalf("expected 2 docs of 5, got %d of %d", len(docs), total)
	}
	if docs[0].ID != "v4" {
		t.Fatalf("expected newest first, got %s", docs[0].ID)
	}
}

func TestFilterVideosHidesUnpublishedFromOthers(t *testing.T) {
	rows := []models.VideoSummary{
		{Video: models.Video{ID: "pub", OwnerID: alice.ID, Title: "Cats", IsPublished: true}},
		{Video: models.Video{ID: "draft", OwnerID: alice.ID, Title: "Cats draft"}},
	}

	_, total := FilterVideos(rows, ParseVideoQuery(url.Values{"query": {"CATS"}}, bob.ID))
	if total != 1 {
		t.Fatalf("expected only the published video for bob, got %d", total)
	}

	_, total = FilterVideos(rows, ParseVideoQuery(url.Values{"userId": {alice.ID}}, alice.ID))
	if total != 2 {
		t.Fatalf("expected owner to see drafts, got %d", total)
	}
}
